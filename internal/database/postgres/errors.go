package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func limitOrDefault(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}
