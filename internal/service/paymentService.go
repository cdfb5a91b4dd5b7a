package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ds124wfegd/afritix/internal/clock"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	PaymentMethodCard        = "card"
	PaymentMethodMobileMoney = "mobile_money"
)

// declineSuffix makes the stub gateway refuse a card, for exercising the
// failure path end to end.
const declineSuffix = "0002"

var (
	cardNumberRe = regexp.MustCompile(`^[0-9]{13,19}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)
	cvvRe        = regexp.MustCompile(`^[0-9]{3,4}$`)
	phoneRe      = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

	mobileProviders = map[string]bool{"orange": true, "mtn": true, "moov": true, "wave": true}
)

type paymentService struct {
	clock clock.Clock
}

func NewPaymentService(clk clock.Clock) PaymentService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &paymentService{clock: clk}
}

func (s *paymentService) Validate(d *PaymentDetails) error {
	if d == nil {
		return entity.NewValidationError("payment", "is required")
	}

	switch d.Method {
	case PaymentMethodCard:
		number := normalizeCardNumber(d.CardNumber)
		if !cardNumberRe.MatchString(number) || !luhnValid(number) {
			return entity.NewValidationError("payment.cardNumber", "invalid card number")
		}
		if err := s.validateExpiry(d.Expiry); err != nil {
			return err
		}
		if !cvvRe.MatchString(d.CVV) {
			return entity.NewValidationError("payment.cvv", "must be 3 or 4 digits")
		}

	case PaymentMethodMobileMoney:
		if !phoneRe.MatchString(strings.ReplaceAll(d.Phone, " ", "")) {
			return entity.NewValidationError("payment.phone", "invalid phone number")
		}
		if !mobileProviders[strings.ToLower(d.Provider)] {
			return entity.NewValidationError("payment.provider", "must be one of orange, mtn, moov, wave")
		}

	default:
		return entity.NewValidationError("payment.method", fmt.Sprintf("unsupported payment method %q", d.Method))
	}
	return nil
}

func (s *paymentService) validateExpiry(expiry string) error {
	m := expiryRe.FindStringSubmatch(expiry)
	if m == nil {
		return entity.NewValidationError("payment.expiry", "must be MM/YY")
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])

	// A card is valid through the last day of its expiry month.
	firstInvalid := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !s.clock.Now().UTC().Before(firstInvalid) {
		return entity.NewValidationError("payment.expiry", "card has expired")
	}
	return nil
}

func normalizeCardNumber(n string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(n)
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Charge is a stand-in gateway. It declines cards ending in 0002 and
// accepts everything else.
func (s *paymentService) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if err := s.Validate(req.Details); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, entity.NewValidationError("amount", "must not be negative")
	}

	if req.Details.Method == PaymentMethodCard && strings.HasSuffix(normalizeCardNumber(req.Details.CardNumber), declineSuffix) {
		return nil, fmt.Errorf("card declined by issuer: %w", entity.ErrPaymentFailed)
	}

	ref := "txn_" + uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"order_reference": req.OrderReference,
		"transaction_ref": ref,
		"method":          req.Details.Method,
		"amount":          req.Amount,
		"currency":        req.Currency,
	}).Info("Payment captured")

	return &ChargeResult{TransactionRef: ref}, nil
}

func (s *paymentService) Refund(ctx context.Context, transactionRef string) error {
	if transactionRef == "" {
		return nil
	}
	logrus.WithField("transaction_ref", transactionRef).Info("Payment refunded")
	return nil
}
