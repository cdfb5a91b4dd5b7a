package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	ErrInvalidToken = errors.New("invalid registration token")
	ErrUnregistered = errors.New("registration token not registered")
	ErrDisabled     = errors.New("push delivery disabled")
)

// Provider error codes mapped to the sentinels above.
const (
	codeInvalidToken = "messaging/invalid-registration-token"
	codeUnregistered = "messaging/registration-token-not-registered"
)

type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// SendResult is the outcome for one token, in request order.
type SendResult struct {
	Token     string
	MessageID string
	Error     error
}

type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Responses    []SendResult
}

type Client interface {
	SendMulticast(ctx context.Context, tokens []string, msg Message) (*BatchResponse, error)
}

type multicastRequest struct {
	Tokens       []string `json:"tokens"`
	Notification Message  `json:"notification"`
}

type multicastResponse struct {
	Results []struct {
		MessageID string `json:"messageId"`
		Error     *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"results"`
}

type httpClient struct {
	endpoint  string
	serverKey string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// NewClient returns an HTTP multicast client behind a circuit breaker, or a
// disabled client when push is turned off.
func NewClient(cfg *config.PushConfig) Client {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return disabledClient{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &httpClient{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		http:      &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "push",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Circuit breaker state change")
			},
		}),
	}
}

func (c *httpClient) SendMulticast(ctx context.Context, tokens []string, msg Message) (*BatchResponse, error) {
	if len(tokens) == 0 {
		return &BatchResponse{}, nil
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, tokens, msg)
	})
	if err != nil {
		return nil, err
	}
	return out.(*BatchResponse), nil
}

func (c *httpClient) post(ctx context.Context, tokens []string, msg Message) (*BatchResponse, error) {
	payload, err := json.Marshal(multicastRequest{Tokens: tokens, Notification: msg})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serverKey != "" {
		req.Header.Set("Authorization", "key="+c.serverKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("push API error: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var decoded multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}
	if len(decoded.Results) != len(tokens) {
		return nil, fmt.Errorf("push API returned %d results for %d tokens", len(decoded.Results), len(tokens))
	}

	batch := &BatchResponse{Responses: make([]SendResult, len(tokens))}
	for i, r := range decoded.Results {
		res := SendResult{Token: tokens[i], MessageID: r.MessageID}
		if r.Error != nil {
			res.Error = mapError(r.Error.Code, r.Error.Message)
			batch.FailureCount++
		} else {
			batch.SuccessCount++
		}
		batch.Responses[i] = res
	}
	return batch, nil
}

func mapError(code, message string) error {
	switch code {
	case codeInvalidToken:
		return ErrInvalidToken
	case codeUnregistered:
		return ErrUnregistered
	}
	return fmt.Errorf("push: %s: %s", code, message)
}

// IsStaleToken reports whether err means the token should be forgotten.
func IsStaleToken(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUnregistered)
}

type disabledClient struct{}

func (disabledClient) SendMulticast(context.Context, []string, Message) (*BatchResponse, error) {
	return nil, ErrDisabled
}
