package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/feyxa/commerce/internal/service/models/eventlog"
	"github.com/feyxa/commerce/internal/service/models/mail"
	"github.com/feyxa/commerce/internal/service/models/payment"
	"github.com/feyxa/commerce/pkg/servicetoken"
	"github.com/sony/gobreaker"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	pathProcessEvent         = "/process-event"
	pathSendEmail            = "/send-email"
	pathCreatePaymentSession = "/create-payment-session"

	maxErrorBody = 512
)

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("functions are unavailable")

// StatusError is a non-2xx answer from a function.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Path, e.StatusCode, e.Body)
}

// Client calls the serverless functions with a short-lived service token.
type Client struct {
	baseURL string
	http    *http.Client
	signer  *servicetoken.Signer
	cb      *gobreaker.CircuitBreaker
}

// MustNewClient builds the client from functions.* keys.
func MustNewClient() *Client {
	baseURL := viper.GetString("functions.base_url")
	if baseURL == "" {
		panic("functions.base_url is not set")
	}

	signer := servicetoken.NewSigner(
		viper.GetString("functions.service_secret"),
		viper.GetString("functions.issuer"),
		time.Duration(viper.GetInt("functions.token_ttl_minutes"))*time.Minute,
	)

	httpClient := &http.Client{
		Timeout:   time.Duration(viper.GetInt("functions.timeout_seconds")) * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return NewClient(
		baseURL,
		httpClient,
		signer,
		time.Duration(viper.GetInt("functions.breaker.timeout_seconds"))*time.Second,
	)
}

// NewClient creates a client. breakerTimeout is how long the breaker stays open.
func NewClient(baseURL string, httpClient *http.Client, signer *servicetoken.Signer, breakerTimeout time.Duration) *Client {
	st := gobreaker.Settings{
		Name:        "functions",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// A rejected request says nothing about the health of the functions.
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}

			return err == nil
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		signer:  signer,
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

type processEventResponse struct {
	Outcome eventlog.Outcome `json:"outcome"`
	Error   string           `json:"error,omitempty"`
}

// ProcessEvent hands an event to the processor. A nil error means the call was placed;
// the processor records its own outcome on the event row.
func (c *Client) ProcessEvent(ctx context.Context, msg eventlog.Message) (eventlog.Outcome, error) {
	var resp processEventResponse
	if err := c.post(ctx, pathProcessEvent, msg, &resp); err != nil {
		return "", err
	}

	return resp.Outcome, nil
}

func (c *Client) SendEmail(ctx context.Context, msg mail.Message) error {
	return c.post(ctx, pathSendEmail, msg, nil)
}

func (c *Client) CreatePaymentSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	var session payment.Session
	if err := c.post(ctx, pathCreatePaymentSession, req, &session); err != nil {
		return payment.Session{}, err
	}
	if session.URL == "" {
		return payment.Session{}, errors.New("payment session has no url")
	}

	return session, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", path, ErrUnavailable)
	}

	return err
}

func (c *Client) do(ctx context.Context, path string, body []byte, out any) error {
	token, err := c.signer.Sign()
	if err != nil {
		return fmt.Errorf("failed to sign service token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	return nil
}
