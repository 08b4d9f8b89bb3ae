// Package client talks to the reservation backend's REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/court-reservation/internal/model"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is returned for any non-2xx response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
}

// Client is a single-attempt HTTP client for the reservation API.
type Client struct {
	base string
	hc   *http.Client
	log  zerolog.Logger
}

// New returns a client for the API rooted at baseURL, e.g.
// http://localhost:8080/api.  Each request is bounded by timeout.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, log)
}

// NewWithHTTPClient is New with a caller-supplied http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client, log zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   hc,
		log:  log.With().Str("component", "api").Logger(),
	}
}

// ListCourts fetches every court with its slots.
func (c *Client) ListCourts(ctx context.Context) ([]model.Court, error) {
	var courts []model.Court
	if err := c.do(ctx, "list courts", http.MethodGet, "/courts", nil, &courts); err != nil {
		return nil, err
	}
	return courts, nil
}

// ListReservations fetches every current reservation.
func (c *Client) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	var res []model.Reservation
	if err := c.do(ctx, "list reservations", http.MethodGet, "/reservations", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateReservation books a slot and returns the stored reservation.
func (c *Client) CreateReservation(ctx context.Context, req model.CreateReservationRequest) (*model.Reservation, error) {
	var created model.Reservation
	if err := c.do(ctx, "create reservation", http.MethodPost, "/reservations", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Int("status", res.StatusCode).Dur("took", time.Since(start)).Msg("request")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Op: op, Status: res.StatusCode, Message: errorMessage(res.Body)}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage extracts {"error": ...} or {"message": ...} from an error
// body, falling back to the trimmed text.
func errorMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(b))
}
