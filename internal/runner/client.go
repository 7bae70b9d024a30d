package runner

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Caller sends one input to the service under test. Implementations must be
// safe for concurrent use. A non-nil error is always a *TransportError.
type Caller interface {
	Call(ctx context.Context, input int64, timeout time.Duration) (RawResponse, error)
}

type numberRequest struct {
	Number int64 `json:"number"`
}

type numberResponse struct {
	Result json.RawMessage `json:"result"`
}

// maxBodyBytes caps how much of a response is read before giving up on it.
const maxBodyBytes = 1 << 20

type HTTPClient struct {
	URL    string
	Client *http.Client
}

// NewHTTPClient builds a client whose connection pool is sized by poolSize,
// independent of how many requests a burst puts in flight.
func NewHTTPClient(url string, poolSize int) *HTTPClient {
	if poolSize <= 0 {
		poolSize = 2000
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = poolSize
	t.MaxConnsPerHost = poolSize
	t.MaxIdleConnsPerHost = poolSize
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	// Timeouts are applied per call through the request context.
	return &HTTPClient{
		URL:    url,
		Client: &http.Client{Transport: t},
	}
}

func (c *HTTPClient) Call(ctx context.Context, input int64, timeout time.Duration) (RawResponse, error) {
	body, err := json.Marshal(numberRequest{Number: input})
	if err != nil {
		return RawResponse{}, &TransportError{Cause: "encode request", Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return RawResponse{}, &TransportError{Cause: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return RawResponse{}, classify(ctx, "send request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := time.Since(start)
	if err != nil {
		return RawResponse{}, classify(ctx, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RawResponse{}, &TransportError{Cause: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var decoded numberResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return RawResponse{}, &TransportError{Cause: "malformed response body", Err: err}
	}

	return RawResponse{
		Result:    parseResult(decoded.Result),
		LatencyMs: float64(latency) / float64(time.Millisecond),
	}, nil
}

// parseResult accepts only a JSON number. Anything else, null included, is
// treated as no result.
func parseResult(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

func classify(ctx context.Context, op string, err error) *TransportError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TransportError{Cause: "timeout", Err: err}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return &TransportError{Cause: "canceled", Err: err}
	}
	return &TransportError{Cause: op, Err: err}
}
