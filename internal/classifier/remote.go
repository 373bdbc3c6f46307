package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Remote calls an HTTP prediction service:
//
//	POST <URL> {"text": "...", "user_id": "...", "order_id": "..."}
//	200 {"category": "...", "status": "..."} | 4xx/5xx {"error": "..."}
type Remote struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewRemote returns a client for url with a traced transport.
func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{
		URL:     url,
		Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Timeout: timeout,
	}
}

type remoteReply struct {
	Category string `json:"category"`
	Status   string `json:"status"`
	Error    string `json:"error"`
}

// Predict implements Gateway.
func (r *Remote) Predict(ctx context.Context, req PredictRequest) (Prediction, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Prediction{}, ErrEmptyText
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Prediction{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: read body: %w", err)
	}
	var reply remoteReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return Prediction{}, fmt.Errorf("predict: status %d: decode: %w", resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 || reply.Error != "" {
		msg := reply.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Prediction{}, fmt.Errorf("predict: status %d: %w", resp.StatusCode, errors.New(msg))
	}
	return Prediction{Category: reply.Category, Status: reply.Status}, nil
}
