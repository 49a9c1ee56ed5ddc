package sampling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Planner produces sampling plans. The table implementation and the
// remote client both satisfy it.
type Planner interface {
	Plan(ctx context.Context, lotSize int, aql float64, level Level) (SamplingPlan, error)
}

// TablePlanner computes plans from the built-in tables.
type TablePlanner struct{}

func (TablePlanner) Plan(_ context.Context, lotSize int, aql float64, level Level) (SamplingPlan, error) {
	return Plan(lotSize, aql, level)
}

// RemoteConfig configures a remote sampling service client.
type RemoteConfig struct {
	BaseURL     string
	Timeout     time.Duration // per-request timeout (default 10s)
	MaxAttempts uint          // bounded retry attempts (default 3)
	HTTPClient  *http.Client
}

// RemoteClient delegates sampling computation to a remote service.
// Requests are cancellable through ctx; failed requests are retried as a
// whole with exponential backoff, never on partial success.
type RemoteClient struct {
	baseURL     string
	maxAttempts uint
	client      *http.Client
}

// NewRemoteClient creates a remote sampling client.
func NewRemoteClient(cfg RemoteConfig) *RemoteClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RemoteClient{
		baseURL:     cfg.BaseURL,
		maxAttempts: cfg.MaxAttempts,
		client:      client,
	}
}

type remoteRequest struct {
	LotSize int     `json:"lot_size"`
	AQL     float64 `json:"aql"`
	Level   Level   `json:"level"`
}

type remoteResponse struct {
	CodeLetter   string `json:"code_letter,omitempty"`
	SampleSize   *int   `json:"sample_size"`
	AcceptNumber int    `json:"accept_number,omitempty"`
	RejectNumber int    `json:"reject_number,omitempty"`
}

// Plan requests a sampling plan from the remote service. A missing
// sample_size in the response means "not yet computed" and is reported
// as an error, distinct from an explicit zero (which is never valid).
func (c *RemoteClient) Plan(ctx context.Context, lotSize int, aql float64, level Level) (SamplingPlan, error) {
	if lotSize <= 0 {
		return SamplingPlan{}, &OutOfRangeError{Field: "lot_size", Value: lotSize}
	}

	body, err := json.Marshal(remoteRequest{LotSize: lotSize, AQL: aql, Level: level})
	if err != nil {
		return SamplingPlan{}, fmt.Errorf("failed to marshal sampling request: %w", err)
	}

	var plan SamplingPlan
	err = retry.Do(
		func() error {
			p, err := c.doRequest(ctx, body)
			if err != nil {
				return err
			}
			plan = p
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxAttempts),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return SamplingPlan{}, fmt.Errorf("remote sampling request failed: %w", err)
	}
	return plan, nil
}

func (c *RemoteClient) doRequest(ctx context.Context, body []byte) (SamplingPlan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/plan", bytes.NewReader(body))
	if err != nil {
		return SamplingPlan{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return SamplingPlan{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return SamplingPlan{}, fmt.Errorf("sampling service returned %d: %s", resp.StatusCode, data)
	}

	var rr remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return SamplingPlan{}, fmt.Errorf("failed to decode sampling response: %w", err)
	}
	if rr.SampleSize == nil {
		return SamplingPlan{}, fmt.Errorf("sampling response missing sample_size")
	}
	if *rr.SampleSize <= 0 {
		return SamplingPlan{}, fmt.Errorf("sampling response has non-positive sample_size %d", *rr.SampleSize)
	}

	return SamplingPlan{
		CodeLetter:   rr.CodeLetter,
		SampleSize:   *rr.SampleSize,
		AcceptNumber: rr.AcceptNumber,
		RejectNumber: rr.RejectNumber,
	}, nil
}
