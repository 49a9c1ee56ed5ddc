package providers

import (
	"context"
	"time"
)

// MockOCRProvider is a test double for OCRProvider.
type MockOCRProvider struct {
	NameValue string
	Results   map[int]*OCRResult // by page number
	Err       error
	Delay     time.Duration
	Calls     int
}

var _ OCRProvider = (*MockOCRProvider)(nil)

func (m *MockOCRProvider) Name() string {
	if m.NameValue == "" {
		return "mock-ocr"
	}
	return m.NameValue
}

func (m *MockOCRProvider) ProcessImage(ctx context.Context, _ []byte, pageNum int) (*OCRResult, error) {
	m.Calls++
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return &OCRResult{Success: false, ErrorMessage: m.Err.Error()}, m.Err
	}
	if r, ok := m.Results[pageNum]; ok {
		return r, nil
	}
	return &OCRResult{Success: true}, nil
}

func (m *MockOCRProvider) RequestsPerSecond() float64    { return 100 }
func (m *MockOCRProvider) MaxRetries() int               { return 1 }
func (m *MockOCRProvider) RetryDelayBase() time.Duration { return time.Millisecond }

// MockLLMClient is a test double for LLMClient returning canned results.
type MockLLMClient struct {
	NameValue string
	Result    *ChatResult
	Err       error
	Requests  []*ChatRequest
}

var _ LLMClient = (*MockLLMClient)(nil)

func (m *MockLLMClient) Name() string {
	if m.NameValue == "" {
		return "mock-llm"
	}
	return m.NameValue
}

func (m *MockLLMClient) Chat(_ context.Context, req *ChatRequest) (*ChatResult, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &ChatResult{Content: "{}"}, nil
}
