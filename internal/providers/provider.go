// Package providers wraps the external AI services the pipeline calls:
// vision OCR over rendered pages and the text classifier used for
// ambiguous dimension callouts.
package providers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

// OCRSpan is one located text fragment returned by an OCR provider.
// Coordinates are normalized to [0,1] of the page so results are
// independent of the resolution the provider saw.
type OCRSpan struct {
	Text       string     `json:"text"`
	BBox       types.Rect `json:"bbox"`
	Confidence float64    `json:"confidence"`
}

// OCRResult is the response from an OCR provider for one page.
type OCRResult struct {
	Success bool      `json:"success"`
	Spans   []OCRSpan `json:"spans"`

	ExecutionTime time.Duration `json:"execution_time"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	RetryCount    int           `json:"retry_count"`
}

// OCRProvider handles image-to-located-text extraction.
type OCRProvider interface {
	// Name returns the provider identifier (e.g., "openai-vision").
	Name() string

	// ProcessImage extracts located text spans from a page raster.
	ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error)

	// Rate limiting properties
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string   `json:"role"` // "system", "user", "assistant"
	Content string   `json:"content"`
	Images  [][]byte `json:"-"` // for vision models (base64 encoded in request)
}

// ResponseFormat requests structured output against a JSON schema.
type ResponseFormat struct {
	Name       string          `json:"name"`
	JSONSchema json.RawMessage `json:"json_schema"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	RequestID      string          `json:"-"`
}

// ChatResult is the response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // validated when ResponseFormat was set

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`
	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	RequestID     string        `json:"request_id"`
}

// LLMClient is the interface for chat/completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier.
	Name() string
}
