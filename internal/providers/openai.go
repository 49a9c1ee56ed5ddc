package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/heavyclick/autoballoon-sub001/internal/types"
)

const (
	OpenAIVisionName         = "openai-vision"
	openAIVisionDefaultModel = "gpt-4o"
)

// OpenAIVisionConfig holds configuration for the OpenAI-compatible
// vision client. BaseURL allows pointing at any OpenAI-compatible
// endpoint.
type OpenAIVisionConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// OpenAIVisionClient implements OCRProvider and LLMClient against an
// OpenAI-compatible chat completions API.
type OpenAIVisionClient struct {
	model      string
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	client     openai.Client
}

var (
	_ OCRProvider = (*OpenAIVisionClient)(nil)
	_ LLMClient   = (*OpenAIVisionClient)(nil)
)

// NewOpenAIVisionClient creates a new vision client.
func NewOpenAIVisionClient(cfg OpenAIVisionConfig) *OpenAIVisionClient {
	if cfg.Model == "" {
		cfg.Model = openAIVisionDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0), // retries are handled by the caller
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIVisionClient{
		model:      cfg.Model,
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIVisionClient) Name() string { return OpenAIVisionName }

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAIVisionClient) RequestsPerSecond() float64 { return c.rateLimit }

// MaxRetries returns the maximum retry attempts.
func (c *OpenAIVisionClient) MaxRetries() int { return c.maxRetries }

// RetryDelayBase returns the base delay for exponential backoff.
func (c *OpenAIVisionClient) RetryDelayBase() time.Duration { return c.retryDelay }

const ocrSystemPrompt = `You read engineering drawings. Locate every text callout on the page:
dimensions, tolerances, GD&T frames, notes, surface finish marks and weld symbols.
Return each callout verbatim with its bounding box normalized to the page
(x, y = top-left corner, w, h = extents, all in 0..1) and your confidence in 0..1.
Do not merge separate callouts. Do not invent text you cannot read.`

var ocrSpanSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "spans": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {"type": "string"},
          "x": {"type": "number", "minimum": 0, "maximum": 1},
          "y": {"type": "number", "minimum": 0, "maximum": 1},
          "w": {"type": "number", "minimum": 0, "maximum": 1},
          "h": {"type": "number", "minimum": 0, "maximum": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["text", "x", "y", "w", "h", "confidence"],
        "additionalProperties": false
      }
    }
  },
  "required": ["spans"],
  "additionalProperties": false
}`)

// ProcessImage extracts located text spans from a page raster via the
// vision model, with output validated against the span schema.
func (c *OpenAIVisionClient) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()

	result, err := c.Chat(ctx, &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: ocrSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Page %d of an engineering drawing.", pageNum), Images: [][]byte{image}},
		},
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Name: "callout_spans", JSONSchema: ocrSpanSchema},
	})
	if err != nil {
		return &OCRResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	var payload struct {
		Spans []struct {
			Text       string  `json:"text"`
			X          float64 `json:"x"`
			Y          float64 `json:"y"`
			W          float64 `json:"w"`
			H          float64 `json:"h"`
			Confidence float64 `json:"confidence"`
		} `json:"spans"`
	}
	if err := json.Unmarshal(result.ParsedJSON, &payload); err != nil {
		return &OCRResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, fmt.Errorf("failed to decode ocr spans: %w", err)
	}

	spans := make([]OCRSpan, 0, len(payload.Spans))
	for _, s := range payload.Spans {
		if s.Text == "" {
			continue
		}
		spans = append(spans, OCRSpan{
			Text:       s.Text,
			BBox:       types.Rect{X: s.X, Y: s.Y, W: s.W, H: s.H},
			Confidence: s.Confidence,
		})
	}

	return &OCRResult{
		Success:       true,
		Spans:         spans,
		ExecutionTime: time.Since(start),
	}, nil
}

// Chat sends a chat completion request, optionally with images and a
// structured-output schema.
func (c *OpenAIVisionClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) == 0 {
				messages = append(messages, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(m.Content),
			}
			for _, img := range m.Images {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
				}))
			}
			messages = append(messages, openai.UserMessage(parts))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ResponseFormat != nil {
		var schema map[string]any
		if err := json.Unmarshal(req.ResponseFormat.JSONSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid response schema %s: %w", req.ResponseFormat.Name, err)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.ResponseFormat.Name,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content

	parsed, err := validateStructured(content, req.ResponseFormat)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Content:          content,
		ParsedJSON:       parsed,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		ExecutionTime:    time.Since(start),
		Provider:         OpenAIVisionName,
		ModelUsed:        model,
		RequestID:        requestID,
	}, nil
}
