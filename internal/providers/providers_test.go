package providers

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	t.Run("consumes tokens", func(t *testing.T) {
		rl := NewRateLimiter(60)
		for i := 0; i < 5; i++ {
			if err := rl.Wait(context.Background()); err != nil {
				t.Fatalf("Wait %d: %v", i, err)
			}
		}
		status := rl.Status()
		if status.TotalConsumed != 5 {
			t.Errorf("consumed = %d, want 5", status.TotalConsumed)
		}
		if status.TokensLimit != 60 {
			t.Errorf("limit = %d, want 60", status.TokensLimit)
		}
	})

	t.Run("blocks when empty and honors cancellation", func(t *testing.T) {
		rl := NewRateLimiter(1)
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		start := time.Now()
		err := rl.Wait(ctx)
		if err == nil {
			t.Fatal("Wait returned without a token on an empty bucket")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("Wait blocked %v past its context deadline", elapsed)
		}
	})

	t.Run("zero rate gets a default", func(t *testing.T) {
		rl := NewRateLimiter(0)
		if got := rl.Status().TokensLimit; got != 60 {
			t.Errorf("limit = %d, want default 60", got)
		}
	})
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  {\"a\":1}\n", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractJSON(tc.in); got != tc.want {
				t.Errorf("extractJSON = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidateStructured(t *testing.T) {
	rf := &ResponseFormat{
		Name: "dimension_subtype",
		JSONSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"subtype": {"type": "string"},
				"confidence": {"type": "number", "minimum": 0, "maximum": 1}
			},
			"required": ["subtype", "confidence"],
			"additionalProperties": false
		}`),
	}

	t.Run("valid output passes", func(t *testing.T) {
		raw, err := validateStructured(`{"subtype":"Linear","confidence":0.8}`, rf)
		if err != nil {
			t.Fatalf("validateStructured: %v", err)
		}
		var payload struct {
			Subtype string `json:"subtype"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil || payload.Subtype != "Linear" {
			t.Errorf("raw round-trip failed: %v %q", err, payload.Subtype)
		}
	})

	t.Run("fenced output passes", func(t *testing.T) {
		if _, err := validateStructured("```json\n{\"subtype\":\"Note\",\"confidence\":0.5}\n```", rf); err != nil {
			t.Errorf("validateStructured: %v", err)
		}
	})

	t.Run("schema violation fails", func(t *testing.T) {
		if _, err := validateStructured(`{"subtype":"Linear","confidence":1.5}`, rf); err == nil {
			t.Error("out-of-range confidence passed validation")
		}
		if _, err := validateStructured(`{"subtype":"Linear"}`, rf); err == nil {
			t.Error("missing required field passed validation")
		}
		if _, err := validateStructured(`{"subtype":"Linear","confidence":0.5,"extra":true}`, rf); err == nil {
			t.Error("additional property passed validation")
		}
	})

	t.Run("non-json output fails", func(t *testing.T) {
		if _, err := validateStructured("I think it's a Linear dimension.", rf); err == nil {
			t.Error("prose passed validation")
		}
	})

	t.Run("nil format skips validation", func(t *testing.T) {
		raw, err := validateStructured("anything", nil)
		if err != nil || raw != nil {
			t.Errorf("got %q, %v; want nil, nil", raw, err)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Run("lookup registered providers", func(t *testing.T) {
		r := NewRegistry()
		mock := &MockOCRProvider{NameValue: "mock"}
		r.RegisterOCR("mock", mock)
		r.RegisterLLM("mock", &MockLLMClient{NameValue: "mock"})

		ocr, err := r.OCR("mock")
		if err != nil || ocr.Name() != "mock" {
			t.Errorf("OCR lookup: %v %v", ocr, err)
		}
		llm, err := r.LLM("mock")
		if err != nil || llm.Name() != "mock" {
			t.Errorf("LLM lookup: %v %v", llm, err)
		}
	})

	t.Run("unknown provider errors", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.OCR("ghost"); err == nil {
			t.Error("OCR lookup succeeded for an unregistered name")
		}
		if _, err := r.LLM("ghost"); err == nil {
			t.Error("LLM lookup succeeded for an unregistered name")
		}
	})

	t.Run("reload builds openai providers", func(t *testing.T) {
		r := NewRegistry()
		r.Reload(RegistryConfig{Providers: map[string]ProviderConfig{
			"openai":   {Type: "openai-vision", Model: "gpt-4o", APIKey: "sk-test", RateLimit: 2, Enabled: true},
			"disabled": {Type: "openai-vision", Model: "gpt-4o", APIKey: "sk-test", Enabled: false},
			"weird":    {Type: "carrier-pigeon", Enabled: true},
		}})

		if _, err := r.OCR("openai"); err != nil {
			t.Errorf("openai OCR missing after reload: %v", err)
		}
		if _, err := r.LLM("openai"); err != nil {
			t.Errorf("openai LLM missing after reload: %v", err)
		}
		if _, err := r.OCR("disabled"); err == nil {
			t.Error("disabled provider registered")
		}
		if _, err := r.OCR("weird"); err == nil {
			t.Error("unknown provider type registered")
		}
	})

	t.Run("reload replaces the set", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterOCR("old", &MockOCRProvider{})
		r.Reload(RegistryConfig{})
		if _, err := r.OCR("old"); err == nil {
			t.Error("reload kept a provider outside the new config")
		}
	})

	t.Run("limiter fallback", func(t *testing.T) {
		r := NewRegistry()
		l := r.LimiterFor("anything")
		if l == nil {
			t.Fatal("LimiterFor returned nil")
		}
		if again := r.LimiterFor("anything"); again != l {
			t.Error("LimiterFor minted a second limiter for the same name")
		}
	})

	t.Run("status covers limiters", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterOCR("mock", &MockOCRProvider{})
		status := r.Status()
		if _, ok := status["mock"]; !ok {
			t.Errorf("status = %v, missing mock", status)
		}
	})
}
