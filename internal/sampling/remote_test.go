package sampling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRemoteClientPlan(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/plan" {
				t.Errorf("path = %s, want /plan", r.URL.Path)
			}
			var req remoteRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if req.LotSize != 500 || req.AQL != 2.5 || req.Level != LevelII {
				t.Errorf("request = %+v", req)
			}
			n := 50
			json.NewEncoder(w).Encode(remoteResponse{
				CodeLetter: "H", SampleSize: &n, AcceptNumber: 3, RejectNumber: 4,
			})
		}))
		defer srv.Close()

		c := NewRemoteClient(RemoteConfig{BaseURL: srv.URL})
		plan, err := c.Plan(context.Background(), 500, 2.5, LevelII)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		want := SamplingPlan{CodeLetter: "H", SampleSize: 50, AcceptNumber: 3, RejectNumber: 4}
		if plan != want {
			t.Errorf("plan = %+v, want %+v", plan, want)
		}
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			n := 13
			json.NewEncoder(w).Encode(remoteResponse{CodeLetter: "E", SampleSize: &n, AcceptNumber: 1, RejectNumber: 2})
		}))
		defer srv.Close()

		c := NewRemoteClient(RemoteConfig{BaseURL: srv.URL, MaxAttempts: 5})
		plan, err := c.Plan(context.Background(), 100, 1.5, LevelII)
		if err != nil {
			t.Fatalf("Plan: %v", err)
		}
		if plan.SampleSize != 13 {
			t.Errorf("sample size = %d, want 13", plan.SampleSize)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("missing sample_size is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code_letter":"H"}`))
		}))
		defer srv.Close()

		c := NewRemoteClient(RemoteConfig{BaseURL: srv.URL, MaxAttempts: 1})
		_, err := c.Plan(context.Background(), 500, 2.5, LevelII)
		if err == nil || !strings.Contains(err.Error(), "missing sample_size") {
			t.Errorf("error = %v, want missing sample_size", err)
		}
	})

	t.Run("zero sample_size is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code_letter":"H","sample_size":0}`))
		}))
		defer srv.Close()

		c := NewRemoteClient(RemoteConfig{BaseURL: srv.URL, MaxAttempts: 1})
		_, err := c.Plan(context.Background(), 500, 2.5, LevelII)
		if err == nil || !strings.Contains(err.Error(), "non-positive sample_size") {
			t.Errorf("error = %v, want non-positive sample_size", err)
		}
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		c := NewRemoteClient(RemoteConfig{BaseURL: srv.URL, MaxAttempts: 10})
		start := time.Now()
		_, err := c.Plan(ctx, 500, 2.5, LevelII)
		if err == nil {
			t.Fatal("expected error after cancellation")
		}
		if elapsed := time.Since(start); elapsed > 5*time.Second {
			t.Errorf("cancellation took %v", elapsed)
		}
	})
}

func TestTablePlanner(t *testing.T) {
	plan, err := TablePlanner{}.Plan(context.Background(), 500, 2.5, LevelII)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.CodeLetter != "H" || plan.SampleSize != 50 {
		t.Errorf("plan = %+v, want H/50", plan)
	}
}
