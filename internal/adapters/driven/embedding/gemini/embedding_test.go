package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docuchat/docuchat-cli/internal/adapters/driven/embedding"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *EmbeddingService) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewEmbeddingService: %v", err)
	}
	return srv, svc
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	if _, err := NewEmbeddingService(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestEmbedBatch(t *testing.T) {
	_, svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("missing api key header, got %q", got)
		}

		var req batchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Requests) != 2 {
			t.Errorf("expected 2 requests, got %d", len(req.Requests))
		}

		resp := batchEmbedResponse{}
		for i := range req.Requests {
			resp.Embeddings = append(resp.Embeddings, struct {
				Values []float32 `json:"values"`
			}{Values: []float32{float32(i), 1, 2}})
		}
		json.NewEncoder(w).Encode(resp)
	})

	vecs, err := svc.EmbedBatch(context.Background(), []string{"one", "two"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 0 || vecs[1][0] != 1 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestEmbedBatch_RateLimitedSurfacesAPIError(t *testing.T) {
	_, svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := svc.EmbedBatch(context.Background(), []string{"x"})

	var apiErr *embedding.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", apiErr.StatusCode)
	}
	if !apiErr.Transient() {
		t.Error("429 must be transient")
	}
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	_, svc := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(batchEmbedResponse{})
	})

	if _, err := svc.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	_, svc := newTestServer(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected for empty input")
	})

	vecs, err := svc.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", vecs, err)
	}
}

func TestDimensions(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if svc.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", svc.Dimensions())
	}
	if svc.ModelName() != DefaultModel {
		t.Errorf("unexpected model name %q", svc.ModelName())
	}
}
