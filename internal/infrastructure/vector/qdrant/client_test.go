package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/euact-compliance/internal/core/domain"
)

func TestUpsertCreatesCollectionOnce(t *testing.T) {
	var collectionPuts, pointPuts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/eu_ai_act":
			collectionPuts.Add(1)
			var req struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode collection request: %v", err)
			}
			if req.Vectors.Size != 1536 || req.Vectors.Distance != "Cosine" {
				t.Errorf("unexpected collection config %+v", req.Vectors)
			}
			fmt.Fprint(w, `{"result": true}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/eu_ai_act/points":
			pointPuts.Add(1)
			if r.URL.Query().Get("wait") != "true" {
				t.Errorf("upserts must wait for durability")
			}
			fmt.Fprint(w, `{"result": {"status": "completed"}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	points := []domain.IndexPoint{{ID: "p1", Vector: []float32{0.1}, Text: "Article 5"}}

	for i := 0; i < 2; i++ {
		if err := client.Upsert(context.Background(), "eu_ai_act", points); err != nil {
			t.Fatalf("Upsert() %d error = %v", i, err)
		}
	}
	if collectionPuts.Load() != 1 {
		t.Fatalf("collection created %d times, want 1", collectionPuts.Load())
	}
	if pointPuts.Load() != 2 {
		t.Fatalf("expected 2 point upserts, got %d", pointPuts.Load())
	}
}

func TestQueryConvertsScoresToDistances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/eu_ai_act/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Vector      []float32 `json:"vector"`
			Limit       int       `json:"limit"`
			WithPayload bool      `json:"with_payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode search request: %v", err)
		}
		if req.Limit != 2 || !req.WithPayload {
			t.Errorf("unexpected search request %+v", req)
		}
		fmt.Fprint(w, `{"result": [
			{"score": 0.92, "payload": {"text": "Article 5", "chunk_index": 0}},
			{"score": 0.80, "payload": {"text": "Article 6", "chunk_index": 7}}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	passages, err := client.Query(context.Background(), "eu_ai_act", []float32{0.5}, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].Text != "Article 5" || math.Abs(passages[0].Distance-0.08) > 1e-9 {
		t.Fatalf("unexpected first passage %+v", passages[0])
	}
	if passages[0].Distance >= passages[1].Distance {
		t.Fatalf("better match must have smaller distance: %v vs %v", passages[0].Distance, passages[1].Distance)
	}
	if passages[1].Metadata["chunk_index"] != float64(7) {
		t.Fatalf("payload metadata lost: %+v", passages[1].Metadata)
	}
	if _, ok := passages[0].Metadata["text"]; ok {
		t.Fatalf("text must not be duplicated into metadata")
	}
}

func TestQueryAbsentCollectionYieldsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	passages, err := client.Query(context.Background(), "missing", []float32{1}, 5)
	if err != nil {
		t.Fatalf("Query() on absent collection error = %v", err)
	}
	if len(passages) != 0 {
		t.Fatalf("expected empty result, got %d passages", len(passages))
	}
}

func TestCountAbsentCollectionIsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	count, err := client.Count(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
}

func TestCountReadsExactResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/eu_ai_act/points/count" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Exact bool `json:"exact"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Exact {
			t.Errorf("count must request exact totals, err=%v req=%+v", err, req)
		}
		fmt.Fprint(w, `{"result": {"count": 128}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	count, err := client.Count(context.Background(), "eu_ai_act")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 128 {
		t.Fatalf("count = %d, want 128", count)
	}
}

func TestClearDropsCollectionAndRecreatesOnNextUpsert(t *testing.T) {
	var deletes, creates atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			deletes.Add(1)
			fmt.Fprint(w, `{"result": true}`)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/eu_ai_act":
			creates.Add(1)
			fmt.Fprint(w, `{"result": true}`)
		default:
			fmt.Fprint(w, `{"result": {}}`)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, 1536)
	points := []domain.IndexPoint{{ID: "p1", Vector: []float32{1}, Text: "x"}}

	if err := client.Upsert(context.Background(), "eu_ai_act", points); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := client.Clear(context.Background(), "eu_ai_act"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := client.Upsert(context.Background(), "eu_ai_act", points); err != nil {
		t.Fatalf("Upsert() after Clear() error = %v", err)
	}

	if deletes.Load() != 1 {
		t.Fatalf("expected 1 delete, got %d", deletes.Load())
	}
	if creates.Load() != 2 {
		t.Fatalf("collection must be recreated after clear, got %d creates", creates.Load())
	}
}
