package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/faceratio/internal/database"
)

func setupMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != "test-key" {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(req.Vector) != 5 || !req.IncludeMetadata {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		matches := []map[string]any{
			{"id": "art_david_michelangelo", "score": 1.0, "metadata": map[string]any{"name": "David of Michelangelo", "era": "renaissance"}},
			{"id": "celeb_grace_kelly", "score": 0.9998, "metadata": map[string]any{"name": "Grace Kelly"}},
			{"id": "orphan", "score": 0.99},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"matches": matches[:min(req.TopK, len(matches))]})
	})

	mux.HandleFunc("/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var req upsertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"upsertedCount": len(req.Vectors)})
	})

	mux.HandleFunc("/describe_index_stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"dimension":5,"totalVectorCount":21}`))
	})

	return httptest.NewServer(mux)
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "key"); err == nil {
		t.Error("New() accepted an empty host")
	}
	if _, err := New("faces.svc.example.io", ""); err == nil {
		t.Error("New() accepted an empty API key")
	}
	c, err := New("faces.svc.example.io", "key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.baseURL.Scheme != "https" {
		t.Errorf("scheme = %q, want https", c.baseURL.Scheme)
	}
}

func TestClient_Query(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, err := New(server.URL, "test-key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := c.Query(context.Background(), []float32{1.618, 1, 1.618, 1, 1}, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(Query()) = %d, want 3", len(got))
	}
	if got[0].ID != "art_david_michelangelo" || got[0].Score != 1.0 {
		t.Errorf("first match = %+v", got[0])
	}
	if got[0].Metadata.Era != "renaissance" {
		t.Errorf("metadata era = %q", got[0].Metadata.Era)
	}
	if got[2].Metadata.Name != "Unknown" {
		t.Errorf("missing name = %q, want Unknown", got[2].Metadata.Name)
	}
}

func TestClient_QueryUnauthorized(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, _ := New(server.URL, "wrong")
	_, err := c.Query(context.Background(), []float32{1, 1, 1, 1, 1}, 3)
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Errorf("Query() error = %v, want status 401", err)
	}
}

func TestClient_QueryHonoursContext(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()

	c, _ := New(slow.URL, "test-key")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.Query(ctx, []float32{1, 1, 1, 1, 1}, 3); err == nil {
		t.Error("Query() error = nil, want timeout")
	}
	if time.Since(start) > time.Second {
		t.Error("Query() ignored the context deadline")
	}
}

func TestClient_UpsertAndCount(t *testing.T) {
	server := setupMockServer(t)
	defer server.Close()

	c, _ := New(server.URL, "test-key")
	refs := []database.ReferenceVector{
		{ID: "a", Values: []float32{1, 1, 1, 1, 1}, Metadata: database.ReferenceMetadata{Name: "A", Category: "art"}},
		{ID: "b", Values: []float32{1.5, 1, 1.6, 1, 0.9}, Metadata: database.ReferenceMetadata{Name: "B"}},
	}
	if err := c.Upsert(context.Background(), refs); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := c.Upsert(context.Background(), nil); err != nil {
		t.Errorf("Upsert(nil) error = %v", err)
	}

	n, err := c.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 21 {
		t.Errorf("Count() = %d, want 21", n)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	in := database.ReferenceMetadata{Name: "Zendaya", Description: "Oval", Category: "female", Era: "modern"}
	m := metadataToMap(in)
	if _, ok := m["advice"]; ok {
		t.Error("empty fields should be omitted")
	}
	if got := metadataFromMap(m); got != in {
		t.Errorf("metadataFromMap() = %+v, want %+v", got, in)
	}
}
