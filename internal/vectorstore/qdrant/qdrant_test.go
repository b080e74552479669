package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qabot/internal/domain"
)

// fakeQdrant records the requests it receives and serves canned responses.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	requests []string
	upserted []map[string]any
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	switch {
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodGet:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodPut:
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.URL.Path == "/collections/docs" && r.Method == http.MethodDelete:
		f.exists = false
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.URL.Path == "/collections/docs/points" && r.Method == http.MethodPut:
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserted = append(f.upserted, body.Points...)
		_, _ = w.Write([]byte(`{"result":{}}`))
	case r.URL.Path == "/collections/docs/points/search":
		_, _ = w.Write([]byte(`{"result":[{"score":0.8,"payload":{"chunk_id":"c1","index":1,"start":7,"text":"hello"}}]}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (f *fakeQdrant) state() (bool, []string, []map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exists, append([]string(nil), f.requests...), append([]map[string]any(nil), f.upserted...)
}

func TestStorage_Lifecycle(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: srv.URL, Collection: "docs"})
	require.NoError(t, s.Init(ctx, 2))
	exists, _, _ := fake.state()
	assert.True(t, exists)

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ID: "c1", Index: 1, Text: "hello"}}, [][]float32{{1, 0}}))
	_, _, upserted := fake.state()
	require.Len(t, upserted, 1)
	assert.Equal(t, "c1", upserted[0]["id"])
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{ID: "c2"}}, [][]float32{{1}}))

	res, err := s.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, domain.Chunk{ID: "c1", Index: 1, Start: 7, Text: "hello"}, res[0].Chunk)
	assert.InDelta(t, 0.8, res[0].Score, 1e-9)

	require.NoError(t, s.Clear(ctx))
	exists, requests, _ := fake.state()
	assert.True(t, exists, "collection recreated after clear")
	assert.Contains(t, requests, "DELETE /collections/docs")
}

func TestStorage_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "docs"})
	assert.Error(t, s.Init(context.Background(), 2))
}
