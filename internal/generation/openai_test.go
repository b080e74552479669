package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("QABOT_TEST_GEN_KEY", "k")
	return srv
}

func TestOpenAIGenerator_Chat(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Paris \n"},"finish_reason":"stop"}]}`))
	})

	g, err := NewOpenAIGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "QABOT_TEST_GEN_KEY", Model: "gpt-test"})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Paris", out)
	assert.Equal(t, "gpt-test", g.Model())
}

func TestOpenAIGenerator_Completion(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"text_completion","choices":[{"index":0,"text":" Berlin","finish_reason":"stop"}]}`))
	})

	g, err := NewOpenAIGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "QABOT_TEST_GEN_KEY", Model: "flan-t5", Mode: ModeCompletion})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", out)
}

func TestOpenAIGenerator_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	g, err := NewOpenAIGenerator(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "QABOT_TEST_GEN_KEY"})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewOpenAIGenerator_Validation(t *testing.T) {
	t.Setenv("QABOT_TEST_GEN_KEY", "")
	_, err := NewOpenAIGenerator(Config{APIKeyEnv: "QABOT_TEST_GEN_KEY"})
	assert.Error(t, err)

	t.Setenv("QABOT_TEST_GEN_KEY", "k")
	_, err = NewOpenAIGenerator(Config{APIKeyEnv: "QABOT_TEST_GEN_KEY", Mode: "beam"})
	assert.Error(t, err)
}
