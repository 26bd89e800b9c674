package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder("", "", "text-embedding-3-small", 384)
	assert.Error(t, err)
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[3,4]}],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(server.URL+"/v1", "sk-test", "text-embedding-3-small", 2)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "quick fox")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	assert.Equal(t, "text-embedding-3-small", gotReq["model"])
	assert.Equal(t, float64(2), gotReq["dimensions"])
}

func TestOpenAIEmbedder_EmptyDataIsNull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder(server.URL+"/v1", "sk-test", "", 0)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "quick fox")
	require.NoError(t, err)
	assert.Nil(t, vec)
}

func TestL2Normalize(t *testing.T) {
	v := []float32{1, 2, 2}
	l2normalize(v)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	zero := []float32{0, 0}
	l2normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
