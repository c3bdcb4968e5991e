package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHuggingFace(t *testing.T, handler http.HandlerFunc) *HuggingFaceClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHuggingFaceClient(srv.URL, "hf-key", 5*time.Second)
}

func TestHuggingFaceClassifyPicksTopLabel(t *testing.T) {
	client := newTestHuggingFace(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/cardiffnlp/twitter-roberta-base-sentiment-latest", r.URL.Path)
		assert.Equal(t, "Bearer hf-key", r.Header.Get("Authorization"))

		var body hfInferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "love it", body.Inputs)

		w.Write([]byte(`[[{"label":"neutral","score":0.1},{"label":"positive","score":0.85},{"label":"negative","score":0.05}]]`))
	})

	label, err := client.Classify(context.Background(), "cardiffnlp/twitter-roberta-base-sentiment-latest", "love it")
	require.NoError(t, err)
	assert.Equal(t, "positive", label)
}

func TestHuggingFaceClassifyFlatResponse(t *testing.T) {
	client := newTestHuggingFace(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"label":"LABEL_0","score":0.7},{"label":"LABEL_2","score":0.3}]`))
	})

	label, err := client.Classify(context.Background(), "m", "awful")
	require.NoError(t, err)
	assert.Equal(t, "LABEL_0", label)
}

func TestHuggingFaceGenerate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"summarization", `[{"summary_text":"Viewers liked it."}]`, "Viewers liked it."},
		{"text2text", `[{"generated_text":"Watch it."}]`, "Watch it."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestHuggingFace(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			got, err := client.Generate(context.Background(), "m", "text")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHuggingFaceErrorStatus(t *testing.T) {
	client := newTestHuggingFace(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading"}`))
	})

	_, err := client.Generate(context.Background(), "m", "text")
	assert.ErrorContains(t, err, "status 503")
}
