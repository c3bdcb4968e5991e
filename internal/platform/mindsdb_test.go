package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spacesedan/ytinsights/internal/clients"
	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlatform(t *testing.T, handler http.HandlerFunc) *MindsDB {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := clients.NewMindsDBClient(srv.URL, "user@example.com", "secret", 5*time.Second)
	require.NoError(t, err)
	return NewMindsDB(client)
}

func decodeQuery(t *testing.T, r *http.Request) string {
	t.Helper()
	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body.Query
}

func TestMindsDBClassifyComments(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.Contains(t, q, "WHERE input.youtube_video_id = 'abc123' LIMIT 5")

		w.Write([]byte(`{"type":"table","column_names":["comment","sentiment"],"data":[
			["love it","positive"],["so good","Positive."],["bad","negative"],["ok","neutral"],["wow","positive"],["??","mixed"]]}`))
	})

	got, err := m.ClassifyComments(context.Background(), CommentQuery{
		Database: "mindsdb_youtube",
		Project:  "youtube_insights",
		Model:    "sentiment_classifier_model",
		VideoID:  "abc123",
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.Equal(t, "love it", got[0].Text)
	assert.Equal(t, models.SentimentPositive, got[1].Sentiment)
	assert.Equal(t, models.SentimentLabel(""), got[5].Sentiment)
	assert.Equal(t, "mixed", got[5].RawSentiment)

	counts := models.TallySentiments(got)
	assert.Equal(t, models.SentimentCounts{Positive: 3, Neutral: 1, Negative: 1}, counts)
}

func TestMindsDBGetModelNotFound(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Model with name recommendation_model not found"}`))
	})

	_, err := m.GetModel(context.Background(), "youtube_insights", "recommendation_model")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMindsDBGetModelDescriptor(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"recommendation_model","status":"training","predict":"recommendation",
			"engine":"openai","training_options":{"using":{"prompt_template":"old","max_tokens":100}}}`))
	})

	desc, err := m.GetModel(context.Background(), "youtube_insights", "recommendation_model")
	require.NoError(t, err)

	assert.Equal(t, models.ModelStatusTraining, desc.Status)
	assert.Equal(t, "recommendation", desc.PredictTarget)
	assert.Equal(t, "old", desc.Configuration["prompt_template"])
	assert.Equal(t, "100", desc.Configuration["max_tokens"])
}

func TestMindsDBCreateProjectAlreadyExists(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CREATE PROJECT `youtube_insights`", decodeQuery(t, r))
		w.Write([]byte(`{"type":"error","error_code":0,"error_message":"Project already exists: youtube_insights"}`))
	})

	_, err := m.CreateProject(context.Background(), "youtube_insights")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMindsDBCreateModel(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.True(t, strings.HasPrefix(q, "CREATE MODEL `youtube_insights`.`text_summarization_model` PREDICT `summary`"))
		w.Write([]byte(`{"type":"ok"}`))
	})

	desc, err := m.CreateModel(context.Background(), "youtube_insights", models.ModelDescriptor{
		Name:          "text_summarization_model",
		Engine:        "openai",
		PredictTarget: "summary",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModelStatusGenerating, desc.Status)
}

func TestMindsDBPredict(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"comments":"great video thanks","summary":"Great video"}]`))
	})

	model := models.ModelDescriptor{Name: "text_summarization_model", PredictTarget: "summary"}
	got, err := m.Predict(context.Background(), "youtube_insights", model, map[string]string{"comments": "great video thanks"})
	require.NoError(t, err)
	assert.Equal(t, "Great video", got)

	model.PredictTarget = "keywords"
	_, err = m.Predict(context.Background(), "youtube_insights", model, map[string]string{"comments": "x"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestMindsDBPingUnavailable(t *testing.T) {
	m := newTestPlatform(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.ErrorIs(t, m.Ping(context.Background()), ErrUnavailable)
}
