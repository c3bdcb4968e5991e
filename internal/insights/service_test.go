package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spacesedan/ytinsights/config"
	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/platform"
	"github.com/spacesedan/ytinsights/internal/provisioning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	comments []models.Comment
}

func (s *stubSource) Comments(_ context.Context, videoID string, limit int) ([]models.Comment, error) {
	out := s.comments
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// stubChat plays every prompt based model. Sentiment prompts are answered
// from labels keyed by comment text.
type stubChat struct {
	mu      sync.Mutex
	labels  map[string]string
	answers map[string]string
	fail    map[string]bool
	calls   []string
}

func (s *stubChat) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()

	for text, label := range s.labels {
		if prompt == platform.RenderTemplate(sentimentPrompt, map[string]string{"comment": text}) {
			return label, nil
		}
	}
	for marker := range s.fail {
		if strings.Contains(prompt, marker) {
			return "", errors.New("model overloaded")
		}
	}
	for marker, answer := range s.answers {
		if strings.Contains(prompt, marker) {
			return answer, nil
		}
	}
	return "", errors.New("unexpected prompt")
}

func (s *stubChat) count(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c, marker) {
			n++
		}
	}
	return n
}

func videoComments(texts ...string) []models.Comment {
	out := make([]models.Comment, len(texts))
	for i, t := range texts {
		out[i] = models.Comment{VideoID: "abc123", Text: t}
	}
	return out
}

func newTestService(t *testing.T, chat *stubChat, source *stubSource, opts Options) *Service {
	t.Helper()

	direct := platform.NewDirect(platform.DirectOptions{
		Chat:    chat,
		Workers: 4,
		Sources: func(context.Context, map[string]string) (platform.CommentSource, error) {
			return source, nil
		},
	})
	prov := provisioning.NewProvisioner(direct, provisioning.Options{PollInterval: 5 * time.Millisecond, TrainingTimeout: time.Second})

	ctx := context.Background()
	_, err := prov.EnsureProject(ctx, "youtube_insights")
	require.NoError(t, err)
	_, err = prov.EnsureDatabase(ctx, platform.DatabaseSpec{Name: "mindsdb_youtube", Engine: platform.EngineYouTube})
	require.NoError(t, err)

	catalog, err := NewCatalog(&config.Config{ModelProvider: config.ProviderOpenAI, OpenAIModel: "gpt-4o-mini", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)

	opts.Project = "youtube_insights"
	opts.Database = "mindsdb_youtube"
	return NewService(direct, prov, catalog, opts)
}

func TestAnalyzeTalliesSentiments(t *testing.T) {
	chat := &stubChat{labels: map[string]string{
		"one": "positive", "two": "positive", "three": "negative", "four": "neutral", "five": "positive",
		"six": "negative", "seven": "negative",
	}}
	source := &stubSource{comments: videoComments("one", "two", "three", "four", "five", "six", "seven")}
	svc := newTestService(t, chat, source, Options{})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", Limit: 5})
	require.NoError(t, err)

	assert.Equal(t, models.SentimentCounts{Positive: 3, Neutral: 1, Negative: 1}, resp.Sentiments)
	assert.Empty(t, resp.CommentSummary)
	assert.Empty(t, resp.Recommendation)
	assert.Empty(t, resp.Keywords)
}

func TestAnalyzeLimit(t *testing.T) {
	labels := map[string]string{"a": "positive", "b": "neutral", "c": "negative"}
	source := &stubSource{comments: videoComments("a", "b", "c")}

	tests := []struct {
		name  string
		limit int
		opts  Options
		want  int
	}{
		{"limit below available", 2, Options{}, 2},
		{"limit above available", 50, Options{}, 3},
		{"default limit", 0, Options{DefaultLimit: 1}, 1},
		{"capped", 3, Options{MaxLimit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, &stubChat{labels: labels}, source, tt.opts)

			resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Sentiments.Total())
		})
	}
}

func TestAnalyzeDefaultConfigHasNoLimitCap(t *testing.T) {
	t.Setenv("PLATFORM", "direct")
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("SENTIMENT_ENGINE", "")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DEFAULT_COMMENT_LIMIT", "")
	t.Setenv("MAX_COMMENT_LIMIT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	labels := make(map[string]string, 200)
	texts := make([]string, 200)
	for i := range texts {
		texts[i] = fmt.Sprintf("comment %d", i)
		labels[texts[i]] = "positive"
	}
	svc := newTestService(t, &stubChat{labels: labels}, &stubSource{comments: videoComments(texts...)},
		Options{DefaultLimit: cfg.DefaultCommentLimit, MaxLimit: cfg.MaxCommentLimit})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", Limit: 150})
	require.NoError(t, err)
	assert.Equal(t, 150, resp.Sentiments.Total())
	assert.Equal(t, 150, resp.Sentiments.Positive)
}

func TestAnalyzeCommentSummary(t *testing.T) {
	chat := &stubChat{
		labels:  map[string]string{"great": "positive", "video": "neutral", "thanks": "positive"},
		answers: map[string]string{"comments:great video thanks using full sentences": "Great video"},
	}
	svc := newTestService(t, chat, &stubSource{comments: videoComments("great", "video", "thanks")}, Options{})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", CommentSummary: true})
	require.NoError(t, err)

	assert.Equal(t, "Great video", resp.CommentSummary)
	assert.Empty(t, resp.Recommendation)
}

func TestAnalyzeAllFlags(t *testing.T) {
	chat := &stubChat{
		labels: map[string]string{"nice": "positive"},
		answers: map[string]string{
			"informative summary": "People liked it",
			"recommendation":      "Watch it",
			"extract the keywords": "nice",
		},
	}
	svc := newTestService(t, chat, &stubSource{comments: videoComments("nice")}, Options{})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", CommentSummary: true, Recommendation: true, Keywords: true})
	require.NoError(t, err)

	assert.Equal(t, "People liked it", resp.CommentSummary)
	assert.Equal(t, "Watch it", resp.Recommendation)
	assert.Equal(t, "nice", resp.Keywords)
}

func TestAnalyzeOmitsFailedPrediction(t *testing.T) {
	chat := &stubChat{
		labels:  map[string]string{"nice": "positive"},
		answers: map[string]string{"informative summary": "People liked it"},
		fail:    map[string]bool{"compelling recommendation": true},
	}
	svc := newTestService(t, chat, &stubSource{comments: videoComments("nice")}, Options{})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", CommentSummary: true, Recommendation: true})
	require.NoError(t, err)

	assert.Equal(t, "People liked it", resp.CommentSummary)
	assert.Empty(t, resp.Recommendation)
	assert.Equal(t, 1, resp.Sentiments.Positive)
}

func TestAnalyzeNoComments(t *testing.T) {
	chat := &stubChat{answers: map[string]string{"informative summary": "nothing"}}
	svc := newTestService(t, chat, &stubSource{}, Options{})

	resp, err := svc.Analyze(context.Background(), Request{VideoID: "abc123", CommentSummary: true})
	require.NoError(t, err)

	assert.Equal(t, models.SentimentCounts{}, resp.Sentiments)
	assert.Empty(t, resp.CommentSummary)
	assert.Zero(t, chat.count("informative summary"))
}

func TestAnalyzeInvalidRequest(t *testing.T) {
	svc := newTestService(t, &stubChat{}, &stubSource{}, Options{})

	tests := []struct {
		name string
		req  Request
	}{
		{"missing video id", Request{}},
		{"blank video id", Request{VideoID: "   "}},
		{"malformed video id", Request{VideoID: "abc' OR 1=1 --"}},
		{"negative limit", Request{VideoID: "abc123", Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestAnalyzeSentimentFailure(t *testing.T) {
	chat := &stubChat{}
	svc := newTestService(t, chat, &stubSource{comments: videoComments("unknown")}, Options{})

	_, err := svc.Analyze(context.Background(), Request{VideoID: "abc123"})
	assert.ErrorIs(t, err, platform.ErrUnavailable)
}

func TestMergeComments(t *testing.T) {
	got := MergeComments([]models.ClassifiedComment{
		{Comment: models.Comment{Text: "great"}},
		{Comment: models.Comment{Text: "video"}},
		{Comment: models.Comment{Text: "thanks"}},
	})
	assert.Equal(t, "great video thanks", got)
}

func TestNewCatalog(t *testing.T) {
	openai, err := NewCatalog(&config.Config{ModelProvider: config.ProviderOpenAI, OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "sentiment", openai.Sentiment.Descriptor.PredictTarget)
	assert.Contains(t, openai.Summary.Descriptor.Configuration["prompt_template"], "{{comments}}")

	hf, err := NewCatalog(&config.Config{ModelProvider: config.ProviderHuggingFace, SentimentEngine: config.SentimentEngineVADER})
	require.NoError(t, err)
	assert.Equal(t, platform.EngineVADER, hf.Sentiment.Descriptor.Engine)
	assert.Equal(t, platform.TaskSummarization, hf.Summary.Descriptor.Configuration["task"])
	assert.Equal(t, "Please extract the keywords from the comments below. Comments: nice", hf.Keywords.input("nice")["comments"])

	_, err = NewCatalog(&config.Config{ModelProvider: "bard"})
	assert.Error(t, err)
}
