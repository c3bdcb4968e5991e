package platform

import (
	"testing"

	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `'abc123'`, quoteString("abc123"))
	assert.Equal(t, `'x'' OR ''1''=''1'`, quoteString("x' OR '1'='1"))
	assert.Equal(t, `'a\\b'`, quoteString(`a\b`))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`youtube_insights`", quoteIdent("youtube_insights"))
	assert.Equal(t, "`a``b`", quoteIdent("a`b"))
}

func TestCommentQuerySQL(t *testing.T) {
	got := commentQuerySQL(CommentQuery{
		Database: "mindsdb_youtube",
		Project:  "youtube_insights",
		Model:    "sentiment_classifier_model",
		VideoID:  "abc'123",
		Limit:    5,
	})

	assert.Equal(t,
		"SELECT input.comment AS comment, output.`sentiment` AS `sentiment` FROM `mindsdb_youtube`.get_comments AS input "+
			"JOIN `youtube_insights`.`sentiment_classifier_model` AS output WHERE input.youtube_video_id = 'abc''123' LIMIT 5",
		got)
}

func TestCreateDatabaseSQL(t *testing.T) {
	got, err := createDatabaseSQL(DatabaseSpec{
		Name:       "mindsdb_youtube",
		Engine:     "youtube",
		Parameters: map[string]string{"youtube_api_token": "yt-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CREATE DATABASE `mindsdb_youtube` WITH ENGINE = 'youtube', PARAMETERS = {\"youtube_api_token\":\"yt-key\"}", got)
}

func TestCreateModelSQL(t *testing.T) {
	got := createModelSQL("youtube_insights", models.ModelDescriptor{
		Name:          "text_summarization_model",
		Engine:        "openai",
		PredictTarget: "summary",
		Configuration: map[string]string{
			"prompt_template": "summarize {{comments}}",
			"api_key":         "sk-test",
		},
	})

	assert.Equal(t,
		"CREATE MODEL `youtube_insights`.`text_summarization_model` PREDICT `summary` USING engine = 'openai', "+
			"api_key = 'sk-test', prompt_template = 'summarize {{comments}}'",
		got)
	assert.Equal(t, "CREATE PROJECT `youtube_insights`", createProjectSQL("youtube_insights"))
}
