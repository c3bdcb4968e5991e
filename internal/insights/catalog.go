package insights

import (
	"fmt"

	"github.com/spacesedan/ytinsights/config"
	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/platform"
)

const (
	SentimentModelName      = "sentiment_classifier_model"
	SummarizationModelName  = "text_summarization_model"
	RecommendationModelName = "recommendation_model"
	KeywordModelName        = "keyword_extraction_model"

	commentColumn  = "comment"
	commentsColumn = "comments"
)

const (
	sentimentPrompt      = "describe the sentiment of the comment strictly as 'positive', 'neutral', or 'negative'.'I love the product':positive, 'It is a scam':negative '{{comment}}.':"
	summaryPrompt        = "provide an informative summary of the comments comments:{{comments}} using full sentences"
	recommendationPrompt = "Please analyze the comments below and generate a compelling recommendation for the video. Comments:{{comments}}"
	keywordPrompt        = "Please extract the keywords from the comments below. Comments:{{comments}}"
)

const (
	hfSentimentModel     = "cardiffnlp/twitter-roberta-base-sentiment-latest"
	hfSummarizationModel = "sshleifer/distilbart-cnn-12-6"
	hfGenerationModel    = "google/flan-t5-large"
)

// ModelSpec is a model definition plus how a row of input is built for it.
type ModelSpec struct {
	Descriptor  models.ModelDescriptor
	InputColumn string
	// InputPrefix is prepended to the input for instruction tuned models
	// that take no prompt template.
	InputPrefix string
}

func (s ModelSpec) input(text string) map[string]string {
	return map[string]string{s.InputColumn: s.InputPrefix + text}
}

type Catalog struct {
	Sentiment      ModelSpec
	Summary        ModelSpec
	Recommendation ModelSpec
	Keywords       ModelSpec
}

// NewCatalog returns the model definitions for the configured provider.
func NewCatalog(cfg *config.Config) (Catalog, error) {
	var c Catalog

	switch cfg.ModelProvider {
	case config.ProviderOpenAI:
		prompt := func(name, target, tmpl, column string) ModelSpec {
			return ModelSpec{
				Descriptor: models.ModelDescriptor{
					Name:          name,
					Engine:        platform.EngineOpenAI,
					PredictTarget: target,
					Configuration: map[string]string{
						"prompt_template": tmpl,
						"model_name":      cfg.OpenAIModel,
						"api_key":         cfg.OpenAIAPIKey,
					},
				},
				InputColumn: column,
			}
		}
		c = Catalog{
			Sentiment:      prompt(SentimentModelName, "sentiment", sentimentPrompt, commentColumn),
			Summary:        prompt(SummarizationModelName, "summary", summaryPrompt, commentsColumn),
			Recommendation: prompt(RecommendationModelName, "recommendation", recommendationPrompt, commentsColumn),
			Keywords:       prompt(KeywordModelName, "keywords", keywordPrompt, commentsColumn),
		}

	case config.ProviderHuggingFace:
		hosted := func(name, target, model, task, column, prefix string) ModelSpec {
			return ModelSpec{
				Descriptor: models.ModelDescriptor{
					Name:          name,
					Engine:        platform.EngineHuggingFace,
					PredictTarget: target,
					Configuration: map[string]string{
						"model_name":   model,
						"task":         task,
						"input_column": column,
					},
				},
				InputColumn: column,
				InputPrefix: prefix,
			}
		}
		c = Catalog{
			Sentiment: hosted(SentimentModelName, "sentiment", hfSentimentModel, platform.TaskTextClassification, commentColumn, ""),
			Summary:   hosted(SummarizationModelName, "summary", hfSummarizationModel, platform.TaskSummarization, commentsColumn, ""),
			Recommendation: hosted(RecommendationModelName, "recommendation", hfGenerationModel, platform.TaskText2Text, commentsColumn,
				"Please analyze the comments below and generate a compelling recommendation for the video. Comments: "),
			Keywords: hosted(KeywordModelName, "keywords", hfGenerationModel, platform.TaskText2Text, commentsColumn,
				"Please extract the keywords from the comments below. Comments: "),
		}

	default:
		return Catalog{}, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}

	if cfg.SentimentEngine == config.SentimentEngineVADER {
		c.Sentiment = ModelSpec{
			Descriptor: models.ModelDescriptor{
				Name:          SentimentModelName,
				Engine:        platform.EngineVADER,
				PredictTarget: "sentiment",
				Configuration: map[string]string{"input_column": commentColumn},
			},
			InputColumn: commentColumn,
		}
	}

	return c, nil
}
