package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
	"github.com/spacesedan/ytinsights/internal/models"
)

// VADER_THRESHOLD is the compound score past which a comment stops being neutral.
const VADER_THRESHOLD = 0.20

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text
	input = urlPattern.ReplaceAllString(input, "")

	return strings.Join(strings.Fields(input), " ")
}

// ConvertMarkdownToText flattens markdown into a single line of plain text.
// Comments often contain *emphasis* and links which skew the lexicon scores.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := tagPattern.ReplaceAllString(string(output), " ")

	return strings.Join(strings.Fields(plainText), " ")
}

// Classify scores text with VADER and buckets the compound score.
func Classify(text string) (float64, models.SentimentLabel) {
	plainText := ConvertMarkdownToText(text)

	score := analyzer.PolarityScores(plainText).Compound

	var label models.SentimentLabel
	if score >= VADER_THRESHOLD {
		label = models.SentimentPositive
	} else if score <= -VADER_THRESHOLD {
		label = models.SentimentNegative
	} else {
		label = models.SentimentNeutral
	}

	return score, label
}
