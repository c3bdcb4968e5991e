package models

import "strings"

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// ParseSentimentLabel normalises raw model output ("Positive.", " NEGATIVE",
// "LABEL_2") into one of the three labels. Anything else is rejected.
func ParseSentimentLabel(raw string) (SentimentLabel, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(raw), ".,;:!?'\"`"))

	switch cleaned {
	case "positive", "pos", "label_2":
		return SentimentPositive, true
	case "neutral", "neu", "label_1":
		return SentimentNeutral, true
	case "negative", "neg", "label_0":
		return SentimentNegative, true
	}
	return "", false
}

// SentimentCounts always serialises all three labels.
type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (c *SentimentCounts) Add(label SentimentLabel) {
	switch label {
	case SentimentPositive:
		c.Positive++
	case SentimentNeutral:
		c.Neutral++
	case SentimentNegative:
		c.Negative++
	}
}

func (c SentimentCounts) Total() int {
	return c.Positive + c.Neutral + c.Negative
}

// TallySentiments counts labels over classified comments. Comments whose
// sentiment is not one of the three labels are skipped.
func TallySentiments(comments []ClassifiedComment) SentimentCounts {
	var counts SentimentCounts
	for _, c := range comments {
		counts.Add(c.Sentiment)
	}
	return counts
}
