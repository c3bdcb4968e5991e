package models

// Comment is a single top-level YouTube comment as returned by the connector.
type Comment struct {
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
}

// ClassifiedComment is one row of the comments joined with the sentiment model.
type ClassifiedComment struct {
	Comment
	Sentiment SentimentLabel `json:"sentiment"`
	// RawSentiment keeps the model output when it could not be mapped to a label
	RawSentiment string `json:"raw_sentiment,omitempty"`
}
