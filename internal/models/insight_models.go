package models

// InsightResponse is the body of GET /api/youtube. Optional fields are only
// present when requested and their prediction succeeded.
type InsightResponse struct {
	Sentiments     SentimentCounts `json:"sentiments"`
	CommentSummary string          `json:"comment_summary,omitempty"`
	Recommendation string          `json:"recommendation,omitempty"`
	Keywords       string          `json:"keywords,omitempty"`
}
