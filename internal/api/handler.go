package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/ytinsights/internal/insights"
	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/platform"
	"github.com/spacesedan/ytinsights/internal/provisioning"
)

type Analyzer interface {
	Analyze(ctx context.Context, req insights.Request) (*models.InsightResponse, error)
}

type InsightsHandler struct {
	analyzer Analyzer
	timeout  time.Duration
}

func NewInsightsHandler(analyzer Analyzer, timeout time.Duration) *InsightsHandler {
	return &InsightsHandler{analyzer: analyzer, timeout: timeout}
}

func (h *InsightsHandler) GetYouTubeInsights(c *gin.Context) {
	req := insights.Request{
		VideoID:        c.Query("youtube_video_id"),
		CommentSummary: c.Query("comment_summary") == "true",
		Recommendation: c.Query("recommendation") == "true",
		Keywords:       c.Query("keywords") == "true",
	}

	if raw, ok := c.GetQuery("limit"); ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		req.Limit = limit
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.analyzer.Analyze(ctx, req)
	if err != nil {
		status := statusFor(err)
		slog.Error("[InsightsHandler] Failed to analyze video",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("video_id", req.VideoID),
			slog.Int("status", status),
			slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": publicMessage(status, err)})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, insights.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, provisioning.ErrTrainingTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, platform.ErrUnavailable),
		errors.Is(err, platform.ErrRejected),
		errors.Is(err, platform.ErrNotFound),
		errors.Is(err, provisioning.ErrTrainingFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage keeps upstream error details out of 5xx responses.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusGatewayTimeout:
		return "timed out waiting for the ml platform"
	case http.StatusBadGateway:
		return "the ml platform could not process the request"
	default:
		return "internal server error"
	}
}
