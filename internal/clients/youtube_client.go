package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/ytinsights/internal/models"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YOUTUBE_MAX_PAGE_SIZE is the largest page commentThreads.list accepts.
const YOUTUBE_MAX_PAGE_SIZE = 100

type YouTubeClient struct {
	Service *youtube.Service
}

func NewYouTubeClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing youtube api key")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}

	return &YouTubeClient{Service: service}, nil
}

// Comments returns up to limit top-level comments for videoID in the order
// the API returns them. A non-positive limit fetches every page.
func (y *YouTubeClient) Comments(ctx context.Context, videoID string, limit int) ([]models.Comment, error) {
	start := time.Now()
	var comments []models.Comment
	pageToken := ""

	for {
		pageSize := int64(YOUTUBE_MAX_PAGE_SIZE)
		if limit > 0 {
			if remaining := int64(limit - len(comments)); remaining < pageSize {
				pageSize = remaining
			}
		}

		call := y.Service.CommentThreads.List([]string{"snippet"}).
			VideoId(videoID).
			TextFormat("plainText").
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			slog.Error("[YouTubeClient] Failed to fetch comments",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("youtube comments for %s: %w", videoID, err)
		}

		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			comments = append(comments, models.Comment{
				VideoID: videoID,
				Text:    item.Snippet.TopLevelComment.Snippet.TextOriginal,
			})
			if limit > 0 && len(comments) >= limit {
				break
			}
		}

		if (limit > 0 && len(comments) >= limit) || resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	slog.Info("[YouTubeClient] Fetched comments",
		slog.String("video_id", videoID),
		slog.Int("count", len(comments)),
		slog.Duration("elapsed", time.Since(start)))
	return comments, nil
}
