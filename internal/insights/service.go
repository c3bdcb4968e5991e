// Package insights turns the comments of a video into sentiment counts and
// optional generated text.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/platform"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidRequest = errors.New("invalid request")

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Request struct {
	VideoID string
	// Limit is the number of comments to analyze, 0 selects the default.
	Limit int

	CommentSummary bool
	Recommendation bool
	Keywords       bool
}

// ModelProvisioner makes a model available before it is used.
type ModelProvisioner interface {
	EnsureModel(ctx context.Context, project string, desc models.ModelDescriptor) (models.ModelDescriptor, error)
}

type Options struct {
	Project  string
	Database string

	DefaultLimit int
	// MaxLimit caps the requested limit, 0 disables the cap.
	MaxLimit int
}

type Service struct {
	platform    platform.Platform
	provisioner ModelProvisioner
	catalog     Catalog
	opts        Options
}

func NewService(p platform.Platform, prov ModelProvisioner, catalog Catalog, opts Options) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	return &Service{
		platform:    p,
		provisioner: prov,
		catalog:     catalog,
		opts:        opts,
	}
}

// task is one optional prediction over the merged comment text.
type task struct {
	field string
	spec  ModelSpec
}

func (s *Service) tasks(req Request) []task {
	var tasks []task
	if req.CommentSummary {
		tasks = append(tasks, task{field: "comment_summary", spec: s.catalog.Summary})
	}
	if req.Recommendation {
		tasks = append(tasks, task{field: "recommendation", spec: s.catalog.Recommendation})
	}
	if req.Keywords {
		tasks = append(tasks, task{field: "keywords", spec: s.catalog.Keywords})
	}
	return tasks
}

// limit validates the requested limit and applies the default and the cap.
func (s *Service) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrInvalidRequest)
	case requested == 0:
		requested = s.opts.DefaultLimit
	}
	if s.opts.MaxLimit > 0 && requested > s.opts.MaxLimit {
		requested = s.opts.MaxLimit
	}
	return requested, nil
}

// Analyze classifies up to req.Limit comments and runs the requested
// predictions concurrently. A failed prediction is logged and its field left
// out of the response.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.InsightResponse, error) {
	start := time.Now()

	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: youtube_video_id is required", ErrInvalidRequest)
	}
	if !videoIDPattern.MatchString(videoID) {
		return nil, fmt.Errorf("%w: malformed youtube_video_id", ErrInvalidRequest)
	}
	limit, err := s.limit(req.Limit)
	if err != nil {
		return nil, err
	}

	sentimentModel, err := s.provisioner.EnsureModel(ctx, s.opts.Project, s.catalog.Sentiment.Descriptor)
	if err != nil {
		return nil, fmt.Errorf("sentiment model: %w", err)
	}

	comments, err := s.platform.ClassifyComments(ctx, platform.CommentQuery{
		Database: s.opts.Database,
		Project:  s.opts.Project,
		Model:    sentimentModel.Name,
		Target:   sentimentModel.PredictTarget,
		VideoID:  videoID,
		Limit:    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying comments of %s: %w", videoID, err)
	}

	resp := &models.InsightResponse{Sentiments: models.TallySentiments(comments)}

	tasks := s.tasks(req)
	if len(comments) == 0 || len(tasks) == 0 {
		logAnalyzed(videoID, resp.Sentiments, start)
		return resp, nil
	}

	merged := MergeComments(comments)

	// each task owns one slot, read only after Wait
	results := make([]string, len(tasks))
	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			out, err := s.predict(ctx, t.spec, merged)
			if err != nil {
				slog.Warn("[Insights] Prediction failed, omitting field",
					slog.String("field", t.field),
					slog.String("model", t.spec.Descriptor.Name),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = out
			return nil
		})
	}
	// tasks never fail the group, their errors are logged above
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("post-processing %s: %w", videoID, err)
	}

	for i, t := range tasks {
		switch t.field {
		case "comment_summary":
			resp.CommentSummary = results[i]
		case "recommendation":
			resp.Recommendation = results[i]
		case "keywords":
			resp.Keywords = results[i]
		}
	}

	logAnalyzed(videoID, resp.Sentiments, start)
	return resp, nil
}

func (s *Service) predict(ctx context.Context, spec ModelSpec, text string) (string, error) {
	model, err := s.provisioner.EnsureModel(ctx, s.opts.Project, spec.Descriptor)
	if err != nil {
		return "", err
	}
	return s.platform.Predict(ctx, s.opts.Project, model, spec.input(text))
}

// MergeComments joins comment texts with a single space in query order.
func MergeComments(comments []models.ClassifiedComment) string {
	texts := make([]string, len(comments))
	for i, c := range comments {
		texts[i] = c.Text
	}
	return strings.Join(texts, " ")
}

func logAnalyzed(videoID string, counts models.SentimentCounts, start time.Time) {
	slog.Info("[Insights] Video analyzed",
		slog.String("video_id", videoID),
		slog.Int("classified", counts.Total()),
		slog.Duration("elapsed", time.Since(start)))
}
