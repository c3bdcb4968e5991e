package platform

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/sentiment"
	"golang.org/x/sync/errgroup"
)

const (
	EngineOpenAI      = "openai"
	EngineHuggingFace = "huggingface"
	EngineVADER       = "vader"

	// EngineYouTube is the only connector the direct platform can create.
	EngineYouTube = "youtube"

	TaskTextClassification = "text-classification"
	TaskSummarization      = "summarization"
	TaskText2Text          = "text2text-generation"
)

// ChatCompleter answers a rendered prompt.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HostedInference runs models hosted on the Hugging Face Inference API.
type HostedInference interface {
	Classify(ctx context.Context, model, text string) (string, error)
	Generate(ctx context.Context, model, text string) (string, error)
}

// CommentSource lists top-level comments of a video.
type CommentSource interface {
	Comments(ctx context.Context, videoID string, limit int) ([]models.Comment, error)
}

// CommentSourceFactory builds the connector for a database from its
// creation parameters.
type CommentSourceFactory func(ctx context.Context, params map[string]string) (CommentSource, error)

type DirectOptions struct {
	Chat      ChatCompleter
	Inference HostedInference
	Sources   CommentSourceFactory
	// Workers bounds concurrent classifications per query.
	Workers int
}

type directDatabase struct {
	db     Database
	source CommentSource
}

// Direct runs the connector and the model engines in process. Resources live
// in memory and are gone after a restart, so provisioning recreates them.
type Direct struct {
	opts DirectOptions

	mu        sync.RWMutex
	projects  map[string]Project
	databases map[string]directDatabase
	models    map[string]models.ModelDescriptor
}

func NewDirect(opts DirectOptions) *Direct {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Direct{
		opts:      opts,
		projects:  make(map[string]Project),
		databases: make(map[string]directDatabase),
		models:    make(map[string]models.ModelDescriptor),
	}
}

func modelKey(project, name string) string {
	return project + "." + name
}

func (d *Direct) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (d *Direct) GetProject(_ context.Context, name string) (Project, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.projects[name]
	if !ok {
		return Project{}, fmt.Errorf("project %s: %w", name, ErrNotFound)
	}
	return p, nil
}

func (d *Direct) CreateProject(_ context.Context, name string) (Project, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[name]; ok {
		return Project{}, fmt.Errorf("project %s: %w", name, ErrAlreadyExists)
	}
	p := Project{Name: name}
	d.projects[name] = p
	slog.Info("[Direct] Project created", slog.String("project", name))
	return p, nil
}

func (d *Direct) GetDatabase(_ context.Context, name string) (Database, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	db, ok := d.databases[name]
	if !ok {
		return Database{}, fmt.Errorf("database %s: %w", name, ErrNotFound)
	}
	return db.db, nil
}

func (d *Direct) CreateDatabase(ctx context.Context, spec DatabaseSpec) (Database, error) {
	if spec.Engine != EngineYouTube {
		return Database{}, fmt.Errorf("%w: unsupported database engine %q", ErrRejected, spec.Engine)
	}
	if d.opts.Sources == nil {
		return Database{}, fmt.Errorf("%w: no comment source configured", ErrRejected)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.databases[spec.Name]; ok {
		return Database{}, fmt.Errorf("database %s: %w", spec.Name, ErrAlreadyExists)
	}

	source, err := d.opts.Sources(ctx, spec.Parameters)
	if err != nil {
		return Database{}, fmt.Errorf("%w: database %s: %w", ErrRejected, spec.Name, err)
	}

	db := Database{Name: spec.Name, Engine: spec.Engine}
	d.databases[spec.Name] = directDatabase{db: db, source: source}
	slog.Info("[Direct] Database created",
		slog.String("database", spec.Name),
		slog.String("engine", spec.Engine))
	return db, nil
}

func (d *Direct) GetModel(_ context.Context, project, name string) (models.ModelDescriptor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.models[modelKey(project, name)]
	if !ok {
		return models.ModelDescriptor{}, fmt.Errorf("model %s.%s: %w", project, name, ErrNotFound)
	}
	return m, nil
}

func (d *Direct) CreateModel(_ context.Context, project string, desc models.ModelDescriptor) (models.ModelDescriptor, error) {
	if err := d.checkEngine(desc); err != nil {
		return models.ModelDescriptor{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[project]; !ok {
		return models.ModelDescriptor{}, fmt.Errorf("project %s: %w", project, ErrNotFound)
	}
	key := modelKey(project, desc.Name)
	if _, ok := d.models[key]; ok {
		return models.ModelDescriptor{}, fmt.Errorf("model %s: %w", key, ErrAlreadyExists)
	}

	// nothing to train, engines are called at prediction time
	created := desc
	created.Configuration = make(map[string]string, len(desc.Configuration))
	for k, v := range desc.Configuration {
		created.Configuration[k] = v
	}
	created.Status = models.ModelStatusComplete
	d.models[key] = created

	slog.Info("[Direct] Model created",
		slog.String("model", key),
		slog.String("engine", desc.Engine))
	return created, nil
}

func (d *Direct) checkEngine(desc models.ModelDescriptor) error {
	switch desc.Engine {
	case EngineOpenAI:
		if d.opts.Chat == nil {
			return fmt.Errorf("%w: engine %q is not configured", ErrRejected, desc.Engine)
		}
		if desc.Configuration["prompt_template"] == "" {
			return fmt.Errorf("%w: model %s needs a prompt_template", ErrRejected, desc.Name)
		}
	case EngineHuggingFace:
		if d.opts.Inference == nil {
			return fmt.Errorf("%w: engine %q is not configured", ErrRejected, desc.Engine)
		}
		if desc.Configuration["model_name"] == "" {
			return fmt.Errorf("%w: model %s needs a model_name", ErrRejected, desc.Name)
		}
	case EngineVADER:
	default:
		return fmt.Errorf("%w: unsupported model engine %q", ErrRejected, desc.Engine)
	}
	return nil
}

func (d *Direct) ClassifyComments(ctx context.Context, q CommentQuery) ([]models.ClassifiedComment, error) {
	start := time.Now()

	d.mu.RLock()
	db, dbOK := d.databases[q.Database]
	model, modelOK := d.models[modelKey(q.Project, q.Model)]
	d.mu.RUnlock()

	if !dbOK {
		return nil, fmt.Errorf("database %s: %w", q.Database, ErrNotFound)
	}
	if !modelOK {
		return nil, fmt.Errorf("model %s.%s: %w", q.Project, q.Model, ErrNotFound)
	}

	comments, err := db.source.Comments(ctx, q.VideoID, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	out := make([]models.ClassifiedComment, len(comments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for i, c := range comments {
		g.Go(func() error {
			raw, err := d.run(gctx, model, map[string]string{"comment": c.Text})
			if err != nil {
				return err
			}
			out[i] = models.ClassifiedComment{Comment: c}
			if label, ok := models.ParseSentimentLabel(raw); ok {
				out[i].Sentiment = label
			} else {
				out[i].RawSentiment = raw
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		slog.Error("[Direct] Failed to classify comments",
			slog.String("video_id", q.VideoID),
			slog.String("error", err.Error()))
		return nil, err
	}

	slog.Info("[Direct] Classified comments",
		slog.String("video_id", q.VideoID),
		slog.Int("count", len(out)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (d *Direct) Predict(ctx context.Context, project string, model models.ModelDescriptor, input map[string]string) (string, error) {
	stored, err := d.GetModel(ctx, project, model.Name)
	if err != nil {
		return "", err
	}
	return d.run(ctx, stored, input)
}

// run evaluates one row with the model's engine.
func (d *Direct) run(ctx context.Context, model models.ModelDescriptor, input map[string]string) (string, error) {
	var (
		out string
		err error
	)

	switch model.Engine {
	case EngineOpenAI:
		out, err = d.opts.Chat.Complete(ctx, RenderTemplate(model.Configuration["prompt_template"], input))
	case EngineHuggingFace:
		text := inputText(model, input)
		if model.Configuration["task"] == TaskTextClassification {
			out, err = d.opts.Inference.Classify(ctx, model.Configuration["model_name"], text)
		} else {
			out, err = d.opts.Inference.Generate(ctx, model.Configuration["model_name"], text)
		}
	case EngineVADER:
		_, label := sentiment.Classify(inputText(model, input))
		out = string(label)
	default:
		return "", fmt.Errorf("%w: unsupported model engine %q", ErrRejected, model.Engine)
	}

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: model %s: %w", ErrUnavailable, model.Name, err)
	}
	return strings.TrimSpace(out), nil
}

// inputText picks the configured input column, or joins every column when
// the model does not name one.
func inputText(model models.ModelDescriptor, input map[string]string) string {
	if col := model.Configuration["input_column"]; col != "" {
		return input[col]
	}
	if len(input) == 1 {
		for _, v := range input {
			return v
		}
	}
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, input[k])
	}
	return strings.Join(parts, " ")
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderTemplate substitutes {{column}} placeholders with input values.
// Unknown columns render as empty strings.
func RenderTemplate(tmpl string, input map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return input[name]
	})
}
