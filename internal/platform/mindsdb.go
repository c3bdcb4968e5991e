package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/ytinsights/internal/clients"
	"github.com/spacesedan/ytinsights/internal/models"
)

// MindsDB talks to a MindsDB server over its HTTP API. Lookups use the REST
// resources and creation goes through SQL statements.
type MindsDB struct {
	client *clients.MindsDBClient
}

func NewMindsDB(client *clients.MindsDBClient) *MindsDB {
	return &MindsDB{client: client}
}

// Connect logs in and returns a ready platform.
func Connect(ctx context.Context, client *clients.MindsDBClient) (*MindsDB, error) {
	if err := client.Login(ctx); err != nil {
		return nil, fmt.Errorf("check your internet connection or mindsdb credentials: %w", classify(err))
	}
	return NewMindsDB(client), nil
}

func (m *MindsDB) Ping(ctx context.Context) error {
	return classify(m.client.Status(ctx))
}

func (m *MindsDB) GetProject(ctx context.Context, name string) (Project, error) {
	p, err := m.client.GetProject(ctx, name)
	if err != nil {
		return Project{}, classify(err)
	}
	if p.Name == "" {
		p.Name = name
	}
	return Project{Name: p.Name}, nil
}

func (m *MindsDB) CreateProject(ctx context.Context, name string) (Project, error) {
	if _, err := m.client.Query(ctx, "", createProjectSQL(name)); err != nil {
		return Project{}, classify(err)
	}
	return Project{Name: name}, nil
}

func (m *MindsDB) GetDatabase(ctx context.Context, name string) (Database, error) {
	d, err := m.client.GetDatabase(ctx, name)
	if err != nil {
		return Database{}, classify(err)
	}
	if d.Name == "" {
		d.Name = name
	}
	return Database{Name: d.Name, Engine: d.Engine}, nil
}

func (m *MindsDB) CreateDatabase(ctx context.Context, spec DatabaseSpec) (Database, error) {
	stmt, err := createDatabaseSQL(spec)
	if err != nil {
		return Database{}, err
	}
	if _, err := m.client.Query(ctx, "", stmt); err != nil {
		return Database{}, classify(err)
	}
	return Database{Name: spec.Name, Engine: spec.Engine}, nil
}

func (m *MindsDB) GetModel(ctx context.Context, project, name string) (models.ModelDescriptor, error) {
	model, err := m.client.GetModel(ctx, project, name)
	if err != nil {
		return models.ModelDescriptor{}, classify(err)
	}
	return toDescriptor(name, model), nil
}

func (m *MindsDB) CreateModel(ctx context.Context, project string, desc models.ModelDescriptor) (models.ModelDescriptor, error) {
	if _, err := m.client.Query(ctx, project, createModelSQL(project, desc)); err != nil {
		return models.ModelDescriptor{}, classify(err)
	}

	created := desc
	created.Status = models.ModelStatusGenerating
	return created, nil
}

func (m *MindsDB) ClassifyComments(ctx context.Context, q CommentQuery) ([]models.ClassifiedComment, error) {
	start := time.Now()

	res, err := m.client.Query(ctx, q.Project, commentQuerySQL(q))
	if err != nil {
		return nil, classify(err)
	}

	target := q.target()
	rows := res.Rows()
	out := make([]models.ClassifiedComment, 0, len(rows))
	for _, row := range rows {
		raw := stringValue(row[target])
		c := models.ClassifiedComment{
			Comment: models.Comment{VideoID: q.VideoID, Text: stringValue(row["comment"])},
		}
		if label, ok := models.ParseSentimentLabel(raw); ok {
			c.Sentiment = label
		} else {
			c.RawSentiment = raw
			slog.Debug("[MindsDB] Unrecognised sentiment label", slog.String("label", raw))
		}
		out = append(out, c)
	}

	slog.Info("[MindsDB] Classified comments",
		slog.String("video_id", q.VideoID),
		slog.Int("count", len(out)),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (m *MindsDB) Predict(ctx context.Context, project string, model models.ModelDescriptor, input map[string]string) (string, error) {
	row := make(map[string]any, len(input))
	for k, v := range input {
		row[k] = v
	}

	out, err := m.client.Predict(ctx, project, model.Name, []map[string]any{row})
	if err != nil {
		return "", classify(err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("%w: model %s returned no rows", ErrRejected, model.Name)
	}

	value, ok := out[0][model.PredictTarget]
	if !ok {
		return "", fmt.Errorf("%w: model %s returned no %q column", ErrRejected, model.Name, model.PredictTarget)
	}
	return stringValue(value), nil
}

func toDescriptor(name string, m *clients.MindsDBModel) models.ModelDescriptor {
	desc := models.ModelDescriptor{
		Name:          m.Name,
		Engine:        m.Engine,
		PredictTarget: m.Predict,
		Status:        models.ModelStatus(m.Status),
		Error:         m.Error,
	}
	if desc.Name == "" {
		desc.Name = name
	}

	if len(m.Options) > 0 {
		desc.Configuration = make(map[string]string, len(m.Options))
		for k, v := range m.Options {
			// engine arguments are reported nested under "using"
			if nested, ok := v.(map[string]any); ok && k == "using" {
				for nk, nv := range nested {
					desc.Configuration[nk] = stringValue(nv)
				}
				continue
			}
			desc.Configuration[k] = stringValue(v)
		}
	}
	return desc
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
