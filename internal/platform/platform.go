// Package platform abstracts the machine-learning platform that hosts the
// comment connector and the models.
package platform

import (
	"context"

	"github.com/spacesedan/ytinsights/internal/models"
)

type Project struct {
	Name string `json:"name"`
}

type Database struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

// DatabaseSpec describes a data connector to create. Parameters usually hold
// credentials and are never logged.
type DatabaseSpec struct {
	Name       string
	Engine     string
	Parameters map[string]string
}

// CommentQuery selects comments of one video from a connector and joins them
// with the output of a classification model.
type CommentQuery struct {
	Database string
	Project  string
	Model    string
	// Target is the column the model predicts, "sentiment" when empty.
	Target  string
	VideoID string
	Limit   int
}

func (q CommentQuery) target() string {
	if q.Target == "" {
		return "sentiment"
	}
	return q.Target
}

// Platform is implemented by every backend. Get* methods return ErrNotFound
// for missing resources and Create* methods return ErrAlreadyExists when the
// name is taken.
type Platform interface {
	Ping(ctx context.Context) error

	GetProject(ctx context.Context, name string) (Project, error)
	CreateProject(ctx context.Context, name string) (Project, error)

	GetDatabase(ctx context.Context, name string) (Database, error)
	CreateDatabase(ctx context.Context, spec DatabaseSpec) (Database, error)

	GetModel(ctx context.Context, project, name string) (models.ModelDescriptor, error)
	CreateModel(ctx context.Context, project string, desc models.ModelDescriptor) (models.ModelDescriptor, error)

	ClassifyComments(ctx context.Context, q CommentQuery) ([]models.ClassifiedComment, error)
	// Predict runs model over a single input row and returns its target column.
	Predict(ctx context.Context, project string, model models.ModelDescriptor, input map[string]string) (string, error)
}
