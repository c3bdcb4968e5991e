// Package provisioning makes sure the remote resources the service depends
// on exist before they are used.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spacesedan/ytinsights/internal/models"
	"github.com/spacesedan/ytinsights/internal/platform"
)

var (
	ErrTrainingFailed  = errors.New("model training failed")
	ErrTrainingTimeout = errors.New("model training timed out")
)

// Locker serialises creation of a named resource across processes.
type Locker interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// Ensure tries to create the resource and, when creation fails for any
// reason, looks it up instead. An error is returned only when both fail.
func Ensure[T any](ctx context.Context, kind, name string, lookup func(context.Context) (T, error), create func(context.Context) (T, error)) (T, error) {
	handle, createErr := create(ctx)
	if createErr == nil {
		slog.Info("[Provisioner] Resource created", slog.String("kind", kind), slog.String("name", name))
		return handle, nil
	}

	level := slog.LevelWarn
	if errors.Is(createErr, platform.ErrAlreadyExists) {
		level = slog.LevelDebug
	}
	slog.Log(ctx, level, "[Provisioner] Create failed, looking up existing resource",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("reason", errorKind(createErr)),
		slog.String("error", createErr.Error()))

	handle, lookupErr := lookup(ctx)
	if lookupErr != nil {
		slog.Error("[Provisioner] Lookup after failed create failed",
			slog.String("kind", kind),
			slog.String("name", name),
			slog.String("reason", errorKind(lookupErr)))
		var zero T
		return zero, fmt.Errorf("ensuring %s %s: create: %w; lookup: %w", kind, name, createErr, lookupErr)
	}
	return handle, nil
}

// errorKind names the platform error class of err for logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, platform.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, platform.ErrNotFound):
		return "not_found"
	case errors.Is(err, platform.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, platform.ErrRejected):
		return "rejected"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

type Options struct {
	Locker          Locker
	PollInterval    time.Duration
	TrainingTimeout time.Duration
}

type Provisioner struct {
	platform platform.Platform
	locker   Locker

	pollInterval    time.Duration
	trainingTimeout time.Duration
}

func NewProvisioner(p platform.Platform, opts Options) *Provisioner {
	if opts.Locker == nil {
		opts.Locker = noopLocker{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.TrainingTimeout <= 0 {
		opts.TrainingTimeout = 5 * time.Minute
	}

	return &Provisioner{
		platform:        p,
		locker:          opts.Locker,
		pollInterval:    opts.PollInterval,
		trainingTimeout: opts.TrainingTimeout,
	}
}

// locked runs create while holding the cross-process lock for key.
func locked[T any](p *Provisioner, key string, create func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		release, err := p.locker.Acquire(ctx, key)
		if err != nil {
			var zero T
			return zero, err
		}
		defer release()
		return create(ctx)
	}
}

func (p *Provisioner) EnsureProject(ctx context.Context, name string) (platform.Project, error) {
	lookup := func(ctx context.Context) (platform.Project, error) {
		return p.platform.GetProject(ctx, name)
	}
	create := func(ctx context.Context) (platform.Project, error) {
		return p.platform.CreateProject(ctx, name)
	}
	return Ensure(ctx, "project", name, lookup, locked(p, "project:"+name, create))
}

func (p *Provisioner) EnsureDatabase(ctx context.Context, spec platform.DatabaseSpec) (platform.Database, error) {
	lookup := func(ctx context.Context) (platform.Database, error) {
		return p.platform.GetDatabase(ctx, spec.Name)
	}
	create := func(ctx context.Context) (platform.Database, error) {
		return p.platform.CreateDatabase(ctx, spec)
	}
	return Ensure(ctx, "database", spec.Name, lookup, locked(p, "database:"+spec.Name, create))
}

// EnsureModel provisions desc in project and waits until it can serve
// predictions. An existing model whose definition differs from desc is
// reported, not replaced.
func (p *Provisioner) EnsureModel(ctx context.Context, project string, desc models.ModelDescriptor) (models.ModelDescriptor, error) {
	created := false
	lookup := func(ctx context.Context) (models.ModelDescriptor, error) {
		return p.platform.GetModel(ctx, project, desc.Name)
	}
	create := func(ctx context.Context) (models.ModelDescriptor, error) {
		m, err := p.platform.CreateModel(ctx, project, desc)
		if err == nil {
			created = true
		}
		return m, err
	}

	model, err := Ensure(ctx, "model", desc.Name, lookup, locked(p, "model:"+project+"."+desc.Name, create))
	if err != nil {
		return models.ModelDescriptor{}, err
	}

	if model.PredictTarget == "" {
		model.PredictTarget = desc.PredictTarget
	}
	if created {
		slog.Info("[Provisioner] Model created",
			slog.String("project", project),
			slog.Any("definition", desc.Redacted()))
	} else if drift := desc.Drift(model); len(drift) > 0 {
		slog.Warn("[Provisioner] Existing model differs from the configured definition",
			slog.String("model", desc.Name),
			slog.String("drift", strings.Join(drift, "; ")),
			slog.Any("definition", desc.Redacted()))
	}

	return p.waitForTraining(ctx, project, model)
}

// waitForTraining polls the model status until it is terminal, the training
// timeout elapses or ctx is done.
func (p *Provisioner) waitForTraining(ctx context.Context, project string, model models.ModelDescriptor) (models.ModelDescriptor, error) {
	start := time.Now()
	deadline := time.NewTimer(p.trainingTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		if model.Status.Terminal() {
			if model.Status == models.ModelStatusError {
				slog.Error("[Provisioner] Model training failed",
					slog.String("model", model.Name),
					slog.String("error", model.Error))
				return models.ModelDescriptor{}, fmt.Errorf("%w: %s: %s", ErrTrainingFailed, model.Name, model.Error)
			}
			if time.Since(start) > p.pollInterval {
				slog.Info("[Provisioner] Model ready",
					slog.String("model", model.Name),
					slog.Duration("elapsed", time.Since(start)))
			}
			return model, nil
		}

		select {
		case <-ctx.Done():
			return models.ModelDescriptor{}, fmt.Errorf("waiting for model %s: %w", model.Name, ctx.Err())
		case <-deadline.C:
			slog.Error("[Provisioner] Model training timed out",
				slog.String("model", model.Name),
				slog.String("status", string(model.Status)),
				slog.Duration("timeout", p.trainingTimeout))
			return models.ModelDescriptor{}, fmt.Errorf("%w: %s still %q after %s", ErrTrainingTimeout, model.Name, model.Status, p.trainingTimeout)
		case <-ticker.C:
		}

		current, err := p.platform.GetModel(ctx, project, model.Name)
		if err != nil {
			return models.ModelDescriptor{}, fmt.Errorf("polling model %s: %w", model.Name, err)
		}
		model = current
		slog.Debug("[Provisioner] Model status", slog.String("model", model.Name), slog.String("status", string(model.Status)))
	}
}
