package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spacesedan/ytinsights/internal/clients"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrUnavailable covers network failures and server side errors.
	ErrUnavailable = errors.New("platform unavailable")
	// ErrRejected is returned when the platform refused the request itself,
	// for example a failing query or bad credentials.
	ErrRejected = errors.New("request rejected by platform")
)

// classify tags err with one of the sentinel errors so callers can use
// errors.Is without knowing which backend produced it. Context errors are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, sentinel := range []error{ErrNotFound, ErrAlreadyExists, ErrUnavailable, ErrRejected} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	var apiErr *clients.MindsDBError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.StatusCode == http.StatusNotFound,
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case apiErr.StatusCode == http.StatusConflict,
		strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
}
