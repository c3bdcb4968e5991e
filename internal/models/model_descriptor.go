package models

import (
	"fmt"
	"sort"
	"strings"
)

type ModelStatus string

const (
	ModelStatusGenerating ModelStatus = "generating"
	ModelStatusTraining   ModelStatus = "training"
	ModelStatusComplete   ModelStatus = "complete"
	ModelStatusError      ModelStatus = "error"
)

// Terminal reports whether the platform will not change the status on its own.
func (s ModelStatus) Terminal() bool {
	return s == ModelStatusComplete || s == ModelStatusError
}

// ModelDescriptor describes a model hosted on the ML platform.
type ModelDescriptor struct {
	Name          string            `json:"name"`
	Engine        string            `json:"engine"`
	PredictTarget string            `json:"predict"`
	Configuration map[string]string `json:"configuration,omitempty"`
	Status        ModelStatus       `json:"status,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// IsSecretKey reports configuration keys that carry credentials.
func IsSecretKey(key string) bool {
	k := strings.ToLower(key)
	return k == "api_key" || strings.HasSuffix(k, "_api_key") ||
		strings.HasSuffix(k, "_token") || strings.Contains(k, "password")
}

// Drift lists the fields where remote differs from the desired descriptor.
// Secrets are ignored and configuration keys the remote side does not report
// are not counted.
func (d ModelDescriptor) Drift(remote ModelDescriptor) []string {
	var drift []string

	if remote.Engine != "" && !strings.EqualFold(d.Engine, remote.Engine) {
		drift = append(drift, fmt.Sprintf("engine: %q != %q", d.Engine, remote.Engine))
	}
	if remote.PredictTarget != "" && d.PredictTarget != remote.PredictTarget {
		drift = append(drift, fmt.Sprintf("predict: %q != %q", d.PredictTarget, remote.PredictTarget))
	}

	keys := make([]string, 0, len(d.Configuration))
	for k := range d.Configuration {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if IsSecretKey(k) {
			continue
		}
		rv, ok := remote.Configuration[k]
		if !ok {
			continue
		}
		if rv != d.Configuration[k] {
			drift = append(drift, fmt.Sprintf("%s: %q != %q", k, d.Configuration[k], rv))
		}
	}

	return drift
}

// Redacted returns a copy safe to log.
func (d ModelDescriptor) Redacted() ModelDescriptor {
	out := d
	out.Configuration = make(map[string]string, len(d.Configuration))
	for k, v := range d.Configuration {
		if IsSecretKey(k) {
			v = "***"
		}
		out.Configuration[k] = v
	}
	return out
}
