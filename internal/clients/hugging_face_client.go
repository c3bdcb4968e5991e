package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const HF_INFERENCE_ENDPOINT = "https://api-inference.huggingface.co"

// HuggingFaceClient calls hosted models on the Hugging Face Inference API.
type HuggingFaceClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type hfInferenceRequest struct {
	Inputs  string         `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

type hfLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type hfGeneratedText struct {
	SummaryText   string `json:"summary_text"`
	GeneratedText string `json:"generated_text"`
}

func NewHuggingFaceClient(baseURL, apiKey string, timeout time.Duration) *HuggingFaceClient {
	if baseURL == "" {
		baseURL = HF_INFERENCE_ENDPOINT
	}
	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.Duration("timeout", timeout))

	return &HuggingFaceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Classify runs a text-classification model and returns the top label.
func (h *HuggingFaceClient) Classify(ctx context.Context, model, text string) (string, error) {
	start := time.Now()

	raw, err := h.infer(ctx, model, text)
	if err != nil {
		return "", err
	}

	// the API answers [[...]] for a single input and [...] for some pipelines
	var nested [][]hfLabelScore
	var scores []hfLabelScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 {
		scores = nested[0]
	} else if err := json.Unmarshal(raw, &scores); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal classification",
			slog.String("model", model),
			getPreview(raw))
		return "", fmt.Errorf("failed to unmarshal classification: %w", err)
	}

	if len(scores) == 0 {
		return "", fmt.Errorf("hugging face %s: empty classification", model)
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	slog.Debug("[HuggingFaceClient] Classification successful",
		slog.String("model", model),
		slog.String("label", best.Label),
		slog.Duration("elapsed", time.Since(start)))
	return best.Label, nil
}

// Generate runs a summarization or text2text-generation model.
func (h *HuggingFaceClient) Generate(ctx context.Context, model, text string) (string, error) {
	start := time.Now()
	slog.Info("[HuggingFaceClient] Requesting generation", slog.String("model", model))

	raw, err := h.infer(ctx, model, text)
	if err != nil {
		slog.Error("[HuggingFaceClient] Generation request failed",
			slog.String("model", model),
			slog.Duration("elapsed", time.Since(start)))
		return "", err
	}

	var out []hfGeneratedText
	if err := json.Unmarshal(raw, &out); err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal generation",
			slog.String("model", model),
			getPreview(raw))
		return "", fmt.Errorf("failed to unmarshal generation: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("hugging face %s: empty generation", model)
	}

	slog.Info("[HuggingFaceClient] Generation request successful",
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)))

	if out[0].SummaryText != "" {
		return out[0].SummaryText, nil
	}
	return out[0].GeneratedText, nil
}

func (h *HuggingFaceClient) infer(ctx context.Context, model, text string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/models/%s", h.BaseURL, model)

	body, err := json.Marshal(hfInferenceRequest{
		Inputs:  text,
		Options: map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Error("[HuggingFaceClient] Request failed",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("hugging face %s: %w", model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		slog.Warn("[HuggingFaceClient] Non-success response",
			slog.String("endpoint", endpoint),
			slog.String("error", errMsg(nil, resp)),
			getPreview(respBody))
		return nil, fmt.Errorf("hugging face %s: status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
