package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	MINDSDB_CLOUD_LOGIN_PATH = "/cloud/login"
	MINDSDB_LOCAL_LOGIN_PATH = "/api/login"
	MINDSDB_STATUS_PATH      = "/api/status"
	MINDSDB_SQL_PATH         = "/api/sql/query"
)

// MindsDBError is a non-success answer from the MindsDB HTTP API. SQL errors
// reported inside a 200 response carry the HTTP status of that response.
type MindsDBError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *MindsDBError) Error() string {
	return fmt.Sprintf("mindsdb %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

type MindsDBClient struct {
	BaseURL  string
	Client   *http.Client
	email    string
	password string
}

type MindsDBProject struct {
	Name string `json:"name"`
}

type MindsDBDatabase struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
	Type   string `json:"type"`
}

type MindsDBModel struct {
	Name    string         `json:"name"`
	Status  string         `json:"status"`
	Predict string         `json:"predict"`
	Engine  string         `json:"engine"`
	Error   string         `json:"error"`
	Options map[string]any `json:"training_options"`
}

// MindsDBQueryResult is the answer of /api/sql/query. Type is "table" for row
// sets, "ok" for statements and "error" when the query failed.
type MindsDBQueryResult struct {
	Type         string   `json:"type"`
	ColumnNames  []string `json:"column_names"`
	Data         [][]any  `json:"data"`
	ErrorCode    int      `json:"error_code"`
	ErrorMessage string   `json:"error_message"`
}

// Rows zips column names and data into one map per row.
func (r *MindsDBQueryResult) Rows() []map[string]any {
	rows := make([]map[string]any, 0, len(r.Data))
	for _, record := range r.Data {
		row := make(map[string]any, len(r.ColumnNames))
		for i, col := range r.ColumnNames {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func NewMindsDBClient(baseURL, email, password string, timeout time.Duration) (*MindsDBClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	slog.Info("[MindsDBClient] Initializing Client",
		slog.String("url", baseURL),
		slog.Duration("timeout", timeout))

	return &MindsDBClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   &http.Client{Timeout: timeout, Jar: jar},
		email:    email,
		password: password,
	}, nil
}

func (m *MindsDBClient) loginPath() string {
	if strings.Contains(m.BaseURL, "cloud.mindsdb.com") {
		return MINDSDB_CLOUD_LOGIN_PATH
	}
	return MINDSDB_LOCAL_LOGIN_PATH
}

// Login opens a session. The cloud keeps it in a cookie; self-hosted servers
// with auth enabled answer with a token, which is then sent as a bearer token.
func (m *MindsDBClient) Login(ctx context.Context) error {
	payload := map[string]string{
		"email":    m.email,
		"username": m.email,
		"password": m.password,
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := m.doJSON(ctx, "login", http.MethodPost, m.loginPath(), payload, &out); err != nil {
		return err
	}

	if out.Token != "" {
		m.Client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: out.Token, TokenType: "Bearer"}),
			Base:   m.Client.Transport,
		}
	}

	slog.Info("[MindsDBClient] Logged in", slog.Bool("token_auth", out.Token != ""))
	return nil
}

func (m *MindsDBClient) Status(ctx context.Context) error {
	return m.doJSON(ctx, "status", http.MethodGet, MINDSDB_STATUS_PATH, nil, nil)
}

func (m *MindsDBClient) GetProject(ctx context.Context, name string) (*MindsDBProject, error) {
	var out MindsDBProject
	path := "/api/projects/" + url.PathEscape(name)
	if err := m.doJSON(ctx, "get project", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MindsDBClient) GetDatabase(ctx context.Context, name string) (*MindsDBDatabase, error) {
	var out MindsDBDatabase
	path := "/api/databases/" + url.PathEscape(name)
	if err := m.doJSON(ctx, "get database", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *MindsDBClient) GetModel(ctx context.Context, project, name string) (*MindsDBModel, error) {
	var out MindsDBModel
	path := fmt.Sprintf("/api/projects/%s/models/%s", url.PathEscape(project), url.PathEscape(name))
	if err := m.doJSON(ctx, "get model", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query runs a SQL statement in the context of database (may be empty).
func (m *MindsDBClient) Query(ctx context.Context, database, query string) (*MindsDBQueryResult, error) {
	payload := map[string]any{
		"query":   query,
		"context": map[string]string{"db": database},
	}

	start := time.Now()
	var out MindsDBQueryResult
	if err := m.doJSON(ctx, "query", http.MethodPost, MINDSDB_SQL_PATH, payload, &out); err != nil {
		return nil, err
	}

	if out.Type == "error" {
		slog.Warn("[MindsDBClient] Query rejected",
			slog.String("error", out.ErrorMessage),
			slog.Duration("elapsed", time.Since(start)))
		return nil, &MindsDBError{Op: "query", StatusCode: http.StatusOK, Message: out.ErrorMessage}
	}

	slog.Debug("[MindsDBClient] Query successful",
		slog.String("type", out.Type),
		slog.Int("rows", len(out.Data)),
		slog.Duration("elapsed", time.Since(start)))
	return &out, nil
}

// Predict runs the model over the given rows and returns one row per input.
func (m *MindsDBClient) Predict(ctx context.Context, project, model string, data []map[string]any) ([]map[string]any, error) {
	path := fmt.Sprintf("/api/projects/%s/models/%s/predict", url.PathEscape(project), url.PathEscape(model))

	start := time.Now()
	var out []map[string]any
	if err := m.doJSON(ctx, "predict", http.MethodPost, path, map[string]any{"data": data}, &out); err != nil {
		slog.Error("[MindsDBClient] Predict request failed",
			slog.String("model", model),
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	slog.Info("[MindsDBClient] Predict request successful",
		slog.String("model", model),
		slog.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (m *MindsDBClient) doJSON(ctx context.Context, op, method, path string, input any, output any) error {
	var body io.Reader
	if input != nil {
		payload, err := json.Marshal(input)
		if err != nil {
			return fmt.Errorf("failed to marshal %s input: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if input != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := m.Client.Do(req)
	if err != nil {
		slog.Error("[MindsDBClient] Request failed",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return fmt.Errorf("mindsdb %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &MindsDBError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if output == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[MindsDBClient] Failed to unmarshal response",
			slog.String("op", op),
			slog.String("error", err.Error()),
			getPreview(respBody))
		return fmt.Errorf("failed to unmarshal %s response: %w", op, err)
	}
	return nil
}

// errorMessage pulls the human readable part out of a MindsDB error body.
func errorMessage(body []byte) string {
	var payload struct {
		Title        string `json:"title"`
		Detail       string `json:"detail"`
		Message      string `json:"message"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, msg := range []string{payload.Detail, payload.ErrorMessage, payload.Message, payload.Title} {
			if msg != "" {
				return msg
			}
		}
	}
	return strings.TrimSpace(string(body))
}
