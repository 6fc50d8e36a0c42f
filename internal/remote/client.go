package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"corral/internal/config"
)

const userAgent = "Corral-Go/0.1.0"

// HTTPDoer abstracts the HTTP client so tests can substitute transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks JSON to the hosted farm API.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
}

// New builds a client from configuration.
func New(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Remote.BaseURL, "/"),
		apiKey:  cfg.Remote.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// NewWithDoer builds a client over a caller-provided transport.
func NewWithDoer(baseURL, apiKey string, doer HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    doer,
	}
}

// Record is a generic row of farm data as the API stores it.
type Record map[string]any

// UpdatedAt extracts the server's last-modified timestamp from a record.
func (r Record) UpdatedAt() (time.Time, bool) {
	raw, ok := r["updated_at"].(string)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		if ts, err = time.Parse(time.RFC3339, raw); err != nil {
			return time.Time{}, false
		}
	}
	return ts, true
}

// InsertRecords inserts a batch of rows into a farm table. The API
// deduplicates on each row's client_id, so retried inserts are safe.
func (c *Client) InsertRecords(ctx context.Context, farmID, table string, records []Record) error {
	body := map[string]any{
		"farm_id": farmID,
		"records": records,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/tables/"+url.PathEscape(table)+"/records", body, nil)
}

// UpdateRecord applies field changes to an existing row.
func (c *Client) UpdateRecord(ctx context.Context, farmID, table, recordID string, fields Record) error {
	body := map[string]any{
		"farm_id": farmID,
		"fields":  fields,
	}
	path := "/api/v1/tables/" + url.PathEscape(table) + "/records/" + url.PathEscape(recordID)
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// FetchRecord reads the server's current state of a row. Missing records
// yield (nil, nil).
func (c *Client) FetchRecord(ctx context.Context, farmID, table, recordID string) (Record, error) {
	path := "/api/v1/tables/" + url.PathEscape(table) + "/records/" + url.PathEscape(recordID)
	path += "?farm_id=" + url.QueryEscape(farmID)

	var out struct {
		Record Record `json:"record"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Record, nil
}

// Transcribe asks the API to transcribe a previously uploaded recording and
// returns the draft text.
func (c *Client) Transcribe(ctx context.Context, farmID, audioRef string) (string, error) {
	body := map[string]any{
		"farm_id":   farmID,
		"audio_ref": audioRef,
	}
	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/transcriptions", body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Transcription) == "" {
		return "", &APIError{Code: CodeTranscriptionEmpty, Message: "transcription came back empty", StatusCode: http.StatusOK}
	}
	return out.Transcription, nil
}

// Healthz probes API reachability. The sync processor calls this before each
// item so a dropped connection stops the batch early.
func (c *Client) Healthz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/healthz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build farm api request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("farm api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode farm api response: %w", err)
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		return &APIError{
			Code:       envelope.Error.Code,
			Message:    envelope.Error.Message,
			StatusCode: resp.StatusCode,
		}
	}

	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = resp.Status
	}
	return &APIError{
		Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message:    message,
		StatusCode: resp.StatusCode,
	}
}
