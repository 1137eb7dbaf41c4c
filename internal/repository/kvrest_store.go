package repository

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
)

// KVRestIndexStore talks to a Redis-compatible REST endpoint (Upstash or
// Vercel KV) with a bearer token.
type KVRestIndexStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewKVRestIndexStore(baseURL, token string) *KVRestIndexStore {
	return &KVRestIndexStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// kvResult is the envelope of every REST command reply.
type kvResult struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

func (s *KVRestIndexStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var res kvResult
	if err := s.do(ctx, http.MethodGet, "/get/"+url.PathEscape(key), nil, &res); err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if len(res.Result) == 0 || string(res.Result) == "null" {
		return nil, false, nil
	}

	var value string
	if err := json.Unmarshal(res.Result, &value); err != nil {
		return nil, false, fmt.Errorf("unexpected value for %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *KVRestIndexStore) Set(ctx context.Context, key string, value []byte) error {
	var res kvResult
	if err := s.do(ctx, http.MethodPost, "/set/"+url.PathEscape(key), bytes.NewReader(value), &res); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SetAll sends every SET in a single MULTI/EXEC transaction.
func (s *KVRestIndexStore) SetAll(ctx context.Context, entries map[string][]byte) error {
	commands := make([][]string, 0, len(entries))
	for k, v := range entries {
		commands = append(commands, []string{"SET", k, string(v)})
	}
	body, err := json.Marshal(commands)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	var results []kvResult
	if err := s.do(ctx, http.MethodPost, "/multi-exec", bytes.NewReader(body), &results); err != nil {
		return fmt.Errorf("failed to write index entries: %w", err)
	}
	for _, r := range results {
		if r.Error != "" {
			return fmt.Errorf("failed to write index entries: %s", r.Error)
		}
	}
	return nil
}

func (s *KVRestIndexStore) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var res kvResult
		if json.Unmarshal(respBody, &res) == nil && res.Error != "" {
			return fmt.Errorf("kv error (%d): %s", resp.StatusCode, res.Error)
		}
		return fmt.Errorf("kv error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if res, ok := out.(*kvResult); ok && res.Error != "" {
		return fmt.Errorf("kv error: %s", res.Error)
	}
	return nil
}
