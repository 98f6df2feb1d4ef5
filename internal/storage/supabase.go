package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deusflow/aiinsight/internal/retry"
)

// SupabaseStore writes through the PostgREST endpoint of a Supabase project.
type SupabaseStore struct {
	baseURL string
	key     string
	table   string
	client  *http.Client
}

func NewSupabaseStore(baseURL, key, table string, client *http.Client) (*SupabaseStore, error) {
	if baseURL == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	table, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SupabaseStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		table:   table,
		client:  client,
	}, nil
}

func (s *SupabaseStore) endpoint(query url.Values) string {
	u := s.baseURL + "/rest/v1/" + s.table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *SupabaseStore) do(req *http.Request) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("supabase %s %s: status %d: %s", req.Method, s.table, resp.StatusCode, strings.TrimSpace(string(msg)))
	// Client errors other than throttling will not improve on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return nil, retry.Permanent(err)
	}
	return nil, err
}

func (s *SupabaseStore) Upsert(ctx context.Context, rec Record) error {
	body, err := json.Marshal([]Record{rec})
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, s.endpoint(url.Values{"on_conflict": {"original_url"}}), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (s *SupabaseStore) Count(ctx context.Context) (int, error) {
	req, err := s.newRequest(ctx, http.MethodHead, s.endpoint(url.Values{"select": {"original_url"}}), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	resp, err := s.do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return parseContentRange(resp.Header.Get("Content-Range"))
}

// parseContentRange reads the total from "0-9/42" or "*/0".
func parseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("unexpected Content-Range %q", v)
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil {
		return 0, fmt.Errorf("unexpected Content-Range %q", v)
	}
	return n, nil
}

func (s *SupabaseStore) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		n = 10
	}
	q := url.Values{
		"select": {"title,summary,tags,original_url,importance_score,published_at"},
		"order":  {"published_at.desc"},
		"limit":  {strconv.Itoa(n)},
	}
	req, err := s.newRequest(ctx, http.MethodGet, s.endpoint(q), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return out, nil
}

func (s *SupabaseStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
