package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	pkghttp "github.com/BradenHooton/loginguard/pkg/http"
)

// apiClient calls the loginguard HTTP API
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the current governor decision for identifier
func (c *apiClient) Status(ctx context.Context, identifier string) (*models.RateLimitStatus, error) {
	var status models.RateLimitStatus
	if err := c.do(ctx, http.MethodGet, attemptsPath(identifier), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Record fetches the stored attempt record (operator token required)
func (c *apiClient) Record(ctx context.Context, identifier string) (*models.AttemptRecord, error) {
	var rec models.AttemptRecord
	if err := c.do(ctx, http.MethodGet, attemptsPath(identifier)+"/record", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Reset clears the stored state for identifier (operator token required)
func (c *apiClient) Reset(ctx context.Context, identifier string) error {
	return c.do(ctx, http.MethodDelete, attemptsPath(identifier), nil)
}

func attemptsPath(identifier string) string {
	return "/v1/attempts/" + url.PathEscape(identifier)
}

func (c *apiClient) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr pkghttp.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Message)
		}
		return fmt.Errorf("unexpected response: %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
