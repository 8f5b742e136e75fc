// Package client talks to a running judge server
package client

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

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/domain"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var _ primary.Judge = (*RemoteJudge)(nil)

// RemoteJudge grades candidates through the HTTP API
type RemoteJudge struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewRemoteJudge(baseURL, token string, timeout time.Duration) *RemoteJudge {
	return &RemoteJudge{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Message string `json:"message"`
}

func (c *RemoteJudge) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var body errorBody
		_ = json.Unmarshal(data, &body)
		if body.Message == "" {
			body.Message = strings.TrimSpace(string(data))
		}
		return fmt.Errorf("%w: %s", sentinelFor(resp.StatusCode), body.Message)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return errs.ErrProblemNotFound
	case http.StatusRequestEntityTooLarge:
		return errs.ErrSourceTooLarge
	case http.StatusBadRequest:
		return errs.ErrInvalidRequest
	case http.StatusUnauthorized:
		return errs.ErrInvalidToken
	case http.StatusForbidden:
		return errs.ErrPermission
	default:
		return fmt.Errorf("%w: status %d", errs.ErrInternal, status)
	}
}

func (c *RemoteJudge) RunCandidate(ctx context.Context, problemID string, source string) (*domain.RunReport, error) {
	var report domain.RunReport
	body := map[string]string{"problemId": problemID, "code": source}
	if err := c.do(ctx, http.MethodPost, "/api/questions/run", body, &report); err != nil {
		return nil, err
	}
	report.RestoreNonFinite()
	return &report, nil
}

func (c *RemoteJudge) ListProblems(ctx context.Context) ([]domain.ProblemSummary, error) {
	var summaries []domain.ProblemSummary
	if err := c.do(ctx, http.MethodGet, "/api/questions", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *RemoteJudge) GetProblem(ctx context.Context, problemID string) (*domain.ProblemSpec, error) {
	var problem domain.ProblemSpec
	if err := c.do(ctx, http.MethodGet, "/api/questions/"+url.PathEscape(problemID), nil, &problem); err != nil {
		return nil, err
	}
	return &problem, nil
}
