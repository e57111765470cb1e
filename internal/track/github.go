package track

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Konard/problem-solving/internal/resilient"
)

// GitHubConfig configures the GitHub-backed tracker.
type GitHubConfig struct {
	// Token is the bearer token sent with every call.
	Token string
	// Owner and Repo name the repository records are created in.
	Owner string
	Repo  string
	// BaseURL overrides the API endpoint (default: https://api.github.com).
	// Tests point it at a local server.
	BaseURL string
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
	// Retry tunes the resilient wrapper around every call.
	Retry resilient.Config
}

// GitHub is a Tracker backed by the GitHub REST API. Records are issues. A
// submission is a review issue carrying the branch hint and the composed
// content itself, since this tool never pushes branches; it counts as
// approved once a reviewer closes it.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHub creates a GitHub tracker for owner/repo.
func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github tracker requires a token")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github tracker requires owner and repo")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &GitHub{cfg: cfg, client: client}, nil
}

type issueResponse struct {
	Number int    `json:"number"`
	State  string `json:"state"`
}

func (g *GitHub) CreateRecord(ctx context.Context, title, body, parentID string) (string, error) {
	if parentID != "" {
		body = fmt.Sprintf("%s\n\nParent: #%s", body, parentID)
	}
	payload := map[string]string{"title": title, "body": body}

	var issue issueResponse
	err := resilient.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		return g.call(ctx, http.MethodPost, g.repoPath("/issues"), payload, &issue)
	})
	if err != nil {
		return "", &CollaboratorError{Op: "create record", Err: err}
	}
	return strconv.Itoa(issue.Number), nil
}

func (g *GitHub) CreateArtifactSubmission(ctx context.Context, title, branchHint, content, recordID string) (string, error) {
	var body strings.Builder
	fmt.Fprintf(&body, "Proposed branch: `%s`\n", branchHint)
	if recordID != "" {
		fmt.Fprintf(&body, "Resolves #%s\n", recordID)
	}
	fmt.Fprintf(&body, "\n```\n%s\n```\n", content)
	payload := map[string]string{"title": "[submission] " + title, "body": body.String()}

	var issue issueResponse
	err := resilient.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		return g.call(ctx, http.MethodPost, g.repoPath("/issues"), payload, &issue)
	})
	if err != nil {
		return "", &CollaboratorError{Op: "create submission", Err: err}
	}
	return strconv.Itoa(issue.Number), nil
}

func (g *GitHub) GetApprovalStatus(ctx context.Context, submissionID string) (bool, error) {
	var issue issueResponse
	err := resilient.Do(ctx, g.cfg.Retry, func(ctx context.Context) error {
		return g.call(ctx, http.MethodGet, g.repoPath("/issues/"+submissionID), nil, &issue)
	})
	if err != nil {
		return false, &CollaboratorError{Op: "approval status", Err: err}
	}
	return issue.State == "closed", nil
}

func (g *GitHub) repoPath(suffix string) string {
	return fmt.Sprintf("/repos/%s/%s%s", g.cfg.Owner, g.cfg.Repo, suffix)
}

// call performs one API request, decoding a successful response into out.
// Failures are classified for the resilient wrapper: rate-limit responses
// carry their reset time, server errors are transient, everything else is
// permanent.
func (g *GitHub) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return resilient.Permanent(fmt.Errorf("marshal request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reqBody)
	if err != nil {
		return resilient.Permanent(err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		if reset := rateLimitReset(resp); !reset.IsZero() {
			return &RateLimitError{ResetAt: reset}
		}
	}
	if resp.StatusCode >= 500 {
		return resilient.Transient(apiError(resp))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resilient.Permanent(apiError(resp))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resilient.Permanent(fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// rateLimitReset extracts the reset time from rate-limit headers. Zero means
// the response was an ordinary refusal, not a rate limit.
func rateLimitReset(resp *http.Response) time.Time {
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
			if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
				return time.Unix(unix, 0)
			}
		}
	}
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return time.Time{}
}
