package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minicode/internal/judge"
	"minicode/internal/logger"

	"go.uber.org/zap"
)

const (
	githubAPIURL   = "https://api.github.com"
	githubOAuthURL = "https://github.com/login/oauth/access_token"
)

var errRepoExists = errors.New("repository name already exists")

// GithubClient talks to the GitHub REST API with a per-call user token.
// There is no ambient credential; every method takes the token explicitly.
type GithubClient struct {
	apiURL   string
	oauthURL string
	client   *http.Client

	clientID     string
	clientSecret string
}

func NewGithubClient(clientID, clientSecret string) *GithubClient {
	return &GithubClient{
		apiURL:       githubAPIURL,
		oauthURL:     githubOAuthURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// NewGithubClientWithBaseURL points the client at a stand-in server.
func NewGithubClientWithBaseURL(apiURL, oauthURL string) *GithubClient {
	c := NewGithubClient("", "")
	c.apiURL = apiURL
	c.oauthURL = oauthURL
	return c
}

type GithubUser struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Email     *string `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

type RepoInfo struct {
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// ExchangeOAuthCode trades an OAuth authorization code for a user access
// token.
func (c *GithubClient) ExchangeOAuthCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"code":          {code},
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	var tokenResp struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		reason := tokenResp.ErrorDescription
		if reason == "" {
			reason = tokenResp.Error
		}
		return "", fmt.Errorf("GitHub OAuth failed: %s", reason)
	}
	return tokenResp.AccessToken, nil
}

// GetUser fetches the authenticated user's profile.
func (c *GithubClient) GetUser(ctx context.Context, token string) (*GithubUser, error) {
	var user GithubUser
	if err := c.do(ctx, token, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	return &user, nil
}

// CreateRepo creates a private, auto-initialized repository for the
// authenticated user. A name collision returns errRepoExists so the caller
// can reuse the existing repository instead of duplicating it.
func (c *GithubClient) CreateRepo(ctx context.Context, token, name, description string) (*RepoInfo, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     true,
		"auto_init":   true,
	}

	var info RepoInfo
	err := c.do(ctx, token, http.MethodPost, "/user/repos", body, &info)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusUnprocessableEntity {
			return nil, errRepoExists
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	return &info, nil
}

// GetRepo fetches an existing repository of the given owner.
func (c *GithubClient) GetRepo(ctx context.Context, token, owner, name string) (*RepoInfo, error) {
	var info RepoInfo
	path := fmt.Sprintf("/repos/%s/%s", owner, name)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}
	return &info, nil
}

// PutFile creates or updates a file on the main branch. When the file
// already exists its blob SHA must accompany the update, so it is looked up
// first.
func (c *GithubClient) PutFile(ctx context.Context, token, owner, repo, path, message, content string) error {
	contentsPath := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path)

	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  "main",
	}

	var existing struct {
		SHA string `json:"sha"`
	}
	if err := c.do(ctx, token, http.MethodGet, contentsPath+"?ref=main", nil, &existing); err == nil {
		body["sha"] = existing.SHA
	}

	if err := c.do(ctx, token, http.MethodPut, contentsPath, body, nil); err != nil {
		return fmt.Errorf("failed to put file %s: %w", path, err)
	}
	return nil
}

// FetchSnapshot implements judge.Fetcher. It pins the read to the commit
// that is HEAD of main at call time, then fetches the file at exactly that
// ref, so a push racing with the evaluation cannot tear the read.
func (c *GithubClient) FetchSnapshot(ctx context.Context, token, owner, repo, path string) (*judge.Snapshot, error) {
	var branch struct {
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	branchPath := fmt.Sprintf("/repos/%s/%s/branches/main", owner, repo)
	if err := c.do(ctx, token, http.MethodGet, branchPath, nil, &branch); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", judge.ErrFetchTimeout, err)
		}
		return nil, fmt.Errorf("failed to resolve main branch: %w", err)
	}

	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	filePath := fmt.Sprintf("/repos/%s/%s/contents/%s?ref=%s", owner, repo, path, branch.Commit.SHA)
	if err := c.do(ctx, token, http.MethodGet, filePath, nil, &file); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", judge.ErrFileNotFound, path)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", judge.ErrFetchTimeout, err)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	content := file.Content
	if file.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		content = string(decoded)
	}

	return &judge.Snapshot{
		CommitSHA: branch.Commit.SHA,
		Content:   content,
	}, nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("GitHub API error: status %d: %s", e.status, e.body)
}

func (c *GithubClient) do(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logger.Log.Debug("GitHub API request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &apiError{status: resp.StatusCode, body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
