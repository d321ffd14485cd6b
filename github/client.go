// Package github is a small client for the parts of the GitHub REST API used
// by a phase session. Requests are authorised by the session's token store.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com"
	httpTimeout    = 10 * time.Second
	apiVersion     = "2022-11-28"
)

// StatusError is returned for any non-2xx response that the caller did not
// ask to interpret.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Client calls the GitHub REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a Client whose requests carry the token from ts. An HTTP
// client set on ctx with oauth2.HTTPClient is used as the base transport.
func NewClient(ctx context.Context, ts oauth2.TokenSource, options ...ClientOption) (*Client, error) {
	if ts == nil {
		return nil, errors.New("[NewClient] token source is required")
	}
	// ts is read on every request so a cleared token takes effect immediately.
	httpClient := &http.Client{
		Timeout: httpTimeout,
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   oauth2.NewClient(ctx, nil).Transport,
		},
	}

	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// AuthenticatedUser returns the account that owns the access token.
func (c *Client) AuthenticatedUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "/user", &user); err != nil {
		return nil, errors.Wrap(err, "[Client.AuthenticatedUser]")
	}
	return &user, nil
}

// IsRepositoryPresent reports whether owner/repo exists and is visible.
func (c *Client) IsRepositoryPresent(ctx context.Context, owner, repo string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, repoPath(owner, repo), nil)
	if err != nil {
		return false, errors.Wrap(err, "[Client.IsRepositoryPresent]")
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case isSuccess(resp.StatusCode):
		return true, nil
	default:
		return false, statusError(resp)
	}
}

// CreateRepository creates repo under the authenticated user.
func (c *Client) CreateRepository(ctx context.Context, repo string) error {
	resp, err := c.do(ctx, http.MethodPost, "/user/repos", createRepoRequest{Name: repo, AutoInit: true})
	if err != nil {
		return errors.Wrap(err, "[Client.CreateRepository]")
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		return statusError(resp)
	}
	c.logger.Info().Str("event", "repo_created").Str("repo", repo).Msg("repository creation requested")
	return nil
}

// FetchFile returns the decoded contents of path in owner/repo.
func (c *Client) FetchFile(ctx context.Context, owner, repo, path string) ([]byte, error) {
	var content contentResponse
	if err := c.getJSON(ctx, repoPath(owner, repo)+"/contents/"+escapePath(path), &content); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchFile]")
	}
	if content.Encoding != "base64" {
		return []byte(content.Content), nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.FetchFile] decode")
	}
	return data, nil
}

func (c *Client) FetchLabels(ctx context.Context, owner, repo string) ([]Label, error) {
	var labels []Label
	if err := c.getJSON(ctx, repoPath(owner, repo)+"/labels?per_page=100", &labels); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchLabels]")
	}
	return labels, nil
}

func (c *Client) FetchIssueComments(ctx context.Context, owner, repo string, issue int) ([]IssueComment, error) {
	var comments []IssueComment
	path := repoPath(owner, repo) + "/issues/" + strconv.Itoa(issue) + "/comments?per_page=100"
	if err := c.getJSON(ctx, path, &comments); err != nil {
		return nil, errors.Wrap(err, "[Client.FetchIssueComments]")
	}
	return comments, nil
}

func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, issue int, body string) (*IssueComment, error) {
	var comment IssueComment
	path := repoPath(owner, repo) + "/issues/" + strconv.Itoa(issue) + "/comments"
	if err := c.sendJSON(ctx, http.MethodPost, path, commentRequest{Body: body}, &comment); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateIssueComment]")
	}
	return &comment, nil
}

func (c *Client) UpdateIssueComment(ctx context.Context, owner, repo string, commentID int64, body string) (*IssueComment, error) {
	var comment IssueComment
	path := repoPath(owner, repo) + "/issues/comments/" + strconv.FormatInt(commentID, 10)
	if err := c.sendJSON(ctx, http.MethodPatch, path, commentRequest{Body: body}, &comment); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateIssueComment]")
	}
	return &comment, nil
}

// LatestIssueEvent returns the newest issue event of owner/repo, or nil if
// the repository has none.
func (c *Client) LatestIssueEvent(ctx context.Context, owner, repo string) (*IssueEvent, error) {
	var events []IssueEvent
	if err := c.getJSON(ctx, repoPath(owner, repo)+"/issues/events?per_page=1", &events); err != nil {
		return nil, errors.Wrap(err, "[Client.LatestIssueEvent]")
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.sendJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("github api")
	return resp, nil
}

func statusError(resp *http.Response) error {
	return &StatusError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL.Path,
		StatusCode: resp.StatusCode,
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func escapePath(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
