package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenk/backoff"

	"github.com/origami/repo-data/cache"
	"github.com/origami/repo-data/logging"
	"github.com/origami/repo-data/manifest"
	"github.com/origami/repo-data/types"
)

const (
	pathTagRef   = "/repos/%s/%s/git/ref/tags/%s"
	pathContents = "/repos/%s/%s/contents/%s"
	pathReadme   = "/repos/%s/%s/readme"

	githubRawMediaType = "application/vnd.github.raw"
)

var (
	githubRepoURLRegexp = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([\w.-]+)/([\w.-]+?)(?:\.git)?/?$`)

	errRetryable = errors.New("retryable github response")
)

// SourceClient is what the materializer needs from a repository host.
type SourceClient interface {
	manifest.FileLoader
	IsValidRepositoryURL(repoURL string) bool
	ExtractOwnerAndRepo(repoURL string) (owner, repo string, err error)
	TagExists(ctx context.Context, owner, repo, tag string) (bool, error)
	LoadJSONFile(ctx context.Context, ref types.FileRef) (manifest.Document, error)
	LoadReadme(ctx context.Context, owner, repo, ref string) (*string, error)
}

type GithubClient struct {
	hc         *http.Client
	apiURL     string
	authToken  string
	cache      cache.Cache
	maxRetries uint64
	baseDelay  time.Duration
}

type GithubClientOption func(*GithubClient)

func WithGithubHTTPClient(hc *http.Client) GithubClientOption {
	return func(c *GithubClient) {
		c.hc = hc
	}
}

func WithGithubAuthToken(token string) GithubClientOption {
	return func(c *GithubClient) {
		c.authToken = token
	}
}

// WithGithubCache caches file contents, which never change for a given tag.
func WithGithubCache(ch cache.Cache) GithubClientOption {
	return func(c *GithubClient) {
		c.cache = ch
	}
}

func WithGithubRetries(maxRetries uint64, baseDelay time.Duration) GithubClientOption {
	return func(c *GithubClient) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

func NewGithubClient(apiURL string, opts ...GithubClientOption) *GithubClient {
	c := &GithubClient{
		hc:         NewHTTPClient(30 * time.Second),
		apiURL:     strings.TrimRight(apiURL, "/"),
		cache:      cache.NoopCache{},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GithubClient) IsValidRepositoryURL(repoURL string) bool {
	return githubRepoURLRegexp.MatchString(repoURL)
}

func (c *GithubClient) ExtractOwnerAndRepo(repoURL string) (string, string, error) {
	matches := githubRepoURLRegexp.FindStringSubmatch(repoURL)
	if matches == nil {
		return "", "", types.NewError(types.InvalidSource, fmt.Sprintf("%s is not a GitHub repository", repoURL), false)
	}
	return matches[1], matches[2], nil
}

func (c *GithubClient) TagExists(ctx context.Context, owner, repo, tag string) (bool, error) {
	path := fmt.Sprintf(pathTagRef, url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(tag))
	body, err := c.get(ctx, path, nil, "application/vnd.github+json")
	if err != nil {
		return false, err
	}
	return body != nil, nil
}

// LoadJSONFile returns the parsed JSON file at ref, or nil when the file
// does not exist. Invalid JSON is a non-recoverable MalformedManifest.
func (c *GithubClient) LoadJSONFile(ctx context.Context, ref types.FileRef) (manifest.Document, error) {
	text, err := c.LoadTextFile(ctx, ref)
	if err != nil || text == nil {
		return nil, err
	}
	doc, err := manifest.Parse([]byte(*text))
	if err != nil {
		return nil, types.WrapError(types.MalformedManifest, err, false, "%s is not valid JSON", ref)
	}
	return doc, nil
}

func (c *GithubClient) LoadTextFile(ctx context.Context, ref types.FileRef) (*string, error) {
	key := "file:" + ref.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*string), nil
	}
	path := fmt.Sprintf(pathContents, url.PathEscape(ref.Owner), url.PathEscape(ref.Repo), escapePath(ref.Path))
	body, err := c.get(ctx, path, url.Values{"ref": {ref.Ref}}, githubRawMediaType)
	if err != nil || body == nil {
		return nil, err
	}
	text := string(body)
	c.cache.Set(key, &text)
	return &text, nil
}

func (c *GithubClient) LoadReadme(ctx context.Context, owner, repo, ref string) (*string, error) {
	key := "readme:" + types.FileRef{Owner: owner, Repo: repo, Ref: ref}.String()
	if v, ok := c.cache.Get(key); ok {
		return v.(*string), nil
	}
	path := fmt.Sprintf(pathReadme, url.PathEscape(owner), url.PathEscape(repo))
	body, err := c.get(ctx, path, url.Values{"ref": {ref}}, githubRawMediaType)
	if err != nil || body == nil {
		return nil, err
	}
	text := string(body)
	c.cache.Set(key, &text)
	return &text, nil
}

// get returns the response body, nil on 404. Server errors, rate limits and
// network failures are retried with exponential backoff and end up as
// recoverable errors.
func (c *GithubClient) get(ctx context.Context, path string, query url.Values, accept string) ([]byte, error) {
	target := c.apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var (
		body     []byte
		finalErr error
	)
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			finalErr = err
			return nil
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", types.BuildServiceSystemCode)
		if c.authToken != "" {
			req.Header.Set("Authorization", "token "+c.authToken)
		}
		resp, err := c.hc.Do(req)
		if err != nil {
			return fmt.Errorf("requesting %s: %w", path, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			finalErr = nil
			return nil
		case resp.StatusCode == http.StatusNotFound:
			body, finalErr = nil, nil
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden || resp.StatusCode >= 500:
			return fmt.Errorf("%w: %s returned status %d", errRetryable, path, resp.StatusCode)
		default:
			finalErr = types.NewError(types.Transient,
				fmt.Sprintf("github %s returned status %d", path, resp.StatusCode), true)
			return nil
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.baseDelay
	expBackoff.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, c.maxRetries), ctx)
	err := backoff.RetryNotify(operation, policy, func(err error, next time.Duration) {
		logging.Logger.Warningf("github request failed, retry in %s, err=%s", next, err.Error())
	})
	if err != nil {
		return nil, types.WrapError(types.Transient, err, true, "github request %s failed", path)
	}
	return body, finalErr
}

func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
