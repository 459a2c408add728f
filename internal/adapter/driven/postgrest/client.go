// Package postgrest implements the ProjectClient port against a remote
// project's PostgREST and GoTrue HTTP APIs.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/livebadge/internal/domain/model"
	"github.com/ericfisherdev/livebadge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ProjectClient = (*Client)(nil)

const (
	restPath  = "/rest/v1/"
	usersPath = "/auth/v1/admin/users"

	usersPerPage = 1000
	maxUserPages = 10000

	// maxDrainBytes bounds how much of an unused body is read before closing.
	maxDrainBytes = 1 << 20
)

// contentRangePattern matches "0-9/10" and "*/0".
var contentRangePattern = regexp.MustCompile(`(\d+|\*)/(\d+)`)

// Client implements the driven.ProjectClient port. Probes, user enumeration and
// pings go straight to the network; table discovery goes through an
// httpcache transport whose entries are scoped per credential and bounded in number.
type Client struct {
	httpClient *http.Client
	cache      *lruCache
	timeout    time.Duration
}

// NewClient creates a Client whose every outbound call is bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	return NewClientWithHTTPClient(&http.Client{}, timeout)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Discovery responses are kept in a bounded LRU shared by all credentials.
// This constructor is intended for testing, allowing injection of an httptest server's client.
func NewClientWithHTTPClient(httpClient *http.Client, timeout time.Duration) *Client {
	return &Client{
		httpClient: httpClient,
		cache:      newLRUCache(discoveryCacheEntries),
		timeout:    timeout,
	}
}

// ProbeCount issues a HEAD request for the table asking for an exact count.
// Failures never escape as errors: the caller inspects Status and Err.
func (c *Client) ProbeCount(ctx context.Context, endpoint string, table model.TableRef, credential string) model.ProbeResult {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	target := strings.TrimRight(endpoint, "/") + restPath + url.PathEscape(table.Name) + "?select=*"
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return model.ProbeResult{Err: fmt.Errorf("build probe request for %s: %w", table, err)}
	}
	setCredential(req, credential)
	req.Header.Set("Prefer", "count=exact")
	if !table.IsPublic() {
		req.Header.Set("Accept-Profile", table.Schema)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ProbeResult{Err: fmt.Errorf("probe %s: %w", table, err)}
	}
	defer drainAndClose(resp.Body)

	result := model.ProbeResult{Status: resp.StatusCode}
	if !result.Succeeded() {
		result.Err = fmt.Errorf("probe %s: %w", table, statusError(resp.StatusCode))
		return result
	}

	total, ok := parseContentRange(resp.Header.Get("Content-Range"))
	result.Total = total
	result.CountKnown = ok
	if !ok {
		result.Err = fmt.Errorf("probe %s: missing or malformed content-range %q", table, resp.Header.Get("Content-Range"))
	}

	slog.Debug("count probe",
		"table", table.FullName(),
		"status", result.Status,
		"total", result.Total,
		"count_known", result.CountKnown,
	)

	return result
}

// usersPage is the subset of the admin users response we need.
type usersPage struct {
	Users []json.RawMessage `json:"users"`
}

// CountUsers pages through the admin users endpoint and returns the number of
// users seen. A page shorter than the requested size ends the walk.
func (c *Client) CountUsers(ctx context.Context, endpoint, credential string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	base := strings.TrimRight(endpoint, "/") + usersPath

	var total int64
	for page := 1; page <= maxUserPages; page++ {
		target := fmt.Sprintf("%s?page=%d&per_page=%d", base, page, usersPerPage)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return 0, fmt.Errorf("build users request: %w", err)
		}
		setCredential(req, credential)
		req.Header.Set("Accept", "application/json")

		n, err := c.fetchUsersPage(req)
		if err != nil {
			return 0, fmt.Errorf("listing users (page %d): %w", page, err)
		}

		total += int64(n)
		if n < usersPerPage {
			return total, nil
		}
	}

	return 0, fmt.Errorf("listing users: more than %d pages", maxUserPages)
}

func (c *Client) fetchUsersPage(req *http.Request) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, statusError(resp.StatusCode)
	}

	var page usersPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return 0, fmt.Errorf("decode users: %w", err)
	}
	return len(page.Users), nil
}

// Ping requests the REST root with the credential and reports whether the
// project accepted it.
func (c *Client) Ping(ctx context.Context, endpoint, credential string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+restPath, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	setCredential(req, credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", endpoint, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ping %s: %w", endpoint, statusError(resp.StatusCode))
	}
	return nil
}

// openAPIDocument is the subset of the PostgREST OpenAPI root we read.
type openAPIDocument struct {
	Paths map[string]json.RawMessage `json:"paths"`
}

// ListTables reads the OpenAPI document served at the REST root and returns
// every exposed table or view, sorted by name. RPC paths are skipped.
func (c *Client) ListTables(ctx context.Context, endpoint, credential string) ([]model.TableRef, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(endpoint, "/")+restPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build openapi request: %w", err)
	}
	setCredential(req, credential)
	req.Header.Set("Accept", "application/openapi+json")

	resp, err := c.discoveryClient(credential).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch openapi document: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch openapi document: %w", statusError(resp.StatusCode))
	}

	var doc openAPIDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode openapi document: %w", err)
	}

	slog.Debug("openapi document fetched",
		"paths", len(doc.Paths),
		"from_cache", resp.Header.Get(httpcache.XFromCache) != "",
	)

	return tablesFromPaths(doc.Paths), nil
}

func tablesFromPaths(paths map[string]json.RawMessage) []model.TableRef {
	names := make([]string, 0, len(paths))
	for p := range paths {
		if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "/rpc/") {
			continue
		}
		name := strings.TrimPrefix(p, "/")
		if name == "" || strings.Contains(name, "/") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]model.TableRef, 0, len(names))
	for _, name := range names {
		tables = append(tables, model.TableRef{Schema: model.DefaultSchema, Name: name})
	}
	return tables
}

// discoveryClient wraps the base transport with httpcache. Cache keys are
// prefixed with a fingerprint of the credential so a response fetched under
// one key is never replayed for another.
func (c *Client) discoveryClient(credential string) *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	transport := &httpcache.Transport{
		Transport:           base,
		Cache:               newScopedCache(c.cache, credential),
		MarkCachedResponses: true,
	}
	return &http.Client{Transport: transport, Timeout: c.httpClient.Timeout}
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// setCredential applies the format-specific authentication headers.
func setCredential(req *http.Request, credential string) {
	for k, v := range model.ClassifyCredential(credential).Headers() {
		req.Header.Set(k, v)
	}
}

// parseContentRange extracts the total from a Content-Range header.
func parseContentRange(header string) (int64, bool) {
	m := contentRangePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, false
	}
	total, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

func statusError(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("status %d: %w", status, driven.ErrAccessDenied)
	}
	return fmt.Errorf("status %d: %w", status, driven.ErrUnexpectedStatus)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	_ = body.Close()
}
