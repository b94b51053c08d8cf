// Package httpapi implements the service.Service interface against the
// task manager's REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"tasksync/internal/failure"
	"tasksync/internal/logging"
	"tasksync/internal/persist"
	"tasksync/internal/service"
)

// APITimeout is the default timeout for API calls.
const APITimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:5000.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each call. Zero means APITimeout.
	Timeout time.Duration

	// Records restores and saves the session cookies. May be nil.
	Records persist.Store

	Logger logging.Logger
}

// Client implements service.Service over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	jar     http.CookieJar
	timeout time.Duration
	records persist.Store
	log     logging.Logger
}

// savedCookie is the durable form of a session cookie.
type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// New creates a client and restores saved cookies from opts.Records.
func New(ctx context.Context, opts Options) (*Client, error) {
	return NewWithHTTPClient(ctx, opts, nil)
}

// NewWithHTTPClient creates a client on top of a custom HTTP client (for
// testing). The client's jar is replaced.
func NewWithHTTPClient(ctx context.Context, opts Options, hc *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	var httpClient http.Client
	if hc != nil {
		httpClient = *hc
	}
	httpClient.Jar = jar
	if opts.Token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"}),
			Base:   httpClient.Transport,
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = APITimeout
	}

	c := &Client{
		base:    base,
		http:    &httpClient,
		jar:     jar,
		timeout: timeout,
		records: opts.Records,
		log:     logging.OrDiscard(opts.Logger),
	}
	c.restoreCookies(ctx)
	return c, nil
}

func (c *Client) restoreCookies(ctx context.Context) {
	if c.records == nil {
		return
	}
	var saved []savedCookie
	if err := persist.LoadJSON(ctx, c.records, persist.KeyCookies, &saved); err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			c.log.WithError(err).Warn("ignoring unreadable cookie record")
		}
		return
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.jar.SetCookies(c.base, cookies)
}

// Close saves the current session cookies. A client without cookies
// removes the record.
func (c *Client) Close(ctx context.Context) error {
	if c.records == nil {
		return nil
	}
	cookies := c.jar.Cookies(c.base)
	if len(cookies) == 0 {
		return c.records.Remove(ctx, persist.KeyCookies)
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, ck := range cookies {
		saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
	}
	return persist.SaveJSON(ctx, c.records, persist.KeyCookies, saved)
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, email, password string) (service.User, error) {
	var u service.User
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/users/login", body, &u)
	return u, err
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, name, email, password string) (service.User, error) {
	var u service.User
	body := map[string]string{"name": name, "email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/users/register", body, &u)
	return u, err
}

// Logout implements service.Service.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/users/logout", nil, nil)
}

// UpdateProfile implements service.Service.
func (c *Client) UpdateProfile(ctx context.Context, update service.ProfileUpdate) (service.User, error) {
	var u service.User
	err := c.do(ctx, http.MethodPut, "/api/users/profile", update, &u)
	return u, err
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var ts []service.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &ts); err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []service.Task{}
	}
	return ts, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, fields service.TaskFields) (service.Task, error) {
	var t service.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", fields, &t)
	return t, err
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	var t service.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), patch, &t)
	return t, err
}

// DeleteTask implements service.Service. The server may answer with the
// bare id, an object carrying it, or nothing.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodDelete, taskPath(id), nil, &raw); err != nil {
		return "", err
	}
	return deletedID(raw), nil
}

func taskPath(id string) string {
	return "/api/tasks/" + url.PathEscape(id)
}

func deletedID(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ID != "" {
			return obj.ID
		}
		return obj.MongoID
	}
	return ""
}

// do sends one request. out may be nil, or a *json.RawMessage to receive
// the body undecoded.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	c.log.WithField("method", method).
		WithField("path", path).
		WithField("status", resp.StatusCode).
		WithField("duration", time.Since(start)).
		Debug("api call")

	if err := googleapi.CheckResponse(resp); err != nil {
		return wrapError(err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = data
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return failure.NewNetwork("", fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// wrapError classifies transport and HTTP errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return failure.NewRejected("", gerr.Code, serverMessage(gerr))
	}
	return failure.NewNetwork("", err)
}

// serverMessage extracts the human-readable message of an error body.
// Both {"message": "..."} and {"error": "..."} shapes are understood.
func serverMessage(gerr *googleapi.Error) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal([]byte(gerr.Body), &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return s
		}
	}
	// googleapi's own error envelope: {"error": {"message": "..."}}
	return gerr.Message
}
