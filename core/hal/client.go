package hal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/tangzero/inflector"

	"github.com/trezcool/prox/core"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeHAL     = "application/hal+json"
	contentTypeURIList = "text/uri-list"
)

// StatusError is returned when the HAL API answers with an unexpected status.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", err.Method, err.URL, err.Code, http.StatusText(err.Code))
}

// Client talks to a Spring Data REST style HAL API.
type Client struct {
	rest    *resty.Client
	baseURL string
}

// NewClient returns a Client rooted at `baseURL`.
// An optional http.Client may be passed, e.g. the one of an httptest.Server.
func NewClient(baseURL string, timeout time.Duration, httpClient ...*http.Client) (*Client, error) {
	if err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(baseURL, "baseURL"),
		vala.GreaterThan(int(timeout), 0, "timeout"),
	).Check(); err != nil {
		return nil, err
	}

	var rest *resty.Client
	if len(httpClient) > 0 && httpClient[0] != nil {
		rest = resty.NewWithClient(httpClient[0])
	} else {
		rest = resty.New()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	rest.SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", contentTypeHAL+", "+contentTypeJSON)

	return &Client{rest: rest, baseURL: baseURL}, nil
}

// CollectionPath returns the path of the `resource` collection, e.g. "studyCourse" -> "/studyCourses".
func CollectionPath(resource string) string {
	return "/" + inflector.Pluralize(resource)
}

// Get fetches the resource at `href` (absolute or relative to the base URL) into `out`.
func (c *Client) Get(ctx context.Context, href string, out interface{}) error {
	return c.do(ctx, http.MethodGet, href, nil, "", out)
}

// GetAll fetches the `resource` collection into the slice pointed to by `out`.
func (c *Client) GetAll(ctx context.Context, resource string, params url.Values, out interface{}) error {
	return c.getEmbedded(ctx, withQuery(CollectionPath(resource), params), out)
}

// Search runs the `query` search of the `resource` collection, e.g. "/projects/search/findByStatus?status=x".
func (c *Client) Search(ctx context.Context, resource, query string, params url.Values, out interface{}) error {
	path := CollectionPath(resource) + "/search/" + query
	return c.getEmbedded(ctx, withQuery(path, params), out)
}

// Follow fetches the single resource behind the `rel` relation of `links`.
func (c *Client) Follow(ctx context.Context, links Links, rel string, out interface{}) error {
	href, ok := links.Href(rel)
	if !ok {
		return errors.Errorf("relation %q not found", rel)
	}
	return c.Get(ctx, href, out)
}

// FollowArray fetches the resources behind the `rel` relation of `links` into the slice pointed to by `out`.
func (c *Client) FollowArray(ctx context.Context, links Links, rel string, out interface{}) error {
	href, ok := links.Href(rel)
	if !ok {
		return errors.Errorf("relation %q not found", rel)
	}
	return c.getEmbedded(ctx, href, out)
}

// Create POSTs `in` to the `resource` collection and decodes the created resource into `out`.
func (c *Client) Create(ctx context.Context, resource string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, CollectionPath(resource), in, contentTypeJSON, out)
}

// Post POSTs `in` to `href` and decodes the answer into `out`.
func (c *Client) Post(ctx context.Context, href string, in, out interface{}) error {
	return c.do(ctx, http.MethodPost, href, in, contentTypeJSON, out)
}

// Update PUTs `in` to the resource `self` href.
func (c *Client) Update(ctx context.Context, self string, in, out interface{}) error {
	if self == "" {
		return errors.New("updating resource without self link")
	}
	return c.do(ctx, http.MethodPut, self, in, contentTypeJSON, out)
}

// Delete removes the resource at `self`.
func (c *Client) Delete(ctx context.Context, self string) error {
	if self == "" {
		return errors.New("deleting resource without self link")
	}
	return c.do(ctx, http.MethodDelete, self, nil, "", nil)
}

// SetRelationArray replaces the `rel` relation of `links` by `targets` (self hrefs) sent as text/uri-list.
func (c *Client) SetRelationArray(ctx context.Context, links Links, rel string, targets []string) error {
	href, ok := links.Href(rel)
	if !ok {
		return errors.Errorf("relation %q not found", rel)
	}
	return c.do(ctx, http.MethodPut, href, strings.Join(targets, "\n"), contentTypeURIList, nil)
}

// getEmbedded decodes the single `_embedded` collection of the resource at `href` into `out`.
// A missing `_embedded` object leaves `out` empty.
func (c *Client) getEmbedded(ctx context.Context, href string, out interface{}) error {
	var page struct {
		Embedded map[string]json.RawMessage `json:"_embedded"`
	}
	if err := c.Get(ctx, href, &page); err != nil {
		return err
	}
	for name, raw := range page.Embedded {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrapf(err, "decoding _embedded.%s", name)
		}
		return nil
	}
	return json.Unmarshal([]byte("[]"), out)
}

func (c *Client) do(ctx context.Context, method, href string, body interface{}, contentType string, out interface{}) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", contentType).SetBody(body)
	}

	resp, err := req.Execute(method, href)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, href)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return errors.Wrapf(core.ErrNotFound, "%s %s", method, href)
	case resp.IsError():
		return &StatusError{Method: method, URL: resp.Request.URL, Code: code, Body: resp.String()}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err = json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, href)
	}
	return nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
