// Package httpclient is the JSON request helper shared by the clients of the
// authorization server and of the policy engine.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/datacentricdesign/profile-api/internal/apperror"
)

const (
	// DefaultTimeout bounds every outbound call when no timeout is configured.
	DefaultTimeout = 15 * time.Second

	// maxErrorBody is the number of body bytes kept on an UpstreamError.
	maxErrorBody = 512

	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Options tune a Client.
type Options struct {
	Timeout time.Duration
	// Secured sends X-Forwarded-Proto: https, required by hydra when it runs behind TLS termination.
	Secured bool
}

// Client sends JSON requests to one upstream service.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	opts    Options
}

// New creates a Client for service rooted at baseURL. A nil hc uses a default client.
func New(service, baseURL string, hc *http.Client, opts Options) *Client {
	if hc == nil {
		hc = &http.Client{}
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		opts:    opts,
	}
}

// Service returns the name used in metrics and errors.
func (c *Client) Service() string { return c.service }

// Do sends in as JSON (when not nil) to path and decodes the answer into out
// (when not nil and the body is not empty). It returns the status code.
//
// Status codes outside 200..302 are returned as an *apperror.Error of kind
// UpstreamError, a deadline as Timeout.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) (int, error) {
	var (
		body        io.Reader
		contentType string
	)

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, pkgerrors.Wrapf(err, "encode %s request", c.service)
		}

		body = bytes.NewReader(buf)
		contentType = contentTypeJSON
	}

	return c.send(ctx, method, path, query, contentType, body, out)
}

// PostForm posts form url encoded and decodes the JSON answer into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) (int, error) {
	return c.send(ctx, http.MethodPost, path, nil, contentTypeForm, strings.NewReader(form.Encode()), out)
}

func (c *Client) send(
	ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader, out any,
) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "build %s request", c.service)
	}

	req.Header.Set("Accept", contentTypeJSON)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.opts.Secured {
		req.Header.Set("X-Forwarded-Proto", "https")
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observe(c.service, method, "error", time.Since(start))

		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return 0, apperror.Wrap(err, apperror.Timeout, c.service+" did not answer in time")
		}

		return 0, apperror.Wrap(err, apperror.UpstreamError, c.service+" is unreachable")
	}
	defer resp.Body.Close()

	observe(c.service, method, strconv.Itoa(resp.StatusCode), time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, apperror.Wrap(err, apperror.UpstreamError, "read "+c.service+" answer")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusFound {
		log.Debug().Str("service", c.service).Str("method", method).Str("path", path).
			Int("status", resp.StatusCode).Msg("upstream answered with an error")

		return resp.StatusCode, apperror.Upstream(c.service, resp.StatusCode, truncate(raw))
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err = json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, apperror.Wrap(err, apperror.UpstreamError, "decode "+c.service+" answer")
		}
	}

	return resp.StatusCode, nil
}

// StatusOf returns the upstream status carried by err, 0 if there is none.
func StatusOf(err error) int {
	var e *apperror.Error
	if errors.As(err, &e) {
		return e.UpstreamStatus
	}

	return 0
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }

	return errors.As(err, &t) && t.Timeout()
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}

	return string(raw)
}
