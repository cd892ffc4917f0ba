package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Astemirdum/bookstore-client/pkg/circuit_breaker"
	"github.com/Astemirdum/bookstore-client/storefront/config"
	"github.com/Astemirdum/bookstore-client/storefront/internal/envelope"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
)

const (
	bearer      = "Bearer "
	XRequestID  = echo.HeaderXRequestID
	maxBodySize = 32 << 20
)

// TokenSource yields the current credential token, "" when logged out.
type TokenSource interface {
	Token() string
}

// Requester is what resource services need from the adapter.
type Requester interface {
	Get(ctx context.Context, path string, query url.Values) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
	PostMultipart(ctx context.Context, path string, form Multipart) ([]byte, error)
	Put(ctx context.Context, path string, body any) ([]byte, error)
	Patch(ctx context.Context, path string, body any) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
}

var _ Requester = (*Client)(nil)

type Client struct {
	log     *zap.Logger
	client  *http.Client
	base    *url.URL
	tokens  TokenSource
	limiter *rate.Limiter
	cb      circuit_breaker.CircuitBreaker
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithCircuitBreaker(cb circuit_breaker.CircuitBreaker) Option {
	return func(c *Client) { c.cb = cb }
}

func New(log *zap.Logger, cfg config.API, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}
	c := &Client{
		log:    log.Named("transport"),
		client: &http.Client{Timeout: cfg.Timeout},
		base:   base,
		tokens: tokens,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(1, int(cfg.RPS)))
	}
	if cfg.Breaker {
		c.cb = circuit_breaker.New(circuit_breaker.Settings{
			Window:           20,
			Cooldown:         cfg.BreakerCooldown,
			FailureRatio:     0.5,
			RecoveryRequests: 2,
			IsFailure:        isServiceFailure,
		})
	}
	for _, op := range opts {
		op(c)
	}
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, "")
}

func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) ([]byte, error) {
	return c.doJSON(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil, "")
}

// File is a binary attachment of a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Multipart is a form whose scalar fields were already serialized to
// strings. Field order is kept.
type Multipart struct {
	Fields [][2]string
	Files  []File
}

func (m *Multipart) Add(name, value string) {
	m.Fields = append(m.Fields, [2]string{name, value})
}

func (c *Client) PostMultipart(ctx context.Context, path string, form Multipart) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	w := multipart.NewWriter(buf)
	for _, f := range form.Fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, &errs.APIError{Err: errors.Wrap(err, "encode form")}
		}
	}
	for _, f := range form.Files {
		h := make(textproto.MIMEHeader)
		h.Set(echo.HeaderContentDisposition, fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = http.DetectContentType(f.Data)
		}
		h.Set(echo.HeaderContentType, ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, &errs.APIError{Err: errors.Wrap(err, "encode form")}
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, &errs.APIError{Err: errors.Wrap(err, "encode form")}
		}
	}
	if err := w.Close(); err != nil {
		return nil, &errs.APIError{Err: errors.Wrap(err, "encode form")}
	}
	return c.do(ctx, http.MethodPost, path, nil, buf.Bytes(), w.FormDataContentType())
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	b := bytes.NewBuffer(nil)
	if err := json.NewEncoder(b).Encode(body); err != nil {
		return nil, &errs.APIError{Err: errors.Wrap(err, "encode body")}
	}
	return c.do(ctx, method, path, nil, b.Bytes(), echo.MIMEApplicationJSONCharsetUTF8)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &errs.APIError{Err: err}
		}
	}
	if c.cb == nil {
		return c.roundTrip(ctx, method, path, query, body, contentType)
	}

	var data []byte
	err := c.cb.Call(func() error {
		var err error
		data, err = c.roundTrip(ctx, method, path, query, body, contentType)
		return err
	})
	if errors.Is(err, circuit_breaker.ErrOpenCB) {
		return nil, &errs.APIError{Err: err}
	}
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) ([]byte, error) {
	u := c.url(path, query)
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, &errs.APIError{Err: err}
	}
	reqID := uuid.NewString()
	c.decorate(req, reqID, contentType)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("url", u),
			zap.String("request_id", reqID),
			zap.Error(err))
		return nil, &errs.APIError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID))
	if err != nil {
		return nil, &errs.APIError{StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errs.APIError{
			StatusCode: resp.StatusCode,
			Message:    envelope.Message(data),
		}
	}
	return data, nil
}

func (c *Client) decorate(req *http.Request, reqID, contentType string) {
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	req.Header.Set(XRequestID, reqID)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if req.Method == http.MethodGet {
		req.Header.Set(echo.HeaderCacheControl, "no-cache")
		req.Header.Set("Pragma", "no-cache")
	}
	if c.tokens == nil {
		return
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(echo.HeaderAuthorization, bearer+token)
	}
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// isServiceFailure counts network errors and 5xx against the breaker;
// client errors and our own cancellations say nothing about the service.
func isServiceFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *errs.APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.StatusCode == 0 || apiErr.StatusCode >= http.StatusInternalServerError
}
