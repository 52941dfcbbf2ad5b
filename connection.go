package retdec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

const (
	sniffLen       = 512
	logBodyPreview = 512
)

// Connection sends authenticated requests to one base URL of the API. It
// holds no per-request state and may be shared by many decompilations.
type Connection struct {
	baseURL string
	cfg     Config
	auth    Auth
	client  *http.Client
	stream  *http.Client
	logger  Logger
	redact  map[string]bool
}

// NewConnection returns a Connection to baseURL authenticated with apiKey,
// using default transport settings.
func NewConnection(baseURL, apiKey string) *Connection {
	return newConnection(Config{APIKey: apiKey, APIURL: baseURL}, baseURL)
}

func newConnection(cfg Config, baseURL string) *Connection {
	cfg.Timeout = orDefault(cfg.Timeout, defaultTimeout)
	cfg.RequestIDHeader = orDefault(cfg.RequestIDHeader, defaultRequestIDHeader)
	cfg.MaxIdleConns = orDefault(cfg.MaxIdleConns, defaultMaxIdleConns)
	cfg.MaxIdleConnsPerHost = orDefault(cfg.MaxIdleConnsPerHost, defaultMaxIdlePerHost)
	cfg.IdleConnTimeout = orDefault(cfg.IdleConnTimeout, defaultIdleConnTimeout)

	var logger Logger
	if cfg.Debug {
		logger = cfg.Logger
		if logger == nil {
			logger = log.New(os.Stdout, "retdec ", log.LstdFlags)
		}
	}

	redact := make(map[string]bool, len(cfg.RedactHeaders))
	for _, name := range cfg.RedactHeaders {
		redact[http.CanonicalHeaderKey(name)] = true
	}

	// Downloads are read after the request returns, so their client bounds
	// only the wait for response headers.
	transport := newTransport(cfg)
	return &Connection{
		baseURL: baseURL,
		cfg:     cfg,
		auth:    newAuth(cfg.APIKey),
		client:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		stream:  &http.Client{Transport: transport},
		logger:  logger,
		redact:  redact,
	}
}

func newTransport(cfg Config) *http.Transport {
	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != nil {
		proxy = http.ProxyURL(cfg.ProxyURL)
	}
	return &http.Transport{
		Proxy:                 proxy,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
	}
}

// BaseURL returns the URL every request path is appended to.
func (c *Connection) BaseURL() string {
	return c.baseURL
}

func (c *Connection) close() {
	c.client.CloseIdleConnections()
}

// SendGetRequest sends a GET request to path and decodes the JSON response
// into out. A nil out discards the body.
func (c *Connection) SendGetRequest(path string, params map[string]string, out any) error {
	return c.SendGetRequestWithContext(context.Background(), path, params, out)
}

// SendGetRequestWithContext is SendGetRequest with a caller-supplied context.
func (c *Connection) SendGetRequestWithContext(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.do(ctx, c.client, http.MethodGet, path, params, "", nil)
	if err != nil {
		return err
	}
	return c.decodeJSON(resp, out)
}

// SendPostRequest sends a multipart POST request to path with the given
// files attached under their form field names, and decodes the JSON response
// into out. Params go into the query string.
func (c *Connection) SendPostRequest(path string, params map[string]string, files map[string]FileUpload, out any) error {
	return c.SendPostRequestWithContext(context.Background(), path, params, files, out)
}

// SendPostRequestWithContext is SendPostRequest with a caller-supplied context.
func (c *Connection) SendPostRequestWithContext(ctx context.Context, path string, params map[string]string, files map[string]FileUpload, out any) error {
	body, contentType, err := encodeMultipart(files)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, c.client, http.MethodPost, path, params, contentType, body)
	if err != nil {
		return err
	}
	return c.decodeJSON(resp, out)
}

// GetFile downloads the file at path. The returned File streams the response
// body; the caller owns it and must read it to the end or close it. The
// configured Timeout bounds the wait for the response headers only; use ctx
// to bound the whole transfer.
func (c *Connection) GetFile(path string, params map[string]string) (*File, error) {
	return c.GetFileWithContext(context.Background(), path, params)
}

// GetFileWithContext is GetFile with a caller-supplied context.
func (c *Connection) GetFileWithContext(ctx context.Context, path string, params map[string]string) (*File, error) {
	resp, err := c.do(ctx, c.stream, http.MethodGet, path, params, "", nil)
	if err != nil {
		return nil, err
	}
	c.afterResponse(resp, nil)
	name := fileNameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	return newFile(name, resp.Body), nil
}

// buildURL appends path to the base URL verbatim and params as a form-style
// query string, in key order.
func (c *Connection) buildURL(path string, params map[string]string) (string, error) {
	target := c.baseURL + path
	if len(params) == 0 {
		return target, nil
	}

	query := make(url.Values, len(params))
	for _, name := range sortedKeys(params) {
		encoded, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, params[name])
		if err != nil {
			return "", fmt.Errorf("encode query parameter %s: %w", name, err)
		}
		values, err := url.ParseQuery(encoded)
		if err != nil {
			return "", fmt.Errorf("encode query parameter %s: %w", name, err)
		}
		for k, vs := range values {
			query[k] = append(query[k], vs...)
		}
	}

	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode(), nil
}

// do sends one request. On a 2xx status the response is returned with its
// body still open; any other status is turned into a typed error. Transport
// failures are returned unchanged.
func (c *Connection) do(ctx context.Context, client *http.Client, method, path string, params map[string]string, contentType string, body io.Reader) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	target, err := c.buildURL(path, params)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, method, target, contentType, body)
	if err != nil {
		return nil, err
	}

	c.debugf("[request] %s %s headers=%v", req.Method, req.URL, c.redacted(req.Header))
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	c.debugf("[response] %s %s status=%d duration=%s request_id=%s",
		req.Method, req.URL, resp.StatusCode, time.Since(start), resp.Header.Get(c.cfg.RequestIDHeader))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, err := c.readBody(resp)
		if err != nil {
			return nil, err
		}
		return nil, apiErrorFromResponse(resp.StatusCode, data, resp.Header, c.cfg.RequestIDHeader)
	}
	return resp, nil
}

func (c *Connection) newRequest(ctx context.Context, method, target, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	addHeaders(req.Header, c.auth.Headers())
	addHeaders(req.Header, c.cfg.ExtraHeaders)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if name := c.cfg.RequestIDHeader; name != "" && req.Header.Get(name) == "" {
		if id := c.requestID(); id != "" {
			req.Header.Set(name, id)
		}
	}

	for i, hook := range c.cfg.BeforeRequest {
		c.runHook("request", i, func() { hook(req) })
	}
	return req, nil
}

func (c *Connection) requestID() string {
	if c.cfg.DefaultRequestID != "" {
		return c.cfg.DefaultRequestID
	}
	if c.cfg.AutoRequestID {
		return "retdec-" + uuid.NewString()
	}
	return ""
}

// readBody drains and closes the response body, then logs it and runs the
// response hooks.
func (c *Connection) readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if c.logger != nil {
		preview := string(data)
		if len(preview) > logBodyPreview {
			preview = preview[:logBodyPreview] + "…"
		}
		c.debugf("[response] %s %s body=%s", resp.Request.Method, resp.Request.URL, preview)
	}
	c.afterResponse(resp, data)
	return data, nil
}

func (c *Connection) decodeJSON(resp *http.Response, out any) error {
	data, err := c.readBody(resp)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Connection) afterResponse(resp *http.Response, body []byte) {
	for i, hook := range c.cfg.AfterResponse {
		c.runHook("response", i, func() { hook(resp, body) })
	}
}

// runHook calls a caller-supplied hook; a panicking hook is logged and
// otherwise ignored.
func (c *Connection) runHook(kind string, i int, call func()) {
	defer func() {
		if r := recover(); r != nil {
			c.debugf("%s hook[%d] panic: %v", kind, i, r)
		}
	}()
	call()
}

func (c *Connection) debugf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func (c *Connection) redacted(h http.Header) http.Header {
	if len(c.redact) == 0 {
		return h
	}
	out := h.Clone()
	for name := range out {
		if c.redact[http.CanonicalHeaderKey(name)] {
			out[name] = []string{"[redacted]"}
		}
	}
	return out
}

func addHeaders(dst, src http.Header) {
	for name, values := range src {
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// encodeMultipart builds a multipart/form-data body holding one file part per
// form field.
func encodeMultipart(files map[string]FileUpload) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, field := range sortedKeys(files) {
		if err := writeFilePart(w, field, files[field]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, upload FileUpload) error {
	rc, err := upload.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	name := upload.filename()
	src := bufio.NewReaderSize(rc, sniffLen)
	contentType := upload.MimeType
	if contentType == "" {
		contentType = upload.mimeType()
		// Peek returns what it has at EOF, which is enough to sniff.
		if head, _ := src.Peek(sniffLen); len(head) > 0 {
			contentType = http.DetectContentType(head)
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(name)))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := src.WriteTo(part); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
