package retdec

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Logger receives debug output. *log.Logger and *logrus.Logger both satisfy it.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestHook runs just before a request is sent and may modify it.
type RequestHook func(*http.Request)

// ResponseHook runs after a response has been received. The body is nil for
// streamed file downloads.
type ResponseHook func(*http.Response, []byte)

// Config is a fully resolved client configuration. Build one with LoadConfig
// or LoadConfigWithParams, or fill it in directly.
type Config struct {
	APIKey string
	APIURL string

	// Timeout bounds each API call, including reading the response. For
	// file downloads it bounds only the wait for the response headers, since
	// the body is streamed to the caller afterwards.
	Timeout time.Duration

	// WaitInterval is the pause between two status checks while waiting for
	// a decompilation to finish. Zero means no pause.
	WaitInterval time.Duration

	// Debug turns on request and response logging through Logger.
	Debug  bool
	Logger Logger

	// RedactHeaders lists headers whose values are masked in debug output.
	RedactHeaders []string

	ExtraHeaders http.Header
	ProxyURL     *url.URL

	// RequestIDHeader carries DefaultRequestID, or a generated id when
	// AutoRequestID is set, on every request.
	RequestIDHeader  string
	DefaultRequestID string
	AutoRequestID    bool

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

// ConfigParams are the caller-supplied settings for LoadConfigWithParams.
// Zero values fall back to the environment, then to the config file, then to
// the defaults.
type ConfigParams struct {
	APIKey string
	APIURL string

	Timeout        time.Duration
	TimeoutSeconds float64
	WaitInterval   time.Duration

	Debug         *bool
	Logger        Logger
	RedactHeaders []string

	ExtraHeaders http.Header
	ProxyURL     string

	RequestIDHeader string
	RequestID       string
	AutoRequestID   *bool

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// ConfigFile points at an optional YAML file. RETDEC_CONFIG is used
	// when empty.
	ConfigFile string

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

// DefaultAPIURL is the public RetDec service.
const DefaultAPIURL = "https://retdec.com/service/api"

const (
	defaultTimeout         = 60 * time.Second
	defaultWaitInterval    = 5 * time.Second
	defaultMaxIdleConns    = 100
	defaultMaxIdlePerHost  = 10
	defaultIdleConnTimeout = 90 * time.Second
	defaultRequestIDHeader = "X-Request-ID"
)

// environment variable names
const (
	envAPIKey              = "RETDEC_API_KEY"
	envAPIURL              = "RETDEC_API_URL"
	envTimeout             = "RETDEC_TIMEOUT"
	envWaitInterval        = "RETDEC_WAIT_INTERVAL"
	envDebug               = "RETDEC_DEBUG"
	envProxy               = "RETDEC_PROXY"
	envExtraHeaders        = "RETDEC_EXTRA_HEADERS"
	envRequestID           = "RETDEC_REQUEST_ID"
	envAutoRequestID       = "RETDEC_AUTO_REQUEST_ID"
	envRequestIDHeader     = "RETDEC_REQUEST_ID_HEADER"
	envMaxIdleConns        = "RETDEC_MAX_IDLE_CONNS"
	envMaxIdleConnsPerHost = "RETDEC_MAX_IDLE_CONNS_PER_HOST"
	envIdleConnTimeout     = "RETDEC_IDLE_CONN_TIMEOUT"
	envConfigFile          = "RETDEC_CONFIG"
)

// LoadConfig resolves a Config from the given API key and URL, falling back
// to the environment:
//
//	RETDEC_API_KEY, RETDEC_API_URL, RETDEC_TIMEOUT, RETDEC_WAIT_INTERVAL,
//	RETDEC_DEBUG, RETDEC_PROXY, RETDEC_EXTRA_HEADERS, RETDEC_REQUEST_ID,
//	RETDEC_AUTO_REQUEST_ID, RETDEC_REQUEST_ID_HEADER, RETDEC_MAX_IDLE_CONNS,
//	RETDEC_MAX_IDLE_CONNS_PER_HOST, RETDEC_IDLE_CONN_TIMEOUT, RETDEC_CONFIG.
//
// Values from a YAML config file rank below environment variables.
func LoadConfig(apiKey, apiURL string) (Config, error) {
	return LoadConfigWithParams(ConfigParams{
		APIKey: apiKey,
		APIURL: apiURL,
	})
}

// LoadConfigWithParams resolves every setting from params, the environment,
// the config file and the defaults, in that order.
func LoadConfigWithParams(params ConfigParams) (Config, error) {
	file, err := loadConfigFile(firstNonEmpty(params.ConfigFile, os.Getenv(envConfigFile)))
	if err != nil {
		return Config{}, err
	}

	r := &resolver{}
	cfg := Config{
		APIKey:           firstNonEmpty(params.APIKey, os.Getenv(envAPIKey), file.APIKey),
		APIURL:           firstNonEmpty(params.APIURL, os.Getenv(envAPIURL), file.APIURL, DefaultAPIURL),
		Timeout:          r.duration(envTimeout, params.timeout(), file.Timeout, defaultTimeout),
		WaitInterval:     r.duration(envWaitInterval, params.WaitInterval, file.WaitInterval, defaultWaitInterval),
		Debug:            r.flag(envDebug, params.Debug, file.Debug, false),
		Logger:           params.Logger,
		RedactHeaders:    params.RedactHeaders,
		ExtraHeaders:     r.headers(params.ExtraHeaders, file.ExtraHeaders),
		ProxyURL:         r.proxy(firstNonEmpty(params.ProxyURL, os.Getenv(envProxy), file.Proxy)),
		RequestIDHeader:  firstNonEmpty(params.RequestIDHeader, os.Getenv(envRequestIDHeader), defaultRequestIDHeader),
		DefaultRequestID: firstNonEmpty(params.RequestID, os.Getenv(envRequestID)),
		AutoRequestID:    r.flag(envAutoRequestID, params.AutoRequestID, nil, true),

		MaxIdleConns:        r.count(envMaxIdleConns, params.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost: r.count(envMaxIdleConnsPerHost, params.MaxIdleConnsPerHost, defaultMaxIdlePerHost),
		IdleConnTimeout:     r.duration(envIdleConnTimeout, params.IdleConnTimeout, "", defaultIdleConnTimeout),

		BeforeRequest: params.BeforeRequest,
		AfterResponse: params.AfterResponse,
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if cfg.RedactHeaders == nil {
		cfg.RedactHeaders = []string{"Authorization", defaultRequestIDHeader}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (p ConfigParams) timeout() time.Duration {
	if p.Timeout != 0 {
		return p.Timeout
	}
	return time.Duration(p.TimeoutSeconds * float64(time.Second))
}

func (c Config) validate() error {
	switch {
	case c.APIKey == "":
		return ErrMissingAPIKey
	case c.Timeout < 0:
		return fmt.Errorf("timeout must be non-negative, got %s", c.Timeout)
	case c.WaitInterval < 0:
		return fmt.Errorf("wait interval must be non-negative, got %s", c.WaitInterval)
	case c.IdleConnTimeout < 0:
		return fmt.Errorf("idle connection timeout must be non-negative, got %s", c.IdleConnTimeout)
	case c.MaxIdleConns < 0 || c.MaxIdleConnsPerHost < 0:
		return fmt.Errorf("idle connection limits must be non-negative")
	}
	if _, err := url.Parse(c.APIURL); err != nil {
		return fmt.Errorf("invalid API URL: %w", err)
	}
	return nil
}

// resolver picks each setting from its layers and keeps the first parse
// error, so LoadConfigWithParams can build the Config in one expression.
type resolver struct {
	err error
}

func (r *resolver) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// duration resolves param > env > file > def. Environment and file values
// may be Go durations ("90s") or plain numbers of seconds.
func (r *resolver) duration(env string, param time.Duration, fileVal string, def time.Duration) time.Duration {
	if param != 0 {
		return param
	}
	if d, err := parseDuration(env, os.Getenv(env)); err != nil {
		r.fail(err)
	} else if d != 0 {
		return d
	}
	fileKey := "config file " + strings.ToLower(strings.TrimPrefix(env, "RETDEC_"))
	if d, err := parseDuration(fileKey, fileVal); err != nil {
		r.fail(err)
	} else if d != 0 {
		return d
	}
	return def
}

func (r *resolver) flag(env string, param, fileVal *bool, def bool) bool {
	if param != nil {
		return *param
	}
	if val := os.Getenv(env); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			r.fail(fmt.Errorf("parse %s: %w", env, err))
			return def
		}
		return parsed
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func (r *resolver) count(env string, param, def int) int {
	if param != 0 {
		return param
	}
	val := os.Getenv(env)
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		r.fail(fmt.Errorf("parse %s: %w", env, err))
		return def
	}
	return n
}

// headers starts from the caller's headers, fills in the config file's and
// appends RETDEC_EXTRA_HEADERS.
func (r *resolver) headers(param http.Header, fileVal map[string]string) http.Header {
	merged := cloneHeaders(param)
	for name, value := range fileVal {
		if merged.Get(name) == "" {
			merged.Set(name, value)
		}
	}
	fromEnv, err := parseHeadersEnv(os.Getenv(envExtraHeaders))
	if err != nil {
		r.fail(fmt.Errorf("parse %s: %w", envExtraHeaders, err))
		return merged
	}
	for name, values := range fromEnv {
		merged[name] = append(merged[name], values...)
	}
	return merged
}

func (r *resolver) proxy(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		r.fail(fmt.Errorf("parse proxy URL: %w", err))
		return nil
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// orDefault returns def when v is the zero value.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// parseDuration accepts Go duration strings and plain numbers of seconds.
func parseDuration(name, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d, nil
	}
	seconds, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// parseHeadersEnv reads "Name=value" or "Name: value" entries separated by
// semicolons, commas or newlines.
func parseHeadersEnv(val string) (http.Header, error) {
	headers := http.Header{}
	entries := strings.FieldsFunc(val, func(r rune) bool {
		return r == ';' || r == ',' || r == '\n'
	})
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			name, value, ok = strings.Cut(entry, ":")
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		headers.Add(name, value)
	}
	return headers, nil
}

func cloneHeaders(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	return h.Clone()
}
