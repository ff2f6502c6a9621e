package whisperapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"podcut/internal/services"
	"podcut/internal/transcription"
)

const (
	DefaultBaseURL          = "https://api.openai.com/v1"
	DefaultModel            = "gpt-4o-transcribe-diarize"
	DefaultResponseFormat   = "diarized_json"
	DefaultChunkingStrategy = "auto"

	transcriptionsPath    = "audio/transcriptions"
	defaultHTTPTimeout    = 5 * time.Minute
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// ErrInvalidResponse marks a 2xx response that is not a usable transcript.
var ErrInvalidResponse = errors.New("invalid transcription response")

// Config captures the settings required to reach the transcription API.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	ResponseFormat   string
	ChunkingStrategy string
	TimeoutSeconds   int
}

// Client posts audio chunks to the transcription endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client, filling unset fields with defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:           strings.TrimSpace(cfg.APIKey),
			BaseURL:          strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:            strings.TrimSpace(cfg.Model),
			ResponseFormat:   strings.TrimSpace(cfg.ResponseFormat),
			ChunkingStrategy: strings.TrimSpace(cfg.ChunkingStrategy),
			TimeoutSeconds:   cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = DefaultModel
	}
	if client.cfg.ResponseFormat == "" {
		client.cfg.ResponseFormat = DefaultResponseFormat
	}
	if client.cfg.ChunkingStrategy == "" {
		client.cfg.ChunkingStrategy = DefaultChunkingStrategy
	}
	return client
}

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcription request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

type transcriptionResponse struct {
	Text     *string  `json:"text"`
	Duration float64  `json:"duration"`
	Language string   `json:"language"`
	Segments []struct {
		ID      json.RawMessage `json:"id"`
		Speaker string          `json:"speaker"`
		Start   float64         `json:"start"`
		End     float64         `json:"end"`
		Text    string          `json:"text"`
	} `json:"segments"`
	Words []transcription.Word `json:"words"`
}

// TranscribeChunk uploads one chunk and decodes the response.
func (c *Client) TranscribeChunk(ctx context.Context, upload transcription.ChunkUpload) (transcription.ChunkResult, error) {
	if c.cfg.APIKey == "" {
		return transcription.ChunkResult{}, services.Wrap(services.ErrConfiguration, "whisperapi", "transcribe", "api key required", nil)
	}
	if upload.Body == nil {
		return transcription.ChunkResult{}, errors.New("transcription request: chunk body required")
	}
	body, contentType, err := c.encodeForm(upload)
	if err != nil {
		return transcription.ChunkResult{}, err
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.sendOnce(ctx, body, contentType)
		if err == nil {
			return result, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return transcription.ChunkResult{}, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return transcription.ChunkResult{}, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return transcription.ChunkResult{}, fmt.Errorf("transcription request: failed after %d attempts: %w", attempts, lastErr)
}

// encodeForm buffers the multipart body once so retries can resend it.
func (c *Client) encodeForm(upload transcription.ChunkUpload) ([]byte, string, error) {
	var buf bytes.Buffer
	if upload.Size > 0 {
		buf.Grow(int(upload.Size) + 1024)
	}
	form := multipart.NewWriter(&buf)

	name := upload.FileName
	if name == "" {
		name = "audio"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("transcription request: create file part: %w", err)
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return nil, "", fmt.Errorf("transcription request: read chunk: %w", err)
	}
	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", c.cfg.ResponseFormat},
		{"chunking_strategy", c.cfg.ChunkingStrategy},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("transcription request: write %s: %w", field[0], err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("transcription request: close form: %w", err)
	}
	return buf.Bytes(), form.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (c *Client) sendOnce(ctx context.Context, body []byte, contentType string) (transcription.ChunkResult, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, transcriptionsPath)
	if err != nil {
		return transcription.ChunkResult{}, fmt.Errorf("transcription request: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return transcription.ChunkResult{}, fmt.Errorf("transcription request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transcription.ChunkResult{}, fmt.Errorf("transcription request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return transcription.ChunkResult{}, fmt.Errorf("transcription request: read body: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return transcription.ChunkResult{}, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}
	return decodeResponse(payload)
}

func decodeResponse(payload []byte) (transcription.ChunkResult, error) {
	var decoded transcriptionResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return transcription.ChunkResult{}, fmt.Errorf("%w: decode: %w", ErrInvalidResponse, err)
	}
	if decoded.Text == nil {
		return transcription.ChunkResult{}, fmt.Errorf("%w: missing text field", ErrInvalidResponse)
	}
	result := transcription.ChunkResult{
		Text:     strings.TrimSpace(*decoded.Text),
		Duration: decoded.Duration,
		Language: decoded.Language,
		Words:    decoded.Words,
		Segments: make([]transcription.Segment, 0, len(decoded.Segments)),
	}
	for _, seg := range decoded.Segments {
		result.Segments = append(result.Segments, transcription.Segment{
			ID:      rawID(seg.ID),
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return result, nil
}

// rawID accepts both string and numeric segment ids.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (c *Client) timeoutDuration() time.Duration {
	if c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if !statusErr.Retryable() {
			return 0, false
		}
		if statusErr.RetryAfter > 0 {
			return c.capDelay(statusErr.RetryAfter), true
		}
		return c.backoffDelay(attempt), true
	}

	if errors.Is(err, ErrInvalidResponse) {
		return 0, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	return min(delay, maxDelay)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
