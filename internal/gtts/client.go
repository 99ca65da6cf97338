// Package gtts synthesizes speech through Google Translate's text-to-speech
// endpoint, either directly over HTTP or by running gtts-cli.
package gtts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/go-tts-form/internal/text"
	"github.com/example/go-tts-form/internal/tts"
)

const (
	DefaultLanguage = "en"
	DefaultTLD      = "com"
	DefaultTimeout  = 30 * time.Second

	rpcID      = "jQ1olc"
	rpcPath    = "/_/TranslateWebserverUi/data/batchexecute"
	userAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	formHeader = "application/x-www-form-urlencoded;charset=utf-8"
)

var (
	ErrNoAudio    = errors.New("no audio stream in response, unsupported language?")
	ErrNoText     = errors.New("no text to speak")
	ErrBadToken   = errors.New("bad token or upstream API changes")
	ErrBadTLD     = errors.New("unsupported tld")
	ErrUpstream   = errors.New("upstream API error")
	audioInLineRe = regexp.MustCompile(`jQ1olc","\[\\"(.*)\\"]`)
)

// Client speaks the batchexecute protocol used by translate.google.<tld>.
type Client struct {
	baseURL     string
	tld         string
	lang        string
	slow        bool
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxChunkLen int
}

type Option func(*Client)

// WithBaseURL overrides the endpoint host, e.g. for tests or a proxy.
// It takes precedence over WithTLD.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

func WithTLD(tld string) Option {
	return func(c *Client) {
		if tld = strings.TrimSpace(tld); tld != "" {
			c.tld = tld
		}
	}
}

func WithDefaultLanguage(lang string) Option {
	return func(c *Client) {
		if lang = strings.TrimSpace(lang); lang != "" {
			c.lang = lang
		}
	}
}

func WithSlow(slow bool) Option {
	return func(c *Client) {
		c.slow = slow
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit caps outbound requests per second. rps <= 0 disables the
// limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		tld:         DefaultTLD,
		lang:        DefaultLanguage,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		logger:      slog.Default(),
		maxChunkLen: text.MaxCloudChars,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Format() tts.Format { return tts.FormatMP3 }

// Synthesize returns MP3 audio for input. Long input is split into chunks
// and the per-chunk streams are concatenated.
func (c *Client) Synthesize(ctx context.Context, input, lang string) (tts.Audio, error) {
	if lang == "" {
		lang = c.lang
	}

	cleaned, err := text.Normalize(input)
	if err != nil {
		return nil, ErrNoText
	}

	chunks := text.SplitForSpeech(cleaned, c.maxChunkLen)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	var out bytes.Buffer
	for i, chunk := range chunks {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		start := time.Now()
		if err := c.synthesizeChunk(ctx, chunk, lang, &out); err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}

		c.logger.Debug("gtts chunk synthesized",
			slog.Int("chunk", i+1),
			slog.Int("chunks", len(chunks)),
			slog.Int("chars", len(chunk)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}

	return tts.EncodedAudio(out.Bytes()), nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return ctx.Err()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// Endpoint returns the batchexecute URL requests are posted to.
func (c *Client) Endpoint() string {
	base := c.baseURL
	if base == "" {
		base = "https://translate.google." + c.tld
	}
	return base + rpcPath
}

func (c *Client) synthesizeChunk(ctx context.Context, chunk, lang string, out io.Writer) error {
	body, err := requestBody(chunk, lang, c.slow)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Referer", "https://translate.google."+c.tld+"/")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", formHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	return extractAudio(resp.Body, out)
}

// requestBody builds the f.req form value. The inner payload is itself a
// JSON string embedded in the outer array.
func requestBody(chunk, lang string, slow bool) (string, error) {
	var speed any
	if slow {
		speed = true
	}

	inner, err := marshalCompact([]any{chunk, lang, speed, "null"})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	outer, err := marshalCompact([]any{[]any{[]any{rpcID, inner, nil, "generic"}}})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	return "f.req=" + url.QueryEscape(outer) + "&", nil
}

func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func statusError(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusForbidden:
		return fmt.Errorf("%d (%s): %w", code, http.StatusText(code), ErrBadToken)
	case code == http.StatusNotFound:
		return fmt.Errorf("%d (%s): %w", code, http.StatusText(code), ErrBadTLD)
	case code >= 500:
		return fmt.Errorf("%d (%s): %w", code, http.StatusText(code), ErrUpstream)
	default:
		return fmt.Errorf("unexpected status %d (%s)", code, http.StatusText(code))
	}
}

// extractAudio scans a batchexecute response for the base64 audio payload.
func extractAudio(r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, rpcID) {
			continue
		}

		m := audioInLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(m[1])
		if err != nil {
			return fmt.Errorf("decode audio: %w", err)
		}
		if _, err := out.Write(decoded); err != nil {
			return err
		}
		found = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if !found {
		return ErrNoAudio
	}
	return nil
}
