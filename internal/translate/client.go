// Package translate implements the translation providers used by the board.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"todo/internal/logging"
	"todo/internal/service"
)

// Timeout is the per-call timeout for translation requests.
const Timeout = 10 * time.Second

// Variant selects the backend translation endpoint.
type Variant string

const (
	// VariantBatch posts to /translate and supports {texts} batches.
	VariantBatch Variant = "batch"

	// VariantSingle posts to /api/translate, one text per request.
	VariantSingle Variant = "single"
)

// ParseVariant parses a variant name; empty means batch.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantBatch:
		return VariantBatch, nil
	case VariantSingle:
		return VariantSingle, nil
	}
	return "", fmt.Errorf("invalid translate variant: %s", s)
}

type options struct {
	httpClient *http.Client
	logger     *log.Logger
	timeout    time.Duration
	endpoint   string
}

// Option configures a provider.
type Option func(*options)

// WithHTTPClient sets the HTTP client, e.g. one carrying the session cookies.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithEndpoint overrides the provider URL.
func WithEndpoint(u string) Option {
	return func(o *options) { o.endpoint = u }
}

func newOptions(opts []Option) options {
	o := options{
		httpClient: http.DefaultClient,
		logger:     logging.Discard(),
		timeout:    Timeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client calls the translation endpoints of the task backend.
type Client struct {
	base    string
	variant Variant
	options
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, variant Variant, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		variant: variant,
		options: newOptions(opts),
	}
	if c.endpoint != "" {
		c.base = strings.TrimRight(c.endpoint, "/")
	}
	return c
}

type singleRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
}

type batchRequest struct {
	Texts      []string `json:"texts"`
	TargetLang string   `json:"target_lang"`
}

// Translate implements service.Translator.
func (c *Client) Translate(ctx context.Context, text, targetLang string) (string, error) {
	req := singleRequest{Text: text, TargetLang: targetLang}

	if c.variant == VariantSingle {
		var resp struct {
			TranslatedText string `json:"translated_text"`
		}
		if err := c.post(ctx, "/api/translate", req, &resp); err != nil {
			return "", err
		}
		return resp.TranslatedText, nil
	}

	var resp struct {
		Translated string `json:"translated"`
	}
	if err := c.post(ctx, "/translate", req, &resp); err != nil {
		return "", err
	}
	return resp.Translated, nil
}

// TranslateBatch implements service.Translator.
// The single variant issues one request per text and keeps going after a failure.
func (c *Client) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}

	if c.variant == VariantSingle {
		out := make([]string, len(texts))
		for i, text := range texts {
			tr, err := c.Translate(ctx, text, targetLang)
			if err != nil {
				if ctx.Err() != nil {
					return out, err
				}
				c.logger.Debug("translate item failed", "index", i, "err", err)
				continue
			}
			out[i] = tr
		}
		return out, nil
	}

	var resp struct {
		Translations []*string `json:"translations"`
	}
	if err := c.post(ctx, "/translate", batchRequest{Texts: texts, TargetLang: targetLang}, &resp); err != nil {
		return nil, err
	}

	out := make([]string, len(texts))
	for i := range out {
		if i < len(resp.Translations) && resp.Translations[i] != nil {
			out[i] = *resp.Translations[i]
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()
	c.logger.Debug("translate", "path", path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("translate: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", service.ErrMalformed, err)
	}
	return nil
}

func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	return fmt.Errorf("translate: %w", err)
}
