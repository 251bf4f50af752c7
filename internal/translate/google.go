package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"todo/internal/service"
)

// GoogleEndpoint is the public gtx translation endpoint.
const GoogleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Google translates directly against the public Google endpoint, auto-detecting
// the source language.
type Google struct {
	limiter *rate.Limiter
	options
}

// NewGoogle creates a Google provider issuing at most perSecond requests.
func NewGoogle(perSecond float64, opts ...Option) *Google {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	g := &Google{
		limiter: rate.NewLimiter(limit, 1),
		options: newOptions(opts),
	}
	if g.endpoint == "" {
		g.endpoint = GoogleEndpoint
	}
	return g
}

// Translate implements service.Translator.
func (g *Google) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", targetLang)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", wrapError(err)
	}
	defer resp.Body.Close()
	g.logger.Debug("google translate", "lang", targetLang, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translate: unexpected status %d", resp.StatusCode)
	}

	var body []any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", service.ErrMalformed, err)
	}
	return firstSegment(body)
}

// firstSegment reads body[0][0][0].
func firstSegment(body []any) (string, error) {
	if len(body) == 0 {
		return "", service.ErrMalformed
	}
	sentences, ok := body[0].([]any)
	if !ok || len(sentences) == 0 {
		return "", service.ErrMalformed
	}
	first, ok := sentences[0].([]any)
	if !ok || len(first) == 0 {
		return "", service.ErrMalformed
	}
	s, ok := first[0].(string)
	if !ok {
		return "", service.ErrMalformed
	}
	return s, nil
}

// TranslateBatch implements service.Translator with one paced request per text.
func (g *Google) TranslateBatch(ctx context.Context, texts []string, targetLang string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		tr, err := g.Translate(ctx, text, targetLang)
		if err != nil {
			if ctx.Err() != nil {
				return out, err
			}
			g.logger.Debug("translate item failed", "index", i, "err", err)
			continue
		}
		out[i] = tr
	}
	return out, nil
}
