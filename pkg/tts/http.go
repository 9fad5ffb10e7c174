package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// jsonPoster sends JSON requests to an HTTP TTS API and returns the raw
// response body. Retries honour Config.MaxRetries, which is 0 by default.
type jsonPoster struct {
	client     *http.Client
	config     *Config
	logger     *slog.Logger
	headers    func(*http.Request)
	parseError func(status int, body []byte) *APIError
}

func (p *jsonPoster) post(ctx context.Context, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		p.headers(req)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			apiErr := p.parseError(resp.StatusCode, data)
			lastErr = apiErr
			if !apiErr.IsRetryable() {
				break
			}
			p.logger.Warn("retryable API error", "attempt", attempt+1, "status", resp.StatusCode)
			continue
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return data, nil
	}
	return nil, lastErr
}

// errorMessage falls back to the raw body when no structured message exists.
func errorMessage(structured string, body []byte) string {
	if structured != "" {
		return structured
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
