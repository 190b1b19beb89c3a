package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stockpilot/internal/logger"
	"stockpilot/internal/types"
)

const systemPrompt = `You are an equity day-trading analyst. You receive one stock candidate
with its raw metrics and factor score breakdown. Reply with a single JSON
object and nothing else:
{"action": "buy"|"hold"|"sell", "confidence": 0.0-1.0, "reasoning": "..."}`

// ChatAdvisor talks to an OpenAI-compatible chat completions endpoint.
type ChatAdvisor struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64

	client     *http.Client
	retryDelay time.Duration
}

func NewChatAdvisor(baseURL, apiKey, model string, timeout time.Duration) *ChatAdvisor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatAdvisor{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		Timeout:    timeout,
		MaxRetries: 2,
		client:     &http.Client{Timeout: timeout},
		retryDelay: 500 * time.Millisecond,
	}
}

func (a *ChatAdvisor) Analyze(ctx context.Context, candidate types.Candidate) (types.AIRecommendation, error) {
	user, err := renderCandidate(candidate)
	if err != nil {
		return types.AIRecommendation{}, err
	}
	raw, err := a.complete(ctx, systemPrompt, user)
	if err != nil {
		if ctx.Err() != nil || isDeadline(err) {
			return types.AIRecommendation{}, &TimeoutError{StockCode: candidate.StockCode, Err: err}
		}
		return types.AIRecommendation{}, err
	}
	logger.AIDumpf("stock=%s response=%s", candidate.StockCode, raw)
	rec, err := ParseRecommendation(raw)
	if err != nil {
		return types.AIRecommendation{}, fmt.Errorf("advisor output for %s rejected: %w", candidate.StockCode, err)
	}
	return rec, nil
}

func (a *ChatAdvisor) complete(ctx context.Context, system, user string) (string, error) {
	endpoint := strings.TrimRight(a.BaseURL, "/")
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	// Tolerate configs that already include the completions path.
	endpoint = strings.TrimSuffix(endpoint, "/chat/completions") + "/chat/completions"

	body, _ := json.Marshal(map[string]any{
		"model": a.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": a.Temperature,
	})

	maxRetries := a.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := a.waitRetry(ctx, attempt); err != nil {
				break
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		if a.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+a.APIKey)
		}
		resp, err := a.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.StatusCode/100 == 2 {
			var parsed struct {
				Choices []struct {
					Message struct {
						Content string `json:"content"`
					} `json:"message"`
				} `json:"choices"`
			}
			derr := json.NewDecoder(resp.Body).Decode(&parsed)
			resp.Body.Close()
			if derr != nil {
				return "", derr
			}
			if len(parsed.Choices) == 0 {
				return "", fmt.Errorf("empty choices")
			}
			return parsed.Choices[0].Message.Content, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("http %d from %s", resp.StatusCode, endpoint)
		// Retry only throttling and server-side errors.
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode/100 != 5 {
			break
		}
	}
	return "", lastErr
}

// waitRetry sleeps before the next attempt, linearly backed off, and bails
// out early when the request context dies.
func (a *ChatAdvisor) waitRetry(ctx context.Context, attempt int) error {
	delay := a.retryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	timer := time.NewTimer(time.Duration(attempt) * delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func renderCandidate(c types.Candidate) (string, error) {
	payload, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding candidate failed: %w", err)
	}
	return "Candidate under review:\n" + string(payload), nil
}

func isDeadline(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "Client.Timeout exceeded")
}
