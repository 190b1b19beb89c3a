package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpilot/internal/types"
)

func chatResponse(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestChatAdvisorAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, chatResponse(`{"action":"buy","confidence":0.9,"reasoning":"ok"}`))
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "test-key", "gpt-4o-mini", 5*time.Second)
	rec, err := a.Analyze(context.Background(), types.Candidate{StockCode: "005930"})
	require.NoError(t, err)
	assert.Equal(t, "buy", rec.Action)
	assert.InDelta(t, 0.9, rec.Confidence, 1e-9)
}

func TestChatAdvisorRetriesThrottling(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chatResponse(`{"action":"hold","confidence":0.5}`))
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "", "gpt-4o-mini", 5*time.Second)
	a.retryDelay = time.Millisecond
	rec, err := a.Analyze(context.Background(), types.Candidate{StockCode: "000660"})
	require.NoError(t, err)
	assert.Equal(t, "hold", rec.Action)
	assert.Equal(t, 2, calls)
}

func TestChatAdvisorRequestCarriesTemperature(t *testing.T) {
	var gotTemp float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Temperature float64 `json:"temperature"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTemp = req.Temperature
		fmt.Fprint(w, chatResponse(`{"action":"hold","confidence":0.5}`))
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "", "gpt-4o-mini", 5*time.Second)
	a.Temperature = 0.7
	_, err := a.Analyze(context.Background(), types.Candidate{StockCode: "005930"})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, gotTemp, 1e-9)
}

func TestChatAdvisorHonorsMaxRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "", "gpt-4o-mini", 5*time.Second)
	a.MaxRetries = 4
	a.retryDelay = time.Millisecond
	_, err := a.Analyze(context.Background(), types.Candidate{StockCode: "005930"})
	require.Error(t, err)
	assert.Equal(t, 5, calls)
}

func TestChatAdvisorBacksOffBetweenRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chatResponse(`{"action":"hold","confidence":0.5}`))
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "", "gpt-4o-mini", 5*time.Second)
	a.retryDelay = 50 * time.Millisecond
	start := time.Now()
	_, err := a.Analyze(context.Background(), types.Candidate{StockCode: "005930"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestChatAdvisorTimeoutTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, chatResponse(`{"action":"hold","confidence":0.5}`))
	}))
	defer srv.Close()

	a := NewChatAdvisor(srv.URL, "", "gpt-4o-mini", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Analyze(ctx, types.Candidate{StockCode: "005930"})
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

type scriptedAdvisor struct {
	err error
	rec types.AIRecommendation
}

func (s *scriptedAdvisor) Analyze(context.Context, types.Candidate) (types.AIRecommendation, error) {
	return s.rec, s.err
}

func TestBreakerAdvisorOpensAfterFailures(t *testing.T) {
	inner := &scriptedAdvisor{err: fmt.Errorf("backend down")}
	wrapped := WithBreaker(inner, 2, time.Minute)
	ctx := context.Background()

	_, err := wrapped.Analyze(ctx, types.Candidate{StockCode: "005930"})
	assert.Error(t, err)
	_, err = wrapped.Analyze(ctx, types.Candidate{StockCode: "005930"})
	assert.Error(t, err)

	// Breaker is now open: the inner advisor must not be reached.
	inner.err = nil
	inner.rec = types.AIRecommendation{Action: "buy", Confidence: 1}
	_, err = wrapped.Analyze(ctx, types.Candidate{StockCode: "005930"})
	assert.ErrorContains(t, err, "circuit open")
}
