package kis

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"stockpilot/internal/market"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const maxHistoryBars = 400

// Source implements market.Provider against a KIS-style quote REST API.
// All top-level fetch failures come back as *market.DataUnavailableError so
// the funnel can apply its stale-but-available policy.
type Source struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.BaseURL) == "" {
		return nil, fmt.Errorf("kis: base_url is required")
	}
	return &Source{
		cfg:     final,
		client:  &http.Client{Timeout: final.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(final.RequestsPerSec), final.Burst),
	}, nil
}

func (s *Source) UniverseSnapshot(ctx context.Context) ([]market.UniverseEntry, error) {
	raw, err := s.get(ctx, "/quote/ranking/turnover", nil)
	if err != nil {
		return nil, market.Unavailable("universe snapshot", err)
	}
	rows := gjson.GetBytes(raw, "output")
	if !rows.Exists() || !rows.IsArray() {
		return nil, market.Unavailable("universe snapshot", fmt.Errorf("missing output array"))
	}
	out := make([]market.UniverseEntry, 0, 512)
	rows.ForEach(func(_, row gjson.Result) bool {
		code := strings.TrimSpace(row.Get("mksc_shrn_iscd").String())
		if code == "" {
			return true
		}
		out = append(out, market.UniverseEntry{
			StockCode: code,
			Price:     row.Get("stck_prpr").Float(),
			Volume:    row.Get("acml_vol").Int(),
			AvgVolume: row.Get("avrg_vol").Int(),
			Turnover:  row.Get("acml_tr_pbmn").Float(),
			ChangePct: row.Get("prdy_ctrt").Float(),
		})
		return true
	})
	return out, nil
}

func (s *Source) InstitutionalFlow(ctx context.Context, stockCode string) (market.FlowSummary, error) {
	raw, err := s.get(ctx, "/quote/investor", url.Values{"code": {stockCode}})
	if err != nil {
		return market.FlowSummary{}, market.Unavailable("institutional flow", err)
	}
	node := gjson.GetBytes(raw, "output")
	if !node.Exists() {
		return market.FlowSummary{}, market.Unavailable("institutional flow", fmt.Errorf("missing output"))
	}
	return market.FlowSummary{
		NetBuyQty:   node.Get("orgn_ntby_qty").Float(),
		NetBuyValue: node.Get("orgn_ntby_tr_pbmn").Float(),
	}, nil
}

func (s *Source) Orderbook(ctx context.Context, stockCode string) (market.Orderbook, error) {
	raw, err := s.get(ctx, "/quote/orderbook", url.Values{"code": {stockCode}})
	if err != nil {
		return market.Orderbook{}, market.Unavailable("orderbook", err)
	}
	book := market.Orderbook{}
	gjson.GetBytes(raw, "output.bids").ForEach(func(_, lvl gjson.Result) bool {
		book.Bids = append(book.Bids, market.DepthLevel{
			Price:    lvl.Get("price").Float(),
			Quantity: lvl.Get("qty").Int(),
		})
		return true
	})
	gjson.GetBytes(raw, "output.asks").ForEach(func(_, lvl gjson.Result) bool {
		book.Asks = append(book.Asks, market.DepthLevel{
			Price:    lvl.Get("price").Float(),
			Quantity: lvl.Get("qty").Int(),
		})
		return true
	})
	if len(book.Bids) == 0 && len(book.Asks) == 0 {
		return market.Orderbook{}, market.Unavailable("orderbook", fmt.Errorf("empty book for %s", stockCode))
	}
	return book, nil
}

func (s *Source) CloseHistory(ctx context.Context, stockCode string, bars int) ([]float64, error) {
	if bars <= 0 {
		bars = 30
	}
	if bars > maxHistoryBars {
		bars = maxHistoryBars
	}
	raw, err := s.get(ctx, "/quote/daily", url.Values{
		"code": {stockCode},
		"bars": {fmt.Sprintf("%d", bars)},
	})
	if err != nil {
		return nil, market.Unavailable("close history", err)
	}
	rows := gjson.GetBytes(raw, "output")
	if !rows.IsArray() {
		return nil, market.Unavailable("close history", fmt.Errorf("missing output array"))
	}
	// API returns newest first; callers want oldest first.
	var closes []float64
	rows.ForEach(func(_, row gjson.Result) bool {
		closes = append(closes, row.Get("stck_clpr").Float())
		return true
	})
	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}
	return closes, nil
}

func (s *Source) LatestPrice(ctx context.Context, stockCode string) (float64, error) {
	raw, err := s.get(ctx, "/quote/price", url.Values{"code": {stockCode}})
	if err != nil {
		return 0, market.Unavailable("latest price", err)
	}
	price := gjson.GetBytes(raw, "output.stck_prpr").Float()
	if price <= 0 {
		return 0, market.Unavailable("latest price", fmt.Errorf("no price for %s", stockCode))
	}
	return price, nil
}

func (s *Source) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("appkey", s.cfg.AppKey)
	req.Header.Set("appsecret", s.cfg.AppSecret)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, firstLine(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json response")
	}
	return body, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
