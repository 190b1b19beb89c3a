package app

import (
	"fmt"

	"stockpilot/internal/advisor"
	"stockpilot/internal/config"
	"stockpilot/internal/decision"
	"stockpilot/internal/gateway/kis"
	"stockpilot/internal/logger"
	"stockpilot/internal/portfolio"
	"stockpilot/internal/risk"
	"stockpilot/internal/scanner"
	"stockpilot/internal/scoring"
	"stockpilot/internal/store/decisionlog"
	monitorhttp "stockpilot/internal/transport/http"
)

// NewApp assembles every component from config. Nothing is started here; Run
// does that. Any validation failure is returned as-is and treated as fatal
// by main.
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	riskEng, err := buildRiskEngine(cfg.Risk)
	if err != nil {
		return nil, err
	}

	pf, err := portfolio.NewStore(cfg.Trading.PortfolioDBPath, cfg.Trading.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("opening portfolio store: %w", err)
	}

	logs, err := decisionlog.NewStore(cfg.Trading.DecisionLogPath)
	if err != nil {
		pf.CloseDB()
		return nil, fmt.Errorf("opening decision log: %w", err)
	}

	provider, err := kis.New(kis.Config{
		BaseURL:        cfg.Market.BaseURL,
		AppKey:         cfg.Market.AppKey,
		AppSecret:      cfg.Market.AppSecret,
		HTTPTimeout:    cfg.Market.Timeout(),
		RequestsPerSec: cfg.Market.RatePerSecond,
		Burst:          cfg.Market.Burst,
	})
	if err != nil {
		pf.CloseDB()
		logs.Close()
		return nil, fmt.Errorf("building market provider: %w", err)
	}

	engine, weights, err := buildScoringEngine(cfg.Scoring)
	if err != nil {
		pf.CloseDB()
		logs.Close()
		return nil, err
	}

	adv := buildAdvisor(cfg.Advisor)

	funnel := scanner.New(scanner.Config{
		FastInterval:    cfg.Funnel.FastInterval(),
		DeepInterval:    cfg.Funnel.DeepInterval(),
		AIInterval:      cfg.Funnel.AIInterval(),
		FastLimit:       cfg.Funnel.FastLimit,
		DeepLimit:       cfg.Funnel.DeepLimit,
		AILimit:         cfg.Funnel.AILimit,
		HistoryBars:     cfg.Funnel.HistoryBars,
		DeepConcurrency: cfg.Funnel.DeepConcurrency,
		AIConcurrency:   cfg.Funnel.AIConcurrency,
		AITimeout:       cfg.Funnel.AITimeout(),
	}, filtersFromConfig(cfg.Funnel.Filters), provider, adv, engine)

	exec := decision.NewPaperExecutor(cfg.Trading.Slippage)
	coord := decision.NewCoordinator(riskEng, pf, exec, logs)
	exec.SetSink(coord)
	funnel.SetFinalListener(coord.OnFinalSnapshot)

	httpSrv, err := monitorhttp.NewServer(monitorhttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Funnel:    funnel,
		RiskEng:   riskEng,
		Portfolio: pf,
		Logs:      logs,
	})
	if err != nil {
		pf.CloseDB()
		logs.Close()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		cfgPath:   cfgPath,
		provider:  provider,
		funnel:    funnel,
		riskEng:   riskEng,
		portfolio: pf,
		coord:     coord,
		logs:      logs,
		httpSrv:   httpSrv,
		summary:   buildSummary(cfg, riskEng, weights),
	}, nil
}

func buildRiskEngine(cfg config.RiskConfig) (*risk.Engine, error) {
	table := risk.DefaultTable()
	for name, o := range cfg.Modes {
		mode := risk.Mode(name)
		table[mode] = risk.ModeParams{
			Mode:              mode,
			MaxOpenPositions:  o.MaxOpenPositions,
			RiskPerTradeRatio: o.RiskPerTradeRatio,
			TakeProfitRatio:   o.TakeProfitRatio,
			StopLossRatio:     o.StopLossRatio,
		}
	}
	eng, err := risk.NewEngine(table, cfg.HysteresisK)
	if err != nil {
		return nil, fmt.Errorf("risk mode table rejected: %w", err)
	}
	return eng, nil
}

func buildScoringEngine(cfg config.ScoringConfig) (*scoring.Engine, map[string]float64, error) {
	var weights map[string]float64
	if cfg.WeightsPath != "" {
		var err error
		weights, err = scoring.LoadWeights(cfg.WeightsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading weight profile %s: %w", cfg.WeightsPath, err)
		}
	}
	return scoring.NewEngine(scoring.DefaultCriteria(weights)), weights, nil
}

func buildAdvisor(cfg config.AdvisorConfig) advisor.Advisor {
	chat := advisor.NewChatAdvisor(cfg.APIURL, cfg.APIKey, cfg.Model, cfg.Timeout())
	chat.Temperature = cfg.Temperature
	chat.MaxRetries = cfg.MaxRetries
	logger.EnableAIPayloadDump(cfg.DumpPayloads)
	return advisor.WithBreaker(chat, cfg.BreakerThreshold, cfg.BreakerReset())
}

func filtersFromConfig(f config.FilterConfig) scanner.Filters {
	return scanner.Filters{
		MinPrice:      f.MinPrice,
		MaxPrice:      f.MaxPrice,
		MinVolume:     f.MinVolume,
		MinScorePct:   f.MinScorePct,
		MinConfidence: f.MinConfidence,
	}
}
