package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"stockpilot/internal/config"
	"stockpilot/internal/decision"
	"stockpilot/internal/logger"
	"stockpilot/internal/market"
	"stockpilot/internal/portfolio"
	"stockpilot/internal/risk"
	"stockpilot/internal/scanner"
	"stockpilot/internal/scheduler"
	"stockpilot/internal/store/decisionlog"
	monitorhttp "stockpilot/internal/transport/http"
)

// App owns every long-lived component and runs them under one errgroup.
type App struct {
	cfg     *config.Config
	cfgPath string

	provider  market.Provider
	funnel    *scanner.Funnel
	riskEng   *risk.Engine
	portfolio *portfolio.Store
	coord     *decision.Coordinator
	logs      *decisionlog.Store
	httpSrv   *monitorhttp.Server
	summary   *StartupSummary
}

// Run starts the funnel, the exit and equity loops and the HTTP server, and
// blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	if a.summary != nil {
		a.summary.Print()
	}

	if a.cfgPath != "" {
		if err := config.WatchFilters(a.cfgPath, func(f config.FilterConfig) {
			a.funnel.UpdateFilters(filtersFromConfig(f))
		}); err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	a.coord.BindContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("monitor http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return a.funnel.Run(ctx)
	})

	exitJob := scheduler.NewIntervalJob("exit-check", a.cfg.Trading.ExitCheckInterval())
	group.Go(func() error {
		exitJob.Run(ctx, a.runExitCheck)
		return nil
	})

	equityJob := scheduler.NewIntervalJob("equity-update", a.cfg.Trading.EquityUpdateInterval())
	equityJob.RunImmediately = true
	group.Go(func() error {
		equityJob.Run(ctx, a.runEquityUpdate)
		return nil
	})

	logger.Infof("stockpilot running (http=%s)", a.httpSrv.Addr())
	return group.Wait()
}

// runExitCheck marks every held stock to market and lets the coordinator
// latch breached positions.
func (a *App) runExitCheck(ctx context.Context) {
	marks := a.collectMarks(ctx)
	if len(marks) == 0 {
		return
	}
	a.coord.EvaluateExits(marks)
}

// runEquityUpdate recomputes portfolio equity and feeds the risk state
// machine. Missing marks fall back to entry prices inside the store.
func (a *App) runEquityUpdate(ctx context.Context) {
	marks := a.collectMarks(ctx)
	equity, baseline := a.portfolio.EquityAgainst(marks)
	a.riskEng.OnEquityUpdate(equity, baseline)
}

func (a *App) collectMarks(ctx context.Context) map[string]float64 {
	positions := a.portfolio.Positions()
	marks := make(map[string]float64, len(positions))
	for code := range positions {
		price, err := a.provider.LatestPrice(ctx, code)
		if err != nil {
			logger.Warnf("app: latest price for %s unavailable: %v", code, err)
			continue
		}
		marks[code] = price
	}
	return marks
}

func (a *App) close() {
	if err := a.portfolio.CloseDB(); err != nil {
		logger.Warnf("app: closing portfolio store: %v", err)
	}
	if err := a.logs.Close(); err != nil {
		logger.Warnf("app: closing decision log: %v", err)
	}
}
