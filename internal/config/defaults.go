package config

const (
	defaultLogLevel        = "info"
	defaultHTTPAddr        = ":8080"
	defaultMarketTimeout   = 10
	defaultMarketRate      = 15.0
	defaultMarketBurst     = 5
	defaultFastInterval    = 10
	defaultDeepInterval    = 60
	defaultAIInterval      = 300
	defaultFastLimit       = 50
	defaultDeepLimit       = 20
	defaultAILimit         = 5
	defaultHistoryBars     = 30
	defaultDeepConcurrency = 4
	defaultAIConcurrency   = 2
	defaultAITimeout       = 45
	defaultMinPrice        = 1_000
	defaultMaxPrice        = 100_000
	defaultMinVolume       = 100_000
	defaultMinScorePct     = 60.0
	defaultMinConfidence   = 0.6
	defaultAdvisorTimeout  = 60
	defaultAdvisorRetries  = 2
	defaultBreakerTrips    = 3
	defaultBreakerReset    = 120
	defaultInitialCash     = 10_000_000
	defaultExitCheck       = 5
	defaultEquityUpdate    = 30
	defaultPortfolioDB     = "data/portfolio.db"
	defaultDecisionLog     = "data/decisions.db"
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultHTTPAddr
	}

	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = defaultMarketTimeout
	}
	if c.Market.RatePerSecond <= 0 {
		c.Market.RatePerSecond = defaultMarketRate
	}
	if c.Market.Burst <= 0 {
		c.Market.Burst = defaultMarketBurst
	}

	f := &c.Funnel
	if f.FastIntervalSeconds <= 0 {
		f.FastIntervalSeconds = defaultFastInterval
	}
	if f.DeepIntervalSeconds <= 0 {
		f.DeepIntervalSeconds = defaultDeepInterval
	}
	if f.AIIntervalSeconds <= 0 {
		f.AIIntervalSeconds = defaultAIInterval
	}
	if f.FastLimit <= 0 {
		f.FastLimit = defaultFastLimit
	}
	if f.DeepLimit <= 0 {
		f.DeepLimit = defaultDeepLimit
	}
	if f.AILimit <= 0 {
		f.AILimit = defaultAILimit
	}
	if f.HistoryBars <= 0 {
		f.HistoryBars = defaultHistoryBars
	}
	if f.DeepConcurrency <= 0 {
		f.DeepConcurrency = defaultDeepConcurrency
	}
	if f.AIConcurrency <= 0 {
		f.AIConcurrency = defaultAIConcurrency
	}
	if f.AITimeoutSeconds <= 0 {
		f.AITimeoutSeconds = defaultAITimeout
	}
	if f.Filters.MinPrice <= 0 {
		f.Filters.MinPrice = defaultMinPrice
	}
	if f.Filters.MaxPrice <= 0 {
		f.Filters.MaxPrice = defaultMaxPrice
	}
	if f.Filters.MinVolume <= 0 {
		f.Filters.MinVolume = defaultMinVolume
	}
	if f.Filters.MinScorePct <= 0 {
		f.Filters.MinScorePct = defaultMinScorePct
	}
	if f.Filters.MinConfidence <= 0 {
		f.Filters.MinConfidence = defaultMinConfidence
	}

	if c.Risk.HysteresisK <= 0 {
		c.Risk.HysteresisK = 1
	}

	if c.Advisor.TimeoutSeconds <= 0 {
		c.Advisor.TimeoutSeconds = defaultAdvisorTimeout
	}
	if c.Advisor.MaxRetries < 0 {
		c.Advisor.MaxRetries = defaultAdvisorRetries
	}
	if c.Advisor.BreakerThreshold <= 0 {
		c.Advisor.BreakerThreshold = defaultBreakerTrips
	}
	if c.Advisor.BreakerResetSeconds <= 0 {
		c.Advisor.BreakerResetSeconds = defaultBreakerReset
	}

	if c.Trading.InitialCash <= 0 {
		c.Trading.InitialCash = defaultInitialCash
	}
	if c.Trading.PortfolioDBPath == "" {
		c.Trading.PortfolioDBPath = defaultPortfolioDB
	}
	if c.Trading.DecisionLogPath == "" {
		c.Trading.DecisionLogPath = defaultDecisionLog
	}
	if c.Trading.ExitCheckSeconds <= 0 {
		c.Trading.ExitCheckSeconds = defaultExitCheck
	}
	if c.Trading.EquityUpdateSeconds <= 0 {
		c.Trading.EquityUpdateSeconds = defaultEquityUpdate
	}
}
