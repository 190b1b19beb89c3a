package monitorhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockpilot/internal/logger"
	"stockpilot/internal/portfolio"
	"stockpilot/internal/risk"
	"stockpilot/internal/scanner"
	"stockpilot/internal/store/decisionlog"
)

// Server exposes the read-only monitoring API. It never mutates pipeline or
// portfolio state.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr      string
	Funnel    *scanner.Funnel
	RiskEng   *risk.Engine
	Portfolio *portfolio.Store
	Logs      *decisionlog.Store
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Funnel == nil || cfg.RiskEng == nil || cfg.Portfolio == nil {
		return nil, errors.New("monitor http server requires funnel, risk engine and portfolio")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/pipeline", pipelineHandler(cfg.Funnel))
	api.GET("/risk", riskHandler(cfg.RiskEng))
	api.GET("/candidates", candidatesHandler(cfg.Funnel))
	api.GET("/positions", positionsHandler(cfg.Portfolio))
	if cfg.Logs != nil {
		api.GET("/intents", intentsHandler(cfg.Logs))
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is cancelled, then shuts down with a bounded grace
// period.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
