package monitorhttp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stockpilot/internal/portfolio"
	"stockpilot/internal/risk"
	"stockpilot/internal/scanner"
	"stockpilot/internal/store/decisionlog"
)

func pipelineHandler(funnel *scanner.Funnel) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"stages": funnel.Status()})
	}
}

func riskHandler(eng *risk.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		params := eng.CurrentMode()
		c.JSON(http.StatusOK, gin.H{
			"mode":   params.Mode,
			"params": params,
		})
	}
}

func candidatesHandler(funnel *scanner.Funnel) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := funnel.FinalSnapshot()
		if snap == nil {
			c.JSON(http.StatusOK, gin.H{"candidates": []any{}, "cycle_id": ""})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func positionsHandler(store *portfolio.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		equity, baseline := store.EquitySnapshot()
		c.JSON(http.StatusOK, gin.H{
			"positions":      store.Positions(),
			"available_cash": store.AvailableCash(),
			"equity":         equity,
			"baseline":       baseline,
		})
	}
}

func intentsHandler(logs *decisionlog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		rows, err := logs.Recent(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rows == nil {
			rows = []decisionlog.IntentRow{}
		}
		c.JSON(http.StatusOK, gin.H{"intents": rows})
	}
}
