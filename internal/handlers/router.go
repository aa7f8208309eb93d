package handlers

import (
	"net/http"
	"time"

	"casino-settlement-go/internal/api"
	"casino-settlement-go/internal/blackjack"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/metrics"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/roulette"
	"casino-settlement-go/internal/withdrawal"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config contains the services exposed over HTTP. A nil game engine or
// processor leaves its routes unregistered.
type Config struct {
	Ledger      *api.LedgerService
	Sessions    *ledger.Service
	Blackjack   *blackjack.Engine
	Roulette    *roulette.Engine
	Withdrawals *withdrawal.Processor
}

// NewRouter builds the gin engine with request ids, access logging, metrics
// and every registered route.
func NewRouter(cfg Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(accessLog())

	router.GET("/health", health(cfg.Ledger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	accounts := &AccountHandler{ledger: cfg.Ledger, sessions: cfg.Sessions, withdrawals: cfg.Withdrawals}
	users := router.Group("/api/v1/users/:userId")
	{
		users.GET("/balance", accounts.GetBalance)
		users.GET("/transactions", accounts.GetTransactions)
		users.GET("/deposit-address", accounts.GetDepositAddress)
		users.GET("/deposits", accounts.GetDeposits)
		users.GET("/sessions", accounts.GetSessions)
		if cfg.Withdrawals != nil {
			users.GET("/withdrawals", accounts.GetWithdrawals)
			users.POST("/withdrawals", accounts.Withdraw)
		}

		if cfg.Blackjack != nil {
			bj := &BlackjackHandler{engine: cfg.Blackjack}
			game := users.Group("/blackjack")
			game.GET("", bj.GetState)
			game.POST("/start", bj.Start)
			game.POST("/hit", bj.Hit)
			game.POST("/stand", bj.Stand)
			game.POST("/double", bj.Double)
			game.POST("/split", bj.Split)
			game.POST("/surrender", bj.Surrender)
		}

		if cfg.Roulette != nil {
			rl := &RouletteHandler{engine: cfg.Roulette}
			users.POST("/roulette", rl.Spin)
		}
	}

	return router
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(models.WithRequestContext(c.Request.Context(), &models.RequestContext{
			RequestId: requestid.Get(c),
			UserId:    c.Param("userId"),
			Operation: c.Request.Method + " " + c.FullPath(),
		}))
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, route, status, duration)

		if route == "/metrics" || route == "/health" {
			return
		}
		zap.L().Info("HTTP request",
			zap.String("request_id", requestid.Get(c)),
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration))
	}
}

func health(service *api.LedgerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if service == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		if err := service.HealthCheck(c.Request.Context()); err != nil {
			zap.L().Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// rejectionStatus maps a rejected operation's reason to an HTTP status.
// Everything not listed is a plain validation failure.
func rejectionStatus(reason string) int {
	switch reason {
	case "user not found":
		return http.StatusNotFound
	case "no active game", "game is already over", "game is already settled":
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respond writes the outcome of an engine call. err is logged but never
// shown: the result already carries a generic message for that case.
func respond(c *gin.Context, success bool, reason string, err error, body any, externalStatus int) {
	if err != nil {
		zap.L().Error("Request failed",
			zap.String("request_id", requestid.Get(c)),
			zap.String("route", c.FullPath()),
			zap.String("user_id", c.Param("userId")),
			zap.Error(err))
		c.JSON(externalStatus, gin.H{"error": reason})
		return
	}
	if !success {
		c.JSON(rejectionStatus(reason), gin.H{"error": reason})
		return
	}
	c.JSON(http.StatusOK, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
