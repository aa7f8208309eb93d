package handlers

import (
	"context"
	"net/http"

	"casino-settlement-go/internal/blackjack"
	"casino-settlement-go/internal/roulette"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type StartBlackjackRequest struct {
	Bet decimal.Decimal `json:"bet" binding:"required"`
}

type RouletteRequest struct {
	Bets []roulette.Bet `json:"bets"`
}

type BlackjackHandler struct {
	engine *blackjack.Engine
}

func (h *BlackjackHandler) Start(c *gin.Context) {
	var req StartBlackjackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.engine.StartNewGame(c.Request.Context(), c.Param("userId"), req.Bet)
	writeBlackjack(c, result, err)
}

func (h *BlackjackHandler) GetState(c *gin.Context) {
	result, err := h.engine.GetState(c.Request.Context(), c.Param("userId"))
	if err == nil && !result.Success {
		c.JSON(http.StatusNotFound, gin.H{"error": result.Error})
		return
	}
	writeBlackjack(c, result, err)
}

func (h *BlackjackHandler) Hit(c *gin.Context)       { h.do(c, h.engine.Hit) }
func (h *BlackjackHandler) Stand(c *gin.Context)     { h.do(c, h.engine.Stand) }
func (h *BlackjackHandler) Double(c *gin.Context)    { h.do(c, h.engine.DoubleDown) }
func (h *BlackjackHandler) Split(c *gin.Context)     { h.do(c, h.engine.Split) }
func (h *BlackjackHandler) Surrender(c *gin.Context) { h.do(c, h.engine.Surrender) }

func (h *BlackjackHandler) do(c *gin.Context, action func(context.Context, string) (*blackjack.Result, error)) {
	result, err := action(c.Request.Context(), c.Param("userId"))
	writeBlackjack(c, result, err)
}

func writeBlackjack(c *gin.Context, result *blackjack.Result, err error) {
	respond(c, result.Success, result.Error, err, result, http.StatusInternalServerError)
}

type RouletteHandler struct {
	engine *roulette.Engine
}

func (h *RouletteHandler) Spin(c *gin.Context) {
	var req RouletteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.engine.PlaceBets(c.Request.Context(), c.Param("userId"), req.Bets)
	respond(c, result.Success, result.Error, err, result, http.StatusInternalServerError)
}
