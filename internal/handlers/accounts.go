package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"casino-settlement-go/internal/api"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/store"
	"casino-settlement-go/internal/withdrawal"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type WithdrawRequest struct {
	Address string          `json:"address" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

type AccountHandler struct {
	ledger      *api.LedgerService
	sessions    *ledger.Service
	withdrawals *withdrawal.Processor
}

func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *AccountHandler) GetBalance(c *gin.Context) {
	balance, err := h.ledger.GetUserBalance(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *AccountHandler) GetTransactions(c *gin.Context) {
	limit, offset := pagination(c)
	history, err := h.ledger.GetTransactionHistory(c.Request.Context(), c.Param("userId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": history, "limit": limit, "offset": offset})
}

func (h *AccountHandler) GetDepositAddress(c *gin.Context) {
	result, err := h.ledger.GetDepositAddress(c.Request.Context(), c.Param("userId"))
	respond(c, result.Success, result.Error, err, result, http.StatusInternalServerError)
}

func (h *AccountHandler) GetDeposits(c *gin.Context) {
	limit, offset := pagination(c)
	deposits, err := h.ledger.GetUserDeposits(c.Request.Context(), c.Param("userId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if deposits == nil {
		deposits = []models.Deposit{}
	}
	c.JSON(http.StatusOK, gin.H{"deposits": deposits, "limit": limit, "offset": offset})
}

func (h *AccountHandler) GetSessions(c *gin.Context) {
	limit, offset := pagination(c)
	sessions, err := h.sessions.History(c.Request.Context(), c.Param("userId"), limit, offset)
	if err != nil {
		respond(c, false, "failed to retrieve game sessions", err, nil, http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.GameSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "limit": limit, "offset": offset})
}

func (h *AccountHandler) GetWithdrawals(c *gin.Context) {
	limit, offset := pagination(c)
	withdrawals, err := h.ledger.GetUserWithdrawals(c.Request.Context(), c.Param("userId"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if withdrawals == nil {
		withdrawals = []models.Withdrawal{}
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals, "limit": limit, "offset": offset})
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.withdrawals.Withdraw(c.Request.Context(), c.Param("userId"), req.Address, req.Amount)
	if err != nil && result.TxHash != "" && result.Status == string(models.WithdrawalApproved) {
		// Submitted but not finalized yet: the debit happens on reconciliation.
		c.JSON(http.StatusAccepted, result)
		return
	}
	respond(c, result.Success, result.Error, err, result, http.StatusBadGateway)
}
