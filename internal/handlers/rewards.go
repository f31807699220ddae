package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spinwin-backend/internal/models"
	"spinwin-backend/internal/services"
)

type RewardsHandler struct {
	sessions *services.SessionManager
	ledger   *services.LedgerService
	notifier BalanceNotifier
}

// BalanceNotifier pushes authoritative balance snapshots to live clients.
type BalanceNotifier interface {
	NotifyBalance(userID string, user *models.User)
}

func NewRewardsHandler(sessions *services.SessionManager, ledger *services.LedgerService, notifier BalanceNotifier) *RewardsHandler {
	return &RewardsHandler{
		sessions: sessions,
		ledger:   ledger,
		notifier: notifier,
	}
}

func (h *RewardsHandler) Spin(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.SpinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.sessions.GetOrLoad(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	user, err := sess.Spin(c.Request.Context(), req.Points)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyBalance(userID, user)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result": models.SpinResponse{
			Points:     user.Points,
			DailySpins: user.DailySpins,
		},
	})
}

type referralRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *RewardsHandler) ApplyReferral(c *gin.Context) {
	userID := c.GetString("user_id")

	var req referralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	sess, err := h.sessions.GetOrLoad(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	user, err := sess.ApplyReferral(c.Request.Context(), req.Code)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyBalance(userID, user)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Successfully applied referral code! You got 200 points.",
		"user":    user,
	})
}

func (h *RewardsHandler) GetTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tiers":   h.ledger.Tiers(),
	})
}

func (h *RewardsHandler) RequestWithdrawal(c *gin.Context) {
	userID := c.GetString("user_id")

	var req models.WithdrawalRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tier, _ := models.TierByID(req.TierID)

	sess, err := h.sessions.GetOrLoad(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	user, err := sess.RequestWithdrawal(c.Request.Context(), tier, req.Method, models.WithdrawalContact{
		Name:   req.Name,
		Email:  req.Email,
		Mobile: req.Mobile,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.NotifyBalance(userID, user)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Withdrawal request submitted successfully!",
		"user":    user,
	})
}

func (h *RewardsHandler) GetWithdrawalHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	limit := parseLimit(c)

	requests, err := h.ledger.WithdrawalHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"requests": requests,
		"count":    len(requests),
	})
}

func (h *RewardsHandler) GetSpinHistory(c *gin.Context) {
	userID := c.GetString("user_id")
	limit := parseLimit(c)

	spins, err := h.ledger.SpinHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"spins":   spins,
		"count":   len(spins),
	})
}

func parseLimit(c *gin.Context) int64 {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	return limit
}

// respondLedgerError maps the ledger's closed failure set onto the HTTP
// surface. Soft rejections stay 200 with an informational message so the
// client session is not disrupted.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case services.SoftRejection(err):
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Operation failed",
			"details": err.Error(),
		})
	}
}
