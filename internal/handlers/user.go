package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinwin-backend/internal/services"
)

type UserHandler struct {
	sessions *services.SessionManager
}

func NewUserHandler(sessions *services.SessionManager) *UserHandler {
	return &UserHandler{sessions: sessions}
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID := c.GetString("user_id")

	sess, err := h.sessions.GetOrLoad(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	user, ok := sess.User()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"loading": sess.Loading(),
	})
}

func (h *UserHandler) Logout(c *gin.Context) {
	userID := c.GetString("user_id")

	h.sessions.Remove(userID)

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

type profileUpdateRequest struct {
	Name   string `json:"name" binding:"required"`
	Mobile string `json:"mobile"`
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var req profileUpdateRequest
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

	user, err := sess.UpdateProfile(c.Request.Context(), req.Name, req.Mobile)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}
