package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spinwin-backend/internal/logging"
	"spinwin-backend/internal/services"
)

type AuthHandler struct {
	identity   services.IdentityProvider
	store      *services.RedisStore
	jwtService *services.JWTService
	ledger     *services.LedgerService
	sessions   *services.SessionManager
}

func NewAuthHandler(identity services.IdentityProvider, store *services.RedisStore, jwtService *services.JWTService, ledger *services.LedgerService, sessions *services.SessionManager) *AuthHandler {
	return &AuthHandler{
		identity:   identity,
		store:      store,
		jwtService: jwtService,
		ledger:     ledger,
		sessions:   sessions,
	}
}

// Login hands the browser a Google authorization URL with a single-use CSRF
// state token.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	if err := h.store.SaveOAuthState(c.Request.Context(), state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sign-in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authorization_url": h.identity.AuthURL(state),
		"state":             state,
	})
}

// Callback resolves the external redirect: exchanges the code, provisions or
// fetches the domain user, and issues a bearer token.
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or state"})
		return
	}

	if !h.store.ConsumeOAuthState(c.Request.Context(), state) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired state"})
		return
	}

	ident, err := h.identity.Resolve(c.Request.Context(), code)
	if err != nil {
		logging.Sugar.Warnw("sign-in resolution failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sign-in failed"})
		return
	}

	sess := services.NewSession(h.ledger)
	user, err := sess.Resolve(c.Request.Context(), ident)
	if err != nil {
		logging.Sugar.Errorw("profile load failed", "user_id", ident.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load your user profile. Please try logging in again."})
		return
	}
	h.sessions.Attach(user.ID, sess)

	sessionID := uuid.NewString()
	token, err := h.jwtService.GenerateToken(user.ID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
