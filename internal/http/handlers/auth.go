package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/http/middlewares"
	"github.com/geocoder89/gatherdesk/internal/security"
)

type ProfileStore interface {
	Create(ctx context.Context, p profile.Profile) error
	GetByEmail(ctx context.Context, email string) (profile.Profile, error)
	Resolve(ctx context.Context, userID, email string) (profile.Profile, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email string, isAdmin bool) (string, error)
}

type AuthHandler struct {
	profiles ProfileStore
	jwt      TokenIssuer
}

func NewAuthHandler(profiles ProfileStore, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{profiles: profiles, jwt: jwt}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create account")
		return
	}

	p := profile.New(uuid.NewString(), req.Email)
	p.PasswordHash = hash

	if err := h.profiles.Create(cctx, p); err != nil {
		if errors.Is(err, profile.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "An account with this email already exists.")
			return
		}
		RespondInternal(ctx, "Could not create account")
		return
	}

	token, err := h.jwt.GenerateAccessToken(p.UserID, p.Email, p.IsAdmin)
	if err != nil {
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"accessToken": token,
		"profile":     p,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.profiles.GetByEmail(cctx, req.Email)
	if err != nil {
		// same response for unknown email and bad password
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	if err := security.CheckPassword(p.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, "Invalid email or password")
		return
	}

	token, err := h.jwt.GenerateAccessToken(p.UserID, p.Email, p.IsAdmin)
	if err != nil {
		RespondInternal(ctx, "Could not issue token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"profile":     p,
	})
}

// Me resolves the caller's profile, lazily creating the default record for
// identities the store has never seen.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.profiles.Resolve(cctx, id.ID, id.Email)
	if err != nil {
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, p)
}
