package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/internal/service"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/response"
)

// AuthHandler exposes the token endpoints. Identity is owned by the campus
// SSO; in non-production environments this handler can mint tokens
// directly for local testing.
type AuthHandler struct {
	service *service.AuthService
	devMode bool
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *service.AuthService, devMode bool) *AuthHandler {
	return &AuthHandler{service: svc, devMode: devMode}
}

type devTokenRequest struct {
	UserID    string `json:"userId" binding:"required"`
	Role      string `json:"role" binding:"required"`
	ProfileID string `json:"profileId"`
}

// DevToken godoc
// @Summary Mint a development token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body devTokenRequest true "Token payload"
// @Success 200 {object} response.Envelope
// @Router /auth/dev-token [post]
func (h *AuthHandler) DevToken(c *gin.Context) {
	if !h.devMode {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid token payload"))
		return
	}
	role := models.ActorRole(req.Role)
	if !role.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "role must be ADMIN, LECTURER or STUDENT"))
		return
	}

	var actor models.Actor
	switch role {
	case models.RoleStudent:
		actor = models.NewStudentActor(req.UserID, req.ProfileID)
	case models.RoleLecturer:
		actor = models.NewLecturerActor(req.UserID, req.ProfileID)
	default:
		actor = models.NewAdminActor(req.UserID, req.ProfileID)
	}

	token, expiresAt, err := h.service.IssueToken(actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"accessToken": token,
		"expiresAt":   expiresAt,
	}, nil)
}

// Me godoc
// @Summary Current actor profile
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, claims.Actor(), nil)
}
