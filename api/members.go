package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/service/members"
)

type MemberHandler struct {
	service members.MemberUseCase
}

func NewMemberHandler(service members.MemberUseCase) *MemberHandler {
	return &MemberHandler{service: service}
}

func (h *MemberHandler) Register(router *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	router.POST("/members", h.register)
	router.POST("/members/verify", h.verify)
	router.POST("/members/password-reset", h.requestPasswordReset)
	router.PUT("/members/password", h.resetPassword)
	router.GET("/members/me", requireAuth, h.profile)
	router.PUT("/members/me", requireAuth, h.updateProfile)
	router.POST("/sessions", h.login)
	router.DELETE("/sessions", h.logout)
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
}

type memberResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Verified  bool   `json:"verified"`
	Miles     int    `json:"miles"`
	Tier      string `json:"tier"`
}

func toMemberResponse(m *domain.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Phone:     m.Phone,
		Verified:  m.Verified,
		Miles:     m.Miles,
		Tier:      string(m.Tier),
	}
}

func (h *MemberHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.service.Register(c.Request.Context(), members.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMemberResponse(member))
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *MemberHandler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Verify(c.Request.Context(), req.Token); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *MemberHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, member, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	maxAge := int(session.ExpiresAt.Sub(session.CreatedAt).Seconds())
	c.SetCookie(sessionCookie, session.Token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, toMemberResponse(member))
}

func (h *MemberHandler) logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookie)
	if err == nil && token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			abortWithError(c, err)
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"signed_out": true})
}

func (h *MemberHandler) profile(c *gin.Context) {
	c.JSON(http.StatusOK, toMemberResponse(currentMember(c)))
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (h *MemberHandler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.service.UpdateProfile(c.Request.Context(), currentMember(c).ID, members.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(member))
}

type passwordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

func (h *MemberHandler) requestPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *MemberHandler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
