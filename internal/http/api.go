package http

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cinegate/internal/catalog"
	"cinegate/internal/domain"
	"cinegate/internal/service"
	"cinegate/internal/token"
)

const claimsContextKey = "authClaims"

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth    service.AuthService
	catalog *catalog.Client
	codec   *token.Codec
}

func NewHandler(auth service.AuthService, catalogClient *catalog.Client, codec *token.Codec) *Handler {
	return &Handler{
		auth:    auth,
		catalog: catalogClient,
		codec:   codec,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.POST("/logout", h.logout)
			auth.POST("/verify-email", h.verifyEmail)
			auth.POST("/resend-email-verification", h.requireAuth(), h.resendEmailVerification)
		}

		api.GET("/discover/:mediaType", h.discover)
		api.GET("/trending", h.trending)
		api.GET("/trending/:trendingType", h.trending)
		api.GET("/trending/:trendingType/:timeWindow", h.trending)
		api.GET("/tv/top-rated", h.tvTopRated)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requireAuth validates the bearer access token and stashes its claims for
// the handler. Verification state is read from the claims as stamped at
// login time, matching the token contract.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization header missing"})
			return
		}

		claims, err := h.codec.Verify(domain.AccessToken, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r *registerRequest) validate() *domain.ValidationError {
	var issues []domain.FieldIssue
	if strings.TrimSpace(r.Name) == "" {
		issues = append(issues, domain.FieldIssue{Path: "name", Message: "Name is required"})
	}
	if strings.TrimSpace(r.Email) == "" {
		issues = append(issues, domain.FieldIssue{Path: "email", Message: "Email is required"})
	} else if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		issues = append(issues, domain.FieldIssue{Path: "email", Message: "Email is invalid"})
	}
	if len(r.Password) < 6 {
		issues = append(issues, domain.FieldIssue{Path: "password", Message: "Password must be at least 6 characters"})
	}
	if r.ConfirmPassword != r.Password {
		issues = append(issues, domain.FieldIssue{Path: "confirmPassword", Message: "Passwords do not match"})
	}
	if len(issues) > 0 {
		return &domain.ValidationError{Issues: issues}
	}
	return nil
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}
	if verr := req.validate(); verr != nil {
		writeError(c, verr)
		return
	}

	pair, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Please check your email to verify your account.",
		"data":    pair,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("body", err.Error()))
		return
	}

	pair, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data":    pair,
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *Handler) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("refreshToken", "refreshToken is required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

type verifyEmailRequest struct {
	EmailVerifyToken string `json:"emailVerifyToken" binding:"required"`
}

func (h *Handler) verifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, domain.NewValidationError("emailVerifyToken", "emailVerifyToken is required"))
		return
	}

	pair, err := h.auth.VerifyEmail(c.Request.Context(), req.EmailVerifyToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully",
		"data":    pair,
	})
}

func (h *Handler) resendEmailVerification(c *gin.Context) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
		return
	}
	claims := value.(*token.Claims)

	if err := h.auth.ResendEmailVerification(c.Request.Context(), claims.UserID); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Please check your email to verify your account."})
}

func (h *Handler) discover(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := h.catalog.Discover(c.Request.Context(), c.Param("mediaType"), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Get discover list successfully.",
		"data":    data,
	})
}

func (h *Handler) trending(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := h.catalog.Trending(c.Request.Context(), c.Param("trendingType"), c.Param("timeWindow"), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Get trending list successfully.",
		"data":    data,
	})
}

func (h *Handler) tvTopRated(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := h.catalog.TVTopRated(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Get top rated TV shows successfully.",
		"data":    data,
	})
}

func pageQuery(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 0, domain.NewValidationError("page", "page must be a positive integer")
	}
	return page, nil
}

// writeError maps the domain error taxonomy onto transport status codes.
// Every typed failure reaches this boundary unchanged.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Validation failed",
			"errors":  verr.Issues,
		})
		return
	}

	var cerr *domain.ResendCooldownError
	if errors.As(err, &cerr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"message":          cerr.Error(),
			"remainingSeconds": cerr.RemainingSeconds,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "Validation failed",
			"errors":  []domain.FieldIssue{{Path: "email", Message: "Invalid email or password"}},
		})
	case errors.Is(err, domain.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrAlreadyVerified):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
	}
}
