package handler

import (
	"net/http"

	"menew-api/internal/middleware"
	"menew-api/internal/model"
	"menew-api/pkg/database"
	"menew-api/pkg/jwtutil"
	"menew-api/pkg/logger"
	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Login authenticates a staff user and issues an access/refresh token pair.
// The refresh token overwrites the stored one, so each user has a single
// live session.
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		log.Warn("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	var user model.User
	result := database.GetDB().Preload("Tenant").Where("email = ?", req.Email).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid credentials"})
	}

	if user.Tenant != nil && user.Tenant.Status != model.TenantActive {
		log.Warn("Tenant not active",
			zap.String("email", req.Email),
			zap.String("tenant_status", user.Tenant.Status))
		prometheus.RecordAuthError("tenant_suspended")
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "your tenant account is suspended"})
	}

	accessToken, refreshToken, err := jwtutil.GenerateTokenPair(user.ID, user.Email, user.Role, user.TenantID)
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "token error"})
	}

	if err := database.GetDB().Model(&user).Update("refresh_token", refreshToken).Error; err != nil {
		log.Error("Failed to store refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "login failed"})
	}

	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"user": echo.Map{
				"id":        user.ID,
				"name":      user.Name,
				"email":     user.Email,
				"role":      user.Role,
				"tenant_id": user.TenantID,
			},
			"access_token":  accessToken,
			"refresh_token": refreshToken,
		},
	})
}

// Refresh exchanges a valid refresh token for a new token pair. The token
// must both verify and match the one stored for the user, so rotation
// invalidates every previously issued refresh token.
func Refresh(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "refresh token required"})
	}

	claims, err := jwtutil.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		log.Warn("Invalid refresh token", zap.Error(err))
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid refresh token"})
	}

	var user model.User
	if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid refresh token"})
	}

	if user.RefreshToken != req.RefreshToken {
		log.Warn("Refresh token mismatch", zap.Uint("user_id", user.ID))
		prometheus.RecordAuthError("refresh_token_mismatch")
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid refresh token"})
	}

	accessToken, refreshToken, err := jwtutil.GenerateTokenPair(user.ID, user.Email, user.Role, user.TenantID)
	if err != nil {
		log.Error("Failed to generate token pair", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "token error"})
	}

	if err := database.GetDB().Model(&user).Update("refresh_token", refreshToken).Error; err != nil {
		log.Error("Failed to rotate refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "refresh failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
		},
	})
}

// Register creates an OWNER or MANAGER account. SUPER_ADMIN may target any
// tenant; an OWNER can only create MANAGER accounts inside their own tenant.
func Register(c echo.Context) error {
	log := logger.FromContext(c)
	p, _ := middleware.GetPrincipal(c)

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		TenantID *uint  `json:"tenant_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "name, email and a password of at least 6 characters are required"})
	}
	if req.Role != model.RoleOwner && req.Role != model.RoleManager {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "role must be OWNER or MANAGER"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "email already registered"})
	}

	// Non-super-admins create accounts inside their own tenant only.
	tenantID := req.TenantID
	if p.Role != model.RoleSuperAdmin {
		tenantID = p.TenantID
	}
	if tenantID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "tenant_id is required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "registration failed"})
	}

	user := model.User{
		TenantID: tenantID,
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     req.Role,
	}
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "registration failed"})
	}

	log.Info("User registered",
		zap.String("email", user.Email),
		zap.String("role", user.Role),
		zap.Uint("tenant_id", *tenantID))

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": echo.Map{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Setup is the one-time bootstrap: it creates the first tenant and its
// SUPER_ADMIN. Once any user exists it is permanently closed.
func Setup(c echo.Context) error {
	log := logger.FromContext(c)

	var userCount int64
	database.GetDB().Model(&model.User{}).Count(&userCount)
	if userCount > 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "setup has already been completed"})
	}

	var req struct {
		TenantName string `json:"tenant_name"`
		TenantSlug string `json:"tenant_slug"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.TenantName == "" || req.TenantSlug == "" || req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "tenant_name, tenant_slug, name, email and a password of at least 6 characters are required"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "setup failed"})
	}

	tx := database.GetDB().Begin()
	if tx.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "database error"})
	}

	tenant := model.Tenant{Name: req.TenantName, Slug: req.TenantSlug, Status: model.TenantActive}
	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to create tenant", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "setup failed"})
	}

	subscription := model.Subscription{TenantID: tenant.ID, Plan: "FREE", MaxStores: 1}
	if err := tx.Create(&subscription).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to create subscription", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "setup failed"})
	}

	admin := model.User{
		TenantID: &tenant.ID,
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     model.RoleSuperAdmin,
	}
	if err := tx.Create(&admin).Error; err != nil {
		tx.Rollback()
		log.Error("Failed to create super admin", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "setup failed"})
	}

	if err := tx.Commit().Error; err != nil {
		log.Error("Failed to commit setup transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "setup failed"})
	}

	log.Info("System bootstrapped",
		zap.String("tenant", tenant.Slug),
		zap.String("admin", admin.Email))

	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"data": echo.Map{
			"tenant": tenant,
			"user": echo.Map{
				"id":    admin.ID,
				"name":  admin.Name,
				"email": admin.Email,
				"role":  admin.Role,
			},
		},
	})
}

// Me returns the authenticated user's profile.
func Me(c echo.Context) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "authentication required"})
	}

	var user model.User
	if result := database.GetDB().Preload("Tenant").First(&user, p.UserID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "user not found"})
	}

	data := echo.Map{
		"id":        user.ID,
		"name":      user.Name,
		"email":     user.Email,
		"role":      user.Role,
		"tenant_id": user.TenantID,
	}
	if user.Tenant != nil {
		data["tenant"] = echo.Map{"name": user.Tenant.Name, "slug": user.Tenant.Slug}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data})
}
