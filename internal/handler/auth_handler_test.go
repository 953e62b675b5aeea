package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menew-api/internal/model"
	"menew-api/pkg/config"
	"menew-api/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func initTestJWT(t *testing.T) {
	t.Helper()
	jwtutil.Initialize(&config.JWTConfig{
		AccessSigningKey:  "test-access",
		RefreshSigningKey: "test-refresh",
		AccessTTL:         15 * time.Minute,
		RefreshTTL:        24 * time.Hour,
	})
}

func seedUser(t *testing.T, db *gorm.DB, tenantID *uint, email, password, role string) model.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.User{
		TenantID: tenantID,
		Name:     "Test User",
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func postJSON(t *testing.T, handlerFunc echo.HandlerFunc, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handlerFunc(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return rec, resp
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	initTestJWT(t)
	f := seedStore(t, db)
	seedUser(t, db, &f.tenant.ID, "owner@kafe.test", "secret123", model.RoleOwner)

	tests := []struct {
		name     string
		email    string
		password string
		code     int
	}{
		{"valid credentials", "owner@kafe.test", "secret123", http.StatusOK},
		{"wrong password", "owner@kafe.test", "nope", http.StatusUnauthorized},
		{"unknown email", "ghost@kafe.test", "secret123", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := postJSON(t, Login, "/api/auth/login", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}

			data := resp["data"].(map[string]interface{})
			if data["access_token"] == "" || data["refresh_token"] == "" {
				t.Error("token pair missing from login response")
			}
			user := data["user"].(map[string]interface{})
			if user["role"] != model.RoleOwner {
				t.Errorf("user role = %v, want OWNER", user["role"])
			}
		})
	}
}

func TestLogin_SuspendedTenant(t *testing.T) {
	db := setupTestDB(t)
	initTestJWT(t)
	f := seedStore(t, db)
	seedUser(t, db, &f.tenant.ID, "owner@kafe.test", "secret123", model.RoleOwner)

	db.Model(&f.tenant).Update("status", model.TenantSuspended)

	rec, _ := postJSON(t, Login, "/api/auth/login", map[string]string{
		"email":    "owner@kafe.test",
		"password": "secret123",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for suspended tenant", rec.Code)
	}
}

func TestLogin_StoresSingleRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	initTestJWT(t)
	f := seedStore(t, db)
	user := seedUser(t, db, &f.tenant.ID, "owner@kafe.test", "secret123", model.RoleOwner)

	_, first := postJSON(t, Login, "/api/auth/login", map[string]string{
		"email": "owner@kafe.test", "password": "secret123",
	})
	firstToken := first["data"].(map[string]interface{})["refresh_token"].(string)

	// Tokens embed issued-at with second precision; make the second differ.
	time.Sleep(1100 * time.Millisecond)

	_, second := postJSON(t, Login, "/api/auth/login", map[string]string{
		"email": "owner@kafe.test", "password": "secret123",
	})
	secondToken := second["data"].(map[string]interface{})["refresh_token"].(string)

	var stored model.User
	db.First(&stored, user.ID)
	if stored.RefreshToken != secondToken {
		t.Error("stored refresh token is not the latest one")
	}
	if firstToken == secondToken {
		t.Error("second login reused the first refresh token")
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	db := setupTestDB(t)
	initTestJWT(t)
	f := seedStore(t, db)
	user := seedUser(t, db, &f.tenant.ID, "owner@kafe.test", "secret123", model.RoleOwner)

	_, login := postJSON(t, Login, "/api/auth/login", map[string]string{
		"email": "owner@kafe.test", "password": "secret123",
	})
	refreshToken := login["data"].(map[string]interface{})["refresh_token"].(string)

	time.Sleep(1100 * time.Millisecond)

	rec, resp := postJSON(t, Refresh, "/api/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	newToken := resp["data"].(map[string]interface{})["refresh_token"].(string)
	if newToken == refreshToken {
		t.Error("refresh did not rotate the token")
	}

	// The superseded token is dead.
	rec, _ = postJSON(t, Refresh, "/api/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for superseded refresh token", rec.Code)
	}

	var stored model.User
	db.First(&stored, user.ID)
	if stored.RefreshToken != newToken {
		t.Error("stored refresh token is not the rotated one")
	}
}

func TestRefresh_RejectsGarbage(t *testing.T) {
	setupTestDB(t)
	initTestJWT(t)

	rec, _ := postJSON(t, Refresh, "/api/auth/refresh", map[string]string{
		"refresh_token": "not-a-token",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec, _ = postJSON(t, Refresh, "/api/auth/refresh", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing token", rec.Code)
	}
}

func TestSetup(t *testing.T) {
	db := setupTestDB(t)
	initTestJWT(t)

	rec, resp := postJSON(t, Setup, "/api/auth/setup", map[string]string{
		"tenant_name": "Kafe Nusantara",
		"tenant_slug": "kafe-nusantara",
		"name":        "Admin",
		"email":       "admin@kafe.test",
		"password":    "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	data := resp["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	if user["role"] != model.RoleSuperAdmin {
		t.Errorf("bootstrap user role = %v, want SUPER_ADMIN", user["role"])
	}

	var subCount int64
	db.Model(&model.Subscription{}).Count(&subCount)
	if subCount != 1 {
		t.Errorf("subscriptions = %d, want 1 auto-provisioned", subCount)
	}

	// Second setup attempt is permanently closed.
	rec, _ = postJSON(t, Setup, "/api/auth/setup", map[string]string{
		"tenant_name": "Other",
		"tenant_slug": "other",
		"name":        "Intruder",
		"email":       "intruder@kafe.test",
		"password":    "secret123",
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("second setup status = %d, want 403", rec.Code)
	}
}
