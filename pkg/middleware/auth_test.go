package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID string, secret string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func setupAuthTest() (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)

	var seen uuid.UUID
	r := gin.New()
	r.Use(Auth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		seen = c.MustGet("user_id").(uuid.UUID)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r, &seen
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r, seen := setupAuthTest()
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID.String(), testSecret, time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if *seen != userID {
		t.Errorf("user_id in context = %s, want %s", *seen, userID)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r, _ := setupAuthTest()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	r, _ := setupAuthTest()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), testSecret, time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	r, _ := setupAuthTest()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), "other-secret", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthRejectsMalformedUserID(t *testing.T) {
	r, _ := setupAuthTest()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "not-a-uuid", testSecret, time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
