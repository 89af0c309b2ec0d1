package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testJWTKey = "test-signing-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func newMiddlewareRouter() *gin.Engine {
	s := &Server{Config: &AppConfig{Auth: AuthConfig{JWTKey: testJWTKey}}}
	r := gin.New()
	r.GET("/whoami", s.IdentityMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetUserIDFromContext(c)})
	})
	return r
}

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentityMiddlewareMissingHeader(t *testing.T) {
	if w := doRequest(newMiddlewareRouter(), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestIdentityMiddlewareBadFormat(t *testing.T) {
	r := newMiddlewareRouter()
	for _, h := range []string{"Basic abc", "Bearer", "Bearer a b"} {
		if w := doRequest(r, h); w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", h, w.Code)
		}
	}
}

func TestIdentityMiddlewareWrongKey(t *testing.T) {
	tok := signToken(t, "some-other-key", jwt.MapClaims{"sub": "u-1"})
	if w := doRequest(newMiddlewareRouter(), "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for wrong key", w.Code)
	}
}

func TestIdentityMiddlewareRejectsUnsignedToken(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if w := doRequest(newMiddlewareRouter(), "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for alg=none", w.Code)
	}
}

func TestIdentityMiddlewareNoSubject(t *testing.T) {
	tok := signToken(t, testJWTKey, jwt.MapClaims{"role": "admin"})
	if w := doRequest(newMiddlewareRouter(), "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 when token carries no subject", w.Code)
	}
}

func TestIdentityMiddlewareExpiredToken(t *testing.T) {
	tok := signToken(t, testJWTKey, jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(-time.Hour).Unix()})
	if w := doRequest(newMiddlewareRouter(), "Bearer "+tok); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired token", w.Code)
	}
}

func TestIdentityMiddlewareValidToken(t *testing.T) {
	tok := signToken(t, testJWTKey, jwt.MapClaims{"user_id": "u-42", "sub": "acct-1"})
	w := doRequest(newMiddlewareRouter(), "Bearer "+tok)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// user_id claim wins over sub
	if body := w.Body.String(); body != `{"userId":"u-42"}` {
		t.Fatalf("unexpected body: %s", body)
	}
}
