package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "loginpanel/internal/errors"
	"loginpanel/internal/models"
	"loginpanel/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseBody(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name          string
		configuredKey string
		requestKey    string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:          "valid_api_key",
			configuredKey: "secret-admin-key",
			requestKey:    "secret-admin-key",
			wantStatus:    http.StatusOK,
		},
		{
			name:          "invalid_api_key",
			configuredKey: "secret-admin-key",
			requestKey:    "wrong-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "missing_api_key",
			configuredKey: "secret-admin-key",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "empty_configured_key",
			configuredKey: "",
			requestKey:    "any-key",
			wantStatus:    http.StatusServiceUnavailable,
			wantErrorCode: "ADMIN_NOT_CONFIGURED",
		},
		{
			name:          "partial_match_rejected",
			configuredKey: "secret-admin-key",
			requestKey:    "secret-admin",
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(APIKey(tt.configuredKey))
			r.DELETE("/admin", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			req := httptest.NewRequest(http.MethodDelete, "/admin", http.NoBody)
			if tt.requestKey != "" {
				req.Header.Set("X-API-Key", tt.requestKey)
			}
			rec := serve(r, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantErrorCode != "" {
				if code := errorCode(t, rec); code != tt.wantErrorCode {
					t.Errorf("error code = %q, want %q", code, tt.wantErrorCode)
				}
			}
		})
	}
}

type stubAuthenticator struct {
	services.AuthServicer
	authenticate func(ctx context.Context, sessionID string) (*models.User, error)
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, sessionID string) (*models.User, error) {
	return s.authenticate(ctx, sessionID)
}

func TestSessionAuth(t *testing.T) {
	auth := &stubAuthenticator{
		authenticate: func(_ context.Context, sessionID string) (*models.User, error) {
			if sessionID == "good" {
				return &models.User{Base: models.Base{ID: "u1"}, Login: "alice"}, nil
			}
			return nil, apperrors.ErrUnauthorized
		},
	}

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/me", SessionAuth(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase_scheme", "bearer good", http.StatusOK},
		{"missing_header", "", http.StatusUnauthorized},
		{"wrong_scheme", "Basic good", http.StatusUnauthorized},
		{"extra_parts", "Bearer good extra", http.StatusUnauthorized},
		{"unknown_session", "Bearer bad", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := serve(r, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got := parseBody(t, rec)["user_id"]; got != "u1" {
					t.Errorf("expected user_id u1, got %v", got)
				}
			} else if code := errorCode(t, rec); code != "UNAUTHORIZED" {
				t.Errorf("error code = %q, want UNAUTHORIZED", code)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInternalServer, context.DeadlineExceeded))
	})
	r.GET("/plain", func(c *gin.Context) {
		_ = c.Error(context.Canceled)
	})

	for _, path := range []string{"/app", "/plain"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d, want 500", path, rec.Code)
		}
		if code := errorCode(t, rec); code != "INTERNAL_ERROR" {
			t.Errorf("%s: error code = %q, want INTERNAL_ERROR", path, code)
		}
	}
}

func TestResponseDelay(t *testing.T) {
	t.Run("waits_at_least_min", func(t *testing.T) {
		r := gin.New()
		r.Use(ResponseDelay(30*time.Millisecond, 40*time.Millisecond))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		start := time.Now()
		rec := serve(r, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		elapsed := time.Since(start)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if elapsed < 30*time.Millisecond {
			t.Errorf("expected at least 30ms, took %v", elapsed)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		r := gin.New()
		r.Use(ResponseDelay(time.Second, 0))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		start := time.Now()
		serve(r, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("expected no delay, took %v", elapsed)
		}
	})

	t.Run("stops_on_cancel", func(t *testing.T) {
		r := gin.New()
		r.Use(ResponseDelay(5*time.Second, 6*time.Second))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)

		start := time.Now()
		serve(r, req)
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("expected cancellation to end the delay, took %v", elapsed)
		}
	})
}
