package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"sessionhistory/internal/models"
)

type stubAuthenticator struct {
	users map[string]string
	err   error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if id, ok := s.users[token]; ok {
		return id, nil
	}
	return "", ErrInvalidToken
}

func newAuthRouter(authn Authenticator, seen *models.Caller) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(authn))
	r.GET("/me", func(c *gin.Context) {
		caller, _ := models.CallerFromContext(c.Request.Context())
		*seen = caller
		id, _ := UserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})
	return r
}

func TestMiddlewareAcceptsBearerAndCookie(t *testing.T) {
	var seen models.Caller
	r := newAuthRouter(stubAuthenticator{users: map[string]string{"tok": "user-1"}}, &seen)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || seen.UserID != "user-1" {
		t.Fatalf("bearer: status=%d caller=%+v", w.Code, seen)
	}

	seen = models.Caller{}
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "tok"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || seen.UserID != "user-1" {
		t.Fatalf("cookie: status=%d caller=%+v", w.Code, seen)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	var seen models.Caller
	cases := []struct {
		name   string
		authn  Authenticator
		header string
		want   int
	}{
		{"missing token", stubAuthenticator{}, "", http.StatusUnauthorized},
		{"unknown token", stubAuthenticator{}, "Bearer nope", http.StatusUnauthorized},
		{"expired token", stubAuthenticator{err: ErrTokenExpired}, "Bearer tok", http.StatusUnauthorized},
		{"backend failure", stubAuthenticator{err: errors.New("db down")}, "Bearer tok", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(tc.authn, &seen)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestMiddlewareClosedDatabaseIsUnauthorized(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db, nil, time.Hour)
	db.Close()

	var seen models.Caller
	r := newAuthRouter(svc, &seen)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"error":"authorization required"}` {
		t.Fatalf("unexpected body %s", body)
	}
	if seen.UserID != "" {
		t.Fatalf("handler should not run, caller=%+v", seen)
	}
}

func TestCSRFMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CSRFMiddleware())
	r.PATCH("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		name   string
		method string
		setup  func(*http.Request)
		want   int
	}{
		{"safe method", http.MethodGet, func(*http.Request) {}, http.StatusOK},
		{"bearer exempt", http.MethodPatch, func(r *http.Request) { r.Header.Set("Authorization", "Bearer t") }, http.StatusOK},
		{"missing token", http.MethodPatch, func(*http.Request) {}, http.StatusForbidden},
		{"matching pair", http.MethodPatch, func(r *http.Request) {
			r.Header.Set(CSRFHeaderName, "abc")
			r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
		}, http.StatusOK},
		{"mismatch", http.MethodPatch, func(r *http.Request) {
			r.Header.Set(CSRFHeaderName, "abc")
			r.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "xyz"})
		}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/x", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
