package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sessionhistory/internal/auth"
	"sessionhistory/internal/config"
	"sessionhistory/internal/ratelimit"
	"sessionhistory/internal/service/history"
	"sessionhistory/internal/storage"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the request limits taken from configuration.
// Cache is pinged by the health check when set.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
	RequestTimeout  time.Duration
	Cache           Pinger
}

func (o *Options) applyDefaults() {
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = config.DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = config.DefaultMaxPageSize
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = config.DefaultRequestTimeout * time.Second
	}
}

// Handler wires HTTP routes to the history service.
type Handler struct {
	history *history.Service
	store   storage.Store
	authn   auth.Authenticator
	limiter *ratelimit.Limiter
	opts    Options
}

// NewHandler constructs a Handler instance. limiter may be nil to disable rate limiting.
func NewHandler(svc *history.Service, store storage.Store, authn auth.Authenticator, limiter *ratelimit.Limiter, opts Options) *Handler {
	registerValidators()
	opts.applyDefaults()
	return &Handler{
		history: svc,
		store:   store,
		authn:   authn,
		limiter: limiter,
		opts:    opts,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.healthz)

	api := router.Group("/api")
	if h.limiter != nil {
		api.Use(ratelimit.Gate(h.limiter, ratelimit.ClassGeneral))
	}
	chat := api.Group("/chat")
	chat.Use(auth.Middleware(h.authn), auth.CSRFMiddleware())
	chat.GET("/history", h.getHistory)
	chat.PATCH("/history", h.annotateMessage)
	chat.GET("/csrf", h.issueCSRF)
	chat.POST("/logout", h.logout)
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.opts.RequestTimeout)
}

func (h *Handler) getHistory(c *gin.Context) {
	q, err := bindHistoryQuery(c, h.opts.DefaultPageSize, h.opts.MaxPageSize)
	if err != nil {
		writeError(c, err, "")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.history.History(ctx, q)
	if err != nil {
		writeError(c, err, "Session not found")
		return
	}
	c.JSON(http.StatusOK, newHistoryResponse(res))
}

func (h *Handler) annotateMessage(c *gin.Context) {
	req, err := bindAnnotation(c)
	if err != nil {
		writeError(c, err, "")
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.history.Rate(ctx, req); err != nil {
		writeError(c, err, "Message not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message updated successfully"})
}

func (h *Handler) issueCSRF(c *gin.Context) {
	csrfToken, err := auth.NewCSRFToken()
	if err != nil {
		writeError(c, err, "")
		return
	}
	setCookie(c, &http.Cookie{
		Name:     auth.CSRFCookieName,
		Value:    csrfToken,
		MaxAge:   h.cookieTTL(),
		Path:     "/",
		Secure:   gin.Mode() == gin.ReleaseMode,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
	c.JSON(http.StatusOK, gin.H{"csrfToken": csrfToken})
}

// logout revokes the presented token, or every token of the caller when
// all=true, and clears the auth cookies.
func (h *Handler) logout(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if revoker, ok := h.authn.(auth.Revoker); ok {
		var err error
		if c.Query("all") == "true" {
			userID, _ := auth.UserIDFromContext(c)
			err = revoker.RevokeUserTokens(ctx, userID)
		} else if authToken, ok := auth.AuthTokenFromContext(c); ok {
			err = revoker.RevokeToken(ctx, authToken)
		}
		if err != nil {
			writeError(c, err, "")
			return
		}
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) cookieTTL() int {
	ttl := 3600
	if revoker, ok := h.authn.(auth.Revoker); ok {
		if secs := int(revoker.TokenTTL().Seconds()); secs > 0 {
			ttl = secs
		}
	}
	return ttl
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{auth.CookieName, auth.CSRFCookieName} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == auth.CookieName,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}

func (h *Handler) healthz(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeError(c, err, "")
		return
	}
	if h.opts.Cache != nil {
		if err := h.opts.Cache.Ping(ctx); err != nil {
			writeError(c, fmt.Errorf("ping cache: %w", err), "")
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
