package http

import (
	"net/http"
	"time"

	"github.com/aldabergenov/auth-service/internal/auth/service"
	"github.com/aldabergenov/auth-service/internal/common/constants"
	commonhttp "github.com/aldabergenov/auth-service/internal/common/http"
	"github.com/aldabergenov/auth-service/internal/common/jwtverify"
	"github.com/aldabergenov/auth-service/internal/common/logger"
)

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type selfResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type Handler struct {
	auth         *service.AuthService
	errHandler   *commonhttp.ErrorHandler
	log          *logger.Logger
	cookieDomain string
}

type HandlerConfig struct {
	Auth           *service.AuthService
	KeyResolver    jwtverify.KeyResolver
	TokenStore     jwtverify.TokenStore
	RefreshSecret  []byte
	CookieDomain   string
	RequestTimeout time.Duration
	Log            *logger.Logger
}

// NewHandler builds the auth mux. The refresh gate fronts /auth/refresh
// and /auth/logout; the access gate fronts /auth/self. Register and
// login stand open behind rate limiting only.
func NewHandler(cfg HandlerConfig) http.Handler {
	h := &Handler{
		auth:         cfg.Auth,
		errHandler:   commonhttp.NewErrorHandler(cfg.Log),
		log:          cfg.Log,
		cookieDomain: cfg.CookieDomain,
	}

	accessGate := jwtverify.AccessMiddleware(cfg.KeyResolver, cfg.Log)
	refreshGate := jwtverify.RefreshMiddleware(cfg.RefreshSecret, cfg.TokenStore, cfg.Log)
	limiter := commonhttp.NewStrictRateLimiter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultAuthRequestTimeout
	}
	withTimeout := commonhttp.WithTimeout(timeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", commonhttp.HealthHandler(cfg.Log))
	mux.Handle("/auth/register", limiter.MiddlewareForPath("/auth/register")(
		commonhttp.RequireMethod(http.MethodPost)(withTimeout(h.register))))
	mux.Handle("/auth/login", limiter.MiddlewareForPath("/auth/login")(
		commonhttp.RequireMethod(http.MethodPost)(withTimeout(h.login))))
	mux.Handle("/auth/refresh", limiter.MiddlewareForPath("/auth/refresh")(
		refreshGate(commonhttp.RequireMethod(http.MethodPost)(withTimeout(h.refresh)))))
	mux.Handle("/auth/logout", limiter.MiddlewareForPath("/auth/logout")(
		refreshGate(commonhttp.RequireMethod(http.MethodPost)(withTimeout(h.logout)))))
	mux.Handle("/auth/self", limiter.MiddlewareForPath("/auth/self")(
		accessGate(commonhttp.RequireMethod(http.MethodGet)(withTimeout(h.self)))))

	return mux
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON,
			"invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}
	if err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteValidationError(w, r, err)
		return
	}

	result, err := h.auth.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	setAuthCookies(w, h.cookieDomain, result.Pair)
	commonhttp.WriteJSON(w, http.StatusCreated, idResponse{ID: result.User.ID})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeJSON(r, &req); err != nil {
		commonhttp.WriteErrorEnvelope(w, http.StatusBadRequest, commonhttp.CodeInvalidJSON,
			"invalid json", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}
	if err := commonhttp.ValidateStruct(req); err != nil {
		commonhttp.WriteValidationError(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	setAuthCookies(w, h.cookieDomain, result.Pair)
	commonhttp.WriteJSON(w, http.StatusOK, idResponse{ID: result.User.ID})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.RefreshFromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeUnauthenticated,
			"authentication required", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	result, err := h.auth.Refresh(r.Context(), claims)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	setAuthCookies(w, h.cookieDomain, result.Pair)
	commonhttp.WriteJSON(w, http.StatusOK, idResponse{ID: result.User.ID})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.RefreshFromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeUnauthenticated,
			"authentication required", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	if err := h.auth.Logout(r.Context(), claims); err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	clearAuthCookies(w, h.cookieDomain)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) self(w http.ResponseWriter, r *http.Request) {
	claims, ok := jwtverify.AccessFromContext(r.Context())
	if !ok {
		commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeUnauthenticated,
			"authentication required", nil, commonhttp.TraceIDFromContext(r.Context()))
		return
	}

	user, err := h.auth.Self(r.Context(), claims)
	if err != nil {
		h.errHandler.HandleError(w, r, err)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, selfResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
	})
}
