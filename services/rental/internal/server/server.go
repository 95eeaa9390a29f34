package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rentalai/internal/ratelimit"
	"rentalai/internal/util"
	"rentalai/pkg/domain"
	"rentalai/services/rental/internal/app"
)

const (
	defaultPage    = 1
	defaultPerPage = 12
	maxPerPage     = 100
	maxBodyBytes   = 1 << 20
)

// Config wires dependencies for the HTTP server.
type Config struct {
	App *app.App
	// CreateLimiter throttles listing creation per client. Nil disables it.
	CreateLimiter      *ratelimit.FixedWindowLimiter
	TrustedProxies     *util.TrustedProxies
	CORSAllowedOrigins []string
}

// Server exposes the listing service over JSON HTTP endpoints.
type Server struct {
	app            *app.App
	createLimiter  *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	s := &Server{
		app:            cfg.App,
		createLimiter:  cfg.CreateLimiter,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSAllowedOrigins,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("rental", util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/home", s.handleHome)

	// listings
	s.mux.HandleFunc("/api/listings", s.handleListings)
	s.mux.HandleFunc("/api/listings/", s.handleListingByID)

	// ai
	s.mux.HandleFunc("/api/ai/stats", s.handleAIStats)
	s.mux.HandleFunc("/api/ai/strategies", s.handleStrategies)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	home, err := s.app.Home()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListListings(w, r)
	case http.MethodPost:
		s.handleCreateListing(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListListings(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseListingQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.app.ListListings(filter, page)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	if !s.allowCreate(w, r) {
		return
	}
	var draft domain.ListingDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	listing, err := s.app.CreateListing(r.Context(), draft)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/listings/"+listing.ID)
	writeJSON(w, http.StatusCreated, listing)
}

// /api/listings/{id}, /api/listings/{id}/phone or /api/listings/{id}/ai
func (s *Server) handleListingByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/listings/")
	parts := strings.SplitN(path, "/", 2)
	id := strings.TrimSpace(parts[0])
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "phone":
			s.handleRevealPhone(w, r, id)
		case "ai":
			s.handleListingAI(w, r, id)
		default:
			notFound(w, "not found")
		}
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	detail, err := s.app.GetListingDetail(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRevealPhone(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	contact, err := s.app.RevealPhone(id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

type aiSettingsRequest struct {
	Strategies           []domain.Strategy `json:"strategies"`
	AutoReviews          bool              `json:"autoReviews"`
	AutoMessages         bool              `json:"autoMessages"`
	AnalyticsEnabled     bool              `json:"analyticsEnabled"`
	NotificationsEnabled bool              `json:"notificationsEnabled"`
	PriceOptimization    bool              `json:"priceOptimization"`
	CompetitorAnalysis   bool              `json:"competitorAnalysis"`
}

func (s *Server) handleListingAI(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		view, err := s.app.AISettings(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPut:
		var req aiSettingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		saved, err := s.app.UpdateAISettings(r.Context(), id, domain.AISettings{
			Strategies:           req.Strategies,
			AutoReviews:          req.AutoReviews,
			AutoMessages:         req.AutoMessages,
			AnalyticsEnabled:     req.AnalyticsEnabled,
			NotificationsEnabled: req.NotificationsEnabled,
			PriceOptimization:    req.PriceOptimization,
			CompetitorAnalysis:   req.CompetitorAnalysis,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "settings": saved})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAIStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats()
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "aiStats": stats})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"strategies": s.app.Strategies()})
}

func (s *Server) allowCreate(w http.ResponseWriter, r *http.Request) bool {
	if s.createLimiter == nil {
		return true
	}
	ip := util.ClientIP(r, s.trustedProxies)
	decision, err := s.createLimiter.Allow(r.Context(), "create-listing|"+ip)
	if err != nil {
		util.LoggerFromContext(r.Context()).Warn("rate_limit_unavailable", "ip", ip, "err", err)
		if !decision.Allowed {
			writeError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
			return false
		}
		return true
	}
	if decision.Allowed {
		return true
	}
	retry := int(math.Ceil(decision.RetryAfter.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
	writeError(w, http.StatusTooManyRequests, "too many requests")
	return false
}

func parseListingQuery(q url.Values) (domain.ListingFilter, domain.Page, error) {
	var f domain.ListingFilter
	page := domain.Page{Number: defaultPage, PerPage: defaultPerPage}

	var err error
	if page.Number, err = intParam(q, "page", defaultPage); err != nil {
		return f, page, err
	}
	if page.PerPage, err = intParam(q, "per_page", defaultPerPage); err != nil {
		return f, page, err
	}
	if page.PerPage > maxPerPage {
		page.PerPage = maxPerPage
	}
	if f.MinPrice, err = optionalInt(q, "min_price"); err != nil {
		return f, page, err
	}
	if f.MaxPrice, err = optionalInt(q, "max_price"); err != nil {
		return f, page, err
	}
	if f.Rooms, err = optionalInt(q, "rooms"); err != nil {
		return f, page, err
	}
	f.District = optionalString(q, "district")
	f.Metro = optionalString(q, "metro")
	if raw := strings.TrimSpace(q.Get("ai_enabled")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, page, errors.New("invalid ai_enabled")
		}
		f.AIEnabled = &v
	}
	return f, page, nil
}

func intParam(q url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return v, nil
}

func optionalInt(q url.Values, name string) (*int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &v, nil
}

func optionalString(q url.Values, name string) *string {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil
	}
	return &raw
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		notFound(w, domain.ErrNotFound.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCodeForListing(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCodeForListing(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	case message == "listing not found":
		return "LISTING_NOT_FOUND"
	case message == "invalid json body", message == "request body too large":
		return "LISTING_INVALID_REQUEST"
	case message == "rate limiter unavailable":
		return "SYSTEM_UNAVAILABLE"
	}

	switch status {
	case http.StatusBadRequest:
		return "LISTING_INVALID_REQUEST"
	case http.StatusNotFound:
		return "LISTING_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "SYSTEM_UNAVAILABLE"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
