package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/openheads/headcatalog/internal/domain/acquisition"
	"github.com/openheads/headcatalog/internal/domain/browse"
	"github.com/openheads/headcatalog/internal/domain/favorite"
	"github.com/openheads/headcatalog/internal/domain/ratelimit"
	"github.com/openheads/headcatalog/internal/service"
)

const maxBodyBytes = 64 << 10

// BalanceReader reads ledger balances.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (float64, error)
}

// GrantReader reads the granted items of a user.
type GrantReader interface {
	Grants(ctx context.Context, userID string) ([]acquisition.Grant, error)
}

// Handler serves the /v1 API.
type Handler struct {
	catalog   *service.CatalogService
	balances  BalanceReader
	grants    GrantReader
	limiter   ratelimit.RateLimiter
	metrics   *Metrics
	adminOpen bool
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithBalances enables GET /v1/users/{user}/balance.
func WithBalances(b BalanceReader) HandlerOption {
	return func(h *Handler) { h.balances = b }
}

// WithGrants enables GET /v1/users/{user}/inventory.
func WithGrants(g GrantReader) HandlerOption {
	return func(h *Handler) { h.grants = g }
}

// WithRateLimiter limits per-user routes.
func WithRateLimiter(l ratelimit.RateLimiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// WithHandlerMetrics records per-route metrics.
func WithHandlerMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithRemoteAdmin lets non-loopback clients call admin routes. Set it when
// API keys protect the API.
func WithRemoteAdmin(open bool) HandlerOption {
	return func(h *Handler) { h.adminOpen = open }
}

// NewHandler creates a Handler over svc.
func NewHandler(svc *service.CatalogService, opts ...HandlerOption) *Handler {
	h := &Handler{catalog: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the /v1 routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Browsing.
	h.user(mux, "POST /v1/users/{user}/catalog/open", h.handleOpen)
	h.user(mux, "POST /v1/users/{user}/catalog/category", h.handleSelectCategory)
	h.user(mux, "POST /v1/users/{user}/catalog/search", h.handleSearch)
	h.user(mux, "POST /v1/users/{user}/catalog/favorites", h.handleSelectFavorites)
	h.user(mux, "POST /v1/users/{user}/catalog/next", h.handleNext)
	h.user(mux, "POST /v1/users/{user}/catalog/prev", h.handlePrev)
	h.user(mux, "POST /v1/users/{user}/catalog/back", h.handleBack)
	h.user(mux, "POST /v1/users/{user}/catalog/close", h.handleClose)
	h.user(mux, "GET /v1/users/{user}/catalog", h.handleRender)
	h.user(mux, "DELETE /v1/users/{user}/session", h.handleEndSession)

	// Items.
	h.user(mux, "POST /v1/users/{user}/favorites/toggle", h.handleToggleFavorite)
	h.user(mux, "POST /v1/users/{user}/acquire", h.handleAcquire)
	h.user(mux, "GET /v1/users/{user}/inventory", h.handleInventory)
	h.user(mux, "GET /v1/users/{user}/balance", h.handleBalance)

	// Catalog.
	h.route(mux, "GET /v1/categories", h.handleCategories)
	h.route(mux, "POST /v1/admin/reload", h.adminOnly(h.handleReload))

	return mux
}

func (h *Handler) route(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, instrument(h.metrics, pattern, fn))
}

// user registers a per-user route behind the rate limiter.
func (h *Handler) user(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	h.route(mux, pattern, func(w http.ResponseWriter, r *http.Request) {
		if h.limited(w, r, r.PathValue("user")) {
			return
		}
		fn(w, r)
	})
}

func (h *Handler) limited(w http.ResponseWriter, r *http.Request, userID string) bool {
	if h.limiter == nil {
		return false
	}
	res, err := h.limiter.Allow(r.Context(), ratelimit.UserKey(userID))
	if err != nil {
		LoggerFromContext(r.Context()).Error("rate limiter failed", "user_id", userID, "error", err)
		return false
	}
	if res.Allowed {
		return false
	}
	if h.metrics != nil {
		h.metrics.RateLimitedTotal.Inc()
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
	respondError(r.Context(), w, http.StatusTooManyRequests, "too many requests")
	return true
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func (h *Handler) adminOnly(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.adminOpen && !isLocalhost(r) {
			respondError(r.Context(), w, http.StatusForbidden, "admin routes require localhost access or api keys")
			return
		}
		fn(w, r)
	}
}

// --- browsing ---

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.OpenCatalog(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) handleSelectCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := readJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		respondError(r.Context(), w, http.StatusBadRequest, "category is required")
		return
	}
	model, err := h.catalog.SelectCategory(r.Context(), r.PathValue("user"), req.Category)
	h.respondModel(w, r, model, err)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := readJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return
	}
	model, err := h.catalog.Search(r.Context(), r.PathValue("user"), req.Query)
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleSelectFavorites(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.SelectFavorites(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.NextPage(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handlePrev(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.PrevPage(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.Back(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.CloseCatalog(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	model, err := h.catalog.Render(r.Context(), r.PathValue("user"))
	h.respondModel(w, r, model, err)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.EndSession(r.Context(), r.PathValue("user")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondModel(w http.ResponseWriter, r *http.Request, model browse.RenderModel, err error) {
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, newRenderResponse(model))
}

// --- items ---

type itemRequest struct {
	Category string `json:"category"`
	Item     string `json:"item"`
}

func (req itemRequest) validate() string {
	switch {
	case req.Category == "":
		return "category is required"
	case req.Item == "":
		return "item is required"
	}
	return ""
}

func (h *Handler) readItem(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	if err := readJSON(w, r, &req); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if msg := req.validate(); msg != "" {
		respondError(r.Context(), w, http.StatusBadRequest, msg)
		return req, false
	}
	return req, true
}

func (h *Handler) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readItem(w, r)
	if !ok {
		return
	}
	outcome, err := h.catalog.ToggleFavorite(r.Context(), r.PathValue("user"), req.Category, req.Item)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toggleResponse{Result: outcome.String()})
}

func (h *Handler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readItem(w, r)
	if !ok {
		return
	}
	res, err := h.catalog.Acquire(r.Context(), r.PathValue("user"), req.Category, req.Item)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	resp := acquireResponse{Result: res.Outcome.String(), Price: res.Price}
	if res.Outcome == acquisition.Granted {
		resp.ReceiptID = res.ReceiptID
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	if h.grants == nil {
		respondError(r.Context(), w, http.StatusNotFound, "inventory is not readable")
		return
	}
	grants, err := h.grants.Grants(r.Context(), r.PathValue("user"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	resp := inventoryResponse{User: r.PathValue("user"), Grants: make([]grantResponse, len(grants))}
	for i, g := range grants {
		resp.Grants[i] = grantResponse{ItemDescriptor: g.Item, GrantedAt: g.GrantedAt}
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		respondError(r.Context(), w, http.StatusNotFound, "ledger is not readable")
		return
	}
	balance, err := h.balances.Balance(r.Context(), r.PathValue("user"))
	if err != nil {
		h.respondServiceError(w, r, errors.Join(acquisition.ErrStoreUnavailable, err))
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, balanceResponse{User: r.PathValue("user"), Balance: balance})
}

// --- catalog ---

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.catalog.Categories()
	resp := categoriesResponse{Categories: make([]categoryResponse, len(cats))}
	for i, c := range cats {
		resp.Categories[i] = newCategoryResponse(c)
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	report, err := h.catalog.Reload(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoDefinitionSource) {
			respondError(r.Context(), w, http.StatusConflict, err.Error())
			return
		}
		LoggerFromContext(r.Context()).Error("catalog reload failed", "error", err)
		respondError(r.Context(), w, http.StatusInternalServerError, "catalog reload failed")
		return
	}
	LoggerFromContext(r.Context()).Info("catalog reloaded", "client", ClientFromContext(r.Context()), "categories", report.Categories)
	respondJSON(r.Context(), w, http.StatusOK, report)
}

// --- errors and JSON ---

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidUser):
		return http.StatusBadRequest, "invalid user id"
	case errors.Is(err, service.ErrUnknownCategory):
		return http.StatusNotFound, "unknown category"
	case errors.Is(err, service.ErrUnknownItem):
		return http.StatusNotFound, "unknown item"
	case errors.Is(err, service.ErrCatalogClosed):
		return http.StatusConflict, "catalog is closed"
	case errors.Is(err, acquisition.ErrReconciliationRequired):
		return http.StatusInternalServerError, "acquisition failed and was not refunded; contact an operator"
	case errors.Is(err, acquisition.ErrGrantFailed):
		return http.StatusBadGateway, "item could not be delivered; any charge was refunded"
	case errors.Is(err, favorite.ErrStoreUnavailable), errors.Is(err, acquisition.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable, try again"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	respondJSON(r.Context(), w, status, errorResponse{Error: msg})
}

// readJSON decodes the request body into v. An empty body decodes to the
// zero value.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondJSON writes a JSON response with the given status code and data.
func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		LoggerFromContext(ctx).Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, errorResponse{Error: message})
}
