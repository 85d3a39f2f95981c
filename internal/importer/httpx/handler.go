package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/order-importer/internal/importer/batch"
	"github.com/jcmexdev/order-importer/internal/importer/core/domain"
	"github.com/jcmexdev/order-importer/internal/importer/core/ports"
	"github.com/jcmexdev/order-importer/internal/pkg/auth"
	"github.com/jcmexdev/order-importer/internal/pkg/cache"
	"github.com/jcmexdev/order-importer/internal/pkg/constants"
)

// idempotencyTTL is how long a finished batch result is replayable.
const idempotencyTTL = 24 * time.Hour

// OrderReader serves the status endpoint.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

// Handler handles the bulk import surface.
type Handler struct {
	coordinator *batch.Coordinator
	reader      OrderReader
	cache       cache.Cache // nil-safe: idempotent replay skipped if nil
}

// NewHandler wires the handler. cache may be nil; in that case repeated
// idempotency-key requests re-run the batch.
func NewHandler(coordinator *batch.Coordinator, reader OrderReader, c cache.Cache) *Handler {
	return &Handler{coordinator: coordinator, reader: reader, cache: c}
}

// ImportOrders runs one bulk import batch synchronously and returns the
// per-order results.
func (h *Handler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	var req batch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "orders are required")
		return
	}

	idempKey, _ := r.Context().Value(constants.ContextKeyIdempotencyKey).(string)
	requestID, _ := r.Context().Value(constants.ContextKeyRequestID).(string)

	if cached, ok := h.replay(r.Context(), idempKey); ok {
		slog.InfoContext(r.Context(), "replaying cached batch result",
			"request_id", requestID, "idempotency_key", idempKey)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cached))
		return
	}

	slog.InfoContext(r.Context(), "importing batch",
		"request_id", requestID, "orders", len(req.Orders))

	result, err := h.coordinator.Import(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "permission_denied", "")
		case strings.Contains(err.Error(), "invalid error policy"),
			strings.Contains(err.Error(), "invalid stock update policy"):
			writeError(w, http.StatusBadRequest, "invalid_policy", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "import_failed", err.Error())
		}
		return
	}

	h.remember(r.Context(), idempKey, result)
	writeJSON(w, http.StatusOK, result)
}

// GetOrderByID retrieves a single imported order's header by its ID.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "")
		return
	}

	order, err := h.reader.GetOrder(r.Context(), orderID)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "order_lookup_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Healthz answers liveness probes.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) replay(ctx context.Context, idempKey string) (string, bool) {
	if h.cache == nil || idempKey == "" {
		return "", false
	}
	cached, err := h.cache.Get(ctx, h.cache.GenerateKey("bulk_import", idempKey))
	if err != nil {
		slog.WarnContext(ctx, "idempotency cache read failed", "error", err)
		return "", false
	}
	return cached, cached != ""
}

func (h *Handler) remember(ctx context.Context, idempKey string, result *batch.Result) {
	if h.cache == nil || idempKey == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	key := h.cache.GenerateKey("bulk_import", idempKey)
	if err := h.cache.Set(ctx, key, string(payload), idempotencyTTL); err != nil {
		slog.WarnContext(ctx, "idempotency cache write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
