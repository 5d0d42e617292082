package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/model"
	"poolScope/internal/service"
)

// Querier is the query surface served over HTTP.
type Querier interface {
	Candles(ctx context.Context, q service.Query) (service.Result[model.CandleSeries], error)
	AllCandles(ctx context.Context, q service.Query) (service.Result[[]model.CandleSeries], error)
	PoolDetail(ctx context.Context, q service.Query) (service.Result[model.PoolDetail], error)
	AllPoolDetails(ctx context.Context, q service.Query) (service.Result[[]model.PoolDetail], error)
	PriceMetrics(ctx context.Context) (service.Result[model.PriceMetrics], error)
	CurrentHeight(ctx context.Context) (uint64, error)
}

type Handlers struct {
	querier   Querier
	logger    *zap.Logger
	startTime time.Time
}

func NewHandlers(querier Querier, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		querier:   querier,
		logger:    logger,
		startTime: time.Now(),
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	height, err := h.querier.CurrentHeight(r.Context())
	status := http.StatusOK
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, NewHealthResponse(h.startTime, height, err))
}

// GetPools serves candles when interval is set and pool detail otherwise,
// for one pool or for pool=all.
func (h *Handlers) GetPools(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ctx := r.Context()

	switch {
	case q.Interval != "" && q.IsAll():
		res, err := h.querier.AllCandles(ctx, q)
		h.respond(w, res.Data, res.Cached, err)
	case q.Interval != "":
		res, err := h.querier.Candles(ctx, q)
		h.respond(w, res.Data, res.Cached, err)
	case q.IsAll():
		res, err := h.querier.AllPoolDetails(ctx, q)
		h.respond(w, res.Data, res.Cached, err)
	default:
		res, err := h.querier.PoolDetail(ctx, q)
		h.respond(w, res.Data, res.Cached, err)
	}
}

func (h *Handlers) GetPriceMetrics(w http.ResponseWriter, r *http.Request) {
	res, err := h.querier.PriceMetrics(r.Context())
	h.respond(w, res.Data, res.Cached, err)
}

func parseQuery(r *http.Request) (service.Query, error) {
	values := r.URL.Query()
	q := service.Query{
		Pool:     strings.TrimSpace(values.Get("pool")),
		Interval: strings.TrimSpace(values.Get("interval")),
	}
	if q.Pool == "" {
		return q, fmt.Errorf("%w: pool parameter is required", model.ErrValidation)
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("%w: invalid limit %q", model.ErrValidation, raw)
		}
		q.Limit = limit
	}
	if raw := strings.TrimSpace(values.Get("height")); raw != "" {
		height, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("%w: invalid height %q", model.ErrValidation, raw)
		}
		q.Height = &height
	}
	return q, nil
}

func (h *Handlers) respond(w http.ResponseWriter, data any, cached bool, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, NewSuccessResponse(data, cached))
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, NewErrorResponse(err, code))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, model.ErrDecode):
		return http.StatusInternalServerError, "decode_error"
	case errors.Is(err, model.ErrZeroReserve):
		return http.StatusInternalServerError, "zero_reserve"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, "timeout"
	case errors.Is(err, model.ErrRemote):
		return http.StatusInternalServerError, "remote_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
