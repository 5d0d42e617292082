package httpapi

import "time"

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Cached  bool `json:"cached"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Height    uint64 `json:"height,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Uptime    int64  `json:"uptime"`
	Error     string `json:"error,omitempty"`
}

func NewSuccessResponse(data any, cached bool) SuccessResponse {
	return SuccessResponse{Success: true, Data: data, Cached: cached}
}

func NewErrorResponse(err error, code string) ErrorResponse {
	return ErrorResponse{Success: false, Error: err.Error(), Code: code}
}

func NewHealthResponse(startTime time.Time, height uint64, err error) HealthResponse {
	now := time.Now()
	resp := HealthResponse{
		Status:    "ok",
		Height:    height,
		Timestamp: now.UnixMilli(),
		Uptime:    int64(now.Sub(startTime).Seconds()),
	}
	if err != nil {
		resp.Status = "error"
		resp.Error = err.Error()
	}
	return resp
}
