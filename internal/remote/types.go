package remote

import (
	"context"

	"github.com/hyperengineering/regs"
)

// Backend is the storage behind the remote record service.
type Backend interface {
	regs.RemoteStore
	Ping(ctx context.Context) error
}

// HealthResponse from GET /api/v1/health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Backend string `json:"backend"`
}

// RecordList from GET /api/v1/collections/{collection}/records
type RecordList struct {
	Records []regs.Record `json:"records"`
	Total   int           `json:"total"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
