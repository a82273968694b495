package api

import (
	"encoding/json"
	"time"

	"github.com/uhyunpark/squidroute/pkg/squid"
	"github.com/uhyunpark/squidroute/pkg/storage"
)

// ==============================
// REST Request Types
// ==============================

// DeriveRequest is the payload for POST /api/v1/addresses/derive
type DeriveRequest struct {
	PublicKey string `json:"publicKey"` // hex, compressed or uncompressed, optional 0x
}

// RouteRequest is the payload for POST /api/v1/routes and /api/v1/userops.
// Params.ToAddress is replaced by the address of PublicKey.
type RouteRequest struct {
	Params    squid.Params `json:"params"`
	PublicKey string       `json:"publicKey"`
}

// ==============================
// REST Response Types
// ==============================

type AddressResponse struct {
	Address string `json:"address"`
}

// ValidateResponse reports both the checksum verdict and the canonical form.
type ValidateResponse struct {
	Address     string `json:"address"`
	Valid       bool   `json:"valid"`
	Checksummed string `json:"checksummed,omitempty"` // set only when valid
}

type RouteResponse struct {
	Params squid.Params    `json:"params"`
	Route  json.RawMessage `json:"route"`
}

type RouteHistoryEntry struct {
	FromAddress   string          `json:"fromAddress"`
	FromChain     int64           `json:"fromChain"`
	ToChain       int64           `json:"toChain"`
	TargetAddress string          `json:"targetAddress"`
	Route         json.RawMessage `json:"route"`
	CreatedAt     int64           `json:"createdAt"` // Unix milliseconds
}

type RouteHistoryResponse struct {
	Address string              `json:"address"`
	Routes  []RouteHistoryEntry `json:"routes"`
}

func newRouteHistory(address string, recs []*storage.RouteRecord) RouteHistoryResponse {
	out := RouteHistoryResponse{Address: address, Routes: make([]RouteHistoryEntry, len(recs))}
	for i, rec := range recs {
		out.Routes[i] = RouteHistoryEntry{
			FromAddress:   rec.FromAddress,
			FromChain:     rec.FromChain,
			ToChain:       rec.ToChain,
			TargetAddress: rec.TargetAddress,
			Route:         rec.Route,
			CreatedAt:     rec.CreatedAt.UnixMilli(),
		}
	}
	return out
}

type HealthResponse struct {
	Status       string `json:"status"`
	RouteHistory bool   `json:"routeHistory"`
	UserOps      bool   `json:"userOps"`
	Time         int64  `json:"time"`
}

func newHealth(history, userOps bool) HealthResponse {
	return HealthResponse{Status: "ok", RouteHistory: history, UserOps: userOps, Time: time.Now().UnixMilli()}
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
