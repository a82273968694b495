package storage

import (
	"encoding/json"
	"time"

	"github.com/uhyunpark/squidroute/pkg/squid"
)

// RouteRecord is one fetched route, kept for the recipient's history.
type RouteRecord struct {
	ToAddress     string          `json:"toAddress"`
	FromAddress   string          `json:"fromAddress"`
	FromChain     int64           `json:"fromChain"`
	ToChain       int64           `json:"toChain"`
	TargetAddress string          `json:"targetAddress"`
	Params        squid.Params    `json:"params"`
	Route         json.RawMessage `json:"route"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// NewRouteRecord captures p and the route returned for it.
func NewRouteRecord(p squid.Params, route *squid.Route) *RouteRecord {
	return &RouteRecord{
		ToAddress:     p.ToAddress,
		FromAddress:   p.FromAddress,
		FromChain:     p.FromChain,
		ToChain:       p.ToChain,
		TargetAddress: route.TransactionRequest.TargetAddress,
		Params:        p,
		Route:         route.Raw,
	}
}

// RouteStore persists route history per recipient address.
type RouteStore interface {
	// SaveRoute stores rec. A zero CreatedAt is set to the store's clock.
	SaveRoute(rec *RouteRecord) error
	// LoadRecentRoutes returns up to limit records for toAddress, newest first.
	LoadRecentRoutes(toAddress string, limit int) ([]*RouteRecord, error)
	Close() error
}
