package storage

import (
	"fmt"
	"strings"
)

// Key schema:
//
//	route:<lowercase toAddress>:<unix nanos, 20 digits> → RouteRecord (JSON)
//
// The address is lowercased so checksummed and plain forms share history.
// Timestamps are zero-padded for lexicographic ordering.
const prefixRoute = "route:"

func routeKey(toAddress string, unixNano int64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixRoute, strings.ToLower(toAddress), unixNano))
}

func routePrefix(toAddress string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixRoute, strings.ToLower(toAddress)))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
