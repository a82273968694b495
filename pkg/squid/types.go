package squid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/url"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/uhyunpark/squidroute/pkg/crypto"
)

// ErrInvalidParams is wrapped by every Params validation failure.
var ErrInvalidParams = errors.New("invalid route params")

// ErrInvalidRoute is returned when a routing response lacks a usable
// transaction request.
var ErrInvalidRoute = errors.New("invalid route")

// Params are the query parameters of a route request.
type Params struct {
	FromChain      int64   `json:"fromChain"`   // e.g. 5 (Goerli)
	FromToken      string  `json:"fromToken"`   // token contract address
	FromAmount     string  `json:"fromAmount"`  // base units, decimal
	ToChain        int64   `json:"toChain"`     // e.g. 1287 (Moonbase Alpha)
	ToToken        string  `json:"toToken"`     // token contract address
	FromAddress    string  `json:"fromAddress"` // transaction sender
	ToAddress      string  `json:"toAddress"`   // recipient, overwritten by GenerateParams
	Slippage       float64 `json:"slippage"`    // 3 -> 3.00%, two decimals
	EnableForecall *bool   `json:"enableForecall,omitempty"`
}

// Validate checks the fields the routing API would otherwise reject.
func (p Params) Validate() error {
	if p.FromChain <= 0 || p.ToChain <= 0 {
		return fmt.Errorf("%w: chain ids must be positive", ErrInvalidParams)
	}
	for _, f := range [...]struct{ name, addr string }{
		{"fromToken", p.FromToken},
		{"toToken", p.ToToken},
		{"fromAddress", p.FromAddress},
		{"toAddress", p.ToAddress},
	} {
		if !crypto.IsValidAddress(f.addr) {
			return fmt.Errorf("%w: %s %q is not a valid address", ErrInvalidParams, f.name, f.addr)
		}
	}
	amount, ok := new(big.Int).SetString(p.FromAmount, 10)
	if !ok || amount.Sign() <= 0 || strings.ContainsAny(p.FromAmount, "+-") {
		return fmt.Errorf("%w: fromAmount %q must be a positive integer", ErrInvalidParams, p.FromAmount)
	}
	if p.Slippage < 0 || p.Slippage > 100 || math.IsNaN(p.Slippage) {
		return fmt.Errorf("%w: slippage %v out of range", ErrInvalidParams, p.Slippage)
	}
	if scaled := p.Slippage * 100; math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		return fmt.Errorf("%w: slippage %v has more than two decimals", ErrInvalidParams, p.Slippage)
	}
	return nil
}

// Query encodes p as URL query values.
func (p Params) Query() url.Values {
	q := url.Values{}
	q.Set("fromChain", strconv.FormatInt(p.FromChain, 10))
	q.Set("fromToken", p.FromToken)
	q.Set("fromAmount", p.FromAmount)
	q.Set("toChain", strconv.FormatInt(p.ToChain, 10))
	q.Set("toToken", p.ToToken)
	q.Set("fromAddress", p.FromAddress)
	q.Set("toAddress", p.ToAddress)
	q.Set("slippage", strconv.FormatFloat(p.Slippage, 'f', -1, 64))
	if p.EnableForecall != nil {
		q.Set("enableForecall", strconv.FormatBool(*p.EnableForecall))
	}
	return q
}

// TransactionRequest is the transaction the route asks the sender to submit.
type TransactionRequest struct {
	RouteType            string `json:"routeType,omitempty"`
	TargetAddress        string `json:"targetAddress"`
	Data                 string `json:"data"`
	Value                string `json:"value,omitempty"`
	GasLimit             string `json:"gasLimit,omitempty"`
	GasPrice             string `json:"gasPrice,omitempty"`
	MaxFeePerGas         string `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
}

// Route is a routing API response. Only the transaction request is
// interpreted; the rest is kept verbatim in Raw.
type Route struct {
	TransactionRequest TransactionRequest `json:"transactionRequest"`
	Estimate           json.RawMessage    `json:"estimate,omitempty"`
	Raw                json.RawMessage    `json:"-"`
}

// Validate requires a checksum-valid target and hex call data.
func (r *Route) Validate() error {
	tx := r.TransactionRequest
	if !crypto.IsValidAddress(tx.TargetAddress) {
		return fmt.Errorf("%w: targetAddress %q", ErrInvalidRoute, tx.TargetAddress)
	}
	if _, err := hexutil.Decode(tx.Data); err != nil {
		return fmt.Errorf("%w: data: %v", ErrInvalidRoute, err)
	}
	if _, err := r.ValueWei(); err != nil {
		return err
	}
	return nil
}

// CallData returns the decoded transaction data.
func (r *Route) CallData() []byte {
	b, _ := hexutil.Decode(r.TransactionRequest.Data)
	return b
}

// ValueWei parses the native value attached to the request. The routing API
// sends it as a decimal string; hex is accepted too. Empty means zero.
func (r *Route) ValueWei() (*big.Int, error) {
	v := r.TransactionRequest.Value
	if v == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(v, "0x") {
		n, err := hexutil.DecodeBig(v)
		if err != nil {
			return nil, fmt.Errorf("%w: value %q: %v", ErrInvalidRoute, v, err)
		}
		return n, nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("%w: value %q", ErrInvalidRoute, v)
	}
	return n, nil
}

// decodeRoute accepts either the route object itself or {"route": {...}}.
func decodeRoute(body []byte) (*Route, error) {
	var envelope struct {
		Route json.RawMessage `json:"route"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}
	raw := json.RawMessage(body)
	if len(envelope.Route) > 0 && string(envelope.Route) != "null" {
		raw = envelope.Route
	}

	var route Route
	if err := json.Unmarshal(raw, &route); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}
	route.Raw = raw
	return &route, nil
}
