package squid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/squidroute/pkg/crypto"
)

const (
	pubKeyOne  = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	addressOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	target     = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func testParams() Params {
	forecall := true
	return Params{
		FromChain:      5,
		FromToken:      "0xc778417e063141139fce010982780140aa0cd5ab",
		FromAmount:     "100000000000000000",
		ToChain:        1287,
		ToToken:        "0xd1633f7fb3d716643125d6415d4177bc36b7186b",
		FromAddress:    "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF",
		ToAddress:      addressOne,
		Slippage:       3,
		EnableForecall: &forecall,
	}
}

func TestGetRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/route", r.URL.Path)
		assert.Equal(t, "test-integrator", r.Header.Get("x-integrator-id"))

		q := r.URL.Query()
		assert.Equal(t, "5", q.Get("fromChain"))
		assert.Equal(t, "1287", q.Get("toChain"))
		assert.Equal(t, "100000000000000000", q.Get("fromAmount"))
		assert.Equal(t, addressOne, q.Get("toAddress"))
		assert.Equal(t, "3", q.Get("slippage"))
		assert.Equal(t, "true", q.Get("enableForecall"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"route":{"estimate":{"toAmount":"42"},"transactionRequest":{"routeType":"CALL_BRIDGE","targetAddress":"` + target + `","data":"0xdeadbeef","value":"1000","gasLimit":"400000"}}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIURL: srv.URL + "/v1/route", IntegratorID: "test-integrator", Timeout: time.Second})
	route, err := c.GetRoute(context.Background(), testParams())
	require.NoError(t, err)

	assert.Equal(t, target, route.TransactionRequest.TargetAddress)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, route.CallData())
	assert.JSONEq(t, `{"toAmount":"42"}`, string(route.Estimate))
	v, err := route.ValueWei()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Int64())
}

func TestGetRoute_Unwrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasForecall := r.URL.Query()["enableForecall"]
		assert.False(t, hasForecall, "enableForecall omitted when unset")
		w.Write([]byte(`{"transactionRequest":{"targetAddress":"` + target + `","data":"0x"}}`))
	}))
	defer srv.Close()

	p := testParams()
	p.EnableForecall = nil

	route, err := NewClient(Config{APIURL: srv.URL}).GetRoute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, target, route.TransactionRequest.TargetAddress)
	assert.Empty(t, route.CallData())
}

func TestGetRoute_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"fromToken not supported"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIURL: srv.URL}).GetRoute(context.Background(), testParams())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "fromToken not supported", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "HTTP 400")
}

func TestGetRoute_BadRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transactionRequest":{"targetAddress":"0x1234","data":"0x00"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIURL: srv.URL}).GetRoute(context.Background(), testParams())
	require.ErrorIs(t, err, ErrInvalidRoute)
}

func TestGetRoute_InvalidParamsSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := testParams()
	p.ToAddress = "0x..."
	_, err := NewClient(Config{APIURL: srv.URL}).GetRoute(context.Background(), p)
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.False(t, called)
}

func TestGetRoute_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Config{APIURL: srv.URL}).GetRoute(ctx, testParams())
	require.ErrorIs(t, err, context.Canceled)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero from chain", func(p *Params) { p.FromChain = 0 }},
		{"bad from token", func(p *Params) { p.FromToken = "weth" }},
		{"bad checksum", func(p *Params) { p.FromAddress = "0x2b5AD5c4795c026514f8317c7a215E218DcCD6cF" }},
		{"negative amount", func(p *Params) { p.FromAmount = "-1" }},
		{"zero amount", func(p *Params) { p.FromAmount = "0" }},
		{"decimal amount", func(p *Params) { p.FromAmount = "0.1" }},
		{"slippage too high", func(p *Params) { p.Slippage = 101 }},
		{"slippage three decimals", func(p *Params) { p.Slippage = 1.005 }},
	}

	require.NoError(t, testParams().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			require.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}

	p := testParams()
	p.Slippage = 0.25
	require.NoError(t, p.Validate())
}

func TestGenerateParams(t *testing.T) {
	in := testParams()
	in.ToAddress = "0x..."

	out, err := GenerateParams(in, pubKeyOne)
	require.NoError(t, err)
	assert.Equal(t, addressOne, out.ToAddress)
	assert.Equal(t, "0x...", in.ToAddress, "input is not modified")
	assert.Equal(t, in.FromAmount, out.FromAmount)

	*out.EnableForecall = false
	assert.True(t, *in.EnableForecall, "EnableForecall is copied")

	_, err = GenerateParams(in, "not-hex")
	require.ErrorIs(t, err, crypto.ErrInvalidHexEncoding)

	_, err = GenerateParamsWith(crypto.NewDeriver(crypto.DecredBackend{}), in, "02"+strings.Repeat("ff", 32))
	require.ErrorIs(t, err, crypto.ErrInvalidPublicKey)
}
