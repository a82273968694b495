package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/squidroute/pkg/metrics"
	"github.com/uhyunpark/squidroute/pkg/pipeline"
	"github.com/uhyunpark/squidroute/pkg/squid"
	"github.com/uhyunpark/squidroute/pkg/storage"
	"github.com/uhyunpark/squidroute/pkg/userop"
)

const (
	pubKeyOne  = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	addressOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
	target     = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	sender     = "0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF"
)

var smartAccount = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

type fakeChain struct{}

func (fakeChain) AccountAddress(context.Context, common.Address, common.Address, *big.Int) (common.Address, error) {
	return smartAccount, nil
}
func (fakeChain) IsDeployed(context.Context, common.Address) (bool, error) { return false, nil }
func (fakeChain) Nonce(context.Context, common.Address, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}
func (fakeChain) GasFees(context.Context) (*big.Int, *big.Int, error) {
	return big.NewInt(10), big.NewInt(1), nil
}
func (fakeChain) EstimateGas(context.Context, *userop.UserOperation, common.Address) (*userop.GasEstimate, error) {
	one := (*hexutil.Big)(big.NewInt(1))
	return &userop.GasEstimate{PreVerificationGas: one, VerificationGasLimit: one, CallGasLimit: one}, nil
}

type testEnv struct {
	srv     *httptest.Server
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T, upstreamStatus int, withBuilder bool) *testEnv {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if upstreamStatus != http.StatusOK {
			w.WriteHeader(upstreamStatus)
			w.Write([]byte(`{"message":"no route"}`))
			return
		}
		w.Write([]byte(`{"route":{"transactionRequest":{"targetAddress":"` + target + `","data":"0xcafe"}}}`))
	}))
	t.Cleanup(upstream.Close)

	m := metrics.New()
	opts := []pipeline.Option{pipeline.WithStore(storage.NewInMemoryRouteStore()), pipeline.WithMetrics(m)}
	if withBuilder {
		cfg := userop.Config{
			EntryPoint: common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
			Factory:    common.HexToAddress("0x000000893A26168158fbeaDD9335Be5bC96592E2"),
			ChainID:    big.NewInt(5),
		}
		opts = append(opts, pipeline.WithBuilder(userop.NewBuilder(cfg, common.HexToAddress(sender), fakeChain{})))
	}
	client := squid.NewClient(squid.Config{APIURL: upstream.URL, IntegratorID: "it", Timeout: time.Second})
	s := NewServer(pipeline.New(client, opts...), WithMetrics(m))

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, metrics: m}
}

func (e *testEnv) get(t *testing.T, path string, out interface{}) int {
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) post(t *testing.T, path string, body interface{}, out interface{}) int {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func routeRequest() RouteRequest {
	return RouteRequest{
		PublicKey: pubKeyOne,
		Params: squid.Params{
			FromChain:   5,
			FromToken:   "0xc778417e063141139fce010982780140aa0cd5ab",
			FromAmount:  "1000",
			ToChain:     1287,
			ToToken:     "0xd1633f7fb3d716643125d6415d4177bc36b7186b",
			FromAddress: sender,
			Slippage:    1,
		},
	}
}

func TestDerive(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, false)

	var addr AddressResponse
	assert.Equal(t, http.StatusOK, env.post(t, "/api/v1/addresses/derive", DeriveRequest{PublicKey: pubKeyOne}, &addr))
	assert.Equal(t, addressOne, addr.Address)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, env.post(t, "/api/v1/addresses/derive", DeriveRequest{PublicKey: "02abcd"}, &errResp))
	assert.Equal(t, "invalid public key", errResp.Error)
}

func TestValidateAndChecksum(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, false)

	var v ValidateResponse
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/addresses/0x7e5f4552091a69125d5dfcb7b8c2659029395bdf/validate", &v))
	assert.True(t, v.Valid)
	assert.Equal(t, addressOne, v.Checksummed)

	v = ValidateResponse{}
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/addresses/0x7E5F4552091A69125d5DfCb7b8C2659029395BDF/validate", &v))
	assert.False(t, v.Valid, "wrong checksum")
	assert.Empty(t, v.Checksummed)

	var addr AddressResponse
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/addresses/0x7e5f4552091a69125d5dfcb7b8c2659029395bdf/checksum", &addr))
	assert.Equal(t, addressOne, addr.Address)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/addresses/0x1234/checksum", nil))
}

func TestRoutesAndHistory(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, false)

	var route RouteResponse
	assert.Equal(t, http.StatusOK, env.post(t, "/api/v1/routes", routeRequest(), &route))
	assert.Equal(t, addressOne, route.Params.ToAddress)
	assert.Contains(t, string(route.Route), target)

	var history RouteHistoryResponse
	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/routes/"+addressOne+"?limit=5", &history))
	require.Len(t, history.Routes, 1)
	assert.Equal(t, target, history.Routes[0].TargetAddress)
	assert.Equal(t, sender, history.Routes[0].FromAddress)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/routes/"+addressOne+"?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/routes/0xnope", nil))
}

func TestRoutes_Errors(t *testing.T) {
	env := newTestEnv(t, http.StatusBadRequest, false)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadGateway, env.post(t, "/api/v1/routes", routeRequest(), &errResp))
	assert.Contains(t, errResp.Message, "no route")

	bad := routeRequest()
	bad.Params.FromAmount = "-1"
	assert.Equal(t, http.StatusBadRequest, env.post(t, "/api/v1/routes", bad, nil))

	resp, err := http.Post(env.srv.URL+"/api/v1/routes", "application/json", bytes.NewReader([]byte(`{"bogus":1}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserOps(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, true)

	var op map[string]string
	assert.Equal(t, http.StatusOK, env.post(t, "/api/v1/userops", routeRequest(), &op))
	assert.Equal(t, smartAccount.Hex(), op["sender"])
	assert.NotEqual(t, "0x", op["initCode"])

	disabled := newTestEnv(t, http.StatusOK, false)
	assert.Equal(t, http.StatusServiceUnavailable, disabled.post(t, "/api/v1/userops", routeRequest(), nil))
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, false)

	var health HealthResponse
	assert.Equal(t, http.StatusOK, env.get(t, "/health", &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.RouteHistory)
	assert.False(t, health.UserOps)

	env.post(t, "/api/v1/addresses/derive", DeriveRequest{PublicKey: pubKeyOne}, nil)

	resp, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `squidroute_api_requests_total{route="/health",status="OK"} 1`)
	assert.Contains(t, string(body), `squidroute_addresses_derived_total{result="ok"} 1`)
}
