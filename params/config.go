package params

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// EntryPointV06 is the canonical ERC-4337 v0.6 EntryPoint deployment.
const EntryPointV06 = "0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"

// DefaultLightAccountFactory is the LightAccount factory deployed at the
// same address on every supported chain.
const DefaultLightAccountFactory = "0x000000893A26168158fbeaDD9335Be5bC96592E2"

type Squid struct {
	APIURL       string
	IntegratorID string // sent as x-integrator-id
	Timeout      time.Duration
}

type Chain struct {
	ChainID *big.Int
	RPCURL  string
	// BundlerURL serves eth_estimateUserOperationGas. Providers such as
	// Alchemy expose it on the same endpoint as the node RPC.
	BundlerURL string
}

type Account struct {
	EntryPoint common.Address
	Factory    common.Address
	OwnerKey   string // hex private key of the LightAccount owner
	Salt       *big.Int
}

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Storage struct {
	// RouteDBPath enables the pebble route history when non-empty.
	RouteDBPath string
}

type Log struct {
	File string
}

type Config struct {
	Squid   Squid
	Chain   Chain
	Account Account
	API     API
	Storage Storage
	Log     Log
}

func Default() Config {
	return Config{
		Squid: Squid{
			APIURL:  "https://testnet.api.squidrouter.com/v1/route",
			Timeout: 15 * time.Second,
		},
		Chain: Chain{
			ChainID: big.NewInt(11155111), // sepolia
		},
		Account: Account{
			EntryPoint: common.HexToAddress(EntryPointV06),
			Factory:    common.HexToAddress(DefaultLightAccountFactory),
			Salt:       big.NewInt(0),
		},
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Log: Log{
			File: "data/node.log",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.Squid.APIURL = getEnv("SQUID_API_URL", cfg.Squid.APIURL)
	cfg.Squid.IntegratorID = getEnv("SQUID_INTEGRATOR_ID", cfg.Squid.IntegratorID)
	if timeout := os.Getenv("SQUID_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil && ms > 0 {
			cfg.Squid.Timeout = time.Duration(ms) * time.Millisecond
		}
	}

	if chainID := os.Getenv("CHAIN_ID"); chainID != "" {
		if id, ok := new(big.Int).SetString(chainID, 10); ok {
			cfg.Chain.ChainID = id
		}
	}
	cfg.Chain.RPCURL = getEnv("RPC_URL", cfg.Chain.RPCURL)
	cfg.Chain.BundlerURL = getEnv("BUNDLER_URL", cfg.Chain.RPCURL)

	if ep := os.Getenv("ENTRY_POINT"); common.IsHexAddress(ep) {
		cfg.Account.EntryPoint = common.HexToAddress(ep)
	}
	if factory := os.Getenv("LIGHT_ACCOUNT_FACTORY"); common.IsHexAddress(factory) {
		cfg.Account.Factory = common.HexToAddress(factory)
	}
	cfg.Account.OwnerKey = getEnv("OWNER_PRIVATE_KEY", cfg.Account.OwnerKey)
	if salt := os.Getenv("ACCOUNT_SALT"); salt != "" {
		if s, ok := new(big.Int).SetString(salt, 10); ok {
			cfg.Account.Salt = s
		}
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("API_ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = splitList(origins)
	}

	cfg.Storage.RouteDBPath = getEnv("ROUTE_DB_PATH", cfg.Storage.RouteDBPath)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)

	return cfg
}

// ValidateRouting checks the fields needed to call the routing API.
func (c Config) ValidateRouting() error {
	if c.Squid.APIURL == "" {
		return fmt.Errorf("SQUID_API_URL is required")
	}
	if !strings.HasPrefix(c.Squid.APIURL, "http://") && !strings.HasPrefix(c.Squid.APIURL, "https://") {
		return fmt.Errorf("SQUID_API_URL must be an http(s) URL, got %q", c.Squid.APIURL)
	}
	if c.Squid.IntegratorID == "" {
		return fmt.Errorf("SQUID_INTEGRATOR_ID is required")
	}
	return nil
}

// ValidateChain checks the fields needed to build user operations.
func (c Config) ValidateChain() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.Chain.ChainID == nil || c.Chain.ChainID.Sign() <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if c.Account.EntryPoint == (common.Address{}) || c.Account.Factory == (common.Address{}) {
		return fmt.Errorf("ENTRY_POINT and LIGHT_ACCOUNT_FACTORY must be set")
	}
	if c.Account.OwnerKey == "" {
		return fmt.Errorf("OWNER_PRIVATE_KEY is required")
	}
	return nil
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
