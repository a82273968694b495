package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/params"
	"github.com/uhyunpark/squidroute/pkg/util"
)

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	EnvFile string // .env path, "" for ./.env
	Verbose bool   // log to stderr
}

func newRootCmd() *cobra.Command {
	var flags GlobalFlags

	root := &cobra.Command{
		Use:   "squidroute",
		Short: "Derive recipient addresses and build cross-chain route operations",
		Long: `squidroute derives checksummed Ethereum addresses from secp256k1 public
keys, requests Squid cross-chain routes to them and wraps the resulting
transaction in an ERC-4337 user operation.

Examples:
  squidroute derive 0279be66...f81798
  squidroute validate 0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf
  squidroute route --pubkey 02... --from-chain 5 --to-chain 1287 ...
  squidroute userop --pubkey 02... --sign ...`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.EnvFile, "env", "", "path to .env file (default: ./.env)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(newDeriveCmd(), newChecksumCmd(), newValidateCmd())
	root.AddCommand(newRouteCmd(&flags), newUserOpCmd(&flags))
	return root
}

// loadConfig reads the environment and builds the command logger.
func loadConfig(flags *GlobalFlags) (params.Config, *zap.SugaredLogger, error) {
	cfg := params.LoadFromEnv(flags.EnvFile)
	if !flags.Verbose {
		return cfg, zap.NewNop().Sugar(), nil
	}
	logger, err := util.NewLogger()
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger.Sugar(), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
