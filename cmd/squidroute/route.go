package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/squidroute/pkg/pipeline"
	"github.com/uhyunpark/squidroute/pkg/squid"
)

type routeFlags struct {
	publicKey string
	params    squid.Params
	forecall  bool
}

func (f *routeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.publicKey, "pubkey", "", "recipient public key (hex)")
	fs.Int64Var(&f.params.FromChain, "from-chain", 5, "source chain id")
	fs.StringVar(&f.params.FromToken, "from-token", "", "source token address")
	fs.StringVar(&f.params.FromAmount, "from-amount", "", "amount in base units")
	fs.Int64Var(&f.params.ToChain, "to-chain", 1287, "destination chain id")
	fs.StringVar(&f.params.ToToken, "to-token", "", "destination token address")
	fs.StringVar(&f.params.FromAddress, "from-address", "", "sender address")
	fs.Float64Var(&f.params.Slippage, "slippage", 1, "max slippage in percent")
	fs.BoolVar(&f.forecall, "forecall", false, "request a forecall route")
	cmd.MarkFlagRequired("pubkey")
}

func (f *routeFlags) squidParams(cmd *cobra.Command) squid.Params {
	p := f.params
	if cmd.Flags().Changed("forecall") {
		v := f.forecall
		p.EnableForecall = &v
	}
	return p
}

func newRouteCmd(global *GlobalFlags) *cobra.Command {
	var f routeFlags
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Request a route to the address of a public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(global)
			if err != nil {
				return err
			}
			a, err := pipeline.Setup(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			p, route, err := a.FetchRoute(cmd.Context(), f.squidParams(cmd), f.publicKey)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				Params squid.Params `json:"params"`
				Route  interface{}  `json:"route"`
			}{p, route.Raw})
		},
	}
	f.register(cmd)
	return cmd
}

func newUserOpCmd(global *GlobalFlags) *cobra.Command {
	var (
		f    routeFlags
		sign bool
	)
	cmd := &cobra.Command{
		Use:   "userop",
		Short: "Build a user operation that executes the route from the owner's account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(global)
			if err != nil {
				return err
			}
			a, err := pipeline.Setup(cmd.Context(), cfg, logger, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			op, err := a.GenerateUserOp(cmd.Context(), f.squidParams(cmd), f.publicKey)
			if errors.Is(err, pipeline.ErrNoBuilder) {
				return fmt.Errorf("%w: set RPC_URL and OWNER_PRIVATE_KEY", err)
			}
			if err != nil {
				return err
			}
			if sign {
				if err := a.Builder().Sign(op, a.Owner); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), op)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&sign, "sign", false, "replace the dummy signature with the owner's")
	return cmd
}
