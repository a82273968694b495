package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/squidroute/pkg/crypto"
)

func newDeriveCmd() *cobra.Command {
	var backend string
	cmd := &cobra.Command{
		Use:   "derive <public-key-hex>",
		Short: "Derive the checksummed address of a secp256k1 public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b crypto.Backend
			switch backend {
			case "geth":
				b = crypto.GethBackend{}
			case "decred":
				b = crypto.DecredBackend{}
			default:
				return fmt.Errorf("unknown backend %q (want geth or decred)", backend)
			}
			addr, err := crypto.NewDeriver(b).DeriveAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&backend, "backend", "geth", "secp256k1 backend: geth|decred")
	return cmd
}

func newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <address>",
		Short: "Print the EIP-55 form of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := crypto.ToChecksumAddress(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <address>",
		Short: "Check an address against its EIP-55 checksum",
		Long:  "Exits non-zero when the address is invalid. All-lowercase addresses are accepted.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !crypto.IsValidAddress(args[0]) {
				return fmt.Errorf("%s: invalid address", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}
