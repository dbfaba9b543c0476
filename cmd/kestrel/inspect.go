package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kestrel/internal/dump"
	"kestrel/internal/module"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] <module.kbc>",
	Short: "Decode a bytecode module and print its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatStr, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		format, err := dump.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read module: %w", err)
		}
		m, err := module.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if format == dump.FormatCBOR && isTerminal(os.Stdout) {
			return fmt.Errorf("refusing to write binary cbor to a terminal; redirect the output")
		}
		return dump.Write(cmd.OutOrStdout(), m, format)
	},
}

func init() {
	inspectCmd.Flags().String("format", "pretty", "output format (pretty|json|yaml|cbor)")
}
