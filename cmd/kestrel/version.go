package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kestrel/internal/version"
)

type versionPayload struct {
	Tool         string `json:"tool"`
	Version      string `json:"version"`
	ModuleFormat string `json:"module_format"`
	GitCommit    string `json:"git_commit,omitempty"`
	BuildDate    string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the compiler version and module format",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		switch strings.ToLower(format) {
		case "pretty":
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		case "json":
			return renderVersionJSON(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func renderVersionJSON(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(versionPayload{
		Tool:         "kestrel",
		Version:      strings.TrimSpace(version.Version),
		ModuleFormat: version.ModuleFormat(),
		GitCommit:    strings.TrimSpace(version.GitCommit),
		BuildDate:    strings.TrimSpace(version.BuildDate),
	})
}
