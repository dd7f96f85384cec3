package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"coveragesync/internal/config"
	"coveragesync/internal/keys"
)

func newKeysCmd(c *cli) *cobra.Command {
	var (
		mode     string
		keysFile string
	)

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show the candidate keys of the configured source without touching the network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("mode") {
				c.cfg.Mode = mode
			}
			if cmd.Flags().Changed("keys-file") {
				c.cfg.KeysFile = keysFile
			}
			return runKeys(cmd.OutOrStdout(), c.cfg)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "candidate source: exhaustive, curated or ranges (SYNC_MODE)")
	cmd.Flags().StringVar(&keysFile, "keys-file", "", "YAML key-source file (KEYS_FILE)")
	return cmd
}

func runKeys(out io.Writer, cfg *config.Config) error {
	src, err := cfg.Source()
	if err != nil {
		return err
	}
	candidates := src.Keys()

	fmt.Fprintf(out, "mode:       %s\n", src.Name())
	fmt.Fprintf(out, "candidates: %d\n", len(candidates))
	if len(candidates) == 0 {
		return nil
	}
	fmt.Fprintf(out, "first:      %s\n", candidates[0])
	fmt.Fprintf(out, "last:       %s\n", candidates[len(candidates)-1])

	breakdown := keys.PrefixBreakdown(candidates)
	for digit, n := range breakdown {
		if n > 0 {
			fmt.Fprintf(out, "  %dxxxx: %d\n", digit, n)
		}
	}
	return nil
}
