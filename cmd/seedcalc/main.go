// Command seedcalc prints the scoring seed and the coefficients derived
// from it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/drop-waitlist/internal/config"
	"github.com/iliyamo/drop-waitlist/internal/scoring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	in := scoring.DefaultSeedInputs()
	var configPath string

	cmd := &cobra.Command{
		Use:   "seedcalc",
		Short: "Print the scoring seed and coefficients A, B, C",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if configPath != "" {
				sf, err := config.LoadScoringFile(configPath)
				if err != nil {
					return err
				}
				coef, err := sf.Coefficients()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "source=%s\nA=%d\nB=%d\nC=%d\n", configPath, coef.A, coef.B, coef.C)
				return nil
			}
			seed, coef, err := scoring.Derive(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "seed=%s\nA=%d\nB=%d\nC=%d\n", seed, coef.A, coef.B, coef.C)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Remote, "remote", in.Remote, "git remote URL")
	f.StringVar(&in.Epoch, "epoch", in.Epoch, "first commit epoch seconds")
	f.StringVar(&in.Start, "start", in.Start, "start time as YYYYMMDDHHmm")
	f.StringVar(&configPath, "config", "", "scoring TOML file; overrides the seed flags")
	return cmd
}
