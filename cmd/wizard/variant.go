package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/migratemate/cancellation-flow/internal/domain"
	"github.com/migratemate/cancellation-flow/internal/flow"
)

var variantCmd = &cobra.Command{
	Use:   "variant [A|B|clear]",
	Short: "Show, pin or clear the remembered downsell variant",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flow.VariantOverrideEnabled {
			return errors.New("variant pinning is disabled in production builds")
		}
		path, err := flow.PreferencePath()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			if v := flow.LoadPreferredVariant(path); v != "" {
				fmt.Fprintf(out, "pinned to %s (%s)\n", v, path)
			} else {
				fmt.Fprintln(out, "not pinned; variant is derived from the user id")
			}
			return nil
		}

		arg := strings.ToUpper(strings.TrimSpace(args[0]))
		if arg == "CLEAR" {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			fmt.Fprintln(out, "cleared")
			return nil
		}
		if err := flow.SavePreferredVariant(path, domain.DownsellVariant(arg)); err != nil {
			return err
		}
		fmt.Fprintf(out, "pinned to %s\n", arg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(variantCmd)
}
