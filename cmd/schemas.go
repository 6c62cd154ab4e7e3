package cmd

import (
	"fmt"

	"github.com/bnema/datagen/internal/adapters/generator/random"
	"github.com/bnema/datagen/internal/domain"
	"github.com/spf13/cobra"
)

func newSchemasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List the bundled quickstart schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, preset := range random.Presets() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s key=%s\n", preset.Name, preset.KeyField); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Print a bundled schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, ok := random.LookupPreset(args[0])
			if !ok {
				return fmt.Errorf("%w: unknown quickstart %q", domain.ErrInvalidConfiguration, args[0])
			}
			data, err := preset.Source()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}
