package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "datagen",
		Short:         "Stream schema-driven test data to Kafka, Redis, bolt or the console",
		Long:          "datagen generates records from an annotated Avro schema, keeps session fields and their linked sibling ids consistent across records, and publishes them to a sink at randomized intervals.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newSchemasCmd(),
		newHistoryCmd(app),
	)

	return rootCmd
}
