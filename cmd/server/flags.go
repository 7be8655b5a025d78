package main

import (
	"github.com/spf13/cobra"
)

// AttachCLIFlags attaches command line flags to command
func AttachCLIFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().StringP("config", "c", "", "the config file to use")
	rootCmd.PersistentFlags().StringP("port", "p", "", "Port for api server to run")
	rootCmd.PersistentFlags().String("amqpURL", "", "Broker URL the consumer connects to")
	rootCmd.PersistentFlags().String("databaseDSN", "", "MySQL DSN for the coverage store")
	rootCmd.PersistentFlags().String("reposRoot", "", "Directory holding the bare repository mirrors")
	rootCmd.PersistentFlags().Int("consumerWorkers", 0, "Number of parallel consumer workers")
	rootCmd.PersistentFlags().StringP("env", "e", "prod", "Environment.")
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Run in verbose mode")

	return nil
}
