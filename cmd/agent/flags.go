package main

import (
	"github.com/spf13/cobra"
)

// AttachCLIFlags attaches command line flags to command
func AttachCLIFlags(rootCmd *cobra.Command) error {
	rootCmd.PersistentFlags().StringP("config", "c", "", "the config file to use")
	rootCmd.PersistentFlags().String("repo", "", "Repository URL being covered")
	rootCmd.PersistentFlags().String("branch", "", "Branch under test")
	rootCmd.PersistentFlags().String("commit", "", "Commit under test")
	rootCmd.PersistentFlags().String("endpoint", "", "Publish endpoint (amqp://, amqp+http:// or http://)")
	rootCmd.PersistentFlags().String("coverageFile", "", "Path of the raw coverage profile")
	rootCmd.PersistentFlags().String("coverageFormat", "goc", "Coverage profile format (goc, jacoco, pyca)")
	rootCmd.PersistentFlags().Duration("flushInterval", 0, "Interval between coverage flushes")
	rootCmd.PersistentFlags().String("fingerprintFile", "", "Path of the fingerprint state file")
	rootCmd.PersistentFlags().StringP("env", "e", "prod", "Environment.")
	rootCmd.PersistentFlags().BoolP("verbose", "", false, "Run in verbose mode")

	return nil
}
