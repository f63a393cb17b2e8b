package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose  bool
	discPath string
)

var rootCmd = &cobra.Command{
	Use:   "wiidisc",
	Short: "Read-only explorer for encrypted Wii disc images",
	Long: `wiidisc is a read-only command-line tool for inspecting encrypted Wii
disc images: it scans the partition table, recovers per-partition title
keys from their tickets, serves decrypted byte ranges and verifies the
per-cluster hash tree.

Commands:
  info      Show partitions, tickets and title metadata
  verify    Check a partition's hash-tree integrity
  read      Dump a decrypted byte range from a partition`,
	Version: "0.1.0-dev",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&discPath, "disc", "d", "", "path to the Wii disc image")
}
