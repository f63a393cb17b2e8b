package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	readPartition string
	readOffset    uint64
	readLength    uint64
	readOutput    string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Dump a decrypted byte range from a partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		if readLength == 0 {
			return fmt.Errorf("length must be greater than zero")
		}

		vol, dev, err := openVolume()
		if err != nil {
			return err
		}
		defer dev.Close()

		partition, err := parsePartition(vol, readPartition)
		if err != nil {
			return err
		}

		data, err := vol.Read(readOffset, readLength, partition)
		if err != nil {
			return err
		}

		if readOutput == "" || readOutput == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(readOutput, data, 0o644)
	},
}

func init() {
	readCmd.Flags().StringVarP(&readPartition, "partition", "p", "game", "partition to read from (game, none or a hex offset)")
	readCmd.Flags().Uint64Var(&readOffset, "offset", 0, "partition-relative byte offset")
	readCmd.Flags().Uint64Var(&readLength, "length", 0, "number of bytes to read")
	readCmd.Flags().StringVarP(&readOutput, "out", "o", "-", "output file, - for stdout")
	rootCmd.AddCommand(readCmd)
}
