package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyPartition string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a partition's hash-tree integrity",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, dev, err := openVolume()
		if err != nil {
			return err
		}
		defer dev.Close()

		if verifyPartition == "all" {
			clean := true
			for _, p := range vol.Partitions() {
				ok := vol.CheckIntegrity(p)
				fmt.Printf("Partition 0x%x: %s\n", p.Offset, verdict(ok))
				clean = clean && ok
			}
			if !clean {
				return fmt.Errorf("integrity check failed")
			}
			return nil
		}

		partition, err := parsePartition(vol, verifyPartition)
		if err != nil {
			return err
		}
		ok := vol.CheckIntegrity(partition)
		fmt.Printf("Partition 0x%x: %s\n", partition.Offset, verdict(ok))
		if !ok {
			return fmt.Errorf("integrity check failed")
		}
		return nil
	},
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAILED"
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyPartition, "partition", "p", "game", "partition to verify (game, all or a hex offset)")
	rootCmd.AddCommand(verifyCmd)
}
