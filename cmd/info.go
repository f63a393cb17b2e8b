package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tfsdf/go-wiidisc/internal/types"
)

var infoShowContents bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show partitions, tickets and title metadata of a disc image",
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, dev, err := openVolume()
		if err != nil {
			return err
		}
		defer dev.Close()

		fmt.Printf("Image size: %d bytes\n", vol.Size())
		if region, err := vol.RegionCode(); err == nil {
			fmt.Printf("Region code: %d\n", region)
		}

		partitions := vol.Partitions()
		if len(partitions) == 0 {
			fmt.Println("No encrypted partitions; disc is read as a flat image.")
			return nil
		}

		game := vol.GamePartition()
		fmt.Printf("Partitions: %d\n", len(partitions))
		for _, p := range partitions {
			marker := ""
			if p == game {
				marker = " (game)"
			}
			fmt.Printf("\nPartition at 0x%x%s\n", p.Offset, marker)

			ticket := vol.Ticket(p)
			fmt.Printf("  Title ID:    %016x\n", ticket.TitleID())
			fmt.Printf("  Ticket ID:   %016x\n", ticket.TicketID())
			fmt.Printf("  Issuer:      %s\n", ticket.Issuer())
			fmt.Printf("  Common key:  %d\n", ticket.CommonKeyIndex())

			if id, err := vol.GameID(p); err == nil {
				fmt.Printf("  Game ID:     %s\n", id)
			}
			if name, err := vol.InternalName(p); err == nil {
				fmt.Printf("  Name:        %s\n", name)
			}
			if date, err := vol.ApploaderDate(p); err == nil {
				fmt.Printf("  Apploader:   %s\n", date)
			}

			tmd := vol.TMD(p)
			if !tmd.IsValid() {
				fmt.Println("  TMD:         invalid")
				continue
			}
			fmt.Printf("  TMD version: %d, title version %d, ios %016x\n",
				tmd.Version(), tmd.TitleVersion(), tmd.IOSID())
			fmt.Printf("  Contents:    %d (boot index %d)\n", tmd.NumContents(), tmd.BootIndex())
			if infoShowContents {
				for _, c := range tmd.Contents() {
					fmt.Printf("    %08x  index %-4d type %-4d %10d bytes  %x\n",
						c.ID, c.Index, c.Type, c.Size, c.Hash)
				}
			}
		}

		if game == types.PartitionNone {
			fmt.Println("\nDisc has no game partition.")
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoShowContents, "contents", false, "list TMD content descriptors")
	rootCmd.AddCommand(infoCmd)
}
