package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/tfsdf/go-wiidisc/internal/device"
	"github.com/tfsdf/go-wiidisc/internal/types"
	"github.com/tfsdf/go-wiidisc/internal/volume"
)

// openVolume opens the disc image behind the global --disc flag and runs
// the partition scan. The caller must Close the returned device.
func openVolume() (*volume.WiiVolume, *device.FileDevice, error) {
	if discPath == "" {
		return nil, nil, fmt.Errorf("no disc image given, use --disc")
	}

	config, err := device.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	fs := afero.NewOsFs()
	keys, err := config.CommonKeys(fs)
	if err != nil {
		return nil, nil, err
	}

	dev, err := device.Open(fs, discPath)
	if err != nil {
		return nil, nil, err
	}

	vol, err := volume.NewWiiVolume(dev, keys)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}

	if config.VerifyOnOpen {
		if game := vol.GamePartition(); game != types.PartitionNone {
			if !vol.CheckIntegrity(game) {
				logrus.Warn("game partition failed its integrity check")
			}
		}
	}

	return vol, dev, nil
}

// parsePartition resolves the --partition flag: "game", "none", or the
// hexadecimal disc offset of a scanned partition.
func parsePartition(vol *volume.WiiVolume, arg string) (types.Partition, error) {
	switch arg {
	case "", "game":
		game := vol.GamePartition()
		if game == types.PartitionNone {
			return types.PartitionNone, fmt.Errorf("disc has no game partition")
		}
		return game, nil
	case "none":
		return types.PartitionNone, nil
	}

	var offset uint64
	if _, err := fmt.Sscanf(arg, "0x%x", &offset); err != nil {
		if _, err := fmt.Sscanf(arg, "%x", &offset); err != nil {
			return types.PartitionNone, fmt.Errorf("invalid partition %q: want game, none or a hex offset", arg)
		}
	}

	for _, p := range vol.Partitions() {
		if p.Offset == offset {
			return p, nil
		}
	}
	return types.PartitionNone, fmt.Errorf("no valid partition at offset 0x%x", offset)
}
