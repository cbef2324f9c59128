// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/spf13/cobra"
)

var inspectNoTranscode bool

var inspectCmd = &cobra.Command{
	Use:   "inspect FIRMWARE",
	Short: "Show what would be uploaded for a firmware file",
	Long: `Read a firmware file and report its header, the transcoding decision and
the packet count without opening a port.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectNoTranscode, "no-transcode", false, "Inspect as if uploading without transcoding")
}

func runInspect(cmd *cobra.Command, args []string) error {
	img, err := gre.Load(args[0], inspectNoTranscode, newLogger(os.Stderr))
	if err != nil {
		return err
	}

	fmt.Printf("File:             %s\n", args[0])
	fmt.Printf("File platform:    0x%02X (%s)\n", img.OriginalPlatform, gre.PlatformName(img.OriginalPlatform))
	fmt.Printf("Upload platform:  0x%02X (%s)\n", img.Platform, gre.PlatformName(img.Platform))
	fmt.Printf("Transcoded:       %v\n", img.Transcoded)
	fmt.Printf("Declared size:    %d (0x%06X)\n", img.Size, img.Size)
	fmt.Printf("Payload:          %d bytes\n", len(img.Payload))
	fmt.Printf("Data packets:     %d x %d bytes\n", img.TotalPackets(), gre.ChunkSize)
	fmt.Printf("Header packet:    %s\n", gre.FormatBytes(gre.Frame(gre.HeaderPayload(img.Platform, img.Size))))

	anomalies := gre.ValidateImage(img)
	if len(anomalies) == 0 {
		fmt.Println("\nNo anomalies found")
		return nil
	}

	fmt.Println("\nAnomalies:")
	for _, a := range anomalies {
		fmt.Printf("  - %s\n", a.Message)
	}
	return nil
}
