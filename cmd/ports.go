// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `List serial ports with USB details where available.

The PRO-668 appears as a USB serial device once it shows "Waiting for USB".`,
	Args: cobra.NoArgs,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Detailed enumeration is not available everywhere; fall back to names
		names, listErr := serial.GetPortsList()
		if listErr != nil {
			return fmt.Errorf("failed to list serial ports: %w", listErr)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if len(details) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	sort.Slice(details, func(i, j int) bool {
		return details[i].Name < details[j].Name
	})

	for _, port := range details {
		if !port.IsUSB {
			fmt.Println(port.Name)
			continue
		}
		fmt.Printf("%-20s USB %s:%s", port.Name, port.VID, port.PID)
		if port.Product != "" {
			fmt.Printf("  %s", port.Product)
		}
		if port.SerialNumber != "" {
			fmt.Printf("  (serial %s)", port.SerialNumber)
		}
		fmt.Println()
	}

	return nil
}
