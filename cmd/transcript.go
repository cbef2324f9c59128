// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/spf13/cobra"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript FILE",
	Short: "Print a wire transcript recorded with upload --transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscript,
}

func init() {
	rootCmd.AddCommand(transcriptCmd)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	entries, err := gre.ReadTranscript(f)
	for _, e := range entries {
		fmt.Println(gre.FormatEntry(e))
	}
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}
