// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/spf13/cobra"
)

var rawLogUntilReady bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log [PORT]",
	Short: "Display bytes received from the scanner",
	Long: `Continuously display bytes received from the scanner, naming protocol
control bytes.

A scanner waiting in its bootloader repeats 'C'. Use this to check the
connection before uploading. With --until-ready the command exits once the
bootloader prompt has been seen three times.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)

	rawLogCmd.Flags().BoolVar(&rawLogUntilReady, "until-ready", false, "Exit after three bootloader prompts")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		portName = args[0]
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("grefw - Raw Byte Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	prompts := 0
	buf := make([]byte, 128)

	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if err != nil {
			// A WebSocket read error means the bridge is gone
			if errors.Is(err, ErrConnectionClosed) {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, b := range buf[:n] {
			fmt.Printf("[%8.3fs] %s\n", time.Since(start).Seconds(), gre.FormatResponse(b))
			if b != gre.Prompt {
				continue
			}
			prompts++
			if rawLogUntilReady && prompts >= 3 {
				fmt.Println("\nBootloader is ready for upload")
				return nil
			}
		}
	}

	fmt.Printf("\n%d bootloader prompts seen\n", prompts)
	return nil
}
