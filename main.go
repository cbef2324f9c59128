// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// grefw - GRE Scanner Firmware Recovery Tool
//
// Re-flashes a Radio Shack PRO-668 from its bootloader, transcoding WS1080
// firmware images on the way.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/grefw/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
