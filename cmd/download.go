// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// firmwareBaseURL hosts the firmware archives
const firmwareBaseURL = "https://github.com/philcovington/GREFwTool/raw/master/firmware/"

// firmwareRelease is a downloadable firmware archive
type firmwareRelease struct {
	Version     string
	File        string
	Description string
	Recommended bool
}

var firmwareCatalog = map[string]firmwareRelease{
	"3.8": {Version: "3.8", File: "WS1080e_U3.8.bin_.7z", Description: "WS1080 v3.8 (works on PRO-668)", Recommended: true},
	"4.5": {Version: "4.5", File: "WS1080e_U4.5.bin_.7z", Description: "WS1080 v4.5"},
	"2.0": {Version: "2.0", File: "0602902e_U2.0.bin_.7z", Description: "PSR-800 v2.0"},
}

var (
	downloadDir     string
	downloadBaseURL string
)

var downloadCmd = &cobra.Command{
	Use:   "download [VERSION]",
	Short: "Download a firmware archive",
	Long: `Download a firmware archive for recovery. Without VERSION the available
releases are listed.

Archives are 7-Zip files; extract the .bin file before uploading.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadDir, "dir", ".", "Directory to save the archive in")
	downloadCmd.Flags().StringVar(&downloadBaseURL, "base-url", firmwareBaseURL, "Firmware archive location")
	downloadCmd.Flags().MarkHidden("base-url")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		listFirmware()
		return nil
	}

	release, ok := firmwareCatalog[args[0]]
	if !ok {
		listFirmware()
		return fmt.Errorf("unknown firmware version %q", args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Downloading firmware %s...\n", release.Version)
	dest, err := downloadFirmware(ctx, downloadBaseURL, release, downloadDir, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded to: %s\n\n", dest)
	fmt.Println("Extract the firmware with 7-Zip before uploading:")
	fmt.Printf("  7z e \"%s\" -o\"%s\"\n", dest, filepath.Dir(dest))
	return nil
}

func listFirmware() {
	versions := make([]string, 0, len(firmwareCatalog))
	for v := range firmwareCatalog {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	fmt.Println("Available firmware:")
	for _, v := range versions {
		r := firmwareCatalog[v]
		note := ""
		if r.Recommended {
			note = " (recommended)"
		}
		fmt.Printf("  %-4s %-24s %s%s\n", r.Version, r.File, r.Description, note)
	}
}

// downloadFirmware fetches a release into dir and returns the saved path.
// Progress is drawn on progress; the file only appears once complete.
func downloadFirmware(ctx context.Context, baseURL string, release firmwareRelease, dir string, progress io.Writer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	dest := filepath.Join(dir, release.File)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+release.File, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, release.File+".*.part")
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription(release.File),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
	)

	n, err := io.Copy(io.MultiWriter(tmp, bar), resp.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("download failed: %w", err)
	}
	_ = bar.Finish()
	fmt.Fprintln(progress)

	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return "", fmt.Errorf("download incomplete: %d of %d bytes", n, resp.ContentLength)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	return dest, nil
}
