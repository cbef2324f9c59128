// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	uploadNoTranscode       bool
	uploadTUI               bool
	uploadTranscript        string
	uploadBootloaderTimeout time.Duration
	uploadChunkTimeout      time.Duration
	uploadAttempts          int
)

var uploadCmd = &cobra.Command{
	Use:   "upload [PORT] FIRMWARE",
	Short: "Upload firmware to a scanner in bootloader mode",
	Long: `Upload firmware to a GRE scanner waiting in its bootloader.

WS1080 (0xE6) images are transcoded to PRO-668 (0xE4) format before sending
unless --no-transcode is given. The scanner must show "Waiting for USB".

Examples:
  grefw upload /dev/ttyUSB0 WS1080e_U3.8.bin
  grefw upload --port COM3 --tui WS1080e_U3.8.bin
  grefw upload -p /dev/ttyACM0 --transcript run.cbor firmware.bin`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().BoolVar(&uploadNoTranscode, "no-transcode", false, "Send the firmware image without transcoding")
	uploadCmd.Flags().BoolVar(&uploadTUI, "tui", false, "Show an interactive progress display")
	uploadCmd.Flags().StringVar(&uploadTranscript, "transcript", "", "Record all link traffic to a CBOR transcript file")
	uploadCmd.Flags().DurationVar(&uploadBootloaderTimeout, "bootloader-timeout", 30*time.Second, "Time to wait for the bootloader prompt")
	uploadCmd.Flags().DurationVar(&uploadChunkTimeout, "chunk-timeout", 5*time.Second, "Time to wait for each packet's response")
	uploadCmd.Flags().IntVar(&uploadAttempts, "attempts", 3, "Send attempts per data packet")
}

func runUpload(cmd *cobra.Command, args []string) error {
	firmwarePath := args[len(args)-1]
	if len(args) == 2 {
		portName = args[0]
	}

	var logOut io.Writer = os.Stdout
	if uploadTUI {
		logOut = io.Discard
	}
	logger := newLogger(logOut)

	img, err := gre.Load(firmwarePath, uploadNoTranscode, logger)
	if err != nil {
		printFailure(err)
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		printFailure(err)
		return err
	}
	defer conn.Close()

	var ch gre.Channel = conn
	if uploadTranscript != "" {
		f, err := os.Create(uploadTranscript)
		if err != nil {
			return fmt.Errorf("create transcript: %w", err)
		}
		defer f.Close()

		rec := gre.NewRecorder(conn, f, nil)
		defer func() {
			if err := rec.Err(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}()
		ch = rec
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []gre.Option{
		gre.WithBootloaderTimeout(uploadBootloaderTimeout),
		gre.WithChunkTimeout(uploadChunkTimeout),
		gre.WithMaxAttempts(uploadAttempts),
	}

	if uploadTUI {
		return runUploadTUI(ctx, ch, img, connInfo, opts)
	}

	fmt.Printf("Connected to %s\n", connInfo)
	fmt.Printf("Firmware: %s (%s, %d bytes, %d packets)\n",
		firmwarePath, gre.PlatformName(img.Platform), len(img.Payload), img.TotalPackets())
	fmt.Println("Waiting for scanner bootloader. Power on the scanner in update mode now.")
	fmt.Println()

	reporter := newTextReporter(img.TotalPackets())
	opts = append(opts,
		gre.WithLogger(logger),
		gre.WithProgressCallback(reporter.update),
	)

	result, err := gre.NewSession(ch, opts...).Run(ctx, img)
	reporter.finish()

	if result != nil {
		fmt.Println()
		fmt.Print(result.Stats.String())
	}

	if err != nil {
		printFailure(err)
		return err
	}
	printSuccess(result)
	return nil
}

// textReporter shows a progress bar on terminals and periodic lines otherwise
type textReporter struct {
	bar         *progressbar.ProgressBar
	lastPercent int
}

func newTextReporter(totalPackets int) *textReporter {
	r := &textReporter{lastPercent: -1}
	if term.IsTerminal(int(os.Stderr.Fd())) && totalPackets > 0 {
		r.bar = progressbar.NewOptions(totalPackets,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
		)
	}
	return r
}

func (r *textReporter) update(p gre.Progress) {
	if p.Phase != gre.PhaseSending {
		return
	}

	if r.bar != nil {
		if p.Attempt > 1 {
			r.bar.Describe(fmt.Sprintf("Retry %d", p.Attempt))
		} else {
			r.bar.Describe("Uploading")
		}
		_ = r.bar.Set(p.Packet)
		return
	}

	// Without a terminal, print every 10%
	if p.Percent/10 != r.lastPercent/10 {
		r.lastPercent = p.Percent
		fmt.Printf("Progress: %d%% (%d/%d packets)\n", p.Percent, p.Packet, p.TotalPackets)
	}
}

func (r *textReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}

//////////////////////////////////////////////////////////////
// Result Banners
//////////////////////////////////////////////////////////////

var (
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))
)

func printSuccess(result *gre.Result) {
	fmt.Println()
	fmt.Println(successStyle.Render("=== FIRMWARE UPLOAD SUCCESSFUL ==="))
	switch result.Outcome {
	case gre.OutcomeUnconfirmed:
		fmt.Println(warningStyle.Render("The scanner did not confirm completion. If it does not boot, run the upload again."))
	case gre.OutcomeUnexpectedFinal:
		fmt.Println(warningStyle.Render("The scanner sent an unexpected final response. If it does not boot, run the upload again."))
	}
	fmt.Printf("Sent %d/%d packets in %s (%s)\n",
		result.PacketsSent, result.TotalPackets, result.Elapsed.Round(time.Second), result.Outcome)
	fmt.Println("Power cycle the scanner to start the new firmware.")
}

func printFailure(err error) {
	fmt.Println()
	fmt.Println(failureStyle.Render("=== FIRMWARE UPLOAD FAILED ==="))
	fmt.Printf("Error: %v\n", err)

	var loadErr *gre.LoadError
	var portErr *gre.PortError
	switch {
	case errors.As(err, &loadErr):
		fmt.Println("Check the firmware path. Extract the .bin file if you downloaded a .7z archive.")
		return
	case errors.As(err, &portErr):
		fmt.Println("Check the port name with 'grefw ports' and that no other program is using it.")
		return
	case errors.Is(err, context.Canceled):
		fmt.Println("Upload interrupted.")
	}

	fmt.Println()
	fmt.Println("Try:")
	fmt.Println("  1. Power cycle the scanner")
	fmt.Println("  2. Make sure the scanner shows 'Waiting for USB'")
	fmt.Println("  3. Run this tool again")
}
