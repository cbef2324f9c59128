// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// uploadModel is the Bubble Tea model for the upload TUI
type uploadModel struct {
	connInfo string
	img      *gre.Image
	cancel   context.CancelFunc

	// Progress
	bar     progress.Model
	current gre.Progress

	// Event log
	logLines      []string
	maxLogEntries int

	// Outcome
	result *gre.Result
	err    error

	// UI state
	width      int
	finished   bool
	cancelling bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type uploadProgressMsg gre.Progress

type uploadLogMsg string

type uploadDoneMsg struct {
	result *gre.Result
	err    error
}

// tuiLogWriter forwards log lines to the program
type tuiLogWriter struct {
	p *tea.Program
}

func (w *tuiLogWriter) Write(b []byte) (int, error) {
	w.p.Send(uploadLogMsg(strings.TrimRight(string(b), "\n")))
	return len(b), nil
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

func initialUploadModel(connInfo string, img *gre.Image, cancel context.CancelFunc) uploadModel {
	return uploadModel{
		connInfo:      connInfo,
		img:           img,
		cancel:        cancel,
		bar:           progress.New(progress.WithDefaultGradient()),
		current:       gre.Progress{Phase: gre.PhaseWaiting, TotalPackets: img.TotalPackets()},
		maxLogEntries: 8,
		width:         80,
	}
}

func (m uploadModel) Init() tea.Cmd {
	return nil
}

func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling {
				m.cancelling = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 4
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case uploadProgressMsg:
		m.current = gre.Progress(msg)
		return m, nil

	case uploadLogMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > m.maxLogEntries {
			m.logLines = m.logLines[len(m.logLines)-m.maxLogEntries:]
		}
		return m, nil

	case uploadDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m uploadModel) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("GREFW - FIRMWARE UPLOAD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s, %d bytes | Press 'q' to cancel",
		m.connInfo, gre.PlatformName(m.img.Platform), len(m.img.Payload))))
	s.WriteString("\n\n")

	// Phase
	status := phaseDescription(m.current.Phase)
	if m.cancelling && !m.finished {
		status = "Cancelling..."
	}
	s.WriteString(fmt.Sprintf("%s %s\n",
		statsLabelStyle.Render("Status:"), statsValueStyle.Render(status)))

	// Progress
	content := strings.Builder{}
	content.WriteString(m.bar.ViewAs(float64(m.current.Percent) / 100.0))
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		statsLabelStyle.Render("Packet:"), statsValueStyle.Render(fmt.Sprintf("%d/%d", m.current.Packet, m.current.TotalPackets)),
		statsLabelStyle.Render("Attempt:"), statsValueStyle.Render(fmt.Sprintf("%d", m.current.Attempt)),
		statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(m.current.Elapsed.Round(time.Second).String()),
	))
	s.WriteString(boxStyle.Render(content.String()))
	s.WriteString("\n")

	// Event log
	if len(m.logLines) > 0 {
		s.WriteString(headerStyle.Render(strings.Join(m.logLines, "\n")))
		s.WriteString("\n")
	}

	return s.String()
}

func phaseDescription(phase gre.Phase) string {
	switch phase {
	case gre.PhaseWaiting:
		return "Waiting for bootloader (scanner should show 'Waiting for USB')"
	case gre.PhaseVersion:
		return "Querying bootloader version"
	case gre.PhaseHeader:
		return "Sending firmware header"
	case gre.PhaseStarting:
		return "Waiting for update to start"
	case gre.PhaseSending:
		return "Sending firmware"
	case gre.PhaseCompleting:
		return "Waiting for completion"
	case gre.PhaseDone:
		return "Done"
	case gre.PhaseFailed:
		return "Failed"
	default:
		return string(phase)
	}
}

//////////////////////////////////////////////////////////////
// Runner
//////////////////////////////////////////////////////////////

// runUploadTUI runs the session on its own goroutine; the program only
// receives its progress and log output through Send.
func runUploadTUI(ctx context.Context, ch gre.Channel, img *gre.Image, connInfo string, opts []gre.Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(initialUploadModel(connInfo, img, cancel))

	opts = append(opts,
		gre.WithLogger(newLogger(&tuiLogWriter{p: p})),
		gre.WithProgressCallback(func(pr gre.Progress) {
			p.Send(uploadProgressMsg(pr))
		}),
	)

	finished := make(chan uploadDoneMsg, 1)
	go func() {
		result, err := gre.NewSession(ch, opts...).Run(ctx, img)
		done := uploadDoneMsg{result: result, err: err}
		finished <- done
		p.Send(done)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return fmt.Errorf("TUI error: %w", err)
	}

	cancel()
	done := <-finished

	if done.result != nil {
		fmt.Println()
		fmt.Print(done.result.Stats.String())
	}
	if done.err != nil {
		printFailure(done.err)
		return done.err
	}
	printSuccess(done.result)
	return nil
}
