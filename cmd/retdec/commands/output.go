package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	retdec "github.com/retdec/retdec-golang"
)

const progressWidth = 20

// printer writes styled lines to a command's output. Colors are dropped
// automatically when the output is not a terminal.
type printer struct {
	w io.Writer

	label   lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	accent  lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:       w,
		label:   r.NewStyle().Bold(true),
		value:   r.NewStyle().Foreground(lipgloss.Color("#E5E7EB")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		success: r.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		accent:  r.NewStyle().Foreground(lipgloss.Color("#38BDF8")),
	}
}

func (p *printer) field(name, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.label.Render(fmt.Sprintf("%-11s", name)), p.value.Render(value))
}

// progress prints one line for a status snapshot, such as
// "[#####...............]  25% Decompiler: Unpacking".
func (p *printer) progress(status retdec.Status) {
	line := fmt.Sprintf("%s %3d%%", p.accent.Render(progressBar(status.Completion, progressWidth)), status.Completion)
	if phase := currentPhase(status); phase != "" {
		line += " " + p.muted.Render(phase)
	}
	fmt.Fprintln(p.w, line)
}

func (p *printer) ok(format string, args ...any) {
	fmt.Fprintln(p.w, p.success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

func (p *printer) failed(format string, args ...any) {
	fmt.Fprintln(p.w, p.failure.Render("✗")+" "+fmt.Sprintf(format, args...))
}

func progressBar(completion, width int) string {
	if completion < 0 {
		completion = 0
	}
	if completion > 100 {
		completion = 100
	}
	filled := completion * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func currentPhase(status retdec.Status) string {
	if len(status.Phases) == 0 {
		return ""
	}
	last := status.Phases[len(status.Phases)-1]
	name := last.Name
	if last.Part != nil && *last.Part != "" {
		name = *last.Part + ": " + name
	}
	return name
}

func stateOf(status retdec.Status) string {
	switch {
	case !status.Finished:
		return "running"
	case status.Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// fileSize reports the size of a saved output for display.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
