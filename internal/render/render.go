// Package render formats decoded segments for terminal output.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tcpwire"
)

var (
	styleAddr     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleFlags    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleDim      = lipgloss.NewStyle().Faint(true)
	styleOpt      = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	styleBadCksum = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Renderer writes one line per segment. With Color false the styles are
// bypassed entirely so output pipes cleanly.
type Renderer struct {
	Color bool
}

func (r Renderer) style(s lipgloss.Style, text string) string {
	if !r.Color {
		return text
	}
	return s.Render(text)
}

// Segment renders a decoded segment under its pseudo-header.
// checksumOK false marks the line instead of suppressing it; the dump
// tool is a diagnostic surface, not a filter.
func (r Renderer) Segment(ph tcpwire.PseudoHeader, seg *tcpwire.Segment, checksumOK bool) string {
	h := seg.Header

	var b strings.Builder
	b.WriteString(r.style(styleAddr, fmt.Sprintf("%s:%d > %s:%d", ph.Src, h.SrcPort, ph.Dst, h.DstPort)))
	b.WriteString("  ")
	b.WriteString(r.style(styleFlags, h.Flags.String()))
	b.WriteString(r.style(styleDim, fmt.Sprintf("  seq=%d ack=%d win=%d", h.Seq, h.Ack, h.Window)))
	if h.Flags.URG || h.Urgent != 0 {
		b.WriteString(r.style(styleDim, fmt.Sprintf(" urg=%d", h.Urgent)))
	}

	if opts := r.options(seg); opts != "" {
		b.WriteString("  ")
		b.WriteString(r.style(styleOpt, opts))
	}

	if n := len(seg.Payload()); n > 0 {
		b.WriteString(r.style(styleDim, fmt.Sprintf("  %d bytes", n)))
	}
	if !checksumOK {
		b.WriteString("  ")
		b.WriteString(r.style(styleBadCksum, "BAD CKSUM"))
	}
	return b.String()
}

func (r Renderer) options(seg *tcpwire.Segment) string {
	var parts []string
	it := seg.Options()
	for {
		o, ok := it.Next()
		if !ok {
			break
		}
		parts = append(parts, o.String())
	}
	if it.Err() != nil {
		parts = append(parts, "malformed")
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}
