package transcript

import (
	"fmt"
	"strings"
)

// RenderOptions controls the plain-text rendering of a transcript
type RenderOptions struct {
	Timestamps bool
	Speakers   bool
}

// DefaultRenderOptions matches the reviewable consultation layout:
// timestamps and speaker labels on every line.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Timestamps: true, Speakers: true}
}

// FormatDuration renders seconds as "3m05s", or "1h02m09s" past the hour
func FormatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// Render flattens a transcript to plain lines, one per segment:
//
//	0m12s - 0m15s — Dr Martin: je vous écoute
//
// Without timestamps the line degenerates to "Dr Martin: je vous écoute";
// segments with an unknown speaker drop the label. No content is lost:
// every segment produces exactly one line.
func Render(segments []Segment, opts RenderOptions) string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		var b strings.Builder
		if opts.Timestamps {
			b.WriteString(FormatDuration(seg.Start))
			b.WriteString(" - ")
			b.WriteString(FormatDuration(seg.End))
			b.WriteString(" — ")
		}
		if opts.Speakers && seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(strings.TrimSpace(seg.Text))
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
