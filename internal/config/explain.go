// ABOUTME: Markdown rendering of the effective configuration
// ABOUTME: Used by the "explain" CLI subcommand, which styles the result with glamour

package config

import (
	"fmt"
	"strings"

	"github.com/mauromedda/overlay-go/pkg/overlay"
)

// Explain renders the effective settings as a markdown document. Values
// left unset show the engine default they fall back to.
func Explain(s *Settings, files []string) string {
	if s == nil {
		s = &Settings{}
	}
	var b strings.Builder

	b.WriteString("# Effective configuration\n\n")

	b.WriteString("## Timing\n\n")
	b.WriteString("| Setting | Value |\n|---|---|\n")
	row(&b, "tick_interval", s.TickInterval.String(), s.TickInterval == 0, overlay.DefaultTickInterval.String())
	row(&b, "presentation_tolerance_us", fmt.Sprint(s.PresentationToleranceUS), s.PresentationToleranceUS == 0, fmt.Sprint(overlay.DefaultPresentationTolerance))
	row(&b, "drop_window_us", fmt.Sprint(s.DropWindowUS), s.DropWindowUS == 0, fmt.Sprint(overlay.DefaultDropWindow))
	row(&b, "stop_timeout", s.StopTimeout.String(), s.StopTimeout == 0, overlay.DefaultStopTimeout.String())
	row(&b, "queue_depth", fmt.Sprint(s.QueueDepth), s.QueueDepth == 0, fmt.Sprint(overlay.DefaultQueueDepth))
	b.WriteString("\n")

	b.WriteString("## Geometry\n\n")
	fmt.Fprintf(&b, "- **surface**: %s\n", dims(s.Surface))
	fmt.Fprintf(&b, "- **display**: %s\n", dims(s.Display))
	b.WriteString("\n")

	b.WriteString("## Logging\n\n")
	fmt.Fprintf(&b, "- **debug**: %v\n", s.DebugEnabled())

	if len(files) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, f := range files {
			fmt.Fprintf(&b, "- `%s`\n", f)
		}
	}
	return b.String()
}

func row(b *strings.Builder, name, value string, unset bool, def string) {
	if unset {
		value = def + " _(default)_"
	}
	fmt.Fprintf(b, "| `%s` | %s |\n", name, value)
}

func dims(d Dimensions) string {
	if d == (Dimensions{}) {
		return "_unset_"
	}
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}
