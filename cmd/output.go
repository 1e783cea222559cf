package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/DavidC001/meetingAssistant-sub001/config"
	"github.com/DavidC001/meetingAssistant-sub001/pkg/buildinfo"
)

// RenderVersion writes build information in the requested format.
func RenderVersion(w io.Writer, format config.OutputFormat, info buildinfo.Info) error {
	return renderOutput(w, format, info, func(w io.Writer) error {
		printKV(w, "Version", info.Version)
		printKV(w, "Commit", info.Commit)
		printKV(w, "Built", info.BuildTime)
		printKV(w, "Go", info.GoVersion)
		return nil
	})
}

// renderOutput writes v in the requested format. text() is called for the
// human format; json and yaml encode v directly.
func renderOutput(w io.Writer, format config.OutputFormat, v any, text func(io.Writer) error) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return text(w)
	}
}

// newTable returns a tabwriter configured for aligned column output.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// progressBar renders a fixed-width ASCII progress bar for watch output.
func progressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// printKV writes one aligned key/value line for text output.
func printKV(w io.Writer, key string, value any) {
	fmt.Fprintf(w, "%-14s %v\n", key+":", value)
}
