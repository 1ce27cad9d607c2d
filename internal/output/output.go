package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

// Format controls the output format ("table" or "json").
var Format = "table"

// JSON prints data as formatted JSON.
func JSON(data any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Table prints rows in a table format with headers.
func Table(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	fmt.Fprintln(w, strings.Repeat("─", len(headers)*16))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

// Success prints a success message.
func Success(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// Progress rewrites the current stderr line with a percentage-prefixed
// status. Components never print directly; the processing harness routes
// its progress callbacks here.
func Progress(percent int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\r[%3d%%] "+format, append([]any{percent}, args...)...)
}

// ProgressDone terminates a progress line.
func ProgressDone() {
	fmt.Fprintln(os.Stderr)
}
