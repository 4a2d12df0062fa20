package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"viewer-benchmark/internal/config"
	"viewer-benchmark/internal/server"
)

const (
	SymbolPass    = "✓"
	SymbolFail    = "✗"
	SymbolArrow   = "→"
	SymbolWarning = "⚠"
	SymbolInfo    = "ℹ"

	Indent = "  "
)

// Out receives every console line printed by this package.
var Out io.Writer = os.Stdout

func rule(width int) string {
	return strings.Repeat("━", max(4, width))
}

func Section(title string) {
	fmt.Fprintf(Out, "\n━━ %s %s\n", title, rule(60-len(title)))
}

// CaseHeader opens the block printed for one case when no spinner runs.
func CaseHeader(index, total int, path string, gzip bool) {
	label := fmt.Sprintf("[%d/%d] %s", index, total, path)
	if gzip {
		label += " (gzip)"
	}
	fmt.Fprintf(Out, "\n┌─ %s %s\n", label, strings.Repeat("─", max(2, 58-len(label))))
}

func CaseFooter() {
	fmt.Fprintln(Out, "└"+strings.Repeat("─", 60))
}

func status(symbol, format string, args []any) {
	fmt.Fprintf(Out, "%s%s %s\n", Indent, symbol, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...any)    { status(SymbolInfo, format, args) }
func Successf(format string, args ...any) { status(SymbolPass, format, args) }
func Failf(format string, args ...any)    { status(SymbolFail, format, args) }
func Warnf(format string, args ...any)    { status(SymbolWarning, format, args) }

func Linef(format string, args ...any) {
	fmt.Fprintf(Out, "%s%s\n", Indent, fmt.Sprintf(format, args...))
}

func KeyValue(key, value string) {
	fmt.Fprintf(Out, "%s%-20s %s\n", Indent, key+":", value)
}

// KeyValuePairs prints alternating keys and values on one line. An odd
// argument count prints nothing.
func KeyValuePairs(pairs ...string) {
	if len(pairs)%2 != 0 {
		return
	}
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		parts = append(parts, pairs[i]+": "+pairs[i+1])
	}
	fmt.Fprintf(Out, "%s%s\n", Indent, strings.Join(parts, "  │  "))
}

func Blank() {
	fmt.Fprintln(Out)
}

// PrintConfig shows the effective run configuration.
func PrintConfig(cfg *config.Config, caseCount int) {
	Section("Configuration")

	target := cfg.Server.Binary
	if cfg.Server.Mode == server.ModeDocker {
		target = cfg.Server.Image
	}
	KeyValuePairs("Mode", cfg.Server.Mode, "Server", target)
	KeyValue("Base URL", cfg.Benchmark.BaseURL+cfg.Benchmark.PathPrefix)
	KeyValuePairs(
		"Cases", strconv.Itoa(caseCount),
		"Trials/Case", strconv.Itoa(cfg.Benchmark.Trials),
		"Grace", FormatDuration(cfg.Benchmark.GraceDuration),
	)
	KeyValue("Qualities", strings.Join(cfg.Benchmark.Qualities, ", "))
	KeyValue("Gzip", FormatGzipModes(cfg.Benchmark.Gzip))

	endMarker := "none"
	if cfg.Benchmark.EndMarker != "" {
		endMarker = cfg.Benchmark.EndMarker
	}
	cooldown := "disabled"
	if cfg.Benchmark.CooldownDuration > 0 {
		cooldown = FormatDuration(cfg.Benchmark.CooldownDuration)
	}
	KeyValuePairs("End marker", endMarker, "Cooldown", cooldown)
	KeyValue("CSV", cfg.Output.CSV)
}

func FormatGzipModes(modes []bool) string {
	parts := make([]string, 0, len(modes))
	for _, m := range modes {
		if m {
			parts = append(parts, "on")
		} else {
			parts = append(parts, "off")
		}
	}
	return strings.Join(parts, ", ")
}

func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// FormatMillis renders an averaged millisecond timing.
func FormatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.1fms", ms)
}

func Truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

func FormatMemory(bytes float64) string {
	mb := bytes / 1024 / 1024
	if mb < 1 {
		return fmt.Sprintf("%.0fKB", bytes/1024)
	}
	if mb < 100 {
		return fmt.Sprintf("%.1fMB", mb)
	}
	return fmt.Sprintf("%.0fMB", mb)
}

func FormatCPU(percent float64, samples int) string {
	if samples < 2 || percent < 0.1 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", percent)
}
