package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"viewer-benchmark/internal/bench"
	"viewer-benchmark/internal/config"
)

var bannerLines = []string{
	"██████╗ ███████╗███╗   ██╗ ██████╗██╗  ██╗",
	"██╔══██╗██╔════╝████╗  ██║██╔════╝██║  ██║",
	"██████╔╝█████╗  ██╔██╗ ██║██║     ███████║",
	"██╔══██╗██╔══╝  ██║╚██╗██║██║     ██╔══██║",
	"██████╔╝███████╗██║ ╚████║╚██████╗██║  ██║",
	"╚═════╝ ╚══════╝╚═╝  ╚═══╝ ╚═════╝╚═╝  ╚═╝",
}

var gradientStops = [][3]float64{
	{14, 165, 233}, // sky #0EA5E9
	{6, 182, 212},  // cyan #06B6D4
	{20, 184, 166}, // teal #14B8A6
	{16, 185, 129}, // emerald #10B981
	{132, 204, 22}, // lime #84CC16
}

func lerpColor(c1, c2 [3]float64, t float64) [3]float64 {
	return [3]float64{
		c1[0] + (c2[0]-c1[0])*t,
		c1[1] + (c2[1]-c1[1])*t,
		c1[2] + (c2[2]-c1[2])*t,
	}
}

func gradientColor(t float64) [3]float64 {
	if t <= 0 {
		return gradientStops[0]
	}
	if t >= 1 {
		return gradientStops[len(gradientStops)-1]
	}

	scaled := t * float64(len(gradientStops)-1)
	idx := min(int(scaled), len(gradientStops)-2)
	return lerpColor(gradientStops[idx], gradientStops[idx+1], scaled-float64(idx))
}

func PrintBanner() {
	fmt.Fprintln(Out)

	width := 0
	for _, line := range bannerLines {
		width = max(width, len([]rune(line)))
	}

	for _, line := range bannerLines {
		var result strings.Builder
		for x, r := range []rune(line) {
			color := gradientColor(float64(x) / float64(width))
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(
				fmt.Sprintf("#%02X%02X%02X", int(color[0]), int(color[1]), int(color[2])),
			))
			result.WriteString(style.Render(string(r)))
		}
		fmt.Fprintln(Out, result.String())
	}
	fmt.Fprintln(Out, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("  frame decoding benchmark"))
	fmt.Fprintln(Out)
}

const (
	gzipOff  = "off"
	gzipOn   = "on"
	gzipBoth = "both"
)

// PromptOptions asks for the quality tiers, gzip modes and trial count,
// starting from the configured values.
func PromptOptions(cfg *config.Config) (*config.RuntimeOptions, error) {
	qualityOptions := make([]huh.Option[string], len(bench.Qualities))
	for i, q := range bench.Qualities {
		selected := false
		for _, c := range cfg.Benchmark.Qualities {
			selected = selected || c == string(q)
		}
		qualityOptions[i] = huh.NewOption(string(q), string(q)).Selected(selected)
	}

	var qualities []string
	gzipMode := gzipModeOf(cfg.Benchmark.Gzip)
	trials := strconv.Itoa(cfg.Benchmark.Trials)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select quality tiers").
				Description("Every case is measured once per selected tier").
				Options(qualityOptions...).
				Value(&qualities),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Request gzip-compressed frames?").
				Options(
					huh.NewOption("No compression", gzipOff),
					huh.NewOption("Gzip only", gzipOn),
					huh.NewOption("Both (doubles the run)", gzipBoth),
				).Value(&gzipMode),
			huh.NewInput().
				Title("Trials per case").
				Value(&trials).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < 1 {
						return errors.New("enter a positive number")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin()).WithKeyMap(huh.NewDefaultKeyMap())

	if err := form.Run(); err != nil {
		return nil, err
	}

	if len(qualities) == 0 {
		return nil, errors.New("no quality selected - please select at least one tier")
	}
	n, _ := strconv.Atoi(strings.TrimSpace(trials))

	return &config.RuntimeOptions{
		Trials:    n,
		Qualities: qualities,
		Gzip:      gzipModes(gzipMode),
	}, nil
}

func gzipModeOf(modes []bool) string {
	switch {
	case len(modes) > 1:
		return gzipBoth
	case len(modes) == 1 && modes[0]:
		return gzipOn
	default:
		return gzipOff
	}
}

func gzipModes(mode string) []bool {
	switch mode {
	case gzipOn:
		return []bool{true}
	case gzipBoth:
		return []bool{false, true}
	default:
		return []bool{false}
	}
}

func PrintSummary(cfg *config.Config, caseCount int) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("37"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	row := func(label, value string) {
		fmt.Fprintf(Out, "%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
	}

	fmt.Fprintln(Out, headerStyle.Render("Run"))
	fmt.Fprintln(Out, strings.Repeat("─", 40))
	row("Qualities:", strings.Join(cfg.Benchmark.Qualities, ", "))
	row("Gzip:", FormatGzipModes(cfg.Benchmark.Gzip))
	row("Trials:", strconv.Itoa(cfg.Benchmark.Trials))
	row("Cases:", fmt.Sprintf("%d (%d requests)", caseCount, caseCount*cfg.Benchmark.Trials))
	fmt.Fprintln(Out, strings.Repeat("─", 40))
	fmt.Fprintln(Out)
}
