package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/bufferopt/pkg/store"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors, negative slack
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleNegative  = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleHeader   = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Run Display
// =============================================================================

// printRunLine prints the one-line summary of a run.
func printRunLine(rep *store.Report) {
	parts := []string{
		fmt.Sprintf("%d sweeps", rep.Stats.Sweeps),
		fmt.Sprintf("%d changes", rep.Stats.Changes()),
		fmt.Sprintf("%d inserted", rep.Stats.Inserted),
	}
	status, statusStyle := iconFresh, styleComputed
	if rep.CacheHit {
		status, statusStyle = iconCached, styleCached
	}

	var b strings.Builder
	b.WriteString("  ")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(StyleDim.Render(" · "))
		}
		b.WriteString(StyleDim.Render(part))
	}
	b.WriteString(StyleDim.Render(" · "))
	b.WriteString(statusStyle.Render(status))
	fmt.Println(b.String())
}

// printReport prints the full summary of a run.
func printReport(rep *store.Report) {
	st := rep.Stats
	printKeyValue("run", rep.ID)
	printKeyValue("network", rep.Network)
	if rep.Library != "" {
		printKeyValue("library", rep.Library)
	}
	printKeyValue("mode", rep.Mode)
	printKeyValue("sweeps", fmt.Sprint(st.Sweeps))
	for _, kind := range sortedKinds(st.Transforms) {
		printKeyValue("  "+kind, fmt.Sprint(st.Transforms[kind]))
	}
	printKeyValue("inserted", fmt.Sprint(st.Inserted))
	printKeyValue("deleted", fmt.Sprint(st.Deleted))
	printKeyValue("resized", fmt.Sprint(st.Resized))
	printKeyValue("area", fmt.Sprintf("%.3f %s %.3f", st.AreaBefore, iconArrow, st.AreaAfter))
	printKeyValue(metricName(st.Constrained), fmt.Sprintf("%.4f %s %.4f", st.MetricBefore, iconArrow, st.MetricAfter))
	if st.LoadViolations > 0 {
		printWarning("%d load violations", st.LoadViolations)
	}
	printKeyValue("duration", rep.Duration.String())
	printRunLine(rep)
}

// metricName labels the metric: worst output slack for constrained
// networks, negated latest arrival otherwise.
func metricName(constrained bool) string {
	if constrained {
		return "worst slack"
	}
	return "-max arrival"
}

// fmtSlack colors negative values red.
func fmtSlack(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	if v < 0 {
		return StyleNegative.Render(s)
	}
	return s
}
