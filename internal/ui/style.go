package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// SetColor turns colored output on or off for the whole process.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// PrintLogo renders the colored crashpath logo to w.
func PrintLogo(w io.Writer) {
	frame := color.New(color.FgCyan)
	path := color.New(color.FgYellow)
	crit := color.New(color.Bold, color.FgRed)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +------------------------------+")
	path.Fprintln(w, "   |  o---o---o         o---o     |")
	crit.Fprintln(w, "   |  o===o===o===o===o===o===o   |")
	path.Fprintln(w, "   |      o---o---o---o           |")
	frame.Fprintln(w, "   |==============================|")
	brand.Fprintln(w, "   |   C R A S H P A T H          |")
	frame.Fprintln(w, "   +------------------------------+")
	tag.Fprintf(w, "   %s Critical path & schedule crashing\n", Dim("⏱"))
	fmt.Fprintln(w)
}

// activityColors is a palette of distinct bold colors for differentiating activities.
var activityColors = []func(a ...interface{}) string{
	BoldMagenta,
	BoldCyan,
	BoldYellow,
	BoldGreen,
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// activityColorIndex hashes an activity ID to a palette index.
func activityColorIndex(id string) int {
	var h uint32
	for _, c := range id {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(activityColors)))
}

// ActivityLabel returns a colored [activity-id] label.
// Each activity ID gets a distinct color from the palette.
func ActivityLabel(id string) string {
	c := activityColors[activityColorIndex(id)]
	return Dim("[") + c(id) + Dim("]")
}

// StatusIcon returns a colored icon for a crash plan status.
func StatusIcon(status string) string {
	switch status {
	case "achieved":
		return Green("✓")
	case "infeasible":
		return Red("✗")
	default:
		return Dim("◌")
	}
}

// CriticalMark returns the marker printed next to critical activities.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// WaveStatus returns a colored wave label.
func WaveStatus(critical bool) string {
	if critical {
		return BoldRed("critical")
	}
	return Dim("slack")
}
