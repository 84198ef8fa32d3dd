package render

import "github.com/charmbracelet/lipgloss"

// Layout constants
const (
	cellW        = 11 // width of each step column in characters
	labelVisualW = 7  // visual width of qubit label area
	gateNameW    = 5  // width of gate name inside box
	gateBoxW     = 7  // ┤ + gateNameW + ├ = 1 + 5 + 1
)

// Theme colours the pieces of a diagram or histogram. Fields share the
// signature of lipgloss.Style.Render; nil fields leave the text unchanged.
type Theme struct {
	Gate      func(...string) string
	Qubit     func(...string) string
	Clbit     func(...string) string
	Connector func(...string) string
	Wire      func(...string) string
	Dim       func(...string) string
	Bar       func(...string) string
}

// Plain produces uncoloured output, suitable for files and tests.
var Plain = Theme{}

// Styled returns the terminal theme.
func Styled() Theme {
	return Theme{
		Gate:      gateStyle.Render,
		Qubit:     qubitLabelStyle.Render,
		Clbit:     cbitLabelStyle.Render,
		Connector: cbitConnectorStyle.Render,
		Wire:      cbitWireStyle.Render,
		Dim:       dimStyle.Render,
		Bar:       barStyle.Render,
	}
}

func apply(f func(...string) string, s string) string {
	if f == nil {
		return s
	}
	return f(s)
}

var (
	qubitLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff"))

	gateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#73daca"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bb9af7"))

	cbitLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68"))

	cbitWireStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))

	cbitConnectorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#e0af68")).
				Bold(true)
)
