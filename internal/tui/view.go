package tui

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/render"
	"qdeutsch/internal/simulator"
)

const (
	menuWidth       = 34
	histogramHeight = 9
	controlsHeight  = 4
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 4
	circuitWidth := max(m.width-menuWidth-qasmWidth-8, 20)
	topHeight := max(m.height-histogramHeight-controlsHeight-6, 8)

	menuPanel := m.renderMenu(menuWidth, topHeight)
	circuitPanel := m.renderCircuitPanel(circuitWidth, topHeight)
	qasmPanel := m.renderQASMPanel(qasmWidth, topHeight)
	histPanel := m.renderHistogramPanel(m.width-4, histogramHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, menuPanel, circuitPanel, qasmPanel)
	return lipgloss.JoinVertical(lipgloss.Left, topRow, histPanel, controlsPanel)
}

// renderCircuitPanel renders the composed circuit.
func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder

	ex := m.current()
	sb.WriteString(titleStyle.Render("Circuit: " + ex.Name))
	sb.WriteString("\n\n")
	if m.composed == nil {
		sb.WriteString(dimStyle.Render("(oracle does not fit the template)"))
	} else {
		sb.WriteString(render.Diagram(m.composed, render.Styled()))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(exactLine(m.composed)))
	}

	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// exactLine summarises the ideal outcome distribution of the circuit.
func exactLine(c *circuit.Circuit) string {
	dist, err := simulator.Probabilities(c)
	if err != nil {
		return "ideal: sampled only (mid-circuit reset or measurement)"
	}
	parts := make([]string, 0, len(dist))
	for _, k := range slices.Sorted(maps.Keys(dist)) {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", k, 100*dist[k]))
	}
	return "ideal: " + strings.Join(parts, "  ")
}

// renderQASMPanel renders the oracle's QASM editor.
func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder

	title := "Oracle QASM"
	if m.focus == focusQASM {
		title += " [EDITING]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmEditor.View())

	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

// renderHistogramPanel renders the counts of the last run.
func (m Model) renderHistogramPanel(width, height int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Counts"))
	switch {
	case m.running:
		sb.WriteString("\n" + activeStyle.Render("running..."))
	case m.outcome == nil:
		sb.WriteString("\n" + dimStyle.Render("press enter to run"))
	default:
		res := m.outcome.Result
		fmt.Fprintf(&sb, "  %s  %s\n",
			verdictStyle.Render(m.outcome.Verdict.String()),
			dimStyle.Render(fmt.Sprintf("%s · job %s · %v", res.Backend, res.JobID, res.Duration.Round(time.Microsecond))))
		sb.WriteString(render.Histogram(res.Counts, max(width-30, 10), render.Styled()))
	}

	return histogramStyle.Width(width).Height(height).Render(sb.String())
}

// renderControlsPanel renders the bottom help bar.
func (m Model) renderControlsPanel(width, height int) string {
	var sb strings.Builder

	if m.focus == focusQASM {
		sb.WriteString(activeStyle.Render("Editing: "))
		sb.WriteString("type to edit the oracle  Esc Apply and leave  ^C Quit")
	} else {
		sb.WriteString(activeStyle.Render("Navigate: "))
		sb.WriteString("↑↓/jk Example  Tab Category  e Edit QASM")
		sb.WriteString("\n")
		sb.WriteString(activeStyle.Render("Actions:  "))
		sb.WriteString("⏎ Run  r Re-run  s Save  q/^C Quit")
	}
	if m.statusMsg != "" {
		style := activeStyle
		if m.statusErr {
			style = errorStyle
		}
		fmt.Fprintf(&sb, "  │  %s", style.Render(m.statusMsg))
	}

	return controlsStyle.Width(width).Height(height).Render(sb.String())
}
