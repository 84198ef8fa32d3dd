// Package render draws circuits and measurement histograms as box-drawing
// text, plain for files or coloured for the terminal.
package render

import (
	"fmt"
	"strings"

	"qdeutsch/internal/circuit"
)

// padCenter centres a string within the given width.
func padCenter(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	total := width - len(s)
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

// gateDisplayName returns a short display name for a gate type.
func gateDisplayName(gateType string) string {
	switch gateType {
	case circuit.TypeMeasure:
		return "M"
	case circuit.TypeReset:
		return "|0>"
	default:
		return gateType
	}
}

// targetSymbol returns the wire symbol for the target qubit of a two-qubit gate.
func targetSymbol(gateType string) string {
	if gateType == circuit.TypeCZ {
		return "●"
	}
	return "⊕"
}

type cellInfo struct {
	gate         *circuit.Gate
	isBarrier    bool
	isControl    bool
	isTarget     bool
	passThrough  bool // a two-qubit gate's wire crosses this qubit
	vertAbove    bool
	vertBelow    bool
	measureBelow bool // a classical line runs down through the bottom row
}

func cellAt(c *circuit.Circuit, step, qubit int) cellInfo {
	var info cellInfo
	for i := range c.Gates {
		g := &c.Gates[i]
		if g.Step != step {
			continue
		}
		switch {
		case g.Type == circuit.TypeBarrier:
			info.isBarrier = true
		case g.Type == circuit.TypeMeasure:
			if g.Target == qubit {
				info.gate = g
			}
			if g.Target <= qubit {
				info.measureBelow = true
			}
		case g.Control >= 0:
			lo, hi := min(g.Control, g.Target), max(g.Control, g.Target)
			switch {
			case qubit == g.Control || qubit == g.Target:
				info.gate = g
				info.isControl = qubit == g.Control
				info.isTarget = qubit == g.Target
				info.vertAbove = qubit == hi
				info.vertBelow = qubit == lo
			case qubit > lo && qubit < hi:
				info.passThrough = true
				info.vertAbove = true
				info.vertBelow = true
			}
		case g.Target == qubit:
			info.gate = g
		}
	}
	return info
}

// renderCell returns 3 lines (top, mid, bot) for a single cell.
// Each line is exactly cellW visual characters wide.
func renderCell(info cellInfo, th Theme) (top, mid, bot string) {
	emptyRow := strings.Repeat(" ", cellW)
	halfW := cellW / 2
	vertRow := strings.Repeat(" ", halfW) + "│" + strings.Repeat(" ", cellW-halfW-1)
	dblVertRow := strings.Repeat(" ", halfW) + apply(th.Connector, "║") + strings.Repeat(" ", cellW-halfW-1)
	dashL := (cellW - 1) / 2
	dashR := cellW - dashL - 1
	wire := func(sym string) string {
		return strings.Repeat("─", dashL) + sym + strings.Repeat("─", dashR)
	}
	vert := func(on bool) string {
		if on {
			return vertRow
		}
		return emptyRow
	}

	switch {
	case info.isBarrier:
		return vertRow, wire("│"), vertRow

	case info.gate != nil && (info.isControl || info.isTarget):
		sym := "●"
		if info.isTarget {
			sym = targetSymbol(info.gate.Type)
		}
		top, mid, bot = vert(info.vertAbove), wire(apply(th.Gate, sym)), vert(info.vertBelow)

	case info.gate != nil:
		margin := (cellW - gateBoxW) / 2
		rightMargin := cellW - margin - gateBoxW
		name := padCenter(gateDisplayName(info.gate.Type), gateNameW)
		top = strings.Repeat(" ", margin) + apply(th.Gate, "┌"+strings.Repeat("─", gateNameW)+"┐") + strings.Repeat(" ", rightMargin)
		mid = strings.Repeat("─", margin) + apply(th.Gate, "┤"+name+"├") + strings.Repeat("─", rightMargin)
		bot = strings.Repeat(" ", margin) + apply(th.Gate, "└"+strings.Repeat("─", gateNameW)+"┘") + strings.Repeat(" ", rightMargin)

	case info.passThrough:
		return vertRow, wire("┼"), vertRow

	case info.measureBelow:
		// No gate here, but a measurement line passes through vertically.
		return dblVertRow, wire(apply(th.Connector, "╫")), dblVertRow

	default:
		return emptyRow, strings.Repeat("─", cellW), emptyRow
	}

	if info.measureBelow {
		bot = dblVertRow
	}
	return top, mid, bot
}

// Diagram draws the circuit, one column per layout step, three text rows
// per qubit and a single classical wire underneath.
func Diagram(c *circuit.Circuit, th Theme) string {
	var sb strings.Builder
	steps := c.Depth()

	header := strings.Repeat(" ", labelVisualW)
	for step := range steps {
		header += apply(th.Dim, padCenter(fmt.Sprintf("%d", step), cellW))
	}
	sb.WriteString(strings.TrimRight(header, " ") + "\n")

	for qubit := range c.NumQubits {
		topLine := strings.Repeat(" ", labelVisualW)
		midLine := apply(th.Qubit, fmt.Sprintf("%-5s", fmt.Sprintf("q[%d]", qubit))) + "──"
		botLine := strings.Repeat(" ", labelVisualW)

		for step := range steps {
			top, mid, bot := renderCell(cellAt(c, step, qubit), th)
			topLine += top
			midLine += mid
			botLine += bot
		}

		sb.WriteString(strings.TrimRight(topLine, " ") + "\n")
		sb.WriteString(midLine + "\n")
		sb.WriteString(strings.TrimRight(botLine, " ") + "\n")
	}

	if c.NumClbits > 0 {
		cbitLine := apply(th.Clbit, fmt.Sprintf("%-5s", fmt.Sprintf("c%d", c.NumClbits))) + apply(th.Wire, "══")
		for step := range steps {
			cbit := c.GetMeasureAtStep(step)
			if cbit < 0 {
				cbitLine += apply(th.Wire, strings.Repeat("═", cellW))
				continue
			}
			bitLabel := fmt.Sprintf("%d", cbit)
			dashL := (cellW - 1) / 2
			dashR := max(cellW-dashL-1-len(bitLabel), 0)
			cbitLine += apply(th.Wire, strings.Repeat("═", dashL)) +
				apply(th.Connector, "╩"+bitLabel) +
				apply(th.Wire, strings.Repeat("═", dashR))
		}
		sb.WriteString(cbitLine + "\n")
	}

	return sb.String()
}
