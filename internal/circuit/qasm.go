package circuit

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleGateParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\];?$`)
	twoQubitRegex        = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\]\s*,\s*q\[(\d+)\];?$`)
	measureRegex         = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*c\[(\d+)\];?$`)
	measureAllRegex      = regexp.MustCompile(`^measure\s+q\s*->\s*c;?$`)
	resetRegex           = regexp.MustCompile(`^reset\s+q\[(\d+)\];?$`)
	qregRegex            = regexp.MustCompile(`^qreg\s+q\[(\d+)\];?$`)
	cregRegex            = regexp.MustCompile(`^creg\s+c\[(\d+)\];?$`)
	barrierRegex         = regexp.MustCompile(`^barrier\s+([^;]+);?$`)
	barrierOperandRegex  = regexp.MustCompile(`^q(?:\[(\d+)\])?$`)
)

// ErrPartialBarrier is returned for a barrier that leaves out some qubits.
// Barriers always span the whole register.
var ErrPartialBarrier = errors.New("partial barriers are not supported")

var singleQubitGates = map[string]bool{
	TypeH: true, TypeX: true, TypeY: true, TypeZ: true, TypeS: true, TypeT: true,
}

var rotationGates = map[string]bool{
	TypeRX: true, TypeRY: true, TypeRZ: true,
}

var controlledGates = map[string]bool{
	TypeCX: true, TypeCZ: true,
}

// ToQASM renders the circuit as OpenQASM 2.0, in program order.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", max(c.NumQubits, 1))
	if c.NumClbits > 0 {
		fmt.Fprintf(&sb, "creg c[%d];\n", c.NumClbits)
	}
	sb.WriteString("\n")

	for _, g := range c.Gates {
		name := strings.ToLower(g.Type)
		switch {
		case g.Type == TypeBarrier:
			qubits := make([]string, c.NumQubits)
			for q := range c.NumQubits {
				qubits[q] = fmt.Sprintf("q[%d]", q)
			}
			fmt.Fprintf(&sb, "barrier %s;\n", strings.Join(qubits, ","))
		case g.Type == TypeMeasure:
			fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", g.Target, g.Cbit)
		case g.Type == TypeReset:
			fmt.Fprintf(&sb, "reset q[%d];\n", g.Target)
		case g.Control >= 0:
			fmt.Fprintf(&sb, "%s q[%d],q[%d];\n", name, g.Control, g.Target)
		case len(g.Params) > 0:
			params := make([]string, len(g.Params))
			for i, p := range g.Params {
				params[i] = FormatParam(p)
			}
			fmt.Fprintf(&sb, "%s(%s) q[%d];\n", name, strings.Join(params, ","), g.Target)
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", name, g.Target)
		}
	}
	return sb.String()
}

// ParseQASM builds a circuit from OpenQASM 2.0 text using the single "q" and
// "c" registers that ToQASM emits. Unsupported statements are an error.
func ParseQASM(qasm string) (*Circuit, error) {
	c := New(0, 0)
	for i, raw := range strings.Split(qasm, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" ||
			strings.HasPrefix(line, "OPENQASM") ||
			strings.HasPrefix(line, "include") {
			continue
		}

		if err := c.parseLine(line); err != nil {
			return nil, fmt.Errorf("qasm line %d %q: %w", lineNo, line, err)
		}
		if err := c.Err(); err != nil {
			return nil, fmt.Errorf("qasm line %d %q: %w", lineNo, line, err)
		}
	}
	return c, nil
}

// parseBarrier accepts "q" or a list of q[i] operands that together name
// every qubit.
func (c *Circuit) parseBarrier(operands string) error {
	covered := make(map[int]bool)
	for _, op := range strings.Split(operands, ",") {
		op = strings.TrimSpace(op)
		m := barrierOperandRegex.FindStringSubmatch(op)
		if m == nil {
			return fmt.Errorf("bad barrier operand %q", op)
		}
		if m[1] == "" {
			for q := range c.NumQubits {
				covered[q] = true
			}
			continue
		}
		q, _ := strconv.Atoi(m[1])
		if err := c.checkQubit(q); err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
		covered[q] = true
	}
	if len(covered) < c.NumQubits {
		return fmt.Errorf("%w: %d of %d qubits", ErrPartialBarrier, len(covered), c.NumQubits)
	}
	c.Barrier()
	return nil
}

func (c *Circuit) parseLine(line string) error {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}

	if m := qregRegex.FindStringSubmatch(line); m != nil {
		c.NumQubits = atoi(m[1])
		return nil
	}
	if m := cregRegex.FindStringSubmatch(line); m != nil {
		c.NumClbits = atoi(m[1])
		return nil
	}
	if m := barrierRegex.FindStringSubmatch(line); m != nil {
		return c.parseBarrier(m[1])
	}
	if measureAllRegex.MatchString(line) {
		for q := range min(c.NumQubits, c.NumClbits) {
			c.Measure(q, q)
		}
		return nil
	}
	if m := measureRegex.FindStringSubmatch(line); m != nil {
		c.Measure(atoi(m[1]), atoi(m[2]))
		return nil
	}
	if m := resetRegex.FindStringSubmatch(line); m != nil {
		c.Reset(atoi(m[1]))
		return nil
	}
	if m := twoQubitRegex.FindStringSubmatch(line); m != nil {
		gateType := strings.ToUpper(m[1])
		if gateType == "CNOT" {
			gateType = TypeCX
		}
		if !controlledGates[gateType] {
			return fmt.Errorf("%w: %s", ErrUnknownGate, m[1])
		}
		c.AddGate(gateType, atoi(m[3]), atoi(m[2]))
		return nil
	}
	if m := singleGateParamRegex.FindStringSubmatch(line); m != nil {
		gateType := strings.ToUpper(m[1])
		if !rotationGates[gateType] {
			return fmt.Errorf("%w: %s", ErrUnknownGate, m[1])
		}
		theta, ok := ParseParam(m[2])
		if !ok {
			return fmt.Errorf("bad parameter %q", m[2])
		}
		c.AddParameterizedGate(gateType, atoi(m[3]), []float64{theta})
		return nil
	}
	if m := singleGateRegex.FindStringSubmatch(line); m != nil {
		gateType := strings.ToUpper(m[1])
		if !singleQubitGates[gateType] {
			return fmt.Errorf("%w: %s", ErrUnknownGate, m[1])
		}
		c.AddGate(gateType, atoi(m[2]))
		return nil
	}
	return fmt.Errorf("%w: unsupported statement", ErrUnknownGate)
}
