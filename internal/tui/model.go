// Package tui is the interactive example browser.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/logging"
	"qdeutsch/internal/oracle"
	"qdeutsch/internal/render"
	"qdeutsch/internal/runner"
)

// focus represents which panel has keyboard input.
type focus int

const (
	focusMenu focus = iota
	focusQASM
)

// runDoneMsg carries a finished run back into Update.
type runDoneMsg struct {
	gen     int
	name    string
	outcome *runner.Outcome
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	runner *runner.Runner
	outDir string
	logger *zap.Logger

	menu     []menuCategory
	menuCat  int
	menuItem int

	oracle   *circuit.Circuit // the selected oracle, possibly edited
	composed *circuit.Circuit
	outcome  *runner.Outcome
	running  bool
	gen      int // bumped whenever composed changes; stale runs are dropped

	width      int
	height     int
	qasmEditor textarea.Model
	focus      focus
	lastQASM   string
	statusMsg  string // transient status message (e.g. save confirmation)
	statusErr  bool
}

// New returns a browser that runs examples with r and saves files to outDir.
func New(ctx context.Context, r *runner.Runner, outDir string) Model {
	ta := textarea.New()
	ta.Placeholder = "Oracle QASM..."
	ta.SetWidth(40)
	ta.SetHeight(12)
	ta.ShowLineNumbers = true
	ta.CharLimit = 0

	m := Model{
		ctx:        ctx,
		runner:     r,
		outDir:     outDir,
		logger:     logging.OrNop(r.Logger),
		menu:       exampleMenu(),
		qasmEditor: ta,
		focus:      focusMenu,
	}
	m.selectExample()
	return m
}

func (m *Model) current() oracle.Example {
	return m.menu[m.menuCat].items[m.menuItem]
}

// selectExample loads the highlighted example and drops any previous result.
func (m *Model) selectExample() {
	ex := m.current()
	m.oracle = ex.Oracle.Clone()
	m.outcome = nil
	m.gen++
	m.composed = nil
	if c, err := m.compose(m.oracle); err != nil {
		m.setStatus(fmt.Sprintf("Compose error: %v", err), true)
	} else {
		m.composed = c
	}

	qasm := m.oracle.ToQASM()
	m.qasmEditor.SetValue(qasm)
	m.lastQASM = qasm
}

// compose wraps o in the template of the selected example.
func (m *Model) compose(o *circuit.Circuit) (*circuit.Circuit, error) {
	ex := m.current()
	ex.Oracle = o
	return runner.Compose(ex)
}

// applyQASM re-parses the edited oracle. Nothing is committed unless the
// new oracle parses and fits the template, so on error the previous oracle
// and its composed circuit stay.
func (m *Model) applyQASM() {
	qasm := m.qasmEditor.Value()
	if qasm == m.lastQASM {
		return
	}
	c, err := circuit.ParseQASM(qasm)
	if err != nil {
		m.setStatus(fmt.Sprintf("QASM error: %v", err), true)
		return
	}
	composed, err := m.compose(c)
	if err != nil {
		m.setStatus(fmt.Sprintf("Compose error: %v", err), true)
		return
	}
	m.lastQASM = qasm
	m.oracle = c
	m.composed = composed
	m.outcome = nil
	m.gen++
	m.setStatus("Oracle updated", false)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

// runCmd executes the current circuit off the UI goroutine.
func (m *Model) runCmd() tea.Cmd {
	if m.running || m.composed == nil {
		return nil
	}
	ex := m.current()
	ex.Oracle = m.oracle.Clone()
	m.running = true
	m.setStatus(fmt.Sprintf("Running %s on %s...", ex.Name, m.runner.Backend.Name()), false)

	ctx, r, gen := m.ctx, m.runner, m.gen
	return func() tea.Msg {
		o, err := r.Run(ctx, ex)
		return runDoneMsg{gen: gen, name: ex.Name, outcome: o, err: err}
	}
}

func (m *Model) save() {
	if m.outcome == nil {
		m.setStatus("Nothing to save: run the example first", true)
		return
	}
	files, err := render.WriteFiles(m.outDir, m.outcome.Name, m.outcome.Circuit, m.outcome.Result.Counts)
	if err != nil {
		m.setStatus(fmt.Sprintf("Save error: %v", err), true)
		return
	}
	m.logger.Info("saved run", zap.String("circuit", files.Circuit), zap.String("histogram", files.Histogram))
	m.setStatus(fmt.Sprintf("Saved %s and %s", files.Circuit, files.Histogram), false)
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.qasmEditor.SetWidth(max(msg.Width/3-6, 20))
		m.qasmEditor.SetHeight(max(msg.Height-histogramHeight-controlsHeight-10, 4))

	case runDoneMsg:
		m.running = false
		if msg.gen != m.gen {
			m.logger.Debug("dropped stale run", zap.String("example", msg.name), zap.Int("gen", msg.gen))
			break
		}
		if msg.err != nil {
			m.logger.Warn("run failed", zap.String("example", msg.name), zap.Error(msg.err))
			m.setStatus(fmt.Sprintf("Run error: %v", msg.err), true)
			break
		}
		m.outcome = msg.outcome
		m.setStatus(fmt.Sprintf("%s: %s (%s)", msg.name, msg.outcome.Verdict, msg.outcome.Result.Backend), false)

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusMenu:
			m.statusMsg = ""
			switch key {
			case "q":
				return m, tea.Quit
			case "tab":
				m.menuCat = (m.menuCat + 1) % len(m.menu)
				m.menuItem = 0
				m.selectExample()
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
					m.selectExample()
				}
			case "down", "j":
				if m.menuItem < len(m.menu[m.menuCat].items)-1 {
					m.menuItem++
					m.selectExample()
				}
			case "enter":
				cmds = append(cmds, m.runCmd())
			case "r":
				if m.outcome != nil {
					cmds = append(cmds, m.runCmd())
				}
			case "s":
				m.save()
			case "e":
				m.focus = focusQASM
				cmds = append(cmds, m.qasmEditor.Focus())
			}

		case focusQASM:
			switch key {
			case "esc":
				m.focus = focusMenu
				m.qasmEditor.Blur()
				m.applyQASM()
			default:
				var cmd tea.Cmd
				m.qasmEditor, cmd = m.qasmEditor.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(ctx context.Context, r *runner.Runner, outDir string) error {
	p := tea.NewProgram(New(ctx, r, outDir), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
