package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"qdeutsch/internal/backend"
	"qdeutsch/internal/config"
	"qdeutsch/internal/logging"
	"qdeutsch/internal/oracle"
	"qdeutsch/internal/runner"
	"qdeutsch/internal/simulator"
	"qdeutsch/internal/tui"
)

// app carries the state shared by every subcommand.
type app struct {
	out io.Writer

	configPath  string
	backendName string
	shots       int
	seed        uint64
	outDir      string
	concurrency int
	verbose     bool
	draw        bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "qdeutsch",
		Short: "Deutsch and Deutsch-Jozsa algorithm demos",
		Long: `qdeutsch wraps oracle circuits in the Deutsch and Deutsch-Jozsa templates,
runs them on a backend and reports the measurement counts.

With a constant oracle every shot reads all zeros; with a balanced oracle
none does.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Config file")
	flags.StringVarP(&a.backendName, "backend", "b", "", "Backend: simulator or ibm")
	flags.IntVarP(&a.shots, "shots", "s", 0, "Shots per circuit")
	flags.Uint64Var(&a.seed, "seed", 0, "Simulator seed (0 draws a fresh one)")
	flags.StringVarP(&a.outDir, "out", "o", "", "Directory for rendered circuits and histograms")
	flags.IntVar(&a.concurrency, "concurrency", 0, "Examples run at once")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.BoolVar(&a.draw, "draw", false, "Print each composed circuit")

	rootCmd.AddCommand(
		a.examplesCmd("deutsch", "Run the single-input Deutsch examples", fixed(oracle.DeutschExamples)),
		a.examplesCmd("jozsa", "Run the n-input Deutsch-Jozsa examples", fixed(oracle.JozsaExamples)),
		a.textbookCmd(),
		a.helloCmd(),
		a.backendsCmd(),
		a.browseCmd(),
		a.initCmd(),
	)
	return rootCmd
}

// setup loads the config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backendName
	}
	if flags.Changed("shots") {
		cfg.Shots = a.shots
	}
	if flags.Changed("seed") {
		cfg.Seed = a.seed
	}
	if flags.Changed("out") {
		cfg.OutDir = a.outDir
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = a.concurrency
	}
	if cmd.Name() != "init" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	a.cfg = cfg

	opts := logging.Options{Verbose: a.verbose, Level: cfg.Logging.Level}
	if cmd.Name() == "browse" {
		// The browser owns the terminal.
		opts.File = cfg.Logging.File
	}
	a.logger, err = logging.New(opts)
	return err
}

func (a *app) runner(cmd *cobra.Command) (*runner.Runner, error) {
	b, err := backend.Open(cmd.Context(), a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	r := runner.New(b, a.cfg, a.out, a.logger)
	r.Draw = a.draw
	return r, nil
}

// selectExamples resolves each argument as a zero-based index into examples
// or, failing that, as the name of one of them.
func selectExamples(examples []oracle.Example, args []string) ([]oracle.Example, error) {
	if len(args) == 0 {
		return examples, nil
	}
	selected := make([]oracle.Example, 0, len(args))
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			picked, err := oracle.Select(examples, n)
			if err != nil {
				return nil, err
			}
			selected = append(selected, picked...)
			continue
		}
		ex, ok := oracle.Lookup(examples, arg)
		if !ok {
			return nil, fmt.Errorf("unknown example %q", arg)
		}
		selected = append(selected, ex)
	}
	return selected, nil
}

// fixed adapts a static example list to examplesCmd.
func fixed(examples func() []oracle.Example) func() ([]oracle.Example, error) {
	return func() ([]oracle.Example, error) { return examples(), nil }
}

func (a *app) examplesCmd(use, short string, examples func() ([]oracle.Example, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [index|name...]",
		Short: short,
		Long: short + `.

Indices are zero-based and names match the example names; with none given
every example runs in order.
Each run prints its counts and verdict and writes <name>_circuit.txt and
<name>_histogram.txt to the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := examples()
			if err != nil {
				return err
			}
			selected, err := selectExamples(all, args)
			if err != nil {
				return err
			}
			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			_, err = r.RunAll(cmd.Context(), selected)
			return err
		},
	}
}

func (a *app) textbookCmd() *cobra.Command {
	var inputs int
	cmd := a.examplesCmd("textbook", "Run generated constant and balanced oracles", func() ([]oracle.Example, error) {
		return oracle.TextbookExamples(inputs)
	})
	cmd.Flags().IntVarP(&inputs, "inputs", "n", 3, "Input qubits of the generated oracles")
	return cmd
}

func (a *app) helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Run the two-qubit smoke test circuit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			_, err = r.RunCircuit(cmd.Context(), "hello", oracle.Hello())
			return err
		},
	}
}

func (a *app) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the devices the configured backend can reach",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := backend.Open(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			ibm, ok := b.(*backend.IBM)
			if !ok {
				fmt.Fprintf(a.out, "%-24s %6s  %s\n", "NAME", "QUBITS", "STATUS")
				fmt.Fprintf(a.out, "%-24s %6d  %s\n", b.Name(), simulator.MaxQubits, "local simulator")
				return nil
			}

			devices, err := ibm.ListBackends(cmd.Context())
			if err != nil {
				return err
			}
			slices.SortFunc(devices, func(x, y backend.Device) int {
				return cmp.Or(cmp.Compare(x.PendingJobs, y.PendingJobs), cmp.Compare(x.Name, y.Name))
			})
			fmt.Fprintf(a.out, "%-24s %6s  %s\n", "NAME", "QUBITS", "STATUS")
			for _, d := range devices {
				status := fmt.Sprintf("%d pending", d.PendingJobs)
				switch {
				case !d.Operational:
					status = "offline"
				case d.Simulator:
					status += ", simulator"
				}
				fmt.Fprintf(a.out, "%-24s %6d  %s\n", d.Name, d.NumQubits, status)
			}
			return nil
		},
	}
}

func (a *app) browseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and run the examples interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.runner(cmd)
			if err != nil {
				return err
			}
			// The browser draws its own output; runs are not echoed.
			r.Out = nil
			r.OutDir = ""
			return tui.Run(cmd.Context(), r, a.cfg.OutDir)
		},
	}
}

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(a.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.configPath)
			}
			cfg := *a.cfg
			if os.Getenv("QDEUTSCH_IBM_TOKEN") != "" {
				// Keep secrets from the environment out of the file.
				cfg.IBM.Token = ""
			}
			if err := cfg.Save(a.configPath); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "wrote %s\n", a.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
