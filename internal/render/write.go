package render

import (
	"fmt"
	"os"
	"path/filepath"

	"qdeutsch/internal/circuit"
	"qdeutsch/internal/simulator"
)

// Files lists the paths written by WriteFiles.
type Files struct {
	Circuit   string
	Histogram string
}

// WriteFiles saves the plain diagram and histogram of one run under dir as
// <name>_circuit.txt and <name>_histogram.txt.
func WriteFiles(dir, name string, c *circuit.Circuit, counts simulator.Counts) (Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := Files{
		Circuit:   filepath.Join(dir, name+"_circuit.txt"),
		Histogram: filepath.Join(dir, name+"_histogram.txt"),
	}
	if err := os.WriteFile(files.Circuit, []byte(Diagram(c, Plain)), 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write circuit: %w", err)
	}
	hist := name + "\n\n" + Histogram(counts, DefaultBarWidth, Plain)
	if err := os.WriteFile(files.Histogram, []byte(hist), 0644); err != nil {
		return Files{}, fmt.Errorf("failed to write histogram: %w", err)
	}
	return files, nil
}
