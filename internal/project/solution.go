package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/piwi3910/platecut/internal/model"
)

// SolutionVersion is the format version written by SaveSolution.
const SolutionVersion = "1.0.0"

// SolutionFile is a solution together with the settings it was packed
// with. A later run may only reuse its plates when both match.
type SolutionFile struct {
	Version   string          `json:"version"`
	CreatedAt string          `json:"created_at"`
	Params    model.Params    `json:"params"`
	Options   model.Options   `json:"options"`
	Solution  *model.Solution `json:"solution"`
}

// SaveSolution writes a solution and its settings to path as JSON.
func SaveSolution(path string, sol *model.Solution, params model.Params, options model.Options) error {
	file := SolutionFile{
		Version:   SolutionVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Params:    params,
		Options:   options,
		Solution:  sol,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal solution: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create solution directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write solution file: %w", err)
	}
	return nil
}

// LoadSolution reads a solution file written by SaveSolution.
func LoadSolution(path string) (SolutionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SolutionFile{}, fmt.Errorf("failed to read solution file: %w", err)
	}
	var file SolutionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SolutionFile{}, fmt.Errorf("failed to parse solution file: %w", err)
	}
	if file.Version == "" {
		return SolutionFile{}, fmt.Errorf("invalid solution file: missing version field")
	}
	if file.Solution == nil {
		return SolutionFile{}, fmt.Errorf("invalid solution file: missing solution")
	}
	if file.Solution.Plates == nil {
		file.Solution.Plates = []model.PlateSolution{}
	}
	return file, nil
}

// Reusable reports whether the plates of a saved solution may seed a new
// run with the given settings.
func (f SolutionFile) Reusable(params model.Params, options model.Options) bool {
	return f.Params == params && f.Options == options
}
