package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/platecut/internal/model"
)

// MachineProfile is a named cutting geometry.
type MachineProfile struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Params      model.Params `json:"params"`
	IsBuiltIn   bool         `json:"-"`
}

// BuiltInProfiles returns the geometries shipped with the program.
func BuiltInProfiles() []MachineProfile {
	jumbo := model.DefaultParams()

	half := model.DefaultParams()
	half.PlateWidth = 3210
	half.PlateHeight = 2250
	half.MaxXX = 2500

	small := model.Params{
		PlateWidth:  1200,
		PlateHeight: 800,
		MinXX:       20,
		MaxXX:       600,
		MinYY:       20,
		MinWaste:    5,
		PlateCount:  50,
	}

	return []MachineProfile{
		{Name: "jumbo", Description: "Float glass jumbo plate 6000x3210", Params: jumbo, IsBuiltIn: true},
		{Name: "half", Description: "Split plate 3210x2250", Params: half, IsBuiltIn: true},
		{Name: "bench", Description: "Bench saw 1200x800", Params: small, IsBuiltIn: true},
	}
}

// FindProfile looks a profile up by name, case-insensitively. Custom
// profiles shadow built-in ones.
func FindProfile(name string, custom []MachineProfile) (MachineProfile, error) {
	for _, p := range custom {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	for _, p := range BuiltInProfiles() {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return MachineProfile{}, fmt.Errorf("unknown machine profile %q", name)
}

// DefaultProfilesPath returns the default file path for custom profiles.
func DefaultProfilesPath() string {
	return filepath.Join(DefaultConfigDir(), "machines.json")
}

// SaveCustomProfiles saves custom profiles to a JSON file.
func SaveCustomProfiles(path string, profiles []MachineProfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCustomProfiles loads custom profiles from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadCustomProfiles(path string) ([]MachineProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []MachineProfile{}, nil
		}
		return nil, err
	}

	var profiles []MachineProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.Name == "" {
			return nil, errors.New("machine profile has no name")
		}
		if err := p.Params.Validate(); err != nil {
			return nil, fmt.Errorf("machine profile %q: %w", p.Name, err)
		}
	}
	return profiles, nil
}
