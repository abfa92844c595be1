package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/eytandecker/headset-pilot/pkg/types"
)

// NoScale names the built-in preset that leaves every stick channel untouched.
const NoScale = "No_Scale"

// ErrScaleNotFound is returned when the requested preset is not in the file.
var ErrScaleNotFound = errors.New("config: scale preset not found")

// ScalePreset is one named entry of the scale configuration file.
type ScalePreset struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Scale       types.ScaleFactor `json:"scale"`
}

// LoadScale returns the named preset from the file. NoScale and an empty
// file path yield the unit scale.
func LoadScale(cfg ScaleConfig) (types.ScaleFactor, error) {
	if cfg.Name == "" || cfg.Name == NoScale || cfg.File == "" {
		return types.UnitScale(), nil
	}

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		return types.ScaleFactor{}, errors.Wrap(err, "read scale config")
	}
	var presets []ScalePreset
	if err := json.Unmarshal(data, &presets); err != nil {
		return types.ScaleFactor{}, errors.Wrapf(err, "parse scale config %s", cfg.File)
	}

	for _, p := range presets {
		if p.Name != cfg.Name {
			continue
		}
		s := p.Scale
		if s.LeftHorizontal <= 0 || s.LeftVertical <= 0 || s.RightHorizontal <= 0 || s.RightVertical <= 0 {
			return types.ScaleFactor{}, errors.Errorf("config: scale preset %q has a non-positive factor", p.Name)
		}
		return s, nil
	}
	return types.ScaleFactor{}, errors.Wrapf(ErrScaleNotFound, "%q in %s", cfg.Name, cfg.File)
}
