package models

import "fmt"

type Detergent string

const (
	DetergentStandard     Detergent = "standard"
	DetergentHypoallergen Detergent = "hypoallergenic"
	DetergentEco          Detergent = "eco"
)

type WaterTemp string

const (
	WaterCold WaterTemp = "cold"
	WaterWarm WaterTemp = "warm"
	WaterHot  WaterTemp = "hot"
)

type FoldStyle string

const (
	FoldStandard FoldStyle = "standard"
	FoldHanging  FoldStyle = "hanging"
	FoldRolled   FoldStyle = "rolled"
)

// Preferences is the customer's care snapshot taken at order time. The
// fields are closed enumerations; use NewPreferences to build a valid one.
type Preferences struct {
	Detergent    Detergent `json:"detergent,omitempty"`
	WaterTemp    WaterTemp `json:"water_temp,omitempty"`
	FoldStyle    FoldStyle `json:"fold_style,omitempty"`
	Starch       bool      `json:"starch,omitempty"`
	SeparateDark bool      `json:"separate_dark,omitempty"`
	Note         string    `json:"note,omitempty"`
}

const maxPreferenceNote = 280

// NewPreferences fills defaults for empty fields and rejects unknown values.
func NewPreferences(p Preferences) (Preferences, error) {
	if p.Detergent == "" {
		p.Detergent = DetergentStandard
	}
	if p.WaterTemp == "" {
		p.WaterTemp = WaterCold
	}
	if p.FoldStyle == "" {
		p.FoldStyle = FoldStandard
	}
	switch p.Detergent {
	case DetergentStandard, DetergentHypoallergen, DetergentEco:
	default:
		return Preferences{}, fmt.Errorf("unknown detergent %q", p.Detergent)
	}
	switch p.WaterTemp {
	case WaterCold, WaterWarm, WaterHot:
	default:
		return Preferences{}, fmt.Errorf("unknown water temperature %q", p.WaterTemp)
	}
	switch p.FoldStyle {
	case FoldStandard, FoldHanging, FoldRolled:
	default:
		return Preferences{}, fmt.Errorf("unknown fold style %q", p.FoldStyle)
	}
	if len(p.Note) > maxPreferenceNote {
		return Preferences{}, fmt.Errorf("preference note exceeds %d characters", maxPreferenceNote)
	}
	return p, nil
}
