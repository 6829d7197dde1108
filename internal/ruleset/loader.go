package ruleset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk YAML shape for a rule set, matching the payload
// the §6 persistence note describes as JSONB — here serialized as YAML the
// way the teacher's own contrib plugins and sibling pack repos configure
// themselves (gopkg.in/yaml.v3).
type document struct {
	RuleSetID     string          `yaml:"ruleset_id"`
	Version       string          `yaml:"version"`
	Layering      []LayeringEdge  `yaml:"layering"`
	Templates     []Template      `yaml:"templates"`
	Weights       *Weights        `yaml:"weights"`
	Thresholds    *Thresholds     `yaml:"thresholds"`
	AccessoryMode AccessoryMode   `yaml:"accessory_mode"`
	AllowCatalog  bool            `yaml:"allow_catalog"`
	BeamWidth     int             `yaml:"beam_width"`
	AnchorK       int             `yaml:"anchor_shortlist_k"`
	SlotK         int             `yaml:"slot_shortlist_k"`
}

// FromYAML parses a rule set document. Missing Weights/Thresholds fall back
// to the engine defaults; missing beam/shortlist sizes fall back to the
// §4.6/§4.5 documented defaults (W=8, K=40/20).
func FromYAML(data []byte) (RuleSet, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RuleSet{}, fmt.Errorf("ruleset: parse yaml: %w", err)
	}

	rs := RuleSet{
		RuleSetID:     doc.RuleSetID,
		Version:       doc.Version,
		Layering:      doc.Layering,
		Templates:     doc.Templates,
		AccessoryMode: doc.AccessoryMode,
		AllowCatalog:  doc.AllowCatalog,
		BeamWidth:     doc.BeamWidth,
		AnchorShortlistK: doc.AnchorK,
		SlotShortlistK:   doc.SlotK,
	}

	if doc.Weights != nil {
		rs.Weights = *doc.Weights
	} else {
		rs.Weights = DefaultWeights()
	}
	if doc.Thresholds != nil {
		rs.Thresholds = *doc.Thresholds
	} else {
		rs.Thresholds = DefaultThresholds()
	}
	if rs.AccessoryMode == "" {
		rs.AccessoryMode = AccessoryCoordinated
	}
	if rs.BeamWidth <= 0 {
		rs.BeamWidth = 8
	}
	if rs.AnchorShortlistK <= 0 {
		rs.AnchorShortlistK = 40
	}
	if rs.SlotShortlistK <= 0 {
		rs.SlotShortlistK = 20
	}

	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadFile reads and parses a rule set YAML file from disk.
func LoadFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 - ruleset path is operator-controlled configuration
	if err != nil {
		return RuleSet{}, fmt.Errorf("ruleset: read %s: %w", path, err)
	}
	return FromYAML(data)
}
