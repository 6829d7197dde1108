package ruleset

import "testing"

func TestFromYAMLAppliesDefaults(t *testing.T) {
	doc := `
ruleset_id: r1
version: v1
templates:
  - id: casual-1
    occasion: casual
    anchor_slot: top
    required_slots: [top, bottom]
    dressiness_min: 1
    dressiness_max: 3
`
	rs, err := FromYAML([]byte(doc))
	if err != nil {
		t.Fatalf("FromYAML() error = %v", err)
	}
	if rs.AccessoryMode != AccessoryCoordinated {
		t.Errorf("AccessoryMode = %q, want the coordinated default", rs.AccessoryMode)
	}
	if rs.BeamWidth != 8 {
		t.Errorf("BeamWidth = %d, want default 8", rs.BeamWidth)
	}
	if rs.AnchorShortlistK != 40 || rs.SlotShortlistK != 20 {
		t.Errorf("shortlist sizes = %d/%d, want defaults 40/20", rs.AnchorShortlistK, rs.SlotShortlistK)
	}
	if rs.Weights != DefaultWeights() {
		t.Errorf("Weights = %+v, want DefaultWeights()", rs.Weights)
	}
}

func TestFromYAMLHonorsExplicitOverrides(t *testing.T) {
	doc := `
version: v1
accessory_mode: strict_family
beam_width: 12
templates:
  - id: casual-1
    occasion: casual
    anchor_slot: top
    required_slots: [top]
    dressiness_min: 1
    dressiness_max: 5
`
	rs, err := FromYAML([]byte(doc))
	if err != nil {
		t.Fatalf("FromYAML() error = %v", err)
	}
	if rs.AccessoryMode != AccessoryStrictFamily {
		t.Errorf("AccessoryMode = %q, want strict_family", rs.AccessoryMode)
	}
	if rs.BeamWidth != 12 {
		t.Errorf("BeamWidth = %d, want 12", rs.BeamWidth)
	}
}

func TestFromYAMLRejectsInvalidRuleSet(t *testing.T) {
	if _, err := FromYAML([]byte("version: v1\n")); err == nil {
		t.Error("FromYAML() error = nil, want an error for a ruleset with no templates")
	}
}

func TestFromYAMLRejectsMalformedYAML(t *testing.T) {
	if _, err := FromYAML([]byte("not: [valid yaml")); err == nil {
		t.Error("FromYAML() error = nil, want an error for malformed YAML")
	}
}
