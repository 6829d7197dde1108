package model

import "github.com/outfitforge/bundleengine/internal/color"

// Guardrails declares tags a profile always wants or never wants.
type Guardrails struct {
	Forbidden []string `json:"forbidden,omitempty"`
	Preferred []string `json:"preferred,omitempty"`
}

// AppearanceSignature carries optional skin-tone data for SkinSynergy.
// Present is false when the user has not declared this signature; in that
// case dependent scoring components fall back to a neutral 0.5 (§3, §8 P5).
type AppearanceSignature struct {
	Present        bool       `json:"present"`
	SkinLCh        color.LCh  `json:"skin_lch"`
	Undertone      string     `json:"undertone,omitempty"` // warm | cool | neutral
	SynergyStyle   string     `json:"synergy_style,omitempty"` // contrast | harmonize | auto
}

// BodySignature carries optional body-proportion data for ProportionFit.
type BodySignature struct {
	Present bool     `json:"present"`
	Traits  []string `json:"traits,omitempty"` // e.g. "long_torso", "petite"
}

// Profile is the user's styling profile (§3).
type Profile struct {
	UserID             string               `json:"user_id"`
	BaselineDressiness int                  `json:"baseline_dressiness"` // 1..5
	DefaultOccasion    string               `json:"default_occasion"`
	StyleSignature     []string             `json:"style_signature,omitempty"`
	Guardrails         Guardrails           `json:"guardrails"`
	Appearance         AppearanceSignature  `json:"appearance_signature"`
	Body               BodySignature        `json:"body_signature"`
}

// Context is the occasion context for a single generate/replace request (§3).
type Context struct {
	Occasion         string   `json:"occasion"`
	TargetDressiness int      `json:"target_dressiness"` // overrides profile baseline
	TemperatureBand  Season   `json:"temperature_band"`
	EventTags        []string `json:"event_tags,omitempty"`
}

// EffectiveDressiness returns the context's target if set, else the
// profile's baseline.
func (c Context) EffectiveDressiness(p Profile) int {
	if c.TargetDressiness > 0 {
		return c.TargetDressiness
	}
	return p.BaselineDressiness
}
