// Package registry is the attribute registry (§4.2): a static, immutable
// declaration of which item fields are applicable to which garment role,
// plus the ingress validator that checks items against it. Mirrors the
// teacher's static role-constant + validation style
// (internal/colour/categorisation.go's ColourRole catalogue and its
// companion validate-on-ingress helpers).
package registry

import (
	"fmt"
	"sort"

	"github.com/outfitforge/bundleengine/internal/model"
)

// Field names used by RoleSpec.Applicable and Item.FieldConfidence keys.
const (
	FieldColor             = "color"
	FieldPattern            = "pattern"
	FieldPatternScale       = "pattern_scale"
	FieldMaterial           = "material"
	FieldFitProfile         = "fit_profile"
	FieldTopLengthClass     = "top_length_class"
	FieldBottomRiseClass    = "bottom_rise_class"
	FieldShoulderStructure  = "shoulder_structure"
	FieldGroup              = "group_id"
	FieldLeatherFamily      = "leather_family"
	FieldMetalFamily        = "metal_family"
	FieldMetalFinish        = "metal_finish"
	FieldBagKind            = "bag_kind"
	FieldJewelryKind        = "jewelry_kind"
	FieldFootwearClass      = "footwear_class"
	FieldBeltLoops          = "belt_loops"
)

// RoleSpec declares a role's slot class and the set of optional fields it
// may carry (core fields — formality, seasonality — are applicable to every
// role and are not listed).
type RoleSpec struct {
	Slot        model.Slot
	Applicable  map[string]bool
}

// Registry is a static, process-lifetime-immutable set of role declarations.
type Registry struct {
	roles map[model.Role]RoleSpec
	tags  map[string]bool
}

// Violation is a single ingress validation failure.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// New builds the default registry covering the roles named in §3's
// examples (shirt, trousers, dress, jacket, bag, shoes, ...) plus the tag
// vocabulary style tags are validated against. Callers that need a
// domain-specific taxonomy build their own Registry with NewEmpty and
// Declare — the engine never hard-codes roles beyond this default set.
func New() *Registry {
	r := NewEmpty()

	fullApparel := map[string]bool{
		FieldColor: true, FieldPattern: true, FieldPatternScale: true,
		FieldMaterial: true, FieldFitProfile: true, FieldShoulderStructure: true,
		FieldGroup: true,
	}

	r.Declare("shirt", model.SlotTop, merge(fullApparel, map[string]bool{FieldTopLengthClass: true}))
	r.Declare("t_shirt", model.SlotTop, merge(fullApparel, map[string]bool{FieldTopLengthClass: true}))
	r.Declare("knit_top", model.SlotTop, merge(fullApparel, map[string]bool{FieldTopLengthClass: true}))
	r.Declare("sweater", model.SlotMid, fullApparel)
	r.Declare("cardigan", model.SlotMid, fullApparel)
	r.Declare("waistcoat", model.SlotMid, fullApparel)
	r.Declare("jacket", model.SlotOuter, fullApparel)
	r.Declare("coat", model.SlotOuter, fullApparel)
	r.Declare("blazer", model.SlotOuter, fullApparel)
	r.Declare("trousers", model.SlotBottom, merge(fullApparel, map[string]bool{FieldBottomRiseClass: true, FieldBeltLoops: true}))
	r.Declare("jeans", model.SlotBottom, merge(fullApparel, map[string]bool{FieldBottomRiseClass: true, FieldBeltLoops: true}))
	r.Declare("skirt", model.SlotBottom, merge(fullApparel, map[string]bool{FieldBottomRiseClass: true}))
	r.Declare("shorts", model.SlotBottom, merge(fullApparel, map[string]bool{FieldBottomRiseClass: true, FieldBeltLoops: true}))
	r.Declare("dress", model.SlotOnePiece, fullApparel)
	r.Declare("jumpsuit", model.SlotOnePiece, fullApparel)
	r.Declare("shoes", model.SlotFootwear, map[string]bool{FieldColor: true, FieldMaterial: true, FieldLeatherFamily: true, FieldFootwearClass: true})
	r.Declare("boots", model.SlotFootwear, map[string]bool{FieldColor: true, FieldMaterial: true, FieldLeatherFamily: true, FieldFootwearClass: true})
	r.Declare("bag", model.SlotBag, map[string]bool{FieldColor: true, FieldMaterial: true, FieldLeatherFamily: true, FieldBagKind: true})
	r.Declare("belt", model.SlotBelt, map[string]bool{FieldColor: true, FieldMaterial: true, FieldLeatherFamily: true})
	r.Declare("necklace", model.SlotJewelry, map[string]bool{FieldColor: true, FieldMetalFamily: true, FieldMetalFinish: true, FieldJewelryKind: true})
	r.Declare("watch", model.SlotJewelry, map[string]bool{FieldColor: true, FieldMetalFamily: true, FieldMetalFinish: true, FieldJewelryKind: true})
	r.Declare("hat", model.SlotHeadwear, map[string]bool{FieldColor: true, FieldMaterial: true})
	r.Declare("tights", model.SlotHosiery, map[string]bool{FieldColor: true, FieldPattern: true, FieldMaterial: true})
	r.Declare("socks", model.SlotHosiery, map[string]bool{FieldColor: true, FieldPattern: true, FieldMaterial: true})

	for _, tag := range []string{
		"minimal", "classic", "sporty", "romantic", "edgy", "preppy",
		"bohemian", "streetwear", "business", "glam",
	} {
		r.tags[tag] = true
	}

	return r
}

// NewEmpty builds a registry with no declared roles, for callers that want
// to assemble a bespoke taxonomy.
func NewEmpty() *Registry {
	return &Registry{roles: make(map[model.Role]RoleSpec), tags: make(map[string]bool)}
}

// Declare registers a role's slot and applicable-field set. Not safe to call
// concurrently with Validate/ApplicableFields — callers build the registry
// once at startup before handing it to request handlers (snapshot
// semantics, §9).
func (r *Registry) Declare(role model.Role, slot model.Slot, applicable map[string]bool) {
	r.roles[role] = RoleSpec{Slot: slot, Applicable: applicable}
}

// DeclareTag adds a style tag to the registry's known vocabulary.
func (r *Registry) DeclareTag(tag string) {
	r.tags[tag] = true
}

// RoleSpec returns the declared spec for role, or false if undeclared.
func (r *Registry) RoleSpec(role model.Role) (RoleSpec, bool) {
	spec, ok := r.roles[role]
	return spec, ok
}

// ApplicableFields returns the sorted set of optional fields declared for role.
func (r *Registry) ApplicableFields(role model.Role) []string {
	spec, ok := r.roles[role]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(spec.Applicable))
	for f := range spec.Applicable {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// KnownTag reports whether tag is part of the registry's declared vocabulary.
func (r *Registry) KnownTag(tag string) bool {
	return r.tags[tag]
}

// Validate checks an item against the registry: its role must be declared,
// its slot must match the declared slot, and any populated optional field
// must be in the role's applicable set. Violations are ingress errors —
// once an item passes Validate the rest of the engine assumes it is valid
// (§4.2).
func (r *Registry) Validate(it model.Item) []Violation {
	var violations []Violation

	spec, ok := r.roles[it.Role]
	if !ok {
		return []Violation{{Field: "role", Reason: fmt.Sprintf("role %q is not declared in the registry", it.Role)}}
	}
	if it.Slot != spec.Slot {
		violations = append(violations, Violation{Field: "slot", Reason: fmt.Sprintf("role %q belongs to slot %q, item has %q", it.Role, spec.Slot, it.Slot)})
	}
	if it.Formality < 1 || it.Formality > 5 {
		violations = append(violations, Violation{Field: "formality", Reason: "must be in 1..5"})
	}
	if len(it.Seasonality) == 0 {
		violations = append(violations, Violation{Field: "seasonality", Reason: "must be non-empty"})
	}
	if it.Color != nil {
		if err := it.Color.Validate(); err != nil {
			violations = append(violations, Violation{Field: "color", Reason: err.Error()})
		}
	}

	checkApplicable := func(field string, present bool) {
		if present && !spec.Applicable[field] {
			violations = append(violations, Violation{Field: field, Reason: fmt.Sprintf("field not applicable to role %q", it.Role)})
		}
	}
	checkApplicable(FieldColor, it.Color != nil)
	checkApplicable(FieldPattern, it.Pattern != "")
	checkApplicable(FieldPatternScale, it.PatternScale != "")
	checkApplicable(FieldMaterial, it.Material != "")
	checkApplicable(FieldFitProfile, it.FitProfile != "")
	checkApplicable(FieldTopLengthClass, it.TopLengthClass != "")
	checkApplicable(FieldBottomRiseClass, it.BottomRiseClass != "")
	checkApplicable(FieldShoulderStructure, it.ShoulderStructure != "")
	checkApplicable(FieldGroup, it.GroupID != "")
	checkApplicable(FieldLeatherFamily, it.LeatherFamily != "")
	checkApplicable(FieldMetalFamily, it.MetalFamily != "")
	checkApplicable(FieldMetalFinish, it.MetalFinish != "")
	checkApplicable(FieldBagKind, it.BagKind != "")
	checkApplicable(FieldJewelryKind, it.JewelryKind != "")
	checkApplicable(FieldFootwearClass, it.FootwearClass != "")
	checkApplicable(FieldBeltLoops, it.BeltLoops)

	if it.GroupID != "" {
		if it.SetRole == "" || it.CoordSetKind == "" || it.SetCohesionPolicy == "" {
			violations = append(violations, Violation{
				Field:  "group_id",
				Reason: "group_id set but set_role/coord_set_kind/set_cohesion_policy not all set",
			})
		}
	}

	return violations
}

func merge(base map[string]bool, extra map[string]bool) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
