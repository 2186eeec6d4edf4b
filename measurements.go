package regs

import "fmt"

// Measurements maps a measurement group to its named fields. A nil value
// means "no value", which is distinct from zero.
type Measurements map[string]map[string]*float64

// MeasurementGroup is one named group of fields in a category schema.
type MeasurementGroup struct {
	Name   string
	Fields []string
}

var schemas = map[Category][]MeasurementGroup{
	CategoryClothes: {
		{Name: "headAndNeck", Fields: []string{"headCircumference", "neckCircumference", "neckHeight"}},
		{Name: "upperTorso", Fields: []string{"shoulderWidth", "chestWidth", "shoulderLength", "bustCircumference", "underbustCircumference", "bustSpan", "bustHeight"}},
		{Name: "midTorso", Fields: []string{"waistCircumference", "frontWaistLength", "backWaistLength", "sideSeamLength"}},
		{Name: "arms", Fields: []string{"armholeCircumference", "sleeveLength", "elbowLength", "bicepCircumference", "elbowCircumference", "wristCircumference", "handCircumference"}},
		{Name: "hipsAndPelvis", Fields: []string{"highHipCircumference", "lowHipCircumference", "hipHeight", "totalCrotchLength", "seatedCrotchDepth"}},
		{Name: "legs", Fields: []string{"outseam", "inseam", "thighCircumference", "kneeCircumference", "kneeHeight", "calfCircumference", "ankleCircumference"}},
		{Name: "feet", Fields: []string{"footLength", "footWidth", "instepCircumference"}},
	},
	CategoryCurtains: {
		{Name: "dimensions", Fields: []string{"width", "height", "dropLength"}},
		{Name: "details", Fields: []string{"headerType", "hemAllowance", "sideHemAllowance", "fullness", "numberOfPanels"}},
		{Name: "hardware", Fields: []string{"rodWidth", "rodHeight", "bracketProjection"}},
	},
	CategoryOthers: {
		{Name: "general", Fields: []string{"length", "width", "height", "depth", "circumference", "diameter"}},
		{Name: "custom", Fields: []string{"measurement1", "measurement2", "measurement3", "measurement4", "measurement5"}},
	},
}

// Schema returns the ordered measurement groups for a category.
// Unknown categories fall back to the Others schema.
func Schema(c Category) []MeasurementGroup {
	if s, ok := schemas[c]; ok {
		return s
	}
	return schemas[CategoryOthers]
}

// EmptyMeasurements returns the full schema for c with every field unset.
func EmptyMeasurements(c Category) Measurements {
	m := make(Measurements)
	for _, g := range Schema(c) {
		fields := make(map[string]*float64, len(g.Fields))
		for _, f := range g.Fields {
			fields[f] = nil
		}
		m[g.Name] = fields
	}
	return m
}

// Conform projects m onto the schema of c: every schema field is present,
// stored values are kept, and keys outside the schema are dropped.
func (m Measurements) Conform(c Category) Measurements {
	out := EmptyMeasurements(c)
	for group, fields := range out {
		stored := m[group]
		for f := range fields {
			if v, ok := stored[f]; ok && v != nil {
				val := *v
				fields[f] = &val
			}
		}
	}
	return out
}

// Compact returns a copy holding only fields with a value. Remote documents
// are written in this form.
func (m Measurements) Compact() Measurements {
	out := make(Measurements, len(m))
	for group, fields := range m {
		kept := make(map[string]*float64)
		for f, v := range fields {
			if v != nil {
				val := *v
				kept[f] = &val
			}
		}
		out[group] = kept
	}
	return out
}

// Validate checks that every key in m belongs to the schema of c.
func (m Measurements) Validate(c Category) error {
	known := make(map[string]map[string]bool)
	for _, g := range Schema(c) {
		fields := make(map[string]bool, len(g.Fields))
		for _, f := range g.Fields {
			fields[f] = true
		}
		known[g.Name] = fields
	}
	for group, fields := range m {
		kf, ok := known[group]
		if !ok {
			return fmt.Errorf("%w: group %q for %s", ErrUnknownMeasurement, group, c)
		}
		for f := range fields {
			if !kf[f] {
				return fmt.Errorf("%w: %s.%s for %s", ErrUnknownMeasurement, group, f, c)
			}
		}
	}
	return nil
}

// Filled returns the names of groups holding at least one value, in schema order.
func (m Measurements) Filled(c Category) []string {
	var out []string
	for _, g := range Schema(c) {
		for _, f := range g.Fields {
			if v := m[g.Name][f]; v != nil {
				out = append(out, g.Name)
				break
			}
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m Measurements) Clone() Measurements {
	if m == nil {
		return nil
	}
	out := make(Measurements, len(m))
	for group, fields := range m {
		cp := make(map[string]*float64, len(fields))
		for f, v := range fields {
			if v != nil {
				val := *v
				cp[f] = &val
			} else {
				cp[f] = nil
			}
		}
		out[group] = cp
	}
	return out
}

// Float returns a pointer to v, for building measurement values.
func Float(v float64) *float64 { return &v }
