package models

// Marker colors used when no rules file overrides them. These match the
// colors the radar renderer bakes into its legend.
const (
	DefaultMarkerColor   = "#ff7800"
	BIPMarkerColor       = "#ff00ff"
	EjectMarkerColor     = "#ffff00"
	GeneratorMarkerColor = "#00ffff"
)

// MarkerRules defines the marker color per seeding category. Loaded from an
// optional YAML rules file; categories without an entry fall back to
// DefaultColor.
type MarkerRules struct {
	DefaultColor string            `json:"defaultColor" yaml:"default_color"`
	Categories   map[string]string `json:"categories" yaml:"categories"`
}

// DefaultMarkerRules returns the built-in color scheme.
func DefaultMarkerRules() *MarkerRules {
	return &MarkerRules{
		DefaultColor: DefaultMarkerColor,
		Categories: map[string]string{
			string(CategoryBIP):       BIPMarkerColor,
			string(CategoryEject):     EjectMarkerColor,
			string(CategoryGenerator): GeneratorMarkerColor,
		},
	}
}

// ColorFor resolves the marker color for a category. Categories with no
// explicit color use DefaultColor; a nil or empty rule set uses the
// built-in scheme.
func (r *MarkerRules) ColorFor(cat SeedingCategory) string {
	if r == nil {
		r = DefaultMarkerRules()
	}
	if c, ok := r.Categories[string(cat)]; ok && c != "" {
		return c
	}
	if r.DefaultColor != "" {
		return r.DefaultColor
	}
	return DefaultMarkerColor
}
