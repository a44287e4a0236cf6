package schema

import "github.com/rotisserie/eris"

// Domain is a closed categorical enumeration carrying its canonical level
// order. The same Domain instance (serialized inside a model artifact) is
// used at fit time and prediction time, so level codes can never drift
// between the two.
type Domain struct {
	Name    string
	Levels  []string
	Ordered bool
}

// ErrLevelMismatch reports a categorical value outside a domain's level set.
// Predictions on unseen levels would be silently wrong, so this surfaces as
// an error instead of being coerced.
var ErrLevelMismatch = eris.New("categorical level outside domain")

// NewDomain builds an unordered domain over the given levels.
func NewDomain(name string, levels []string) Domain {
	return Domain{Name: name, Levels: append([]string(nil), levels...)}
}

// NewOrderedDomain builds a domain whose level order is meaningful
// (worst-to-best or smallest-to-largest as listed).
func NewOrderedDomain(name string, levels []string) Domain {
	d := NewDomain(name, levels)
	d.Ordered = true
	return d
}

// Index returns the code of a level within the domain's canonical order.
func (d Domain) Index(level string) (int, bool) {
	for i, l := range d.Levels {
		if l == level {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether the level belongs to the domain.
func (d Domain) Contains(level string) bool {
	_, ok := d.Index(level)
	return ok
}

// Code returns the numeric code for a level, or ErrLevelMismatch if the
// level is not part of the domain.
func (d Domain) Code(level string) (float64, error) {
	i, ok := d.Index(level)
	if !ok {
		return 0, eris.Wrapf(ErrLevelMismatch, "schema: %q not in domain %s", level, d.Name)
	}
	return float64(i), nil
}

// Level returns the label for a code produced by Code.
func (d Domain) Level(code int) (string, error) {
	if code < 0 || code >= len(d.Levels) {
		return "", eris.Wrapf(ErrLevelMismatch, "schema: code %d outside domain %s", code, d.Name)
	}
	return d.Levels[code], nil
}

// ConditionLevels is the fixed ordinal leveling for the condition field,
// listed best-first to match the source survey's rating scale.
var ConditionLevels = []string{
	"Excellent", "Very Good", "Good", "Fair", "Poor", "Critical", "Dead",
}

// ConditionDomain is the ordinal domain imposed on the condition column
// during cleaning.
func ConditionDomain() Domain {
	return NewOrderedDomain(ColCondition, ConditionLevels)
}

// OverheadDomain is the post-recode domain of overhead_utilities.
func OverheadDomain() Domain {
	return NewDomain(ColOverheadUtil, []string{"No", "Yes"})
}

// LandUseDomain is the two-class domain of the land-use classifier after the
// Commercial/Industrial collapse.
func LandUseDomain() Domain {
	return NewDomain(ColLandUse, []string{"Residential", "Industrial"})
}

// GrowthSpaceRecode maps legacy growth-space labels to canonical ones.
// Labels absent from the map pass through unchanged.
var GrowthSpaceRecode = map[string]string{
	"Well or Pit":           "Well/Pit",
	"Open or Unrestricted":  "Open",
	"Open or Restricted":    "Restricted",
	"Tree Lawn or Parkway":  "Tree Lawn",
	"Raised Planter Box":    "Planter",
	"Planting Strip":        "Tree Lawn",
}

// OverheadRecode folds conflicting-utility trees into the Yes class.
var OverheadRecode = map[string]string{
	"Conflicting": "Yes",
}
