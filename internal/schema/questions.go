package schema

// Task distinguishes regression from classification questions.
type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
)

// RowRestriction limits a question to rows whose column value is in Keep,
// then collapses kept labels through the Collapse map.
type RowRestriction struct {
	Column   string
	Keep     []string
	Collapse map[string]string
}

// Question declares one research question: its target, its explicit feature
// manifest, and (for classifiers) the target domain and designated positive
// class. Features are inclusion lists — adding a column to the schema never
// silently enters a model.
type Question struct {
	ID            string
	Task          Task
	Target        string
	Features      []string
	TargetDomain  *Domain
	PositiveClass string
	Restrict      *RowRestriction
}

// IsClassification reports whether the question trains a classifier.
func (q Question) IsClassification() bool { return q.Task == TaskClassification }

// modelingPool is every column any question may draw features from:
// taxonomy, physical measurements, condition/context categoricals, benefit
// measures, and the derived overhead indicator. Identity and geography are
// never in the pool.
func modelingPool() []string {
	var cols []string
	cols = append(cols, TaxonomyColumns...)
	cols = append(cols, PhysicalColumns...)
	cols = append(cols, ContextColumns...)
	cols = append(cols, BenefitColumns...)
	return append(cols, ColOverheadNumeric)
}

func without(cols []string, drop ...string) []string {
	dropped := make(map[string]bool, len(drop))
	for _, d := range drop {
		dropped[d] = true
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !dropped[c] {
			out = append(out, c)
		}
	}
	return out
}

// Questions returns the four research questions of the analysis in run
// order. Each is independent; training one never touches another.
func Questions() []Question {
	overheadDomain := NewDomain(ColOverheadNumeric, []string{"0", "1"})
	landUseDomain := LandUseDomain()

	return []Question{
		{
			ID:     "stormwater",
			Task:   TaskRegression,
			Target: ColStormwaterElim,
			// stormwater_benefits is priced directly from the gallons
			// eliminated, so it leaks the target and is excluded.
			Features: without(modelingPool(), ColStormwaterElim, ColStormwaterBenefits),
		},
		{
			ID:     "air",
			Task:   TaskRegression,
			Target: ColTotalAirBenefits,
			// The per-pollutant deposits and the CO2 measures sum into the
			// target; all are excluded to avoid leakage from components of
			// the same aggregate.
			Features: without(modelingPool(),
				ColTotalAirBenefits,
				ColAirO3Benefits, ColAirNOxBenefits, ColAirPM10Benefits,
				ColAirSOxBenefits, ColAirVOCBenefits,
				ColCO2Benefits, ColCO2Sequestered,
			),
		},
		{
			ID:            "overhead",
			Task:          TaskClassification,
			Target:        ColOverheadNumeric,
			Features:      without(modelingPool(), ColOverheadNumeric, ColOverheadUtil),
			TargetDomain:  &overheadDomain,
			PositiveClass: "1",
		},
		{
			ID:            "landuse",
			Task:          TaskClassification,
			Target:        ColLandUse,
			Features:      without(modelingPool(), ColLandUse),
			TargetDomain:  &landUseDomain,
			PositiveClass: "Residential",
			Restrict: &RowRestriction{
				Column:   ColLandUse,
				Keep:     []string{"Residential", "Commercial/Industrial"},
				Collapse: map[string]string{"Commercial/Industrial": "Industrial"},
			},
		},
	}
}

// QuestionByID looks up a declared question.
func QuestionByID(id string) (Question, bool) {
	for _, q := range Questions() {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
