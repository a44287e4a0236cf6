// Package schema defines the canonical column set for the Pittsburgh street
// tree dataset, the categorical domains attached to it, and the per-question
// feature manifests used by the trainers.
package schema

// Canonical column names. Every stage downstream of the normalizer refers to
// columns by these names only.
const (
	ColID            = "id"
	ColAddressNumber = "address_number"
	ColStreet        = "street"

	ColNeighborhood = "neighborhood"
	ColWard         = "ward"
	ColTract        = "tract"
	ColFireZone     = "fire_zone"
	ColPoliceZone   = "police_zone"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"

	ColCommonName     = "common_name"
	ColScientificName = "scientific_name"

	ColHeight            = "height"
	ColWidth             = "width"
	ColDiameterBase      = "diameter_base_height"
	ColStems             = "stems"
	ColGrowthSpaceLength = "growth_space_length"
	ColGrowthSpaceWidth  = "growth_space_width"

	ColGrowthSpaceType = "growth_space_type"
	ColOverheadUtil    = "overhead_utilities"
	ColLandUse         = "land_use"
	ColCondition       = "condition"

	ColStormwaterBenefits   = "stormwater_benefits"
	ColStormwaterElim       = "stormwater_elimination"
	ColPropertyBenefits     = "property_value_benefits"
	ColEnergyElectricity    = "energy_benefits_electricity"
	ColEnergyGas            = "energy_benefits_gas"
	ColTotalEnergyBenefits  = "total_energy_benefits"
	ColAirO3Benefits        = "air_o3_benefits"
	ColAirNOxBenefits       = "air_nox_benefits"
	ColAirPM10Benefits      = "air_pm10_benefits"
	ColAirSOxBenefits       = "air_sox_benefits"
	ColAirVOCBenefits       = "air_voc_benefits"
	ColTotalAirBenefits     = "total_air_benefits"
	ColCO2Benefits          = "co2_benefits"
	ColCO2Sequestered       = "co2_sequestered"
	ColOverallBenefits      = "overall_benefits"

	// Derived by the cleaning stage.
	ColGrowthSpaceArea = "growth_space_area"
	ColOverheadNumeric = "overhead_numeric"
)

// rawDroppedColumn is the WPRDC export's internal map identifier. It carries
// no analytical meaning and is removed during normalization.
const rawDroppedColumn = "tree_map_id"

// RenameMap maps raw WPRDC export labels to canonical names. Raw columns not
// listed here (and not dropped) pass through the normalizer unchanged.
var RenameMap = map[string]string{
	"diameter_base_height_in":                ColDiameterBase,
	"growth_space_length_ft":                 ColGrowthSpaceLength,
	"growth_space_width_ft":                  ColGrowthSpaceWidth,
	"stormwater_benefits_dollar_value":       ColStormwaterBenefits,
	"stormwater_benefits_runoff_elimination": ColStormwaterElim,
	"property_value_benefits_dollarvalue":    ColPropertyBenefits,
	"energy_benefits_electricity_dollar_value": ColEnergyElectricity,
	"energy_benefits_gas_dollar_value":         ColEnergyGas,
	"total_energy_benefits_dollar_value":       ColTotalEnergyBenefits,
	"air_quality_benfits_o3dep_dollar_value":   ColAirO3Benefits,
	"air_quality_benfits_noxdep_dollar_value":  ColAirNOxBenefits,
	"air_quality_benfits_pm10depdollar_value":  ColAirPM10Benefits,
	"air_quality_benfits_so2dep_dollar_value":  ColAirSOxBenefits,
	"air_quality_benfits_vocavd_dollar_value":  ColAirVOCBenefits,
	"air_quality_benfits_total_dollar_value":   ColTotalAirBenefits,
	"co2_benefits_dollar_value":                ColCO2Benefits,
	"co2_benefits_sequestered_lbs":             ColCO2Sequestered,
	"overall_benefits_dollar_value":            ColOverallBenefits,
}

// Column groups referenced by the feature manifests. These are inclusion
// lists by name, never name-pattern matches.

// IdentityColumns identify an individual tree and are excluded from every
// model.
var IdentityColumns = []string{ColID, ColAddressNumber, ColStreet}

// GeoColumns locate a tree within the city and are excluded from every model.
var GeoColumns = []string{
	ColNeighborhood, ColWard, ColTract, ColFireZone, ColPoliceZone,
	ColLatitude, ColLongitude,
}

// TaxonomyColumns name the species.
var TaxonomyColumns = []string{ColCommonName, ColScientificName}

// PhysicalColumns measure the tree and its growth space.
var PhysicalColumns = []string{
	ColHeight, ColWidth, ColDiameterBase, ColStems,
	ColGrowthSpaceLength, ColGrowthSpaceWidth, ColGrowthSpaceArea,
}

// ContextColumns are the categorical condition/context fields.
var ContextColumns = []string{
	ColGrowthSpaceType, ColOverheadUtil, ColLandUse, ColCondition,
}

// BenefitColumns are the modeled dollar/physical benefit measures.
var BenefitColumns = []string{
	ColStormwaterBenefits, ColStormwaterElim, ColPropertyBenefits,
	ColEnergyElectricity, ColEnergyGas, ColTotalEnergyBenefits,
	ColAirO3Benefits, ColAirNOxBenefits, ColAirPM10Benefits,
	ColAirSOxBenefits, ColAirVOCBenefits, ColTotalAirBenefits,
	ColCO2Benefits, ColCO2Sequestered, ColOverallBenefits,
}

// NumericColumns are the columns the loader must parse as floats.
var NumericColumns = func() []string {
	cols := []string{
		ColLatitude, ColLongitude,
		ColHeight, ColWidth, ColDiameterBase, ColStems,
		ColGrowthSpaceLength, ColGrowthSpaceWidth,
	}
	return append(cols, BenefitColumns...)
}()

// CategoricalColumns are the string-typed columns carried through cleaning.
var CategoricalColumns = func() []string {
	cols := []string{ColStreet, ColCommonName, ColScientificName}
	cols = append(cols, GeoColumns[:5]...) // neighborhood..police_zone
	return append(cols, ContextColumns...)
}()

// RequiredColumns must all exist after normalization; a missing one is a
// schema mismatch and aborts the run.
var RequiredColumns = func() []string {
	var cols []string
	cols = append(cols, IdentityColumns...)
	cols = append(cols, GeoColumns...)
	cols = append(cols, TaxonomyColumns...)
	cols = append(cols,
		ColHeight, ColWidth, ColDiameterBase, ColStems,
		ColGrowthSpaceLength, ColGrowthSpaceWidth,
	)
	cols = append(cols, ContextColumns...)
	return append(cols, BenefitColumns...)
}()

// DroppedColumns are raw columns removed during normalization.
var DroppedColumns = []string{rawDroppedColumn}
