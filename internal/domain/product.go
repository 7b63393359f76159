package domain

// Product represents a catalog product under evaluation.
// Product IDs are assigned monotonically by the catalog, so a higher ID
// doubles as a recency signal during ranking tie-breaks.
type Product struct {
	ID       int      `json:"productId"`
	Name     string   `json:"name"`
	Brand    string   `json:"brand,omitempty"`
	Category string   `json:"category,omitempty"`
	Price    float64  `json:"price,omitempty"`
	Tags     []string `json:"tags,omitempty"` // intent/marketing tags, not ingredient tags
}

// MedicationProfile describes the user's current medications.
// Codes may mix literal classification codes and GROUP: alias codes.
type MedicationProfile struct {
	Codes                []string `json:"codes"`
	PregnancyOrLactation bool     `json:"pregnancyOrLactation"`
}

// UsageContext describes how the recommended product will be used.
// All facets are supplied once per request and never change mid-evaluation.
type UsageContext struct {
	LeaveOn   bool `json:"leaveOn"`
	DayUse    bool `json:"dayUse"`
	Face      bool `json:"face"`
	LargeArea bool `json:"largeArea"`
}

// Facet keys rules may reference in their condition sets.
const (
	FacetLeaveOn   = "leave_on"
	FacetDayUse    = "day_use"
	FacetFace      = "face"
	FacetLargeArea = "large_area"
	FacetPregLact  = "preg_lact"
)

// KnownFacets lists every facet key a rule condition may use.
// Conditions referencing anything else are rejected at load time.
var KnownFacets = map[string]bool{
	FacetLeaveOn:   true,
	FacetDayUse:    true,
	FacetFace:      true,
	FacetLargeArea: true,
	FacetPregLact:  true,
}

// EvalContext flattens the usage context and medication flags into the
// facet map rule conditions are evaluated against. Built once per request.
func EvalContext(uc UsageContext, profile MedicationProfile) map[string]bool {
	return map[string]bool{
		FacetLeaveOn:   uc.LeaveOn,
		FacetDayUse:    uc.DayUse,
		FacetFace:      uc.Face,
		FacetLargeArea: uc.LargeArea,
		FacetPregLact:  profile.PregnancyOrLactation,
	}
}

// RankedProduct wraps a surviving product with its scores, assigned rank
// and generated recommendation reasons. Rank is 1-based and only valid
// once the whole batch has been sorted.
type RankedProduct struct {
	Product          Product   `json:"product"`
	Rank             int       `json:"rank"`
	FinalScore       float64   `json:"finalScore"`
	BaseScore        float64   `json:"baseScore"`
	PenaltyScore     float64   `json:"penaltyScore"`
	IntentMatchScore int       `json:"intentMatchScore"`
	BrandPreference  int       `json:"-"`
	CategoryMatch    int       `json:"-"`
	Reasons          []string  `json:"reasons"`
	RuleHits         []RuleHit `json:"ruleHits,omitempty"`
}
