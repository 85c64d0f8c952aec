package model

// Confidence grades the Chinese-rep classification evidence.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Priority tiers derived from the overall priority score.
const (
	PriorityUrgent = "urgent"
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityForScore maps an overall priority score to a tier.
// A missing score is treated as medium, not low.
func PriorityForScore(score *int) string {
	if score == nil {
		return PriorityMedium
	}
	switch {
	case *score >= 50:
		return PriorityUrgent
	case *score >= 40:
		return PriorityHigh
	case *score >= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// DecisionMaker is one candidate contact from a dossier. Dossiers are LLM
// output, so entries carry arbitrary extra keys that must survive the
// round trip to storage untouched.
type DecisionMaker map[string]any

func (d DecisionMaker) stringField(key string) string {
	s, _ := d[key].(string)
	return s
}

// Name returns the contact's name, or "" when absent or non-string.
func (d DecisionMaker) Name() string { return d.stringField("name") }

// Title returns the contact's role/title.
func (d DecisionMaker) Title() string { return d.stringField("title") }

// Email returns the contact's email address.
func (d DecisionMaker) Email() string { return d.stringField("email") }

// Reason is one piece of supporting evidence on a RepFit.
type Reason map[string]any

// Detail returns the free-text evidence, or "" when absent or non-string.
func (r Reason) Detail() string {
	s, _ := r["detail"].(string)
	return s
}

// RepFit is the Chinese-rep classification attached to a dossier: whether
// the facility has a staff member matching the criterion, and why.
type RepFit struct {
	IsCandidate bool       `json:"is_candidate"`
	Confidence  Confidence `json:"confidence"`
	Reasons     []Reason   `json:"reasons"`
}

// Dossier is the raw enrichment record for one facility, as produced
// upstream. It is read-only input to the reconciliation layer; list fields
// are loosely typed because the upstream LLM occasionally emits malformed
// entries.
type Dossier struct {
	LeadID     string `json:"lead_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Website    string `json:"website"`
	ListingURL string `json:"listing_url"`

	OverallPriority          *int `json:"overall_priority"`
	IndependenceScore        *int `json:"independence_score"`
	ContactabilityScore      *int `json:"contactability_score"`
	PharmaFitScore           *int `json:"pharma_fit_score"`
	PartnershipOpennessScore *int `json:"partnership_openness_score"`
	CapacityScore            *int `json:"capacity_score"`

	SalesBrief     string  `json:"sales_brief"`
	DecisionMakers []any   `json:"decision_makers"`
	TalkingPoints  []any   `json:"talking_points"`
	ChineseRepFit  *RepFit `json:"chinese_rep_fit"`

	ServicesOffered     []string       `json:"services_offered"`
	ResidentPopulations []string       `json:"resident_populations"`
	MedicationSignals   []string       `json:"medication_management_signals"`
	Partnerships        []string       `json:"partnerships_and_affiliations"`
	LanguagesSupported  []string       `json:"languages_supported"`
	NextStep            map[string]any `json:"next_step"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// WebsiteOrListing returns the website, falling back to the listing URL.
func (d *Dossier) WebsiteOrListing() string {
	if d.Website != "" {
		return d.Website
	}
	return d.ListingURL
}

// LeadRow is the persisted, queryable representation of a dossier.
// List and object fields are stored as embedded structured data.
type LeadRow struct {
	ID     int64  `json:"id,omitempty"`
	LeadID string `json:"lead_id"`

	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	Website string `json:"website"`
	Source  string `json:"source"`

	Score                    int    `json:"score"`
	Priority                 string `json:"priority"`
	OverallPriority          *int   `json:"overall_priority"`
	IndependenceScore        *int   `json:"independence_score"`
	ContactabilityScore      *int   `json:"contactability_score"`
	PharmaFitScore           *int   `json:"pharma_fit_score"`
	PartnershipOpennessScore *int   `json:"partnership_openness_score"`
	CapacityScore            *int   `json:"capacity_score"`

	SalesBrief          string          `json:"sales_brief"`
	DecisionMakers      []DecisionMaker `json:"decision_makers"`
	ServicesOffered     []string        `json:"services_offered"`
	TalkingPoints       []any           `json:"talking_points"`
	ResidentPopulations []string        `json:"resident_populations"`
	MedicationSignals   []string        `json:"medication_signals"`
	Partnerships        []string        `json:"partnerships"`
	NextStep            map[string]any  `json:"next_step"`

	ContactName  *string `json:"contact_name"`
	ContactEmail *string `json:"contact_email"`
	ContactRole  *string `json:"contact_role"`

	LanguagesSupported   []string   `json:"languages_supported"`
	ChineseRepCandidate  bool       `json:"chinese_rep_candidate"`
	ChineseRepConfidence Confidence `json:"chinese_rep_confidence"`
	ChineseRepReasons    []Reason   `json:"chinese_rep_reasons"`

	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// HasCoordinates reports whether both coordinates are present.
func (r *LeadRow) HasCoordinates() bool {
	return r.Lat != nil && r.Lon != nil
}

// CurrentContact returns the contact name, or "" when cleared.
func (r *LeadRow) CurrentContact() string {
	if r.ContactName == nil {
		return ""
	}
	return *r.ContactName
}
