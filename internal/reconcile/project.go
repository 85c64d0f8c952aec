package reconcile

import "github.com/carebridge/leadsync-cli/internal/model"

// Source tag stamped on every projected row.
const Source = "dossier_pipeline"

// ProjectRow assembles the persisted lead row for a dossier: cleans the
// decision-maker set, reassesses the Chinese-rep fit against it, strips
// citations from free text, derives the priority tier, and promotes the
// first cleaned decision maker to primary contact. First is a stable
// tie-break by insertion order, not a quality judgment. Coordinates carry
// over when the dossier already has them; geocoding fills the rest later.
func ProjectRow(d *model.Dossier) *model.LeadRow {
	dms := CleanDecisionMakers(d.DecisionMakers)
	fit := ReassessFit(d.ChineseRepFit, dms)

	row := &model.LeadRow{
		LeadID:  d.LeadID,
		Name:    d.Name,
		Address: d.Address,
		Phone:   d.Phone,
		City:    d.City,
		Website: d.WebsiteOrListing(),
		Source:  Source,

		Score:                    scoreOrZero(d.OverallPriority),
		Priority:                 model.PriorityForScore(d.OverallPriority),
		OverallPriority:          d.OverallPriority,
		IndependenceScore:        d.IndependenceScore,
		ContactabilityScore:      d.ContactabilityScore,
		PharmaFitScore:           d.PharmaFitScore,
		PartnershipOpennessScore: d.PartnershipOpennessScore,
		CapacityScore:            d.CapacityScore,

		SalesBrief:          StripCitations(d.SalesBrief),
		DecisionMakers:      dms,
		ServicesOffered:     d.ServicesOffered,
		TalkingPoints:       CleanTalkingPoints(d.TalkingPoints),
		ResidentPopulations: d.ResidentPopulations,
		MedicationSignals:   d.MedicationSignals,
		Partnerships:        d.Partnerships,
		NextStep:            d.NextStep,

		LanguagesSupported:   d.LanguagesSupported,
		ChineseRepCandidate:  false,
		ChineseRepConfidence: model.ConfidenceNone,
		ChineseRepReasons:    []model.Reason{},

		Lat: d.Lat,
		Lon: d.Lon,
	}

	if fit != nil {
		row.ChineseRepCandidate = fit.IsCandidate
		if fit.Confidence != "" {
			row.ChineseRepConfidence = fit.Confidence
		}
		if fit.Reasons != nil {
			row.ChineseRepReasons = fit.Reasons
		}
	}

	if len(dms) > 0 {
		primary := dms[0]
		row.ContactName = nonEmpty(primary.Name())
		row.ContactEmail = nonEmpty(primary.Email())
		row.ContactRole = nonEmpty(primary.Title())
	}

	return row
}

func scoreOrZero(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
