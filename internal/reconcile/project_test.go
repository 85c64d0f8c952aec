package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/leadsync-cli/internal/model"
)

func intPtr(v int) *int { return &v }

func TestProjectRow_FullDossier(t *testing.T) {
	d := &model.Dossier{
		LeadID:          "lead-001",
		Name:            "Golden Maple Residence",
		Address:         "88 Finch Ave E",
		Phone:           "416-555-0199",
		City:            "Markham",
		ListingURL:      "https://listings.example.com/golden-maple",
		OverallPriority: intPtr(52),
		CapacityScore:   intPtr(70),
		SalesBrief:      "High fit. [a3f8b2c91d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a]",
		DecisionMakers: []any{
			map[string]any{"name": "Community Outreach Team"},
			map[string]any{"name": "Grace Lam", "title": "Director of Care", "email": "grace@goldenmaple.ca"},
			map[string]any{"name": "Wei Zhang", "title": "Administrator"},
		},
		TalkingPoints: []any{"Lead with delivery. [a3f8b2c91d4e5f6a7b8c9d0e1f2a3b4c5d6e7f8a]"},
		ChineseRepFit: &model.RepFit{
			IsCandidate: true,
			Confidence:  model.ConfidenceHigh,
			Reasons: []model.Reason{
				{"detail": "Grace Lam speaks Cantonese with residents"},
				{"detail": "The Community Outreach Team hosts Mandarin events"},
			},
		},
		LanguagesSupported: []string{"English", "Cantonese"},
	}

	row := ProjectRow(d)

	assert.Equal(t, "lead-001", row.LeadID)
	assert.Equal(t, "dossier_pipeline", row.Source)
	assert.Equal(t, "https://listings.example.com/golden-maple", row.Website)
	assert.Equal(t, 52, row.Score)
	assert.Equal(t, model.PriorityUrgent, row.Priority)
	assert.Equal(t, "High fit.", row.SalesBrief)
	assert.Equal(t, []any{"Lead with delivery."}, row.TalkingPoints)

	// Garbage decision maker filtered; first survivor becomes the contact.
	require.Len(t, row.DecisionMakers, 2)
	require.NotNil(t, row.ContactName)
	assert.Equal(t, "Grace Lam", *row.ContactName)
	require.NotNil(t, row.ContactRole)
	assert.Equal(t, "Director of Care", *row.ContactRole)
	require.NotNil(t, row.ContactEmail)
	assert.Equal(t, "grace@goldenmaple.ca", *row.ContactEmail)

	// Fit reassessed against the cleaned set: the outreach-team reason dies.
	assert.True(t, row.ChineseRepCandidate)
	assert.Equal(t, model.ConfidenceHigh, row.ChineseRepConfidence)
	require.Len(t, row.ChineseRepReasons, 1)

	assert.Nil(t, row.Lat)
	assert.Nil(t, row.Lon)
}

func TestProjectRow_EmptyCleanedSet(t *testing.T) {
	d := &model.Dossier{
		LeadID: "lead-002",
		Name:   "Sunrise Lodge",
		DecisionMakers: []any{
			map[string]any{"name": "Sunrise Lodge Care Team"},
		},
		ChineseRepFit: &model.RepFit{
			IsCandidate: true,
			Confidence:  model.ConfidenceMedium,
			Reasons:     []model.Reason{{"detail": "Sunrise Lodge Care Team speaks Mandarin"}},
		},
	}

	row := ProjectRow(d)

	assert.Empty(t, row.DecisionMakers)
	assert.Nil(t, row.ContactName)
	assert.Nil(t, row.ContactEmail)
	assert.Nil(t, row.ContactRole)

	// All evidence referenced a filtered contact: full downgrade.
	assert.False(t, row.ChineseRepCandidate)
	assert.Equal(t, model.ConfidenceNone, row.ChineseRepConfidence)
	assert.Empty(t, row.ChineseRepReasons)
}

func TestProjectRow_PriorityTiers(t *testing.T) {
	tests := []struct {
		score *int
		want  string
	}{
		{intPtr(55), model.PriorityUrgent},
		{intPtr(50), model.PriorityUrgent},
		{intPtr(45), model.PriorityHigh},
		{intPtr(40), model.PriorityHigh},
		{intPtr(33), model.PriorityMedium},
		{intPtr(29), model.PriorityLow},
		{intPtr(0), model.PriorityLow},
		{nil, model.PriorityMedium},
	}
	for _, tt := range tests {
		row := ProjectRow(&model.Dossier{OverallPriority: tt.score})
		assert.Equal(t, tt.want, row.Priority)
	}
}

func TestProjectRow_WebsiteFallsBackToListing(t *testing.T) {
	row := ProjectRow(&model.Dossier{Website: "https://a.example", ListingURL: "https://b.example"})
	assert.Equal(t, "https://a.example", row.Website)

	row = ProjectRow(&model.Dossier{ListingURL: "https://b.example"})
	assert.Equal(t, "https://b.example", row.Website)
}
