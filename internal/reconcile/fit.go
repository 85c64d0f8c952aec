package reconcile

import (
	"strings"

	"github.com/carebridge/leadsync-cli/internal/model"
)

// ReassessFit re-derives the Chinese-rep classification strictly from the
// cleaned decision-maker set. Reasons that reference a filtered-out name
// are dropped; if no reason survives, the classification is downgraded
// entirely rather than kept on partial evidence. Non-candidates are never
// promoted and pass through unchanged.
func ReassessFit(fit *model.RepFit, cleaned []model.DecisionMaker) *model.RepFit {
	if fit == nil || !fit.IsCandidate {
		return fit
	}

	names := make([]string, 0, len(cleaned))
	for _, dm := range cleaned {
		if n := FoldName(dm.Name()); n != "" {
			names = append(names, n)
		}
	}

	var retained []model.Reason
	for _, reason := range fit.Reasons {
		detail := FoldName(reason.Detail())
		for _, name := range names {
			if strings.Contains(detail, name) {
				retained = append(retained, reason)
				break
			}
		}
	}

	if len(retained) == 0 {
		return &model.RepFit{
			IsCandidate: false,
			Confidence:  model.ConfidenceNone,
			Reasons:     []model.Reason{},
		}
	}

	confidence := fit.Confidence
	if confidence == "" {
		confidence = model.ConfidenceLow
	}
	return &model.RepFit{
		IsCandidate: true,
		Confidence:  confidence,
		Reasons:     retained,
	}
}
