package reconcile

import "github.com/carebridge/leadsync-cli/internal/model"

// CleanDecisionMakers filters raw decision-maker entries down to the ones
// that are mapping-shaped and carry a plausible person name. Relative
// order is preserved and retained entries keep all of their fields.
// Non-mapping entries are dropped silently; the upstream LLM sometimes
// emits bare strings or nulls in this list.
func CleanDecisionMakers(raw []any) []model.DecisionMaker {
	var cleaned []model.DecisionMaker
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		dm := model.DecisionMaker(m)
		if IsValidPersonName(dm.Name()) {
			cleaned = append(cleaned, dm)
		}
	}
	return cleaned
}
