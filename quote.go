package liftcheck

import "github.com/google/uuid"

// QuoteCandidate is a defect flagged Quote Now, with enough context for
// the quoting workflow to find it again.
type QuoteCandidate struct {
	InspectionID uuid.UUID `json:"inspectionId"`
	AssetID      string    `json:"assetId"`
	Key          ItemKey   `json:"key"`
	Defect       Defect    `json:"defect"`
}

// ListQuoteCandidates returns every defect flagged Quote Now across the
// given inspections, in inspection then form order.
func ListQuoteCandidates(inspections []*Inspection) []QuoteCandidate {
	var out []QuoteCandidate
	for _, insp := range inspections {
		for _, r := range insp.Items {
			if r.Result != ResultDefect || r.Defect == nil || r.Defect.QuoteStatus != QuoteNow {
				continue
			}
			out = append(out, QuoteCandidate{
				InspectionID: insp.ID,
				AssetID:      insp.AssetID,
				Key:          r.Key,
				Defect:       *r.Defect.clone(),
			})
		}
	}
	return out
}
