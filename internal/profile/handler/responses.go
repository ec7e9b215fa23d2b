package handler

import (
	"time"

	"custodyprofile/internal/profile/models"
)

// fieldValue renders a field's metadata alongside its value.
type fieldMeta struct {
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	LastModifiedBy string    `json:"lastModifiedBy"`
}

// profileResponse is the full current-state view of one person.
type profileResponse struct {
	PersonID       string               `json:"personId"`
	Height         *int32               `json:"height"`
	Weight         *int32               `json:"weight"`
	Hair           *string              `json:"hair"`
	FacialHair     *string              `json:"facialHair"`
	Build          *string              `json:"build"`
	LeftEyeColour  *string              `json:"leftEyeColour"`
	RightEyeColour *string              `json:"rightEyeColour"`
	ShoeSize       *string              `json:"shoeSize"`
	SmokerOrVaper  *string              `json:"smokerOrVaper"`
	FoodAllergies  []string             `json:"foodAllergies"`
	FieldMetadata  map[string]fieldMeta `json:"fieldMetadata"`
}

func toProfileResponse(rec *models.PersonRecord, meta []models.FieldMetadata) profileResponse {
	resp := profileResponse{
		PersonID:       rec.PersonID,
		Height:         rec.Height,
		Weight:         rec.Weight,
		Hair:           rec.Hair,
		FacialHair:     rec.FacialHair,
		Build:          rec.Build,
		LeftEyeColour:  rec.LeftEyeColour,
		RightEyeColour: rec.RightEyeColour,
		ShoeSize:       rec.ShoeSize,
		SmokerOrVaper:  rec.SmokerOrVaper,
		FoodAllergies:  rec.FoodAllergies,
		FieldMetadata:  make(map[string]fieldMeta, len(meta)),
	}
	for _, m := range meta {
		resp.FieldMetadata[string(m.Field)] = fieldMeta{
			LastModifiedAt: m.LastModifiedAt,
			LastModifiedBy: m.LastModifiedBy,
		}
	}
	return resp
}

// historyEntryResponse is one value window with full provenance.
type historyEntryResponse struct {
	ID          int64      `json:"id"`
	Field       string     `json:"field"`
	Value       any        `json:"value"`
	AppliesFrom time.Time  `json:"appliesFrom"`
	AppliesTo   *time.Time `json:"appliesTo"`
	CreatedAt   time.Time  `json:"createdAt"`
	CreatedBy   string     `json:"createdBy"`
	Source      string     `json:"source"`
	MigratedAt  *time.Time `json:"migratedAt,omitempty"`
	MergedAt    *time.Time `json:"mergedAt,omitempty"`
	MergedFrom  *string    `json:"mergedFrom,omitempty"`
}

func toHistoryResponse(entries []models.HistoryEntry) []historyEntryResponse {
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			ID:          e.ID,
			Field:       string(e.Field),
			Value:       valueJSON(e.Value),
			AppliesFrom: e.AppliesFrom,
			AppliesTo:   e.AppliesTo,
			CreatedAt:   e.CreatedAt,
			CreatedBy:   e.CreatedBy,
			Source:      string(e.Source),
			MigratedAt:  e.MigratedAt,
			MergedAt:    e.MergedAt,
			MergedFrom:  e.MergedFrom,
		})
	}
	return out
}

func valueJSON(v models.Value) any {
	switch v.Kind {
	case models.KindInt:
		if v.Int == nil {
			return nil
		}
		return *v.Int
	case models.KindString:
		if v.String == nil {
			return nil
		}
		return *v.String
	case models.KindRef:
		if v.Ref == nil {
			return nil
		}
		return *v.Ref
	case models.KindRefList:
		return v.RefList
	default:
		return nil
	}
}

// syncResponse and migrationResponse return the ledger IDs created so the
// legacy system can cross-reference its own audit trail.
type createdIDsResponse struct {
	EntryIDs []int64 `json:"entryIds"`
}
