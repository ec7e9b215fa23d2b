package handler

import (
	"encoding/json"
	"fmt"
	"time"

	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/service"
	dErrors "custodyprofile/pkg/domain-errors"
)

// Undefinable distinguishes an omitted JSON property from an explicit null.
// Omitted fields are left alone; null clears the stored value. Plain
// pointers cannot express that difference.
type Undefinable[T any] struct {
	Defined bool
	Value   *T
}

func (u *Undefinable[T]) UnmarshalJSON(data []byte) error {
	u.Defined = true
	if string(data) == "null" {
		u.Value = nil
		return nil
	}
	return json.Unmarshal(data, &u.Value)
}

// Plausible human measurement bounds, matching the legacy system's checks.
const (
	minHeightCm = 30
	maxHeightCm = 274
	minWeightKg = 12
	maxWeightKg = 635
)

// PhysicalAttributesRequest is the interactive partial update of the
// physical-attribute field group.
type PhysicalAttributesRequest struct {
	Height         Undefinable[int32]  `json:"height"`
	Weight         Undefinable[int32]  `json:"weight"`
	Hair           Undefinable[string] `json:"hair"`
	FacialHair     Undefinable[string] `json:"facialHair"`
	Build          Undefinable[string] `json:"build"`
	LeftEyeColour  Undefinable[string] `json:"leftEyeColour"`
	RightEyeColour Undefinable[string] `json:"rightEyeColour"`
	ShoeSize       Undefinable[string] `json:"shoeSize"`
}

func (r PhysicalAttributesRequest) toUpdates() ([]service.FieldUpdate, error) {
	if err := checkBounds(r.Height, models.FieldHeight, minHeightCm, maxHeightCm); err != nil {
		return nil, err
	}
	if err := checkBounds(r.Weight, models.FieldWeight, minWeightKg, maxWeightKg); err != nil {
		return nil, err
	}

	var updates []service.FieldUpdate
	appendInt(&updates, models.FieldHeight, r.Height)
	appendInt(&updates, models.FieldWeight, r.Weight)
	appendRef(&updates, models.FieldHair, r.Hair)
	appendRef(&updates, models.FieldFacialHair, r.FacialHair)
	appendRef(&updates, models.FieldBuild, r.Build)
	appendRef(&updates, models.FieldLeftEyeColour, r.LeftEyeColour)
	appendRef(&updates, models.FieldRightEyeColour, r.RightEyeColour)
	appendString(&updates, models.FieldShoeSize, r.ShoeSize)
	if len(updates) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request carries no fields")
	}
	return updates, nil
}

// HealthRequest is the interactive partial update of the health field group.
type HealthRequest struct {
	SmokerOrVaper Undefinable[string]   `json:"smokerOrVaper"`
	FoodAllergies Undefinable[[]string] `json:"foodAllergies"`
}

func (r HealthRequest) toUpdates() ([]service.FieldUpdate, error) {
	var updates []service.FieldUpdate
	appendRef(&updates, models.FieldSmokerOrVaper, r.SmokerOrVaper)
	if r.FoodAllergies.Defined {
		var codes []string
		if r.FoodAllergies.Value != nil {
			codes = *r.FoodAllergies.Value
		}
		updates = append(updates, service.FieldUpdate{
			Field: models.FieldFoodAllergy,
			Value: models.RefListValue(codes),
		})
	}
	if len(updates) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request carries no fields")
	}
	return updates, nil
}

func checkBounds(u Undefinable[int32], f models.Field, min, max int32) error {
	if !u.Defined || u.Value == nil {
		return nil
	}
	if *u.Value < min || *u.Value > max {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("%s must be between %d and %d", f, min, max))
	}
	return nil
}

func appendInt(updates *[]service.FieldUpdate, f models.Field, u Undefinable[int32]) {
	if u.Defined {
		*updates = append(*updates, service.FieldUpdate{Field: f, Value: models.IntValue(u.Value)})
	}
}

func appendRef(updates *[]service.FieldUpdate, f models.Field, u Undefinable[string]) {
	if u.Defined {
		*updates = append(*updates, service.FieldUpdate{Field: f, Value: models.RefValue(u.Value)})
	}
}

func appendString(updates *[]service.FieldUpdate, f models.Field, u Undefinable[string]) {
	if u.Defined {
		*updates = append(*updates, service.FieldUpdate{Field: f, Value: models.StringValue(u.Value)})
	}
}

// SyncRequest carries one window pushed from the legacy system. Values are
// keyed by field name and decoded according to the field's kind.
type SyncRequest struct {
	Fields      map[string]json.RawMessage `json:"fields"`
	AppliesFrom time.Time                  `json:"appliesFrom"`
	AppliesTo   *time.Time                 `json:"appliesTo"`
	CreatedAt   time.Time                  `json:"createdAt"`
	CreatedBy   string                     `json:"createdBy"`
}

func (r SyncRequest) toServiceRequest() (service.SyncRequest, error) {
	updates, err := decodeFieldValues(r.Fields)
	if err != nil {
		return service.SyncRequest{}, err
	}
	if r.AppliesFrom.IsZero() {
		return service.SyncRequest{}, dErrors.New(dErrors.CodeBadRequest, "appliesFrom is required")
	}
	if r.CreatedAt.IsZero() || r.CreatedBy == "" {
		return service.SyncRequest{}, dErrors.New(dErrors.CodeBadRequest, "createdAt and createdBy are required")
	}
	return service.SyncRequest{
		Updates:     updates,
		AppliesFrom: r.AppliesFrom,
		AppliesTo:   r.AppliesTo,
		CreatedAt:   r.CreatedAt,
		CreatedBy:   r.CreatedBy,
	}, nil
}

// MigrationRequest is the bulk history backfill: per field, an ordered or
// unordered list of historical windows.
type MigrationRequest struct {
	Fields map[string][]MigrationWindow `json:"fields"`
}

// MigrationWindow is one value window in a migration payload.
type MigrationWindow struct {
	Value       json.RawMessage `json:"value"`
	AppliesFrom time.Time       `json:"appliesFrom"`
	AppliesTo   *time.Time      `json:"appliesTo"`
	CreatedAt   time.Time       `json:"createdAt"`
	CreatedBy   string          `json:"createdBy"`
}

func (r MigrationRequest) toServiceRequest() (service.MigrationRequest, error) {
	out := service.MigrationRequest{Fields: make(map[models.Field][]service.MigrationWindow, len(r.Fields))}
	for name, windows := range r.Fields {
		f, err := models.ParseField(name)
		if err != nil {
			return service.MigrationRequest{}, dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
		for _, w := range windows {
			value, err := decodeValue(f, w.Value)
			if err != nil {
				return service.MigrationRequest{}, err
			}
			if w.AppliesFrom.IsZero() || w.CreatedAt.IsZero() || w.CreatedBy == "" {
				return service.MigrationRequest{}, dErrors.New(dErrors.CodeBadRequest,
					fmt.Sprintf("%s window is missing appliesFrom, createdAt or createdBy", f))
			}
			out.Fields[f] = append(out.Fields[f], service.MigrationWindow{
				Value:       value,
				AppliesFrom: w.AppliesFrom,
				AppliesTo:   w.AppliesTo,
				CreatedAt:   w.CreatedAt,
				CreatedBy:   w.CreatedBy,
			})
		}
	}
	return out, nil
}

func decodeFieldValues(raw map[string]json.RawMessage) ([]service.FieldUpdate, error) {
	updates := make([]service.FieldUpdate, 0, len(raw))
	for name, rawValue := range raw {
		f, err := models.ParseField(name)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, err.Error())
		}
		value, err := decodeValue(f, rawValue)
		if err != nil {
			return nil, err
		}
		updates = append(updates, service.FieldUpdate{Field: f, Value: value})
	}
	return updates, nil
}

// decodeValue parses a raw JSON value according to the field's kind. A JSON
// null decodes to the kind's nil value.
func decodeValue(f models.Field, raw json.RawMessage) (models.Value, error) {
	acc := fields.For(f)
	badValue := func(err error) error {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("invalid value for %s: %v", f, err))
	}

	switch acc.Kind {
	case models.KindInt:
		var v *int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return models.Value{}, badValue(err)
		}
		return models.IntValue(v), nil
	case models.KindString:
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return models.Value{}, badValue(err)
		}
		return models.StringValue(v), nil
	case models.KindRef:
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return models.Value{}, badValue(err)
		}
		return models.RefValue(v), nil
	case models.KindRefList:
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return models.Value{}, badValue(err)
		}
		return models.RefListValue(v), nil
	default:
		return models.Value{}, dErrors.New(dErrors.CodeInternal, "unhandled value kind")
	}
}
