// Package fields is the temporal field model: one accessor per trackable
// field, so the update and merge engines stay field-kind-agnostic. Every read
// or write of a person record field goes through this table.
package fields

import (
	"custodyprofile/internal/profile/models"
)

// Accessor binds a field to its value kind, its reference-data domain (for
// ref-valued kinds), and typed get/set functions against the current-value
// record.
type Accessor struct {
	Field models.Field
	Kind  models.ValueKind
	// Domain names the reference-data domain codes are validated against.
	// Empty for non-ref kinds.
	Domain string
	// Mergeable marks fields reconciled by the merge engine. Today that is
	// the physical-attribute group.
	Mergeable bool

	Get func(*models.PersonRecord) models.Value
	Set func(*models.PersonRecord, models.Value)
}

var accessors = map[models.Field]Accessor{
	models.FieldHeight: {
		Field: models.FieldHeight, Kind: models.KindInt, Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.IntValue(r.Height) },
		Set: func(r *models.PersonRecord, v models.Value) { r.Height = v.Int },
	},
	models.FieldWeight: {
		Field: models.FieldWeight, Kind: models.KindInt, Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.IntValue(r.Weight) },
		Set: func(r *models.PersonRecord, v models.Value) { r.Weight = v.Int },
	},
	models.FieldHair: {
		Field: models.FieldHair, Kind: models.KindRef, Domain: "HAIR", Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.Hair) },
		Set: func(r *models.PersonRecord, v models.Value) { r.Hair = v.Ref },
	},
	models.FieldFacialHair: {
		Field: models.FieldFacialHair, Kind: models.KindRef, Domain: "FACIAL_HAIR", Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.FacialHair) },
		Set: func(r *models.PersonRecord, v models.Value) { r.FacialHair = v.Ref },
	},
	models.FieldBuild: {
		Field: models.FieldBuild, Kind: models.KindRef, Domain: "BUILD", Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.Build) },
		Set: func(r *models.PersonRecord, v models.Value) { r.Build = v.Ref },
	},
	models.FieldLeftEyeColour: {
		Field: models.FieldLeftEyeColour, Kind: models.KindRef, Domain: "EYE", Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.LeftEyeColour) },
		Set: func(r *models.PersonRecord, v models.Value) { r.LeftEyeColour = v.Ref },
	},
	models.FieldRightEyeColour: {
		Field: models.FieldRightEyeColour, Kind: models.KindRef, Domain: "EYE", Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.RightEyeColour) },
		Set: func(r *models.PersonRecord, v models.Value) { r.RightEyeColour = v.Ref },
	},
	models.FieldShoeSize: {
		Field: models.FieldShoeSize, Kind: models.KindString, Mergeable: true,
		Get: func(r *models.PersonRecord) models.Value { return models.StringValue(r.ShoeSize) },
		Set: func(r *models.PersonRecord, v models.Value) { r.ShoeSize = v.String },
	},
	models.FieldSmokerOrVaper: {
		Field: models.FieldSmokerOrVaper, Kind: models.KindRef, Domain: "SMOKE",
		Get: func(r *models.PersonRecord) models.Value { return models.RefValue(r.SmokerOrVaper) },
		Set: func(r *models.PersonRecord, v models.Value) { r.SmokerOrVaper = v.Ref },
	},
	models.FieldFoodAllergy: {
		Field: models.FieldFoodAllergy, Kind: models.KindRefList, Domain: "FOOD_ALLERGY",
		Get: func(r *models.PersonRecord) models.Value { return models.RefListValue(r.FoodAllergies) },
		Set: func(r *models.PersonRecord, v models.Value) { r.FoodAllergies = v.RefList },
	},
}

// For returns the accessor for a field. Callers pass validated fields; an
// unknown field here is a programming error.
func For(f models.Field) Accessor {
	a, ok := accessors[f]
	if !ok {
		panic("no accessor for field " + string(f))
	}
	return a
}

// Get reads the current value of a field from the record.
func Get(f models.Field, rec *models.PersonRecord) models.Value {
	return For(f).Get(rec)
}

// Set writes a value onto the record.
func Set(f models.Field, rec *models.PersonRecord, v models.Value) {
	For(f).Set(rec, v)
}

// FromHistory reads the field's value out of a history entry.
func FromHistory(entry models.HistoryEntry) models.Value {
	return entry.Value
}

// ToMetadata projects a history entry into its denormalised field metadata.
func ToMetadata(entry models.HistoryEntry) models.FieldMetadata {
	return models.FieldMetadata{
		PersonID:       entry.PersonID,
		Field:          entry.Field,
		LastModifiedAt: entry.CreatedAt,
		LastModifiedBy: entry.CreatedBy,
	}
}

// Mergeable lists the fields the merge engine reconciles, in stable order.
func Mergeable() []models.Field {
	var out []models.Field
	for _, f := range models.AllFields {
		if accessors[f].Mergeable {
			out = append(out, f)
		}
	}
	return out
}
