package models

import dErrors "custodyprofile/pkg/domain-errors"

// Field enumerates the trackable attributes of a person in custody. The set
// is closed: fields are never added or removed at runtime, and every engine
// that dispatches on Field must handle all of them.
type Field string

const (
	FieldHeight         Field = "HEIGHT"
	FieldWeight         Field = "WEIGHT"
	FieldHair           Field = "HAIR"
	FieldFacialHair     Field = "FACIAL_HAIR"
	FieldBuild          Field = "BUILD"
	FieldLeftEyeColour  Field = "LEFT_EYE_COLOUR"
	FieldRightEyeColour Field = "RIGHT_EYE_COLOUR"
	FieldShoeSize       Field = "SHOE_SIZE"
	FieldSmokerOrVaper  Field = "SMOKER_OR_VAPER"
	FieldFoodAllergy    Field = "FOOD_ALLERGY"
)

// AllFields lists every field in a stable order. Iteration over engines and
// merge loops uses this, never a map, so behaviour is deterministic.
var AllFields = []Field{
	FieldHeight,
	FieldWeight,
	FieldHair,
	FieldFacialHair,
	FieldBuild,
	FieldLeftEyeColour,
	FieldRightEyeColour,
	FieldShoeSize,
	FieldSmokerOrVaper,
	FieldFoodAllergy,
}

// ParseField validates an inbound field name.
func ParseField(s string) (Field, error) {
	f := Field(s)
	for _, known := range AllFields {
		if f == known {
			return f, nil
		}
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "unknown field: "+s)
}

// Source tags the provenance of a field change.
type Source string

const (
	// SourceDPS marks an interactive edit made in this service.
	SourceDPS Source = "DPS"
	// SourceNomisSync marks a value pushed from the legacy system of record.
	SourceNomisSync Source = "NOMIS_SYNC"
	// SourceNomisMigration marks a bulk historical backfill from the legacy system.
	SourceNomisMigration Source = "NOMIS_MIGRATION"
)
