package models

import (
	"slices"

	pstrings "custodyprofile/pkg/platform/strings"
)

// ValueKind classifies how a field's value is typed and stored.
type ValueKind string

const (
	KindInt     ValueKind = "int"
	KindString  ValueKind = "string"
	KindRef     ValueKind = "ref"
	KindRefList ValueKind = "ref_list"
)

// Value is the typed, nullable value of one field. Exactly one arm is
// meaningful per kind; a nil arm means the field is cleared. RefList keeps a
// nil/non-nil distinction too: nil is cleared, an empty non-nil slice is an
// explicit empty list.
type Value struct {
	Kind    ValueKind
	Int     *int32
	String  *string
	Ref     *string
	RefList []string
}

// IntValue builds an integer-kind value; v may be nil for a cleared field.
func IntValue(v *int32) Value { return Value{Kind: KindInt, Int: v} }

// StringValue builds a string-kind value.
func StringValue(v *string) Value { return Value{Kind: KindString, String: v} }

// RefValue builds a single reference-data-code value.
func RefValue(code *string) Value { return Value{Kind: KindRef, Ref: code} }

// RefListValue builds a list-of-reference-data-codes value. Codes are
// trimmed, deduplicated and sorted so equality and storage are order
// independent.
func RefListValue(codes []string) Value {
	if codes != nil {
		codes = pstrings.DedupeAndTrim(codes)
		slices.Sort(codes)
	}
	return Value{Kind: KindRefList, RefList: codes}
}

// IsNil reports whether the value represents a cleared field.
func (v Value) IsNil() bool {
	switch v.Kind {
	case KindInt:
		return v.Int == nil
	case KindString:
		return v.String == nil
	case KindRef:
		return v.Ref == nil
	case KindRefList:
		return v.RefList == nil
	}
	return true
}

// Equal compares two values of the same kind. Values of different kinds are
// never equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return eqPtr(v.Int, other.Int)
	case KindString:
		return eqPtr(v.String, other.String)
	case KindRef:
		return eqPtr(v.Ref, other.Ref)
	case KindRefList:
		if (v.RefList == nil) != (other.RefList == nil) {
			return false
		}
		return slices.Equal(v.RefList, other.RefList)
	}
	return false
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
