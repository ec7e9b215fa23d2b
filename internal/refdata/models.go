// Package refdata holds the controlled vocabularies that coded profile
// fields draw their values from. Codes are grouped by domain (HAIR, BUILD,
// EYE and so on) and validated on every coded write.
package refdata

// Code is one entry in a reference-data domain.
type Code struct {
	Domain      string `json:"domain"`
	Code        string `json:"code"`
	Description string `json:"description"`
	ListSeq     int    `json:"listSeq"`
	Active      bool   `json:"active"`
}
