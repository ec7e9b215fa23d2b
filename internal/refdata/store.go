package refdata

import "context"

// Store reads reference-data codes. The code set is administered out of
// band, so the service only ever reads.
type Store interface {
	// CodesForDomain returns all codes in a domain ordered by list sequence,
	// active and inactive alike.
	CodesForDomain(ctx context.Context, domain string) ([]Code, error)
	// FindCode returns sentinel.ErrNotFound when the code is absent from the
	// domain.
	FindCode(ctx context.Context, domain, code string) (*Code, error)
}
