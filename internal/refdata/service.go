package refdata

import (
	"context"
	"errors"
	"fmt"

	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/sentinel"
)

// Service answers code lookups and validates coded writes.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// CodesForDomain lists a domain's codes for pick-list rendering.
func (s *Service) CodesForDomain(ctx context.Context, domain string) ([]Code, error) {
	codes, err := s.store.CodesForDomain(ctx, domain)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load reference data")
	}
	return codes, nil
}

// ValidateCode rejects codes that do not exist in the domain or have been
// retired. Inactive codes stay readable in history but cannot be written.
func (s *Service) ValidateCode(ctx context.Context, domain, code string) error {
	c, err := s.store.FindCode(ctx, domain, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unknown code %q in domain %s", code, domain))
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "validate reference code")
	}
	if !c.Active {
		return dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("code %q in domain %s is no longer in use", code, domain))
	}
	return nil
}
