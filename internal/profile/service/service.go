// Package service implements the update, sync, migration and merge engines
// over the history ledger. All mutations for one logical change run inside a
// single transaction; event publication is deferred to a post-commit hook.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodyprofile/internal/events"
	"custodyprofile/internal/platform/metrics"
	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/models"
	"custodyprofile/internal/profile/store"
	dErrors "custodyprofile/pkg/domain-errors"
	"custodyprofile/pkg/platform/sentinel"
)

// TxRunner executes fn inside one database transaction, providing a store
// bound to it. Post-commit hooks registered during fn run only if the commit
// succeeds.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Store) error) error
}

// CodeValidator resolves reference-data codes. Unknown or inactive codes
// return a coded validation error.
type CodeValidator interface {
	ValidateCode(ctx context.Context, domain, code string) error
}

// PersonLookup answers whether a person identifier is known to the wider
// estate. Implemented by the prisoner-search client.
type PersonLookup interface {
	Exists(ctx context.Context, personID string) (bool, error)
}

// Notifier receives the committed-change fact. The fan-out in
// internal/events implements it.
type Notifier interface {
	FieldsChanged(ctx context.Context, change events.ProfileChange)
}

// Service is the profile engine.
type Service struct {
	tx       TxRunner
	codes    CodeValidator
	persons  PersonLookup
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(
	tx TxRunner,
	codes CodeValidator,
	persons PersonLookup,
	notifier Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		tx:       tx,
		codes:    codes,
		persons:  persons,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("custodyprofile/profile"),
	}
}

// FieldUpdate is one (field, new value) pair within a request.
type FieldUpdate struct {
	Field models.Field
	Value models.Value
}

// GetProfile returns the person's current record, or CodeNotFound when no
// write has ever created one.
func (s *Service) GetProfile(ctx context.Context, personID string) (*models.PersonRecord, []models.FieldMetadata, error) {
	var rec *models.PersonRecord
	var meta []models.FieldMetadata
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		var err error
		rec, err = st.GetPersonRecord(ctx, personID)
		if err != nil {
			return err
		}
		meta, err = st.FieldMetadataFor(ctx, personID)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "no profile for person "+personID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	return rec, meta, nil
}

// GetFieldHistory returns every history entry for (person, field), ordered by
// the ledger key.
func (s *Service) GetFieldHistory(ctx context.Context, personID string, field models.Field) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st store.Store) error {
		var err error
		entries, err = st.HistoryForField(ctx, personID, field)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load field history: %w", err)
	}
	return entries, nil
}

// writeError maps ledger sentinels surfacing from a write transaction onto
// caller-facing codes.
func writeError(err error) error {
	if errors.Is(err, sentinel.ErrOutOfOrder) {
		return dErrors.Wrap(err, dErrors.CodeUnprocessable, "write predates the current open window")
	}
	return err
}

// validatePerson rejects identifiers the wider estate does not know.
func (s *Service) validatePerson(ctx context.Context, personID string) error {
	if personID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "person identifier required")
	}
	ok, err := s.persons.Exists(ctx, personID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "person lookup failed")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "person not found: "+personID)
	}
	return nil
}

// validateValues checks reference-data-valued updates against their domains.
func (s *Service) validateValues(ctx context.Context, updates []FieldUpdate) error {
	for _, u := range updates {
		acc := fields.For(u.Field)
		if acc.Kind != u.Value.Kind {
			return dErrors.New(dErrors.CodeBadRequest,
				fmt.Sprintf("field %s expects %s value", u.Field, acc.Kind))
		}
		switch acc.Kind {
		case models.KindRef:
			if u.Value.Ref != nil {
				if err := s.codes.ValidateCode(ctx, acc.Domain, *u.Value.Ref); err != nil {
					return err
				}
			}
		case models.KindRefList:
			for _, code := range u.Value.RefList {
				if err := s.codes.ValidateCode(ctx, acc.Domain, code); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// loadOrCreateRecord fetches the current-value record under the per-person
// write lock, lazily creating an empty one on first write. A person with no
// row yet has nothing to lock; the eventual upsert's conflict arbitration
// serialises concurrent first writes.
func loadOrCreateRecord(ctx context.Context, st store.Store, personID string) (*models.PersonRecord, error) {
	rec, err := st.SelectPersonForUpdate(ctx, personID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &models.PersonRecord{PersonID: personID}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
