package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"custodyprofile/pkg/platform/sentinel"
)

// PostgresStore reads codes from the reference_data_codes table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CodesForDomain(ctx context.Context, domain string) ([]Code, error) {
	query := `SELECT domain, code, description, list_seq, active
		FROM reference_data_codes WHERE domain = $1 ORDER BY list_seq, code`
	rows, err := s.db.QueryContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("query reference codes: %w", err)
	}
	defer rows.Close()

	var out []Code
	for rows.Next() {
		var c Code
		if err := rows.Scan(&c.Domain, &c.Code, &c.Description, &c.ListSeq, &c.Active); err != nil {
			return nil, fmt.Errorf("scan reference code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindCode(ctx context.Context, domain, code string) (*Code, error) {
	query := `SELECT domain, code, description, list_seq, active
		FROM reference_data_codes WHERE domain = $1 AND code = $2`
	var c Code
	err := s.db.QueryRowContext(ctx, query, domain, code).
		Scan(&c.Domain, &c.Code, &c.Description, &c.ListSeq, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query reference code: %w", err)
	}
	return &c, nil
}
