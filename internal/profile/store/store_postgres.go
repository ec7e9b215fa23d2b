package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"custodyprofile/internal/profile/fields"
	"custodyprofile/internal/profile/models"
	"custodyprofile/pkg/platform/sentinel"
	txcontext "custodyprofile/pkg/platform/tx"
)

// Postgres implements Store against the person_profiles, field_history and
// field_metadata tables. Row-level locking on person_profiles is what
// serialises concurrent writes for the same person; see SelectPersonForUpdate.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const personColumns = `person_id, height, weight, hair, facial_hair, build,
	left_eye_colour, right_eye_colour, shoe_size, smoker_or_vaper, food_allergies`

func (s *Postgres) GetPersonRecord(ctx context.Context, personID string) (*models.PersonRecord, error) {
	query := `SELECT ` + personColumns + ` FROM person_profiles WHERE person_id = $1`
	return s.scanPerson(s.execer(ctx).QueryRowContext(ctx, query, personID))
}

// SelectPersonForUpdate reads the person row with FOR UPDATE so concurrent
// writers for the same person serialise on the row lock.
func (s *Postgres) SelectPersonForUpdate(ctx context.Context, personID string) (*models.PersonRecord, error) {
	query := `SELECT ` + personColumns + ` FROM person_profiles WHERE person_id = $1 FOR UPDATE`
	return s.scanPerson(s.execer(ctx).QueryRowContext(ctx, query, personID))
}

func (s *Postgres) scanPerson(row *sql.Row) (*models.PersonRecord, error) {
	var rec models.PersonRecord
	var allergies []byte
	err := row.Scan(
		&rec.PersonID, &rec.Height, &rec.Weight, &rec.Hair, &rec.FacialHair,
		&rec.Build, &rec.LeftEyeColour, &rec.RightEyeColour, &rec.ShoeSize,
		&rec.SmokerOrVaper, &allergies,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan person record: %w", err)
	}
	if allergies != nil {
		if err := json.Unmarshal(allergies, &rec.FoodAllergies); err != nil {
			return nil, fmt.Errorf("decode food allergies: %w", err)
		}
	}
	return &rec, nil
}

func (s *Postgres) SavePersonRecord(ctx context.Context, rec *models.PersonRecord) error {
	var allergies []byte
	if rec.FoodAllergies != nil {
		var err error
		allergies, err = json.Marshal(rec.FoodAllergies)
		if err != nil {
			return fmt.Errorf("encode food allergies: %w", err)
		}
	}
	query := `
		INSERT INTO person_profiles (` + personColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (person_id) DO UPDATE SET
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			hair = EXCLUDED.hair,
			facial_hair = EXCLUDED.facial_hair,
			build = EXCLUDED.build,
			left_eye_colour = EXCLUDED.left_eye_colour,
			right_eye_colour = EXCLUDED.right_eye_colour,
			shoe_size = EXCLUDED.shoe_size,
			smoker_or_vaper = EXCLUDED.smoker_or_vaper,
			food_allergies = EXCLUDED.food_allergies
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.PersonID, rec.Height, rec.Weight, rec.Hair, rec.FacialHair,
		rec.Build, rec.LeftEyeColour, rec.RightEyeColour, rec.ShoeSize,
		rec.SmokerOrVaper, allergies,
	)
	if err != nil {
		return fmt.Errorf("upsert person record: %w", err)
	}
	return nil
}

func (s *Postgres) DeletePersonRecord(ctx context.Context, personID string) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM person_profiles WHERE person_id = $1`, personID)
	if err != nil {
		return fmt.Errorf("delete person record: %w", err)
	}
	return nil
}

const historyColumns = `id, person_id, field, value_int, value_string, value_ref,
	value_ref_list, applies_from, applies_to, created_at, created_by, source,
	migrated_at, merged_at, merged_from`

func (s *Postgres) InsertHistory(ctx context.Context, entry *models.HistoryEntry) (int64, error) {
	var refList []byte
	if entry.Value.RefList != nil {
		var err error
		refList, err = json.Marshal(entry.Value.RefList)
		if err != nil {
			return 0, fmt.Errorf("encode ref list: %w", err)
		}
	}
	query := `
		INSERT INTO field_history (
			person_id, field, value_int, value_string, value_ref, value_ref_list,
			applies_from, applies_to, created_at, created_by, source,
			migrated_at, merged_at, merged_from
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	var id int64
	err := s.execer(ctx).QueryRowContext(ctx, query,
		entry.PersonID, string(entry.Field),
		entry.Value.Int, entry.Value.String, entry.Value.Ref, refList,
		entry.AppliesFrom, entry.AppliesTo, entry.CreatedAt, entry.CreatedBy,
		string(entry.Source), entry.MigratedAt, entry.MergedAt, entry.MergedFrom,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (s *Postgres) CloseHistory(ctx context.Context, id int64, appliesTo time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE field_history SET applies_to = $2 WHERE id = $1`, id, appliesTo)
	if err != nil {
		return fmt.Errorf("close history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) RepointHistory(ctx context.Context, ids []int64, toPersonID, mergedFrom string, mergedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	for _, id := range ids {
		res, err := s.execer(ctx).ExecContext(ctx, `
			UPDATE field_history
			SET person_id = $2, merged_from = $3, merged_at = $4
			WHERE id = $1
		`, id, toPersonID, mergedFrom, mergedAt)
		if err != nil {
			return fmt.Errorf("repoint history entry %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *Postgres) HistoryForPerson(ctx context.Context, personID string) ([]models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM field_history
		WHERE person_id = $1
		ORDER BY applies_from, created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query history for person: %w", err)
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (s *Postgres) HistoryForField(ctx context.Context, personID string, field models.Field) ([]models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM field_history
		WHERE person_id = $1 AND field = $2
		ORDER BY applies_from, created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID, string(field))
	if err != nil {
		return nil, fmt.Errorf("query history for field: %w", err)
	}
	defer rows.Close()
	return scanHistory(rows)
}

func (s *Postgres) LatestOpenFor(ctx context.Context, personID string, field models.Field) (*models.HistoryEntry, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM field_history
		WHERE person_id = $1 AND field = $2 AND applies_to IS NULL
		ORDER BY applies_from DESC, created_at DESC, id DESC
		LIMIT 1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID, string(field))
	if err != nil {
		return nil, fmt.Errorf("query latest open entry: %w", err)
	}
	defer rows.Close()
	entries, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &entries[0], nil
}

func scanHistory(rows *sql.Rows) ([]models.HistoryEntry, error) {
	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var field, source string
		var refList []byte
		err := rows.Scan(
			&e.ID, &e.PersonID, &field,
			&e.Value.Int, &e.Value.String, &e.Value.Ref, &refList,
			&e.AppliesFrom, &e.AppliesTo, &e.CreatedAt, &e.CreatedBy, &source,
			&e.MigratedAt, &e.MergedAt, &e.MergedFrom,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.Field = models.Field(field)
		e.Source = models.Source(source)
		if refList != nil {
			if err := json.Unmarshal(refList, &e.Value.RefList); err != nil {
				return nil, fmt.Errorf("decode ref list: %w", err)
			}
		}
		e.Value.Kind = fields.For(e.Field).Kind
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) UpsertFieldMetadata(ctx context.Context, meta models.FieldMetadata) error {
	query := `
		INSERT INTO field_metadata (person_id, field, last_modified_at, last_modified_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (person_id, field) DO UPDATE SET
			last_modified_at = EXCLUDED.last_modified_at,
			last_modified_by = EXCLUDED.last_modified_by
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		meta.PersonID, string(meta.Field), meta.LastModifiedAt, meta.LastModifiedBy)
	if err != nil {
		return fmt.Errorf("upsert field metadata: %w", err)
	}
	return nil
}

func (s *Postgres) FieldMetadataFor(ctx context.Context, personID string) ([]models.FieldMetadata, error) {
	query := `
		SELECT person_id, field, last_modified_at, last_modified_by
		FROM field_metadata
		WHERE person_id = $1
		ORDER BY field
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("query field metadata: %w", err)
	}
	defer rows.Close()

	var out []models.FieldMetadata
	for rows.Next() {
		var m models.FieldMetadata
		var field string
		if err := rows.Scan(&m.PersonID, &field, &m.LastModifiedAt, &m.LastModifiedBy); err != nil {
			return nil, fmt.Errorf("scan field metadata: %w", err)
		}
		m.Field = models.Field(field)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) DeleteFieldMetadata(ctx context.Context, personID string) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM field_metadata WHERE person_id = $1`, personID)
	if err != nil {
		return fmt.Errorf("delete field metadata: %w", err)
	}
	return nil
}
