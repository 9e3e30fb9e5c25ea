package sqlrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
)

const analysisColumns = `id, owner_id, created_at, input_text, source_url, source_platform,
       model_name, model_version, label, confidence,
       probs_json, explanation_json, social_context_json`

type AnalysisRepository struct {
	db *sql.DB
	d  Dialect
}

func NewAnalysisRepository(db *sql.DB, d Dialect) *AnalysisRepository {
	return &AnalysisRepository{db: db, d: d}
}

// Create inserts a record in one statement. The store assigns the insertion
// sequence used to order records created in the same instant.
func (r *AnalysisRepository) Create(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	const q = `
INSERT INTO analyses
  (id, owner_id, created_at, input_text, source_url, source_platform,
   model_name, model_version, label, confidence,
   probs_json, explanation_json, social_context_json)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);
`
	if rec.OwnerID == "" {
		return nil, errors.New("analyses: owner id is required")
	}
	out := *rec
	if out.ID == "" {
		out.ID = domain.ID(uuid.NewString())
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now()
	}
	// all three backends keep microseconds
	out.CreatedAt = out.CreatedAt.UTC().Truncate(time.Microsecond)

	probs := out.Output.Probs
	if probs == nil {
		probs = []float64{}
	}
	probsJSON, err := json.Marshal(probs)
	if err != nil {
		return nil, fmt.Errorf("encode probs: %w", err)
	}
	explJSON, err := nullableJSON(out.Explanation, out.Explanation == nil)
	if err != nil {
		return nil, fmt.Errorf("encode explanation: %w", err)
	}
	socialJSON, err := nullableJSON(out.SocialContext, out.SocialContext == nil)
	if err != nil {
		return nil, fmt.Errorf("encode social context: %w", err)
	}

	_, err = r.db.ExecContext(ctx, r.d.Rebind(q),
		string(out.ID), out.OwnerID, out.CreatedAt,
		out.Request.InputText, out.Request.SourceURL, out.Request.SourcePlatform,
		out.Model.Name, out.Model.Version,
		out.Output.Label, out.Output.Confidence,
		string(probsJSON), explJSON, socialJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("insert analysis: %w", err)
	}
	return &out, nil
}

// ListRecentByOwner returns up to limit records, newest first.
func (r *AnalysisRepository) ListRecentByOwner(ctx context.Context, ownerID string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = domain.HistoryLimit
	}
	q := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE owner_id=?
ORDER BY created_at DESC, seq DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, r.d.Rebind(q), ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetByIDAndOwner returns faults.KindNotFound when the id does not exist or
// belongs to another owner.
func (r *AnalysisRepository) GetByIDAndOwner(ctx context.Context, id domain.ID, ownerID string) (*domain.Record, error) {
	q := `
SELECT ` + analysisColumns + `
FROM analyses
WHERE id=? AND owner_id=? LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, r.d.Rebind(q), string(id), ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, faults.NotFound("sqlrepo.GetByIDAndOwner", "record not found")
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteByIDAndOwner tests ownership and deletes in a single statement.
func (r *AnalysisRepository) DeleteByIDAndOwner(ctx context.Context, id domain.ID, ownerID string) (int64, error) {
	const q = `DELETE FROM analyses WHERE id=? AND owner_id=?;`
	res, err := r.db.ExecContext(ctx, r.d.Rebind(q), string(id), ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete analysis: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*domain.Record, error) {
	var (
		rec          domain.Record
		id           string
		created      time.Time
		probs        []byte
		expl, social []byte
	)
	if err := s.Scan(
		&id, &rec.OwnerID, &created,
		&rec.Request.InputText, &rec.Request.SourceURL, &rec.Request.SourcePlatform,
		&rec.Model.Name, &rec.Model.Version,
		&rec.Output.Label, &rec.Output.Confidence,
		&probs, &expl, &social,
	); err != nil {
		return nil, err
	}
	rec.ID = domain.ID(id)
	rec.CreatedAt = created.UTC()

	if err := json.Unmarshal(probs, &rec.Output.Probs); err != nil {
		return nil, fmt.Errorf("decode probs of %s: %w", id, err)
	}
	if len(expl) > 0 {
		rec.Explanation = &domain.Explanation{}
		if err := json.Unmarshal(expl, rec.Explanation); err != nil {
			return nil, fmt.Errorf("decode explanation of %s: %w", id, err)
		}
	}
	if len(social) > 0 {
		if err := json.Unmarshal(social, &rec.SocialContext); err != nil {
			return nil, fmt.Errorf("decode social context of %s: %w", id, err)
		}
	}
	return &rec, nil
}

// nullableJSON encodes v, or returns SQL NULL when isNil.
func nullableJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
