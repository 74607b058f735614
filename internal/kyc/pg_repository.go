package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-operations/internal/db"
	"github.com/hackgods/clinic-operations/internal/identity"
)

type PgRepository struct {
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const documentColumns = `id, patient_id, slots, status, active, reviewed_by, reviewed_at, rejection_remarks, submitted_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var raw []byte

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&raw,
		&d.Status,
		&d.Active,
		&d.ReviewedBy,
		&d.ReviewedAt,
		&d.RejectionRemarks,
		&d.SubmittedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	d.Slots = Slots{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &d.Slots); err != nil {
			return nil, fmt.Errorf("decode kyc slots: %w", err)
		}
	}
	return &d, nil
}

func (r *PgRepository) Submit(ctx context.Context, patientID uuid.UUID, slots Slots) (*Document, error) {
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode kyc slots: %w", err)
	}

	var doc *Document
	err = db.WithTx(ctx, r.pool, func(q db.Querier) error {
		if err := identity.UpdateKYCStatus(ctx, q, patientID, string(StatusPending)); err != nil {
			return err
		}

		if _, err := q.Exec(ctx, `
			UPDATE kyc_documents
			SET active = false,
			    updated_at = now()
			WHERE patient_id = $1
			  AND active
		`, patientID); err != nil {
			return fmt.Errorf("deactivate previous kyc bundle: %w", err)
		}

		row := q.QueryRow(ctx, `
			INSERT INTO kyc_documents (id, patient_id, slots, status, active, submitted_at, updated_at)
			VALUES ($1, $2, $3, 'pending', true, now(), now())
			RETURNING `+documentColumns+`
		`, uuid.New(), patientID, raw)
		doc, err = scanDocument(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		WHERE id = $1
	`, id)
	return scanDocument(row)
}

func (r *PgRepository) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Document, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		WHERE patient_id = $1
		  AND active
	`, patientID)
	return scanDocument(row)
}

func (r *PgRepository) BeginReview(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc *Document
	err := db.WithTx(ctx, r.pool, func(q db.Querier) error {
		current, err := scanDocument(q.QueryRow(ctx, `
			SELECT `+documentColumns+`
			FROM kyc_documents
			WHERE id = $1
			FOR UPDATE
		`, id))
		if err != nil {
			return err
		}
		switch {
		case current.Status.Terminal():
			return ErrAlreadyReviewed
		case !current.Active:
			return ErrSuperseded
		case current.Status == StatusUnderReview:
			doc = current
			return nil
		}

		doc, err = scanDocument(q.QueryRow(ctx, `
			UPDATE kyc_documents
			SET status = 'under_review',
			    updated_at = now()
			WHERE id = $1
			RETURNING `+documentColumns+`
		`, id))
		if err != nil {
			return err
		}
		return identity.UpdateKYCStatus(ctx, q, doc.PatientID, string(StatusUnderReview))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Review locks the document row so a concurrent reviewer sees the terminal
// status and gets ErrAlreadyReviewed.
func (r *PgRepository) Review(ctx context.Context, id uuid.UUID, d ReviewDecision) (*Document, error) {
	var doc *Document
	err := db.WithTx(ctx, r.pool, func(q db.Querier) error {
		current, err := scanDocument(q.QueryRow(ctx, `
			SELECT `+documentColumns+`
			FROM kyc_documents
			WHERE id = $1
			FOR UPDATE
		`, id))
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return ErrAlreadyReviewed
		}
		if !current.Active {
			return ErrSuperseded
		}

		doc, err = scanDocument(q.QueryRow(ctx, `
			UPDATE kyc_documents
			SET status = $2,
			    reviewed_by = $3,
			    reviewed_at = $4,
			    rejection_remarks = $5,
			    updated_at = $4
			WHERE id = $1
			RETURNING `+documentColumns+`
		`, id, string(d.Status), d.ReviewerID, d.At, d.Remarks))
		if err != nil {
			return err
		}

		return identity.UpdateKYCStatus(ctx, q, doc.PatientID, string(doc.Status))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// listWhere hides superseded bundles that never reached a decision. They can
// no longer be reviewed, so they never belong in a review queue.
const listWhere = `WHERE (cardinality($1::text[]) = 0 OR status = ANY($1::text[]))
		  AND (active OR status IN ('approved', 'rejected'))`

func (r *PgRepository) List(ctx context.Context, statuses []Status, limit, offset int) ([]Document, int, error) {
	filter := statusStrings(statuses)

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM kyc_documents
		`+listWhere, filter).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM kyc_documents
		`+listWhere+`
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}
