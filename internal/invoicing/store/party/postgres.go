package party

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
	"fakturo/pkg/platform/sentinel"
)

// Schema is the DDL for the parties tables. The aggregate lives in a jsonb
// document; party_identifiers mirrors the identifier list so the unique
// constraint can arbitrate concurrent claims.
const Schema = `
CREATE TABLE IF NOT EXISTS parties (
    id         UUID PRIMARY KEY,
    legal_name TEXT NOT NULL,
    doc        JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS party_identifiers (
    scheme   TEXT NOT NULL,
    value    TEXT NOT NULL,
    party_id UUID NOT NULL REFERENCES parties (id) ON DELETE CASCADE,
    PRIMARY KEY (scheme, value)
);
CREATE INDEX IF NOT EXISTS parties_legal_name_idx ON parties (lower(legal_name));
`

const uniqueViolation = "23505"

// PostgresStore persists parties in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres creates a PostgresStore on the given pool.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func scanParty(doc []byte) (*models.Party, error) {
	var state models.PartyState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling party document: %w", err)
	}
	return models.RehydrateParty(state)
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Party) error {
	state := p.State()
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling party %s: %w", state.ID, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning party insert: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO parties (id, legal_name, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		state.ID.String(), state.LegalName, doc, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("inserting party: %w", err)
	}

	if err := insertIdentifiers(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Party) error {
	state := p.State()
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling party %s: %w", state.ID, err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning party update: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE parties SET legal_name = $2, doc = $3, updated_at = $4 WHERE id = $1`,
		state.ID.String(), state.LegalName, doc, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM party_identifiers WHERE party_id = $1`, state.ID.String()); err != nil {
		return fmt.Errorf("clearing party identifiers: %w", err)
	}
	if err := insertIdentifiers(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertIdentifiers(ctx context.Context, tx pgx.Tx, state models.PartyState) error {
	for _, pi := range state.Identifiers {
		_, err := tx.Exec(ctx, `
			INSERT INTO party_identifiers (scheme, value, party_id) VALUES ($1, $2, $3)`,
			pi.Scheme, pi.Value, state.ID.String())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("inserting party identifier %s:%s: %w", pi.Scheme, pi.Value, err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, partyID id.PartyID) (*models.Party, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM parties WHERE id = $1`, partyID.String()).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying party by id: %w", err)
	}
	return scanParty(doc)
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, scheme, value string) (*models.Party, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `
		SELECT p.doc FROM parties p
		JOIN party_identifiers pi ON pi.party_id = p.id
		WHERE lower(pi.scheme) = lower($1) AND pi.value = $2`, scheme, value).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying party by identifier: %w", err)
	}
	return scanParty(doc)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, page Page) (ListResult, error) {
	page = page.Normalize()

	where := ""
	var args []any
	if needle := strings.TrimSpace(filter.Name); needle != "" {
		where = ` WHERE legal_name ILIKE $1 OR doc->>'TradingName' ILIKE $1`
		args = append(args, "%"+escapeLike(needle)+"%")
	}

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM parties`+where, args...).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("counting parties: %w", err)
	}

	listArgs := append(args, page.Size, page.offset())
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT doc FROM parties%s ORDER BY lower(legal_name), id LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2), listArgs...)
	if err != nil {
		return ListResult{}, fmt.Errorf("listing parties: %w", err)
	}
	defer rows.Close()

	var items []*models.Party
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return ListResult{}, fmt.Errorf("scanning party row: %w", err)
		}
		p, err := scanParty(doc)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterating party rows: %w", err)
	}

	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		TotalPages: totalPages(total, page.Size),
	}, nil
}

func (s *PostgresStore) Exists(ctx context.Context, partyID id.PartyID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM parties WHERE id = $1)`, partyID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking party existence: %w", err)
	}
	return exists, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *PostgresStore) Delete(ctx context.Context, partyID id.PartyID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM parties WHERE id = $1`, partyID.String())
	if err != nil {
		return fmt.Errorf("deleting party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM parties`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting parties: %w", err)
	}
	return count, nil
}
