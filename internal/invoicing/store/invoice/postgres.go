package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fakturo/internal/invoicing/models"
	id "fakturo/pkg/domain"
	"fakturo/pkg/platform/sentinel"
)

// Schema is the DDL for the invoices table. The aggregate is stored as a
// jsonb document; the flat columns exist for indexing and listing only and
// are always rewritten from the document on save.
const Schema = `
CREATE TABLE IF NOT EXISTS invoices (
    id                  UUID PRIMARY KEY,
    number              TEXT,
    document_status     TEXT NOT NULL,
    transmission_status TEXT NOT NULL,
    currency            TEXT NOT NULL,
    seller_id           UUID,
    buyer_id            UUID,
    issue_date          TIMESTAMPTZ,
    total_payable       NUMERIC(20,6) NOT NULL DEFAULT 0,
    search_text         TEXT NOT NULL DEFAULT '',
    doc                 JSONB NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS invoices_number_idx ON invoices (number) WHERE number IS NOT NULL;
CREATE INDEX IF NOT EXISTS invoices_seller_idx ON invoices (seller_id);
CREATE INDEX IF NOT EXISTS invoices_buyer_idx ON invoices (buyer_id);
CREATE INDEX IF NOT EXISTS invoices_status_idx ON invoices (document_status);
`

const uniqueViolation = "23505"

// PostgresStore persists invoices in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres creates a PostgresStore on the given pool.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

type invoiceRow struct {
	id                 string
	number             *string
	documentStatus     string
	transmissionStatus string
	currency           string
	sellerID           *string
	buyerID            *string
	issueDate          *time.Time
	totalPayable       string
	searchText         string
	doc                []byte
	createdAt          time.Time
	updatedAt          time.Time
}

func rowFrom(inv *models.Invoice) (invoiceRow, error) {
	state := inv.State()
	doc, err := json.Marshal(state)
	if err != nil {
		return invoiceRow{}, fmt.Errorf("marshaling invoice %s: %w", state.ID, err)
	}
	row := invoiceRow{
		id:                 state.ID.String(),
		documentStatus:     string(state.DocumentStatus),
		transmissionStatus: string(state.TransmissionStatus),
		currency:           state.Currency.Code,
		issueDate:          state.IssueDate,
		totalPayable:       inv.Totals().Payable().Amount().String(),
		searchText:         searchText(inv),
		doc:                doc,
		createdAt:          state.CreatedAt,
		updatedAt:          state.UpdatedAt,
	}
	if !state.Number.IsZero() {
		n := state.Number.String()
		row.number = &n
	}
	if !state.Seller.PartyID.IsNil() {
		s := state.Seller.PartyID.String()
		row.sellerID = &s
	}
	if !state.Buyer.PartyID.IsNil() {
		b := state.Buyer.PartyID.String()
		row.buyerID = &b
	}
	return row, nil
}

func scanInvoice(doc []byte) (*models.Invoice, error) {
	var state models.InvoiceState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, fmt.Errorf("unmarshaling invoice document: %w", err)
	}
	return models.RehydrateInvoice(state)
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invoice) error {
	row, err := rowFrom(inv)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO invoices (id, number, document_status, transmission_status, currency,
		                      seller_id, buyer_id, issue_date, total_payable, search_text,
		                      doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		row.id, row.number, row.documentStatus, row.transmissionStatus, row.currency,
		row.sellerID, row.buyerID, row.issueDate, row.totalPayable, row.searchText,
		row.doc, row.createdAt, row.updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == "invoices_number_idx" {
				return sentinel.ErrAlreadyUsed
			}
			return sentinel.ErrConflict
		}
		return fmt.Errorf("inserting invoice: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, inv *models.Invoice) error {
	row, err := rowFrom(inv)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE invoices
		SET number = $2, document_status = $3, transmission_status = $4, currency = $5,
		    seller_id = $6, buyer_id = $7, issue_date = $8, total_payable = $9,
		    search_text = $10, doc = $11, updated_at = $12
		WHERE id = $1`,
		row.id, row.number, row.documentStatus, row.transmissionStatus, row.currency,
		row.sellerID, row.buyerID, row.issueDate, row.totalPayable, row.searchText,
		row.doc, row.updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("updating invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM invoices WHERE id = $1`, invoiceID.String()).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice by id: %w", err)
	}
	return scanInvoice(doc)
}

func (s *PostgresStore) FindByNumber(ctx context.Context, number models.InvoiceNumber) (*models.Invoice, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM invoices WHERE number = $1`, number.String()).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice by number: %w", err)
	}
	return scanInvoice(doc)
}

func (s *PostgresStore) Search(ctx context.Context, criteria SearchCriteria, page Page) (SearchResult, error) {
	page = page.Normalize()
	where, args := buildWhere(criteria)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return SearchResult{}, fmt.Errorf("counting invoices: %w", err)
	}

	listArgs := append(args, page.Size, page.offset())
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT doc FROM invoices%s%s LIMIT $%d OFFSET $%d`,
		where, orderBy(criteria.Sort), len(args)+1, len(args)+2), listArgs...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var items []*models.Invoice
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return SearchResult{}, fmt.Errorf("scanning invoice row: %w", err)
		}
		inv, err := scanInvoice(doc)
		if err != nil {
			return SearchResult{}, err
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return SearchResult{
		Items:      items,
		Total:      total,
		Page:       page.Number,
		TotalPages: totalPages(total, page.Size),
	}, nil
}

func buildWhere(c SearchCriteria) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if !c.SellerID.IsNil() {
		add("seller_id = $%d", c.SellerID.String())
	}
	if !c.BuyerID.IsNil() {
		add("buyer_id = $%d", c.BuyerID.String())
	}
	if c.DocumentStatus != "" {
		add("document_status = $%d", string(c.DocumentStatus))
	}
	if c.TransmissionStatus != "" {
		add("transmission_status = $%d", string(c.TransmissionStatus))
	}
	if c.Currency != "" {
		add("currency = $%d", c.Currency)
	}
	if c.NumberPrefix != "" {
		add("number LIKE $%d", escapeLike(c.NumberPrefix)+"%")
	}
	if c.IssuedFrom != nil {
		add("issue_date >= $%d", *c.IssuedFrom)
	}
	if c.IssuedTo != nil {
		add("issue_date <= $%d", *c.IssuedTo)
	}
	if c.MinPayable != nil {
		add("total_payable >= $%d", c.MinPayable.String())
	}
	if c.MaxPayable != nil {
		add("total_payable <= $%d", c.MaxPayable.String())
	}
	if needle := strings.ToLower(strings.TrimSpace(c.FreeText)); needle != "" {
		add("search_text LIKE $%d", "%"+escapeLike(needle)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderBy renders the ORDER BY clause. Sort fields come from a fixed set,
// never from caller input, so string assembly is safe here.
func orderBy(s Sort) string {
	s = s.Normalize()
	dir := "DESC"
	if s.Ascending {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id", s.Field, dir)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *PostgresStore) Exists(ctx context.Context, invoiceID id.InvoiceID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, invoiceID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking invoice existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Delete(ctx context.Context, invoiceID id.InvoiceID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, invoiceID.String())
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting invoices: %w", err)
	}
	return count, nil
}
