package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
)

// ProposalRepository is the durable keyed store for processed proposals.
// Every operation returns an explicit error; storage faults are never
// swallowed.
type ProposalRepository interface {
	// Insert persists a proposal and assigns its id. When the content hash
	// matches an existing row, the existing id is returned with dedup=true
	// and no second row is written.
	Insert(ctx context.Context, p *entity.Proposal) (id int64, dedup bool, err error)
	GetAll(ctx context.Context) ([]entity.Proposal, error)
	GetByID(ctx context.Context, id int64) (*entity.Proposal, error)
	ListByStatus(ctx context.Context, status constants.Status) ([]entity.Proposal, error)
	UpdateStatus(ctx context.Context, id int64, status constants.Status) error
	// UpdateFields applies a closed partial update. An all-nil update is a
	// warned no-op, not an error.
	UpdateFields(ctx context.Context, id int64, upd entity.ProposalUpdate) error
}

type proposalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewProposalRepository(db *sql.DB, logger *slog.Logger) ProposalRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &proposalRepository{db: db, logger: logger}
}

const proposalColumns = `id, client_name, proposal_value, product_or_service,
	proposal_type, terms, ai_summary, source_filename, content_hash,
	processed_at, status`

func (r *proposalRepository) Insert(ctx context.Context, p *entity.Proposal) (int64, bool, error) {
	if p.Status == "" {
		p.Status = constants.StatusPending
	}
	if p.ProcessedAt.IsZero() {
		p.ProcessedAt = time.Now().UTC()
	}

	// Idempotency: a re-processed file (at-least-once queue) maps onto the
	// row it already produced.
	if p.ContentHash != "" {
		var existing int64
		err := r.db.QueryRowContext(ctx,
			`SELECT id FROM proposals WHERE content_hash = ?`, p.ContentHash).Scan(&existing)
		switch {
		case err == nil:
			r.logger.Warn("store.insert.duplicate",
				"existing_id", existing, "source_filename", p.SourceFilename)
			p.ID = existing
			return existing, true, nil
		case !errors.Is(err, sql.ErrNoRows):
			return 0, false, common.NewAppError("STORE_INSERT", "duplicate check failed", err)
		}
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO proposals
		(client_name, proposal_value, product_or_service, proposal_type,
		 terms, ai_summary, source_filename, content_hash, processed_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ClientName, p.ProposalValue, p.ProductOrService, p.ProposalType,
		p.Terms, p.AISummary, p.SourceFilename, p.ContentHash, p.ProcessedAt,
		string(p.Status))
	if err != nil {
		r.logger.Error("store.insert.failed", "client", p.ClientName, "error", err)
		return 0, false, common.NewAppError("STORE_INSERT", "insert proposal", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, common.NewAppError("STORE_INSERT", "read inserted id", err)
	}
	p.ID = id

	r.logger.Info("store.insert.ok", "id", id, "client", p.ClientName)
	return id, false, nil
}

func (r *proposalRepository) GetAll(ctx context.Context) ([]entity.Proposal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals ORDER BY id`)
	if err != nil {
		r.logger.Error("store.get_all.failed", "error", err)
		return nil, common.NewAppError("STORE_QUERY", "list proposals", err)
	}
	defer rows.Close()
	return scanProposals(rows)
}

func (r *proposalRepository) ListByStatus(ctx context.Context, status constants.Status) ([]entity.Proposal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE status = ? ORDER BY id`,
		string(status))
	if err != nil {
		r.logger.Error("store.list_by_status.failed", "status", string(status), "error", err)
		return nil, common.NewAppError("STORE_QUERY", "list proposals by status", err)
	}
	defer rows.Close()
	return scanProposals(rows)
}

func (r *proposalRepository) GetByID(ctx context.Context, id int64) (*entity.Proposal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id)

	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("store.get.failed", "id", id, "error", err)
		return nil, common.NewAppError("STORE_QUERY", "get proposal", err)
	}
	return p, nil
}

func (r *proposalRepository) UpdateStatus(ctx context.Context, id int64, status constants.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE proposals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		r.logger.Error("store.update_status.failed", "id", id, "error", err)
		return common.NewAppError("STORE_UPDATE", "update status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	r.logger.Info("store.update_status.ok", "id", id, "status", string(status))
	return nil
}

func (r *proposalRepository) UpdateFields(ctx context.Context, id int64, upd entity.ProposalUpdate) error {
	set := make([]string, 0, 6)
	args := make([]any, 0, 7)

	if upd.ClientName != nil {
		set = append(set, "client_name = ?")
		args = append(args, *upd.ClientName)
	}
	if upd.ProposalValue != nil {
		set = append(set, "proposal_value = ?")
		args = append(args, *upd.ProposalValue)
	}
	if upd.ProductOrService != nil {
		set = append(set, "product_or_service = ?")
		args = append(args, *upd.ProductOrService)
	}
	if upd.ProposalType != nil {
		set = append(set, "proposal_type = ?")
		args = append(args, *upd.ProposalType)
	}
	if upd.Terms != nil {
		set = append(set, "terms = ?")
		args = append(args, *upd.Terms)
	}
	if upd.AISummary != nil {
		set = append(set, "ai_summary = ?")
		args = append(args, *upd.AISummary)
	}

	if len(set) == 0 {
		r.logger.Warn("store.update_fields.empty", "id", id)
		return nil
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE proposals SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		r.logger.Error("store.update_fields.failed", "id", id, "error", err)
		return common.NewAppError("STORE_UPDATE", "update fields", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	r.logger.Info("store.update_fields.ok", "id", id, "fields", len(set))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposal(row rowScanner) (*entity.Proposal, error) {
	var p entity.Proposal
	var status string
	if err := row.Scan(
		&p.ID, &p.ClientName, &p.ProposalValue, &p.ProductOrService,
		&p.ProposalType, &p.Terms, &p.AISummary, &p.SourceFilename,
		&p.ContentHash, &p.ProcessedAt, &status,
	); err != nil {
		return nil, err
	}
	p.Status = constants.Status(status)
	return &p, nil
}

func scanProposals(rows *sql.Rows) ([]entity.Proposal, error) {
	var result []entity.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, common.NewAppError("STORE_SCAN", "scan proposal row", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("STORE_SCAN", "iterate proposal rows", err)
	}
	return result, nil
}
