package repository

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
)

func newTestRepo(t *testing.T) (ProposalRepository, *sql.DB) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewProposalRepository(db, logger), db
}

func sampleProposal() *entity.Proposal {
	return &entity.Proposal{
		ClientName:       "Acme Ltda",
		ProposalValue:    15000.50,
		ProductOrService: "Sistema de gestão",
		ProposalType:     "Software Development",
		Terms:            "50% na assinatura",
		AISummary:        "Proposta de sistema para a Acme.",
		SourceFilename:   "proposta_acme.pdf",
		ContentHash:      "abc123",
		ProcessedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestInsertAndGetByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := sampleProposal()
	id, dedup, err := repo.Insert(ctx, p)
	require.NoError(t, err)
	assert.False(t, dedup)
	assert.Equal(t, id, p.ID)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltda", got.ClientName)
	assert.Equal(t, 15000.50, got.ProposalValue)
	assert.Equal(t, "proposta_acme.pdf", got.SourceFilename)
	assert.Equal(t, constants.StatusPending, got.Status)
}

func TestInsertDefaultsStatusToPending(t *testing.T) {
	repo, _ := newTestRepo(t)

	p := sampleProposal()
	p.Status = ""
	_, _, err := repo.Insert(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPending, p.Status)
}

func TestInsertDeduplicatesByContentHash(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first := sampleProposal()
	firstID, dedup, err := repo.Insert(ctx, first)
	require.NoError(t, err)
	require.False(t, dedup)

	second := sampleProposal()
	second.SourceFilename = "copy_of_proposta_acme.pdf"
	secondID, dedup, err := repo.Insert(ctx, second)
	require.NoError(t, err)
	assert.True(t, dedup)
	assert.Equal(t, firstID, secondID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInsertEmptyHashNeverDeduplicates(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		p := sampleProposal()
		p.ContentHash = ""
		_, dedup, err := repo.Insert(ctx, p)
		require.NoError(t, err)
		assert.False(t, dedup)
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAllOrdersByID(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i, name := range []string{"Primeiro", "Segundo", "Terceiro"} {
		p := sampleProposal()
		p.ClientName = name
		p.ContentHash = "hash" + name
		_, _, err := repo.Insert(ctx, p)
		require.NoError(t, err, "insert %d", i)
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Primeiro", all[0].ClientName)
	assert.Equal(t, "Terceiro", all[2].ClientName)
}

func TestUpdateStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := sampleProposal()
	id, _, err := repo.Insert(ctx, p)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, id, constants.StatusAccepted))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusAccepted, got.Status)
}

func TestUpdateStatusNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.UpdateStatus(context.Background(), 99, constants.StatusAccepted)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListByStatus(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	pending := sampleProposal()
	pending.ContentHash = "h1"
	_, _, err := repo.Insert(ctx, pending)
	require.NoError(t, err)

	accepted := sampleProposal()
	accepted.ContentHash = "h2"
	accepted.Status = constants.StatusAccepted
	_, _, err = repo.Insert(ctx, accepted)
	require.NoError(t, err)

	got, err := repo.ListByStatus(ctx, constants.StatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, constants.StatusPending, got[0].Status)

	empty, err := repo.ListByStatus(ctx, constants.StatusRejected)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateFields(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := sampleProposal()
	id, _, err := repo.Insert(ctx, p)
	require.NoError(t, err)

	newName := "Acme Holdings"
	newValue := 20000.0
	err = repo.UpdateFields(ctx, id, entity.ProposalUpdate{
		ClientName:    &newName,
		ProposalValue: &newValue,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", got.ClientName)
	assert.Equal(t, 20000.0, got.ProposalValue)
	// untouched fields survive
	assert.Equal(t, "Sistema de gestão", got.ProductOrService)
	assert.Equal(t, constants.StatusPending, got.Status)
}

func TestUpdateFieldsEmptyIsNoOp(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	p := sampleProposal()
	id, _, err := repo.Insert(ctx, p)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFields(ctx, id, entity.ProposalUpdate{}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltda", got.ClientName)
}

func TestUpdateFieldsNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	name := "Ghost"
	err := repo.UpdateFields(context.Background(), 77, entity.ProposalUpdate{ClientName: &name})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
