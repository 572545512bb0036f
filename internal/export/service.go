package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/repository"
)

const sheetName = "Propostas"

var headers = []string{
	"ID", "Cliente", "Valor (R$)", "Produto/Serviço", "Tipo",
	"Condições", "Resumo", "Arquivo", "Processado em", "Status",
}

// Service renders the proposal store as a spreadsheet for operators.
type Service struct {
	repo repository.ProposalRepository
	log  *slog.Logger
}

func NewService(repo repository.ProposalRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, log: logger}
}

// ExportProposalsXLSX serializes every stored proposal into an XLSX workbook.
// An empty store still yields a workbook with just the header row.
func (s *Service) ExportProposalsXLSX(ctx context.Context) ([]byte, error) {
	proposals, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	data, err := BuildXLSX(proposals)
	if err != nil {
		s.log.Error("export.build_failed", "error", err)
		return nil, common.WrapError(err, "build xlsx workbook")
	}

	s.log.Info("export.ok", "rows", len(proposals), "bytes", len(data))
	return data, nil
}

// BuildXLSX writes the proposals into a single-sheet workbook.
func BuildXLSX(proposals []entity.Proposal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, err
		}
	}

	for row, p := range proposals {
		values := []any{
			p.ID,
			p.ClientName,
			p.ProposalValue,
			p.ProductOrService,
			p.ProposalType,
			p.Terms,
			p.AISummary,
			p.SourceFilename,
			p.ProcessedAt.Format("2006-01-02 15:04:05"),
			string(p.Status),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	var buf *bytes.Buffer
	buf, err = f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
