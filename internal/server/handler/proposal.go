package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/common"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/pipeline"
	"github.com/propform/proposals-tracker/internal/repository"
)

// DocumentProcessor runs one uploaded document through the pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, path string) pipeline.Result
}

// Exporter renders the stored proposals as a spreadsheet.
type Exporter interface {
	ExportProposalsXLSX(ctx context.Context) ([]byte, error)
}

// PendingDigester summarizes the pending backlog for operators. Generation
// failures degrade to a fixed placeholder, never an error.
type PendingDigester interface {
	DigestPending(ctx context.Context, proposals []entity.Proposal) string
}

// ProposalHandler serves the proposal REST surface.
type ProposalHandler struct {
	repo      repository.ProposalRepository
	processor DocumentProcessor
	exporter  Exporter
	digester  PendingDigester
	log       *slog.Logger
}

func NewProposalHandler(
	repo repository.ProposalRepository,
	processor DocumentProcessor,
	exporter Exporter,
	digester PendingDigester,
	logger *slog.Logger,
) *ProposalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProposalHandler{
		repo:      repo,
		processor: processor,
		exporter:  exporter,
		digester:  digester,
		log:       logger,
	}
}

// Upload accepts a multipart PDF, runs the pipeline synchronously and returns
// the stored proposal. Pipeline failures map to 422 with the failed stage.
func (h *ProposalHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	if !constants.AllowedExt(filepath.Ext(file.Filename)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF documents are accepted"})
		return
	}

	tmpDir, err := os.MkdirTemp("", "proposal-upload-*")
	if err != nil {
		h.log.Error("api.upload.tempdir_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage upload"})
		return
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, path); err != nil {
		h.log.Error("api.upload.save_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not stage upload"})
		return
	}

	res := h.processor.Process(c.Request.Context(), path)
	if !res.OK() {
		h.log.Warn("api.upload.pipeline_failed",
			"file", file.Filename, "stage", res.FailedStage, "error", res.Err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        res.Err.Error(),
			"failed_stage": res.FailedStage,
		})
		return
	}

	status := http.StatusCreated
	if res.Deduplicated {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"proposal":     res.Proposal,
		"deduplicated": res.Deduplicated,
	})
}

func (h *ProposalHandler) List(c *gin.Context) {
	var (
		proposals []entity.Proposal
		err       error
	)
	if raw := c.Query("status"); raw != "" {
		status, ok := constants.NormalizeStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + raw})
			return
		}
		proposals, err = h.repo.ListByStatus(c.Request.Context(), status)
	} else {
		proposals, err = h.repo.GetAll(c.Request.Context())
	}
	if err != nil {
		h.log.Error("api.list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list proposals"})
		return
	}
	if proposals == nil {
		proposals = []entity.Proposal{}
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals, "count": len(proposals)})
}

func (h *ProposalHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if err != nil {
		h.log.Error("api.get_failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load proposal"})
		return
	}
	c.JSON(http.StatusOK, p)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus applies a manual status transition. Inbound labels are folded
// through the synonym table; anything outside the canonical set is rejected.
func (h *ProposalHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must carry a 'status' field"})
		return
	}
	status, valid := constants.NormalizeStatus(req.Status)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
		return
	}

	err := h.repo.UpdateStatus(c.Request.Context(), id, status)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if err != nil {
		h.log.Error("api.update_status_failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": string(status)})
}

// UpdateFields applies a partial correction to the extracted fields.
func (h *ProposalHandler) UpdateFields(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var upd entity.ProposalUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update body"})
		return
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "update body carries no fields"})
		return
	}

	err := h.repo.UpdateFields(c.Request.Context(), id, upd)
	if errors.Is(err, common.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}
	if err != nil {
		h.log.Error("api.update_fields_failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update proposal"})
		return
	}

	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.log.Error("api.update_fields.reload_failed", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"id": id})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Export streams the full store as an XLSX attachment.
func (h *ProposalHandler) Export(c *gin.Context) {
	data, err := h.exporter.ExportProposalsXLSX(c.Request.Context())
	if err != nil {
		h.log.Error("api.export_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not export proposals"})
		return
	}

	filename := "propostas_" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// Digest returns a generated overview of the pending backlog.
func (h *ProposalHandler) Digest(c *gin.Context) {
	pending, err := h.repo.ListByStatus(c.Request.Context(), constants.StatusPending)
	if err != nil {
		h.log.Error("api.digest.list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list pending proposals"})
		return
	}

	digest := h.digester.DigestPending(c.Request.Context(), pending)
	c.JSON(http.StatusOK, gin.H{"pending_count": len(pending), "digest": digest})
}

func parseID(c *gin.Context) (int64, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id: " + raw})
		return 0, false
	}
	return id, true
}
