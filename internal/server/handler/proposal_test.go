package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propform/proposals-tracker/constants"
	"github.com/propform/proposals-tracker/internal/entity"
	"github.com/propform/proposals-tracker/internal/llm"
	"github.com/propform/proposals-tracker/internal/pipeline"
	"github.com/propform/proposals-tracker/internal/repository"
)

type stubProcessor struct {
	result pipeline.Result
	called bool
}

func (s *stubProcessor) Process(context.Context, string) pipeline.Result {
	s.called = true
	return s.result
}

type stubExporter struct {
	data []byte
	err  error
}

func (s *stubExporter) ExportProposalsXLSX(context.Context) ([]byte, error) {
	return s.data, s.err
}

type stubDigester struct {
	digest string
	seen   int
}

func (s *stubDigester) DigestPending(_ context.Context, proposals []entity.Proposal) string {
	s.seen = len(proposals)
	return s.digest
}

type fixture struct {
	repo      repository.ProposalRepository
	processor *stubProcessor
	exporter  *stubExporter
	digester  *stubDigester
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := repository.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		repo:      repository.NewProposalRepository(db, logger),
		processor: &stubProcessor{},
		exporter:  &stubExporter{data: []byte("xlsx-bytes")},
		digester:  &stubDigester{digest: "Duas propostas pendentes."},
	}

	h := NewProposalHandler(f.repo, f.processor, f.exporter, f.digester, logger)
	r := gin.New()
	r.POST("/proposals", h.Upload)
	r.GET("/proposals", h.List)
	r.GET("/proposals/export", h.Export)
	r.GET("/proposals/digest", h.Digest)
	r.GET("/proposals/:id", h.Get)
	r.PATCH("/proposals/:id/status", h.UpdateStatus)
	r.PATCH("/proposals/:id", h.UpdateFields)
	f.router = r
	return f
}

func (f *fixture) seed(t *testing.T, p *entity.Proposal) int64 {
	t.Helper()
	id, _, err := f.repo.Insert(context.Background(), p)
	require.NoError(t, err)
	return id
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func multipartPDF(t *testing.T, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadSuccess(t *testing.T) {
	f := newFixture(t)
	f.processor.result = pipeline.Result{
		ProposalID: 7,
		Proposal:   &entity.Proposal{ID: 7, ClientName: "Acme Ltda"},
	}

	body, ctype := multipartPDF(t, "proposta.pdf")
	req := httptest.NewRequest(http.MethodPost, "/proposals", body)
	req.Header.Set("Content-Type", ctype)
	w := f.do(req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, f.processor.called)
	resp := jsonBody(t, w)
	assert.Equal(t, false, resp["deduplicated"])
}

func TestUploadDuplicateReturns200(t *testing.T) {
	f := newFixture(t)
	f.processor.result = pipeline.Result{
		ProposalID:   3,
		Proposal:     &entity.Proposal{ID: 3},
		Deduplicated: true,
	}

	body, ctype := multipartPDF(t, "proposta.pdf")
	req := httptest.NewRequest(http.MethodPost, "/proposals", body)
	req.Header.Set("Content-Type", ctype)
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, jsonBody(t, w)["deduplicated"])
}

func TestUploadPipelineFailureReturns422(t *testing.T) {
	f := newFixture(t)
	f.processor.result = pipeline.Result{
		FailedStage: pipeline.StageExtract,
		Err:         errors.New("document has no text layer"),
	}

	body, ctype := multipartPDF(t, "scan.pdf")
	req := httptest.NewRequest(http.MethodPost, "/proposals", body)
	req.Header.Set("Content-Type", ctype)
	w := f.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := jsonBody(t, w)
	assert.Equal(t, pipeline.StageExtract, resp["failed_stage"])
}

func TestUploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)

	body, ctype := multipartPDF(t, "notes.docx")
	req := httptest.NewRequest(http.MethodPost, "/proposals", body)
	req.Header.Set("Content-Type", ctype)
	w := f.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, f.processor.called)
}

func TestUploadRequiresFileField(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/proposals", strings.NewReader("not multipart"))
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEmptyStore(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	resp := jsonBody(t, w)
	assert.Equal(t, float64(0), resp["count"])
	assert.NotNil(t, resp["proposals"])
}

func TestListWithStatusFilter(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Pendente", ContentHash: "h1"})
	f.seed(t, &entity.Proposal{ClientName: "Aceita", ContentHash: "h2", Status: constants.StatusAccepted})

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals?status=accepted", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), jsonBody(t, w)["count"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/proposals?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t, &entity.Proposal{ClientName: "Acme Ltda", ContentHash: "h1"})

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	resp := jsonBody(t, w)
	assert.Equal(t, float64(id), resp["id"])
	assert.Equal(t, "Acme Ltda", resp["client_name"])
}

func TestGetByIDNotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/99", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByIDInvalid(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})

	req := httptest.NewRequest(http.MethodPatch, "/proposals/1/status",
		strings.NewReader(`{"status":"ACEITA"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accepted", jsonBody(t, w)["status"])

	got, err := f.repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusAccepted, got.Status)
}

func TestUpdateStatusRejectsUnknownLabel(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})

	req := httptest.NewRequest(http.MethodPatch, "/proposals/1/status",
		strings.NewReader(`{"status":"maybe"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPatch, "/proposals/50/status",
		strings.NewReader(`{"status":"rejected"}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateFields(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})

	req := httptest.NewRequest(http.MethodPatch, "/proposals/1",
		strings.NewReader(`{"client_name":"Acme Holdings","proposal_value":5000}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := jsonBody(t, w)
	assert.Equal(t, "Acme Holdings", resp["client_name"])
	assert.Equal(t, float64(5000), resp["proposal_value"])
}

func TestUpdateFieldsEmptyBodyRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})

	req := httptest.NewRequest(http.MethodPatch, "/proposals/1", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/export", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xlsx-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
}

func TestExportFailure(t *testing.T) {
	f := newFixture(t)
	f.exporter.err = errors.New("boom")
	f.exporter.data = nil

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/export", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDigest(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})
	f.seed(t, &entity.Proposal{ClientName: "Beta", ContentHash: "h2", Status: constants.StatusAccepted})

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/digest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	resp := jsonBody(t, w)
	assert.Equal(t, float64(1), resp["pending_count"])
	assert.Equal(t, "Duas propostas pendentes.", resp["digest"])
	assert.Equal(t, 1, f.digester.seen)
}

func TestDigestModelFailureShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &entity.Proposal{ClientName: "Acme", ContentHash: "h1"})
	f.digester.digest = llm.DigestUnavailable

	w := f.do(httptest.NewRequest(http.MethodGet, "/proposals/digest", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, llm.DigestUnavailable, jsonBody(t, w)["digest"])
}
