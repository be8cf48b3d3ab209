// Package server exposes the preview/export HTTP JSON boundary. Each
// request parses its own Workbook: no state is shared between concurrent
// requests, so no locking is needed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/finsight/modelpreview/config"
	"github.com/finsight/modelpreview/storage"
	"github.com/finsight/modelpreview/workbook"
)

// ModelStore is the slice of the storage collaborator the server needs.
// Tests inject a fake.
type ModelStore interface {
	FindModel(ctx context.Context, submissionID string) (data []byte, path string, err error)
	Submission(ctx context.Context, id string) (map[string]any, error)
}

// Server handles the preview and export endpoints.
type Server struct {
	store  ModelStore
	cfg    *config.Config
	recalc *workbook.Recalculator
}

// New builds a Server with the excelize-backed formula engine.
func New(store ModelStore, cfg *config.Config) *Server {
	return &Server{
		store:  store,
		cfg:    cfg,
		recalc: workbook.NewRecalculator(cfg.RecalcMaxRows, cfg.RecalcMaxCols),
	}
}

// Routes returns the server's handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type previewRequest struct {
	SubmissionID  string `json:"submission_id"`
	WorksheetName string `json:"worksheet_name"`
	Format        string `json:"format"` // export only: xlsx (default) or markdown
}

type sheetInfo struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

type previewResponse struct {
	Success          bool           `json:"success"`
	HTML             string         `json:"html"`
	Worksheets       []sheetInfo    `json:"worksheets"`
	CurrentWorksheet string         `json:"currentWorksheet"`
	Metadata         map[string]any `json:"metadata"`
	Styles           string         `json:"styles"`
	AntiCopyScript   string         `json:"antiCopyScript"`
}

type errorResponse struct {
	Error      string   `json:"error"`
	Message    string   `json:"message,omitempty"`
	Worksheets []string `json:"worksheets,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	wb, sheet, status, errBody := s.loadSheet(r.Context(), reqID, req)
	if errBody != nil {
		writeJSON(w, status, errBody)
		return
	}

	metadata := s.metadata(r.Context(), reqID, req.SubmissionID)

	opt := workbook.RenderOptions{MaxRows: s.cfg.RenderMaxRows, MaxCols: s.cfg.RenderMaxCols}
	resp := previewResponse{
		Success:          true,
		HTML:             workbook.RenderHTML(sheet, wb, opt),
		Worksheets:       sheetInfos(wb),
		CurrentWorksheet: sheet.Name,
		Metadata:         metadata,
		Styles:           workbook.TableCSS(),
		AntiCopyScript:   workbook.AntiCopyScript(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()

	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	wb, sheet, status, errBody := s.loadSheet(r.Context(), reqID, req)
	if errBody != nil {
		writeJSON(w, status, errBody)
		return
	}

	switch req.Format {
	case "markdown":
		opt := workbook.RenderOptions{MaxRows: s.cfg.RenderMaxRows, MaxCols: s.cfg.RenderMaxCols}
		md, err := workbook.RenderMarkdown(sheet, wb, opt)
		if err != nil {
			s.internalError(w, reqID, "markdown export", err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, md)
	case "", "xlsx":
		data, err := workbook.ExportXLSX(wb)
		if err != nil {
			s.internalError(w, reqID, "xlsx export", err)
			return
		}
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", req.SubmissionID+".xlsx"))
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Unsupported format",
			Message: fmt.Sprintf("format %q is not supported", req.Format),
		})
	}
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (previewRequest, bool) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Invalid request",
			Message: "request body must be JSON",
		})
		return req, false
	}
	if req.SubmissionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Missing submission_id",
			Message: "submission_id is required",
		})
		return req, false
	}
	return req, true
}

// loadSheet fetches, parses and recalculates the submission's workbook and
// picks the requested worksheet. Recalculation failures are logged and
// swallowed: the workbook's cached results still render.
func (s *Server) loadSheet(ctx context.Context, reqID string, req previewRequest) (*workbook.Workbook, *workbook.Sheet, int, *errorResponse) {
	data, path, err := s.store.FindModel(ctx, req.SubmissionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, http.StatusNotFound, &errorResponse{Error: "File not found"}
		}
		log.Printf("req=%s storage error: %v", reqID, err)
		return nil, nil, http.StatusBadGateway, &errorResponse{
			Error:   "Storage unavailable",
			Message: s.publicMessage(err),
		}
	}
	if int64(len(data)) > s.cfg.MaxPackageBytes {
		return nil, nil, http.StatusBadRequest, &errorResponse{
			Error:   "File too large",
			Message: fmt.Sprintf("model exceeds %d MB", s.cfg.MaxPackageMB()),
		}
	}

	wb, err := workbook.Load(data)
	if err != nil {
		log.Printf("req=%s parse %s: %v", reqID, path, err)
		return nil, nil, http.StatusInternalServerError, &errorResponse{
			Error:   "Failed to parse model",
			Message: s.publicMessage(err),
		}
	}

	if err := s.recalc.Recalculate(wb); err != nil {
		// Soft fail: cached results remain authoritative.
		log.Printf("req=%s recalculation skipped: %v", reqID, err)
	}

	sheet := wb.Sheets[0]
	if req.WorksheetName != "" {
		sheet, err = wb.Sheet(req.WorksheetName)
		if err != nil {
			return nil, nil, http.StatusNotFound, &errorResponse{
				Error:      "Worksheet not found",
				Worksheets: wb.SheetNames(),
			}
		}
	}
	return wb, sheet, http.StatusOK, nil
}

// metadata decorates the response with the submission row; its absence
// never fails the render.
func (s *Server) metadata(ctx context.Context, reqID, submissionID string) map[string]any {
	row, err := s.store.Submission(ctx, submissionID)
	if err != nil {
		log.Printf("req=%s metadata unavailable: %v", reqID, err)
		return map[string]any{}
	}
	return row
}

func (s *Server) internalError(w http.ResponseWriter, reqID, op string, err error) {
	log.Printf("req=%s %s: %v", reqID, op, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "Internal error",
		Message: s.publicMessage(err),
	})
}

// publicMessage hides parser internals from clients in production mode.
func (s *Server) publicMessage(err error) string {
	if s.cfg.Production {
		return "internal error"
	}
	return err.Error()
}

func sheetInfos(wb *workbook.Workbook) []sheetInfo {
	infos := make([]sheetInfo, len(wb.Sheets))
	for i, sh := range wb.Sheets {
		infos[i] = sheetInfo{Name: sh.Name, ID: sh.ID}
	}
	return infos
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
