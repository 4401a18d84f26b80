package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// maxUploadSize caps receipt uploads (high-resolution phone photos)
const maxUploadSize = int64(50 << 20) // 50MB

// Error discriminators the boundary returns so clients can render the right
// message ("could not read receipt, try again" vs "could not save expense")
const (
	codeExtractionFailed = "extraction_failed"
	codeValidationFailed = "validation_failed"
	codeStoreUnavailable = "store_unavailable"
	codeNotFound         = "not_found"
	codeBadRequest       = "bad_request"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a JSON error body with CORS headers set
func writeError(w http.ResponseWriter, status int, code string, message string) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message, Code: code})
}

// writeFailure maps a pipeline error onto its discriminator and status
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "Expense not found")
	case errors.Is(err, ErrExtractionFailed):
		writeError(w, http.StatusBadGateway, codeExtractionFailed, "Could not read the receipt. Please try again.")
	case errors.Is(err, ErrNoUsableAmount):
		writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, "No usable amount could be read from the receipt.")
	case errors.Is(err, ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "Could not save the expense. Please try again.")
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// parseQuery reads the shared filter surface (from, to, category, vendor)
func parseQuery(r *http.Request) (Query, error) {
	var q Query
	if from := r.URL.Query().Get("from"); from != "" {
		d, ok := ParseDate(from)
		if !ok {
			return q, fmt.Errorf("invalid from date %q", from)
		}
		q.From = d
	}
	if to := r.URL.Query().Get("to"); to != "" {
		d, ok := ParseDate(to)
		if !ok {
			return q, fmt.Errorf("invalid to date %q", to)
		}
		q.To = d
	}
	if category := r.URL.Query().Get("category"); category != "" {
		parsed := ParseCategory(category)
		if parsed == CategoryUncategorized && normalizeCategoryKey(category) != string(CategoryUncategorized) {
			return q, fmt.Errorf("unknown category %q", category)
		}
		q.Category = parsed
	}
	q.Vendor = r.URL.Query().Get("vendor")
	return q, nil
}

// handleUploadReceipt runs the ingestion pipeline for one uploaded image
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			message = "File is too large. Maximum size is 50MB."
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, message)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, http.StatusBadRequest, codeBadRequest, "No file was provided. Please choose a receipt to upload.")
		return
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		writeError(w, http.StatusBadRequest, codeBadRequest, "File is too large. Maximum size is 50MB.")
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, codeBadRequest, "Error reading file. Please try again.")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromFilename(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	record, err := s.service.IngestReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error ingesting receipt", "filename", header.Filename, "error", err)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// contentTypeFromFilename sniffs a content type from the upload's extension
func contentTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleListExpenses returns the records matching the filter
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	records, err := s.service.ListExpenses(q)
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// handleGetExpense returns a single record
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	record, err := s.service.GetExpense(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleCorrectExpense applies partial field overrides to a record
func (s *Server) handleCorrectExpense(w http.ResponseWriter, r *http.Request) {
	var correction Correction
	if err := json.NewDecoder(r.Body).Decode(&correction); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body")
		return
	}

	record, err := s.service.CorrectExpense(r.PathValue("id"), correction)
	if err != nil {
		slog.Error("Error correcting expense", "id", r.PathValue("id"), "error", err)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleDeleteExpense deletes a record
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetReceiptImage returns the stored image for a record
func (s *Server) handleGetReceiptImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptImage(r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDashboard returns the aggregates for the filtered record set
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	summary, err := s.service.Dashboard(q)
	if err != nil {
		slog.Error("Error computing dashboard", "error", err)
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleExport returns the filtered record set as an xlsx workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	workbook, err := s.service.Export(q)
	if err != nil {
		slog.Error("Error exporting expenses", "error", err)
		writeFailure(w, err)
		return
	}

	filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Write(workbook)
}
