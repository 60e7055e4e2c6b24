// Package handlers provides HTTP handlers for the stamping API.
//
// Two families of endpoints live here. Session endpoints let a browser
// upload PDFs and a signature image, optionally merge and reorder the PDFs,
// then place the signature and download the result. Document endpoints sign
// or stamp an attachment of a stored document and persist the result.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(sessionManager, signingService, uploadDir, outputDir)
//	r := chi.NewRouter()
//	r.Post("/api/sessions/", h.CreateSession)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/geometry"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/pdf"
	"go-stamppdf/internal/session"
	"go-stamppdf/internal/signing"
	"go-stamppdf/internal/utils"
)

const (
	maxPDFUploadSize       = 25 * 1024 * 1024
	maxSignatureUploadSize = 5 * 1024 * 1024
)

type APIHandler struct {
	SessionManager *session.SessionManager
	Signing        *signing.Service
	UploadDir      string
	OutputDir      string
}

func NewAPIHandler(sm *session.SessionManager, svc *signing.Service, uploadDir, outputDir string) *APIHandler {
	return &APIHandler{SessionManager: sm, Signing: svc, UploadDir: uploadDir, OutputDir: outputDir}
}

type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

type UploadResponse struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type OrderRequest struct {
	Files []string `json:"files"`
}

type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

type SessionSignRequest struct {
	// SourcePDF is the name of an uploaded PDF. When empty the session's
	// current output is signed, or its only upload.
	SourcePDF string `json:"sourcePdf,omitempty"`
	signing.Placement
}

type SessionSignResponse struct {
	DownloadURL string               `json:"downloadUrl"`
	Preview     string               `json:"preview"`
	Geometry    geometry.PdfGeometry `json:"geometry"`
}

func (h *APIHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, ok := h.SessionManager.GetSession(chi.URLParam(r, "sessionID"))
	if !ok {
		writeMessage(w, http.StatusNotFound, "Session not found")
	}
	return s, ok
}

func (h *APIHandler) downloadURL(sessionID, path string) string {
	return fmt.Sprintf("/api/sessions/%s/files/%s", sessionID, filepath.Base(path))
}

// CreateSession godoc
// @Summary      Create a new session
// @Description  Creates a new signing session and returns a session ID
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /api/sessions/ [post]
func (h *APIHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.SessionManager.CreateSession()
	logger.Info(r.Context(), "session created", logger.Fields{"session_id": s.ID})
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: s.ID})
}

// UploadFile godoc
// @Summary      Upload a PDF file
// @Description  Uploads a PDF file to the session
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        pdf        formData  file    true  "PDF file"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/files [post]
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPDFUploadSize)
	if err := r.ParseMultipartForm(maxPDFUploadSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "File too large")
		return
	}

	file, handler, err := r.FormFile("pdf")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Error retrieving file")
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(handler.Filename)) != ".pdf" {
		writeMessage(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	header := make([]byte, 5)
	if _, err := io.ReadFull(file, header); err != nil || string(header) != "%PDF-" {
		writeMessage(w, http.StatusBadRequest, "Uploaded file is not a valid PDF")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to process file")
		return
	}

	filename := fmt.Sprintf("%s-%s", utils.GenerateUUID(), utils.SanitizeFilename(handler.Filename))
	path := filepath.Join(h.UploadDir, filename)
	if err := saveUpload(path, file); err != nil {
		logger.Error(r.Context(), "failed to save upload", err, logger.Fields{"session_id": s.ID})
		writeMessage(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	s.AddFile(path)
	writeJSON(w, http.StatusOK, UploadResponse{Filename: filename, Size: handler.Size})
}

// UploadSignature godoc
// @Summary      Upload a signature image
// @Description  Uploads a signature image (PNG/JPEG) to the session, replacing any previous one
// @Tags         signature
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        signature  formData  file    true  "Signature image file (PNG/JPEG)"
// @Success      200  {object}  UploadResponse
// @Failure      400  {object}  ErrorResponse  "Bad request - invalid image format"
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/signature [post]
func (h *APIHandler) UploadSignature(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSignatureUploadSize)
	if err := r.ParseMultipartForm(maxSignatureUploadSize); err != nil {
		writeMessage(w, http.StatusBadRequest, "File too large")
		return
	}

	file, handler, err := r.FormFile("signature")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Error retrieving file")
		return
	}
	defer file.Close()

	header := make([]byte, 512)
	n, err := file.Read(header)
	if err != nil && err != io.EOF {
		writeMessage(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeMessage(w, http.StatusInternalServerError, "Failed to process file")
		return
	}

	validExtensions := map[string][]string{
		"image/jpeg": {".jpg", ".jpeg"},
		"image/png":  {".png"},
	}
	extensions, allowed := validExtensions[http.DetectContentType(header[:n])]
	if !allowed {
		writeMessage(w, http.StatusBadRequest, "Invalid image format. Only PNG and JPEG images are allowed")
		return
	}
	if !slices.Contains(extensions, strings.ToLower(filepath.Ext(handler.Filename))) {
		writeMessage(w, http.StatusBadRequest, "File extension doesn't match content type")
		return
	}

	filename := fmt.Sprintf("sig-%s-%s", utils.GenerateUUID(), utils.SanitizeFilename(handler.Filename))
	path := filepath.Join(h.UploadDir, filename)
	if err := saveUpload(path, file); err != nil {
		logger.Error(r.Context(), "failed to save signature", err, logger.Fields{"session_id": s.ID})
		writeMessage(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	s.SetSignature(path)
	writeJSON(w, http.StatusOK, UploadResponse{Filename: filename, Size: handler.Size})
}

// UpdateOrder godoc
// @Summary      Set file order
// @Description  Sets the order of uploaded files for merging
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        sessionID  path      string        true  "Session ID"
// @Param        files      body      OrderRequest  true  "Uploaded filenames in merge order"
// @Success      200  {object}  map[string]bool  "{ success: true }"
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/order [put]
func (h *APIHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var order OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid file order data")
		return
	}

	current := s.GetFiles()
	known := make(map[string]bool, len(current))
	for _, file := range current {
		known[file] = true
	}
	files := make([]string, 0, len(order.Files))
	for _, name := range order.Files {
		path := filepath.Join(h.UploadDir, filepath.Base(name))
		if !known[path] {
			writeMessage(w, http.StatusBadRequest, "Invalid file in order list")
			return
		}
		files = append(files, path)
	}
	if len(files) > 0 {
		s.SetFiles(files)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// MergeFiles godoc
// @Summary      Merge uploaded files
// @Description  Merges all uploaded PDFs in the session; the merged file becomes the signing source
// @Tags         files
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Success      200  {object}  DownloadResponse
// @Failure      400  {object}  ErrorResponse  "No files to merge"
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse  "Merge already in progress or done"
// @Router       /api/sessions/{sessionID}/actions/merge [post]
func (h *APIHandler) MergeFiles(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.Mutex.Lock()
	switch s.MergeStatus {
	case "in_progress":
		s.Mutex.Unlock()
		writeMessage(w, http.StatusConflict, "Merge already in progress")
		return
	case "done":
		s.Mutex.Unlock()
		writeMessage(w, http.StatusConflict, "Files already merged")
		return
	}
	s.MergeStatus = "in_progress"
	s.Mutex.Unlock()

	files := s.GetFiles()
	if len(files) == 0 {
		s.SetMergeStatus("idle")
		writeMessage(w, http.StatusBadRequest, "No files to merge")
		return
	}

	outputPath := filepath.Join(h.OutputDir, fmt.Sprintf("merged-%s.pdf", utils.GenerateUUID()))
	if err := pdf.MergeFiles(files, outputPath); err != nil {
		s.SetMergeStatus("idle")
		logger.Error(r.Context(), "failed to merge PDFs", err, logger.Fields{"session_id": s.ID, "files": len(files)})
		writeMessage(w, http.StatusInternalServerError, "Failed to merge PDFs")
		return
	}

	s.SetOutput(outputPath)
	s.SetMergeStatus("done")
	logger.Info(r.Context(), "session files merged", logger.Fields{"session_id": s.ID, "files": len(files)})
	writeJSON(w, http.StatusOK, DownloadResponse{DownloadURL: h.downloadURL(s.ID, outputPath)})
}

// SignPDF godoc
// @Summary      Sign a PDF file
// @Description  Places the session's signature image on a PDF. With a placement the rectangle is mapped from
// @Description  the viewer container to page coordinates; without one the signature goes to the bottom-left
// @Description  corner. The signed file replaces the session output.
// @Tags         signature
// @Accept       json
// @Produce      json
// @Param        sessionID  path    string              true  "Session ID"
// @Param        request    body    SessionSignRequest  true  "Sign request"
// @Success      200  {object}  SessionSignResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      415  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /api/sessions/{sessionID}/sign [post]
func (h *APIHandler) SignPDF(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req SessionSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	sourcePath, err := h.signingSource(s, req.SourcePDF)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sigPath := s.GetSignature()
	if sigPath == "" {
		writeMessage(w, http.StatusBadRequest, "Signature not uploaded")
		return
	}

	source, err := os.ReadFile(sourcePath)
	if err != nil {
		writeError(w, r, apperr.E(apperr.KindNotFound, "handlers.SignPDF", err))
		return
	}
	img, err := os.ReadFile(sigPath)
	if err != nil {
		writeError(w, r, apperr.E(apperr.KindNotFound, "handlers.SignPDF", err))
		return
	}

	out, g, err := h.Signing.ComposeFiles(source, img, req.Placement)
	if err != nil {
		writeError(w, r, err)
		return
	}

	signedPath := filepath.Join(h.OutputDir, fmt.Sprintf("signed-%s.pdf", utils.GenerateUUID()))
	if err := os.WriteFile(signedPath, out, 0o644); err != nil {
		logger.Error(r.Context(), "failed to write signed PDF", err, logger.Fields{"session_id": s.ID})
		writeMessage(w, http.StatusInternalServerError, "Failed to save signed PDF")
		return
	}
	s.SetOutput(signedPath)

	writeJSON(w, http.StatusOK, SessionSignResponse{
		DownloadURL: h.downloadURL(s.ID, signedPath),
		Preview:     signing.DataURL(out),
		Geometry:    g,
	})
}

func (h *APIHandler) signingSource(s *session.Session, name string) (string, error) {
	const op = "handlers.SignPDF"
	if name != "" {
		path := filepath.Join(h.UploadDir, filepath.Base(name))
		if !slices.Contains(s.GetFiles(), path) {
			return "", apperr.Errorf(apperr.KindNotFound, op, "source PDF not in session")
		}
		return path, nil
	}
	if out := s.GetOutput(); out != "" {
		return out, nil
	}
	files := s.GetFiles()
	if len(files) != 1 {
		return "", apperr.Errorf(apperr.KindInvalidRequest, op, "PDF not specified")
	}
	return files[0], nil
}

// DownloadFile godoc
// @Summary      Download the session output
// @Description  Downloads the merged or signed PDF of the session and closes the session
// @Tags         files
// @Produce      application/pdf
// @Param        sessionID  path      string  true  "Session ID"
// @Param        filename   path      string  true  "Output filename"
// @Success      200  {file}  file  "PDF file download"
// @Failure      403  {object}  ErrorResponse  "Unauthorized access to file"
// @Failure      404  {object}  ErrorResponse  "Session or file not found"
// @Router       /api/sessions/{sessionID}/files/{filename} [get]
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	path := filepath.Join(h.OutputDir, filepath.Base(chi.URLParam(r, "filename")))
	if s.GetOutput() != path {
		writeMessage(w, http.StatusForbidden, "Unauthorized access to file")
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}

	name := "merged.pdf"
	if strings.HasPrefix(filepath.Base(path), "signed-") {
		name = "signed.pdf"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)

	sessionID := s.ID
	go func() {
		time.Sleep(1 * time.Second)
		h.SessionManager.DeleteSession(sessionID)
	}()
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}
