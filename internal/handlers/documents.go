package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/documents"
	"go-stamppdf/internal/signing"
)

const maxJSONBodySize = 10 * 1024 * 1024

// SignBody signs with an inline image or a stored one.
type SignBody struct {
	// SignatureData is base64 PNG or JPEG, optionally as a data URL.
	SignatureData       string                `json:"signatureData,omitempty"`
	SignatureAttachment *documents.Attachment `json:"signatureAttachment,omitempty"`
	signing.Placement
}

type StampBody struct {
	BarcodeValue   string     `json:"barcodeValue,omitempty"`
	Company        string     `json:"company"`
	AttachmentText string     `json:"attachmentText"`
	Date           *time.Time `json:"date,omitempty"`
	StampWidth     int        `json:"stampWidth,omitempty"`
	signing.Placement
}

// PreviewBody holds exactly one of Sign and Stamp.
type PreviewBody struct {
	Sign  *SignBody  `json:"sign,omitempty"`
	Stamp *StampBody `json:"stamp,omitempty"`
}

type PreviewResponse struct {
	Preview string `json:"preview"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Health godoc
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /healthz [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// SignAttachment godoc
// @Summary      Sign a document attachment
// @Description  Draws a signature image on the attachment's PDF, stores the result and points the attachment at it
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        barcode  path  string    true  "Document barcode"
// @Param        index    path  int       true  "Attachment index"
// @Param        request  body  SignBody  true  "Signature and placement"
// @Success      200  {object}  signing.Result
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      415  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Failure      502  {object}  ErrorResponse  "Stored object failed verification"
// @Failure      503  {object}  ErrorResponse  "Storage unavailable"
// @Router       /api/documents/{barcode}/attachments/{index}/sign [post]
func (h *APIHandler) SignAttachment(w http.ResponseWriter, r *http.Request) {
	var body SignBody
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := signRequest(r, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Signing.Sign(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StampAttachment godoc
// @Summary      Stamp a document attachment
// @Description  Renders the approval stamp (barcode, company, attachment text, date), draws it on the
// @Description  attachment's PDF, stores the result and points the attachment at it
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        barcode  path  string     true  "Document barcode"
// @Param        index    path  int        true  "Attachment index"
// @Param        request  body  StampBody  true  "Stamp text and placement"
// @Success      200  {object}  signing.Result
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse  "No stamp font configured"
// @Failure      502  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /api/documents/{barcode}/attachments/{index}/stamp [post]
func (h *APIHandler) StampAttachment(w http.ResponseWriter, r *http.Request) {
	var body StampBody
	if !decodeBody(w, r, &body) {
		return
	}
	req, err := stampRequest(r, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Signing.Stamp(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PreviewAttachment godoc
// @Summary      Preview a sign or stamp
// @Description  Runs a sign or stamp without storing anything and returns the PDF as a data URL
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        barcode  path  string       true  "Document barcode"
// @Param        index    path  int          true  "Attachment index"
// @Param        request  body  PreviewBody  true  "Exactly one of sign or stamp"
// @Success      200  {object}  PreviewResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      415  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /api/documents/{barcode}/attachments/{index}/preview [post]
func (h *APIHandler) PreviewAttachment(w http.ResponseWriter, r *http.Request) {
	var body PreviewBody
	if !decodeBody(w, r, &body) {
		return
	}
	if (body.Sign == nil) == (body.Stamp == nil) {
		writeError(w, r, apperr.Errorf(apperr.KindInvalidRequest, "handlers.PreviewAttachment", "exactly one of sign or stamp is required"))
		return
	}

	var preq signing.PreviewRequest
	if body.Sign != nil {
		req, err := signRequest(r, *body.Sign)
		if err != nil {
			writeError(w, r, err)
			return
		}
		preq.Sign = &req
	} else {
		req, err := stampRequest(r, *body.Stamp)
		if err != nil {
			writeError(w, r, err)
			return
		}
		preq.Stamp = &req
	}

	url, err := h.Signing.Preview(r.Context(), preq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Preview: url})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}

func attachmentIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, apperr.Errorf(apperr.KindInvalidRequest, "handlers.attachmentIndex", "attachment index must be a non-negative integer")
	}
	return index, nil
}

func signRequest(r *http.Request, body SignBody) (signing.SignRequest, error) {
	index, err := attachmentIndex(r)
	if err != nil {
		return signing.SignRequest{}, err
	}
	ref := signing.ImageRef{Attachment: body.SignatureAttachment}
	if body.SignatureData != "" {
		if ref.Data, err = decodeImageData(body.SignatureData); err != nil {
			return signing.SignRequest{}, err
		}
	}
	return signing.SignRequest{
		Barcode:         chi.URLParam(r, "barcode"),
		AttachmentIndex: index,
		Signature:       ref,
		Placement:       body.Placement,
	}, nil
}

func stampRequest(r *http.Request, body StampBody) (signing.StampRequest, error) {
	index, err := attachmentIndex(r)
	if err != nil {
		return signing.StampRequest{}, err
	}
	return signing.StampRequest{
		Barcode:         chi.URLParam(r, "barcode"),
		AttachmentIndex: index,
		BarcodeValue:    body.BarcodeValue,
		Company:         body.Company,
		AttachmentText:  body.AttachmentText,
		Date:            body.Date,
		StampWidth:      body.StampWidth,
		Placement:       body.Placement,
	}, nil
}

// decodeImageData accepts raw base64 or a data URL.
func decodeImageData(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, apperr.Errorf(apperr.KindInvalidRequest, "handlers.decodeImageData", "signatureData is not valid base64")
	}
	return data, nil
}
