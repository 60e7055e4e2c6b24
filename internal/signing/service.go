// Package signing runs the sign and stamp pipeline for a document attachment:
// fetch inputs, render artwork, map placement, composite, persist and verify,
// then point the attachment at the new object.
//
// Each call is strictly sequential and keeps all intermediate state local.
// Two requests on the same attachment are not serialized here; the last
// UpdateAttachments wins.
package signing

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"time"

	"go-stamppdf/internal/apperr"
	"go-stamppdf/internal/documents"
	"go-stamppdf/internal/geometry"
	"go-stamppdf/internal/logger"
	"go-stamppdf/internal/pdf"
	"go-stamppdf/internal/stamp"
	"go-stamppdf/internal/storage"
	"go-stamppdf/internal/utils"
)

// DateLayout formats the stamp date.
const DateLayout = "2006/01/02 15:04"

const pdfContentType = "application/pdf"

// Fetcher loads bytes from the first location that has them.
type Fetcher interface {
	Fetch(ctx context.Context, locs ...storage.Location) ([]byte, error)
}

// Persister uploads and optionally verifies an object.
type Persister interface {
	PersistAndVerify(ctx context.Context, key string, data []byte, contentType string, opts storage.Options) (storage.UploadResult, error)
}

// Observer records request outcomes.
type Observer interface {
	RecordRequest(flow, outcome string, duration time.Duration)
}

type Config struct {
	// Bucket is the bucket attachments are resolved against and new
	// objects are written to.
	Bucket string
	// DefaultWidth is the stamp width in points for default placement and
	// the artwork width in pixels when a request names none.
	DefaultWidth int
	Verify       bool
	MaxAttempts  int
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Placement selects the page and the rectangle to draw on. A nil Spec asks
// for default placement.
type Placement struct {
	PageIndex int                     `json:"pageIndex"`
	Rotation  int                     `json:"rotation,omitempty"`
	Spec      *geometry.PlacementSpec `json:"placement,omitempty"`
}

// ImageRef points at a signature image, either inline or stored.
type ImageRef struct {
	Data       []byte
	Attachment *documents.Attachment
}

type SignRequest struct {
	Barcode         string
	AttachmentIndex int
	Signature       ImageRef
	Placement
}

type StampRequest struct {
	Barcode         string
	AttachmentIndex int
	// BarcodeValue defaults to the document barcode.
	BarcodeValue   string
	Company        string
	AttachmentText string
	// Date defaults to the current time.
	Date       *time.Time
	StampWidth int
	Placement
}

// PreviewRequest holds exactly one of Sign and Stamp.
type PreviewRequest struct {
	Sign  *SignRequest
	Stamp *StampRequest
}

// Result is the outcome of a persisted sign or stamp.
type Result struct {
	DocumentID int64                `json:"documentId"`
	Index      int                  `json:"attachmentIndex"`
	Attachment documents.Attachment `json:"attachment"`
	Upload     storage.UploadResult `json:"upload"`
	Geometry   geometry.PdfGeometry `json:"geometry"`
}

type Service struct {
	docs      documents.Store
	fetcher   Fetcher
	persister Persister
	renderer  *stamp.Renderer
	observer  Observer
	cfg       Config
}

// NewService wires the pipeline. renderer may be nil, in which case stamp
// requests fail with a configuration error.
func NewService(docs documents.Store, fetcher Fetcher, persister Persister, renderer *stamp.Renderer, observer Observer, cfg Config) *Service {
	if cfg.DefaultWidth <= 0 {
		cfg.DefaultWidth = stamp.ReferenceWidth
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = storage.DefaultMaxAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{
		docs:      docs,
		fetcher:   fetcher,
		persister: persister,
		renderer:  renderer,
		observer:  observer,
		cfg:       cfg,
	}
}

// Sign draws a signature image onto an attachment and stores the result.
func (s *Service) Sign(ctx context.Context, req SignRequest) (res *Result, err error) {
	defer s.observe("sign", time.Now(), &err)

	doc, att, err := s.attachment(ctx, req.Barcode, req.AttachmentIndex)
	if err != nil {
		return nil, err
	}
	source, err := s.fetchAttachment(ctx, att)
	if err != nil {
		return nil, err
	}
	img, err := s.signatureImage(ctx, req.Signature)
	if err != nil {
		return nil, err
	}
	out, g, err := s.ComposeFiles(source, img, req.Placement)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, doc, req.AttachmentIndex, out, g)
}

// Stamp renders stamp artwork and draws it onto an attachment.
func (s *Service) Stamp(ctx context.Context, req StampRequest) (res *Result, err error) {
	defer s.observe("stamp", time.Now(), &err)

	doc, att, err := s.attachment(ctx, req.Barcode, req.AttachmentIndex)
	if err != nil {
		return nil, err
	}
	source, err := s.fetchAttachment(ctx, att)
	if err != nil {
		return nil, err
	}
	art, err := s.RenderArtwork(ctx, doc, req)
	if err != nil {
		return nil, err
	}
	out, g, err := s.ComposeFiles(source, art.PNG, req.Placement)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, doc, req.AttachmentIndex, out, g)
}

// Preview runs sign or stamp without persisting and returns the document as
// a data URL.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (dataURL string, err error) {
	defer s.observe("preview", time.Now(), &err)

	var out []byte
	switch {
	case req.Sign != nil:
		_, att, err := s.attachment(ctx, req.Sign.Barcode, req.Sign.AttachmentIndex)
		if err != nil {
			return "", err
		}
		source, err := s.fetchAttachment(ctx, att)
		if err != nil {
			return "", err
		}
		img, err := s.signatureImage(ctx, req.Sign.Signature)
		if err != nil {
			return "", err
		}
		if out, _, err = s.ComposeFiles(source, img, req.Sign.Placement); err != nil {
			return "", err
		}
	case req.Stamp != nil:
		doc, att, err := s.attachment(ctx, req.Stamp.Barcode, req.Stamp.AttachmentIndex)
		if err != nil {
			return "", err
		}
		source, err := s.fetchAttachment(ctx, att)
		if err != nil {
			return "", err
		}
		art, err := s.RenderArtwork(ctx, doc, *req.Stamp)
		if err != nil {
			return "", err
		}
		if out, _, err = s.ComposeFiles(source, art.PNG, req.Stamp.Placement); err != nil {
			return "", err
		}
	default:
		return "", apperr.Errorf(apperr.KindInvalidRequest, "signing.Preview", "preview needs a sign or stamp request")
	}
	return DataURL(out), nil
}

// DataURL encodes a PDF as a data URL.
func DataURL(data []byte) string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data)
}

// RenderArtwork renders the stamp image for req against doc.
func (s *Service) RenderArtwork(ctx context.Context, doc *documents.Document, req StampRequest) (stamp.Output, error) {
	if s.renderer == nil {
		return stamp.Output{}, apperr.Errorf(apperr.KindConfiguration, "signing.RenderArtwork", "no stamp font configured")
	}
	value := req.BarcodeValue
	if value == "" && doc != nil {
		value = doc.Barcode
	}
	date := s.cfg.Clock()
	if req.Date != nil {
		date = *req.Date
	}
	width := req.StampWidth
	if width <= 0 {
		width = s.cfg.DefaultWidth
	}
	out, err := s.renderer.RenderContext(ctx, stamp.Artwork{
		Barcode:    value,
		Company:    req.Company,
		Attachment: req.AttachmentText,
		Date:       date.Format(DateLayout),
		Width:      width,
	})
	if err != nil {
		return stamp.Output{}, apperr.E(apperr.KindInvalidRequest, "signing.RenderArtwork", err)
	}
	return out, nil
}

// ComposeFiles rotates the target page if asked, maps the placement against
// the real image aspect and draws img onto the page.
func (s *Service) ComposeFiles(source, img []byte, p Placement) ([]byte, geometry.PdfGeometry, error) {
	info, err := pdf.Inspect(source)
	if err != nil {
		return nil, geometry.PdfGeometry{}, err
	}
	page := pdf.ClampPage(p.PageIndex, info.PageCount)
	size := info.Page(page)

	if p.Rotation != 0 && geometry.IsRightAngle(p.Rotation) {
		if source, err = pdf.Rotate(source, page, p.Rotation); err != nil {
			return nil, geometry.PdfGeometry{}, err
		}
		size = size.Rotate(p.Rotation)
	}

	aspect, err := pdf.ImageAspect(img)
	if err != nil {
		return nil, geometry.PdfGeometry{}, err
	}
	g := geometry.MapPlacement(p.Spec, size, aspect, float64(s.cfg.DefaultWidth))

	out, err := pdf.Composite(source, img, g, page, pdf.Options{DefaultPlacement: p.Spec == nil})
	if err != nil {
		return nil, geometry.PdfGeometry{}, err
	}
	return out, g, nil
}

func (s *Service) attachment(ctx context.Context, barcode string, index int) (*documents.Document, documents.Attachment, error) {
	if barcode == "" {
		return nil, documents.Attachment{}, apperr.Errorf(apperr.KindInvalidRequest, "signing.attachment", "barcode is required")
	}
	doc, err := s.docs.GetDocumentByBarcode(ctx, barcode)
	if err != nil {
		return nil, documents.Attachment{}, err
	}
	if index < 0 || index >= len(doc.Attachments) {
		return nil, documents.Attachment{}, apperr.Errorf(apperr.KindInvalidRequest, "signing.attachment",
			"attachment index %d out of range, document has %d", index, len(doc.Attachments))
	}
	return doc, doc.Attachments[index], nil
}

func (s *Service) fetchAttachment(ctx context.Context, att documents.Attachment) ([]byte, error) {
	data, err := s.fetcher.Fetch(ctx, storage.Candidates(att, s.cfg.Bucket)...)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment: %w", err)
	}
	return data, nil
}

func (s *Service) signatureImage(ctx context.Context, ref ImageRef) ([]byte, error) {
	if len(ref.Data) > 0 {
		return ref.Data, nil
	}
	if ref.Attachment == nil {
		return nil, apperr.Errorf(apperr.KindInvalidRequest, "signing.signatureImage", "signature image is required")
	}
	data, err := s.fetcher.Fetch(ctx, storage.Candidates(*ref.Attachment, s.cfg.Bucket)...)
	if err != nil {
		return nil, fmt.Errorf("fetch signature: %w", err)
	}
	return data, nil
}

func (s *Service) persist(ctx context.Context, doc *documents.Document, index int, data []byte, g geometry.PdfGeometry) (*Result, error) {
	att := doc.Attachments[index]
	key := utils.StampedKey(doc.ID, attachmentName(att))

	up, err := s.persister.PersistAndVerify(ctx, key, data, pdfContentType, storage.Options{
		Verify:      s.cfg.Verify,
		MaxAttempts: s.cfg.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	now := s.cfg.Clock()
	att.URL = up.URL
	att.Key = up.Key
	att.Bucket = s.cfg.Bucket
	att.Size = up.Size
	att.StampedAt = &now

	attachments := append([]documents.Attachment(nil), doc.Attachments...)
	attachments[index] = att
	if err := s.docs.UpdateAttachments(ctx, doc.ID, attachments); err != nil {
		return nil, fmt.Errorf("update attachments: %w", err)
	}

	logger.Info(ctx, "attachment stamped", logger.Fields{
		"document_id": doc.ID,
		"index":       index,
		"key":         up.Key,
		"verified":    up.Verified,
		"size":        up.Size,
	})
	return &Result{DocumentID: doc.ID, Index: index, Attachment: att, Upload: up, Geometry: g}, nil
}

func attachmentName(att documents.Attachment) string {
	switch {
	case att.Name != "":
		return att.Name
	case att.Key != "":
		return path.Base(att.Key)
	}
	if key, ok := storage.ResolveKey(att, ""); ok {
		return path.Base(key)
	}
	return ""
}

func (s *Service) observe(flow string, start time.Time, err *error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	if *err != nil {
		outcome = apperr.KindOf(*err).String()
	}
	s.observer.RecordRequest(flow, outcome, time.Since(start))
}
