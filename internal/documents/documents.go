// Package documents holds the document and attachment records the stamping
// pipeline reads and updates, and the stores that persist them.
package documents

import (
	"context"
	"time"
)

// Attachment is one file of a document. Key and Bucket address the object in
// storage; URL is a cached retrieval URL that may be signed and may go stale.
type Attachment struct {
	Name      string     `json:"name,omitempty"`
	URL       string     `json:"url"`
	Key       string     `json:"key,omitempty"`
	Bucket    string     `json:"bucket,omitempty"`
	Size      int64      `json:"size,omitempty"`
	StampedAt *time.Time `json:"stampedAt,omitempty"`
}

type Document struct {
	ID          int64        `json:"id"`
	Barcode     string       `json:"barcode"`
	Attachments []Attachment `json:"attachments"`
}

// Store is the document store the pipeline depends on. Transactions are the
// caller's concern.
type Store interface {
	GetDocumentByBarcode(ctx context.Context, barcode string) (*Document, error)
	UpdateAttachments(ctx context.Context, id int64, attachments []Attachment) error
}
