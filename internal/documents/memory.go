package documents

import (
	"context"
	"sync"

	"go-stamppdf/internal/apperr"
)

// MemoryStore keeps documents in process. It backs local development and
// tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[int64]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[int64]*Document)}
}

// Put stores a copy of doc, assigning an ID when it has none, and returns
// the ID.
func (s *MemoryStore) Put(doc Document) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == 0 {
		s.nextID++
		doc.ID = s.nextID
	} else if doc.ID > s.nextID {
		s.nextID = doc.ID
	}
	s.docs[doc.ID] = cloneDocument(&doc)
	return doc.ID
}

func (s *MemoryStore) GetDocumentByBarcode(ctx context.Context, barcode string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.Barcode == barcode {
			return cloneDocument(doc), nil
		}
	}
	return nil, apperr.Errorf(apperr.KindNotFound, "documents.GetDocumentByBarcode", "no document with barcode %q", barcode)
}

func (s *MemoryStore) UpdateAttachments(ctx context.Context, id int64, attachments []Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return apperr.Errorf(apperr.KindNotFound, "documents.UpdateAttachments", "no document with id %d", id)
	}
	doc.Attachments = append([]Attachment(nil), attachments...)
	return nil
}

func cloneDocument(doc *Document) *Document {
	out := *doc
	out.Attachments = append([]Attachment(nil), doc.Attachments...)
	return &out
}

var _ Store = (*MemoryStore)(nil)
