package core

import (
	"context"
	"fmt"
	"io"

	"opstrack/internal/blob"
	"opstrack/pkg/domain"
)

// ErrNoBlobStore is returned by document file operations when the service was
// built without WithBlobStore.
var ErrNoBlobStore = fmt.Errorf("no blob store configured")

// documentKey derives the blob key for a document payload. Keys embed the id
// so re-uploads under a changed file name never collide across documents.
func documentKey(id int64, fileName string) string {
	return fmt.Sprintf("documents/%d/%s", id, fileName)
}

// AttachDocumentFile streams a payload into the blob store and records the
// resulting size, content type, and storage key on the document. The upload
// is audited with its own trail entry.
func (s *Service) AttachDocumentFile(ctx context.Context, actor, documentID int64, r io.Reader, opts blob.PutOptions) (Document, blob.Info, error) {
	var updated Document
	var info blob.Info
	err := s.instrument(ctx, "attach_document_file", func(ctx context.Context) error {
		if s.blobs == nil {
			return ErrNoBlobStore
		}
		doc, ok := s.store.GetDocument(documentID)
		if !ok {
			return domain.NotFoundError{Entity: EntityDocument, ID: documentID}
		}
		key := documentKey(doc.ID, doc.FileName)
		var err error
		info, err = s.blobs.Put(ctx, key, r, opts)
		if err != nil {
			return fmt.Errorf("store payload for document %d: %w", documentID, err)
		}
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateDocument(documentID, func(d *Document) error {
				d.StorageKey = info.Key
				d.SizeBytes = info.Size
				if info.ContentType != "" {
					d.ContentType = info.ContentType
				}
				return nil
			})
			return txErr
		})
		if err != nil {
			return fmt.Errorf("record payload metadata for document %d: %w", documentID, err)
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpload, EntityDocument, documentID, fmt.Sprintf("document %s payload uploaded", updated.Title))
	})
	return updated, info, err
}

// OpenDocumentFile opens the stored payload of a document for reading. The
// caller owns the returned ReadCloser.
func (s *Service) OpenDocumentFile(ctx context.Context, documentID int64) (Document, io.ReadCloser, error) {
	if s.blobs == nil {
		return Document{}, nil, ErrNoBlobStore
	}
	doc, ok := s.store.GetDocument(documentID)
	if !ok {
		return Document{}, nil, domain.NotFoundError{Entity: EntityDocument, ID: documentID}
	}
	if doc.StorageKey == "" {
		return Document{}, nil, fmt.Errorf("document %d has no stored payload", documentID)
	}
	_, rc, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open payload for document %d: %w", documentID, err)
	}
	return doc, rc, nil
}
