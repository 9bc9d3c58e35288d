/*
service.go - Document generation service

PURPOSE:
  Orchestrates the full path from submitted terms to a stored document:

    terms JSON -> factory -> loan.Calculator / fund.Present
               -> Builder -> Render -> blob.Store + metadata row

  The submitted terms are stored with the metadata row so a document
  can be regenerated later (new prose, new rendering) without the
  caller resubmitting them.

REGENERATION:
  BeginRegeneration marks the row generating, or fails with
  ErrGenerationInProgress. On any failure after that the row is rolled
  back to its previous status and the cause recorded.

SEE ALSO:
  - store/sqlite: Metadata and regeneration guard
  - store/blob: Rendered bodies
*/
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dealforge/docfin/factory"
	"github.com/dealforge/docfin/fund"
	"github.com/dealforge/docfin/loan"
	"github.com/dealforge/docfin/store/blob"
	"github.com/dealforge/docfin/store/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for unknown document kinds or formats.
var ErrInvalidRequest = errors.New("invalid document request")

// MetadataStore is the subset of the sqlite store the service uses.
type MetadataStore interface {
	SaveDocument(ctx context.Context, d sqlite.Document) error
	GetDocument(ctx context.Context, id string) (*sqlite.Document, error)
	ListDocuments(ctx context.Context, dealID string, limit int) ([]sqlite.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	BeginRegeneration(ctx context.Context, id string) (*sqlite.Document, error)
	CompleteRegeneration(ctx context.Context, id, blobKey string, size int64) error
	RollbackRegeneration(ctx context.Context, id string, previous sqlite.DocumentStatus, cause string) error
}

// storedTerms is what the terms_json column holds.
type storedTerms struct {
	Loan         *factory.LoanTermsJSON    `json:"loan,omitempty"`
	Fund         *factory.FundTermsJSON    `json:"fund,omitempty"`
	Illustration *factory.IllustrationJSON `json:"illustration,omitempty"`
}

// Service generates, stores and regenerates documents.
type Service struct {
	calc    *loan.Calculator
	builder *Builder
	terms   *factory.TermsFactory
	meta    MetadataStore
	blobs   blob.Store
	logger  *zap.Logger

	now func() time.Time
}

// NewService wires a service.
func NewService(calc *loan.Calculator, builder *Builder, terms *factory.TermsFactory, meta MetadataStore, blobs blob.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		calc:    calc,
		builder: builder,
		terms:   terms,
		meta:    meta,
		blobs:   blobs,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the generation clock.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// CreateLoanDocument generates and stores a loan document.
func (s *Service) CreateLoanDocument(ctx context.Context, tj factory.LoanTermsJSON, kind loan.DocumentKind, format Format) (*sqlite.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown loan document kind %q", ErrInvalidRequest, kind)
	}
	return s.create(ctx, string(kind), format, storedTerms{Loan: &tj})
}

// CreateFundDocument generates and stores a fund document.
func (s *Service) CreateFundDocument(ctx context.Context, fj factory.FundTermsJSON, kind FundKind, ill *factory.IllustrationJSON, format Format) (*sqlite.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown fund document kind %q", ErrInvalidRequest, kind)
	}
	return s.create(ctx, string(kind), format, storedTerms{Fund: &fj, Illustration: ill})
}

func (s *Service) create(ctx context.Context, kind string, format Format, st storedTerms) (*sqlite.Document, error) {
	if format == "" {
		format = FormatMarkdown
	}
	if !format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, format)
	}

	doc, err := s.layout(ctx, kind, st)
	if err != nil {
		return nil, err
	}
	body, err := Render(doc, format)
	if err != nil {
		return nil, err
	}

	termsJSON, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode terms: %w", err)
	}

	rec := sqlite.Document{
		ID:        uuid.NewString(),
		DealID:    doc.DealID,
		Kind:      kind,
		Title:     doc.Title,
		Format:    string(format),
		Status:    sqlite.StatusReady,
		SizeBytes: int64(len(body)),
		TermsJSON: string(termsJSON),
		Version:   1,
		CreatedAt: s.now().UTC(),
	}
	rec.BlobKey = blob.Key(dealKey(rec.DealID), rec.ID, rec.Version, format.Extension())

	if err := s.blobs.Put(ctx, rec.BlobKey, format.ContentType(), body); err != nil {
		return nil, fmt.Errorf("store document body: %w", err)
	}
	if err := s.meta.SaveDocument(ctx, rec); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	s.logger.Info("document generated",
		zap.String("op", "document.Create"),
		zap.String("document_id", rec.ID),
		zap.String("deal_id", rec.DealID),
		zap.String("kind", kind),
		zap.Int("bytes", len(body)),
	)
	return s.meta.GetDocument(ctx, rec.ID)
}

// Regenerate rebuilds a stored document from its stored terms.
func (s *Service) Regenerate(ctx context.Context, id string) (*sqlite.Document, error) {
	prev, err := s.meta.BeginRegeneration(ctx, id)
	if err != nil {
		return nil, err
	}

	key, size, err := s.regenerate(ctx, prev)
	if err != nil {
		// the request context may already be done; rollback must still land
		rbCtx := context.WithoutCancel(ctx)
		if rbErr := s.meta.RollbackRegeneration(rbCtx, id, prev.Status, err.Error()); rbErr != nil {
			s.logger.Error("regeneration rollback failed",
				zap.String("op", "document.Regenerate"),
				zap.String("document_id", id),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	if err := s.meta.CompleteRegeneration(ctx, id, key, size); err != nil {
		return nil, err
	}
	s.logger.Info("document regenerated",
		zap.String("op", "document.Regenerate"),
		zap.String("document_id", id),
		zap.Int("version", prev.Version+1),
	)
	return s.meta.GetDocument(ctx, id)
}

func (s *Service) regenerate(ctx context.Context, prev *sqlite.Document) (string, int64, error) {
	var st storedTerms
	if err := json.Unmarshal([]byte(prev.TermsJSON), &st); err != nil {
		return "", 0, fmt.Errorf("decode stored terms: %w", err)
	}

	doc, err := s.layout(ctx, prev.Kind, st)
	if err != nil {
		return "", 0, err
	}
	format := Format(prev.Format)
	body, err := Render(doc, format)
	if err != nil {
		return "", 0, err
	}

	key := blob.Key(dealKey(prev.DealID), prev.ID, prev.Version+1, format.Extension())
	if err := s.blobs.Put(ctx, key, format.ContentType(), body); err != nil {
		return "", 0, fmt.Errorf("store document body: %w", err)
	}
	return key, int64(len(body)), nil
}

// layout builds the document tree for stored terms.
func (s *Service) layout(ctx context.Context, kind string, st storedTerms) (*Document, error) {
	today := civil.DateOf(s.now())

	switch {
	case st.Loan != nil:
		terms, err := s.terms.LoanFromJSON(*st.Loan)
		if err != nil {
			return nil, err
		}
		pkg, err := s.calc.Build(ctx, terms, loan.DocumentKind(kind), today)
		if err != nil {
			return nil, err
		}
		return s.builder.Loan(ctx, pkg)

	case st.Fund != nil:
		terms, err := s.terms.FundFromJSON(*st.Fund)
		if err != nil {
			return nil, err
		}
		ill, err := s.terms.IllustrationFromJSON(st.Illustration)
		if err != nil {
			return nil, err
		}
		p, err := fund.Present(terms, ill)
		if err != nil {
			return nil, err
		}
		return s.builder.Fund(ctx, p, FundKind(kind), today)

	default:
		return nil, fmt.Errorf("%w: no terms", ErrInvalidRequest)
	}
}

// Get returns document metadata.
func (s *Service) Get(ctx context.Context, id string) (*sqlite.Document, error) {
	return s.meta.GetDocument(ctx, id)
}

// List returns document metadata, newest first.
func (s *Service) List(ctx context.Context, dealID string, limit int) ([]sqlite.Document, error) {
	return s.meta.ListDocuments(ctx, dealID, limit)
}

// Delete removes the metadata row. Stored bodies are kept; object storage
// lifecycle rules expire them.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.meta.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.logger.Info("document deleted", zap.String("op", "document.Delete"), zap.String("document_id", id))
	return nil
}

// Content returns the rendered body and its content type.
func (s *Service) Content(ctx context.Context, id string) ([]byte, string, error) {
	rec, err := s.meta.GetDocument(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if rec.BlobKey == "" {
		return nil, "", fmt.Errorf("document %s has no body yet", id)
	}
	body, err := s.blobs.Get(ctx, rec.BlobKey)
	if err != nil {
		return nil, "", err
	}
	return body, Format(rec.Format).ContentType(), nil
}

func dealKey(dealID string) string {
	if dealID == "" {
		return "unassigned"
	}
	return dealID
}
