package expense

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/expensesnap/internal/extraction"
)

// IDGenerator generates unique IDs for expense records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates record IDs using UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense operations: the upload pipeline, corrections,
// queries, dashboard aggregation and export
type Service struct {
	db          Store
	extractor   extraction.Extractor
	images      ImageStore
	validator   Validator
	topVendors  int
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db Store, extractor extraction.Extractor, images ImageStore, validator Validator, topVendors int) *Service {
	return NewServiceWithDeps(db, extractor, images, validator, topVendors, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db Store, extractor extraction.Extractor, images ImageStore, validator Validator, topVendors int, idGen IDGenerator, timeSrc TimeSource) *Service {
	if topVendors <= 0 {
		topVendors = 5
	}
	return &Service{
		db:          db,
		extractor:   extractor,
		images:      images,
		validator:   validator,
		topVendors:  topVendors,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// IngestReceipt runs the upload pipeline for one receipt image: store the
// image, extract fields, validate them into a record, persist it. On
// extraction or validation failure no record is created, but the stored
// image is retained so the user can retry.
func (s *Service) IngestReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Record, error) {
	now := s.timeSource.Now()

	ref, err := s.images.Save(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: saving image: %v", ErrStoreUnavailable, err)
	}

	result, err := s.extractor.Extract(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to extract receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"image_ref", ref,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	record, err := s.validator.Candidate(result, now)
	if err != nil {
		slog.Warn("Extraction produced no usable amount",
			"filename", filename,
			"image_ref", ref,
			"amount_text", result.Amount,
		)
		return nil, err
	}

	record.ID = s.idGenerator.Generate()
	record.ImageRef = ref
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := s.db.CreateExpense(record); err != nil {
		return nil, err
	}

	return record, nil
}

// Correction is a partial set of field overrides for one record. Nil fields
// are left untouched.
type Correction struct {
	Vendor   *string `json:"vendor,omitempty"`
	Date     *string `json:"date,omitempty"`
	Amount   *string `json:"amount,omitempty"`
	Currency *string `json:"currency,omitempty"`
	Category *string `json:"category,omitempty"`
}

// applies reports whether the correction supplies at least one field
func (c Correction) applies() bool {
	return c.Vendor != nil || c.Date != nil || c.Amount != nil || c.Currency != nil || c.Category != nil
}

// CorrectExpense applies a human correction to a stored record. Supplied
// fields win over the stored values (last write wins per field); the record
// becomes source=corrected and its updated_at reflects the applied write.
// Unlike extraction output, corrections are rejected outright when a
// supplied value is invalid, or when no field is supplied at all.
func (s *Service) CorrectExpense(id string, c Correction) (*Record, error) {
	if !c.applies() {
		return nil, fmt.Errorf("correction supplies no fields")
	}
	now := s.timeSource.Now()
	updated, err := s.db.UpdateExpense(id, func(r *Record) error {
		if c.Vendor != nil {
			r.Vendor = strings.TrimSpace(*c.Vendor)
		}
		if c.Date != nil {
			date, ok := ParseDate(*c.Date)
			if !ok {
				return fmt.Errorf("invalid date %q", *c.Date)
			}
			r.Date = date
		}
		if c.Amount != nil {
			amount, err := ParseAmount(*c.Amount)
			if err != nil {
				return err
			}
			r.Amount = amount
		}
		if c.Currency != nil {
			code := strings.ToUpper(strings.TrimSpace(*c.Currency))
			if !SupportedCurrency(code) {
				return fmt.Errorf("unsupported currency %q", *c.Currency)
			}
			r.Currency = code
		}
		if c.Category != nil {
			category := ParseCategory(*c.Category)
			if category == CategoryUncategorized && normalizeCategoryKey(*c.Category) != string(CategoryUncategorized) {
				return fmt.Errorf("unknown category %q", *c.Category)
			}
			r.Category = category
		}
		r.Source = SourceCorrected
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("correcting expense: %w", err)
	}
	return updated, nil
}

// GetExpense retrieves a record by ID
func (s *Service) GetExpense(id string) (*Record, error) {
	record, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return record, nil
}

// ListExpenses returns the records matching q in canonical order
func (s *Service) ListExpenses(q Query) ([]*Record, error) {
	records, err := s.db.ListExpenses(q)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return records, nil
}

// DeleteExpense removes a record. The receipt image is kept; other records
// may reference the same content hash.
func (s *Service) DeleteExpense(id string) error {
	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return nil
}

// GetReceiptImage retrieves the stored image for a record
func (s *Service) GetReceiptImage(id string) ([]byte, string, error) {
	record, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if record.ImageRef == "" {
		return nil, "", fmt.Errorf("%w: expense %s has no image", ErrNotFound, id)
	}
	data, contentType, err := s.images.Get(record.ImageRef)
	if err != nil {
		// The record outlived its image; to the client that image is gone
		return nil, "", fmt.Errorf("%w: image %s: %v", ErrNotFound, record.ImageRef, err)
	}
	return data, contentType, nil
}

// Dashboard computes the aggregates for the records matching q, from one
// consistent snapshot
func (s *Service) Dashboard(q Query) (*Summary, error) {
	records, err := s.db.ListExpenses(q)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return Summarize(records, s.topVendors), nil
}

// Export renders the records matching q into an xlsx workbook
func (s *Service) Export(q Query) ([]byte, error) {
	records, err := s.db.ListExpenses(q)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return ExportWorkbook(records, Summarize(records, s.topVendors))
}
