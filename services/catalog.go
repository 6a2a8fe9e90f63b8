package services

import (
	"context"

	"manuals-backend/models"
)

// CatalogStore answers the read-only questions about upload records.
type CatalogStore interface {
	DistinctCompanies(ctx context.Context) ([]string, error)
	LatestCompany(ctx context.Context) (string, bool, error)
	FindByCompany(ctx context.Context, company string) ([]models.UploadRecord, error)
}

// CatalogService lists the companies and products that have been uploaded.
type CatalogService struct {
	store   CatalogStore
	session SessionStore
}

func NewCatalogService(store CatalogStore, session SessionStore) *CatalogService {
	return &CatalogService{store: store, session: session}
}

func (s *CatalogService) Companies(ctx context.Context) ([]string, error) {
	return s.store.DistinctCompanies(ctx)
}

// CurrentCompany returns the company of the last upload in this process,
// falling back to the newest stored record. nil means nothing was uploaded.
func (s *CatalogService) CurrentCompany(ctx context.Context) (*string, error) {
	company, ok, err := s.session.CurrentCompany(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return &company, nil
	}

	company, ok, err = s.store.LatestCompany(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &company, nil
}

// Models returns every record of company.
func (s *CatalogService) Models(ctx context.Context, company string) ([]models.ModelEntry, error) {
	records, err := s.store.FindByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	entries := make([]models.ModelEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.ModelEntry{
			ID:          r.ID.Hex(),
			CompanyName: r.CompanyName,
			ProductName: r.ProductName,
			Filename:    r.Filename,
			URI:         r.URI,
		})
	}
	return entries, nil
}
