package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"manuals-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func seededStore() *fakeUploadStore {
	store := &fakeUploadStore{}
	for _, r := range []models.UploadRecord{
		{CompanyName: "Acme", ProductName: "W-100", Filename: "w100.pdf", URI: "uploads/w100.pdf"},
		{CompanyName: "Globex", ProductName: "G-7", Filename: "g7.pdf", URI: "uploads/g7.pdf"},
		{CompanyName: "Acme", ProductName: "W-200", Filename: "w200.pdf", URI: "uploads/w200.pdf"},
	} {
		rec := r
		_, _ = store.Insert(context.Background(), &rec)
	}
	return store
}

func TestCatalogCompaniesAreDistinct(t *testing.T) {
	catalog := NewCatalogService(seededStore(), NewMemorySessionStore())

	companies, err := catalog.Companies(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Acme", "Globex"}, companies)
}

func TestCatalogCurrentCompany(t *testing.T) {
	ctx := context.Background()
	session := NewMemorySessionStore()

	empty := NewCatalogService(&fakeUploadStore{}, session)
	company, err := empty.CurrentCompany(ctx)
	require.NoError(t, err)
	assert.Nil(t, company)

	catalog := NewCatalogService(seededStore(), session)
	company, err = catalog.CurrentCompany(ctx)
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Acme", *company)

	require.NoError(t, session.SetCurrentCompany(ctx, "Globex"))
	company, err = catalog.CurrentCompany(ctx)
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "Globex", *company)
}

func TestCatalogModels(t *testing.T) {
	store := seededStore()
	catalog := NewCatalogService(store, NewMemorySessionStore())

	entries, err := catalog.Models(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ModelEntry{
		ID:          store.records[0].ID.Hex(),
		CompanyName: "Acme",
		ProductName: "W-100",
		Filename:    "w100.pdf",
		URI:         "uploads/w100.pdf",
	}, entries[0])
	assert.Equal(t, "W-200", entries[1].ProductName)

	entries, err = catalog.Models(context.Background(), "Initech")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCatalogPropagatesStoreErrors(t *testing.T) {
	store := &fakeUploadStore{queryErr: errors.New("mongo down")}
	catalog := NewCatalogService(store, NewMemorySessionStore())

	_, err := catalog.Companies(context.Background())
	assert.ErrorContains(t, err, "mongo down")
	_, err = catalog.CurrentCompany(context.Background())
	assert.ErrorContains(t, err, "mongo down")
}

func TestExportModelsWorkbook(t *testing.T) {
	export := NewExportService(NewCatalogService(seededStore(), NewMemorySessionStore()))

	data, count, err := export.ModelsWorkbook(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(modelsSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Company Name", "Product Name", "Filename", "URI"}, rows[0])
	assert.Equal(t, "W-100", rows[1][2])
	assert.Equal(t, "uploads/w200.pdf", rows[2][4])

	total, err := f.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}
