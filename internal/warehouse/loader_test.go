package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// fakeStore is an in-memory warehouse with get-or-create dimensions and a
// fixed calendar.
type fakeStore struct {
	dims       map[string]map[string]int64 // table -> natural value -> surrogate
	dimExtras  map[string]map[string]map[string]interface{}
	dates      map[string]int64 // "2006-01-02" -> date_sk
	facts      []models.FactPriceObservation
	nextID     int64
	resolveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dims:      map[string]map[string]int64{},
		dimExtras: map[string]map[string]map[string]interface{}{},
		dates:     map[string]int64{},
		nextID:    1,
	}
}

func (f *fakeStore) ResolveKey(_ context.Context, dim Dimension, value string, extras map[string]interface{}) (int64, error) {
	if f.resolveErr != nil {
		return 0, f.resolveErr
	}
	byValue, ok := f.dims[dim.Table]
	if !ok {
		byValue = map[string]int64{}
		f.dims[dim.Table] = byValue
		f.dimExtras[dim.Table] = map[string]map[string]interface{}{}
	}
	if id, ok := byValue[value]; ok {
		return id, nil
	}
	id := f.nextID
	f.nextID++
	byValue[value] = id
	f.dimExtras[dim.Table][value] = extras
	return id, nil
}

func (f *fakeStore) DateKey(_ context.Context, date time.Time) (int64, bool, error) {
	sk, ok := f.dates[date.Format("2006-01-02")]
	return sk, ok, nil
}

func (f *fakeStore) InsertFact(_ context.Context, fact *models.FactPriceObservation) error {
	f.facts = append(f.facts, *fact)
	return nil
}

func observation(name, brand string, price float64, at time.Time) models.CleanRecord {
	return models.CleanRecord{
		ProductName: name,
		Brand:       brand,
		Price:       price,
		SourceName:  "cellphones",
		SourceURL:   "https://cellphones.com.vn",
		FullDate:    at,
	}
}

func TestLoadResolvesAndInserts(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	store.dates["2025-03-14"] = 20250314

	result, err := NewLoader(store).Load(context.Background(), []models.CleanRecord{
		observation("iPhone 15", "Apple", 29990000, at),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Loaded != 1 || result.Skipped != 0 {
		t.Fatalf("result = %+v, want one loaded", result)
	}

	if len(store.facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(store.facts))
	}
	fact := store.facts[0]
	if fact.DateSK != 20250314 {
		t.Errorf("DateSK = %d, want 20250314", fact.DateSK)
	}
	if fact.Price != 29990000 {
		t.Errorf("Price = %v, want 29990000", fact.Price)
	}
	if fact.ProductID == 0 || fact.BrandID == 0 || fact.SourceID == 0 {
		t.Errorf("unresolved surrogate keys in fact %+v", fact)
	}

	// The product row carries its brand's surrogate, not the brand name.
	extras := store.dimExtras["dim_product"]["iPhone 15"]
	if extras["brand_id"] != fact.BrandID {
		t.Errorf("product extras brand_id = %v, want %d", extras["brand_id"], fact.BrandID)
	}
}

func TestLoadReusesDimensionRows(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	store.dates["2025-03-14"] = 20250314

	batch := []models.CleanRecord{
		observation("iPhone 15", "Apple", 29990000, at),
		observation("iPhone 15 Pro", "Apple", 34990000, at),
		observation("iPhone 15", "Apple", 28990000, at),
	}
	result, err := NewLoader(store).Load(context.Background(), batch)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Loaded != 3 {
		t.Fatalf("Loaded = %d, want 3", result.Loaded)
	}

	if got := len(store.dims["dim_brand"]); got != 1 {
		t.Errorf("got %d brand rows, want 1", got)
	}
	if got := len(store.dims["dim_product"]); got != 2 {
		t.Errorf("got %d product rows, want 2", got)
	}
	if got := len(store.dims["dim_source"]); got != 1 {
		t.Errorf("got %d source rows, want 1", got)
	}
	if store.facts[0].ProductID != store.facts[2].ProductID {
		t.Error("same product resolved to different surrogates")
	}
}

func TestLoadSkipsMissingDateDim(t *testing.T) {
	store := newFakeStore()
	known := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	unknown := time.Date(1999, 1, 1, 10, 0, 0, 0, time.UTC)
	store.dates["2025-03-14"] = 20250314

	result, err := NewLoader(store).Load(context.Background(), []models.CleanRecord{
		observation("iPhone 15", "Apple", 29990000, known),
		observation("Nokia 3310", "Nokia", 500000, unknown),
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if result.Seen != 2 || result.Loaded != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v, want 1 loaded and 1 skipped of 2", result)
	}
	if len(store.facts) != 1 {
		t.Errorf("got %d facts, want 1", len(store.facts))
	}
}

func TestLoadSkipsEmptyName(t *testing.T) {
	store := newFakeStore()
	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	store.dates["2025-03-14"] = 20250314

	result, err := NewLoader(store).Load(context.Background(), []models.CleanRecord{
		{FullDate: at, Price: 1000},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if result.Skipped != 1 || result.Loaded != 0 {
		t.Errorf("result = %+v, want the nameless record skipped", result)
	}
	if len(store.dims) != 0 {
		t.Error("skipped record should not create dimension rows")
	}
}

func TestLoadStoreErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.resolveErr = errors.New("connection refused")
	at := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	_, err := NewLoader(store).Load(context.Background(), []models.CleanRecord{
		observation("iPhone 15", "Apple", 29990000, at),
	})
	if !errors.Is(err, store.resolveErr) {
		t.Fatalf("err = %v, want %v", err, store.resolveErr)
	}
}
