package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/models"
)

var gdansk = geo.Coordinate{Latitude: 54.473965, Longitude: 18.50667}

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testDevice(id int64, c geo.Coordinate) *models.HazardDevice {
	return &models.HazardDevice{
		ID:       id,
		Type:     models.HazardTypeFire,
		Location: models.LocationFrom(c),
		IsAlert:  true,
	}
}

func TestSQLiteDB_UpsertAndGetDevice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertDevice(ctx, testDevice(1, gdansk)); err != nil {
		t.Fatalf("UpsertDevice failed: %v", err)
	}

	got, err := db.GetDevice(ctx, 1)
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected device, got nil")
	}
	if got.Type != models.HazardTypeFire || !got.IsAlert {
		t.Errorf("unexpected device: %+v", got)
	}

	// Overwrite retires the device.
	retired := testDevice(1, gdansk)
	retired.IsAlert = false
	if err := db.UpsertDevice(ctx, retired); err != nil {
		t.Fatalf("UpsertDevice failed: %v", err)
	}

	active, err := db.ListActiveDevices(ctx)
	if err != nil {
		t.Fatalf("ListActiveDevices failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active devices, got %d", len(active))
	}
}

func TestSQLiteDB_GetDevice_Missing(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetDevice(context.Background(), 404)
	if err != nil {
		t.Fatalf("GetDevice failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing device, got %+v", got)
	}
}

func TestSQLiteDB_SearchDevices(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	near := geo.Coordinate{Latitude: gdansk.Latitude + 0.001, Longitude: gdansk.Longitude}  // ~110 m
	far := geo.Coordinate{Latitude: gdansk.Latitude + 0.02, Longitude: gdansk.Longitude}    // ~2.2 km
	veryFar := geo.Coordinate{Latitude: gdansk.Latitude + 0.2, Longitude: gdansk.Longitude} // ~22 km

	db.UpsertDevice(ctx, testDevice(1, far))
	db.UpsertDevice(ctx, testDevice(2, near))
	db.UpsertDevice(ctx, testDevice(3, veryFar))

	retired := testDevice(4, near)
	retired.IsAlert = false
	db.UpsertDevice(ctx, retired)

	got, err := db.SearchDevices(ctx, gdansk, 6000)
	if err != nil {
		t.Fatalf("SearchDevices failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(got))
	}
	// Ordered by distance: near first.
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("expected order [2,1], got [%d,%d]", got[0].ID, got[1].ID)
	}
}

func TestSQLiteDB_UsersWithin(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.UpsertPosition(ctx, "close", geo.Coordinate{Latitude: gdansk.Latitude + 0.001, Longitude: gdansk.Longitude})
	db.UpsertPosition(ctx, "distant", geo.Coordinate{Latitude: gdansk.Latitude + 0.1, Longitude: gdansk.Longitude})

	users, err := db.UsersWithin(ctx, gdansk, 600)
	if err != nil {
		t.Fatalf("UsersWithin failed: %v", err)
	}

	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].UserID != "close" {
		t.Errorf("expected user 'close', got %q", users[0].UserID)
	}
	if users[0].Distance <= 0 || users[0].Distance > 600 {
		t.Errorf("unexpected distance: %f", users[0].Distance)
	}
}

func TestSQLiteDB_UpsertPosition_LastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.UpsertPosition(ctx, "u1", geo.Coordinate{Latitude: 10, Longitude: 10})
	db.UpsertPosition(ctx, "u1", gdansk)

	users, err := db.UsersWithin(ctx, gdansk, 100)
	if err != nil {
		t.Fatalf("UsersWithin failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected updated position near center, got %d users", len(users))
	}
}

func TestSQLiteDB_MarkEntered_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.MarkEntered(ctx, 1, "u1", false)
	if err != nil {
		t.Fatalf("MarkEntered failed: %v", err)
	}
	if !created {
		t.Error("first MarkEntered should create the record")
	}

	created, err = db.MarkEntered(ctx, 1, "u1", false)
	if err != nil {
		t.Fatalf("MarkEntered failed: %v", err)
	}
	if created {
		t.Error("second MarkEntered must not create a duplicate")
	}

	records, err := db.ListEntered(ctx)
	if err != nil {
		t.Fatalf("ListEntered failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected exactly 1 record, got %d", len(records))
	}
}

func TestSQLiteDB_MarkEntered_ErrorFlagEscalatesOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.MarkEntered(ctx, 1, "u1", false)

	// Warning -> critical escalates.
	if _, err := db.MarkEntered(ctx, 1, "u1", true); err != nil {
		t.Fatalf("MarkEntered failed: %v", err)
	}
	records, _ := db.ListEntered(ctx)
	if len(records) != 1 || !records[0].Error {
		t.Fatalf("expected escalated record, got %+v", records)
	}

	// A later warning-only pass must not reset the flag.
	if _, err := db.MarkEntered(ctx, 1, "u1", false); err != nil {
		t.Fatalf("MarkEntered failed: %v", err)
	}
	records, _ = db.ListEntered(ctx)
	if !records[0].Error {
		t.Error("error flag must never de-escalate")
	}
}

func TestSQLiteDB_MarkEntered_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		createdSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := db.MarkEntered(ctx, 7, "racer", false)
			if err != nil {
				t.Errorf("MarkEntered failed: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdSeen++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdSeen != 1 {
		t.Errorf("expected exactly one creator, got %d", createdSeen)
	}
	records, _ := db.ListEntered(ctx)
	if len(records) != 1 {
		t.Errorf("expected exactly 1 record, got %d", len(records))
	}
}

func TestSQLiteDB_MarkExited(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.MarkEntered(ctx, 1, "u1", false)

	if err := db.MarkExited(ctx, 1, "u1"); err != nil {
		t.Fatalf("MarkExited failed: %v", err)
	}
	entered, err := db.IsEntered(ctx, 1, "u1")
	if err != nil {
		t.Fatalf("IsEntered failed: %v", err)
	}
	if entered {
		t.Error("record should be gone after MarkExited")
	}

	// Deleting an absent pair is a no-op.
	if err := db.MarkExited(ctx, 1, "u1"); err != nil {
		t.Errorf("MarkExited on absent pair failed: %v", err)
	}
}

func TestSQLiteDB_IsEntered(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	entered, err := db.IsEntered(ctx, 5, "u2")
	if err != nil {
		t.Fatalf("IsEntered failed: %v", err)
	}
	if entered {
		t.Error("expected false for missing pair")
	}

	db.MarkEntered(ctx, 5, "u2", true)

	entered, err = db.IsEntered(ctx, 5, "u2")
	if err != nil {
		t.Fatalf("IsEntered failed: %v", err)
	}
	if !entered {
		t.Error("expected true for existing pair")
	}
}

func TestSQLiteDB_RegisterToken(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.RegisterToken(ctx, "u1", "tok-1"); err != nil {
		t.Fatalf("RegisterToken failed: %v", err)
	}
	// Re-registering the same token for another user rebinds it.
	if err := db.RegisterToken(ctx, "u2", "tok-1"); err != nil {
		t.Fatalf("RegisterToken failed: %v", err)
	}
}
