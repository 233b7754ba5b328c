package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

const testUser = "user-1"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Card{},
		&models.Group{},
		&models.CollectionItem{},
		&models.PriceRecord{},
		&models.ShareSnapshot{},
		&models.GroupValueSnapshot{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newTestStore(t *testing.T, db *gorm.DB) *store.Store {
	t.Helper()

	resolver, err := store.NewPriceResolver(db)
	if err != nil {
		t.Fatalf("failed to create resolver: %v", err)
	}
	return store.New(db, resolver)
}

func seedCollection(t *testing.T, st *store.Store) {
	t.Helper()

	ctx := context.Background()
	cards := []struct {
		id  string
		typ models.CollectionType
		qty int
	}{
		{"sv5-123", models.CollectionHave, 2},
		{"sv5-124", models.CollectionHave, 1},
		{"base1-4", models.CollectionWant, 3},
	}
	for _, c := range cards {
		card := models.CardRef{ID: c.id, Name: "Card " + c.id, ImageURL: "https://img.example/" + c.id + ".png"}
		if res := st.AddItem(ctx, testUser, "", c.typ, card, c.qty); res.Status == models.StatusError {
			t.Fatalf("failed to seed %s: %s", c.id, res.Message)
		}
	}
}

func TestCreateAndAccessSnapshot(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")
	ctx := context.Background()

	result, err := svc.CreateSnapshot(ctx, testUser, models.DefaultGroupName, models.ShareScopeHave, 7, SnapshotOptions{})
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}
	if result.ShareID == "" {
		t.Fatal("snapshot has no share id")
	}
	wantURL := "https://vault.example/shared/" + result.ShareID
	if result.URL != wantURL {
		t.Errorf("share URL = %q, want %q", result.URL, wantURL)
	}

	payload, err := svc.AccessSnapshot(ctx, result.ShareID, "")
	if err != nil {
		t.Fatalf("AccessSnapshot failed: %v", err)
	}
	if payload.Scope != models.ShareScopeHave {
		t.Errorf("payload scope = %s, want have", payload.Scope)
	}
	if payload.Permission != models.SharePermissionRead {
		t.Errorf("default permission = %s, want read", payload.Permission)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("payload has %d items, want 2 (have scope only)", len(payload.Items))
	}
	for _, item := range payload.Items {
		if item.Type != models.CollectionHave {
			t.Errorf("have-scoped snapshot contains %s item %s", item.Type, item.CardID)
		}
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")
	ctx := context.Background()

	result, err := svc.CreateSnapshot(ctx, testUser, models.DefaultGroupName, models.ShareScopeGroup, 7, SnapshotOptions{})
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}

	// Mutate the live collection after the snapshot was taken.
	st.RemoveItem(ctx, testUser, "", models.CollectionHave, "sv5-123", false)
	card := models.CardRef{ID: "new-1", Name: "New Card"}
	st.AddItem(ctx, testUser, "", models.CollectionHave, card, 5)

	payload, err := svc.AccessSnapshot(ctx, result.ShareID, "")
	if err != nil {
		t.Fatalf("AccessSnapshot failed: %v", err)
	}
	if len(payload.Items) != 3 {
		t.Fatalf("snapshot has %d items, want the original 3", len(payload.Items))
	}
	for _, item := range payload.Items {
		if item.CardID == "new-1" {
			t.Error("snapshot reflects a mutation made after it was taken")
		}
	}
}

func TestSnapshotExpiry(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")
	ctx := context.Background()

	result, err := svc.CreateSnapshot(ctx, testUser, models.DefaultGroupName, models.ShareScopeHave, 1, SnapshotOptions{})
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}

	// Force the snapshot into the past instead of waiting.
	err = db.Model(&models.ShareSnapshot{}).
		Where("share_id = ?", result.ShareID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	if err != nil {
		t.Fatalf("failed to backdate snapshot: %v", err)
	}

	_, err = svc.AccessSnapshot(ctx, result.ShareID, "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("access to expired snapshot = %v, want ErrNotFound", err)
	}

	// Expired snapshots stay listed for their owner.
	snapshots, err := svc.ListSnapshots(ctx, testUser, models.DefaultGroupName)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(snapshots) != 1 {
		t.Errorf("owner sees %d snapshots, want 1", len(snapshots))
	}
}

func TestSnapshotPassword(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")
	ctx := context.Background()

	result, err := svc.CreateSnapshot(ctx, testUser, models.DefaultGroupName, models.ShareScopeHave, 7, SnapshotOptions{
		PasswordProtected: true,
		Password:          "hunter2",
	})
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}

	// The raw password must never be stored.
	var snapshot models.ShareSnapshot
	if err := db.Where("share_id = ?", result.ShareID).First(&snapshot).Error; err != nil {
		t.Fatalf("snapshot row missing: %v", err)
	}
	if snapshot.PasswordHash == "hunter2" || snapshot.PasswordHash == "" {
		t.Error("password should be stored as a hash")
	}

	if _, err := svc.AccessSnapshot(ctx, result.ShareID, ""); !errors.Is(err, models.ErrValidation) {
		t.Errorf("access without password = %v, want ErrValidation", err)
	}
	if _, err := svc.AccessSnapshot(ctx, result.ShareID, "wrong"); !errors.Is(err, models.ErrValidation) {
		t.Errorf("access with wrong password = %v, want ErrValidation", err)
	}
	if _, err := svc.AccessSnapshot(ctx, result.ShareID, "hunter2"); err != nil {
		t.Errorf("access with correct password failed: %v", err)
	}
}

func TestCreateSnapshotValidation(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")
	ctx := context.Background()

	tests := []struct {
		name    string
		userID  string
		group   string
		scope   models.ShareScope
		days    float64
		opts    SnapshotOptions
		wantErr error
	}{
		{"no user", "", models.DefaultGroupName, models.ShareScopeHave, 7, SnapshotOptions{}, models.ErrAuthRequired},
		{"bad scope", testUser, models.DefaultGroupName, "everything", 7, SnapshotOptions{}, models.ErrValidation},
		{"zero expiry", testUser, models.DefaultGroupName, models.ShareScopeHave, 0, SnapshotOptions{}, models.ErrValidation},
		{"negative expiry", testUser, models.DefaultGroupName, models.ShareScopeHave, -1, SnapshotOptions{}, models.ErrValidation},
		{"protected without password", testUser, models.DefaultGroupName, models.ShareScopeHave, 7, SnapshotOptions{PasswordProtected: true}, models.ErrValidation},
		{"unknown group", testUser, "Nope", models.ShareScopeHave, 7, SnapshotOptions{}, models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSnapshot(ctx, tt.userID, tt.group, tt.scope, tt.days, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateSnapshot error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFractionalExpiry(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewSharingService(db, st, "https://vault.example")

	// 1/24 of a day is one hour.
	before := time.Now()
	result, err := svc.CreateSnapshot(context.Background(), testUser, models.DefaultGroupName, models.ShareScopeHave, 1.0/24, SnapshotOptions{})
	if err != nil {
		t.Fatalf("CreateSnapshot failed: %v", err)
	}

	lifetime := result.ExpiresAt.Sub(before)
	if lifetime < 59*time.Minute || lifetime > 61*time.Minute {
		t.Errorf("fractional-day lifetime = %v, want about one hour", lifetime)
	}
}

func TestAccessUnknownShare(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	svc := NewSharingService(db, st, "https://vault.example")

	_, err := svc.AccessSnapshot(context.Background(), "no-such-share", "")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("access to unknown share = %v, want ErrNotFound", err)
	}
}
