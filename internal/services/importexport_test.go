package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cardvault/backend/internal/models"
)

func TestExportGroup(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewImportExportService(st)
	ctx := context.Background()

	doc, err := svc.ExportGroup(ctx, testUser, models.DefaultGroupName, nil)
	if err != nil {
		t.Fatalf("ExportGroup failed: %v", err)
	}
	if doc.CollectionType != models.CollectionHave {
		t.Errorf("default export type = %s, want have", doc.CollectionType)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("export has %d items, want 2", len(doc.Items))
	}
	// Items come out in a stable order keyed by card id.
	if doc.Items[0].CardID != "sv5-123" || doc.Items[1].CardID != "sv5-124" {
		t.Errorf("export order = [%s %s], want [sv5-123 sv5-124]", doc.Items[0].CardID, doc.Items[1].CardID)
	}

	want := models.CollectionWant
	doc, err = svc.ExportGroup(ctx, testUser, models.DefaultGroupName, &want)
	if err != nil {
		t.Fatalf("ExportGroup(want) failed: %v", err)
	}
	if len(doc.Items) != 1 || doc.Items[0].CardID != "base1-4" || doc.Items[0].Quantity != 3 {
		t.Errorf("want export = %+v, want single base1-4 x3", doc.Items)
	}
}

func TestExportValidation(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	svc := NewImportExportService(st)
	ctx := context.Background()

	if _, err := svc.ExportGroup(ctx, "", models.DefaultGroupName, nil); !errors.Is(err, models.ErrAuthRequired) {
		t.Errorf("unauthenticated export = %v, want ErrAuthRequired", err)
	}

	bad := models.CollectionType("trade")
	if _, err := svc.ExportGroup(ctx, testUser, models.DefaultGroupName, &bad); !errors.Is(err, models.ErrValidation) {
		t.Errorf("export with bad type = %v, want ErrValidation", err)
	}
}

func TestImportMergeAdditive(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewImportExportService(st)
	ctx := context.Background()

	doc, err := svc.ExportGroup(ctx, testUser, models.DefaultGroupName, nil)
	if err != nil {
		t.Fatalf("ExportGroup failed: %v", err)
	}

	// Importing an export of the same group doubles every quantity.
	report, err := svc.ImportDocument(ctx, testUser, doc, ExistingGroup(models.DefaultGroupName))
	if err != nil {
		t.Fatalf("ImportDocument failed: %v", err)
	}
	if report.Imported != 2 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v, want 2 imported and 0 failed", report)
	}

	if qty := st.GetQuantity(ctx, testUser, "", models.CollectionHave, "sv5-123"); qty != 4 {
		t.Errorf("quantity after re-import = %d, want 4 (2 seeded + 2 imported)", qty)
	}
	if qty := st.GetQuantity(ctx, testUser, "", models.CollectionHave, "sv5-124"); qty != 2 {
		t.Errorf("quantity after re-import = %d, want 2", qty)
	}
}

func TestImportIntoNewGroup(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewImportExportService(st)
	ctx := context.Background()

	doc, err := svc.ExportGroup(ctx, testUser, models.DefaultGroupName, nil)
	if err != nil {
		t.Fatalf("ExportGroup failed: %v", err)
	}

	// Importing into a group that must exist fails when it does not.
	if _, err := svc.ImportDocument(ctx, testUser, doc, ExistingGroup("Imported")); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("import into missing group = %v, want ErrValidation", err)
	}

	report, err := svc.ImportDocument(ctx, testUser, doc, NewGroup("Imported"))
	if err != nil {
		t.Fatalf("ImportDocument failed: %v", err)
	}
	if !report.GroupCreated {
		t.Error("report should record that the group was created")
	}
	if qty := st.GetQuantity(ctx, testUser, "Imported", models.CollectionHave, "sv5-123"); qty != 2 {
		t.Errorf("imported quantity = %d, want 2", qty)
	}
}

func TestImportPartialFailure(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewImportExportService(st)
	ctx := context.Background()

	doc := &models.ExportDocument{
		CollectionType: models.CollectionHave,
		Items: []models.ExportItem{
			{CardID: "good-1", CardName: "Good One", Quantity: 1},
			{CardName: "No ID", Quantity: 1},
			{CardID: "bad-qty", CardName: "Bad Quantity", Quantity: 0},
			{CardID: "good-2", CardName: "Good Two", Quantity: 3},
		},
	}

	report, err := svc.ImportDocument(ctx, testUser, doc, ExistingGroup(models.DefaultGroupName))
	if err != nil {
		t.Fatalf("ImportDocument failed: %v", err)
	}
	if report.Imported != 2 {
		t.Errorf("imported = %d, want 2", report.Imported)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(report.Failed))
	}

	// The good items committed despite the failures.
	if qty := st.GetQuantity(ctx, testUser, "", models.CollectionHave, "good-2"); qty != 3 {
		t.Errorf("quantity of good-2 = %d, want 3", qty)
	}
	if st.IsInCollection(ctx, testUser, models.DefaultGroupName, models.CollectionHave, "bad-qty") {
		t.Error("item with invalid quantity must not be imported")
	}
}

func TestImportValidation(t *testing.T) {
	db := newTestDB(t)
	st := newTestStore(t, db)
	seedCollection(t, st)
	svc := NewImportExportService(st)
	ctx := context.Background()

	valid := &models.ExportDocument{
		CollectionType: models.CollectionHave,
		Items:          []models.ExportItem{},
	}

	tests := []struct {
		name    string
		userID  string
		doc     *models.ExportDocument
		target  ImportTarget
		wantErr error
	}{
		{"no user", "", valid, ExistingGroup(models.DefaultGroupName), models.ErrAuthRequired},
		{"nil document", testUser, nil, ExistingGroup(models.DefaultGroupName), models.ErrValidation},
		{"bad type", testUser, &models.ExportDocument{CollectionType: "trade", Items: []models.ExportItem{}}, ExistingGroup(models.DefaultGroupName), models.ErrValidation},
		{"nil items", testUser, &models.ExportDocument{CollectionType: models.CollectionHave}, ExistingGroup(models.DefaultGroupName), models.ErrValidation},
		{"empty target", testUser, valid, ImportTarget{}, models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportDocument(ctx, tt.userID, tt.doc, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ImportDocument error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
