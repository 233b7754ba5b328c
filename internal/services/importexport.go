package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

// ImportExportService serializes a group+type collection to a portable
// document and merges imports back into the store.
type ImportExportService struct {
	store *store.Store
}

func NewImportExportService(st *store.Store) *ImportExportService {
	return &ImportExportService{store: st}
}

// ImportTarget names the group an import lands in. Use ExistingGroup or
// NewGroup to construct one; there is no string sentinel for "create".
type ImportTarget struct {
	group  string
	create bool
}

// ExistingGroup targets a group that must already exist.
func ExistingGroup(name string) ImportTarget {
	return ImportTarget{group: name}
}

// NewGroup targets a group that is created first if missing.
func NewGroup(name string) ImportTarget {
	return ImportTarget{group: name, create: true}
}

// ExportGroup produces a deterministic, versioned snapshot of one group's
// collection of the given type (have when typ is nil).
func (s *ImportExportService) ExportGroup(ctx context.Context, userID, groupName string, typ *models.CollectionType) (*models.ExportDocument, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}

	collectionType := models.CollectionHave
	if typ != nil {
		if !typ.Valid() {
			return nil, fmt.Errorf("%w: invalid collection type %q", models.ErrValidation, *typ)
		}
		collectionType = *typ
	}

	items, err := s.store.GroupItems(ctx, userID, groupName, &collectionType)
	if err != nil {
		return nil, err
	}

	doc := &models.ExportDocument{
		CollectionType: collectionType,
		GroupName:      groupName,
		ExportedAt:     time.Now().UTC(),
		Items:          make([]models.ExportItem, 0, len(items)),
	}
	for _, item := range items {
		doc.Items = append(doc.Items, models.ExportItem{
			CardID:         item.CardID,
			CardName:       item.CardName,
			CardImageSmall: item.CardImageURL,
			Quantity:       item.Quantity,
			MarketPrice:    item.MarketPrice,
		})
	}

	metrics.ExportsTotal.Inc()
	return doc, nil
}

// ImportDocument merges a document's items into the target group. Existing
// items have their quantities summed (merge-additive, never overwrite).
// Failed items are reported; succeeded items commit regardless.
func (s *ImportExportService) ImportDocument(ctx context.Context, userID string, doc *models.ExportDocument, target ImportTarget) (*models.ImportReport, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: missing document", models.ErrValidation)
	}
	if !doc.CollectionType.Valid() {
		return nil, fmt.Errorf("%w: missing or invalid collection_type", models.ErrValidation)
	}
	if doc.Items == nil {
		return nil, fmt.Errorf("%w: items must be an array", models.ErrValidation)
	}
	if target.group == "" {
		return nil, fmt.Errorf("%w: missing target group", models.ErrValidation)
	}

	report := &models.ImportReport{
		GroupName: target.group,
		Type:      doc.CollectionType,
	}

	if !s.store.GroupExists(ctx, userID, target.group) {
		if !target.create {
			return nil, fmt.Errorf("%w: group %q does not exist", models.ErrValidation, target.group)
		}
		if res := s.store.CreateGroup(ctx, userID, target.group, ""); res.Status == models.StatusError {
			return nil, fmt.Errorf("%w: %s", models.ErrBackend, res.Message)
		}
		report.GroupCreated = true
	}

	for _, item := range doc.Items {
		if item.CardID == "" {
			report.Failed = append(report.Failed, models.ImportFailure{Reason: "missing card_id"})
			metrics.ImportsTotal.WithLabelValues("failed").Inc()
			continue
		}
		if item.Quantity <= 0 {
			report.Failed = append(report.Failed, models.ImportFailure{CardID: item.CardID, Reason: "quantity must be positive"})
			metrics.ImportsTotal.WithLabelValues("failed").Inc()
			continue
		}

		card := models.CardRef{ID: item.CardID, Name: item.CardName, ImageURL: item.CardImageSmall}
		res := s.store.AddItem(ctx, userID, target.group, doc.CollectionType, card, item.Quantity)
		if res.Status == models.StatusError {
			report.Failed = append(report.Failed, models.ImportFailure{CardID: item.CardID, Reason: res.Message})
			metrics.ImportsTotal.WithLabelValues("failed").Inc()
			continue
		}
		report.Imported++
		metrics.ImportsTotal.WithLabelValues("ok").Inc()
	}

	log.Printf("Import: %d items into %q (%s), %d failed", report.Imported, target.group, doc.CollectionType, len(report.Failed))
	return report, nil
}
