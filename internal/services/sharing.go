package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cardvault/backend/internal/metrics"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

// SharingService produces time-limited, access-controlled snapshots of a
// group's collection for external viewing.
type SharingService struct {
	db      *gorm.DB
	store   *store.Store
	baseURL string
}

func NewSharingService(db *gorm.DB, st *store.Store, baseURL string) *SharingService {
	return &SharingService{db: db, store: st, baseURL: baseURL}
}

// SnapshotOptions are the optional knobs for CreateSnapshot.
type SnapshotOptions struct {
	Permission        models.SharePermission
	PasswordProtected bool
	Password          string
	Collaborative     bool
}

// CreateSnapshotResult is returned by CreateSnapshot.
type CreateSnapshotResult struct {
	ShareID   string    `json:"share_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateSnapshot copies the group's current items for the given scope into
// an immutable snapshot reachable via an opaque share id. expiresInDays
// supports fractional values (1.0/24 is one hour).
func (s *SharingService) CreateSnapshot(ctx context.Context, userID, groupName string, scope models.ShareScope, expiresInDays float64, opts SnapshotOptions) (*CreateSnapshotResult, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: invalid share scope %q", models.ErrValidation, scope)
	}
	if expiresInDays <= 0 {
		return nil, fmt.Errorf("%w: expiry must be in the future", models.ErrValidation)
	}
	if opts.PasswordProtected && opts.Password == "" {
		return nil, fmt.Errorf("%w: password protection requires a password", models.ErrValidation)
	}
	if !s.store.GroupExists(ctx, userID, groupName) {
		return nil, fmt.Errorf("%w: group %q does not exist", models.ErrValidation, groupName)
	}

	var typ *models.CollectionType
	switch scope {
	case models.ShareScopeHave:
		t := models.CollectionHave
		typ = &t
	case models.ShareScopeWant:
		t := models.CollectionWant
		typ = &t
	case models.ShareScopeGroup:
		// Both types
	}

	items, err := s.store.GroupItems(ctx, userID, groupName, typ)
	if err != nil {
		return nil, err
	}

	shareItems := make([]models.ShareItem, 0, len(items))
	for _, item := range items {
		shareItems = append(shareItems, models.ShareItem{
			Type:         item.Type,
			CardID:       item.CardID,
			CardName:     item.CardName,
			CardImageURL: item.CardImageURL,
			Quantity:     item.Quantity,
			MarketPrice:  item.MarketPrice,
		})
	}
	payload, err := json.Marshal(shareItems)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	permission := opts.Permission
	if permission == "" {
		permission = models.SharePermissionRead
	}

	var passwordHash string
	if opts.PasswordProtected {
		hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
		}
		passwordHash = string(hash)
	}

	now := time.Now()
	snapshot := models.ShareSnapshot{
		ShareID:       uuid.New().String(),
		UserID:        userID,
		GroupName:     groupName,
		Scope:         scope,
		ItemsJSON:     string(payload),
		Permission:    permission,
		PasswordHash:  passwordHash,
		Collaborative: opts.Collaborative,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(expiresInDays * 24 * float64(time.Hour))),
	}

	if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	metrics.SharesCreatedTotal.Inc()
	log.Printf("Sharing: created snapshot %s for group %q (scope %s, %d items)", snapshot.ShareID, groupName, scope, len(shareItems))

	return &CreateSnapshotResult{
		ShareID:   snapshot.ShareID,
		URL:       s.ShareURL(snapshot.ShareID),
		ExpiresAt: snapshot.ExpiresAt,
	}, nil
}

// ShareURL builds the public link for a share id. The id is an opaque token
// with no embedded metadata.
func (s *SharingService) ShareURL(shareID string) string {
	return fmt.Sprintf("%s/shared/%s", s.baseURL, shareID)
}

// AccessSnapshot returns the payload for a share link. Expiry is checked
// here, lazily: an expired snapshot behaves exactly like a missing one.
func (s *SharingService) AccessSnapshot(ctx context.Context, shareID, password string) (*models.SharePayload, error) {
	var snapshot models.ShareSnapshot
	err := s.db.WithContext(ctx).Where("share_id = ?", shareID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.ShareAccessesTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: share %q", models.ErrNotFound, shareID)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}

	if snapshot.Expired(time.Now()) {
		metrics.ShareAccessesTotal.WithLabelValues("expired").Inc()
		return nil, fmt.Errorf("%w: share link has expired", models.ErrNotFound)
	}

	if snapshot.PasswordProtected() {
		if err := bcrypt.CompareHashAndPassword([]byte(snapshot.PasswordHash), []byte(password)); err != nil {
			metrics.ShareAccessesTotal.WithLabelValues("denied").Inc()
			return nil, fmt.Errorf("%w: invalid password", models.ErrValidation)
		}
	}

	var items []models.ShareItem
	if err := json.Unmarshal([]byte(snapshot.ItemsJSON), &items); err != nil {
		return nil, fmt.Errorf("%w: corrupt snapshot payload: %v", models.ErrBackend, err)
	}

	metrics.ShareAccessesTotal.WithLabelValues("ok").Inc()
	return &models.SharePayload{
		ShareID:       snapshot.ShareID,
		GroupName:     snapshot.GroupName,
		Scope:         snapshot.Scope,
		Permission:    snapshot.Permission,
		Collaborative: snapshot.Collaborative,
		CreatedAt:     snapshot.CreatedAt,
		ExpiresAt:     snapshot.ExpiresAt,
		Items:         items,
	}, nil
}

// ListSnapshots returns the user's snapshots for a group, newest first.
// Expired snapshots are included; they are inert, not purged.
func (s *SharingService) ListSnapshots(ctx context.Context, userID, groupName string) ([]models.ShareSnapshot, error) {
	if userID == "" {
		return nil, models.ErrAuthRequired
	}

	var snapshots []models.ShareSnapshot
	query := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if groupName != "" {
		query = query.Where("group_name = ?", groupName)
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrBackend, err)
	}
	return snapshots, nil
}
