package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trading-journal-console/internal/models"
	"trading-journal-console/internal/tradeform"
)

// ErrDraftNotFound is returned for an unknown or purged draft key, and for a
// draft owned by another session.
var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps trade entry forms between requests.
type DraftStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDraftStore creates a store on an open database.
func NewDraftStore(db *gorm.DB, logger *zap.Logger) *DraftStore {
	return &DraftStore{db: db, logger: logger.Named("drafts")}
}

// NewKey returns a fresh draft key.
func NewKey() string {
	return uuid.NewString()
}

// ValidKey reports whether key has the shape NewKey produces.
func ValidKey(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil
}

// Load returns the form owner saved under key.
func (s *DraftStore) Load(ctx context.Context, owner, key string) (*tradeform.Form, error) {
	var draft models.Draft
	err := s.db.WithContext(ctx).Where("draft_key = ? AND owner_key = ?", key, owner).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	form, err := tradeform.Restore([]byte(draft.Values))
	if err != nil {
		return nil, err
	}
	return form, nil
}

// Save stores the form under key, replacing an earlier version by the same
// owner. A key held by another owner is left untouched.
func (s *DraftStore) Save(ctx context.Context, owner, key string, form *tradeform.Form) error {
	values, err := form.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	draft := models.Draft{Key: key, Owner: owner, Exchange: form.Exchange(), Values: string(values)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "draft_key"}},
		Where:     clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "owner_key = ?", Vars: []interface{}{owner}}}},
		DoUpdates: clause.AssignmentColumns([]string{"exchange", "form_values", "updated_at"}),
	}).Create(&draft).Error
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Delete removes owner's draft. Deleting a missing draft is not an error.
func (s *DraftStore) Delete(ctx context.Context, owner, key string) error {
	if err := s.db.WithContext(ctx).Unscoped().Where("draft_key = ? AND owner_key = ?", key, owner).Delete(&models.Draft{}).Error; err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// PurgeStale deletes drafts not updated since ttl ago and returns how many.
func (s *DraftStore) PurgeStale(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl)
	result := s.db.WithContext(ctx).Unscoped().Where("updated_at < ?", cutoff).Delete(&models.Draft{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge drafts: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info("Purged stale drafts", zap.Int64("count", result.RowsAffected), zap.Duration("ttl", ttl))
	}
	return result.RowsAffected, nil
}
