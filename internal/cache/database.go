package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/innkeep/internal/models"
)

// DatabaseStore implements Store on the primary SQL database. It lets a
// single-node deployment rate limit without running redis.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

var errStoreNotInitialised = errors.New("cache: database store not initialised")

// keyIs quotes the column; key is reserved in MySQL.
func keyIs(key string) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

// IncrementWithTTL bumps the counter under a row lock. An expired counter
// starts a new window.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errStoreNotInitialised
	}
	if window <= 0 {
		window = time.Minute
	}
	now := s.now()

	var (
		count  int64
		expiry time.Time
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(keyIs(key)).Take(&entry).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			count, expiry = 1, now.Add(window)
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: expiry,
			}).Error
		case err != nil:
			return err
		}

		if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(now) {
			count, expiry = 1, now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiry = current+1, entry.ExpiresAt
		}
		return tx.Model(&models.CacheEntry{}).Where(keyIs(key)).Updates(map[string]any{
			"value":      []byte(strconv.FormatInt(count, 10)),
			"expires_at": expiry,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiry.Sub(now), nil
}

// Set upserts key. A non-positive ttl stores the value without expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errStoreNotInitialised
	}
	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
}

// Get returns the value unless it is missing or expired. Expired rows are
// removed lazily.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, errStoreNotInitialised
	}
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where(keyIs(key)).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errStoreNotInitialised
	}
	if len(keys) == 0 {
		return nil
	}
	values := make([]any, 0, len(keys))
	for _, key := range keys {
		values = append(values, key)
	}
	return s.db.WithContext(ctx).
		Where(clause.IN{Column: clause.Column{Name: "key"}, Values: values}).
		Delete(&models.CacheEntry{}).Error
}

// PurgeExpired deletes every expired entry and reports how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errStoreNotInitialised
	}
	res := s.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.now()).
		Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}
