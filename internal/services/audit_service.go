package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/innkeep/internal/auditctx"
	"github.com/charlesng35/innkeep/internal/models"
	"github.com/charlesng35/innkeep/internal/permissions"
	"github.com/charlesng35/innkeep/internal/repository"
	"github.com/charlesng35/innkeep/pkg/logger"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	UserID    *uint
	Username  string
	HotelID   *uint
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs.
type AuditFilters struct {
	UserID   *uint
	HotelID  *uint
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db    *gorm.DB
	authz Authorizer
	log   *zap.Logger
}

// NewAuditService constructs an AuditService. authz guards List; it may be
// nil for processes that only write entries.
func NewAuditService(db *gorm.DB, authz Authorizer) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, authz: authz, log: logger.WithModule("audit")}, nil
}

func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit service: action is required")
	}
	if strings.TrimSpace(entry.Result) == "" {
		return errors.New("audit service: result is required")
	}

	record := models.AuditLog{
		UserID:    entry.UserID,
		HotelID:   entry.HotelID,
		Action:    strings.TrimSpace(entry.Action),
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    strings.TrimSpace(entry.Result),
		Username:  strings.TrimSpace(entry.Username),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: strings.TrimSpace(entry.UserAgent),
	}
	if len(entry.Metadata) > 0 {
		record.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// List returns audit logs newest first. The caller needs read audit globally.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) (repository.PageResult[models.AuditLog], error) {
	ctx = ensureContext(ctx)
	if s.authz == nil {
		return repository.PageResult[models.AuditLog]{}, errors.New("audit service: authorizer is required to list logs")
	}
	if _, err := authorize(ctx, s.authz, nil, permissions.ActionRead, permissions.ResourceAudit); err != nil {
		return repository.PageResult[models.AuditLog]{}, err
	}

	page := repository.PageRequest{Page: opts.Page, PageSize: opts.PageSize}.Normalize()
	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return repository.PageResult[models.AuditLog]{}, fmt.Errorf("audit service: count logs: %w", err)
	}

	var logs []models.AuditLog
	if err := query.
		Order("created_at DESC").
		Offset((page.Page - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&logs).Error; err != nil {
		return repository.PageResult[models.AuditLog]{}, fmt.Errorf("audit service: list logs: %w", err)
	}

	pages := int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	return repository.PageResult[models.AuditLog]{
		Items:      logs,
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      total,
		TotalPages: pages,
	}, nil
}

// CleanupOlderThan removes audit logs older than retentionDays.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)
	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.HotelID != nil {
		query = query.Where("hotel_id = ?", *filters.HotelID)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Result != "" {
		query = query.Where("result = ?", filters.Result)
	}
	if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}

// recordAudit logs a successful mutation by the actor in ctx. Failures are
// logged and never surface to the caller.
func recordAudit(ctx context.Context, audit *AuditService, hotelID *uint, action, resource string, metadata map[string]any) {
	if audit == nil {
		return
	}
	entry := AuditEntry{
		HotelID:  hotelID,
		Action:   action,
		Resource: resource,
		Result:   "success",
		Metadata: metadata,
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		id := actor.UserID
		entry.UserID = &id
		entry.Username = actor.Username
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
		if actor.RequestID != "" {
			if entry.Metadata == nil {
				entry.Metadata = map[string]any{}
			}
			entry.Metadata["request_id"] = actor.RequestID
		}
	}
	if err := audit.Log(ctx, entry); err != nil {
		audit.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
