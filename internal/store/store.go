package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-authgate/qrgate/internal/models"
	"github.com/go-authgate/qrgate/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// New opens the database, migrates the schema and returns a ready Store
func New(ctx context.Context, driver, dsn string, log *zap.Logger) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if driver == "sqlite" {
		// A single connection keeps :memory: databases shared and serializes writers
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.AccessRequest{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Store{db: db, log: log}, nil
}

// CreateRequest inserts a new access request row
func (s *Store) CreateRequest(ctx context.Context, r *models.AccessRequest) error {
	if !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return ErrTokenConflict
		}
		return fmt.Errorf("failed to create access request: %w", err)
	}
	return nil
}

// GetRequestByToken loads the access request identified by token
func (s *Store) GetRequestByToken(ctx context.Context, token string) (*models.AccessRequest, error) {
	var r models.AccessRequest
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get access request: %w", err)
	}
	return &r, nil
}

// GetApprovedByEmail returns approved requests for an email, newest approval first.
// Addresses are matched case-insensitively.
func (s *Store) GetApprovedByEmail(
	ctx context.Context,
	email string,
) ([]models.AccessRequest, error) {
	var requests []models.AccessRequest
	err := s.db.WithContext(ctx).
		Where("LOWER(requester_email) = ? AND status = ?", util.CanonicalEmail(email), models.StatusApproved).
		Order("approved_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query approved requests: %w", err)
	}
	return requests, nil
}

// Transition describes a conditional update of a single access request
type Transition struct {
	Token string
	From  []models.Status // the row must currently be in one of these states

	// ActionCodeHash, when set, must equal the stored action code hash
	ActionCodeHash string

	Set map[string]any
}

// ApplyTransition performs a single atomic read-modify-write keyed on the expected
// prior state. It returns ErrStatusConflict when no row matched.
func (s *Store) ApplyTransition(ctx context.Context, t Transition) error {
	if len(t.From) == 0 {
		return errors.New("transition requires at least one prior status")
	}

	from := make([]string, len(t.From))
	for i, st := range t.From {
		from[i] = string(st)
	}

	set := make(map[string]any, len(t.Set))
	for k, v := range t.Set {
		set[k] = v
	}
	if next, ok := set["status"].(models.Status); ok {
		if !next.Valid() {
			return fmt.Errorf("invalid status %q", next)
		}
		set["status"] = string(next)
	}

	q := s.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Where("token = ? AND status IN ?", t.Token, from)
	if t.ActionCodeHash != "" {
		q = q.Where("action_code_hash = ?", t.ActionCodeHash)
	}

	res := q.Updates(set)
	if res.Error != nil {
		return fmt.Errorf("failed to update access request: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		s.log.Warn("conditional update matched no rows",
			zap.String("token", t.Token),
			zap.Strings("from", from),
		)
		return ErrStatusConflict
	}
	return nil
}

// ListRequests returns a page of access requests, newest first
func (s *Store) ListRequests(
	ctx context.Context,
	params PaginationParams,
) ([]models.AccessRequest, PaginationResult, error) {
	query := s.db.WithContext(ctx).Model(&models.AccessRequest{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, PaginationResult{}, fmt.Errorf("failed to count access requests: %w", err)
	}

	var requests []models.AccessRequest
	if err := query.Order("id DESC").
		Offset(params.offset()).
		Limit(params.PageSize).
		Find(&requests).Error; err != nil {
		return nil, PaginationResult{}, fmt.Errorf("failed to list access requests: %w", err)
	}

	return requests, CalculatePagination(total, params.Page, params.PageSize), nil
}

// CountByStatus returns the number of requests in each lifecycle state
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.AccessRequest{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count requests by status: %w", err)
	}

	counts := make(map[models.Status]int64, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[models.Status(row.Status)] = row.Count
	}
	return counts, nil
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isUniqueViolation matches driver-specific unique constraint errors that gorm
// does not translate without TranslateError
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
