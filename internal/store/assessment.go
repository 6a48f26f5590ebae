package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

type Assessment interface {
	Create(ctx context.Context, assessment model.Assessment) (*model.Assessment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpired(ctx context.Context, before time.Time, limit int) (model.AssessmentList, error)
	UpdateRetention(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*model.Assessment, error)
	RetentionStats(ctx context.Context, now time.Time) (model.RetentionStats, error)
}

type AssessmentStore struct {
	db *gorm.DB
}

// Make sure we conform to Assessment interface
var _ Assessment = (*AssessmentStore)(nil)

func NewAssessmentStore(db *gorm.DB) Assessment {
	return &AssessmentStore{db: db}
}

func (s *AssessmentStore) Create(ctx context.Context, assessment model.Assessment) (*model.Assessment, error) {
	if err := s.getDB(ctx).WithContext(ctx).Create(&assessment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &assessment, nil
}

func (s *AssessmentStore) Get(ctx context.Context, id uuid.UUID) (*model.Assessment, error) {
	var assessment model.Assessment
	result := s.getDB(ctx).WithContext(ctx).Where("id = ?", id).First(&assessment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &assessment, nil
}

func (s *AssessmentStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).WithContext(ctx).Where("id = ?", id).Delete(&model.Assessment{})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// ListExpired returns the oldest-expiring assessments whose retention horizon
// passed before the given instant.
func (s *AssessmentStore) ListExpired(ctx context.Context, before time.Time, limit int) (model.AssessmentList, error) {
	var assessments model.AssessmentList
	result := s.getDB(ctx).WithContext(ctx).
		Where("retention_expires_at < ?", before).
		Order("retention_expires_at").
		Limit(limit).
		Find(&assessments)
	if result.Error != nil {
		return nil, result.Error
	}
	return assessments, nil
}

func (s *AssessmentStore) UpdateRetention(ctx context.Context, id uuid.UUID, expiresAt time.Time) (*model.Assessment, error) {
	result := s.getDB(ctx).WithContext(ctx).
		Model(&model.Assessment{}).
		Where("id = ?", id).
		Update("retention_expires_at", expiresAt)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return s.Get(ctx, id)
}

func (s *AssessmentStore) RetentionStats(ctx context.Context, now time.Time) (model.RetentionStats, error) {
	stats := model.RetentionStats{}
	db := s.getDB(ctx).WithContext(ctx)

	if err := db.Model(&model.Assessment{}).Count(&stats.TotalAssessments).Error; err != nil {
		return stats, err
	}
	if err := db.Model(&model.Assessment{}).Where("retention_expires_at < ?", now).Count(&stats.ExpiredAssessments).Error; err != nil {
		return stats, err
	}

	var oldest model.Assessment
	result := db.Where("retention_expires_at < ?", now).Order("retention_expires_at").First(&oldest)
	if result.Error == nil {
		stats.OldestExpiredAt = &oldest.RetentionExpiresAt
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return stats, result.Error
	}

	var next model.Assessment
	result = db.Where("retention_expires_at >= ?", now).Order("retention_expires_at").First(&next)
	if result.Error == nil {
		stats.NextExpiryAt = &next.RetentionExpiresAt
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return stats, result.Error
	}

	return stats, nil
}

func (s *AssessmentStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
