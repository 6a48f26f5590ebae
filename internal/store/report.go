package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

type Report interface {
	Create(ctx context.Context, report model.Report) (*model.Report, error)
	GetByToken(ctx context.Context, token string) (*model.Report, error)
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) (model.ReportList, error)
	CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (int64, error)
	DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error
}

type ReportStore struct {
	db *gorm.DB
}

// Make sure we conform to Report interface
var _ Report = (*ReportStore)(nil)

func NewReportStore(db *gorm.DB) Report {
	return &ReportStore{db: db}
}

func (s *ReportStore) Create(ctx context.Context, report model.Report) (*model.Report, error) {
	if err := s.getDB(ctx).WithContext(ctx).Create(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &report, nil
}

func (s *ReportStore) GetByToken(ctx context.Context, token string) (*model.Report, error) {
	var report model.Report
	result := s.getDB(ctx).WithContext(ctx).Where("download_token = ?", token).First(&report)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &report, nil
}

func (s *ReportStore) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) (model.ReportList, error) {
	var reports model.ReportList
	result := s.getDB(ctx).WithContext(ctx).Where("assessment_id = ?", assessmentID).Find(&reports)
	if result.Error != nil {
		return nil, result.Error
	}
	return reports, nil
}

func (s *ReportStore) CountByAssessment(ctx context.Context, assessmentID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).WithContext(ctx).Model(&model.Report{}).Where("assessment_id = ?", assessmentID).Count(&count)
	return count, result.Error
}

func (s *ReportStore) DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error {
	result := s.getDB(ctx).WithContext(ctx).Where("assessment_id = ?", assessmentID).Delete(&model.Report{})
	return result.Error
}

func (s *ReportStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
