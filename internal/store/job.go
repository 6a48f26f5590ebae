package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

type Job interface {
	Create(ctx context.Context, job model.ReportJob) (*model.ReportJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ReportJob, error)
	Update(ctx context.Context, id uuid.UUID, status *string, attempts *int, errMessage *string) (*model.ReportJob, error)
	ListByStatus(ctx context.Context, statuses []string, limit int) (model.ReportJobList, error)
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) (model.ReportJobList, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.ReportJob) (*model.ReportJob, error) {
	if err := s.getDB(ctx).WithContext(ctx).Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.ReportJob, error) {
	var job model.ReportJob
	result := s.getDB(ctx).WithContext(ctx).Where("id = ?", id).First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Update(ctx context.Context, id uuid.UUID, status *string, attempts *int, errMessage *string) (*model.ReportJob, error) {
	job := model.ReportJob{ID: id}
	selectFields := []string{}
	if status != nil {
		job.Status = *status
		selectFields = append(selectFields, "status")
	}
	if attempts != nil {
		job.Attempts = *attempts
		selectFields = append(selectFields, "attempts")
	}
	if errMessage != nil {
		job.Error = errMessage
		selectFields = append(selectFields, "error")
	}

	result := s.getDB(ctx).WithContext(ctx).Model(&job).Clauses(clause.Returning{}).Select(selectFields).Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}
	return &job, nil
}

// ListByStatus returns jobs in any of the given statuses, oldest first. The
// creation-order batch is what the processor's sweep consumes.
func (s *JobStore) ListByStatus(ctx context.Context, statuses []string, limit int) (model.ReportJobList, error) {
	var jobs model.ReportJobList
	result := s.getDB(ctx).WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at").
		Limit(limit).
		Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

func (s *JobStore) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) (model.ReportJobList, error) {
	var jobs model.ReportJobList
	result := s.getDB(ctx).WithContext(ctx).Where("assessment_id = ?", assessmentID).Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

func (s *JobStore) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	result := s.getDB(ctx).WithContext(ctx).Model(&model.ReportJob{}).Where("status = ?", status).Count(&count)
	return count, result.Error
}

func (s *JobStore) DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error {
	result := s.getDB(ctx).WithContext(ctx).Where("assessment_id = ?", assessmentID).Delete(&model.ReportJob{})
	return result.Error
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
