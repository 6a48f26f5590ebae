package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

type Payment interface {
	Create(ctx context.Context, payment model.Payment) (*model.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error
}

type PaymentStore struct {
	db *gorm.DB
}

// Make sure we conform to Payment interface
var _ Payment = (*PaymentStore)(nil)

func NewPaymentStore(db *gorm.DB) Payment {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, payment model.Payment) (*model.Payment, error) {
	if err := s.getDB(ctx).WithContext(ctx).Create(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentStore) Get(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	result := s.getDB(ctx).WithContext(ctx).Where("id = ?", id).First(&payment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &payment, nil
}

func (s *PaymentStore) DeleteByAssessment(ctx context.Context, assessmentID uuid.UUID) error {
	result := s.getDB(ctx).WithContext(ctx).Where("assessment_id = ?", assessmentID).Delete(&model.Payment{})
	return result.Error
}

func (s *PaymentStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
