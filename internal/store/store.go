package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/Gthorpe2274/mocha-emig/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Assessment() Assessment
	Payment() Payment
	Job() Job
	Report() Report
	InitialMigration() error
	Ping(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	assessment Assessment
	payment    Payment
	job        Job
	report     Report
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:         db,
		assessment: NewAssessmentStore(db),
		payment:    NewPaymentStore(db),
		job:        NewJobStore(db),
		report:     NewReportStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Assessment() Assessment {
	return s.assessment
}

func (s *DataStore) Payment() Payment {
	return s.payment
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Report() Report {
	return s.report
}

func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.Assessment{},
		&model.Payment{},
		&model.ReportJob{},
		&model.Report{},
	)
}

func (s *DataStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
