package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Assessment struct {
	ID                 uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          *time.Time
	Email              *string     `gorm:"type:VARCHAR(255)"`
	Answers            []byte      `gorm:"type:jsonb"`
	DestinationCountry string      `gorm:"not null;type:VARCHAR(100)"`
	DestinationCity    string      `gorm:"type:VARCHAR(100)"`
	RetentionExpiresAt time.Time   `gorm:"not null;index:assessments_retention_idx"`
	Payments           []Payment   `gorm:"foreignKey:AssessmentID;references:ID"`
	Jobs               []ReportJob `gorm:"foreignKey:AssessmentID;references:ID"`
	Reports            []Report    `gorm:"foreignKey:AssessmentID;references:ID"`
}

type AssessmentList []Assessment

func (a Assessment) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}

func NewAssessment(id uuid.UUID, country, city string, answers []byte, email *string, retentionExpiresAt time.Time) Assessment {
	return Assessment{
		ID:                 id,
		Email:              email,
		Answers:            answers,
		DestinationCountry: country,
		DestinationCity:    city,
		RetentionExpiresAt: retentionExpiresAt,
	}
}
