package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const PaymentStatusConfirmed = "confirmed"

type Payment struct {
	ID           uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt    time.Time `gorm:"not null"`
	AssessmentID uuid.UUID `gorm:"not null;type:VARCHAR(255);index:payments_assessment_idx"`
	ProviderRef  string    `gorm:"type:VARCHAR(255)"`
	AmountCents  int64     `gorm:"not null"`
	Currency     string    `gorm:"not null;type:VARCHAR(3)"`
	Status       string    `gorm:"not null;type:VARCHAR(50)"`
}

type PaymentList []Payment

func (p Payment) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}
