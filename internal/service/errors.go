package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrAssessmentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "assessment")
}

func NewErrPaymentNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "payment")
}

type ErrPaymentMismatch struct {
	error
}

func NewErrPaymentMismatch(paymentID, assessmentID uuid.UUID) *ErrPaymentMismatch {
	return &ErrPaymentMismatch{fmt.Errorf("payment %s is not associated with assessment %s", paymentID, assessmentID)}
}

type ErrReportNotFound struct {
	error
}

func NewErrReportNotFound() *ErrReportNotFound {
	return &ErrReportNotFound{fmt.Errorf("report not found")}
}

type ErrTokenExpired struct {
	error
}

func NewErrTokenExpired(token string) *ErrTokenExpired {
	return &ErrTokenExpired{fmt.Errorf("download token %s... has expired", truncateToken(token))}
}

func truncateToken(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}
