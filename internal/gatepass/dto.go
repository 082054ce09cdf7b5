package gatepass

import (
	"strings"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/common/validation"
)

const MaxPurposeLength = 500

// FormDTO is what a workman fills in to create or resubmit a pass.
type FormDTO struct {
	TimeIn  string `json:"time_in"`
	TimeOut string `json:"time_out"`
	Purpose string `json:"purpose"`
}

func (d FormDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("time_in", d.TimeIn).Required().TimeOfDay()
	v.Field("time_out", d.TimeOut).Optional().TimeOfDay()
	v.Field("purpose", d.Purpose).Required().MaxLength(MaxPurposeLength)
	return v.Validate()
}

type updateRequest struct {
	GatePassID int64 `json:"gatepass_id"`
	FormDTO
}

type decisionRequest struct {
	GatePassID      int64  `json:"gatepass_id"`
	Action          Action `json:"action"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// ValidateReason rejects a blank rejection reason.
func ValidateReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return errors.NewValidationFieldError("rejection_reason", "rejection reason is required", errors.ErrCodeRequiredField)
	}
	return nil
}
