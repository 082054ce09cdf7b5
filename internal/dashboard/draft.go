package dashboard

import (
	"strings"
	"time"

	"github.com/frahmantamala/gatepass/internal/core/common/validation"
	"github.com/frahmantamala/gatepass/internal/gatepass"
)

// Draft is the workman's create or edit form before submission.
type Draft struct {
	TimeOut string
	TimeIn  string
	Purpose string
}

// NewDraft starts a new request leaving now.
func NewDraft(now time.Time) Draft {
	return Draft{TimeOut: now.Format("15:04")}
}

// EditDraft pre-fills the form from an existing pass.
func EditDraft(gp gatepass.GatePass) Draft {
	return Draft{
		TimeOut: clock(gp.TimeOut),
		TimeIn:  clock(gp.TimeIn),
		Purpose: gp.Purpose,
	}
}

func clock(value string) string {
	t, err := validation.ParseTimeOfDay(value)
	if err != nil {
		return value
	}
	return t.Format("15:04")
}

// CanSubmit mirrors the disabled submit button: time in and purpose are required.
func (d Draft) CanSubmit() bool {
	return strings.TrimSpace(d.TimeIn) != "" && strings.TrimSpace(d.Purpose) != ""
}

func (d Draft) Form() gatepass.FormDTO {
	return gatepass.FormDTO{
		TimeIn:  strings.TrimSpace(d.TimeIn),
		TimeOut: strings.TrimSpace(d.TimeOut),
		Purpose: strings.TrimSpace(d.Purpose),
	}
}
