package gatepass

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Action string

const (
	// ActionCreate has no transition entry; it only labels change events.
	ActionCreate   Action = "create"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
)

// transitions lists, per action, the statuses it may be applied to and the
// status that results. A new pass always starts pending; approved is final.
var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionApprove:  {from: []Status{StatusPending}, to: StatusApproved},
	ActionReject:   {from: []Status{StatusPending}, to: StatusRejected},
	ActionResubmit: {from: []Status{StatusPending, StatusRejected}, to: StatusPending},
}

func (s Status) CanTransition(a Action) bool {
	t, ok := transitions[a]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == s {
			return true
		}
	}
	return false
}

// Next returns the status after applying a, or false if a is not allowed.
func (s Status) Next(a Action) (Status, bool) {
	if !s.CanTransition(a) {
		return s, false
	}
	return transitions[a].to, true
}

func (s Status) Terminal() bool {
	return s == StatusApproved
}

type GatePass struct {
	ID                 int64      `json:"id"`
	Workman            int64      `json:"workman"`
	WorkmanUsername    string     `json:"workman_username"`
	TimeOut            string     `json:"time_out"`
	TimeIn             string     `json:"time_in"`
	Purpose            string     `json:"purpose"`
	ApprovalStatus     Status     `json:"approval_status"`
	RejectionReason    *string    `json:"rejection_reason"`
	ApprovedBy         *int64     `json:"approved_by"`
	ApprovedByUsername string     `json:"approved_by_username"`
	ApprovedAt         *time.Time `json:"approved_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Editable reports whether the owning workman may still change the pass.
func (g GatePass) Editable() bool {
	return g.ApprovalStatus.CanTransition(ActionResubmit)
}

// Downloadable reports whether a PDF can be fetched for the pass.
func (g GatePass) Downloadable() bool {
	return g.ApprovalStatus == StatusApproved
}

// Timestamps come from the server as RFC 3339 or as naive local datetimes.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UnmarshalJSON reads the timestamps leniently. An unreadable timestamp is
// left zero (nil for approved_at) instead of failing the whole record.
func (g *GatePass) UnmarshalJSON(data []byte) error {
	type plain GatePass
	aux := struct {
		*plain
		ApprovedAt *string `json:"approved_at"`
		CreatedAt  *string `json:"created_at"`
		UpdatedAt  *string `json:"updated_at"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	g.ApprovedAt = nil
	if aux.ApprovedAt != nil {
		if t, ok := parseTimestamp(*aux.ApprovedAt); ok {
			g.ApprovedAt = &t
		}
	}
	g.CreatedAt, g.UpdatedAt = time.Time{}, time.Time{}
	if aux.CreatedAt != nil {
		g.CreatedAt, _ = parseTimestamp(*aux.CreatedAt)
	}
	if aux.UpdatedAt != nil {
		g.UpdatedAt, _ = parseTimestamp(*aux.UpdatedAt)
	}
	return nil
}

// Snapshot is one GET /home/ response. It is replaced wholesale on every fetch.
type Snapshot struct {
	Pending  []GatePass `json:"pending_gatepass"`
	Approved []GatePass `json:"approved_gatepass"`
	Rejected []GatePass `json:"rejected_gatepass"`
}

// UnmarshalJSON treats a missing, null or non-array group as empty.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Snapshot
	var err error
	if out.Pending, err = decodeGroup(raw["pending_gatepass"]); err != nil {
		return err
	}
	if out.Approved, err = decodeGroup(raw["approved_gatepass"]); err != nil {
		return err
	}
	if out.Rejected, err = decodeGroup(raw["rejected_gatepass"]); err != nil {
		return err
	}
	*s = out
	return nil
}

func decodeGroup(raw json.RawMessage) ([]GatePass, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []GatePass{}, nil
	}
	var group []GatePass
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, err
	}
	return group, nil
}

// Counts is the dashboard analytics summary.
type Counts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

func (s Snapshot) Counts() Counts {
	c := Counts{
		Pending:  len(s.Pending),
		Approved: len(s.Approved),
		Rejected: len(s.Rejected),
	}
	c.Total = c.Pending + c.Approved + c.Rejected
	return c
}

// Find looks a pass up by id across all groups.
func (s Snapshot) Find(id int64) (GatePass, bool) {
	for _, group := range [][]GatePass{s.Pending, s.Approved, s.Rejected} {
		for _, gp := range group {
			if gp.ID == id {
				return gp, true
			}
		}
	}
	return GatePass{}, false
}
