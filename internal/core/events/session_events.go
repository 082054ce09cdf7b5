package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSessionStarted  = "session.started"
	EventTypeSessionExpired  = "session.expired"
	EventTypeSessionEnded    = "session.ended"
	EventTypeGatePassChanged = "gatepass.changed"
)

type SessionStartedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewSessionStartedEvent(username, role string) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionStarted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"username": username,
				"role":     role,
			},
		},
		Username: username,
		Role:     role,
	}
}

// SessionExpiredEvent is raised after a failed token refresh has cleared
// the stored credentials.
type SessionExpiredEvent struct {
	BaseEvent
}

func NewSessionExpiredEvent() *SessionExpiredEvent {
	return &SessionExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionExpired,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{},
		},
	}
}

type SessionEndedEvent struct {
	BaseEvent
	// ServerAcknowledged is false when the logout call failed and only the
	// local credentials were removed.
	ServerAcknowledged bool `json:"server_acknowledged"`
}

func NewSessionEndedEvent(serverAcknowledged bool) *SessionEndedEvent {
	return &SessionEndedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeSessionEnded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"server_acknowledged": serverAcknowledged,
			},
		},
		ServerAcknowledged: serverAcknowledged,
	}
}

type GatePassChangedEvent struct {
	BaseEvent
	GatePassID int64  `json:"gatepass_id"`
	Action     string `json:"action"`
}

func NewGatePassChangedEvent(gatePassID int64, action string) *GatePassChangedEvent {
	return &GatePassChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeGatePassChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"gatepass_id": gatePassID,
				"action":      action,
			},
		},
		GatePassID: gatePassID,
		Action:     action,
	}
}
