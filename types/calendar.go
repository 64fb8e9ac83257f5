package types

import "time"

type ConnectionState int

const (
	Unconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unconnected"
	}
}

type CalendarStatus struct {
	Connected   bool       `json:"connected" yaml:"connected"`
	Provider    *string    `json:"provider" yaml:"provider"`
	Scopes      []string   `json:"scopes" yaml:"scopes"`
	ConnectedAt *time.Time `json:"connected_at" yaml:"connected_at"`
}

// UnconnectedStatus is the shape a disconnect resets to.
func UnconnectedStatus() CalendarStatus {
	return CalendarStatus{
		Connected:   false,
		Provider:    nil,
		Scopes:      []string{},
		ConnectedAt: nil,
	}
}

// State maps a reported status onto the connection state machine.
func (s CalendarStatus) State() ConnectionState {
	if s.Connected {
		return Connected
	}
	return Unconnected
}

type CalendarConnectResponse struct {
	AuthURL string `json:"auth_url"`
}

type MeetingsResponse struct {
	Meetings string `json:"meetings"`
}
