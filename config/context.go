package config

import "time"

// Lifecycle timing. Components take these as defaults and allow overrides.
const (
	CalendarPollInterval    = 2 * time.Second
	CalendarConnectTimeout  = 120 * time.Second
	MeetingsRefreshInterval = 5 * time.Minute
	RequestTimeout          = 60 * time.Second
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultSessionTitle = "New Chat"
	DefaultMeetingQuery = "next 7 days"
	SigninPath          = "/auth/signin"
)
