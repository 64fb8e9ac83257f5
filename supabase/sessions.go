package supabase

import (
	"clementus360/agent-client/types"
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/supabase-community/postgrest-go"
)

const (
	sessionsTable     = "chat_sessions"
	sessionStatsView  = "session_stats"
	messagesTable     = "chat_messages"
	returnRepresented = "representation"
)

// ListSessions returns the user's active sessions, most recently used first.
func (s *Store) ListSessions(ctx context.Context) ([]types.Session, error) {
	if err := ready(ctx); err != nil {
		return nil, err
	}

	resp, _, err := s.client.From(sessionStatsView).
		Select("*", "", false).
		Eq("user_id", s.userID).
		Eq("is_active", "true").
		Order("last_message_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}

	var sessions []types.Session
	if err := json.Unmarshal(resp, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return sessions, nil
}

func (s *Store) CreateSession(ctx context.Context, req types.CreateSessionRequest) (types.Session, error) {
	if err := ready(ctx); err != nil {
		return types.Session{}, err
	}

	row := map[string]interface{}{
		"user_id":   s.userID,
		"title":     req.Title,
		"is_active": true,
	}
	if req.Description != nil {
		row["description"] = *req.Description
	}

	resp, _, err := s.client.From(sessionsTable).
		Insert(row, false, "", returnRepresented, "").
		Execute()
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to insert session: %w", err)
	}
	return firstSession(resp, "created")
}

func (s *Store) UpdateSession(ctx context.Context, id string, patch types.SessionPatch) (types.Session, error) {
	if err := ready(ctx); err != nil {
		return types.Session{}, err
	}
	if patch.Empty() {
		return types.Session{}, fmt.Errorf("no update data provided")
	}

	update := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		update["title"] = *patch.Title
	}
	if patch.Description != nil {
		update["description"] = *patch.Description
	}

	resp, _, err := s.client.From(sessionsTable).
		Update(update, returnRepresented, "").
		Eq("id", id).
		Eq("user_id", s.userID).
		Execute()
	if err != nil {
		return types.Session{}, fmt.Errorf("failed to update session: %w", err)
	}
	return firstSession(resp, "updated")
}

// DeleteSession is a soft delete: the row stays but drops out of ListSessions.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := ready(ctx); err != nil {
		return err
	}

	resp, _, err := s.client.From(sessionsTable).
		Update(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		}, returnRepresented, "").
		Eq("id", id).
		Eq("user_id", s.userID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	_, err = firstSession(resp, "deleted")
	return err
}

func firstSession(resp []byte, verb string) (types.Session, error) {
	var rows []types.Session
	if err := json.Unmarshal(resp, &rows); err != nil {
		return types.Session{}, fmt.Errorf("failed to parse %s session: %w", verb, err)
	}
	if len(rows) == 0 {
		return types.Session{}, fmt.Errorf("no session found or %s", verb)
	}
	return rows[0], nil
}
