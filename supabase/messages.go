package supabase

import (
	"clementus360/agent-client/types"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/supabase-community/postgrest-go"
)

// ListMessages returns a session's messages in message_order.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]types.RemoteMessage, error) {
	if err := ready(ctx); err != nil {
		return nil, err
	}

	resp, _, err := s.client.From(messagesTable).
		Select("role, content, created_at", "", false).
		Eq("session_id", sessionID).
		Eq("user_id", s.userID).
		Order("message_order", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var messages []types.RemoteMessage
	if err := json.Unmarshal(resp, &messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return messages, nil
}
