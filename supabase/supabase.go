// Package supabase reads and writes chat sessions straight from the backend's
// Supabase tables, for setups that point the client at the database instead of the API.
package supabase

import (
	"clementus360/agent-client/auth"
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// Store implements the session store and message source over PostgREST. Row level
// security scopes every query to the signed-in user; the explicit user_id filters
// mirror the backend's queries.
type Store struct {
	client *supabase.Client
	userID string
}

// NewStore builds a client that acts as the holder of accessToken.
func NewStore(apiURL, apiKey string, creds auth.Provider) (*Store, error) {
	if apiURL == "" || apiKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL or SUPABASE_KEY is missing")
	}

	userID, err := auth.UserID(creds)
	if err != nil {
		return nil, err
	}

	client, err := supabase.NewClient(apiURL, apiKey, &supabase.ClientOptions{
		Headers: map[string]string{
			"Authorization": "Bearer " + creds.Token(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &Store{client: client, userID: userID}, nil
}

func (s *Store) UserID() string {
	return s.userID
}

// postgrest-go has no context support; honour cancellation before each query.
func ready(ctx context.Context) error {
	return ctx.Err()
}
