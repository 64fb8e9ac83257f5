package api

import (
	"clementus360/agent-client/types"
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListSessions(ctx context.Context) ([]types.Session, error) {
	var sessions []types.Session
	if err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, req types.CreateSessionRequest) (types.Session, error) {
	var session types.Session
	err := c.doJSON(ctx, http.MethodPost, "/sessions", req, &session)
	return session, err
}

func (c *Client) UpdateSession(ctx context.Context, id string, patch types.SessionPatch) (types.Session, error) {
	var session types.Session
	err := c.doJSON(ctx, http.MethodPatch, "/sessions/"+url.PathEscape(id), patch, &session)
	return session, err
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListMessages(ctx context.Context, sessionID string) ([]types.RemoteMessage, error) {
	var messages []types.RemoteMessage
	path := "/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
