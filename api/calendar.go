package api

import (
	"clementus360/agent-client/types"
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CalendarStatus(ctx context.Context) (types.CalendarStatus, error) {
	var status types.CalendarStatus
	err := c.doJSON(ctx, http.MethodGet, "/calendar/status", nil, &status)
	return status, err
}

func (c *Client) CalendarConnect(ctx context.Context) (types.CalendarConnectResponse, error) {
	var resp types.CalendarConnectResponse
	err := c.doJSON(ctx, http.MethodPost, "/calendar/connect", nil, &resp)
	return resp, err
}

func (c *Client) CalendarDisconnect(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/calendar/disconnect", nil, nil)
}

// UpcomingMeetings forwards query verbatim; the backend interprets phrases like "next week".
func (c *Client) UpcomingMeetings(ctx context.Context, query string) (string, error) {
	var resp types.MeetingsResponse
	path := "/calendar/meetings?" + url.Values{"query": {query}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Meetings, nil
}
