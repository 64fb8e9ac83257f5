package api

import (
	"clementus360/agent-client/types"
	"context"
	"fmt"
	"net/http"
)

func (c *Client) Chat(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error) {
	var resp types.ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("chat request was not successful")
	}
	return resp, nil
}
