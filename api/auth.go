package api

import (
	"clementus360/agent-client/types"
	"context"
	"net/http"
)

func (c *Client) Signin(ctx context.Context, req types.SigninRequest) (types.AuthResponse, error) {
	var resp types.AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/signin", req, &resp)
	return resp, err
}

func (c *Client) Signup(ctx context.Context, req types.SignupRequest) (types.AuthResponse, error) {
	var resp types.AuthResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/signup", req, &resp)
	return resp, err
}

func (c *Client) Profile(ctx context.Context) (types.User, error) {
	var user types.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &user)
	return user, err
}

func (c *Client) VerifyToken(ctx context.Context) (types.VerifyTokenResponse, error) {
	var resp types.VerifyTokenResponse
	err := c.doJSON(ctx, http.MethodGet, "/auth/verify-token", nil, &resp)
	return resp, err
}
