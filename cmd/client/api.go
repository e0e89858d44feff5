package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/iostack-ai/client-example/cmd/internal/deadline"
	"github.com/iostack-ai/client-example/cmd/internal/transport"
)

type sessionRequest struct {
	UseCaseID  string         `json:"use_case_id"`
	ClientData map[string]any `json:"client_data,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
}

type sessionResponse struct {
	SessionID    string `json:"session_id"`
	RefreshToken string `json:"refresh_token"`
}

type refreshTokenRequest struct {
	UseCaseID  string         `json:"use_case_id"`
	ClientData map[string]any `json:"client_data,omitempty"`
}

type refreshTokenResponse struct {
	RefreshToken string `json:"refresh_token"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type metadataResponse struct {
	UseCase map[string]any `json:"use_case"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func sessionPath(sessionID, leaf string) string {
	return "/v1/use_case/session/" + url.PathEscape(sessionID) + "/" + leaf
}

// call runs one bounded JSON call.
func (c *Client) call(ctx context.Context, timeout time.Duration, req transport.Request, dst any) error {
	t := deadline.New(ctx, timeout)
	defer t.Reset()

	return timeoutErr(t, c.api.DoJSON(t.Context(), req, dst))
}

func (c *Client) establishSession(ctx context.Context) error {
	c.log.Info("session.establish", "platform_root", c.api.Root())

	key := c.creds.Store().AccessKey()

	var out sessionResponse
	err := c.call(ctx, c.cfg.CallTimeout, transport.Request{
		Endpoint: "session",
		Method:   http.MethodPost,
		Path:     "/v1/use_case/session",
		Bearer:   key,
		Body: sessionRequest{
			UseCaseID:  key,
			ClientData: c.useCaseData,
			UserID:     c.userID,
		},
	}, &out)
	if err != nil {
		return c.surface(ctx, "Error while establishing session", err)
	}

	if err := c.creds.SeedRefreshToken(out.RefreshToken); err != nil {
		return c.surface(ctx, "Error while establishing session", err)
	}
	if out.SessionID == "" {
		return c.surface(ctx, "Error while establishing session", ErrSessionNotIssued)
	}
	c.sessionID = out.SessionID

	c.log.Info("session.established", "session_id", c.sessionID)
	return nil
}

func (c *Client) retrieveUseCaseMetadata(ctx context.Context) error {
	const op = "Error while retrieving use case metadata"

	c.log.Info("metadata.fetch", "details", c.cfg.MetadataDetails)

	if err := c.creds.EnsureFresh(ctx); err != nil {
		return c.surface(ctx, op, err)
	}

	var out metadataResponse
	err := c.call(ctx, c.cfg.CallTimeout, transport.Request{
		Endpoint: "meta",
		Method:   http.MethodGet,
		Path:     "/v1/use_case/meta",
		Query:    url.Values{"details": c.cfg.MetadataDetails},
		Bearer:   c.creds.Store().AccessToken(),
	}, &out)
	if err != nil {
		return c.surface(ctx, op, err)
	}

	c.metadata = out.UseCase
	return nil
}

func (c *Client) streamRequest(message string) transport.Request {
	return transport.Request{
		Endpoint: "stream",
		Method:   http.MethodPost,
		Path:     sessionPath(c.sessionID, "stream"),
		Bearer:   c.creds.Store().AccessToken(),
		Body:     messageRequest{Message: message},
	}
}

// renewer performs credential renewal calls for the credentials.Manager.
type renewer struct {
	c *Client
}

func (r renewer) RenewRefreshToken(ctx context.Context, accessKey string) (string, error) {
	const op = "Error while refreshing session refresh token"
	c := r.c

	if c.sessionID == "" {
		c.reportErrorString(ctx, "Error refreshing refresh token", msgNoSession)
		return "", &Error{Op: op, Err: ErrNoSession}
	}

	var out refreshTokenResponse
	err := c.call(ctx, c.cfg.CallTimeout, transport.Request{
		Endpoint: "refresh_token",
		Method:   http.MethodPost,
		Path:     sessionPath(c.sessionID, "refresh_token"),
		Bearer:   accessKey,
		Body: refreshTokenRequest{
			UseCaseID:  accessKey,
			ClientData: c.useCaseData,
		},
	}, &out)
	if err != nil {
		return "", c.surface(ctx, op, err)
	}

	c.metrics.ObserveRenewal("refresh")
	return out.RefreshToken, nil
}

func (r renewer) RenewAccessToken(ctx context.Context, refreshToken string) (string, error) {
	const op = "Error while refreshing access token"
	c := r.c

	if c.sessionID == "" {
		c.reportErrorString(ctx, "Error refreshing access token", msgNoSession)
		return "", &Error{Op: op, Err: ErrNoSession}
	}

	var out accessTokenResponse
	err := c.call(ctx, c.cfg.CallTimeout, transport.Request{
		Endpoint: "access_token",
		Method:   http.MethodPost,
		Path:     sessionPath(c.sessionID, "access_token"),
		Bearer:   refreshToken,
		Body:     struct{}{},
	}, &out)
	if err != nil {
		return "", c.surface(ctx, op, err)
	}

	c.metrics.ObserveRenewal("access")
	return out.AccessToken, nil
}
