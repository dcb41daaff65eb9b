package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/applax-dev/gate-sdk/apierr"
)

// allowedMethods is the closed verb set Raw accepts.
var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Raw performs a single Gateway call: method and endpoint are validated
// locally, the request is built from the session defaults, sent with retry,
// and the response classified. Every named operation funnels through here.
//
// method is case-insensitive. endpoint is either a path relative to the
// session base URL (a missing leading slash is added) or an absolute http(s)
// URL, which is used as-is.
func (c *Client) Raw(ctx context.Context, method, endpoint string, payload any, query url.Values) (Object, error) {
	verb := strings.ToUpper(method)
	if !allowedMethods[verb] {
		return nil, apierr.New(apierr.KindValidation, 0,
			fmt.Sprintf("unsupported method %q (allowed: GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS)", method),
			nil)
	}

	if endpoint == "" {
		return nil, apierr.New(apierr.KindValidation, 0, "endpoint must not be empty", nil)
	}

	c.logger.Debug("api call",
		slog.String("method", verb),
		slog.String("endpoint", endpoint),
		slog.Bool("has_payload", payload != nil),
		slog.String("query", query.Encode()),
	)

	req, err := c.buildRequest(ctx, verb, endpoint, payload, query)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	return handleResponse(resp)
}

// Get performs a GET request against endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (Object, error) {
	return c.Raw(ctx, http.MethodGet, endpoint, nil, query)
}

// Post performs a POST request carrying payload.
func (c *Client) Post(ctx context.Context, endpoint string, payload any) (Object, error) {
	return c.Raw(ctx, http.MethodPost, endpoint, payload, nil)
}

// Put performs a PUT request carrying payload.
func (c *Client) Put(ctx context.Context, endpoint string, payload any) (Object, error) {
	return c.Raw(ctx, http.MethodPut, endpoint, payload, nil)
}

// Patch performs a PATCH request carrying payload.
func (c *Client) Patch(ctx context.Context, endpoint string, payload any) (Object, error) {
	return c.Raw(ctx, http.MethodPatch, endpoint, payload, nil)
}

// Delete performs a DELETE request against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) (Object, error) {
	return c.Raw(ctx, http.MethodDelete, endpoint, nil, nil)
}
