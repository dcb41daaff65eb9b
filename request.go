package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/applax-dev/gate-sdk/apierr"
)

// buildRequest assembles a fully-resolved outbound request from the session
// defaults: resolved URL, percent-encoded query, JSON body and the fixed
// header set. It performs no I/O.
func (c *Client) buildRequest(ctx context.Context, method, endpoint string, payload any, query url.Values) (*http.Request, error) {
	target := c.resolveURL(endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	body := io.Reader(http.NoBody)

	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, apierr.New(apierr.KindValidation, 0,
				fmt.Sprintf("encoding request payload: %v", err), nil)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, apierr.New(apierr.KindValidation, 0,
			fmt.Sprintf("building request: %v", err), nil)
	}

	req.Header = c.headers.Clone()

	return req, nil
}

// resolveURL prefixes endpoint with the session base URL. Absolute URLs pass
// through untouched, which is how payment execution reaches the method URLs
// the Gateway hands back inside an order.
func (c *Client) resolveURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	return c.base + endpoint
}
