package gate

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/applax-dev/gate-sdk/apierr"
)

// Fallback messages used when the Gateway body carries no message field.
const (
	msgInvalidInput = "Invalid input"
	msgAuthFailed   = "Authentication failed"
	msgNotFound     = "Resource not found"
	msgRateLimited  = "Rate limit exceeded"
	msgServerError  = "Server error"
	msgUnknown      = "Unknown error"
)

// handleResponse drains the response and maps it onto the error taxonomy.
// The body is decoded before the status is looked at: a body that does not
// decode as JSON is a Generic error naming the decode failure, whatever the
// status. A 503 serving an HTML error page is Generic, not a server error.
func handleResponse(resp *http.Response) (Object, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apierr.New(apierr.KindGeneric, resp.StatusCode,
			fmt.Sprintf("decoding response body: %v", err), nil)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		// A JSON null decodes cleanly but leaves no document to return.
		if body == nil {
			return nil, apierr.New(apierr.KindGeneric, resp.StatusCode,
				"response body is not a JSON object", nil)
		}

		return Object(body), nil
	}

	return nil, classifyStatus(resp, body)
}

// classifyStatus maps a non-success response onto the error taxonomy.
func classifyStatus(resp *http.Response, body map[string]any) *apierr.Error {
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apierr.New(apierr.KindValidation, resp.StatusCode, messageFrom(body, msgInvalidInput), body)

	case http.StatusUnauthorized, http.StatusForbidden:
		return apierr.New(apierr.KindAuthentication, resp.StatusCode, messageFrom(body, msgAuthFailed), body)

	case http.StatusNotFound:
		return apierr.New(apierr.KindNotFound, resp.StatusCode, messageFrom(body, msgNotFound), body)

	case http.StatusTooManyRequests:
		e := apierr.New(apierr.KindRateLimit, resp.StatusCode, messageFrom(body, msgRateLimited), body)
		e.RateLimit = parseRateLimit(resp.Header)
		return e

	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apierr.New(apierr.KindServer, resp.StatusCode, messageFrom(body, msgServerError), body)

	default:
		return apierr.New(apierr.KindGeneric, resp.StatusCode, messageFrom(body, msgUnknown), body)
	}
}

// messageFrom picks the Gateway-provided message over the fixed fallback.
func messageFrom(body map[string]any, fallback string) string {
	if m, ok := body["message"].(string); ok && m != "" {
		return m
	}
	return fallback
}

// parseRateLimit extracts throttling detail from 429 response headers.
// Absent or malformed headers leave their fields unset.
func parseRateLimit(h http.Header) *apierr.RateLimitInfo {
	info := &apierr.RateLimitInfo{}

	if v, err := strconv.Atoi(h.Get("Retry-After")); err == nil && v > 0 {
		info.RetryAfter = v
	}

	if v, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil {
		info.Limit = &v
	}

	if v, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil {
		info.Remaining = &v
	}

	if v, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil && v > 0 {
		info.ResetAt = v
	}

	return info
}
