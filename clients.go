package gate

import (
	"context"
	"net/url"

	"github.com/applax-dev/gate-sdk/apierr"
)

const clientsBasePath = "/clients/"

func clientPath(id string) string {
	return clientsBasePath + url.PathEscape(id) + "/"
}

// ClientsService manages stored payers.
type ClientsService struct {
	client *Client
}

// ClientRequest describes a payer. At least one of email or phone must be
// set so the Gateway can address receipts and verification.
type ClientRequest struct {
	Email     string `json:"email,omitempty"      validate:"required_without=Phone,omitempty,email"`
	Phone     string `json:"phone,omitempty"      validate:"required_without=Email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Create stores a payer and returns the Gateway's record of it.
func (s *ClientsService) Create(ctx context.Context, req *ClientRequest) (Object, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	return s.client.Post(ctx, clientsBasePath, req)
}

// Get fetches one stored payer.
func (s *ClientsService) Get(ctx context.Context, id string) (Object, error) {
	if id == "" {
		return nil, apierr.New(apierr.KindValidation, 0, "client id is required", nil)
	}

	doc, err := s.client.Get(ctx, clientPath(id), nil)
	if err != nil {
		return nil, apierr.AnnotateNotFound(err, "client", id)
	}

	return doc, nil
}

// List pages through stored payers.
func (s *ClientsService) List(ctx context.Context, query url.Values) (Collection, error) {
	doc, err := s.client.Get(ctx, clientsBasePath, query)
	if err != nil {
		return nil, err
	}

	return Collection(doc), nil
}

// Update applies a partial update. fields go to the Gateway as-is.
func (s *ClientsService) Update(ctx context.Context, id string, fields Object) (Object, error) {
	if id == "" {
		return nil, apierr.New(apierr.KindValidation, 0, "client id is required", nil)
	}

	doc, err := s.client.Patch(ctx, clientPath(id), fields)
	if err != nil {
		return nil, apierr.AnnotateNotFound(err, "client", id)
	}

	return doc, nil
}

// Delete removes a stored payer.
func (s *ClientsService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierr.New(apierr.KindValidation, 0, "client id is required", nil)
	}

	_, err := s.client.Delete(ctx, clientPath(id))

	return apierr.AnnotateNotFound(err, "client", id)
}
