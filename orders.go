package gate

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/applax-dev/gate-sdk/apierr"
)

const ordersBasePath = "/orders/"

// orderPath builds the resource path for one order.
func orderPath(id string) string {
	return ordersBasePath + url.PathEscape(id) + "/"
}

// OrdersService manages orders, the Gateway resource a payment runs against.
type OrdersService struct {
	client *Client
}

// OrderRequest describes an order to create. Amount and currency are
// mandatory; products are optional line items stored alongside the order.
type OrderRequest struct {
	Amount      decimal.Decimal  `json:"amount"                validate:"required,gt=0"`
	Currency    string           `json:"currency"              validate:"required,len=3"`
	Number      string           `json:"number,omitempty"`
	Description string           `json:"description,omitempty"`
	Language    string           `json:"language,omitempty"`
	Client      *ClientRequest   `json:"client,omitempty"`
	Products    []ProductRequest `json:"products,omitempty"    validate:"omitempty,dive"`

	// SkipCapture asks the Gateway to authorize without capturing, so the
	// funds are taken later with Capture. Passed through untouched; the SDK
	// attaches no meaning to it.
	SkipCapture bool `json:"skip_capture,omitempty"`
}

// Create registers a new order and returns it with the payment methods the
// Gateway issued for it.
func (s *OrdersService) Create(ctx context.Context, req *OrderRequest) (Order, error) {
	if err := validateRequest(req); err != nil {
		return Order{}, err
	}

	doc, err := s.client.Post(ctx, ordersBasePath, req)
	if err != nil {
		return Order{}, err
	}

	return Order{doc}, nil
}

// Get fetches one order.
func (s *OrdersService) Get(ctx context.Context, id string) (Order, error) {
	if id == "" {
		return Order{}, apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	doc, err := s.client.Get(ctx, orderPath(id), nil)
	if err != nil {
		return Order{}, apierr.AnnotateNotFound(err, "order", id)
	}

	return Order{doc}, nil
}

// List pages through orders. query carries Gateway-side filters (status,
// created ranges, page cursors) untouched.
func (s *OrdersService) List(ctx context.Context, query url.Values) (Collection, error) {
	doc, err := s.client.Get(ctx, ordersBasePath, query)
	if err != nil {
		return nil, err
	}

	return Collection(doc), nil
}

// Update applies a partial update. fields go to the Gateway as-is.
func (s *OrdersService) Update(ctx context.Context, id string, fields Object) (Order, error) {
	if id == "" {
		return Order{}, apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	doc, err := s.client.Patch(ctx, orderPath(id), fields)
	if err != nil {
		return Order{}, apierr.AnnotateNotFound(err, "order", id)
	}

	return Order{doc}, nil
}

// Delete removes an order that has not been paid.
func (s *OrdersService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	_, err := s.client.Delete(ctx, orderPath(id))

	return apierr.AnnotateNotFound(err, "order", id)
}

// Capture takes the funds of an order that was authorized with SkipCapture.
func (s *OrdersService) Capture(ctx context.Context, id string) (Order, error) {
	if id == "" {
		return Order{}, apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	doc, err := s.client.Post(ctx, orderPath(id)+"capture/", nil)
	if err != nil {
		return Order{}, apierr.AnnotateNotFound(err, "order", id)
	}

	return Order{doc}, nil
}

// Refund returns captured funds. A zero amount refunds the full order.
func (s *OrdersService) Refund(ctx context.Context, id string, amount decimal.Decimal) (Order, error) {
	if id == "" {
		return Order{}, apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	var payload any
	if amount.IsPositive() {
		payload = map[string]any{"amount": amount}
	}

	doc, err := s.client.Post(ctx, orderPath(id)+"refund/", payload)
	if err != nil {
		return Order{}, apierr.AnnotateNotFound(err, "order", id)
	}

	return Order{doc}, nil
}

// Cancel voids an authorized order without taking funds.
func (s *OrdersService) Cancel(ctx context.Context, id string) (Order, error) {
	if id == "" {
		return Order{}, apierr.New(apierr.KindValidation, 0, "order id is required", nil)
	}

	doc, err := s.client.Post(ctx, orderPath(id)+"cancel/", nil)
	if err != nil {
		return Order{}, apierr.AnnotateNotFound(err, "order", id)
	}

	return Order{doc}, nil
}
