package gate

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/applax-dev/gate-sdk/apierr"
)

const productsBasePath = "/products/"

func productPath(id string) string {
	return productsBasePath + url.PathEscape(id) + "/"
}

// ProductsService manages the product catalog.
type ProductsService struct {
	client *Client
}

// ProductRequest describes a catalog item or an order line.
type ProductRequest struct {
	Title       string          `json:"title"              validate:"required"`
	Price       decimal.Decimal `json:"price"              validate:"required,gt=0"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Quantity    int             `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Description string          `json:"description,omitempty"`
}

// Create adds a product to the catalog.
func (s *ProductsService) Create(ctx context.Context, req *ProductRequest) (Product, error) {
	if err := validateRequest(req); err != nil {
		return Product{}, err
	}

	doc, err := s.client.Post(ctx, productsBasePath, req)
	if err != nil {
		return Product{}, err
	}

	return Product{doc}, nil
}

// Get fetches one product.
func (s *ProductsService) Get(ctx context.Context, id string) (Product, error) {
	if id == "" {
		return Product{}, apierr.New(apierr.KindValidation, 0, "product id is required", nil)
	}

	doc, err := s.client.Get(ctx, productPath(id), nil)
	if err != nil {
		return Product{}, apierr.AnnotateNotFound(err, "product", id)
	}

	return Product{doc}, nil
}

// List pages through the catalog.
func (s *ProductsService) List(ctx context.Context, query url.Values) (Collection, error) {
	doc, err := s.client.Get(ctx, productsBasePath, query)
	if err != nil {
		return nil, err
	}

	return Collection(doc), nil
}

// Update applies a partial update. fields go to the Gateway as-is.
func (s *ProductsService) Update(ctx context.Context, id string, fields Object) (Product, error) {
	if id == "" {
		return Product{}, apierr.New(apierr.KindValidation, 0, "product id is required", nil)
	}

	doc, err := s.client.Patch(ctx, productPath(id), fields)
	if err != nil {
		return Product{}, apierr.AnnotateNotFound(err, "product", id)
	}

	return Product{doc}, nil
}

// Delete removes a product from the catalog.
func (s *ProductsService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apierr.New(apierr.KindValidation, 0, "product id is required", nil)
	}

	_, err := s.client.Delete(ctx, productPath(id))

	return apierr.AnnotateNotFound(err, "product", id)
}
