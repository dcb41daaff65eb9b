package gate

import "context"

const brandsBasePath = "/brands/"

// BrandsService reads the card brands enabled for the Gateway account.
type BrandsService struct {
	client *Client
}

// List returns the enabled brands.
func (s *BrandsService) List(ctx context.Context) (Collection, error) {
	doc, err := s.client.Get(ctx, brandsBasePath, nil)
	if err != nil {
		return nil, err
	}

	return Collection(doc), nil
}
