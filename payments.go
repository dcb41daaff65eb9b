package gate

import (
	"context"
	"strings"

	"github.com/applax-dev/gate-sdk/apierr"
)

// PaymentsService executes payments against the method URLs the Gateway
// issues inside an order.
type PaymentsService struct {
	client *Client
}

// PaymentRequest carries the card or token data posted to a payment-method
// URL. Card fields are for direct entry; Token replays a stored card.
type PaymentRequest struct {
	CardholderName string `json:"cardholder_name,omitempty"`
	Number         string `json:"number,omitempty"    validate:"required_without=Token,omitempty,credit_card"`
	ExpMonth       int    `json:"exp_month,omitempty" validate:"required_with=Number,omitempty,min=1,max=12"`
	ExpYear        int    `json:"exp_year,omitempty"  validate:"required_with=Number,omitempty,min=2000"`
	CVV            string `json:"cvv,omitempty"       validate:"required_with=Number,omitempty,len=3|len=4"`
	Token          string `json:"token,omitempty"     validate:"required_without=Number"`
}

// Execute runs a payment by posting req to a method URL taken from the
// order's available payment methods. The URL is absolute and used as-is; the
// session base URL does not apply.
func (s *PaymentsService) Execute(ctx context.Context, methodURL string, req *PaymentRequest) (Order, error) {
	if !strings.HasPrefix(methodURL, "http://") && !strings.HasPrefix(methodURL, "https://") {
		return Order{}, apierr.New(apierr.KindValidation, 0, "payment method url must be absolute", nil)
	}

	if err := validateRequest(req); err != nil {
		return Order{}, err
	}

	doc, err := s.client.Post(ctx, methodURL, req)
	if err != nil {
		return Order{}, err
	}

	return Order{doc}, nil
}

// Methods extracts the payment-method entries the Gateway attached to an
// order.
func (s *PaymentsService) Methods(o Order) []PaymentMethod {
	return o.PaymentMethods()
}
