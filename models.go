package gate

import "github.com/shopspring/decimal"

// Order is a field-accessor view over an order document. It adds nothing to
// the underlying Object beyond named getters for the fields every
// integration reads.
type Order struct {
	Object
}

// Number returns the human-facing order number.
func (o Order) Number() string {
	return o.String("number")
}

// Status returns the Gateway's order status string. The SDK does not
// interpret it.
func (o Order) Status() string {
	return o.String("status")
}

// Amount returns the order total.
func (o Order) Amount() decimal.Decimal {
	return o.Decimal("amount")
}

// Currency returns the ISO 4217 currency code.
func (o Order) Currency() string {
	return o.String("currency")
}

// CheckoutURL returns the hosted checkout URL, when the Gateway issued one.
func (o Order) CheckoutURL() string {
	return o.String("api_do_url")
}

// PaymentMethods returns the payment-method entries attached to the order.
// Each carries the absolute execution URL for that method.
func (o Order) PaymentMethods() []PaymentMethod {
	objs := o.Objects("available_payment_methods")
	methods := make([]PaymentMethod, 0, len(objs))
	for _, obj := range objs {
		methods = append(methods, PaymentMethod{obj})
	}
	return methods
}

// PaymentMethod is one way to pay an order, as returned inside the order
// document.
type PaymentMethod struct {
	Object
}

// Name returns the method identifier ("card", "apple_pay", ...).
func (m PaymentMethod) Name() string {
	return m.String("name")
}

// URL returns the absolute endpoint payments for this method are executed
// against. Pass it to Payments.Execute.
func (m PaymentMethod) URL() string {
	return m.String("url")
}

// Product is a field-accessor view over a product document.
type Product struct {
	Object
}

// Title returns the product title.
func (p Product) Title() string {
	return p.String("title")
}

// Price returns the unit price.
func (p Product) Price() decimal.Decimal {
	return p.Decimal("price")
}

// Currency returns the ISO 4217 currency code.
func (p Product) Currency() string {
	return p.String("currency")
}
