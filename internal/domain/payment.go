package domain

type PaymentMethod string

const (
	PaymentMethodPix    PaymentMethod = "PIX"
	PaymentMethodCredit PaymentMethod = "CREDIT"
	PaymentMethodDebit  PaymentMethod = "DEBIT"
	PaymentMethodCash   PaymentMethod = "CASH"
)

// Valid reports whether the label is one of the accepted methods. Only the
// label is recorded; no payment processing happens here.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPix, PaymentMethodCredit, PaymentMethodDebit, PaymentMethodCash:
		return true
	}
	return false
}
