package checkout

import "fmt"

// WriteStage names which of the two independent writes failed. Header
// failures leave nothing behind and are safe to retry; line failures leave
// a header without detail.
type WriteStage string

const (
	StageHeader WriteStage = "header"
	StageLines  WriteStage = "lines"
)

type WriteError struct {
	Stage WriteStage
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("order %s write failed: %v", e.Stage, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ValidationError covers everything caught locally before any network call.
type ValidationError struct {
	Reason string
}

const (
	ReasonEmptyCart      = "cart is empty"
	ReasonPaymentMethod  = "payment method missing or unknown"
	ReasonVendorMismatch = "cart contains items from more than one vendor"
)

func (e *ValidationError) Error() string {
	return "submission rejected: " + e.Reason
}
