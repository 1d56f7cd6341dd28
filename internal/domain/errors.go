package domain

import "errors"

// ErrNotFound is returned by backend stores when the row is simply absent,
// as opposed to a backend fault.
var ErrNotFound = errors.New("not found")

// ErrDuplicateSubmission is returned on an order-header insert whose
// idempotency key already has a header.
var ErrDuplicateSubmission = errors.New("submission with this idempotency key already exists")
