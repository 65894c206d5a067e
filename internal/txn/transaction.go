// Package txn defines the transaction data model: the immutable
// Transaction submitted by a client, and the mutable TransactionState
// the gateway maintains for it.
package txn

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Transaction is a client-submitted intent to record a financial event
// downstream. It is immutable once accepted: nothing in the gateway
// mutates a Transaction after Submit validates it.
//
// ID doubles as the idempotency key: the same ID submitted more than
// once must correspond to at most one downstream effect.
type Transaction struct {
	ID          string         `json:"id" validate:"required"`
	Amount      float64        `json:"amount" validate:"gt=0"`
	Currency    string         `json:"currency" validate:"required,len=3"`
	Description string         `json:"description" validate:"required"`
	Timestamp   time.Time      `json:"timestamp" validate:"required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// FieldError describes a single field-level validation failure, in the
// shape the HTTP layer surfaces under 400 Bad Request.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validate checks tx against the struct tags above and returns the
// full list of field-level issues, if any. A nil/empty result means
// tx is well-formed.
func (tx *Transaction) Validate() []FieldError {
	err := validate.Struct(tx)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Path: "", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Path:    fieldPath(fe.Field()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldPath(field string) string {
	switch field {
	case "ID":
		return "id"
	case "Amount":
		return "amount"
	case "Currency":
		return "currency"
	case "Description":
		return "description"
	case "Timestamp":
		return "timestamp"
	default:
		return field
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be strictly positive"
	case "len":
		return "must be exactly 3 characters"
	default:
		return "is invalid"
	}
}
