package txn

import (
	"testing"
	"time"
)

func validTx() Transaction {
	return Transaction{
		ID:          "t1",
		Amount:      10,
		Currency:    "USD",
		Description: "d",
		Timestamp:   time.Now(),
	}
}

func TestValidateAccepts(t *testing.T) {
	tx := validTx()
	if errs := tx.Validate(); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateRejectsMissingID(t *testing.T) {
	tx := validTx()
	tx.ID = ""
	errs := tx.Validate()
	if len(errs) != 1 || errs[0].Path != "id" {
		t.Fatalf("expected a single id error, got %v", errs)
	}
}

func TestValidateRejectsNonPositiveAmount(t *testing.T) {
	tx := validTx()
	tx.Amount = 0
	errs := tx.Validate()
	if len(errs) != 1 || errs[0].Path != "amount" {
		t.Fatalf("expected a single amount error, got %v", errs)
	}
}

func TestValidateRejectsBadCurrency(t *testing.T) {
	tx := validTx()
	tx.Currency = "US"
	errs := tx.Validate()
	if len(errs) != 1 || errs[0].Path != "currency" {
		t.Fatalf("expected a single currency error, got %v", errs)
	}
}

func TestValidateCollectsMultipleIssues(t *testing.T) {
	tx := Transaction{}
	errs := tx.Validate()
	if len(errs) < 3 {
		t.Fatalf("expected multiple field errors, got %v", errs)
	}
}
