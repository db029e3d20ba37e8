package service_test

import (
	"context"
	"testing"

	"github.com/ndewijer/Crypto-Tax-Calculator/internal/testutil"
)

func TestSystemService_CheckHealth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSystemService(t, db)

	if err := svc.CheckHealth(); err != nil {
		t.Errorf("CheckHealth() returned unexpected error: %v", err)
	}
}

// TestSystemService_GetStatus tests the status report.
//
// WHY: Status is the quickest way to confirm which schema a database file is
// on and whether a recompute has stored anything.
func TestSystemService_GetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestSystemService(t, db)
	ctx := context.Background()

	seedWallet(t, testutil.NewTestTransactionService(t, db), "w1")
	testutil.NewTransaction("w2", "ETH").Build(t, db)

	if _, err := testutil.NewTestTaxService(t, db).CalculateTaxes(ctx, "w1", nil); err != nil {
		t.Fatalf("CalculateTaxes() failed: %v", err)
	}

	status, err := svc.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus() returned unexpected error: %v", err)
	}

	if status.AppVersion != "test" {
		t.Errorf("Expected app version test, got %q", status.AppVersion)
	}
	if status.DbVersion != 2 {
		t.Errorf("Expected schema version 2, got %d", status.DbVersion)
	}
	if status.Wallets != 2 || status.Transactions != 4 || status.TaxRecords != 5 {
		t.Errorf("Expected 2 wallets, 4 transactions, 5 records, got %+v", status)
	}
}
