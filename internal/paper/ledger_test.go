package paper

import (
	"testing"

	"statarb/internal/execution"
)

func TestLedgerRecordSnapshotReset(t *testing.T) {
	ledger := NewLedger(-1)
	ledger.Record(execution.Fill{Symbol: "AAPL", Side: execution.Buy, Qty: 1, Price: 10})
	ledger.Record(execution.Fill{Symbol: "MSFT", Side: execution.Sell, Qty: 2, Price: 20})

	snap := ledger.Snapshot()
	if len(snap) != 2 || snap[0].Symbol != "AAPL" || snap[1].Side != execution.Sell {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// Mutating the snapshot must not touch the ledger.
	snap[0].Symbol = "XXX"
	if ledger.Snapshot()[0].Symbol != "AAPL" {
		t.Fatal("snapshot aliases ledger storage")
	}

	ledger.Reset()
	if ledger.Len() != 0 {
		t.Fatalf("ledger not empty after reset: %d", ledger.Len())
	}
}
