package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"opstrack/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opstrack.db")
	ctx := context.Background()

	store := openStore(t, path)
	var lead domain.Lead
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		if lead, txErr = tx.CreateLead(domain.Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew}); txErr != nil {
			return txErr
		}
		_, txErr = tx.AppendActivity(domain.Activity{Title: "created", Entity: domain.EntityLead, Action: domain.ActionCreate, PerformedBy: 1, RelatedTo: &domain.Ref{Kind: domain.EntityLead, ID: lead.ID}})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	got, ok := reopened.GetLead(lead.ID)
	if !ok {
		t.Fatalf("lead should survive a reopen")
	}
	if got.Name != "Jordan" || got.Company != "Acme" {
		t.Fatalf("reloaded lead mismatch: %+v", got)
	}
	if acts := reopened.ListActivities(); len(acts) != 1 || acts[0].Title != "created" {
		t.Fatalf("activities should survive a reopen")
	}
}

func TestAllocatorSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opstrack.db")
	ctx := context.Background()

	store := openStore(t, path)
	var first domain.Lead
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		first, txErr = tx.CreateLead(domain.Lead{Name: "one", Company: "Acme", Status: domain.LeadStatusNew})
		return txErr
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Burn the id by deleting the record before reopening.
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteLead(first.ID)
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	var next domain.Lead
	_, err = reopened.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var txErr error
		next, txErr = tx.CreateLead(domain.Lead{Name: "two", Company: "Acme", Status: domain.LeadStatusNew})
		return txErr
	})
	if err != nil {
		t.Fatalf("create after reload: %v", err)
	}
	if next.ID != first.ID+1 {
		t.Fatalf("deleted ids must stay burned across reloads: got %d want %d", next.ID, first.ID+1)
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opstrack.db")
	ctx := context.Background()

	store := openStore(t, path)
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, txErr := tx.CreateLead(domain.Lead{Name: "ghost", Company: "Acme", Status: domain.LeadStatusNew}); txErr != nil {
			return txErr
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if leads := reopened.ListLeads(); len(leads) != 0 {
		t.Fatalf("aborted transaction must not be persisted, found %d leads", len(leads))
	}
}
