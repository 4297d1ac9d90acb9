package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"opstrack/pkg/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustCreateLead(t *testing.T, store *Store, lead Lead) Lead {
	t.Helper()
	var created Lead
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateLead(lead)
		return txErr
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return created
}

func TestCreateStampsIdentityAndTimestamps(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetNowFunc(fixedClock(now))

	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})
	if lead.ID != 1 {
		t.Fatalf("first lead id should be 1, got %d", lead.ID)
	}
	if !lead.CreatedAt.Equal(now) || !lead.UpdatedAt.Equal(now) {
		t.Fatalf("create should stamp both timestamps with the clock: %v / %v", lead.CreatedAt, lead.UpdatedAt)
	}

	second := mustCreateLead(t, store, Lead{Name: "Casey", Company: "Globex", Status: domain.LeadStatusNew})
	if second.ID != 2 {
		t.Fatalf("second lead id should be 2, got %d", second.ID)
	}
}

func TestCreateDefaults(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var tender Tender
	var project Project
	var milestone Milestone
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		if tender, txErr = tx.CreateTender(Tender{Title: "Depot works", Reference: "T-100"}); txErr != nil {
			return txErr
		}
		if project, txErr = tx.CreateProject(Project{Name: "Depot"}); txErr != nil {
			return txErr
		}
		milestone, txErr = tx.CreateMilestone(Milestone{ProjectID: project.ID, Title: "Kickoff"})
		return txErr
	})
	if err != nil {
		t.Fatalf("create defaults: %v", err)
	}
	if tender.Status != domain.TenderStatusDraft {
		t.Fatalf("tender should default to draft, got %s", tender.Status)
	}
	if project.Status != domain.ProjectStatusActive {
		t.Fatalf("project should default to active, got %s", project.Status)
	}
	if milestone.Status != domain.MilestoneStatusPending {
		t.Fatalf("milestone should default to pending, got %s", milestone.Status)
	}
}

func TestUpdateMergesAndRepinsIdentity(t *testing.T) {
	store := NewStore(nil)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.SetNowFunc(fixedClock(created))
	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})

	updated := created.Add(2 * time.Hour)
	store.SetNowFunc(fixedClock(updated))

	var got Lead
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var txErr error
		got, txErr = tx.UpdateLead(lead.ID, func(l *Lead) error {
			l.Status = domain.LeadStatusContacted
			// Identity tampering must not stick.
			l.ID = 999
			l.CreatedAt = time.Time{}
			return nil
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("update lead: %v", err)
	}
	if got.ID != lead.ID {
		t.Fatalf("update must re-pin the id, got %d", got.ID)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("update must preserve CreatedAt, got %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(updated) {
		t.Fatalf("update must stamp UpdatedAt with the clock, got %v", got.UpdatedAt)
	}
	if got.Status != domain.LeadStatusContacted {
		t.Fatalf("mutated field lost: %s", got.Status)
	}
	if got.Name != "Jordan" || got.Company != "Acme" {
		t.Fatalf("untouched fields must survive: %q %q", got.Name, got.Company)
	}
}

func TestUpdateMutatorErrorAborts(t *testing.T) {
	store := NewStore(nil)
	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})

	boom := fmt.Errorf("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.UpdateLead(lead.ID, func(l *Lead) error {
			l.Status = domain.LeadStatusLost
			return boom
		})
		return txErr
	})
	if err == nil {
		t.Fatalf("expected mutator error to surface")
	}
	got, ok := store.GetLead(lead.ID)
	if !ok {
		t.Fatalf("lead should still exist")
	}
	if got.Status != domain.LeadStatusNew {
		t.Fatalf("failed update must not leak changes, got %s", got.Status)
	}
}

func TestNotFoundOnMissingIDs(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.UpdateUser(12, func(*User) error { return nil })
		return txErr
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("update of missing user should be NotFound, got %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteTender(7)
	})
	if !domain.IsNotFound(err) {
		t.Fatalf("delete of missing tender should be NotFound, got %v", err)
	}
}

func TestIDAllocatorNeverReuses(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		lead := mustCreateLead(t, store, Lead{Name: fmt.Sprintf("lead-%d", i), Company: "Acme", Status: domain.LeadStatusNew})
		ids = append(ids, lead.ID)
	}
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if err := tx.DeleteLead(ids[1]); err != nil {
			return err
		}
		return tx.DeleteLead(ids[2])
	})
	if err != nil {
		t.Fatalf("delete leads: %v", err)
	}

	next := mustCreateLead(t, store, Lead{Name: "lead-next", Company: "Acme", Status: domain.LeadStatusNew})
	if next.ID != 4 {
		t.Fatalf("allocator must not reuse deleted ids: got %d want 4", next.ID)
	}
}

func TestIDSequencesArePerCollection(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})

	var tender Tender
	var user User
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		if tender, txErr = tx.CreateTender(Tender{Title: "Depot works", Reference: "T-1"}); txErr != nil {
			return txErr
		}
		user, txErr = tx.CreateUser(User{Name: "Sam", Email: "sam@example.com", Role: domain.RoleMember})
		return txErr
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lead.ID != 1 || tender.ID != 1 || user.ID != 1 {
		t.Fatalf("each collection allocates independently: %d %d %d", lead.ID, tender.ID, user.ID)
	}
}

func TestSameIDAcrossCollectionsIsolated(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})
	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.CreateTender(Tender{Title: "Depot works", Reference: "T-1"})
		return txErr
	})
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteLead(lead.ID)
	})
	if err != nil {
		t.Fatalf("delete lead: %v", err)
	}
	if _, ok := store.GetTender(1); !ok {
		t.Fatalf("deleting lead 1 must not touch tender 1")
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, txErr := tx.CreateLead(Lead{Name: "ghost", Company: "Acme", Status: domain.LeadStatusNew}); txErr != nil {
			return txErr
		}
		return fmt.Errorf("abort")
	})
	if err == nil {
		t.Fatalf("expected error to propagate")
	}
	if leads := store.ListLeads(); len(leads) != 0 {
		t.Fatalf("aborted transaction must not commit, found %d leads", len(leads))
	}
}

type blockEverything struct{}

func (blockEverything) Name() string { return "block_everything" }

func (blockEverything) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	var res Result
	for _, c := range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "block_everything",
			Severity: domain.SeverityBlock,
			Message:  "nope",
			Entity:   c.Entity,
			EntityID: c.EntityID,
		})
	}
	return res, nil
}

func TestBlockingRulePreventsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockEverything{})
	store := NewStore(engine)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateLead(Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})
		return txErr
	})
	if err == nil {
		t.Fatalf("expected rule violation error")
	}
	rve, ok := err.(domain.RuleViolationError)
	if !ok {
		t.Fatalf("expected RuleViolationError, got %T", err)
	}
	if !res.HasBlocking() || !rve.Result.HasBlocking() {
		t.Fatalf("blocking violations should be reported")
	}
	if leads := store.ListLeads(); len(leads) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

func TestDocumentRelatedToValidation(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.CreateDocument(Document{Title: "log", FileName: "log.txt", UploadedBy: 1, RelatedTo: &Ref{Kind: domain.EntityActivity, ID: 1}})
		return txErr
	})
	if err == nil {
		t.Fatalf("activity must be rejected as a reference target")
	}

	// A dangling but well-formed reference is accepted.
	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		_, txErr := tx.CreateDocument(Document{Title: "log", FileName: "log.txt", UploadedBy: 1, RelatedTo: &Ref{Kind: domain.EntityLead, ID: 500}})
		return txErr
	})
	if err != nil {
		t.Fatalf("dangling reference should be accepted: %v", err)
	}
}

func TestActivitiesAppendOnlyAndOrdered(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		store.SetNowFunc(fixedClock(base.Add(time.Duration(i) * time.Minute)))
		_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
			_, txErr := tx.AppendActivity(Activity{
				Title:       fmt.Sprintf("entry-%d", i),
				Entity:      domain.EntityLead,
				Action:      domain.ActionUpdate,
				PerformedBy: 1,
			})
			return txErr
		})
		if err != nil {
			t.Fatalf("append activity: %v", err)
		}
	}

	activities := store.ListActivities()
	if len(activities) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(activities))
	}
	for i := range activities {
		if i > 0 && activities[i].CreatedAt.After(activities[i-1].CreatedAt) {
			t.Fatalf("activities must be newest first")
		}
	}
	if activities[0].Title != "entry-2" || activities[2].Title != "entry-0" {
		t.Fatalf("unexpected ordering: %s .. %s", activities[0].Title, activities[2].Title)
	}
}

func TestActivityOrderingTieBreaksOnID(t *testing.T) {
	store := NewStore(nil)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.SetNowFunc(fixedClock(now))

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		for i := 0; i < 3; i++ {
			if _, txErr := tx.AppendActivity(Activity{Title: fmt.Sprintf("same-%d", i), Entity: domain.EntityLead, Action: domain.ActionUpdate, PerformedBy: 1}); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	activities := store.ListActivities()
	for i := 1; i < len(activities); i++ {
		if activities[i].ID > activities[i-1].ID {
			t.Fatalf("equal timestamps must order by id descending")
		}
	}
}

func TestRelatedToFinders(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})
	ref := Ref{Kind: domain.EntityLead, ID: lead.ID}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, txErr := tx.CreateDocument(Document{Title: "pitch", FileName: "pitch.pdf", UploadedBy: 1, RelatedTo: &ref}); txErr != nil {
			return txErr
		}
		if _, txErr := tx.CreateDocument(Document{Title: "unrelated", FileName: "x.pdf", UploadedBy: 1}); txErr != nil {
			return txErr
		}
		_, txErr := tx.AppendActivity(Activity{Title: "called", Entity: domain.EntityLead, Action: domain.ActionUpdate, PerformedBy: 1, RelatedTo: &ref})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	docs := store.DocumentsRelatedTo(ref)
	if len(docs) != 1 || docs[0].Title != "pitch" {
		t.Fatalf("expected the attached document only, got %d", len(docs))
	}
	acts := store.ActivitiesRelatedTo(ref)
	if len(acts) != 1 || acts[0].Title != "called" {
		t.Fatalf("expected the attached activity only, got %d", len(acts))
	}

	// Same numeric id under a different kind matches nothing.
	if docs := store.DocumentsRelatedTo(Ref{Kind: domain.EntityTender, ID: lead.ID}); len(docs) != 0 {
		t.Fatalf("kind mismatch must not match, got %d docs", len(docs))
	}
}

func TestViewAndTransactionSnapshot(t *testing.T) {
	store := NewStore(nil)
	lead := mustCreateLead(t, store, Lead{Name: "Jordan", Company: "Acme", Status: domain.LeadStatusNew})

	err := store.View(context.Background(), func(view TransactionView) error {
		if _, ok := view.FindLead(lead.ID); !ok {
			t.Fatalf("view should see committed lead")
		}
		if view.ResolveRef(Ref{Kind: domain.EntityLead, ID: lead.ID}) == false {
			t.Fatalf("ref to live lead should resolve")
		}
		if view.ResolveRef(Ref{Kind: domain.EntityLead, ID: 999}) {
			t.Fatalf("ref to missing lead should not resolve")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	// Inside a transaction the snapshot sees uncommitted writes.
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		created, txErr := tx.CreateLead(Lead{Name: "Casey", Company: "Globex", Status: domain.LeadStatusNew})
		if txErr != nil {
			return txErr
		}
		if _, ok := tx.Snapshot().FindLead(created.ID); !ok {
			t.Fatalf("transaction snapshot should see pending write")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
