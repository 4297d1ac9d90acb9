package core

import (
	"context"
	"testing"

	"opstrack/pkg/domain"
)

func submitTender(t *testing.T, svc *Service, title string) Tender {
	t.Helper()
	ctx := context.Background()
	tender, _, err := svc.CreateTender(ctx, 1, Tender{Title: title, Reference: "T-" + title})
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	tender, _, err = svc.UpdateTender(ctx, 1, tender.ID, func(tn *Tender) error {
		tn.Status = TenderStatusSubmitted
		return nil
	})
	if err != nil {
		t.Fatalf("submit tender: %v", err)
	}
	return tender
}

func TestConvertTenderToProject(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tender := submitTender(t, svc, "depot")

	project, won, err := svc.ConvertTenderToProject(ctx, 1, tender.ID, Project{Name: "Depot delivery"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if project.TenderID == nil || *project.TenderID != tender.ID {
		t.Fatalf("project must point back at the tender")
	}
	if won.Status != TenderStatusWon {
		t.Fatalf("tender should be won after conversion, got %s", won.Status)
	}

	stored, _ := svc.GetTender(tender.ID)
	if stored.Status != TenderStatusWon {
		t.Fatalf("won status should be committed, got %s", stored.Status)
	}

	trail := svc.ActivitiesRelatedTo(Ref{Kind: EntityTender, ID: tender.ID})
	if len(trail) == 0 || trail[0].Action != ActionConvert {
		t.Fatalf("newest tender activity should be the conversion")
	}
	if acts := svc.ActivitiesRelatedTo(Ref{Kind: EntityProject, ID: project.ID}); len(acts) != 1 || acts[0].Action != ActionCreate {
		t.Fatalf("project creation should be audited once")
	}
}

func TestConvertFromUnderReview(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tender := submitTender(t, svc, "bridge")
	tender, _, err := svc.UpdateTender(ctx, 1, tender.ID, func(tn *Tender) error {
		tn.Status = TenderStatusUnderReview
		return nil
	})
	if err != nil {
		t.Fatalf("move to under_review: %v", err)
	}

	if _, _, err := svc.ConvertTenderToProject(ctx, 1, tender.ID, Project{Name: "Bridge delivery"}); err != nil {
		t.Fatalf("under_review tender should convert: %v", err)
	}
}

func TestConvertRejectsIneligibleStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	draft, _, err := svc.CreateTender(ctx, 1, Tender{Title: "draft", Reference: "T-d"})
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	if _, _, err := svc.ConvertTenderToProject(ctx, 1, draft.ID, Project{Name: "nope"}); err == nil {
		t.Fatalf("draft tender must not convert")
	}

	won := submitTender(t, svc, "won")
	if _, _, err := svc.ConvertTenderToProject(ctx, 1, won.ID, Project{Name: "first"}); err != nil {
		t.Fatalf("first conversion: %v", err)
	}
	if _, _, err := svc.ConvertTenderToProject(ctx, 1, won.ID, Project{Name: "second"}); err == nil {
		t.Fatalf("won tender must not convert twice")
	}

	if projects := svc.ListProjects(); len(projects) != 1 {
		t.Fatalf("failed conversions must not create projects, got %d", len(projects))
	}
}

func TestConvertMissingTender(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.ConvertTenderToProject(context.Background(), 1, 404, Project{Name: "ghost"})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

type blockProjectCreation struct{}

func (blockProjectCreation) Name() string { return "block_project_creation" }

func (blockProjectCreation) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	var res Result
	for _, c := range changes {
		if c.Entity == EntityProject && c.Action == ActionCreate {
			res.Violations = append(res.Violations, Violation{
				Rule:     "block_project_creation",
				Severity: SeverityBlock,
				Message:  "capacity freeze",
				Entity:   EntityProject,
				EntityID: c.EntityID,
			})
		}
	}
	return res, nil
}

func TestConvertFailureLeavesTenderUntouched(t *testing.T) {
	engine := NewDefaultRulesEngine()
	engine.Register(blockProjectCreation{})
	svc := NewInMemoryService(engine)
	ctx := context.Background()
	tender := submitTender(t, svc, "frozen")

	_, _, err := svc.ConvertTenderToProject(ctx, 1, tender.ID, Project{Name: "blocked"})
	if err == nil {
		t.Fatalf("conversion should fail when the project cannot be created")
	}

	stored, _ := svc.GetTender(tender.ID)
	if stored.Status != TenderStatusSubmitted {
		t.Fatalf("failed conversion must leave the tender submitted, got %s", stored.Status)
	}
	if projects := svc.ListProjects(); len(projects) != 0 {
		t.Fatalf("no project should exist after a failed conversion")
	}
	trail := svc.ActivitiesRelatedTo(Ref{Kind: EntityTender, ID: tender.ID})
	for _, a := range trail {
		if a.Action == ActionConvert {
			t.Fatalf("failed conversion must not audit a convert action")
		}
	}
}
