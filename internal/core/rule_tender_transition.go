package core

import (
	"context"
	"fmt"

	"opstrack/pkg/domain"
)

// TenderTransitionRule blocks illegal tender status transitions. The legal
// machine is draft -> submitted -> under_review -> won|lost, with submitted
// also allowed to jump straight to won or lost; won and lost are terminal.
func TenderTransitionRule() domain.Rule {
	return tenderTransitionRule{}
}

type tenderTransitionRule struct{}

var tenderTransitions = map[domain.TenderStatus][]domain.TenderStatus{
	domain.TenderStatusDraft:       {domain.TenderStatusSubmitted},
	domain.TenderStatusSubmitted:   {domain.TenderStatusUnderReview, domain.TenderStatusWon, domain.TenderStatusLost},
	domain.TenderStatusUnderReview: {domain.TenderStatusWon, domain.TenderStatusLost},
	domain.TenderStatusWon:         {},
	domain.TenderStatusLost:        {},
}

func (tenderTransitionRule) Name() string { return "tender_status_transition" }

func (tenderTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	var result Result
	for _, change := range changes {
		if change.Entity != EntityTender || change.Action != ActionUpdate {
			continue
		}
		before, ok := change.Before.(Tender)
		if !ok {
			continue
		}
		after, ok := change.After.(Tender)
		if !ok {
			continue
		}
		if before.Status == after.Status {
			continue
		}
		if !tenderTransitionAllowed(before.Status, after.Status) {
			result.Violations = append(result.Violations, Violation{
				Rule:     "tender_status_transition",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("tender %d cannot move from %s to %s", after.ID, before.Status, after.Status),
				Entity:   EntityTender,
				EntityID: after.ID,
			})
		}
	}
	return result, nil
}

func tenderTransitionAllowed(from, to domain.TenderStatus) bool {
	for _, next := range tenderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
