package core

import (
	"context"
	"fmt"

	"opstrack/pkg/domain"
)

// ReferenceIntegrityRule surfaces dangling references as advisory warnings.
// Referential integrity across entity kinds is the caller's responsibility;
// the store accepts a reference to a missing record, and this rule only makes
// the condition visible. It never blocks a commit.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []Change) (Result, error) {
	var result Result
	warn := func(entity EntityType, id int64, msg string) {
		result.Violations = append(result.Violations, Violation{
			Rule:     "reference_integrity",
			Severity: SeverityWarn,
			Message:  msg,
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, change := range changes {
		if change.Action == ActionDelete {
			continue
		}
		switch after := change.After.(type) {
		case Document:
			if after.RelatedTo != nil && !view.ResolveRef(*after.RelatedTo) {
				warn(EntityDocument, after.ID, fmt.Sprintf("document %d references missing %s %d", after.ID, after.RelatedTo.Kind, after.RelatedTo.ID))
			}
			if after.UploadedBy != 0 {
				if _, ok := view.FindUser(after.UploadedBy); !ok {
					warn(EntityDocument, after.ID, fmt.Sprintf("document %d uploaded by missing user %d", after.ID, after.UploadedBy))
				}
			}
		case Activity:
			if after.RelatedTo != nil && !view.ResolveRef(*after.RelatedTo) {
				warn(EntityActivity, after.ID, fmt.Sprintf("activity %d references missing %s %d", after.ID, after.RelatedTo.Kind, after.RelatedTo.ID))
			}
		case Milestone:
			if _, ok := view.FindProject(after.ProjectID); !ok {
				warn(EntityMilestone, after.ID, fmt.Sprintf("milestone %d references missing project %d", after.ID, after.ProjectID))
			}
		case Project:
			if after.TenderID != nil {
				if _, ok := view.FindTender(*after.TenderID); !ok {
					warn(EntityProject, after.ID, fmt.Sprintf("project %d references missing tender %d", after.ID, *after.TenderID))
				}
			}
			if after.ProjectManagerID != nil {
				if _, ok := view.FindUser(*after.ProjectManagerID); !ok {
					warn(EntityProject, after.ID, fmt.Sprintf("project %d references missing manager %d", after.ID, *after.ProjectManagerID))
				}
			}
		case Tender:
			if after.LeadID != nil {
				if _, ok := view.FindLead(*after.LeadID); !ok {
					warn(EntityTender, after.ID, fmt.Sprintf("tender %d references missing lead %d", after.ID, *after.LeadID))
				}
			}
		}
	}
	return result, nil
}
