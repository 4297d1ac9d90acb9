// Package domain defines the persistent entities, the polymorphic reference
// type, and the rule evaluation primitives used by opstrack.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the kind of record stored in a collection.
type EntityType string

// Supported entity kind identifiers used in Change records, activity
// references, and persistence buckets.
const (
	// EntityUser identifies a user account record.
	EntityUser EntityType = "user"
	// EntityDocument identifies an uploaded document record.
	EntityDocument EntityType = "document"
	// EntityLead identifies a sales lead record.
	EntityLead EntityType = "lead"
	// EntityTender identifies a tender record.
	EntityTender EntityType = "tender"
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityMilestone identifies a project milestone record.
	EntityMilestone EntityType = "milestone"
	// EntityActivity identifies an audit trail record.
	EntityActivity EntityType = "activity"
)

// UserRole enumerates account permission tiers.
type UserRole string

// Canonical user roles.
const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleMember  UserRole = "member"
)

// LeadStatus enumerates the lead qualification pipeline.
type LeadStatus string

// Canonical lead statuses.
const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
)

// TenderStatus enumerates the tender workflow states. A tender that reaches
// won or lost is terminal.
type TenderStatus string

// Canonical tender statuses.
const (
	TenderStatusDraft       TenderStatus = "draft"
	TenderStatusSubmitted   TenderStatus = "submitted"
	TenderStatusUnderReview TenderStatus = "under_review"
	TenderStatusWon         TenderStatus = "won"
	TenderStatusLost        TenderStatus = "lost"
)

// ProjectStatus enumerates project delivery states.
type ProjectStatus string

// Canonical project statuses.
const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// MilestoneStatus enumerates milestone progress states.
type MilestoneStatus string

// Canonical milestone statuses.
const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
)

// ActionType describes the kind of mutation an activity records.
type ActionType string

// Canonical audit actions.
const (
	ActionCreate  ActionType = "create"
	ActionUpdate  ActionType = "update"
	ActionDelete  ActionType = "delete"
	ActionConvert ActionType = "convert"
	ActionUpload  ActionType = "upload"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all mutable domain records. IDs are
// allocated per collection, strictly increasing and never reused.
type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref is a polymorphic reference: a tagged (kind, id) pair letting a document
// or activity attach to a record of any referenceable entity kind. Carried as
// a pointer on the owning record so "both present or both absent" holds by
// construction.
type Ref struct {
	Kind EntityType `json:"related_to_type"`
	ID   int64      `json:"related_to_id"`
}

// referenceableKinds lists the kinds a Ref may name. Activities are
// append-only log entries and are never themselves a reference target.
var referenceableKinds = map[EntityType]struct{}{
	EntityUser:      {},
	EntityDocument:  {},
	EntityLead:      {},
	EntityTender:    {},
	EntityProject:   {},
	EntityMilestone: {},
}

// Validate checks that the pair names a defined, referenceable entity kind
// and a positive id. It does not resolve the target: a reference to a record
// that no longer exists (or never did) is accepted and surfaces later as an
// empty lookup result.
func (r Ref) Validate() error {
	if _, ok := referenceableKinds[r.Kind]; !ok {
		return fmt.Errorf("related_to_type %q is not a referenceable entity kind", r.Kind)
	}
	if r.ID <= 0 {
		return fmt.Errorf("related_to_id must be positive, got %d", r.ID)
	}
	return nil
}

// User represents an account that performs mutations and owns records.
type User struct {
	Base
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         UserRole `json:"role"`
}

// Document captures uploaded file metadata. The payload itself lives in the
// blob store under StorageKey; RelatedTo optionally attaches the document to
// any other entity.
type Document struct {
	Base
	Title       string `json:"title"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `json:"storage_key,omitempty"`
	UploadedBy  int64  `json:"uploaded_by"`
	RelatedTo   *Ref   `json:"related_to,omitempty"`
}

// Lead represents an early-stage business opportunity.
type Lead struct {
	Base
	Name    string     `json:"name"`
	Company string     `json:"company"`
	Email   string     `json:"email,omitempty"`
	Phone   string     `json:"phone,omitempty"`
	Status  LeadStatus `json:"status"`
	OwnerID *int64     `json:"owner_id"`
	Notes   *string    `json:"notes,omitempty"`
}

// Tender represents a formal bid. LeadID optionally records the lead it grew
// out of.
type Tender struct {
	Base
	Title       string       `json:"title"`
	Reference   string       `json:"reference"`
	Status      TenderStatus `json:"status"`
	LeadID      *int64       `json:"lead_id"`
	Value       float64      `json:"value"`
	DueDate     *time.Time   `json:"due_date"`
	Description *string      `json:"description,omitempty"`
}

// Project represents delivery work. TenderID records the winning tender the
// project originated from; it is the one typed cross-entity reference in the
// model.
type Project struct {
	Base
	Name             string        `json:"name"`
	Status           ProjectStatus `json:"status"`
	TenderID         *int64        `json:"tender_id"`
	ProjectManagerID *int64        `json:"project_manager_id"`
	StartDate        *time.Time    `json:"start_date"`
	EndDate          *time.Time    `json:"end_date"`
	Description      *string       `json:"description,omitempty"`
}

// Milestone is always scoped to exactly one project.
type Milestone struct {
	Base
	ProjectID   int64           `json:"project_id"`
	Title       string          `json:"title"`
	Status      MilestoneStatus `json:"status"`
	DueDate     *time.Time      `json:"due_date"`
	CompletedAt *time.Time      `json:"completed_at"`
}

// Activity is an immutable audit record. It deliberately does not embed Base:
// there is no UpdatedAt because activities are append-only by construction.
type Activity struct {
	ID          int64      `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Entity      EntityType `json:"type"`
	Action      ActionType `json:"action_type"`
	PerformedBy int64      `json:"performed_by_id"`
	RelatedTo   *Ref       `json:"related_to,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity   EntityType
	Action   ActionType
	EntityID int64
	Before   any
	After    any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID int64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the advisory (non-blocking) violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
