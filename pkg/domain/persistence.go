package domain

import "context"

// Transaction exposes the domain operations a persistence implementation
// must support within an atomic scope. Milestones cannot be deleted and
// activities can only be appended; the interface omits those operations so
// the asymmetry is enforced at compile time.
type Transaction interface {
	Snapshot() TransactionView

	CreateUser(User) (User, error)
	UpdateUser(id int64, mutator func(*User) error) (User, error)
	DeleteUser(id int64) error

	CreateDocument(Document) (Document, error)
	UpdateDocument(id int64, mutator func(*Document) error) (Document, error)
	DeleteDocument(id int64) error

	CreateLead(Lead) (Lead, error)
	UpdateLead(id int64, mutator func(*Lead) error) (Lead, error)
	DeleteLead(id int64) error

	CreateTender(Tender) (Tender, error)
	UpdateTender(id int64, mutator func(*Tender) error) (Tender, error)
	DeleteTender(id int64) error

	CreateProject(Project) (Project, error)
	UpdateProject(id int64, mutator func(*Project) error) (Project, error)
	DeleteProject(id int64) error

	CreateMilestone(Milestone) (Milestone, error)
	UpdateMilestone(id int64, mutator func(*Milestone) error) (Milestone, error)

	AppendActivity(Activity) (Activity, error)

	FindUser(id int64) (User, bool)
	FindDocument(id int64) (Document, bool)
	FindLead(id int64) (Lead, bool)
	FindTender(id int64) (Tender, bool)
	FindProject(id int64) (Project, bool)
	FindMilestone(id int64) (Milestone, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// read paths.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error

	GetUser(id int64) (User, bool)
	ListUsers() []User
	GetDocument(id int64) (Document, bool)
	ListDocuments() []Document
	GetLead(id int64) (Lead, bool)
	ListLeads() []Lead
	GetTender(id int64) (Tender, bool)
	ListTenders() []Tender
	GetProject(id int64) (Project, bool)
	ListProjects() []Project
	GetMilestone(id int64) (Milestone, bool)
	ListMilestones() []Milestone

	// ListActivities returns the audit trail newest first.
	ListActivities() []Activity

	// DocumentsRelatedTo and ActivitiesRelatedTo are derived views over the
	// underlying collections: an exact match on the polymorphic pair, with
	// unattached records never returned.
	DocumentsRelatedTo(ref Ref) []Document
	ActivitiesRelatedTo(ref Ref) []Activity
}
