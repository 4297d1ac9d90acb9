package domain

import "context"

// RuleView provides read-only access to transactional state for rule
// evaluation.
type RuleView interface {
	ListUsers() []User
	ListDocuments() []Document
	ListLeads() []Lead
	ListTenders() []Tender
	ListProjects() []Project
	ListMilestones() []Milestone
	ListActivities() []Activity
	FindUser(id int64) (User, bool)
	FindDocument(id int64) (Document, bool)
	FindLead(id int64) (Lead, bool)
	FindTender(id int64) (Tender, bool)
	FindProject(id int64) (Project, bool)
	FindMilestone(id int64) (Milestone, bool)
	ResolveRef(ref Ref) bool
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
