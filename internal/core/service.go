package core

import (
	"context"
	"fmt"
	"time"

	"opstrack/internal/blob"
	"opstrack/internal/infra/persistence/memory"
	"opstrack/pkg/domain"
)

// Service is the mutation façade: the only path by which callers create,
// update, or delete entities. It delegates merge and timestamp semantics to
// the store and pairs every successful mutation with exactly one audit trail
// append. The entity write and the audit append are two separate store
// transactions; there is no cross-collection atomicity between them.
type Service struct {
	store   PersistentStore
	blobs   blob.Store
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// Option customizes service construction.
type Option func(*Service)

// WithLogger installs a structured logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics installs a metrics recorder observing every operation.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer installs a tracer wrapping every operation in a span.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithBlobStore installs a blob backend for document payloads. Without one
// the document file operations return an error.
func WithBlobStore(store blob.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.blobs = store
		}
	}
}

// WithClock overrides the clock used for operation timing.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// NewMemoryStore constructs the reference in-memory store.
func NewMemoryStore(engine *RulesEngine) *memory.Store {
	return memory.NewStore(engine)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// audit appends the activity that pairs with a just-committed mutation. The
// append is its own transaction: if it fails the entity stays mutated and the
// returned error reports the gap.
func (s *Service) audit(ctx context.Context, actor int64, action ActionType, entity EntityType, id int64, title string) error {
	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.AppendActivity(Activity{
			Title:       title,
			Entity:      entity,
			Action:      action,
			PerformedBy: actor,
			RelatedTo:   &Ref{Kind: entity, ID: id},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("audit append for %s %d: %w", entity, id, err)
	}
	return nil
}

func (s *Service) logWarnings(res Result) {
	for _, v := range res.Warnings() {
		s.logger.Warn("rule warning", "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
	}
}

// --- users ------------------------------------------------------------------

// CreateUser persists a new user and audits the creation.
func (s *Service) CreateUser(ctx context.Context, actor int64, user User) (User, Result, error) {
	var created User
	var res Result
	err := s.instrument(ctx, "create_user", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateUser(user)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityUser, created.ID, fmt.Sprintf("user %s created", created.Name))
	})
	return created, res, err
}

// UpdateUser mutates a user using the provided mutator.
func (s *Service) UpdateUser(ctx context.Context, actor, id int64, mutator func(*User) error) (User, Result, error) {
	var updated User
	var res Result
	err := s.instrument(ctx, "update_user", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateUser(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityUser, id, fmt.Sprintf("user %s updated", updated.Name))
	})
	return updated, res, err
}

// DeleteUser removes a user. It reports false, nil when the id does not
// exist; deletion of a missing record is a normal outcome, not an error.
func (s *Service) DeleteUser(ctx context.Context, actor, id int64) (bool, error) {
	deleted := false
	err := s.instrument(ctx, "delete_user", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteUser(id)
		})
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return s.audit(ctx, actor, ActionDelete, EntityUser, id, fmt.Sprintf("user %d deleted", id))
	})
	return deleted, err
}

// --- documents --------------------------------------------------------------

// CreateDocument persists document metadata and audits the creation.
func (s *Service) CreateDocument(ctx context.Context, actor int64, document Document) (Document, Result, error) {
	var created Document
	var res Result
	err := s.instrument(ctx, "create_document", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateDocument(document)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityDocument, created.ID, fmt.Sprintf("document %s created", created.Title))
	})
	return created, res, err
}

// UpdateDocument mutates document metadata.
func (s *Service) UpdateDocument(ctx context.Context, actor, id int64, mutator func(*Document) error) (Document, Result, error) {
	var updated Document
	var res Result
	err := s.instrument(ctx, "update_document", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateDocument(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityDocument, id, fmt.Sprintf("document %s updated", updated.Title))
	})
	return updated, res, err
}

// DeleteDocument removes document metadata.
func (s *Service) DeleteDocument(ctx context.Context, actor, id int64) (bool, error) {
	deleted := false
	err := s.instrument(ctx, "delete_document", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteDocument(id)
		})
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return s.audit(ctx, actor, ActionDelete, EntityDocument, id, fmt.Sprintf("document %d deleted", id))
	})
	return deleted, err
}

// --- leads ------------------------------------------------------------------

// CreateLead persists a new lead and audits the creation.
func (s *Service) CreateLead(ctx context.Context, actor int64, lead Lead) (Lead, Result, error) {
	var created Lead
	var res Result
	err := s.instrument(ctx, "create_lead", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateLead(lead)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityLead, created.ID, fmt.Sprintf("lead %s created", created.Name))
	})
	return created, res, err
}

// UpdateLead mutates a lead using the provided mutator.
func (s *Service) UpdateLead(ctx context.Context, actor, id int64, mutator func(*Lead) error) (Lead, Result, error) {
	var updated Lead
	var res Result
	err := s.instrument(ctx, "update_lead", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateLead(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityLead, id, fmt.Sprintf("lead %s updated", updated.Name))
	})
	return updated, res, err
}

// DeleteLead removes a lead.
func (s *Service) DeleteLead(ctx context.Context, actor, id int64) (bool, error) {
	deleted := false
	err := s.instrument(ctx, "delete_lead", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteLead(id)
		})
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return s.audit(ctx, actor, ActionDelete, EntityLead, id, fmt.Sprintf("lead %d deleted", id))
	})
	return deleted, err
}

// --- tenders ----------------------------------------------------------------

// CreateTender persists a new tender and audits the creation.
func (s *Service) CreateTender(ctx context.Context, actor int64, tender Tender) (Tender, Result, error) {
	var created Tender
	var res Result
	err := s.instrument(ctx, "create_tender", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateTender(tender)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityTender, created.ID, fmt.Sprintf("tender %s created", created.Title))
	})
	return created, res, err
}

// UpdateTender mutates a tender using the provided mutator. Status changes
// pass through the tender transition rule and are blocked when illegal.
func (s *Service) UpdateTender(ctx context.Context, actor, id int64, mutator func(*Tender) error) (Tender, Result, error) {
	var updated Tender
	var res Result
	err := s.instrument(ctx, "update_tender", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateTender(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityTender, id, fmt.Sprintf("tender %s updated", updated.Title))
	})
	return updated, res, err
}

// DeleteTender removes a tender.
func (s *Service) DeleteTender(ctx context.Context, actor, id int64) (bool, error) {
	deleted := false
	err := s.instrument(ctx, "delete_tender", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteTender(id)
		})
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return s.audit(ctx, actor, ActionDelete, EntityTender, id, fmt.Sprintf("tender %d deleted", id))
	})
	return deleted, err
}

// --- projects ---------------------------------------------------------------

// CreateProject persists a new project and audits the creation.
func (s *Service) CreateProject(ctx context.Context, actor int64, project Project) (Project, Result, error) {
	var created Project
	var res Result
	err := s.instrument(ctx, "create_project", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateProject(project)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityProject, created.ID, fmt.Sprintf("project %s created", created.Name))
	})
	return created, res, err
}

// UpdateProject mutates a project using the provided mutator.
func (s *Service) UpdateProject(ctx context.Context, actor, id int64, mutator func(*Project) error) (Project, Result, error) {
	var updated Project
	var res Result
	err := s.instrument(ctx, "update_project", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateProject(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityProject, id, fmt.Sprintf("project %s updated", updated.Name))
	})
	return updated, res, err
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, actor, id int64) (bool, error) {
	deleted := false
	err := s.instrument(ctx, "delete_project", func(ctx context.Context) error {
		_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteProject(id)
		})
		if err != nil {
			if domain.IsNotFound(err) {
				return nil
			}
			return err
		}
		deleted = true
		return s.audit(ctx, actor, ActionDelete, EntityProject, id, fmt.Sprintf("project %d deleted", id))
	})
	return deleted, err
}

// --- milestones -------------------------------------------------------------

// CreateMilestone persists a new milestone and audits the creation. There is
// no delete counterpart; milestones share the append-only treatment of the
// audit trail once created.
func (s *Service) CreateMilestone(ctx context.Context, actor int64, milestone Milestone) (Milestone, Result, error) {
	var created Milestone
	var res Result
	err := s.instrument(ctx, "create_milestone", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateMilestone(milestone)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionCreate, EntityMilestone, created.ID, fmt.Sprintf("milestone %s created", created.Title))
	})
	return created, res, err
}

// UpdateMilestone mutates a milestone using the provided mutator.
func (s *Service) UpdateMilestone(ctx context.Context, actor, id int64, mutator func(*Milestone) error) (Milestone, Result, error) {
	var updated Milestone
	var res Result
	err := s.instrument(ctx, "update_milestone", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateMilestone(id, mutator)
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionUpdate, EntityMilestone, id, fmt.Sprintf("milestone %s updated", updated.Title))
	})
	return updated, res, err
}

// --- audit trail ------------------------------------------------------------

// ActivityInput carries the fields of a caller-described audit entry.
type ActivityInput struct {
	Title       string
	Description *string
	Entity      EntityType
	Action      ActionType
	PerformedBy int64
	RelatedTo   *Ref
}

// RecordActivity appends an audit entry. It always appends: duplicate entries
// for the same subject over time are expected and correct. The entry is
// timestamped by the store at append time.
func (s *Service) RecordActivity(ctx context.Context, input ActivityInput) (Activity, Result, error) {
	var created Activity
	var res Result
	err := s.instrument(ctx, "record_activity", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.AppendActivity(Activity{
				Title:       input.Title,
				Description: input.Description,
				Entity:      input.Entity,
				Action:      input.Action,
				PerformedBy: input.PerformedBy,
				RelatedTo:   input.RelatedTo,
			})
			return txErr
		})
		if err != nil {
			return err
		}
		s.logWarnings(res)
		return nil
	})
	return created, res, err
}

// --- tender conversion ------------------------------------------------------

// ConvertTenderToProject runs the one multi-entity workflow in scope: it
// creates a project derived from the tender, then and only then marks the
// tender won. The two writes are separate transactions; a project creation
// failure leaves the tender in its prior state.
func (s *Service) ConvertTenderToProject(ctx context.Context, actor, tenderID int64, project Project) (Project, Tender, error) {
	var created Project
	var won Tender
	err := s.instrument(ctx, "convert_tender", func(ctx context.Context) error {
		tender, ok := s.store.GetTender(tenderID)
		if !ok {
			return domain.NotFoundError{Entity: EntityTender, ID: tenderID}
		}
		if tender.Status != TenderStatusSubmitted && tender.Status != TenderStatusUnderReview {
			return fmt.Errorf("tender %d in status %s cannot be converted", tenderID, tender.Status)
		}

		project.TenderID = &tenderID
		res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateProject(project)
			return txErr
		})
		if err != nil {
			return fmt.Errorf("create project from tender %d: %w", tenderID, err)
		}
		s.logWarnings(res)
		if err := s.audit(ctx, actor, ActionCreate, EntityProject, created.ID, fmt.Sprintf("project %s created from tender %s", created.Name, tender.Title)); err != nil {
			return err
		}

		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			won, txErr = tx.UpdateTender(tenderID, func(t *Tender) error {
				t.Status = TenderStatusWon
				return nil
			})
			return txErr
		})
		if err != nil {
			return fmt.Errorf("mark tender %d won: %w", tenderID, err)
		}
		s.logWarnings(res)
		return s.audit(ctx, actor, ActionConvert, EntityTender, tenderID, fmt.Sprintf("tender %s won and converted to project %s", won.Title, created.Name))
	})
	return created, won, err
}

// --- reads ------------------------------------------------------------------

// GetUser retrieves a user from committed state.
func (s *Service) GetUser(id int64) (User, bool) { return s.store.GetUser(id) }

// ListUsers returns all users.
func (s *Service) ListUsers() []User { return s.store.ListUsers() }

// GetDocument retrieves a document from committed state.
func (s *Service) GetDocument(id int64) (Document, bool) { return s.store.GetDocument(id) }

// ListDocuments returns all documents.
func (s *Service) ListDocuments() []Document { return s.store.ListDocuments() }

// GetLead retrieves a lead from committed state.
func (s *Service) GetLead(id int64) (Lead, bool) { return s.store.GetLead(id) }

// ListLeads returns all leads.
func (s *Service) ListLeads() []Lead { return s.store.ListLeads() }

// GetTender retrieves a tender from committed state.
func (s *Service) GetTender(id int64) (Tender, bool) { return s.store.GetTender(id) }

// ListTenders returns all tenders.
func (s *Service) ListTenders() []Tender { return s.store.ListTenders() }

// GetProject retrieves a project from committed state.
func (s *Service) GetProject(id int64) (Project, bool) { return s.store.GetProject(id) }

// ListProjects returns all projects.
func (s *Service) ListProjects() []Project { return s.store.ListProjects() }

// GetMilestone retrieves a milestone from committed state.
func (s *Service) GetMilestone(id int64) (Milestone, bool) { return s.store.GetMilestone(id) }

// ListMilestones returns all milestones.
func (s *Service) ListMilestones() []Milestone { return s.store.ListMilestones() }

// ListActivities returns the audit trail newest first.
func (s *Service) ListActivities() []Activity { return s.store.ListActivities() }

// DocumentsRelatedTo returns documents attached to the reference.
func (s *Service) DocumentsRelatedTo(ref Ref) []Document { return s.store.DocumentsRelatedTo(ref) }

// ActivitiesRelatedTo returns activities attached to the reference, newest
// first.
func (s *Service) ActivitiesRelatedTo(ref Ref) []Activity { return s.store.ActivitiesRelatedTo(ref) }
