// Package memory implements the reference in-memory persistent store. Each
// entity collection is an id-keyed map guarded by a single store lock;
// transactions run against a cloned state and commit atomically after rule
// evaluation, so readers never observe a partially-applied write.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"opstrack/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

type (
	// EntityType aliases domain.EntityType for local signatures.
	EntityType = domain.EntityType
	// User aliases the domain user record.
	User = domain.User
	// Document aliases the domain document record.
	Document = domain.Document
	// Lead aliases the domain lead record.
	Lead = domain.Lead
	// Tender aliases the domain tender record.
	Tender = domain.Tender
	// Project aliases the domain project record.
	Project = domain.Project
	// Milestone aliases the domain milestone record.
	Milestone = domain.Milestone
	// Activity aliases the domain activity record.
	Activity = domain.Activity
	// Ref aliases the polymorphic reference pair.
	Ref = domain.Ref
	// Change aliases the transactional change record.
	Change = domain.Change
	// Result aliases the rule evaluation result.
	Result = domain.Result
	// RulesEngine aliases the domain rules engine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases the domain transaction contract.
	Transaction = domain.Transaction
	// TransactionView aliases the read-only view contract.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users      map[int64]User
	documents  map[int64]Document
	leads      map[int64]Lead
	tenders    map[int64]Tender
	projects   map[int64]Project
	milestones map[int64]Milestone
	activities map[int64]Activity
	// sequences holds the per-collection id allocator. Counters only ever
	// move forward; deleted ids are never reissued.
	sequences map[EntityType]int64
}

// Snapshot captures a point-in-time clone of the store state, including the
// allocator counters so id monotonicity survives a reload.
type Snapshot struct {
	Users      map[int64]User      `json:"users"`
	Documents  map[int64]Document  `json:"documents"`
	Leads      map[int64]Lead      `json:"leads"`
	Tenders    map[int64]Tender    `json:"tenders"`
	Projects   map[int64]Project   `json:"projects"`
	Milestones map[int64]Milestone `json:"milestones"`
	Activities map[int64]Activity  `json:"activities"`
	Sequences  map[string]int64    `json:"sequences"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:      make(map[int64]User),
		documents:  make(map[int64]Document),
		leads:      make(map[int64]Lead),
		tenders:    make(map[int64]Tender),
		projects:   make(map[int64]Project),
		milestones: make(map[int64]Milestone),
		activities: make(map[int64]Activity),
		sequences:  make(map[EntityType]int64),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Users:      make(map[int64]User, len(state.users)),
		Documents:  make(map[int64]Document, len(state.documents)),
		Leads:      make(map[int64]Lead, len(state.leads)),
		Tenders:    make(map[int64]Tender, len(state.tenders)),
		Projects:   make(map[int64]Project, len(state.projects)),
		Milestones: make(map[int64]Milestone, len(state.milestones)),
		Activities: make(map[int64]Activity, len(state.activities)),
		Sequences:  make(map[string]int64, len(state.sequences)),
	}
	for k, v := range state.users {
		s.Users[k] = cloneUser(v)
	}
	for k, v := range state.documents {
		s.Documents[k] = cloneDocument(v)
	}
	for k, v := range state.leads {
		s.Leads[k] = cloneLead(v)
	}
	for k, v := range state.tenders {
		s.Tenders[k] = cloneTender(v)
	}
	for k, v := range state.projects {
		s.Projects[k] = cloneProject(v)
	}
	for k, v := range state.milestones {
		s.Milestones[k] = cloneMilestone(v)
	}
	for k, v := range state.activities {
		s.Activities[k] = cloneActivity(v)
	}
	for k, v := range state.sequences {
		s.Sequences[string(k)] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Users {
		state.users[k] = cloneUser(v)
	}
	for k, v := range s.Documents {
		state.documents[k] = cloneDocument(v)
	}
	for k, v := range s.Leads {
		state.leads[k] = cloneLead(v)
	}
	for k, v := range s.Tenders {
		state.tenders[k] = cloneTender(v)
	}
	for k, v := range s.Projects {
		state.projects[k] = cloneProject(v)
	}
	for k, v := range s.Milestones {
		state.milestones[k] = cloneMilestone(v)
	}
	for k, v := range s.Activities {
		state.activities[k] = cloneActivity(v)
	}
	for k, v := range s.Sequences {
		state.sequences[EntityType(k)] = v
	}
	return state
}

// migrateSnapshot backfills allocator counters for snapshots written before
// sequences were persisted. The counter resumes from the highest id seen, so
// previously issued ids are never reissued.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Sequences == nil {
		snapshot.Sequences = make(map[string]int64)
	}
	ensure := func(kind EntityType, max int64) {
		if snapshot.Sequences[string(kind)] < max {
			snapshot.Sequences[string(kind)] = max
		}
	}
	for id := range snapshot.Users {
		ensure(domain.EntityUser, id)
	}
	for id := range snapshot.Documents {
		ensure(domain.EntityDocument, id)
	}
	for id := range snapshot.Leads {
		ensure(domain.EntityLead, id)
	}
	for id := range snapshot.Tenders {
		ensure(domain.EntityTender, id)
	}
	for id := range snapshot.Projects {
		ensure(domain.EntityProject, id)
	}
	for id := range snapshot.Milestones {
		ensure(domain.EntityMilestone, id)
	}
	for id := range snapshot.Activities {
		ensure(domain.EntityActivity, id)
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.documents {
		cloned.documents[k] = cloneDocument(v)
	}
	for k, v := range s.leads {
		cloned.leads[k] = cloneLead(v)
	}
	for k, v := range s.tenders {
		cloned.tenders[k] = cloneTender(v)
	}
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.milestones {
		cloned.milestones[k] = cloneMilestone(v)
	}
	for k, v := range s.activities {
		cloned.activities[k] = cloneActivity(v)
	}
	for k, v := range s.sequences {
		cloned.sequences[k] = v
	}
	return cloned
}

func cloneRef(r *Ref) *Ref {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func cloneInt64Ptr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneUser(u User) User { return u }

func cloneDocument(d Document) Document {
	cp := d
	cp.RelatedTo = cloneRef(d.RelatedTo)
	return cp
}

func cloneLead(l Lead) Lead {
	cp := l
	cp.OwnerID = cloneInt64Ptr(l.OwnerID)
	cp.Notes = cloneStringPtr(l.Notes)
	return cp
}

func cloneTender(t Tender) Tender {
	cp := t
	cp.LeadID = cloneInt64Ptr(t.LeadID)
	cp.DueDate = cloneTimePtr(t.DueDate)
	cp.Description = cloneStringPtr(t.Description)
	return cp
}

func cloneProject(p Project) Project {
	cp := p
	cp.TenderID = cloneInt64Ptr(p.TenderID)
	cp.ProjectManagerID = cloneInt64Ptr(p.ProjectManagerID)
	cp.StartDate = cloneTimePtr(p.StartDate)
	cp.EndDate = cloneTimePtr(p.EndDate)
	cp.Description = cloneStringPtr(p.Description)
	return cp
}

func cloneMilestone(m Milestone) Milestone {
	cp := m
	cp.DueDate = cloneTimePtr(m.DueDate)
	cp.CompletedAt = cloneTimePtr(m.CompletedAt)
	return cp
}

func cloneActivity(a Activity) Activity {
	cp := a
	cp.Description = cloneStringPtr(a.Description)
	cp.RelatedTo = cloneRef(a.RelatedTo)
	return cp
}

// Store provides the in-memory transactional entity store.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// A nil engine means no rules are evaluated.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp CreatedAt/UpdatedAt. Intended
// for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// nextID issues the next id for the given collection. Counters are seeded at
// zero and pre-incremented, so the first id of every collection is 1 and a
// collection that issued N ids has issued exactly 1..N.
func nextID(state *memoryState, kind EntityType) int64 {
	state.sequences[kind]++
	return state.sequences[kind]
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the committed state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the engine so callers can register additional rules.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The state is swapped in only after fn succeeds and no blocking rule
// violation is reported, so each transaction is all-or-nothing.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// --- transaction lookups ----------------------------------------------------

func (tx *transaction) FindUser(id int64) (User, bool) {
	u, ok := tx.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

func (tx *transaction) FindDocument(id int64) (Document, bool) {
	d, ok := tx.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

func (tx *transaction) FindLead(id int64) (Lead, bool) {
	l, ok := tx.state.leads[id]
	if !ok {
		return Lead{}, false
	}
	return cloneLead(l), true
}

func (tx *transaction) FindTender(id int64) (Tender, bool) {
	t, ok := tx.state.tenders[id]
	if !ok {
		return Tender{}, false
	}
	return cloneTender(t), true
}

func (tx *transaction) FindProject(id int64) (Project, bool) {
	p, ok := tx.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (tx *transaction) FindMilestone(id int64) (Milestone, bool) {
	m, ok := tx.state.milestones[id]
	if !ok {
		return Milestone{}, false
	}
	return cloneMilestone(m), true
}

// --- users ------------------------------------------------------------------

func (tx *transaction) CreateUser(u User) (User, error) {
	u.ID = nextID(&tx.state, domain.EntityUser)
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, EntityID: u.ID, After: cloneUser(u)})
	return cloneUser(u), nil
}

func (tx *transaction) UpdateUser(id int64, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

func (tx *transaction) DeleteUser(id int64) error {
	current, ok := tx.state.users[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	delete(tx.state.users, id)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionDelete, EntityID: id, Before: cloneUser(current)})
	return nil
}

// --- documents --------------------------------------------------------------

func (tx *transaction) CreateDocument(d Document) (Document, error) {
	if d.RelatedTo != nil {
		if err := d.RelatedTo.Validate(); err != nil {
			return Document{}, err
		}
	}
	d.ID = nextID(&tx.state, domain.EntityDocument)
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.documents[d.ID] = cloneDocument(d)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionCreate, EntityID: d.ID, After: cloneDocument(d)})
	return cloneDocument(d), nil
}

func (tx *transaction) UpdateDocument(id int64, mutator func(*Document) error) (Document, error) {
	current, ok := tx.state.documents[id]
	if !ok {
		return Document{}, domain.NotFoundError{Entity: domain.EntityDocument, ID: id}
	}
	before := cloneDocument(current)
	if err := mutator(&current); err != nil {
		return Document{}, err
	}
	if current.RelatedTo != nil {
		if err := current.RelatedTo.Validate(); err != nil {
			return Document{}, err
		}
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.documents[id] = cloneDocument(current)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneDocument(current)})
	return cloneDocument(current), nil
}

func (tx *transaction) DeleteDocument(id int64) error {
	current, ok := tx.state.documents[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDocument, ID: id}
	}
	delete(tx.state.documents, id)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionDelete, EntityID: id, Before: cloneDocument(current)})
	return nil
}

// --- leads ------------------------------------------------------------------

func (tx *transaction) CreateLead(l Lead) (Lead, error) {
	l.ID = nextID(&tx.state, domain.EntityLead)
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.leads[l.ID] = cloneLead(l)
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionCreate, EntityID: l.ID, After: cloneLead(l)})
	return cloneLead(l), nil
}

func (tx *transaction) UpdateLead(id int64, mutator func(*Lead) error) (Lead, error) {
	current, ok := tx.state.leads[id]
	if !ok {
		return Lead{}, domain.NotFoundError{Entity: domain.EntityLead, ID: id}
	}
	before := cloneLead(current)
	if err := mutator(&current); err != nil {
		return Lead{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.leads[id] = cloneLead(current)
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneLead(current)})
	return cloneLead(current), nil
}

func (tx *transaction) DeleteLead(id int64) error {
	current, ok := tx.state.leads[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityLead, ID: id}
	}
	delete(tx.state.leads, id)
	tx.recordChange(Change{Entity: domain.EntityLead, Action: domain.ActionDelete, EntityID: id, Before: cloneLead(current)})
	return nil
}

// --- tenders ----------------------------------------------------------------

func (tx *transaction) CreateTender(t Tender) (Tender, error) {
	if t.Status == "" {
		t.Status = domain.TenderStatusDraft
	}
	t.ID = nextID(&tx.state, domain.EntityTender)
	t.CreatedAt = tx.now
	t.UpdatedAt = tx.now
	tx.state.tenders[t.ID] = cloneTender(t)
	tx.recordChange(Change{Entity: domain.EntityTender, Action: domain.ActionCreate, EntityID: t.ID, After: cloneTender(t)})
	return cloneTender(t), nil
}

func (tx *transaction) UpdateTender(id int64, mutator func(*Tender) error) (Tender, error) {
	current, ok := tx.state.tenders[id]
	if !ok {
		return Tender{}, domain.NotFoundError{Entity: domain.EntityTender, ID: id}
	}
	before := cloneTender(current)
	if err := mutator(&current); err != nil {
		return Tender{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.tenders[id] = cloneTender(current)
	tx.recordChange(Change{Entity: domain.EntityTender, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneTender(current)})
	return cloneTender(current), nil
}

func (tx *transaction) DeleteTender(id int64) error {
	current, ok := tx.state.tenders[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityTender, ID: id}
	}
	delete(tx.state.tenders, id)
	tx.recordChange(Change{Entity: domain.EntityTender, Action: domain.ActionDelete, EntityID: id, Before: cloneTender(current)})
	return nil
}

// --- projects ---------------------------------------------------------------

func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.Status == "" {
		p.Status = domain.ProjectStatusActive
	}
	p.ID = nextID(&tx.state, domain.EntityProject)
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.projects[p.ID] = cloneProject(p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, EntityID: p.ID, After: cloneProject(p)})
	return cloneProject(p), nil
}

func (tx *transaction) UpdateProject(id int64, mutator func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return Project{}, domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

func (tx *transaction) DeleteProject(id int64) error {
	current, ok := tx.state.projects[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	delete(tx.state.projects, id)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, EntityID: id, Before: cloneProject(current)})
	return nil
}

// --- milestones (no delete) -------------------------------------------------

func (tx *transaction) CreateMilestone(m Milestone) (Milestone, error) {
	if m.Status == "" {
		m.Status = domain.MilestoneStatusPending
	}
	m.ID = nextID(&tx.state, domain.EntityMilestone)
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.milestones[m.ID] = cloneMilestone(m)
	tx.recordChange(Change{Entity: domain.EntityMilestone, Action: domain.ActionCreate, EntityID: m.ID, After: cloneMilestone(m)})
	return cloneMilestone(m), nil
}

func (tx *transaction) UpdateMilestone(id int64, mutator func(*Milestone) error) (Milestone, error) {
	current, ok := tx.state.milestones[id]
	if !ok {
		return Milestone{}, domain.NotFoundError{Entity: domain.EntityMilestone, ID: id}
	}
	before := cloneMilestone(current)
	if err := mutator(&current); err != nil {
		return Milestone{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.milestones[id] = cloneMilestone(current)
	tx.recordChange(Change{Entity: domain.EntityMilestone, Action: domain.ActionUpdate, EntityID: id, Before: before, After: cloneMilestone(current)})
	return cloneMilestone(current), nil
}

// --- activities (append-only) -----------------------------------------------

// AppendActivity records an audit entry. It always appends: a prior activity
// for the same subject is never merged or overwritten.
func (tx *transaction) AppendActivity(a Activity) (Activity, error) {
	if a.RelatedTo != nil {
		if err := a.RelatedTo.Validate(); err != nil {
			return Activity{}, err
		}
	}
	a.ID = nextID(&tx.state, domain.EntityActivity)
	a.CreatedAt = tx.now
	tx.state.activities[a.ID] = cloneActivity(a)
	tx.recordChange(Change{Entity: domain.EntityActivity, Action: domain.ActionCreate, EntityID: a.ID, After: cloneActivity(a)})
	return cloneActivity(a), nil
}

// --- view -------------------------------------------------------------------

func (v transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

func (v transactionView) ListDocuments() []Document {
	out := make([]Document, 0, len(v.state.documents))
	for _, d := range v.state.documents {
		out = append(out, cloneDocument(d))
	}
	return out
}

func (v transactionView) ListLeads() []Lead {
	out := make([]Lead, 0, len(v.state.leads))
	for _, l := range v.state.leads {
		out = append(out, cloneLead(l))
	}
	return out
}

func (v transactionView) ListTenders() []Tender {
	out := make([]Tender, 0, len(v.state.tenders))
	for _, t := range v.state.tenders {
		out = append(out, cloneTender(t))
	}
	return out
}

func (v transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

func (v transactionView) ListMilestones() []Milestone {
	out := make([]Milestone, 0, len(v.state.milestones))
	for _, m := range v.state.milestones {
		out = append(out, cloneMilestone(m))
	}
	return out
}

func (v transactionView) ListActivities() []Activity {
	return sortedActivities(v.state)
}

func (v transactionView) FindUser(id int64) (User, bool) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

func (v transactionView) FindDocument(id int64) (Document, bool) {
	d, ok := v.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

func (v transactionView) FindLead(id int64) (Lead, bool) {
	l, ok := v.state.leads[id]
	if !ok {
		return Lead{}, false
	}
	return cloneLead(l), true
}

func (v transactionView) FindTender(id int64) (Tender, bool) {
	t, ok := v.state.tenders[id]
	if !ok {
		return Tender{}, false
	}
	return cloneTender(t), true
}

func (v transactionView) FindProject(id int64) (Project, bool) {
	p, ok := v.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (v transactionView) FindMilestone(id int64) (Milestone, bool) {
	m, ok := v.state.milestones[id]
	if !ok {
		return Milestone{}, false
	}
	return cloneMilestone(m), true
}

// ResolveRef reports whether a polymorphic reference currently resolves to a
// live record. Used by the advisory reference rule; the store itself never
// rejects a dangling reference.
func (v transactionView) ResolveRef(ref Ref) bool {
	return resolveRef(v.state, ref)
}

func resolveRef(state *memoryState, ref Ref) bool {
	switch ref.Kind {
	case domain.EntityUser:
		_, ok := state.users[ref.ID]
		return ok
	case domain.EntityDocument:
		_, ok := state.documents[ref.ID]
		return ok
	case domain.EntityLead:
		_, ok := state.leads[ref.ID]
		return ok
	case domain.EntityTender:
		_, ok := state.tenders[ref.ID]
		return ok
	case domain.EntityProject:
		_, ok := state.projects[ref.ID]
		return ok
	case domain.EntityMilestone:
		_, ok := state.milestones[ref.ID]
		return ok
	default:
		return false
	}
}

// sortedActivities returns the audit trail newest first, falling back to id
// order when two entries share a timestamp.
func sortedActivities(state *memoryState) []Activity {
	out := make([]Activity, 0, len(state.activities))
	for _, a := range state.activities {
		out = append(out, cloneActivity(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// matchRef reports an exact match on the polymorphic pair. Unattached records
// (nil ref) never match anything.
func matchRef(have *Ref, want Ref) bool {
	return have != nil && have.Kind == want.Kind && have.ID == want.ID
}

// --- committed-state reads --------------------------------------------------

// GetUser retrieves a user by id from committed state.
func (s *Store) GetUser(id int64) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// ListUsers returns all users from committed state.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(id int64) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.documents[id]
	if !ok {
		return Document{}, false
	}
	return cloneDocument(d), true
}

// ListDocuments returns all documents.
func (s *Store) ListDocuments() []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.state.documents))
	for _, d := range s.state.documents {
		out = append(out, cloneDocument(d))
	}
	return out
}

// GetLead retrieves a lead by id.
func (s *Store) GetLead(id int64) (Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.leads[id]
	if !ok {
		return Lead{}, false
	}
	return cloneLead(l), true
}

// ListLeads returns all leads.
func (s *Store) ListLeads() []Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Lead, 0, len(s.state.leads))
	for _, l := range s.state.leads {
		out = append(out, cloneLead(l))
	}
	return out
}

// GetTender retrieves a tender by id.
func (s *Store) GetTender(id int64) (Tender, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.tenders[id]
	if !ok {
		return Tender{}, false
	}
	return cloneTender(t), true
}

// ListTenders returns all tenders.
func (s *Store) ListTenders() []Tender {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tender, 0, len(s.state.tenders))
	for _, t := range s.state.tenders {
		out = append(out, cloneTender(t))
	}
	return out
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(id int64) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

// ListProjects returns all projects.
func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.state.projects))
	for _, p := range s.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

// GetMilestone retrieves a milestone by id.
func (s *Store) GetMilestone(id int64) (Milestone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.milestones[id]
	if !ok {
		return Milestone{}, false
	}
	return cloneMilestone(m), true
}

// ListMilestones returns all milestones.
func (s *Store) ListMilestones() []Milestone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Milestone, 0, len(s.state.milestones))
	for _, m := range s.state.milestones {
		out = append(out, cloneMilestone(m))
	}
	return out
}

// ListActivities returns the audit trail newest first.
func (s *Store) ListActivities() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedActivities(&s.state)
}

// DocumentsRelatedTo returns documents attached to the given reference. The
// result is computed on demand over the document collection, so a read
// immediately following a write observes the write.
func (s *Store) DocumentsRelatedTo(ref Ref) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, d := range s.state.documents {
		if matchRef(d.RelatedTo, ref) {
			out = append(out, cloneDocument(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActivitiesRelatedTo returns activities attached to the given reference,
// newest first.
func (s *Store) ActivitiesRelatedTo(ref Ref) []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Activity
	for _, a := range s.state.activities {
		if matchRef(a.RelatedTo, ref) {
			out = append(out, cloneActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
