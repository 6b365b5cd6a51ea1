package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"amarms/internal/mailer"
	"amarms/internal/model"
	"amarms/internal/repository"
	"amarms/internal/storage"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- audit ---

type fakeAudit struct {
	entries []model.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, entry *model.AuditLog) error {
	entry.ID = uuid.New()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) List(_ context.Context, _ repository.AuditFilter, _, _ int) ([]model.AuditLog, int64, error) {
	return f.entries, int64(len(f.entries)), nil
}

func (f *fakeAudit) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

// --- users and tokens ---

type fakeUsers struct {
	rows map[uuid.UUID]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{rows: make(map[uuid.UUID]model.User)}
	for _, u := range users {
		f.rows[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.rows {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.rows {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.User, error) {
	out := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.rows[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) List(_ context.Context, filter repository.UserFilter, _, _ int) ([]model.User, int64, error) {
	out := make([]model.User, 0)
	for _, u := range f.rows {
		if filter.Status == "" || u.Status == filter.Status {
			out = append(out, u)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Update(_ context.Context, user *model.User) error {
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeTokens struct {
	refresh  map[string]*model.RefreshToken
	accounts map[string]*model.AccountToken
	// beforeRevoke runs ahead of RevokeRefresh, standing in for a concurrent request.
	beforeRevoke func()
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{
		refresh:  make(map[string]*model.RefreshToken),
		accounts: make(map[string]*model.AccountToken),
	}
}

func (f *fakeTokens) CreateRefresh(_ context.Context, t *model.RefreshToken) error {
	t.ID = uuid.New()
	stored := *t
	f.refresh[t.Token] = &stored
	return nil
}

func (f *fakeTokens) FindRefresh(_ context.Context, tok string) (*model.RefreshToken, error) {
	t, ok := f.refresh[tok]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTokens) RevokeRefresh(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.beforeRevoke != nil {
		hook := f.beforeRevoke
		f.beforeRevoke = nil
		hook()
	}
	for _, t := range f.refresh {
		if t.ID == id {
			if t.RevokedAt != nil {
				return repository.ErrVersionConflict
			}
			t.RevokedAt = &at
			return nil
		}
	}
	return repository.ErrVersionConflict
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uuid.UUID, at time.Time) error {
	for _, t := range f.refresh {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}

func (f *fakeTokens) active(userID uuid.UUID) int {
	n := 0
	for _, t := range f.refresh {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

func (f *fakeTokens) CreateAccountToken(_ context.Context, t *model.AccountToken) error {
	t.ID = uuid.New()
	stored := *t
	f.accounts[t.Kind+":"+t.Token] = &stored
	return nil
}

func (f *fakeTokens) FindAccountToken(_ context.Context, kind, tok string) (*model.AccountToken, error) {
	t, ok := f.accounts[kind+":"+tok]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *t
	return &out, nil
}

func (f *fakeTokens) MarkAccountTokenUsed(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, t := range f.accounts {
		if t.ID == id {
			if t.UsedAt != nil {
				return repository.ErrVersionConflict
			}
			t.UsedAt = &at
			return nil
		}
	}
	return repository.ErrVersionConflict
}

// --- projects and milestones ---

type fakeProjects struct {
	rows map[uuid.UUID]model.Project
}

func newFakeProjects(projects ...model.Project) *fakeProjects {
	f := &fakeProjects{rows: make(map[uuid.UUID]model.Project)}
	for _, p := range projects {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProjects) Create(_ context.Context, p *model.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.rows[p.ID] = *p
	return nil
}

// Update leaves associations alone, like the gorm repository's Omit.
func (f *fakeProjects) Update(_ context.Context, p *model.Project) error {
	next := *p
	stored := f.rows[p.ID]
	next.Members, next.Resources = stored.Members, stored.Resources
	f.rows[p.ID] = next
	return nil
}

func (f *fakeProjects) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeProjects) FindByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	p, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeProjects) List(_ context.Context, filter repository.ProjectFilter, _, _ int) ([]model.Project, int64, error) {
	out := make([]model.Project, 0)
	for _, p := range f.rows {
		if filter.MemberID != nil && !p.HasMember(*filter.MemberID) {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProjects) AddMember(_ context.Context, m *model.ProjectMember) error {
	p := f.rows[m.ProjectID]
	p.Members = append(p.Members, *m)
	f.rows[m.ProjectID] = p
	return nil
}

func (f *fakeProjects) RemoveMember(_ context.Context, projectID, userID uuid.UUID) error {
	p := f.rows[projectID]
	kept := make([]model.ProjectMember, 0, len(p.Members))
	for _, m := range p.Members {
		if m.UserID != userID {
			kept = append(kept, m)
		}
	}
	p.Members = kept
	f.rows[projectID] = p
	return nil
}

func (f *fakeProjects) AddResource(_ context.Context, a *model.ProjectResource) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	p := f.rows[a.ProjectID]
	p.Resources = append(p.Resources, *a)
	f.rows[a.ProjectID] = p
	return nil
}

func (f *fakeProjects) RemoveResource(_ context.Context, projectID, allocationID uuid.UUID) error {
	p := f.rows[projectID]
	kept := make([]model.ProjectResource, 0, len(p.Resources))
	for _, a := range p.Resources {
		if a.ID != allocationID {
			kept = append(kept, a)
		}
	}
	p.Resources = kept
	f.rows[projectID] = p
	return nil
}

type fakeMilestones struct {
	rows map[uuid.UUID]model.Milestone
}

func newFakeMilestones(milestones ...model.Milestone) *fakeMilestones {
	f := &fakeMilestones{rows: make(map[uuid.UUID]model.Milestone)}
	for _, m := range milestones {
		f.rows[m.ID] = m
	}
	return f
}

func (f *fakeMilestones) Create(_ context.Context, m *model.Milestone) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	f.rows[m.ID] = *m
	return nil
}

func (f *fakeMilestones) Update(_ context.Context, m *model.Milestone) error {
	f.rows[m.ID] = *m
	return nil
}

func (f *fakeMilestones) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeMilestones) FindByID(_ context.Context, id uuid.UUID) (*model.Milestone, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &m, nil
}

func (f *fakeMilestones) ListByProject(_ context.Context, projectID uuid.UUID) ([]model.Milestone, error) {
	out := make([]model.Milestone, 0)
	for _, m := range f.rows {
		if m.ProjectID == projectID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMilestones) ListDueBetween(_ context.Context, start, end time.Time) ([]model.Milestone, error) {
	out := make([]model.Milestone, 0)
	for _, m := range f.rows {
		due := time.Time(m.DueDate)
		if !due.Before(start) && !due.After(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

// --- tasks ---

type fakeTasks struct {
	rows      map[uuid.UUID]model.Task
	updates   int
	updateErr error
}

func newFakeTasks(tasks ...model.Task) *fakeTasks {
	f := &fakeTasks{rows: make(map[uuid.UUID]model.Task)}
	for _, t := range tasks {
		f.rows[t.ID] = t.Clone()
	}
	return f
}

func (f *fakeTasks) Create(_ context.Context, t *model.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	f.rows[t.ID] = t.Clone()
	return nil
}

func (f *fakeTasks) FindByID(_ context.Context, id uuid.UUID) (*model.Task, error) {
	t, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := t.Clone()
	return &out, nil
}

func (f *fakeTasks) ListByProject(_ context.Context, projectID uuid.UUID) ([]model.Task, error) {
	out := make([]model.Task, 0)
	for _, t := range f.rows {
		if t.ProjectID == projectID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeTasks) ListAssignedTo(_ context.Context, userID uuid.UUID) ([]model.Task, error) {
	out := make([]model.Task, 0)
	for _, t := range f.rows {
		if _, ok := t.Assignee[userID.String()]; ok && t.Status != model.TaskDone && t.Status != model.TaskTrash {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeTasks) ListDueBetween(_ context.Context, start, end time.Time) ([]model.Task, error) {
	out := make([]model.Task, 0)
	for _, t := range f.rows {
		if t.DueDate == nil || t.Status == model.TaskTrash {
			continue
		}
		due := time.Time(*t.DueDate)
		if !due.Before(start) && !due.After(end) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeTasks) CountByStatus(_ context.Context, projectIDs []uuid.UUID) ([]repository.StatusCount, error) {
	keep := func(uuid.UUID) bool { return true }
	if projectIDs != nil {
		set := make(map[uuid.UUID]bool, len(projectIDs))
		for _, id := range projectIDs {
			set[id] = true
		}
		keep = func(id uuid.UUID) bool { return set[id] }
	}
	type key struct {
		project uuid.UUID
		status  model.TaskStatus
	}
	counts := make(map[key]int)
	for _, t := range f.rows {
		if keep(t.ProjectID) {
			counts[key{t.ProjectID, t.Status}]++
		}
	}
	out := make([]repository.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, repository.StatusCount{ProjectID: k.project, Status: k.status, Count: n})
	}
	return out, nil
}

func (f *fakeTasks) UpdateWithVersion(_ context.Context, t *model.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.rows[t.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != t.Version {
		return repository.ErrVersionConflict
	}
	t.Version++
	f.rows[t.ID] = t.Clone()
	f.updates++
	return nil
}

func (f *fakeTasks) DeleteTrash(_ context.Context, projectID uuid.UUID) ([]model.Task, error) {
	out := make([]model.Task, 0)
	for id, t := range f.rows {
		if t.ProjectID == projectID && t.Status == model.TaskTrash {
			out = append(out, t)
			delete(f.rows, id)
		}
	}
	return out, nil
}

func (f *fakeTasks) ClearMilestone(_ context.Context, milestoneID uuid.UUID) error {
	for id, t := range f.rows {
		if t.MilestoneID != nil && *t.MilestoneID == milestoneID {
			t.MilestoneID = nil
			t.Version++
			f.rows[id] = t
		}
	}
	return nil
}

// --- resources ---

type fakeResources struct {
	rows map[uuid.UUID]model.Resource
}

func newFakeResources(resources ...model.Resource) *fakeResources {
	f := &fakeResources{rows: make(map[uuid.UUID]model.Resource)}
	for _, r := range resources {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeResources) Create(_ context.Context, r *model.Resource) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeResources) Update(_ context.Context, r *model.Resource) error {
	f.rows[r.ID] = *r
	return nil
}

func (f *fakeResources) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeResources) FindByID(_ context.Context, id uuid.UUID) (*model.Resource, error) {
	r, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeResources) List(_ context.Context, kind, _ string, _, _ int) ([]model.Resource, int64, error) {
	out := make([]model.Resource, 0)
	for _, r := range f.rows {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeResources) UsageByKind(_ context.Context) ([]model.ResourceUsage, error) {
	byKind := make(map[string]*model.ResourceUsage)
	order := make([]string, 0)
	for _, r := range f.rows {
		u, ok := byKind[r.Kind]
		if !ok {
			u = &model.ResourceUsage{Kind: r.Kind}
			byKind[r.Kind] = u
			order = append(order, r.Kind)
		}
		u.Total += r.Total
		u.Available += r.Available
		u.InUse += r.InUse
		u.Maintenance += r.Maintenance
	}
	out := make([]model.ResourceUsage, 0, len(order))
	for _, k := range order {
		out = append(out, *byKind[k])
	}
	return out, nil
}

// --- campaigns ---

type fakeCampaigns struct {
	rows       map[uuid.UUID]model.Campaign
	lastFilter repository.CampaignFilter
	totals     []model.BudgetTotal
}

func newFakeCampaigns(campaigns ...model.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{rows: make(map[uuid.UUID]model.Campaign)}
	for _, c := range campaigns {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) Create(_ context.Context, c *model.Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCampaigns) Update(_ context.Context, c *model.Campaign) error {
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeCampaigns) FindByID(_ context.Context, id uuid.UUID) (*model.Campaign, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeCampaigns) List(_ context.Context, filter repository.CampaignFilter, _, _ int) ([]model.Campaign, int64, error) {
	f.lastFilter = filter
	allowed := make(map[string]bool, len(filter.Departments))
	for _, d := range filter.Departments {
		allowed[d] = true
	}
	out := make([]model.Campaign, 0)
	for _, c := range f.rows {
		if allowed[c.Department] {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCampaigns) ListActiveBetween(_ context.Context, start, end time.Time) ([]model.Campaign, error) {
	out := make([]model.Campaign, 0)
	for _, c := range f.rows {
		if c.StartDate == nil {
			continue
		}
		from := time.Time(*c.StartDate)
		to := from
		if c.EndDate != nil {
			to = time.Time(*c.EndDate)
		}
		if !from.After(end) && !to.Before(start) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCampaigns) BudgetTotals(_ context.Context) ([]model.BudgetTotal, error) {
	return f.totals, nil
}

// --- comments ---

type fakeComments struct {
	rows map[uuid.UUID]model.Comment
}

func newFakeComments(comments ...model.Comment) *fakeComments {
	f := &fakeComments{rows: make(map[uuid.UUID]model.Comment)}
	for _, c := range comments {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeComments) Create(_ context.Context, c *model.Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeComments) FindByID(_ context.Context, id uuid.UUID) (*model.Comment, error) {
	c, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeComments) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeComments) List(_ context.Context, projectID uuid.UUID, taskID *uuid.UUID) ([]model.Comment, error) {
	out := make([]model.Comment, 0)
	for _, c := range f.rows {
		if c.ProjectID != projectID {
			continue
		}
		if taskID != nil && (c.TaskID == nil || *c.TaskID != *taskID) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// --- reports ---

type fakeReports struct {
	projects map[string]int64
	tasks    map[string]int64
	list     []repository.ProjectSummary
}

func (f *fakeReports) CountProjectsByStatus(context.Context) (map[string]int64, error) {
	return f.projects, nil
}

func (f *fakeReports) CountTasksByStatus(context.Context) (map[string]int64, error) {
	return f.tasks, nil
}

func (f *fakeReports) ListProjectSummaries(context.Context) ([]repository.ProjectSummary, error) {
	return f.list, nil
}

// --- object store, mailer, events ---

type fakeStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

const fakeStoreURL = "http://files.test/"

func (f *fakeStore) Upload(_ context.Context, objectPath string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	f.objects[objectPath] = buf.Bytes()
	return fakeStoreURL + objectPath, nil
}

func (f *fakeStore) Delete(_ context.Context, objectPath string) error {
	if _, ok := f.objects[objectPath]; !ok {
		return storage.ErrNotFound
	}
	delete(f.objects, objectPath)
	f.deleted = append(f.deleted, objectPath)
	return nil
}

func (f *fakeStore) URL(_ context.Context, objectPath string) (string, error) {
	return fakeStoreURL + objectPath, nil
}

func (f *fakeStore) PathOf(url string) (string, bool) {
	if !strings.HasPrefix(url, fakeStoreURL) {
		return "", false
	}
	return strings.TrimPrefix(url, fakeStoreURL), true
}

type fakeMailer struct {
	sent []mailer.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type publishedEvent struct {
	name    string
	payload interface{}
}

type fakeEvents struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeEvents) Publish(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{name: event, payload: payload})
}

func (f *fakeEvents) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.name)
	}
	return out
}
