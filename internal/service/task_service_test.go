package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	svc      *taskService
	tasks    *fakeTasks
	audit    *fakeAudit
	store    *fakeStore
	events   *fakeEvents
	project  model.Project
	lead     model.User
	leadUser permission.Principal
}

func newTaskFixture(t *testing.T, tasks ...model.Task) *taskFixture {
	t.Helper()
	lead := model.User{ID: uuid.New(), Username: "lead", FullName: "Lena Lead", Role: string(permission.RoleLeader), Status: model.UserStatusActive}
	project := model.Project{ID: uuid.New(), Name: "Launch"}
	for i := range tasks {
		tasks[i].ProjectID = project.ID
	}
	f := &taskFixture{
		tasks:    newFakeTasks(tasks...),
		audit:    &fakeAudit{},
		store:    newFakeStore(),
		events:   &fakeEvents{},
		project:  project,
		lead:     lead,
		leadUser: permission.NewPrincipal(lead.ID.String(), permission.RoleLeader),
	}
	f.svc = NewTaskService(
		f.tasks,
		newFakeProjects(project),
		newFakeMilestones(),
		newFakeUsers(lead),
		f.audit,
		fakeTx{},
		f.store,
		f.events,
	).(*taskService)
	f.svc.now = func() time.Time { return time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func storedTask(status model.TaskStatus) model.Task {
	return model.Task{
		ID:       uuid.New(),
		Title:    "Design the landing page",
		Status:   status,
		Evidence: []string{},
		Review:   model.Review{Reviewers: []string{}, Comments: []model.ReviewComment{}},
		Version:  1,
	}
}

func TestMoveTaskWritesAndPublishes(t *testing.T) {
	task := storedTask(model.TaskTodo)
	f := newTaskFixture(t, task)

	moved, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: model.TaskInProgress, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, model.TaskInProgress, moved.Status)
	assert.Equal(t, 2, moved.Version)
	assert.Equal(t, model.TaskInProgress, f.tasks.rows[task.ID].Status)
	assert.Equal(t, []string{model.ActionMoveTask}, f.audit.actions())
	assert.Equal(t, []string{EventTaskMoved}, f.events.names())

	ev := f.events.events[0].payload.(TaskEvent)
	assert.Equal(t, "todo", ev.From)
	assert.Equal(t, "inProgress", ev.To)
}

func TestMoveTaskSameColumnDoesNotWrite(t *testing.T) {
	task := storedTask(model.TaskReview)
	f := newTaskFixture(t, task)

	got, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: model.TaskReview})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Zero(t, f.tasks.updates)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.events.names())
}

func TestMoveTaskRejectsUnknownColumn(t *testing.T) {
	task := storedTask(model.TaskTodo)
	f := newTaskFixture(t, task)

	_, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.tasks.updates)
}

func TestMoveTaskStaleVersionConflicts(t *testing.T) {
	task := storedTask(model.TaskTodo)
	task.Version = 4
	f := newTaskFixture(t, task)

	_, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: model.TaskDone, Version: 3})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, model.TaskTodo, f.tasks.rows[task.ID].Status)
	assert.Equal(t, 4, f.tasks.rows[task.ID].Version)
}

func TestConcurrentWriteSurfacesConflict(t *testing.T) {
	task := storedTask(model.TaskTodo)
	f := newTaskFixture(t, task)
	f.tasks.updateErr = repository.ErrVersionConflict

	_, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: model.TaskDone})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.events.names())
}

func TestFailedWriteLeavesTaskUnchanged(t *testing.T) {
	task := storedTask(model.TaskInProgress)
	f := newTaskFixture(t, task)
	f.tasks.updateErr = errors.New("connection reset")

	_, err := f.svc.MoveTask(context.Background(), f.leadUser, task.ID.String(), MoveTaskRequest{Status: model.TaskReview})
	require.Error(t, err)
	stored := f.tasks.rows[task.ID]
	assert.Equal(t, model.TaskInProgress, stored.Status)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, f.audit.entries)
	assert.Empty(t, f.events.names())
}

func TestApproveRecordsReviewer(t *testing.T) {
	task := storedTask(model.TaskReview)
	task.Review.Status = model.ReviewPending
	f := newTaskFixture(t, task)

	got, err := f.svc.ApproveTask(context.Background(), f.leadUser, task.ID.String(), ReviewTaskRequest{Comment: " looks good "})
	require.NoError(t, err)
	assert.Equal(t, model.TaskReview, got.Status)
	assert.Equal(t, model.ReviewApproved, got.Review.Status)
	require.Len(t, got.Review.Comments, 1)
	c := got.Review.Comments[0]
	assert.Equal(t, "looks good", c.Comment)
	assert.Equal(t, "Lena Lead", c.AuthorName)
	assert.Equal(t, f.svc.now().UTC(), c.Timestamp)
	assert.Equal(t, []string{f.lead.ID.String()}, got.Review.Reviewers)
	assert.Equal(t, []string{EventTaskReviewed}, f.events.names())
}

func TestRejectRequiresComment(t *testing.T) {
	task := storedTask(model.TaskReview)
	f := newTaskFixture(t, task)

	_, err := f.svc.RejectTask(context.Background(), f.leadUser, task.ID.String(), ReviewTaskRequest{Comment: "  "})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.tasks.updates)

	got, err := f.svc.RejectTask(context.Background(), f.leadUser, task.ID.String(), ReviewTaskRequest{Comment: "needs tests"})
	require.NoError(t, err)
	assert.Equal(t, model.ReviewChangesRequested, got.Review.Status)
}

func TestUpdateTaskValidatesDates(t *testing.T) {
	task := storedTask(model.TaskTodo)
	f := newTaskFixture(t, task)
	start, due := "2026-06-10", "2026-06-01"

	_, err := f.svc.UpdateTask(context.Background(), f.leadUser, task.ID.String(), UpdateTaskRequest{StartDate: &start, DueDate: &due})
	assert.ErrorIs(t, err, ErrValidation)

	due = "2026-06-20"
	title := "Design the pricing page"
	got, err := f.svc.UpdateTask(context.Background(), f.leadUser, task.ID.String(), UpdateTaskRequest{Title: &title, StartDate: &start, DueDate: &due, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "2026-06-20", time.Time(*got.DueDate).Format("2006-01-02"))
}

func TestCreateTaskSnapshotsAssignees(t *testing.T) {
	f := newTaskFixture(t)

	got, err := f.svc.CreateTask(context.Background(), f.leadUser, f.project.ID.String(), CreateTaskRequest{
		Title:       "Write copy",
		AssigneeIDs: []string{f.lead.ID.String(), f.lead.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskTodo, got.Status)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Assignee, 1)
	assert.Equal(t, "Lena Lead", got.Assignee[f.lead.ID.String()].Name)

	_, err = f.svc.CreateTask(context.Background(), f.leadUser, f.project.ID.String(), CreateTaskRequest{
		Title:       "Write copy",
		AssigneeIDs: []string{uuid.NewString()},
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClearTrashRequiresConfirmation(t *testing.T) {
	trashed := storedTask(model.TaskTrash)
	f := newTaskFixture(t, trashed)

	_, err := f.svc.ClearTrash(context.Background(), f.leadUser, f.project.ID.String(), false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Len(t, f.tasks.rows, 1)
}

func TestClearTrashDeletesOnlyTrash(t *testing.T) {
	trashed := storedTask(model.TaskTrash)
	trashed.Evidence = []string{fakeStoreURL + "tasks/a/proof.png"}
	kept := storedTask(model.TaskDone)
	f := newTaskFixture(t, trashed, kept)
	f.store.objects["tasks/a/proof.png"] = []byte("png")

	res, err := f.svc.ClearTrash(context.Background(), f.leadUser, f.project.ID.String(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)
	assert.Contains(t, f.tasks.rows, kept.ID)
	assert.NotContains(t, f.tasks.rows, trashed.ID)
	assert.Equal(t, []string{"tasks/a/proof.png"}, f.store.deleted)
	assert.Equal(t, []string{EventTrashCleared}, f.events.names())
}

func TestUploadEvidence(t *testing.T) {
	task := storedTask(model.TaskInProgress)
	f := newTaskFixture(t, task)

	got, err := f.svc.UploadEvidence(context.Background(), f.leadUser, task.ID.String(), "../screen shot.png", 0, strings.NewReader("png"))
	require.NoError(t, err)
	require.Len(t, got.Evidence, 1)
	assert.True(t, strings.HasPrefix(got.Evidence[0], fakeStoreURL+"tasks/"+task.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(got.Evidence[0], "-screen_shot.png"))
	assert.Len(t, f.store.objects, 1)
}

func TestUploadEvidenceRemovesObjectWhenWriteFails(t *testing.T) {
	task := storedTask(model.TaskInProgress)
	f := newTaskFixture(t, task)
	f.tasks.updateErr = repository.ErrVersionConflict

	_, err := f.svc.UploadEvidence(context.Background(), f.leadUser, task.ID.String(), "proof.pdf", 0, strings.NewReader("pdf"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, f.store.objects)
	assert.Len(t, f.store.deleted, 1)
	assert.Empty(t, f.tasks.rows[task.ID].Evidence)
}

func TestGetBoardFiltersByMilestone(t *testing.T) {
	milestone := uuid.New()
	a, b, c := storedTask(model.TaskDone), storedTask(model.TaskTodo), storedTask(model.TaskTrash)
	a.MilestoneID = &milestone
	f := newTaskFixture(t, a, b, c)

	all, err := f.svc.GetBoard(context.Background(), f.project.ID.String(), "")
	require.NoError(t, err)
	assert.Equal(t, model.MilestoneAll, all.Milestone)
	assert.Equal(t, 50, all.Progress)
	require.Len(t, all.Columns, 5)
	assert.Len(t, all.Columns[4].Tasks, 1)

	one, err := f.svc.GetBoard(context.Background(), f.project.ID.String(), milestone.String())
	require.NoError(t, err)
	assert.Equal(t, 100, one.Progress)
	assert.Len(t, one.Columns[3].Tasks, 1)
	assert.Empty(t, one.Columns[0].Tasks)

	_, err = f.svc.GetBoard(context.Background(), uuid.NewString(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanFileName(t *testing.T) {
	assert.Equal(t, "report_2026.pdf", cleanFileName("report 2026.pdf"))
	assert.Equal(t, "passwd", cleanFileName("../../etc/passwd"))
	assert.Equal(t, "evil.png", cleanFileName(`C:\temp\evil.png`))
	assert.Equal(t, "htaccess", cleanFileName(".htaccess"))
	assert.Equal(t, "", cleanFileName("/"))
	assert.Len(t, cleanFileName(strings.Repeat("a", 200)+".png"), maxEvidenceFileName)
}
