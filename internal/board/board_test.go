package board

import (
	"testing"
	"time"

	"amarms/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewer = model.MemberSnapshot{ID: "u-lead", Name: "Lead"}

func newTask(status model.TaskStatus) model.Task {
	return model.Task{ID: uuid.New(), Title: "Wire the API", Status: status, Version: 1}
}

func TestMoveSameColumnIsNoop(t *testing.T) {
	task := newTask(model.TaskInProgress)
	next, changed, err := Move(task, model.TaskInProgress)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, task, next)
}

func TestMoveRejectsUnknownColumn(t *testing.T) {
	task := newTask(model.TaskTodo)
	_, changed, err := Move(task, "archived")
	require.Error(t, err)
	assert.False(t, changed)
}

func TestMoveIntoReviewKeepsComments(t *testing.T) {
	task := newTask(model.TaskInProgress)
	task.Review = model.Review{
		Status:    model.ReviewChangesRequested,
		Reviewers: []string{"u-lead"},
		Comments: []model.ReviewComment{
			{AuthorID: "u-lead", Comment: "fix the tests", Status: model.ReviewChangesRequested},
		},
	}

	next, changed, err := Move(task, model.TaskReview)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.TaskReview, next.Status)
	assert.Equal(t, model.ReviewPending, next.Review.Status)
	assert.Empty(t, next.Review.Reviewers)
	assert.Equal(t, task.Review.Comments, next.Review.Comments)

	// the input is untouched
	assert.Equal(t, model.TaskInProgress, task.Status)
	assert.Equal(t, model.ReviewChangesRequested, task.Review.Status)
	assert.Equal(t, []string{"u-lead"}, task.Review.Reviewers)
}

func TestMoveOutOfReviewKeepsReview(t *testing.T) {
	task := newTask(model.TaskReview)
	task.Review = model.Review{Status: model.ReviewApproved, Reviewers: []string{"u-lead"}}

	next, changed, err := Move(task, model.TaskDone)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, task.Review, next.Review)
}

func TestMoveTracksDisposal(t *testing.T) {
	task := newTask(model.TaskDone)
	trashed, _, err := Move(task, model.TaskTrash)
	require.NoError(t, err)
	assert.True(t, trashed.IsDisposed)

	restored, _, err := Move(trashed, model.TaskTodo)
	require.NoError(t, err)
	assert.False(t, restored.IsDisposed)
	assert.Equal(t, model.TaskTodo, restored.Status)
}

func TestApproveAndReject(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task := newTask(model.TaskReview)
	task.Review = model.Review{Status: model.ReviewPending, Comments: []model.ReviewComment{}}

	approved := Approve(task, reviewer, "ship it", now)
	require.Len(t, approved.Review.Comments, 1)
	assert.Equal(t, model.ReviewApproved, approved.Review.Status)
	assert.Equal(t, model.ReviewApproved, approved.Review.Comments[0].Status)
	assert.Equal(t, "ship it", approved.Review.Comments[0].Comment)
	assert.Equal(t, now, approved.Review.Comments[0].Timestamp)
	assert.Empty(t, task.Review.Comments)

	rejected := Reject(approved, reviewer, "one more thing", now.Add(time.Hour))
	require.Len(t, rejected.Review.Comments, 2)
	assert.Equal(t, model.ReviewChangesRequested, rejected.Review.Status)
	assert.Equal(t, model.ReviewChangesRequested, rejected.Review.Comments[1].Status)
	assert.Equal(t, []string{"u-lead"}, rejected.Review.Reviewers)
}

func TestApproveOutsideReviewColumn(t *testing.T) {
	task := newTask(model.TaskDone)
	next := Approve(task, reviewer, "fine", time.Now())
	assert.Equal(t, model.TaskDone, next.Status)
	assert.Equal(t, model.ReviewApproved, next.Review.Status)
}

func TestReviewScenario(t *testing.T) {
	ts := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	task := newTask(model.TaskTodo)

	task, _, err := Move(task, model.TaskInProgress)
	require.NoError(t, err)
	task, _, err = Move(task, model.TaskReview)
	require.NoError(t, err)
	assert.Empty(t, task.Review.Comments)

	task = Approve(task, model.MemberSnapshot{}, "looks good", ts)

	assert.Equal(t, model.TaskReview, task.Status)
	assert.Equal(t, model.ReviewApproved, task.Review.Status)
	assert.Equal(t, []model.ReviewComment{
		{Comment: "looks good", Status: model.ReviewApproved, Timestamp: ts},
	}, task.Review.Comments)
}

func TestPartition(t *testing.T) {
	tasks := []model.Task{
		newTask(model.TaskDone),
		newTask(model.TaskTodo),
		newTask(model.TaskTrash),
		newTask(model.TaskTodo),
		newTask("bogus"),
	}
	cols := Partition(tasks)
	require.Len(t, cols, 5)
	assert.Equal(t, model.TaskTodo, cols[0].Status)
	assert.Equal(t, []model.Task{tasks[1], tasks[3]}, cols[0].Tasks)
	assert.Empty(t, cols[1].Tasks)
	assert.Empty(t, cols[2].Tasks)
	assert.Len(t, cols[3].Tasks, 1)
	assert.Len(t, cols[4].Tasks, 1)
	assert.Len(t, Trash(tasks), 1)
}

func TestFilterByMilestone(t *testing.T) {
	m := uuid.New()
	a, b := newTask(model.TaskTodo), newTask(model.TaskTodo)
	a.MilestoneID = &m
	tasks := []model.Task{a, b}

	assert.Len(t, FilterByMilestone(tasks, model.MilestoneAll), 2)
	assert.Len(t, FilterByMilestone(tasks, ""), 2)
	assert.Equal(t, []model.Task{a}, FilterByMilestone(tasks, m.String()))
	assert.Empty(t, FilterByMilestone(tasks, uuid.NewString()))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(nil))
	assert.Equal(t, 0, Progress([]model.Task{newTask(model.TaskTrash), newTask(model.TaskTrash)}))

	tasks := []model.Task{
		newTask(model.TaskDone),
		newTask(model.TaskTodo),
		newTask(model.TaskReview),
		newTask(model.TaskTrash),
	}
	assert.Equal(t, 33, Progress(tasks))
	assert.Equal(t, Progress(tasks), Progress(tasks))

	tasks = append(tasks, newTask(model.TaskDone))
	assert.Equal(t, 50, Progress(tasks))

	assert.Equal(t, 67, Progress([]model.Task{newTask(model.TaskDone), newTask(model.TaskDone), newTask(model.TaskTodo)}))
	assert.Equal(t, 100, Progress([]model.Task{newTask(model.TaskDone), newTask(model.TaskTrash)}))
}

func TestProgressFromCounts(t *testing.T) {
	assert.Equal(t, 0, ProgressFromCounts(nil))
	assert.Equal(t, 0, ProgressFromCounts(map[model.TaskStatus]int{model.TaskTrash: 4}))
	assert.Equal(t, 33, ProgressFromCounts(map[model.TaskStatus]int{
		model.TaskDone:   1,
		model.TaskTodo:   1,
		model.TaskReview: 1,
		model.TaskTrash:  1,
	}))
	assert.Equal(t, 100, ProgressFromCounts(map[model.TaskStatus]int{model.TaskDone: 2, model.TaskTrash: 3}))
}
