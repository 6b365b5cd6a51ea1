// Package board holds the kanban state machine. Every function is pure: it takes a task
// value and returns a new one, leaving persistence to the caller.
package board

import (
	"fmt"
	"math"
	"time"

	"amarms/internal/model"
)

// Move puts t into column to. The returned bool is false when the column did not change,
// which covers reordering inside one column.
//
// Entering review starts a fresh cycle: status pending, no reviewers, prior comments kept.
// Leaving review leaves the review record as it was.
func Move(t model.Task, to model.TaskStatus) (model.Task, bool, error) {
	if !to.Valid() {
		return t, false, fmt.Errorf("unknown board column %q", to)
	}
	if t.Status == to {
		return t, false, nil
	}

	next := t.Clone()
	next.Status = to
	if to == model.TaskReview {
		comments := next.Review.Comments
		if comments == nil {
			comments = []model.ReviewComment{}
		}
		next.Review = model.Review{
			Status:    model.ReviewPending,
			Reviewers: []string{},
			Comments:  comments,
		}
	}
	next.IsDisposed = to == model.TaskTrash
	return next, true, nil
}

// Approve appends an approving comment and marks the review approved.
// It does not depend on which column the task is in.
func Approve(t model.Task, author model.MemberSnapshot, text string, now time.Time) model.Task {
	return addVerdict(t, author, text, model.ReviewApproved, now)
}

// Reject appends a change request and marks the review accordingly.
func Reject(t model.Task, author model.MemberSnapshot, text string, now time.Time) model.Task {
	return addVerdict(t, author, text, model.ReviewChangesRequested, now)
}

func addVerdict(t model.Task, author model.MemberSnapshot, text string, status model.ReviewStatus, now time.Time) model.Task {
	next := t.Clone()
	next.Review.Comments = append(next.Review.Comments, model.ReviewComment{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Comment:    text,
		Status:     status,
		Timestamp:  now,
	})
	next.Review.Status = status
	if author.ID != "" && !contains(next.Review.Reviewers, author.ID) {
		next.Review.Reviewers = append(next.Review.Reviewers, author.ID)
	}
	return next
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Column is one board column with its cards.
type Column struct {
	Status model.TaskStatus `json:"status"`
	Tasks  []model.Task     `json:"tasks"`
}

// Partition splits tasks into the five columns in display order. Input order is kept
// inside each column. Tasks with an unknown status are dropped.
func Partition(tasks []model.Task) []Column {
	cols := make([]Column, len(model.BoardColumns))
	index := make(map[model.TaskStatus]int, len(model.BoardColumns))
	for i, s := range model.BoardColumns {
		cols[i] = Column{Status: s, Tasks: []model.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

// FilterByMilestone keeps the tasks of one milestone. The "all" sentinel and the empty
// string keep everything.
func FilterByMilestone(tasks []model.Task, milestoneID string) []model.Task {
	if milestoneID == "" || milestoneID == model.MilestoneAll {
		return tasks
	}
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.MilestoneID != nil && t.MilestoneID.String() == milestoneID {
			out = append(out, t)
		}
	}
	return out
}

// Trash returns the tasks currently in the trash column.
func Trash(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0)
	for _, t := range tasks {
		if t.Status == model.TaskTrash {
			out = append(out, t)
		}
	}
	return out
}

// Progress is round(100 * done / non-trashed), or 0 when nothing is left after
// dropping trash.
func Progress(tasks []model.Task) int {
	remaining, done := 0, 0
	for _, t := range tasks {
		switch t.Status {
		case model.TaskTrash:
			continue
		case model.TaskDone:
			done++
		}
		remaining++
	}
	return percent(done, remaining)
}

// ProgressFromCounts applies the same rule to per-column task counts.
func ProgressFromCounts(counts map[model.TaskStatus]int) int {
	remaining := 0
	for status, n := range counts {
		if status != model.TaskTrash {
			remaining += n
		}
	}
	return percent(counts[model.TaskDone], remaining)
}

func percent(done, remaining int) int {
	if remaining == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(remaining)))
}
