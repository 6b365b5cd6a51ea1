package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"amarms/internal/model"
	"amarms/internal/permission"
	"amarms/internal/repository"
)

const (
	EventKindTask      = "task"
	EventKindMilestone = "milestone"
	EventKindCampaign  = "campaign"
	maxCalendarSpan    = 366 * 24 * time.Hour
)

type CalendarService interface {
	// Events lists dated items overlapping [start, end], sorted by start.
	Events(ctx context.Context, actor permission.Principal, start, end time.Time) ([]model.CalendarEvent, error)
}

type calendarService struct {
	tasks      repository.TaskRepository
	milestones repository.MilestoneRepository
	campaigns  repository.CampaignRepository
}

func NewCalendarService(
	tasks repository.TaskRepository,
	milestones repository.MilestoneRepository,
	campaigns repository.CampaignRepository,
) CalendarService {
	return &calendarService{tasks: tasks, milestones: milestones, campaigns: campaigns}
}

// Events includes tasks and milestones for holders of tasks.view / milestones.view and
// campaigns of the departments the actor can view.
func (s *calendarService) Events(ctx context.Context, actor permission.Principal, start, end time.Time) ([]model.CalendarEvent, error) {
	if end.Before(start) {
		return nil, invalid("end is before start")
	}
	if end.Sub(start) > maxCalendarSpan {
		return nil, invalid("range cannot exceed one year")
	}
	events := make([]model.CalendarEvent, 0)

	if actor.Can(permission.TasksView) {
		tasks, err := s.tasks.ListDueBetween(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tasks: %w", err)
		}
		for _, t := range tasks {
			due := time.Time(*t.DueDate)
			from := due
			if t.StartDate != nil {
				from = time.Time(*t.StartDate)
			}
			events = append(events, model.CalendarEvent{
				Kind:      EventKindTask,
				ID:        t.ID.String(),
				ProjectID: t.ProjectID.String(),
				Title:     t.Title,
				Start:     from,
				End:       due,
				Status:    string(t.Status),
			})
		}
	}

	if actor.Can(permission.MilestonesView) {
		milestones, err := s.milestones.ListDueBetween(ctx, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch milestones: %w", err)
		}
		for _, m := range milestones {
			due := time.Time(m.DueDate)
			events = append(events, model.CalendarEvent{
				Kind:      EventKindMilestone,
				ID:        m.ID.String(),
				ProjectID: m.ProjectID.String(),
				Title:     m.Title,
				Start:     due,
				End:       due,
			})
		}
	}

	campaigns, err := s.campaigns.ListActiveBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaigns: %w", err)
	}
	for _, c := range campaigns {
		if !actor.Can(departmentPermission(c.Department, "view")) {
			continue
		}
		from := time.Time(*c.StartDate)
		to := from
		if c.EndDate != nil {
			to = time.Time(*c.EndDate)
		}
		ev := model.CalendarEvent{
			Kind:   EventKindCampaign,
			ID:     c.ID.String(),
			Title:  c.Title,
			Start:  from,
			End:    to,
			Status: c.Status,
		}
		if c.ProjectID != nil {
			ev.ProjectID = c.ProjectID.String()
		}
		events = append(events, ev)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}
