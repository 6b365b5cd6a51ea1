package repository

import (
	"context"
	"time"

	"amarms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusCount is one (project, status) bucket of the task table.
type StatusCount struct {
	ProjectID uuid.UUID
	Status    model.TaskStatus
	Count     int
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Task, error)
	ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	ListDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error)
	CountByStatus(ctx context.Context, projectIDs []uuid.UUID) ([]StatusCount, error)
	// UpdateWithVersion writes every column of task when the stored version still equals
	// task.Version, then bumps task.Version. A moved version yields ErrVersionConflict.
	UpdateWithVersion(ctx context.Context, task *model.Task) error
	DeleteTrash(ctx context.Context, projectID uuid.UUID) ([]model.Task, error)
	ClearMilestone(ctx context.Context, milestoneID uuid.UUID) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Version == 0 {
		task.Version = 1
	}
	return GetDB(ctx, r.db).Create(task).Error
}

func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := GetDB(ctx, r.db).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if err := GetDB(ctx, r.db).
		Where("project_id = ?", projectID).
		Order("created_at asc").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if err := GetDB(ctx, r.db).
		Where("jsonb_exists(assignee, ?) AND status NOT IN ?", userID.String(), []model.TaskStatus{model.TaskDone, model.TaskTrash}).
		Order("due_date asc NULLS LAST").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error) {
	var tasks []model.Task
	if err := GetDB(ctx, r.db).
		Where("due_date >= ? AND due_date <= ? AND status <> ?", start, end, model.TaskTrash).
		Order("due_date asc").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, projectIDs []uuid.UUID) ([]StatusCount, error) {
	var counts []StatusCount
	query := GetDB(ctx, r.db).Model(&model.Task{}).
		Select("project_id, status, COUNT(*) as count").
		Group("project_id, status")
	if projectIDs != nil {
		if len(projectIDs) == 0 {
			return counts, nil
		}
		query = query.Where("project_id IN ?", projectIDs)
	}
	if err := query.Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *taskRepository) UpdateWithVersion(ctx context.Context, task *model.Task) error {
	expected := task.Version
	task.Version = expected + 1

	res := GetDB(ctx, r.db).Model(task).
		Where("version = ?", expected).
		Select("*").
		Omit("ID", "ProjectID", "CreatedBy", "CreatedAt").
		Updates(task)
	if res.Error != nil {
		task.Version = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		task.Version = expected
		var count int64
		if err := GetDB(ctx, r.db).Model(&model.Task{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *taskRepository) DeleteTrash(ctx context.Context, projectID uuid.UUID) ([]model.Task, error) {
	var trashed []model.Task
	db := GetDB(ctx, r.db)
	if err := db.Where("project_id = ? AND status = ?", projectID, model.TaskTrash).Find(&trashed).Error; err != nil {
		return nil, err
	}
	if len(trashed) == 0 {
		return trashed, nil
	}

	ids := make([]uuid.UUID, 0, len(trashed))
	for _, t := range trashed {
		ids = append(ids, t.ID)
	}
	// status re-checked so a task restored in the meantime survives
	res := db.Where("id IN ? AND status = ?", ids, model.TaskTrash).Delete(&model.Task{})
	if res.Error != nil {
		return nil, res.Error
	}
	if int(res.RowsAffected) != len(ids) {
		return nil, ErrVersionConflict
	}
	return trashed, nil
}

func (r *taskRepository) ClearMilestone(ctx context.Context, milestoneID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Task{}).
		Where("milestone_id = ?", milestoneID).
		Updates(map[string]interface{}{
			"milestone_id": nil,
			"version":      gorm.Expr("version + 1"),
		}).Error
}
