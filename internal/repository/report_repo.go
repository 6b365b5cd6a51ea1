package repository

import (
	"context"
	"fmt"

	"amarms/internal/model"

	"gorm.io/gorm"
)

// ProjectSummary is the slice of a project the report needs.
type ProjectSummary struct {
	ID     string
	Name   string
	Status string
}

type ReportRepository interface {
	CountProjectsByStatus(ctx context.Context) (map[string]int64, error)
	CountTasksByStatus(ctx context.Context) (map[string]int64, error)
	ListProjectSummaries(ctx context.Context) ([]ProjectSummary, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

type statusRow struct {
	Status string
	Count  int64
}

func (r *reportRepository) CountProjectsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, &model.Project{}, "projects")
}

func (r *reportRepository) CountTasksByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countBy(ctx, &model.Task{}, "tasks")
}

func (r *reportRepository) countBy(ctx context.Context, table interface{}, name string) (map[string]int64, error) {
	var rows []statusRow
	if err := GetDB(ctx, r.db).Model(table).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", name, err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *reportRepository) ListProjectSummaries(ctx context.Context) ([]ProjectSummary, error) {
	var rows []ProjectSummary
	if err := GetDB(ctx, r.db).Model(&model.Project{}).
		Select("id, name, status").
		Order("name asc").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return rows, nil
}
