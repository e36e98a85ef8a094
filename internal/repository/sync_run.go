package repository

import (
	"context"
	"fmt"

	"feedback-relay-go/internal/model"
)

func (r *Repository) LogSyncRun(ctx context.Context, run *model.SyncRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to log sync run: %w", err)
	}
	return nil
}

func (r *Repository) ListSyncRuns(ctx context.Context, page, limit int) ([]model.SyncRun, int64, error) {
	offset, limit := pageBounds(page, limit)

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.SyncRun{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sync runs: %w", err)
	}

	var runs []model.SyncRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return runs, total, nil
}

func (r *Repository) GetSyncRun(ctx context.Context, id uint) (*model.SyncRun, error) {
	var run model.SyncRun
	if err := r.db.WithContext(ctx).First(&run, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	return &run, nil
}
