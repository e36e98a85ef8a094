package repository

import (
	"context"
	"fmt"
	"time"

	"feedback-relay-go/internal/model"
)

func (r *Repository) CreateConnection(ctx context.Context, c *model.Connection) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create connection: %w", err)
	}
	return nil
}

func (r *Repository) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	var c model.Connection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &c, nil
}

// FindActiveConnection looks up an active connection by its provider account
func (r *Repository) FindActiveConnection(ctx context.Context, channel model.Channel, account string) (*model.Connection, error) {
	var c model.Connection
	err := r.db.WithContext(ctx).
		Where("channel = ? AND account_identifier = ? AND active = ?", channel, account, true).
		First(&c).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find connection: %w", err)
	}
	return &c, nil
}

// FirstActiveConnection returns the oldest active connection for a channel
func (r *Repository) FirstActiveConnection(ctx context.Context, channel model.Channel) (*model.Connection, error) {
	var c model.Connection
	err := r.db.WithContext(ctx).
		Where("channel = ? AND active = ?", channel, true).
		Order("created_at ASC").
		First(&c).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find connection: %w", err)
	}
	return &c, nil
}

func (r *Repository) ListActiveConnections(ctx context.Context) ([]model.Connection, error) {
	var conns []model.Connection
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at ASC").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

// ListWatchesExpiringBefore returns active connections of a channel whose started push watch lapses before t
func (r *Repository) ListWatchesExpiringBefore(ctx context.Context, channel model.Channel, t time.Time) ([]model.Connection, error) {
	var conns []model.Connection
	err := r.db.WithContext(ctx).
		Where("channel = ? AND active = ? AND watch_expiration IS NOT NULL AND watch_expiration < ?", channel, true, t).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring watches: %w", err)
	}
	return conns, nil
}

// UpdateConnectionCursor stores the new checkpoint; last write wins
func (r *Repository) UpdateConnectionCursor(ctx context.Context, id, cursor string) error {
	result := r.db.WithContext(ctx).Model(&model.Connection{}).Where("id = ?", id).Update("cursor", cursor)
	if result.Error != nil {
		return fmt.Errorf("failed to update cursor: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetConnectionActive(ctx context.Context, id string, active bool) error {
	result := r.db.WithContext(ctx).Model(&model.Connection{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("failed to update connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateWatchExpiration(ctx context.Context, id string, expiration time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.Connection{}).Where("id = ?", id).Update("watch_expiration", expiration)
	if result.Error != nil {
		return fmt.Errorf("failed to update watch expiration: %w", result.Error)
	}
	return nil
}

func (r *Repository) DeleteConnection(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Connection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
