package repository

import (
	"context"
	"fmt"

	"feedback-relay-go/internal/model"
)

// IsMessageProcessed reports whether a record exists for (source, sourceMessageID)
func (r *Repository) IsMessageProcessed(ctx context.Context, source model.Channel, sourceMessageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProcessedMessage{}).
		Where("source = ? AND source_message_id = ?", source, sourceMessageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("database error checking processed message: %w", err)
	}
	return count > 0, nil
}

// CreateProcessedMessage inserts the audit row. ErrDuplicate means another
// writer already recorded the same external message.
func (r *Repository) CreateProcessedMessage(ctx context.Context, m *model.ProcessedMessage) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create processed message: %w", err)
	}
	return nil
}

func (r *Repository) GetProcessedMessage(ctx context.Context, id string) (*model.ProcessedMessage, error) {
	var m model.ProcessedMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get processed message: %w", err)
	}
	return &m, nil
}

func (r *Repository) ListProcessedMessages(ctx context.Context, productID string, page, limit int) ([]model.ProcessedMessage, int64, error) {
	offset, limit := pageBounds(page, limit)

	var total int64
	q := r.db.WithContext(ctx).Model(&model.ProcessedMessage{}).Where("product_id = ?", productID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count processed messages: %w", err)
	}

	var msgs []model.ProcessedMessage
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).
		Order("processed_at DESC").Offset(offset).Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list processed messages: %w", err)
	}
	return msgs, total, nil
}

func (r *Repository) MarkFeatureRequest(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&model.ProcessedMessage{}).Where("id = ?", id).
		Update("is_feature_request", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark feature request: %w", err)
	}
	return nil
}

// LinkProcessedMessage sets the derived row links; nil leaves a link untouched
func (r *Repository) LinkProcessedMessage(ctx context.Context, id string, featureRequestID, feedbackID *string) error {
	updates := map[string]interface{}{}
	if featureRequestID != nil {
		updates["feature_request_id"] = *featureRequestID
	}
	if feedbackID != nil {
		updates["feedback_id"] = *feedbackID
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).Model(&model.ProcessedMessage{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to link processed message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProcessedMessage removes the audit row only; derived rows are kept
func (r *Repository) DeleteProcessedMessage(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ProcessedMessage{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete processed message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
