package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"feedback-relay-go/internal/model"
)

const decrementFloored = "CASE WHEN feedback_count > 0 THEN feedback_count - 1 ELSE 0 END"

func (r *Repository) CreateFeatureRequest(ctx context.Context, fr *model.FeatureRequest) error {
	if err := r.db.WithContext(ctx).Create(fr).Error; err != nil {
		return fmt.Errorf("failed to create feature request: %w", err)
	}
	return nil
}

func (r *Repository) GetFeatureRequest(ctx context.Context, id string) (*model.FeatureRequest, error) {
	var fr model.FeatureRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fr).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feature request: %w", err)
	}
	return &fr, nil
}

// ListMatchCandidates returns the most corroborated requests of a product first
func (r *Repository) ListMatchCandidates(ctx context.Context, productID string, limit int) ([]model.FeatureRequest, error) {
	var frs []model.FeatureRequest
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("feedback_count DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&frs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list match candidates: %w", err)
	}
	return frs, nil
}

// IncrementFeedbackCount bumps the counter in SQL, never read-modify-write
func (r *Repository) IncrementFeedbackCount(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&model.FeatureRequest{}).Where("id = ?", id).
		Update("feedback_count", gorm.Expr("feedback_count + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to increment feedback count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementFeedbackCount lowers the counter, floored at zero
func (r *Repository) DecrementFeedbackCount(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&model.FeatureRequest{}).Where("id = ?", id).
		Update("feedback_count", gorm.Expr(decrementFloored))
	if result.Error != nil {
		return fmt.Errorf("failed to decrement feedback count: %w", result.Error)
	}
	return nil
}

// DeleteFeatureRequest removes a request and its feedback, and clears
// audit links pointing at either.
func (r *Repository) DeleteFeatureRequest(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var feedbackIDs []string
		if err := tx.Model(&model.Feedback{}).Where("feature_request_id = ?", id).Pluck("id", &feedbackIDs).Error; err != nil {
			return fmt.Errorf("failed to load feedback: %w", err)
		}

		if len(feedbackIDs) > 0 {
			if err := tx.Model(&model.ProcessedMessage{}).Where("feedback_id IN ?", feedbackIDs).
				Update("feedback_id", nil).Error; err != nil {
				return fmt.Errorf("failed to unlink processed messages: %w", err)
			}
			if err := tx.Where("id IN ?", feedbackIDs).Delete(&model.Feedback{}).Error; err != nil {
				return fmt.Errorf("failed to delete feedback: %w", err)
			}
		}

		if err := tx.Model(&model.ProcessedMessage{}).Where("feature_request_id = ?", id).
			Update("feature_request_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink processed messages: %w", err)
		}

		result := tx.Where("id = ?", id).Delete(&model.FeatureRequest{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete feature request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
