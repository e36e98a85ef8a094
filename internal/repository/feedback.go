package repository

import (
	"context"
	"fmt"

	"feedback-relay-go/internal/model"
)

// CreateFeedback inserts feedback and, when it is linked, increments the
// request counter in the same transaction.
func (r *Repository) CreateFeedback(ctx context.Context, fb *model.Feedback) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		if err := tx.db.Create(fb).Error; err != nil {
			return fmt.Errorf("failed to create feedback: %w", err)
		}
		if fb.FeatureRequestID != nil {
			return tx.IncrementFeedbackCount(ctx, *fb.FeatureRequestID)
		}
		return nil
	})
}

func (r *Repository) GetFeedback(ctx context.Context, id string) (*model.Feedback, error) {
	var fb model.Feedback
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&fb).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return &fb, nil
}

// RelinkFeedback moves feedback to another request, or unlinks it when
// featureRequestID is nil, keeping both counters consistent.
func (r *Repository) RelinkFeedback(ctx context.Context, id string, featureRequestID *string) (*model.Feedback, error) {
	var out *model.Feedback
	err := r.Transaction(ctx, func(tx *Repository) error {
		fb, err := tx.GetFeedback(ctx, id)
		if err != nil {
			return err
		}

		if sameLink(fb.FeatureRequestID, featureRequestID) {
			out = fb
			return nil
		}

		if featureRequestID != nil {
			target, err := tx.GetFeatureRequest(ctx, *featureRequestID)
			if err != nil {
				return err
			}
			if target.ProductID != fb.ProductID {
				return ErrNotFound
			}
		}

		if fb.FeatureRequestID != nil {
			if err := tx.DecrementFeedbackCount(ctx, *fb.FeatureRequestID); err != nil {
				return err
			}
		}

		if err := tx.db.Model(&model.Feedback{}).Where("id = ?", id).
			Update("feature_request_id", featureRequestID).Error; err != nil {
			return fmt.Errorf("failed to relink feedback: %w", err)
		}

		if featureRequestID != nil {
			if err := tx.IncrementFeedbackCount(ctx, *featureRequestID); err != nil {
				return err
			}
		}

		fb.FeatureRequestID = featureRequestID
		out = fb
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFeedback removes feedback, decrements its request counter and
// clears the audit link.
func (r *Repository) DeleteFeedback(ctx context.Context, id string) error {
	return r.Transaction(ctx, func(tx *Repository) error {
		fb, err := tx.GetFeedback(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.db.Model(&model.ProcessedMessage{}).Where("feedback_id = ?", id).
			Update("feedback_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink processed message: %w", err)
		}

		if err := tx.db.Where("id = ?", id).Delete(&model.Feedback{}).Error; err != nil {
			return fmt.Errorf("failed to delete feedback: %w", err)
		}

		if fb.FeatureRequestID != nil {
			return tx.DecrementFeedbackCount(ctx, *fb.FeatureRequestID)
		}
		return nil
	})
}

// CountFeedback returns the number of feedback rows linked to a request
func (r *Repository) CountFeedback(ctx context.Context, featureRequestID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Feedback{}).Where("feature_request_id = ?", featureRequestID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}

func sameLink(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
