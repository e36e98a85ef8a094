package repository

import (
	"context"
	"fmt"

	"feedback-relay-go/internal/model"
)

func (r *Repository) FindContact(ctx context.Context, productID, email string) (*model.Contact, error) {
	var c model.Contact
	err := r.db.WithContext(ctx).Where("product_id = ? AND email = ?", productID, email).First(&c).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}
	return &c, nil
}

func (r *Repository) CreateContact(ctx context.Context, c *model.Contact) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

// UpdateContactName fills in a missing name. It reports false when the
// contact already has one, which is left untouched.
func (r *Repository) UpdateContactName(ctx context.Context, id, name string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("id = ? AND (name IS NULL OR name = '')", id).
		Update("name", name)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update contact name: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
