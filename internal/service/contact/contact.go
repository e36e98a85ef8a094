// Package contact finds or creates sender identities per product.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"feedback-relay-go/internal/model"
	"feedback-relay-go/internal/repository"
)

// ErrNoEmail is returned when the sender has no address
var ErrNoEmail = errors.New("contact email is empty")

// Store is the persistence used by the resolver
type Store interface {
	FindContact(ctx context.Context, productID, email string) (*model.Contact, error)
	CreateContact(ctx context.Context, c *model.Contact) error
	UpdateContactName(ctx context.Context, id, name string) (bool, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// FindOrCreate returns the contact for (productID, email), creating it when
// missing. A stored name is only filled in, never replaced.
func (r *Resolver) FindOrCreate(ctx context.Context, productID, email string, name *string) (*model.Contact, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNoEmail
	}
	var newName string
	if name != nil {
		newName = strings.TrimSpace(*name)
	}

	c, err := r.store.FindContact(ctx, productID, email)
	switch {
	case err == nil:
		if newName != "" && (c.Name == nil || *c.Name == "") {
			filled, err := r.store.UpdateContactName(ctx, c.ID, newName)
			if err != nil {
				return nil, err
			}
			if !filled {
				return r.store.FindContact(ctx, productID, email)
			}
			c.Name = &newName
		}
		return c, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	c = &model.Contact{ProductID: productID, Email: email}
	if newName != "" {
		c.Name = &newName
	}
	err = r.store.CreateContact(ctx, c)
	if errors.Is(err, repository.ErrDuplicate) {
		// lost the insert race; the winner's row is authoritative
		return r.store.FindContact(ctx, productID, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return c, nil
}
