// Package cursor implements fetch-then-commit incremental discovery.
package cursor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"feedback-relay-go/internal/connector"
	"feedback-relay-go/internal/model"
)

// Source is the part of a connector the manager needs
type Source interface {
	CurrentPosition(ctx context.Context) (string, error)
	ListChangedMessageIDs(ctx context.Context, cursor string) ([]string, error)
}

// Store persists connection cursors
type Store interface {
	UpdateConnectionCursor(ctx context.Context, id, cursor string) error
}

// Batch is the result of one discovery step. IDs is empty when the cursor
// was just initialized or reset.
type Batch struct {
	IDs         []string
	Cursor      string
	Initialized bool
	Reset       bool
}

type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// FetchNewMessageIDs lists the ids changed since the connection's cursor and
// commits the new position before returning them. upperBound, when non-empty,
// replaces the adapter's current position.
func (m *Manager) FetchNewMessageIDs(ctx context.Context, conn *model.Connection, src Source, upperBound string) (*Batch, error) {
	position := upperBound
	if position == "" {
		var err error
		if position, err = src.CurrentPosition(ctx); err != nil {
			return nil, err
		}
	}

	log := logrus.WithFields(logrus.Fields{
		"connection_id": conn.ID,
		"channel":       conn.Channel,
	})

	current := conn.CursorValue()
	if current == "" {
		if err := m.commit(ctx, conn, position); err != nil {
			return nil, err
		}
		log.WithField("cursor", position).Info("Initialized sync cursor")
		return &Batch{Cursor: position, Initialized: true}, nil
	}

	ids, err := src.ListChangedMessageIDs(ctx, current)
	if errors.Is(err, connector.ErrCursorExpired) {
		if err := m.commit(ctx, conn, position); err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"old_cursor": current, "cursor": position}).Warn("Sync cursor expired, reset to current position")
		return &Batch{Cursor: position, Reset: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := m.commit(ctx, conn, position); err != nil {
		return nil, err
	}
	return &Batch{IDs: ids, Cursor: position}, nil
}

func (m *Manager) commit(ctx context.Context, conn *model.Connection, position string) error {
	if err := m.store.UpdateConnectionCursor(ctx, conn.ID, position); err != nil {
		return fmt.Errorf("failed to commit cursor: %w", err)
	}
	conn.Cursor = &position
	return nil
}
