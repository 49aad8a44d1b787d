package subscription

import (
	"context"

	"github.com/m3rciful/subbot/core/logger"
	"log/slog"
)

// Service is a thin logging layer over the Store used by handlers.
type Service struct {
	store Store
}

// NewService wraps a Store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetUserByTelegramID resolves a Telegram user ID to the subscriber record.
// Returns (nil, nil) for unknown users.
func (s *Service) GetUserByTelegramID(ctx context.Context, userID int64) (*Record, error) {
	return s.store.Get(ctx, userID)
}

// Ensure creates the subscriber row on first contact. Reports whether a
// new row was created.
func (s *Service) Ensure(ctx context.Context, userID int64, username string) (bool, error) {
	created, err := s.store.Create(ctx, userID, username)
	if err != nil {
		logger.SVCSubscribers.Error("ensure failed",
			slog.String("event", "ensure"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false, err
	}
	if created {
		logger.SVCSubscribers.Info("new subscriber",
			slog.String("event", "ensure"),
			slog.Int64("user_id", userID),
		)
	}
	return created, nil
}

// Remove deletes a subscriber row. Administrative cleanup only.
func (s *Service) Remove(ctx context.Context, userID int64) (bool, error) {
	deleted, err := s.store.Delete(ctx, userID)
	if err != nil {
		return false, err
	}
	if deleted {
		logger.SVCSubscribers.Info("subscriber removed",
			slog.String("event", "remove"),
			slog.Int64("user_id", userID),
		)
	}
	return deleted, nil
}
