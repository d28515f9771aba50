package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"geminiproxy/internal/models"
	"geminiproxy/internal/redis"
)

// ErrMissingFields is returned when session_id, sender or text is empty.
var ErrMissingFields = errors.New("session_id, sender and text are required")

// Service stores and lists chat messages keyed by session id.
type Service struct {
	db     *sql.DB
	cache  *historyCache
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Service)

// WithCache enables the Redis read-through history cache.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		if client != nil {
			s.cache = newHistoryCache(client, ttl)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a chat service on top of the shared connection pool.
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordMessage persists one message and returns the stored record.
func (s *Service) RecordMessage(ctx context.Context, sessionID, sender, text string) (*models.Message, error) {
	if sessionID == "" || sender == "" || text == "" {
		return nil, ErrMissingFields
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat (session_id, sender, text, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, sender, text, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	if err := s.cache.invalidate(ctx, sessionID); err != nil {
		s.logger.Warn("invalidate history cache failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return &models.Message{
		ID:        id,
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		CreatedAt: now,
	}, nil
}

// ListMessages returns the session's messages oldest first. A session without
// messages yields an empty slice.
func (s *Service) ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error) {
	cached, gen, hit, cacheable := s.cache.load(ctx, sessionID, s.logger)
	if hit {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender, text, created_at FROM chat WHERE session_id = ? ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		m := new(models.Message)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	if cacheable {
		if err := s.cache.store(ctx, sessionID, gen, messages); err != nil {
			s.logger.Warn("store history cache failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return messages, nil
}

// Ping checks the database. An unreachable cache is only logged.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.backend.Ping(ctx); err != nil {
			s.logger.Warn("history cache unreachable", zap.Error(err))
		}
	}
	return nil
}
