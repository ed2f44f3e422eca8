package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/advisordesk/orchestrator/internal/metrics"
)

const keyPrefix = "session:"

// Manager stores conversation sessions in Redis with a small local cache in
// front. Sessions expire with the Redis TTL; the cache is trimmed LRU-style
// when it outgrows maxCached.
type Manager struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration

	mu         sync.RWMutex
	cache      map[string]*Session
	lastAccess map[string]time.Time
	maxCached  int
}

// NewManager connects to Redis and verifies connectivity.
func NewManager(client *redis.Client, logger *zap.Logger) (*Manager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Manager{
		client:     client,
		logger:     logger,
		ttl:        24 * time.Hour,
		cache:      make(map[string]*Session),
		lastAccess: make(map[string]time.Time),
		maxCached:  10000,
	}, nil
}

// GetOrCreate returns the user's session, creating it when absent. A session
// id belonging to a different user is never reused; the caller gets a fresh
// session instead.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, userID string) (*Session, error) {
	if sessionID != "" {
		s, err := m.get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if s != nil {
			if s.UserID != userID {
				m.logger.Warn("Session id reuse across users, creating a new session",
					zap.String("session_id", sessionID),
					zap.String("requesting_user", userID),
				)
			} else {
				return s, nil
			}
		}
	}

	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.Inc()
	return s, nil
}

// AppendTurn records a user/assistant exchange and persists the session.
func (m *Manager) AppendTurn(ctx context.Context, s *Session, userText, assistantText string) error {
	now := time.Now().UTC()
	s.History = append(s.History,
		Message{Role: "user", Content: userText, Timestamp: now},
		Message{Role: "assistant", Content: assistantText, Timestamp: now},
	)
	s.UpdatedAt = now
	return m.save(ctx, s)
}

func (m *Manager) get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	if s, ok := m.cache[sessionID]; ok {
		m.mu.RUnlock()
		m.touch(sessionID)
		return s, nil
	}
	m.mu.RUnlock()

	data, err := m.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	m.cachePut(&s)
	return &s, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.client.Set(ctx, keyPrefix+s.ID, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.cachePut(s)
	return nil
}

func (m *Manager) cachePut(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[s.ID] = s
	m.lastAccess[s.ID] = time.Now()
	m.evictLocked()
	metrics.SessionCacheSize.Set(float64(len(m.cache)))
}

func (m *Manager) touch(sessionID string) {
	m.mu.Lock()
	m.lastAccess[sessionID] = time.Now()
	m.mu.Unlock()
}

// evictLocked drops the least recently used entries above the cap.
func (m *Manager) evictLocked() {
	for len(m.cache) > m.maxCached {
		oldestID := ""
		var oldest time.Time
		for id, at := range m.lastAccess {
			if oldestID == "" || at.Before(oldest) {
				oldestID = id
				oldest = at
			}
		}
		delete(m.cache, oldestID)
		delete(m.lastAccess, oldestID)
	}
}
