package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// ErrKeyNotFound is returned by a KV when the key is absent or expired.
var ErrKeyNotFound = errors.New("session: key not found")

// KV is the durable byte store behind session snapshots.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes one session's user and cart snapshots. Reads never
// fail: a missing, unreadable or invalid blob is reported as empty.
type Store struct {
	id       string
	kv       KV
	userKey  string
	cartKey  string
	validate *validator.Validate
}

var snapshotValidator = validator.New()

func NewStore(kv KV, sessionID string) *Store {
	return &Store{
		id:       sessionID,
		kv:       kv,
		userKey:  UserKey(sessionID),
		cartKey:  CartKey(sessionID),
		validate: snapshotValidator,
	}
}

// SessionID returns the session the store is scoped to.
func (s *Store) SessionID() string { return s.id }

func UserKey(sessionID string) string { return "session:" + sessionID + ":user" }
func CartKey(sessionID string) string { return "session:" + sessionID + ":cart" }

// LoadUser returns the cached user or nil.
func (s *Store) LoadUser(ctx context.Context) *domain.User {
	raw, ok := s.read(ctx, s.userKey)
	if !ok {
		return nil
	}

	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		logger.Log.Warn("Discarding unreadable user snapshot", "key", s.userKey, "error", err)
		return nil
	}
	if err := s.validate.Struct(u); err != nil {
		logger.Log.Warn("Discarding invalid user snapshot", "key", s.userKey, "error", err)
		return nil
	}
	return &u
}

func (s *Store) SaveUser(ctx context.Context, u domain.User) error {
	return s.write(ctx, s.userKey, u)
}

func (s *Store) ClearUser(ctx context.Context) error {
	return s.kv.Delete(ctx, s.userKey)
}

// LoadCart returns the persisted cart, or an empty one. Snapshots holding
// duplicate slot ids are rejected whole.
func (s *Store) LoadCart(ctx context.Context) []domain.CartItem {
	raw, ok := s.read(ctx, s.cartKey)
	if !ok {
		return []domain.CartItem{}
	}

	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Log.Warn("Discarding unreadable cart snapshot", "key", s.cartKey, "error", err)
		return []domain.CartItem{}
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := s.validate.Struct(it); err != nil {
			logger.Log.Warn("Discarding invalid cart snapshot", "key", s.cartKey, "error", err)
			return []domain.CartItem{}
		}
		if _, dup := seen[it.SlotID]; dup {
			logger.Log.Warn("Discarding cart snapshot with duplicate slot", "key", s.cartKey, "slot_id", it.SlotID)
			return []domain.CartItem{}
		}
		seen[it.SlotID] = struct{}{}
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items
}

func (s *Store) SaveCart(ctx context.Context, items []domain.CartItem) error {
	if items == nil {
		items = []domain.CartItem{}
	}
	return s.write(ctx, s.cartKey, items)
}

func (s *Store) ClearCart(ctx context.Context) error {
	return s.kv.Delete(ctx, s.cartKey)
}

func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		logger.Log.Warn("Session store read failed", "key", key, "error", err)
		return nil, false
	}
	return raw, true
}

func (s *Store) write(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
