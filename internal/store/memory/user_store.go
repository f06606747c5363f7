package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wolfeidau/backoffice/internal/models"
	"github.com/wolfeidau/backoffice/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
type UserStore struct {
	db *database
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}
	if s.conflicts(user) {
		return store.ErrUserAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *user
	s.db.users[user.UserID] = &clone

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	user, exists := s.db.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	email = models.NormalizeEmail(email)
	for _, user := range s.db.users {
		if models.NormalizeEmail(user.Email) == email {
			clone := *user
			return &clone, nil
		}
	}

	return nil, store.ErrUserNotFound
}

// GetByExternalID retrieves a user by external auth ID.
func (s *UserStore) GetByExternalID(ctx context.Context, externalAuthID string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, user := range s.db.users {
		if user.ExternalAuthID != nil && *user.ExternalAuthID == externalAuthID {
			clone := *user
			return &clone, nil
		}
	}

	return nil, store.ErrUserNotFound
}

// Update updates an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.users[user.UserID]; !exists {
		return store.ErrUserNotFound
	}
	if s.conflicts(user) {
		return store.ErrUserAlreadyExists
	}

	user.UpdatedAt = time.Now()

	clone := *user
	s.db.users[user.UserID] = &clone

	return nil
}

// Delete removes a user and their memberships.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, exists := s.db.users[userID]; !exists {
		return store.ErrUserNotFound
	}

	delete(s.db.users, userID)
	for key := range s.db.memberships {
		if key.userID == userID {
			delete(s.db.memberships, key)
		}
	}

	return nil
}

// List returns users matching the options, newest first.
func (s *UserStore) List(ctx context.Context, opts store.ListUsersOptions) ([]*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var result []*models.User
	for _, user := range s.db.users {
		if opts.TenantID != nil {
			m, ok := s.db.memberships[membershipKey{userID: user.UserID, tenantID: *opts.TenantID}]
			if !ok || !m.IsActive {
				continue
			}
		}
		clone := *user
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// conflicts reports whether another user already holds the email or external auth ID.
// Callers must hold the lock.
func (s *UserStore) conflicts(user *models.User) bool {
	email := models.NormalizeEmail(user.Email)
	for id, existing := range s.db.users {
		if id == user.UserID {
			continue
		}
		if models.NormalizeEmail(existing.Email) == email {
			return true
		}
		if user.ExternalAuthID != nil && existing.ExternalAuthID != nil &&
			*user.ExternalAuthID == *existing.ExternalAuthID {
			return true
		}
	}
	return false
}
