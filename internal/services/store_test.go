package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"spinwin-backend/internal/models"
	"spinwin-backend/internal/services"
)

// memStore is an in-memory Store used by the ledger and session tests. A
// single mutex stands in for the real store's transaction serialization.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	codes       map[string]string
	spins       map[string][]*models.SpinResult
	withdrawals map[string][]*models.WithdrawalRequest

	// failNext makes the next mutating call fail without applying anything.
	failNext error
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*models.User),
		codes:       make(map[string]string),
		spins:       make(map[string][]*models.SpinResult),
		withdrawals: make(map[string][]*models.WithdrawalRequest),
	}
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memStore) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	if _, ok := m.users[user.ID]; ok {
		return services.ErrUserExists
	}

	now := time.Now().Unix()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memStore) UpdateUser(ctx context.Context, userID string, fn func(tx *services.UserTx) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	stored, ok := m.users[userID]
	if !ok {
		return nil, services.ErrUserNotFound
	}

	working := *stored
	tx := &services.UserTx{User: &working}
	if err := fn(tx); err != nil {
		return nil, err
	}

	now := time.Now()
	working.UpdatedAt = now.Unix()
	m.users[userID] = &working

	for _, spin := range tx.Spins {
		spin.SpinTime = now
		m.spins[spin.UserID] = append(m.spins[spin.UserID], spin)
	}
	for _, wd := range tx.Withdrawals {
		wd.RequestTime = now
		m.withdrawals[wd.UserID] = append(m.withdrawals[wd.UserID], wd)
	}

	result := working
	return &result, nil
}

func (m *memStore) UpdateUserPair(ctx context.Context, userID, otherID string, fn func(user, other *models.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	storedUser, ok := m.users[userID]
	if !ok {
		return services.ErrUserNotFound
	}
	storedOther, ok := m.users[otherID]
	if !ok {
		return services.ErrUserNotFound
	}

	workingUser := *storedUser
	workingOther := *storedOther
	if err := fn(&workingUser, &workingOther); err != nil {
		return err
	}

	now := time.Now().Unix()
	workingUser.UpdatedAt = now
	workingOther.UpdatedAt = now
	m.users[userID] = &workingUser
	m.users[otherID] = &workingOther
	return nil
}

func (m *memStore) RegisterReferralCode(ctx context.Context, code, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.takeFailure(); err != nil {
		return err
	}

	code = strings.ToUpper(code)
	if _, ok := m.codes[code]; ok {
		return services.ErrCodeTaken
	}
	m.codes[code] = userID
	return nil
}

func (m *memStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.codes[strings.ToUpper(code)]
	return ok, nil
}

func (m *memStore) ReferralCodeOwner(ctx context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.codes[strings.ToUpper(code)]
	if !ok {
		return "", services.ErrInvalidCode
	}
	return owner, nil
}

func (m *memStore) SpinHistory(ctx context.Context, userID string, limit int64) ([]*models.SpinResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := append([]*models.SpinResult(nil), m.spins[userID]...)
	sort.Slice(results, func(i, j int) bool {
		return results[i].SpinTime.After(results[j].SpinTime)
	})
	if int64(len(results)) > limit && limit > 0 {
		results = results[:limit]
	}
	return results, nil
}

func (m *memStore) WithdrawalHistory(ctx context.Context, userID string, limit int64) ([]*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	requests := append([]*models.WithdrawalRequest(nil), m.withdrawals[userID]...)
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestTime.After(requests[j].RequestTime)
	})
	if int64(len(requests)) > limit && limit > 0 {
		requests = requests[:limit]
	}
	return requests, nil
}
