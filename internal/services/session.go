package services

import (
	"context"
	"errors"
	"sync"

	"spinwin-backend/internal/models"
)

type SessionState int

const (
	SessionUninitialized SessionState = iota
	SessionResolving
	SessionReady
)

// Session is the per-principal profile controller. It caches the domain user,
// tracks the login lifecycle, and exposes the ledger verbs with an optimistic
// local update for spins: snapshot, tentative apply, reconcile.
type Session struct {
	mu      sync.Mutex
	state   SessionState
	loading bool
	user    *models.User

	ledger *LedgerService
}

func NewSession(ledger *LedgerService) *Session {
	return &Session{
		state:  SessionUninitialized,
		ledger: ledger,
	}
}

// Resolve completes an external sign-in: provision or fetch the domain user
// for the resolved identity. A NotFound or PermissionDenied failure while
// loading the profile forces logout so the session never operates on an
// unresolvable identity.
func (s *Session) Resolve(ctx context.Context, ident *Identity) (*models.User, error) {
	s.mu.Lock()
	s.state = SessionResolving
	s.loading = true
	s.mu.Unlock()

	user, err := s.ledger.ProvisionOrFetch(ctx, ident)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPermissionDenied) {
			s.clearLocked()
		} else {
			s.state = SessionReady
			s.user = nil
		}
		return nil, err
	}

	s.state = SessionReady
	s.user = user
	return user, nil
}

// Restore reloads the domain user by id, for sessions re-established from a
// bearer token rather than a fresh sign-in.
func (s *Session) Restore(ctx context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	s.state = SessionResolving
	s.loading = true
	s.mu.Unlock()

	user, err := s.ledger.Fetch(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false
	if err != nil {
		s.clearLocked()
		return nil, err
	}

	s.state = SessionReady
	s.user = user
	return user, nil
}

// ResolveAnonymous marks the session ready with no user.
func (s *Session) ResolveAnonymous() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SessionReady
	s.user = nil
	s.loading = false
}

func (s *Session) User() (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, false
	}
	snapshot := *s.user
	return &snapshot, true
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Logout clears domain state immediately and irreversibly for this session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.user = nil
	s.state = SessionUninitialized
	s.loading = false
}

// Spin applies an optimistic local update before the backing transaction
// completes. A daily-limit hit that is visible in already-loaded state is
// rejected before any tentative state is committed; every other failure
// restores the pre-call snapshot.
func (s *Session) Spin(ctx context.Context, points int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil, ErrUserNotFound
	}

	today := models.Today()
	spinsToday := s.user.DailySpins
	if s.user.LastSpinDate != today {
		spinsToday = 0
	}
	if spinsToday >= models.MaxDailySpins {
		return nil, ErrDailyLimitExceeded
	}

	snapshot := *s.user

	tentative := snapshot
	tentative.DailySpins = spinsToday + 1
	tentative.LastSpinDate = today
	if points > 0 {
		tentative.Points += points
	}
	s.user = &tentative

	updated, err := s.ledger.ApplySpin(ctx, snapshot.ID, points)
	if err != nil {
		s.user = &snapshot
		return nil, err
	}

	s.user = updated
	return updated, nil
}

func (s *Session) ApplyReferral(ctx context.Context, code string) (*models.User, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, ErrUserNotFound
	}
	userID := s.user.ID
	s.mu.Unlock()

	updated, err := s.ledger.ApplyReferral(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = updated
	s.mu.Unlock()
	return updated, nil
}

func (s *Session) UpdateProfile(ctx context.Context, name, mobile string) (*models.User, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, ErrUserNotFound
	}
	userID := s.user.ID
	s.mu.Unlock()

	updated, err := s.ledger.UpdateProfile(ctx, userID, name, mobile)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = updated
	s.mu.Unlock()
	return updated, nil
}

func (s *Session) RequestWithdrawal(ctx context.Context, tier models.WithdrawalTier, method models.WithdrawalMethod, contact models.WithdrawalContact) (*models.User, error) {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil, ErrUserNotFound
	}
	userID := s.user.ID
	s.mu.Unlock()

	updated, err := s.ledger.RequestWithdrawal(ctx, userID, tier, method, contact)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.user = updated
	s.mu.Unlock()
	return updated, nil
}

// SessionManager keeps one Session per signed-in user for the HTTP and
// websocket layers.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ledger   *LedgerService
}

func NewSessionManager(ledger *LedgerService) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		ledger:   ledger,
	}
}

func (m *SessionManager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	return sess, ok
}

// GetOrLoad returns the live session for userID, restoring one from the store
// when the process has no session yet (fresh deploy, expired cache).
func (m *SessionManager) GetOrLoad(ctx context.Context, userID string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	sess = NewSession(m.ledger)
	if _, err := sess.Restore(ctx, userID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[userID]; ok {
		sess = existing
	} else {
		m.sessions[userID] = sess
	}
	m.mu.Unlock()

	return sess, nil
}

func (m *SessionManager) Attach(userID string, sess *Session) {
	m.mu.Lock()
	m.sessions[userID] = sess
	m.mu.Unlock()
}

func (m *SessionManager) Remove(userID string) {
	m.mu.Lock()
	if sess, ok := m.sessions[userID]; ok {
		sess.Logout()
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
}
