package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/social-security/patient-office/internal/shared/events"
	"github.com/social-security/patient-office/internal/shared/metrics"
)

// User-facing login failure messages.
const (
	ErrMsgInvalidCredentials = "Identifiants incorrects. Veuillez réessayer."
	ErrMsgLoginFailed        = "Une erreur s'est produite lors de la connexion. Veuillez réessayer."
)

const eventSource = "session-manager"

// State is a snapshot of the session.
type State struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsLoading       bool   `json:"is_loading"`
	Error           string `json:"error,omitempty"`
}

// Publisher receives session events.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithCodec sets how the user record is persisted. Defaults to JSONCodec.
func WithCodec(c Codec) Option {
	return func(m *Manager) { m.codec = c }
}

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithPublisher sends session events to p.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// Manager owns the single session of the running office.
type Manager struct {
	directory Directory
	store     Store
	codec     Codec
	publisher Publisher
	logger    zerolog.Logger

	mu    sync.RWMutex
	state State

	// opMu serializes restore, login and logout end to end.
	opMu     sync.Mutex
	initOnce sync.Once
	ready    chan struct{}
}

// NewManager creates a Manager in the pending state.
func NewManager(directory Directory, store Store, opts ...Option) *Manager {
	m := &Manager{
		directory: directory,
		store:     store,
		codec:     JSONCodec{},
		logger:    zerolog.Nop(),
		state:     State{IsLoading: true},
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize restores the persisted session. Only the first call does any
// work; it never fails.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		defer close(m.ready)
		m.opMu.Lock()
		defer m.opMu.Unlock()
		m.restore(ctx)
	})
}

// Ready is closed once Initialize has completed.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) restore(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().Interface("panic", r).Msg("session restore panicked")
			m.setState(State{})
		}
	}()

	data, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			m.logger.Warn().Err(err).Msg("failed to read persisted session, starting unauthenticated")
		}
		m.mu.Lock()
		m.state.IsLoading = false
		m.mu.Unlock()
		metrics.RecordSessionRestore("absent")
		return
	}

	user, err := m.codec.Decode(data)
	if err != nil {
		m.logger.Warn().Err(err).Msg("discarding malformed persisted session")
		if err := m.store.Clear(ctx); err != nil {
			m.logger.Error().Err(err).Msg("failed to clear malformed session")
		}
		m.setState(State{})
		metrics.RecordSessionRestore("discarded")
		m.publish(ctx, events.NewEvent(events.TypeDiscarded, eventSource, map[string]any{
			"reason": err.Error(),
		}))
		return
	}

	m.setState(State{User: user, IsAuthenticated: true})
	metrics.RecordSessionRestore("restored")
	m.logger.Info().Str("username", user.Username).Msg("session restored")
	m.publish(ctx, userEvent(events.TypeRestored, user))
}

// Login authenticates username against the directory. The password is
// not checked. The outcome is reported through the returned flag and
// State().Error; nothing is returned as an error. A Login issued before
// Initialize first completes the restore.
func (m *Manager) Login(ctx context.Context, username, password string) (ok bool) {
	m.Initialize(ctx)

	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	m.state.IsLoading = true
	m.state.Error = ""
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.fail(ctx, username, ErrMsgLoginFailed, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	user, err := m.directory.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		m.fail(ctx, username, ErrMsgInvalidCredentials, err)
		return false
	}
	if err != nil {
		m.fail(ctx, username, ErrMsgLoginFailed, fmt.Errorf("directory lookup: %w", err))
		return false
	}

	data, err := m.codec.Encode(*user)
	if err != nil {
		m.fail(ctx, username, ErrMsgLoginFailed, fmt.Errorf("encode session: %w", err))
		return false
	}
	if err := m.store.Save(ctx, data); err != nil {
		m.fail(ctx, username, ErrMsgLoginFailed, fmt.Errorf("persist session: %w", err))
		return false
	}

	m.setState(State{User: user, IsAuthenticated: true})
	metrics.RecordLoginAttempt("success")
	m.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("login succeeded")
	m.publish(ctx, userEvent(events.TypeLoginSucceeded, user))
	return true
}

func (m *Manager) fail(ctx context.Context, username, message string, cause error) {
	m.setState(State{Error: message})

	outcome := "error"
	if message == ErrMsgInvalidCredentials {
		outcome = "invalid_credentials"
	}
	metrics.RecordLoginAttempt(outcome)
	m.logger.Warn().Err(cause).Str("username", username).Str("outcome", outcome).Msg("login failed")
	m.publish(ctx, events.NewEvent(events.TypeLoginFailed, eventSource, map[string]any{
		"username": username,
		"outcome":  outcome,
	}))
}

// Logout clears the persisted record and the session. A storage failure
// is logged; the in-memory session is reset regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.Initialize(ctx)

	m.opMu.Lock()
	defer m.opMu.Unlock()

	previous := m.CurrentUser()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear persisted session")
	}
	m.setState(State{})
	metrics.RecordLogout()

	if previous != nil {
		m.logger.Info().Str("username", previous.Username).Msg("logged out")
		m.publish(ctx, userEvent(events.TypeLogout, previous))
	} else {
		m.publish(ctx, events.NewEvent(events.TypeLogout, eventSource, nil))
	}
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.state
	s.User = s.User.clone()
	return s
}

// CurrentUser returns a copy of the session user, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User.clone()
}

// HasAnyRole reports whether the session user holds one of roles.
func (m *Manager) HasAnyRole(roles ...Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return HasAnyRole(m.state.User, roles...)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	metrics.SetAuthenticated(s.IsAuthenticated)
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		event = event.WithCorrelation(reqID)
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish session event")
	}
}

func userEvent(eventType string, user *User) events.Event {
	data := map[string]any{"username": user.Username}
	if user.DoctorID != nil {
		data["doctor_id"] = user.DoctorID.String()
	}
	return events.NewEvent(eventType, eventSource, data).WithActor(user.ID, string(user.Role))
}
