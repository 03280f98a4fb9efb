package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/social-security/patient-office/internal/shared/events"
	"github.com/social-security/patient-office/internal/shared/types"
)

// --- Test doubles ---

type failingStore struct {
	MemoryStore
	loadErr  error
	saveErr  error
	clearErr error
}

func (s *failingStore) Load(ctx context.Context) ([]byte, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.MemoryStore.Load(ctx)
}

func (s *failingStore) Save(ctx context.Context, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, data)
}

func (s *failingStore) Clear(ctx context.Context) error {
	if s.clearErr != nil {
		return s.clearErr
	}
	return s.MemoryStore.Clear(ctx)
}

type brokenDirectory struct {
	panics bool
}

func (d brokenDirectory) FindByUsername(ctx context.Context, username string) (*User, error) {
	if d.panics {
		panic("directory exploded")
	}
	return nil, errors.New("directory unavailable")
}

func (d brokenDirectory) Users(ctx context.Context) ([]User, error) {
	return nil, errors.New("directory unavailable")
}

type recordingPublisher struct {
	mu     sync.Mutex
	types  []string
	events []events.Event
	failed bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, event.Type)
	p.events = append(p.events, event)
	if p.failed {
		return errors.New("bus down")
	}
	return nil
}

func newTestManager(store Store, opts ...Option) *Manager {
	return NewManager(NewDemoDirectory(), store, opts...)
}

func assertUnauthenticated(t *testing.T, s State, wantErr string) {
	t.Helper()
	if s.User != nil {
		t.Errorf("Expected no user, got %+v", s.User)
	}
	if s.IsAuthenticated {
		t.Error("Expected IsAuthenticated=false")
	}
	if s.IsLoading {
		t.Error("Expected IsLoading=false")
	}
	if s.Error != wantErr {
		t.Errorf("Expected error %q, got %q", wantErr, s.Error)
	}
}

// --- Role Tests ---

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"ADMIN", RoleAdmin, false},
		{"DOCTOR", RoleDoctor, false},
		{"SOCIAL_SECURITY_AGENT", RoleSocialSecurityAgent, false},
		{"doctor", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	doctor := &User{ID: "u2", Username: "doctor1", Role: RoleDoctor}

	tests := []struct {
		name     string
		user     *User
		required []Role
		expected bool
	}{
		{"nil user", nil, []Role{RoleAdmin}, false},
		{"matching role", doctor, []Role{RoleAdmin, RoleDoctor}, true},
		{"no matching role", doctor, []Role{RoleAdmin}, false},
		{"empty requirement", doctor, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasAnyRole(tt.user, tt.required...); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role     Role
		perm     Permission
		expected bool
	}{
		{RoleAdmin, PermSessionAudit, true},
		{RoleAdmin, PermDoctorWrite, true},
		{RoleDoctor, PermConsultationWrite, true},
		{RoleDoctor, PermReimbursementDecide, false},
		{RoleDoctor, PermDoctorWrite, false},
		{RoleSocialSecurityAgent, PermReimbursementDecide, true},
		{RoleSocialSecurityAgent, PermPrescriptionWrite, false},
		{RoleSocialSecurityAgent, PermPatientWrite, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	for _, r := range AllRoles {
		for _, p := range readPermissions {
			if !HasPermission(r, p) {
				t.Errorf("Expected %s to hold %s", r, p)
			}
		}
	}
}

func TestRolesWith(t *testing.T) {
	got := RolesWith(PermReimbursementDecide)
	if len(got) != 2 || got[0] != RoleAdmin || got[1] != RoleSocialSecurityAgent {
		t.Errorf("Expected [ADMIN SOCIAL_SECURITY_AGENT], got %v", got)
	}
}

// --- User & Directory Tests ---

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"valid", User{ID: "u1", Username: "admin", Role: RoleAdmin}, false},
		{"valid doctor link", User{ID: "u2", Username: "doctor1", Role: RoleDoctor, DoctorID: types.ID("d1").Ptr()}, false},
		{"missing id", User{Username: "admin", Role: RoleAdmin}, true},
		{"missing username", User{ID: "u1", Role: RoleAdmin}, true},
		{"unknown role", User{ID: "u1", Username: "x", Role: "ROOT"}, true},
		{"doctor link on agent", User{ID: "u3", Username: "agent1", Role: RoleSocialSecurityAgent, DoctorID: types.ID("d1").Ptr()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.user.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStaticDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewDemoDirectory()

	u, err := dir.FindByUsername(ctx, "doctor2")
	if err != nil {
		t.Fatalf("FindByUsername failed: %v", err)
	}
	if u.DoctorID == nil || *u.DoctorID != "d3" {
		t.Errorf("Expected doctor2 linked to d3, got %v", u.DoctorID)
	}

	// Lookups are exact.
	if _, err := dir.FindByUsername(ctx, "Doctor2"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	// Returned users are copies.
	u.Username = "mutated"
	again, _ := dir.FindByUsername(ctx, "doctor2")
	if again.Username != "doctor2" {
		t.Error("Directory entry was mutated through a returned user")
	}

	users, _ := dir.Users(ctx)
	if len(users) != 4 {
		t.Errorf("Expected 4 users, got %d", len(users))
	}
}

func TestNewStaticDirectoryRejectsDuplicates(t *testing.T) {
	_, err := NewStaticDirectory([]User{
		{ID: "u1", Username: "admin", Role: RoleAdmin},
		{ID: "u2", Username: "admin", Role: RoleAdmin},
	})
	if err == nil {
		t.Error("Expected duplicate username to be rejected")
	}
}

// --- Store Tests ---

func TestStores(t *testing.T) {
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state"), "currentUser")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	stores := map[string]Store{
		"memory":       NewMemoryStore(),
		"file":         fileStore,
		"instrumented": Instrument(NewMemoryStore(), "memory"),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
				t.Errorf("Expected ErrNoRecord on empty store, got %v", err)
			}

			if err := store.Save(ctx, []byte("first")); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if err := store.Save(ctx, []byte("second")); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if string(got) != "second" {
				t.Errorf("Expected 'second', got '%s'", got)
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Errorf("Second Clear should be a no-op, got %v", err)
			}
			if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
				t.Errorf("Expected ErrNoRecord after Clear, got %v", err)
			}
			if err := StoreHealth(ctx, store); err != nil {
				t.Errorf("Expected healthy store, got %v", err)
			}
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFileStore(dir, "currentUser")

	if err := store.Save(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "currentUser.json" {
		t.Errorf("Expected only currentUser.json, got %v", entries)
	}

	info, _ := os.Stat(store.Path())
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestNewFileStoreRejectsPathKeys(t *testing.T) {
	for _, key := range []string{"", "../escape", "a/b"} {
		if _, err := NewFileStore(t.TempDir(), key); err == nil {
			t.Errorf("Expected key %q to be rejected", key)
		}
	}
}

// --- Codec Tests ---

func TestCodecsRoundTrip(t *testing.T) {
	jwtCodec, err := NewJWTCodec("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	user := DemoUsers()[1]

	for name, codec := range map[string]Codec{"json": JSONCodec{}, "jwt": jwtCodec} {
		t.Run(name, func(t *testing.T) {
			data, err := codec.Encode(user)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got.ID != user.ID || got.Username != user.Username || got.Role != user.Role {
				t.Errorf("Expected %+v, got %+v", user, got)
			}
			if got.DoctorID == nil || *got.DoctorID != *user.DoctorID {
				t.Errorf("Expected doctor link %v, got %v", *user.DoctorID, got.DoctorID)
			}
		})
	}
}

func TestCodecsRejectMalformed(t *testing.T) {
	other, _ := NewJWTCodec("other-secret")
	forged, _ := other.Encode(DemoUsers()[0])
	jwtCodec, _ := NewJWTCodec("test-secret")

	tests := []struct {
		name  string
		codec Codec
		data  string
	}{
		{"json garbage", JSONCodec{}, "{not json"},
		{"json null", JSONCodec{}, "null"},
		{"json empty object", JSONCodec{}, "{}"},
		{"json unknown role", JSONCodec{}, `{"id":"u9","username":"x","role":"ROOT"}`},
		{"jwt garbage", jwtCodec, "not-a-token"},
		{"jwt wrong secret", jwtCodec, string(forged)},
		{"jwt given plain json", jwtCodec, `{"id":"u1","username":"admin","role":"ADMIN"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.codec.Decode([]byte(tt.data))
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("Expected ErrMalformedRecord, got %v", err)
			}
		})
	}
}

func TestNewJWTCodecRequiresSecret(t *testing.T) {
	if _, err := NewJWTCodec(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}

// --- Manager Tests ---

func TestNewManagerIsPending(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	s := m.State()
	if !s.IsLoading || s.IsAuthenticated || s.User != nil || s.Error != "" {
		t.Errorf("Expected pending state, got %+v", s)
	}
}

func TestInitializeWithoutRecord(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	m.Initialize(context.Background())
	assertUnauthenticated(t, m.State(), "")

	select {
	case <-m.Ready():
	default:
		t.Error("Expected Ready to be closed after Initialize")
	}
}

func TestInitializeWithValidRecord(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data, _ := JSONCodec{}.Encode(DemoUsers()[2])
	store.Save(ctx, data)

	pub := &recordingPublisher{}
	m := newTestManager(store, WithPublisher(pub))
	m.Initialize(ctx)

	s := m.State()
	if !s.IsAuthenticated || s.IsLoading || s.Error != "" {
		t.Errorf("Expected authenticated state, got %+v", s)
	}
	if s.User == nil || s.User.Username != "agent1" {
		t.Errorf("Expected agent1, got %+v", s.User)
	}
	if len(pub.types) != 1 || pub.types[0] != events.TypeRestored {
		t.Errorf("Expected one %s event, got %v", events.TypeRestored, pub.types)
	}
}

func TestInitializeWithCorruptedRecord(t *testing.T) {
	records := []string{"{garbage", "null", `{"id":"u1"}`, `"just a string"`}

	for _, record := range records {
		t.Run(record, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryStore()
			store.Save(ctx, []byte(record))

			m := newTestManager(store)
			m.Initialize(ctx)

			assertUnauthenticated(t, m.State(), "")
			if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
				t.Errorf("Expected corrupted record to be removed, got %v", err)
			}
		})
	}
}

func TestInitializeTreatsReadFailureAsAbsent(t *testing.T) {
	m := newTestManager(&failingStore{loadErr: errors.New("disk on fire")})
	m.Initialize(context.Background())
	assertUnauthenticated(t, m.State(), "")
}

func TestInitializeRunsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)
	m.Initialize(ctx)

	data, _ := JSONCodec{}.Encode(DemoUsers()[0])
	store.Save(ctx, data)
	m.Initialize(ctx)

	if m.State().IsAuthenticated {
		t.Error("Second Initialize should not re-read the store")
	}
}

func TestLoginKnownUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)
	m.Initialize(ctx)

	if !m.Login(ctx, "agent1", "anything") {
		t.Fatal("Expected login to succeed")
	}

	s := m.State()
	if !s.IsAuthenticated || s.IsLoading || s.Error != "" {
		t.Errorf("Expected authenticated state, got %+v", s)
	}
	if s.User == nil || s.User.Username != "agent1" {
		t.Fatalf("Expected agent1, got %+v", s.User)
	}

	data, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Expected persisted record, got %v", err)
	}
	persisted, err := JSONCodec{}.Decode(data)
	if err != nil {
		t.Fatalf("Persisted record is malformed: %v", err)
	}
	if persisted.Username != "agent1" {
		t.Errorf("Expected persisted agent1, got %s", persisted.Username)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	previous, _ := JSONCodec{}.Encode(DemoUsers()[1])
	store.Save(ctx, previous)
	m := newTestManager(store)
	m.Initialize(ctx)

	if m.Login(ctx, "nosuchuser", "secret") {
		t.Fatal("Expected login to fail")
	}
	assertUnauthenticated(t, m.State(), ErrMsgInvalidCredentials)

	data, _ := store.Load(ctx)
	if string(data) != string(previous) {
		t.Errorf("Expected store unchanged, got '%s'", data)
	}
}

func TestLoginBeforeInitializeRestoresFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data, _ := JSONCodec{}.Encode(DemoUsers()[0])
	store.Save(ctx, data)
	m := newTestManager(store)

	if m.Login(ctx, "nosuchuser", "pw") {
		t.Fatal("Expected login to fail")
	}

	select {
	case <-m.Ready():
	default:
		t.Fatal("Expected Login to complete the restore")
	}
	assertUnauthenticated(t, m.State(), ErrMsgInvalidCredentials)

	// A later Initialize must not bring the restored user back.
	m.Initialize(ctx)
	assertUnauthenticated(t, m.State(), ErrMsgInvalidCredentials)
}

func TestLogoutBeforeInitializeRestoresFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data, _ := JSONCodec{}.Encode(DemoUsers()[2])
	store.Save(ctx, data)
	m := newTestManager(store)

	m.Logout(ctx)
	m.Initialize(ctx)

	assertUnauthenticated(t, m.State(), "")
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected record cleared, got %v", err)
	}
}

func TestConcurrentLoginDuringRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	data, _ := JSONCodec{}.Encode(DemoUsers()[0])
	store.Save(ctx, data)
	m := newTestManager(store)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Initialize(ctx)
	}()
	go func() {
		defer wg.Done()
		m.Login(ctx, "agent1", "pw")
	}()
	wg.Wait()

	s := m.State()
	if !s.IsAuthenticated || s.User == nil || s.User.Username != "agent1" {
		t.Errorf("Expected the login to win over the restore, got %+v", s)
	}
}

func TestSessionEventsCarryRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	pub := &recordingPublisher{}
	m := newTestManager(NewMemoryStore(), WithPublisher(pub))
	m.Initialize(context.Background())

	m.Login(ctx, "admin", "pw")
	m.Logout(context.Background())

	if len(pub.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(pub.events))
	}
	if got := pub.events[0].CorrelationID; got != "req-42" {
		t.Errorf("Expected correlation id 'req-42', got '%s'", got)
	}
	if got := pub.events[1].CorrelationID; got != "" {
		t.Errorf("Expected no correlation id without a request, got '%s'", got)
	}
}

func TestLoginUnexpectedFailures(t *testing.T) {
	tests := []struct {
		name      string
		directory Directory
		store     Store
	}{
		{"directory error", brokenDirectory{}, NewMemoryStore()},
		{"directory panic", brokenDirectory{panics: true}, NewMemoryStore()},
		{"store write error", NewDemoDirectory(), &failingStore{saveErr: errors.New("read-only")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(tt.directory, tt.store)
			if m.Login(context.Background(), "admin", "pw") {
				t.Fatal("Expected login to fail")
			}
			assertUnauthenticated(t, m.State(), ErrMsgLoginFailed)
		})
	}
}

func TestLoginClearsPreviousError(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())
	m.Login(ctx, "nosuchuser", "pw")
	m.Login(ctx, "admin", "pw")

	if s := m.State(); s.Error != "" || !s.IsAuthenticated {
		t.Errorf("Expected clean authenticated state, got %+v", s)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)
	m.Initialize(ctx)
	m.Login(ctx, "doctor1", "pw")

	m.Logout(ctx)

	assertUnauthenticated(t, m.State(), "")
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected no persisted record after logout, got %v", err)
	}
}

func TestLogoutResetsStateWhenClearFails(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&failingStore{clearErr: errors.New("locked")})
	m.Login(ctx, "admin", "pw")
	m.Logout(ctx)
	assertUnauthenticated(t, m.State(), "")
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	codec, _ := NewJWTCodec("restart-secret")

	first, _ := NewFileStore(dir, "currentUser")
	m1 := newTestManager(first, WithCodec(codec))
	m1.Initialize(ctx)
	if !m1.Login(ctx, "doctor2", "pw") {
		t.Fatal("Expected login to succeed")
	}
	want := m1.State()

	second, _ := NewFileStore(dir, "currentUser")
	m2 := newTestManager(second, WithCodec(codec))
	m2.Initialize(ctx)
	got := m2.State()

	if got.IsAuthenticated != want.IsAuthenticated || got.IsLoading || got.Error != want.Error {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got.User == nil || *got.User.DoctorID != *want.User.DoctorID || got.User.ID != want.User.ID {
		t.Errorf("Expected user %+v, got %+v", want.User, got.User)
	}
}

func TestStateReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())
	m.Login(ctx, "doctor1", "pw")

	s := m.State()
	s.User.Username = "tampered"
	*s.User.DoctorID = "d9"

	cur := m.CurrentUser()
	if cur.Username != "doctor1" || *cur.DoctorID != "d1" {
		t.Errorf("Session user was mutated through State(): %+v", cur)
	}
}

func TestManagerHasAnyRole(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	if m.HasAnyRole(RoleAdmin) {
		t.Error("Expected false without a session")
	}
	m.Login(ctx, "agent1", "pw")
	if !m.HasAnyRole(RoleAdmin, RoleSocialSecurityAgent) {
		t.Error("Expected agent1 to match SOCIAL_SECURITY_AGENT")
	}
	if m.HasAnyRole(RoleDoctor) {
		t.Error("Expected agent1 not to match DOCTOR")
	}
}

func TestConcurrentLoginsLeaveConsistentState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)
	m.Initialize(ctx)

	var wg sync.WaitGroup
	for _, name := range []string{"admin", "doctor1", "agent1", "nosuchuser", "doctor2"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.Login(ctx, name, "pw")
		}(name)
	}
	wg.Wait()

	s := m.State()
	if s.IsLoading {
		t.Error("Expected no login in flight")
	}
	if s.IsAuthenticated != (s.User != nil) {
		t.Errorf("Inconsistent state: %+v", s)
	}
	if s.IsAuthenticated && s.Error != "" {
		t.Errorf("Authenticated state carries an error: %+v", s)
	}
}

func TestPublisherFailureDoesNotAffectLogin(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{failed: true}
	m := newTestManager(NewMemoryStore(), WithPublisher(pub))

	if !m.Login(ctx, "admin", "pw") {
		t.Fatal("Expected login to succeed despite publisher failure")
	}
	m.Login(ctx, "ghost", "pw")
	m.Logout(ctx)

	want := []string{events.TypeLoginSucceeded, events.TypeLoginFailed, events.TypeLogout}
	if len(pub.types) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, pub.types)
	}
	for i := range want {
		if pub.types[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], pub.types[i])
		}
	}
}
