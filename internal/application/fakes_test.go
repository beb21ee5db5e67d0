package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
	"github.com/Freshwater0/Celestial-SphereX/pkg/validation"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memDB is an in-memory storage collaborator with the same uniqueness and
// compare-and-set guarantees as the postgres schema.
type memDB struct {
	mu       sync.Mutex
	seq      int
	users    map[string]entity.User
	roles    map[string]entity.Role
	sessions map[string]entity.Session
	resets   map[string]entity.PasswordReset
	audits   []entity.AuditEntry
	clock    *fakeClock
}

func newMemDB(clock *fakeClock) *memDB {
	return &memDB{
		users:    map[string]entity.User{},
		roles:    map[string]entity.Role{},
		sessions: map[string]entity.Session{},
		resets:   map[string]entity.PasswordReset{},
		clock:    clock,
	}
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	users, roles, sessions, resets := clone(m.users), clone(m.roles), clone(m.sessions), clone(m.resets)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.users, m.roles, m.sessions, m.resets = users, roles, sessions, resets
		m.mu.Unlock()
		return err
	}
	return nil
}

func clone[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memDB) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memDB) auditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.audits))
	for _, a := range m.audits {
		out = append(out, a.Action)
	}
	return out
}

type userStore struct{ *memDB }

func (s userStore) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.users {
		if strings.EqualFold(ex.Username, u.Username) {
			return &repo.ConflictError{Field: "username"}
		}
		if strings.EqualFold(ex.Email, u.Email) {
			return &repo.ConflictError{Field: "email"}
		}
	}
	u.ID = s.nextID("user")
	u.CreatedAt = s.clock.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s userStore) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (s userStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s userStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s userStore) update(id string, fn func(u *entity.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = s.clock.Now()
	s.users[id] = u
	return nil
}

func (s userStore) MarkEmailVerified(_ context.Context, id string) error {
	return s.update(id, func(u *entity.User) { u.EmailVerified, u.IsActive = true, true })
}

func (s userStore) UpdatePassword(_ context.Context, id, hash string) error {
	return s.update(id, func(u *entity.User) { u.PasswordHash = hash })
}

func (s userStore) UpdateProfile(_ context.Context, in *entity.User) error {
	return s.update(in.ID, func(u *entity.User) {
		u.FirstName, u.LastName, u.PhoneNumber = in.FirstName, in.LastName, in.PhoneNumber
		u.Bio, u.Location, u.AvatarURL = in.Bio, in.Location, in.AvatarURL
	})
}

type roleStore struct{ *memDB }

func (s roleStore) GetDefault(_ context.Context) (*entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.IsDefault {
			return &r, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s roleStore) EnsureDefault(ctx context.Context, name string, perms int) (*entity.Role, error) {
	s.mu.Lock()
	hasDefault := false
	for _, r := range s.roles {
		hasDefault = hasDefault || r.IsDefault
	}
	if !hasDefault {
		id := s.nextID("role")
		s.roles[id] = entity.Role{ID: id, Name: name, Permissions: perms, IsDefault: true}
	}
	s.mu.Unlock()
	return s.GetDefault(ctx)
}

func (s roleStore) Upsert(_ context.Context, name string, perms int) (*entity.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.roles {
		if r.Name == name {
			r.Permissions = perms
			s.roles[id] = r
			return &r, nil
		}
	}
	r := entity.Role{ID: s.nextID("role"), Name: name, Permissions: perms}
	s.roles[r.ID] = r
	return &r, nil
}

type sessionStore struct{ *memDB }

func (s sessionStore) Create(_ context.Context, ss *entity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sessions[ss.ID]; dup {
		return &repo.ConflictError{Field: "session"}
	}
	s.sessions[ss.ID] = *ss
	return nil
}

func (s sessionStore) GetByID(_ context.Context, id string) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &ss, nil
}

func (s sessionStore) FindActiveByUser(_ context.Context, userID string, now time.Time) (*entity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *entity.Session
	for _, ss := range s.sessions {
		if ss.UserID == userID && ss.Valid(now) && (best == nil || ss.CreatedAt.After(best.CreatedAt)) {
			cp := ss
			best = &cp
		}
	}
	if best == nil {
		return nil, repo.ErrNotFound
	}
	return best, nil
}

func (s sessionStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ss, ok := s.sessions[id]; ok {
		ss.IsActive = false
		s.sessions[id] = ss
	}
	return nil
}

func (s sessionStore) DeactivateAllForUser(_ context.Context, userID, exceptID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, ss := range s.sessions {
		if ss.UserID == userID && ss.IsActive && id != exceptID {
			ss.IsActive = false
			s.sessions[id] = ss
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s sessionStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ss := range s.sessions {
		if ss.IsActive && !now.Before(ss.ExpiresAt) {
			ss.IsActive = false
			s.sessions[id] = ss
			n++
		}
	}
	return n, nil
}

type resetStore struct{ *memDB }

func (s resetStore) Create(_ context.Context, r *entity.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.resets[r.TokenHash]; dup {
		return &repo.ConflictError{Field: "token"}
	}
	r.ID = s.nextID("reset")
	s.resets[r.TokenHash] = *r
	return nil
}

func (s resetStore) Consume(_ context.Context, tokenHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resets[tokenHash]
	if !ok || r.Used || !r.ExpiresAt.After(now) {
		return "", repo.ErrNotFound
	}
	r.Used = true
	s.resets[tokenHash] = r
	return r.UserID, nil
}

func (s resetStore) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, r := range s.resets {
		if r.ExpiresAt.Before(cutoff) || r.Used {
			delete(s.resets, k)
			n++
		}
	}
	return n, nil
}

type auditStore struct{ *memDB }

func (s auditStore) Insert(_ context.Context, e *entity.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, *e)
	return nil
}

type sentMail struct {
	Subject string
	To      []string
	Text    string
	HTML    string
}

type fakeSender struct {
	mu    sync.Mutex
	mails []sentMail
	err   error
}

func (f *fakeSender) Send(_ context.Context, subject string, to []string, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.mails = append(f.mails, sentMail{Subject: subject, To: to, Text: text, HTML: html})
	return nil
}

func (f *fakeSender) sent() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.mails...)
}

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_\-.]+)`)

// lastToken returns the token linked from the newest mail whose subject contains subject.
func (f *fakeSender) lastToken(t *testing.T, subject string) string {
	t.Helper()
	mails := f.sent()
	for i := len(mails) - 1; i >= 0; i-- {
		if strings.Contains(mails[i].Subject, subject) {
			m := tokenParam.FindStringSubmatch(mails[i].Text)
			require.NotNil(t, m, "no token link in %q", mails[i].Text)
			return m[1]
		}
	}
	t.Fatalf("no mail with subject containing %q", subject)
	return ""
}

type harness struct {
	db       *memDB
	clock    *fakeClock
	sender   *fakeSender
	notifier *Notifier
	tokens   *helpers.JWTManager
	sessions *SessionManager
	ledger   *ResetLedger
	svc      *AuthService
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:          "SphereX",
		MailSendEnabled:  true,
		VerifyEmailURL:   "https://app.example/verify-email",
		ResetPasswordURL: "https://app.example/reset-password",
	}
}

func testSettings() Settings {
	return Settings{
		VerifyTokenTTL:                 48 * time.Hour,
		ResetTokenTTL:                  10 * time.Minute,
		ResetLedgerTTL:                 time.Hour,
		SessionTTL:                     24 * time.Hour,
		RevokeSessionsOnPasswordChange: true,
	}
}

func newHarness(t *testing.T, tweak ...func(*AuthDeps)) *harness {
	t.Helper()
	clock := newClock()
	db := newMemDB(clock)
	sender := &fakeSender{}
	h := &harness{
		db:       db,
		clock:    clock,
		sender:   sender,
		notifier: NewNotifier(sender, testConfig(), nil, nil),
		tokens:   helpers.NewJWTManager("access-secret", "signing-secret").WithClock(clock.Now),
		sessions: NewSessionManager(sessionStore{db}, nil, nil).WithClock(clock.Now),
		ledger:   NewResetLedger(resetStore{db}).WithClock(clock.Now),
	}
	_, err := roleStore{db}.EnsureDefault(context.Background(), DefaultRoleName, entity.PermRead)
	require.NoError(t, err)

	deps := AuthDeps{
		Users:       userStore{db},
		Roles:       roleStore{db},
		Audit:       auditStore{db},
		Tx:          db,
		Credentials: helpers.NewCredentialStore(bcrypt.MinCost),
		Tokens:      h.tokens,
		Sessions:    h.sessions,
		Ledger:      h.ledger,
		Limiter:     ratelimit.NewLimiter(ratelimit.NewMemoryCounter().WithClock(clock.Now), ratelimit.DefaultRules(), nil),
		Notifier:    h.notifier,
		Policy:      validation.DefaultPasswordPolicy(),
		Settings:    testSettings(),
		Now:         clock.Now,
	}
	for _, fn := range tweak {
		fn(&deps)
	}
	h.svc = NewAuthService(deps)
	t.Cleanup(h.notifier.Wait)
	return h
}

var alice = RegisterInput{
	Username:  "alice",
	Email:     "alice@x.com",
	Password:  "Str0ng!pass",
	FirstName: "A",
	LastName:  "B",
}

var client = ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent"}

// registerVerified registers in and activates it through the emailed link.
func (h *harness) registerVerified(t *testing.T, in RegisterInput) UserSummary {
	t.Helper()
	ctx := context.Background()
	u, err := h.svc.Register(ctx, in, ClientInfo{IP: "198.51.100." + in.Username})
	require.NoError(t, err)
	h.notifier.Wait()
	require.NoError(t, h.svc.VerifyEmail(ctx, h.sender.lastToken(t, "verify")))
	return u
}
