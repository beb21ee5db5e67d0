package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/config"
	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/ratelimit"
	"github.com/Freshwater0/Celestial-SphereX/pkg/validation"
)

// DefaultRoleName is the role created when no default role exists yet.
const DefaultRoleName = "user"

// RateGate admits or rejects one request of an action class.
type RateGate interface {
	Allow(ctx context.Context, key ratelimit.Key) bool
}

// UserIndexer mirrors users into the search index. Failures are its own concern.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User)
}

// ClientInfo identifies the caller for admission control and session metadata.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Principal is an authenticated caller.
type Principal struct {
	UserID    string
	SessionID string
}

type Settings struct {
	VerifyTokenTTL                 time.Duration
	ResetTokenTTL                  time.Duration
	ResetLedgerTTL                 time.Duration
	SessionTTL                     time.Duration
	SingleSession                  bool
	RevokeSessionsOnPasswordChange bool
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		VerifyTokenTTL:                 cfg.VerifyTokenTTL,
		ResetTokenTTL:                  cfg.ResetTokenTTL,
		ResetLedgerTTL:                 cfg.ResetLedgerTTL,
		SessionTTL:                     cfg.SessionTTL,
		SingleSession:                  cfg.SingleSession(),
		RevokeSessionsOnPasswordChange: cfg.RevokeSessionsOnPasswordChange,
	}
}

// AuthDeps are the collaborators of AuthService. Limiter, Notifier, Index and
// Audit may be nil.
type AuthDeps struct {
	Users       repo.UserRepository
	Roles       repo.RoleRepository
	Audit       repo.AuditRepository
	Tx          repo.Transactor
	Credentials *helpers.CredentialStore
	Tokens      *helpers.JWTManager
	Sessions    *SessionManager
	Ledger      *ResetLedger
	Limiter     RateGate
	Notifier    *Notifier
	Index       UserIndexer
	Policy      validation.PasswordPolicy
	Settings    Settings
	Logger      *logrus.Logger
	Now         func() time.Time
}

// AuthService runs the credential and session flows.
type AuthService struct {
	users    repo.UserRepository
	roles    repo.RoleRepository
	audits   repo.AuditRepository
	tx       repo.Transactor
	creds    *helpers.CredentialStore
	tokens   *helpers.JWTManager
	sessions *SessionManager
	ledger   *ResetLedger
	limiter  RateGate
	notifier *Notifier
	index    UserIndexer
	policy   validation.PasswordPolicy
	settings Settings
	logger   *logrus.Logger
	now      func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Policy == (validation.PasswordPolicy{}) {
		d.Policy = validation.DefaultPasswordPolicy()
	}
	return &AuthService{
		users:    d.Users,
		roles:    d.Roles,
		audits:   d.Audit,
		tx:       d.Tx,
		creds:    d.Credentials,
		tokens:   d.Tokens,
		sessions: d.Sessions,
		ledger:   d.Ledger,
		limiter:  d.Limiter,
		notifier: d.Notifier,
		index:    d.Index,
		policy:   d.Policy,
		settings: d.Settings,
		logger:   d.Logger,
		now:      d.Now,
	}
}

// UserSummary is the sanitized view of a user returned to callers.
type UserSummary struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
}

func Summarize(u *entity.User) UserSummary {
	return UserSummary{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
	}
}

type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,max=32"`
	Bio         string `json:"bio" validate:"omitempty,max=1000"`
	Location    string `json:"location" validate:"omitempty,max=120"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	SessionID string      `json:"session_id"`
	User      UserSummary `json:"user"`
}

// Register creates an inactive account and sends the verification link.
// Email failures never undo the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (_ UserSummary, err error) {
	defer func() { observe("register", err) }()

	if err := s.admit(ctx, ratelimit.ActionRegister, client); err != nil {
		return UserSummary{}, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.checkRegistration(in); err != nil {
		return UserSummary{}, err
	}

	taken, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return UserSummary{}, unavailable(err)
	}
	if taken {
		return UserSummary{}, &ConflictError{Field: "username"}
	}
	taken, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return UserSummary{}, unavailable(err)
	}
	if taken {
		return UserSummary{}, &ConflictError{Field: "email"}
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return UserSummary{}, err
	}
	hash, err := s.creds.SetSecret(in.Password)
	if err != nil {
		return UserSummary{}, unavailable(err)
	}

	u := &entity.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Bio:          in.Bio,
		Location:     strings.TrimSpace(in.Location),
		RoleID:       role.ID,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// a concurrent registration can still lose at the unique index
		return UserSummary{}, fromStorage(err)
	}
	s.logger.WithField("user_id", u.ID).Info("user registered")

	s.sendVerification(ctx, u)
	s.audit(ctx, "register", u.ID, u.Email, client, nil)
	return Summarize(u), nil
}

func (s *AuthService) checkRegistration(in RegisterInput) error {
	verr := validation.Struct(in)
	if missing := validation.MissingFields(verr); len(missing) > 0 {
		return invalid(missing[0], "Missing required fields: "+strings.Join(missing, ", "))
	}
	if ok, reason := s.policy.Validate(in.Password); !ok {
		return invalid("password", reason)
	}
	if verr == nil {
		return nil
	}
	details := validation.ToDetails(verr)
	if _, bad := details["email"]; bad {
		return invalid("email", "Invalid email format")
	}
	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return invalid(fields[0], fields[0]+" "+details[fields[0]])
}

// BootstrapDefaultRole makes sure a default role exists. The server calls it
// at startup.
func BootstrapDefaultRole(ctx context.Context, roles repo.RoleRepository) (*entity.Role, error) {
	return roles.EnsureDefault(ctx, DefaultRoleName, entity.PermRead)
}

// defaultRole reads the bootstrapped default role and creates it only when
// bootstrap never ran. EnsureDefault is idempotent under concurrent callers.
func (s *AuthService) defaultRole(ctx context.Context) (*entity.Role, error) {
	role, err := s.roles.GetDefault(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		s.logger.Warn("no default role, creating it")
		role, err = BootstrapDefaultRole(ctx, s.roles)
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return role, nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *entity.User) {
	token, exp, err := s.tokens.Issue(helpers.PurposeEmailVerify, u.ID, s.settings.VerifyTokenTTL)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("issue verification token failed")
		return
	}
	s.notifier.SendVerification(ctx, u, token, exp)
}

// Login checks credentials and opens a session. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (_ *LoginResult, err error) {
	defer func() { observe("login", err) }()

	if err := s.admit(ctx, ratelimit.ActionLogin, client); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("credentials", "Email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.creds.VerifyDummy(password)
		s.audit(ctx, "login_failed", "", email, client, nil)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if !s.creds.VerifySecret(password, u.PasswordHash) {
		s.audit(ctx, "login_failed", u.ID, u.Email, client, nil)
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrEmailNotVerified
	}

	if s.settings.SingleSession {
		if _, err := s.sessions.InvalidateAll(ctx, u.ID, ""); err != nil {
			return nil, err
		}
	}
	sess, err := s.sessions.Create(ctx, u.ID, client.IP, client.UserAgent, s.settings.SessionTTL)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.GenerateAccessToken(u.ID, sess.ID, sess.ExpiresAt)
	if err != nil {
		_ = s.sessions.Invalidate(ctx, sess)
		return nil, unavailable(err)
	}

	s.audit(ctx, "login", u.ID, u.Email, client, map[string]any{"session_id": sess.ID})
	return &LoginResult{Token: token, ExpiresAt: sess.ExpiresAt, SessionID: sess.ID, User: Summarize(u)}, nil
}

// VerifyEmail activates the account named by a verification token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (err error) {
	defer func() { observe("verify_email", err) }()

	uid, err := s.tokens.Verify(helpers.PurposeEmailVerify, strings.TrimSpace(token))
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.users.MarkEmailVerified(ctx, uid); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidToken
		}
		return unavailable(err)
	}
	s.audit(ctx, "verify_email", uid, "", ClientInfo{}, nil)
	if u, err := s.users.GetByID(ctx, uid); err == nil {
		s.reindex(ctx, u)
	}
	return nil
}

// ForgotPassword always succeeds once admitted; whether the email belongs to
// an account is never revealed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, client ClientInfo) (err error) {
	defer func() { observe("forgot_password", err) }()

	if err := s.admit(ctx, ratelimit.ActionForgotPassword, client); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Email is required")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logger.WithError(err).Warn("forgot password lookup failed")
		}
		return nil
	}
	token, exp, err := s.tokens.Issue(helpers.PurposeResetPassword, u.ID, s.settings.ResetTokenTTL)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("issue reset token failed")
		return nil
	}
	if _, err := s.ledger.Open(ctx, u.ID, token, s.settings.ResetLedgerTTL); err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Error("open reset grant failed")
		return nil
	}
	s.notifier.SendPasswordReset(ctx, u, token, exp, client)
	s.audit(ctx, "forgot_password", u.ID, u.Email, client, nil)
	return nil
}

// ResetPassword sets a new password from a reset token. The token signature
// and the ledger grant must both accept it, and the grant is spent in the
// same transaction that stores the new hash.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, client ClientInfo) (err error) {
	defer func() { observe("reset_password", err) }()

	if err := s.admit(ctx, ratelimit.ActionResetPassword, client); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return invalid("token", "Token and new password are required")
	}
	uid, err := s.tokens.Verify(helpers.PurposeResetPassword, token)
	if err != nil {
		return ErrInvalidToken
	}

	var u *entity.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		owner, err := s.ledger.Consume(ctx, token)
		if err != nil {
			return err
		}
		if owner != uid {
			return ErrInvalidToken
		}
		if ok, reason := s.policy.Validate(newPassword); !ok {
			return invalid("new_password", reason)
		}
		if u, err = s.storePassword(ctx, uid, newPassword); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if s.settings.RevokeSessionsOnPasswordChange {
			if _, err := s.sessions.InvalidateAll(ctx, uid, ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.SendPasswordChanged(ctx, u, s.now(), client)
	s.audit(ctx, "reset_password", u.ID, u.Email, client, nil)
	return nil
}

// ChangePassword replaces the caller's password. The caller's own session survives.
func (s *AuthService) ChangePassword(ctx context.Context, p Principal, current, newPassword string, client ClientInfo) (err error) {
	defer func() { observe("change_password", err) }()

	if err := s.admit(ctx, ratelimit.ActionChangePassword, client); err != nil {
		return err
	}
	if current == "" || newPassword == "" {
		return invalid("new_password", "Current and new password are required")
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrSessionInvalid
	}
	if err != nil {
		return unavailable(err)
	}
	if !s.creds.VerifySecret(current, u.PasswordHash) {
		s.audit(ctx, "change_password_failed", u.ID, u.Email, client, nil)
		return ErrCurrentPasswordIncorrect
	}
	if ok, reason := s.policy.Validate(newPassword); !ok {
		return invalid("new_password", reason)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if u, err = s.storePassword(ctx, p.UserID, newPassword); err != nil {
			return err
		}
		if s.settings.RevokeSessionsOnPasswordChange {
			if _, err := s.sessions.InvalidateAll(ctx, p.UserID, p.SessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.SendPasswordChanged(ctx, u, s.now(), client)
	s.audit(ctx, "change_password", u.ID, u.Email, client, nil)
	return nil
}

func (s *AuthService) storePassword(ctx context.Context, userID, plain string) (*entity.User, error) {
	hash, err := s.creds.SetSecret(plain)
	if err != nil {
		return nil, unavailable(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return nil, fromStorage(err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStorage(err)
	}
	return u, nil
}

// Logout ends the caller's session. Without a session id the user's newest
// active session is ended. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, p Principal, client ClientInfo) (err error) {
	defer func() { observe("logout", err) }()

	var sess *entity.Session
	if p.SessionID != "" {
		sess = &entity.Session{ID: p.SessionID, UserID: p.UserID, IsActive: true}
	} else if sess, err = s.sessions.FindActive(ctx, p.UserID); err != nil {
		return err
	}
	if err := s.sessions.Invalidate(ctx, sess); err != nil {
		return err
	}
	if sess != nil {
		s.audit(ctx, "logout", p.UserID, "", client, map[string]any{"session_id": sess.ID})
	}
	return nil
}

// Authenticate resolves a login bearer to its principal. The bearer only
// counts while its session is active and unexpired.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (Principal, error) {
	claims, err := s.tokens.ParseAccessToken(strings.TrimSpace(bearer))
	if err != nil {
		return Principal{}, ErrSessionInvalid
	}
	if _, err := s.sessions.Resolve(ctx, claims.SessionID, claims.UserID); err != nil {
		return Principal{}, err
	}
	return Principal{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

func (s *AuthService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, fromStorage(err)
	}
	return u.IsAdmin, nil
}

func (s *AuthService) admit(ctx context.Context, action ratelimit.Action, client ClientInfo) error {
	if s.limiter == nil || s.limiter.Allow(ctx, ratelimit.Key{Client: client.IP, Action: action}) {
		return nil
	}
	rateLimitedTotal.WithLabelValues(string(action)).Inc()
	return ErrRateLimited
}

func (s *AuthService) audit(ctx context.Context, action, userID, email string, client ClientInfo, meta map[string]any) {
	if s.audits == nil {
		return
	}
	e := &entity.AuditEntry{
		UserID:    userID,
		Email:     email,
		Action:    action,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Metadata:  meta,
		CreatedAt: s.now().UTC(),
	}
	if err := s.audits.Insert(ctx, e); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit write failed")
	}
}

func (s *AuthService) reindex(ctx context.Context, u *entity.User) {
	if s.index != nil {
		s.index.IndexUser(ctx, u)
	}
}
