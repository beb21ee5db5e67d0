package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"

	"github.com/Freshwater0/Celestial-SphereX/internal/domain/entity"
	repo "github.com/Freshwater0/Celestial-SphereX/internal/domain/repository"
	"github.com/Freshwater0/Celestial-SphereX/pkg/helpers"
	"github.com/Freshwater0/Celestial-SphereX/pkg/validation"
)

// AvatarUploader stores an avatar object and returns its public URL.
type AvatarUploader func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)

// GCSAvatarUploader uploads into bucket with client.
func GCSAvatarUploader(client *storage.Client, bucket string) AvatarUploader {
	if client == nil || bucket == "" {
		return nil
	}
	return func(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
		return helpers.UploadObject(ctx, client, bucket, objectPath, contentType, r)
	}
}

// UserService serves profile reads and edits for authenticated users.
type UserService struct {
	Users    repo.UserRepository
	Upload   AvatarUploader
	Search   *UserSearch
	Notifier *Notifier
	Logger   *logrus.Logger
	now      func() time.Time
}

func NewUserService(users repo.UserRepository, upload AvatarUploader, search *UserSearch, notifier *Notifier, logger *logrus.Logger) *UserService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserService{Users: users, Upload: upload, Search: search, Notifier: notifier, Logger: logger, now: time.Now}
}

// Profile is the caller's own view of their account.
type Profile struct {
	UserSummary
	PhoneNumber string    `json:"phone_number"`
	Bio         string    `json:"bio"`
	Location    string    `json:"location"`
	AvatarURL   string    `json:"avatar_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToProfile(u *entity.User) Profile {
	return Profile{
		UserSummary: Summarize(u),
		PhoneNumber: u.PhoneNumber,
		Bio:         u.Bio,
		Location:    u.Location,
		AvatarURL:   u.AvatarURL,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStorage(err)
	}
	return u, nil
}

// UpdateProfileInput holds optional edits; nil fields are left alone.
type UpdateProfileInput struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
	Bio         *string `json:"bio" validate:"omitempty,max=1000"`
	Location    *string `json:"location" validate:"omitempty,max=120"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	if err := validation.Struct(in); err != nil {
		for field, msg := range validation.ToDetails(err) {
			return nil, invalid(field, field+" "+msg)
		}
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	changes := map[string]string{}
	apply := func(field string, src *string, dst *string) {
		if src == nil {
			return
		}
		v := strings.TrimSpace(*src)
		if v != *dst {
			*dst = v
			changes[field] = "updated"
		}
	}
	apply("first_name", in.FirstName, &u.FirstName)
	apply("last_name", in.LastName, &u.LastName)
	apply("phone_number", in.PhoneNumber, &u.PhoneNumber)
	apply("bio", in.Bio, &u.Bio)
	apply("location", in.Location, &u.Location)
	if len(changes) == 0 {
		return u, nil
	}

	if err := s.Users.UpdateProfile(ctx, u); err != nil {
		return nil, fromStorage(err)
	}
	s.Search.IndexUser(ctx, u)
	s.Notifier.SendProfileUpdated(ctx, u, changes, s.now())
	return u, nil
}

var allowedAvatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.Upload == nil {
		return "", ErrAvatarStorageDisabled
	}
	if !allowedAvatarTypes[contentType] {
		return "", invalid("avatar", "avatar must be a PNG, JPEG, WebP or GIF image")
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	url, err := s.Upload(ctx, helpers.AvatarObjectPath(userID, filename), contentType, r)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Error("avatar upload failed")
		return "", unavailable(err)
	}
	u.AvatarURL = url
	if err := s.Users.UpdateProfile(ctx, u); err != nil {
		return "", fromStorage(err)
	}
	s.Search.IndexUser(ctx, u)
	return url, nil
}

func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]SearchHit, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("q", "search query is required")
	}
	hits, err := s.Search.Search(ctx, q, size)
	if err != nil && !errors.Is(err, ErrUnavailable) {
		return nil, unavailable(err)
	}
	return hits, err
}
