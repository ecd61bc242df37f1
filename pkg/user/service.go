package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"calendarium/pkg/password"
	"calendarium/pkg/validation"
)

type ServiceInterface interface {
	Register(ctx context.Context, in validation.RegisterInput) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
}

type Service struct {
	Repo   Repository
	Hasher password.Hasher
	Now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(repo Repository, hasher password.Hasher) *Service {
	return &Service{Repo: repo, Hasher: hasher, Now: time.Now}
}

// Register expects an already validated and normalized form.
func (s *Service) Register(ctx context.Context, in validation.RegisterInput) (*User, error) {
	exist, err := s.Repo.FindByEmail(ctx, in.Email)
	if exist != nil && err == nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hashedPassword, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password error: %w", err)
	}

	user := &User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Surname:   in.Surname,
		Email:     in.Email,
		Password:  hashedPassword,
		Role:      RoleUser,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login returns ErrInvalidCredentials for an unknown email and for a wrong
// password alike.
func (s *Service) Login(ctx context.Context, email, plain string) (*User, error) {
	user, err := s.Repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		// keep the response time close to a real password check
		s.Hasher.Verify(plain, s.dummy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.Hasher.Verify(plain, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
