package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/cosmiccreator/internal/domain"
)

const maxCreatorNameLen = 64

// CreatorRepository is implemented by repository.Queries.
type CreatorRepository interface {
	GetCreatorByUsername(ctx context.Context, username string) (*domain.Creator, error)
	CreateCreator(ctx context.Context, username string) (*domain.Creator, bool, error)
	TouchCreator(ctx context.Context, id int64) error
	SetCreatorStripeCustomer(ctx context.Context, id int64, customerID string) error
}

type CreatorService struct {
	repo     CreatorRepository
	notifier Notifier
}

func NewCreatorService(repo CreatorRepository, notifier Notifier) *CreatorService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CreatorService{repo: repo, notifier: notifier}
}

// NormalizeCreatorName trims the name and rejects names that cannot be used
// as a storage path segment.
func NormalizeCreatorName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCreatorNameLen {
		return "", domain.ErrInvalidCreatorName
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return "", domain.ErrInvalidCreatorName
	}
	return name, nil
}

// FindOrCreate returns the creator with this name, registering it on first
// login. The bool reports whether it was created.
func (s *CreatorService) FindOrCreate(ctx context.Context, name string) (*domain.Creator, bool, error) {
	name, err := NormalizeCreatorName(name)
	if err != nil {
		return nil, false, err
	}

	creator, err := s.repo.GetCreatorByUsername(ctx, name)
	if err == nil {
		if err := s.repo.TouchCreator(ctx, creator.ID); err != nil {
			return nil, false, fmt.Errorf("touch creator: %w", err)
		}
		return creator, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get creator: %w", err)
	}

	// Another login may register the name between the lookup and the insert.
	creator, inserted, err := s.repo.CreateCreator(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("create creator: %w", err)
	}
	if inserted {
		s.notifier.LogRegistration(creator.Username)
	}
	return creator, inserted, nil
}

func (s *CreatorService) GetByUsername(ctx context.Context, name string) (*domain.Creator, error) {
	creator, err := s.repo.GetCreatorByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCreatorNotFound
		}
		return nil, fmt.Errorf("get creator: %w", err)
	}
	return creator, nil
}
