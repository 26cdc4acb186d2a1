package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/club-activity-api/internal/models"
	"github.com/noah-isme/club-activity-api/internal/repository"
	appErrors "github.com/noah-isme/club-activity-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}

// UserService handles registration and membership management.
type UserService struct {
	repo      userRepository
	tx        activityTxRunner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, tx activityTxRunner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger}
}

// Register creates a member account. New members are registered members
// but not yet club members.
func (s *UserService) Register(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, appErrors.ErrUsernameTaken
	}
	taken, err = s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		MobileNumber: req.MobileNumber,
		Major:        req.Major,
		StudentID:    req.StudentID,
		Description:  req.Description,
		SchoolStatus: models.SchoolStatusDefault,
		IsMember:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent signup.
			return nil, appErrors.Clone(appErrors.ErrConflict, "username or email already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// List returns every user ordered by username.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// UpdateFlags applies a partial update of the membership flags. The user row
// stays locked from read to write so concurrent updates never drop a flag.
func (s *UserService) UpdateFlags(ctx context.Context, id string, flags models.MembershipFlags) (*models.User, error) {
	if flags.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one flag must be provided")
	}
	var user *models.User
	err := s.tx.InTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.LockUser(ctx, id)
		if err != nil {
			return notFoundOr(err, "user not found")
		}
		flags.Apply(locked)
		if err := tx.UpdateUserFlags(ctx, locked); err != nil {
			return notFoundOr(err, "user not found")
		}
		user = locked
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user flags")
	}

	s.logger.Info("membership flags updated",
		zap.String("user_id", id),
		zap.Bool("is_member", user.IsMember),
		zap.Bool("is_club_member", user.IsClubMember),
		zap.Bool("is_admin", user.IsAdmin))
	return user, nil
}

// Delete removes a user. Seats held by the user's approved participations
// are released in the same transaction that deletes them.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.tx.InTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockUser(ctx, id); err != nil {
			return notFoundOr(err, "user not found")
		}

		locked := map[string]*models.Activity{}
		for {
			participations, err := tx.ListUserParticipations(ctx, id)
			if err != nil {
				return err
			}
			missing := make([]string, 0)
			for _, p := range participations {
				if _, ok := locked[p.ActivityID]; !ok {
					missing = append(missing, p.ActivityID)
				}
			}
			if len(missing) == 0 {
				for _, p := range participations {
					if !p.Approved {
						continue
					}
					activity := locked[p.ActivityID]
					activity.Release()
					if err := tx.SaveActivityCapacity(ctx, activity); err != nil {
						return err
					}
				}
				return notFoundOr(tx.DeleteUser(ctx, id), "user not found")
			}
			sort.Strings(missing)
			for _, activityID := range missing {
				activity, err := tx.LockActivity(ctx, activityID)
				if err != nil {
					return err
				}
				locked[activityID] = activity
			}
		}
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	s.logger.Info("user deleted", zap.String("user_id", id))
	// Led activities cascade with the user, so the listing changes either way.
	_ = s.cache.Invalidate(ctx, activityCachePattern)
	return nil
}
