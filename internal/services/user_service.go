package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/apperr"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/auth" // For password hashing
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/models"
)

// MaxNameLength is the longest display name accepted, in bytes.
const MaxNameLength = 255

// IUserService defines the interface for user-related operations.
// This allows for easier mocking in tests.
type IUserService interface {
	Signup(ctx context.Context, name, password string) (*models.User, error)
	Login(ctx context.Context, name, password string) (*models.User, error)
	FindByID(ctx context.Context, userID int64) (*models.User, error)
	DeleteUser(ctx context.Context, userID, actorID int64) error
}

// userService implements IUserService.
type userService struct {
	provider *db.Provider
	now      func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(provider *db.Provider) IUserService {
	return &userService{provider: provider, now: func() time.Time { return time.Now().UTC() }}
}

func selectUsers(d db.Dialect) sq.SelectBuilder {
	return d.Builder().Select("id", "name", "password_hash", "created_at").From("users")
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var hash sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &hash, &u.CreatedAt); err != nil {
		return nil, err
	}
	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	return &u, nil
}

func credentials(name, password string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if len(name) > MaxNameLength {
		return "", apperr.Validation("name must be at most %d characters", MaxNameLength)
	}
	if strings.TrimSpace(password) == "" {
		return "", apperr.Validation("password is required")
	}
	return name, nil
}

// hashPassword hashes a password that passed credentials, reporting one bcrypt cannot
// take whole as a validation error.
func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", apperr.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", apperr.Backend(err, "failed to hash password")
	}
	return hash, nil
}

// Signup creates a user with a unique display name.
func (s *userService) Signup(ctx context.Context, name, password string) (*models.User, error) {
	name, err := credentials(name, password)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	d := s.provider.Dialect()
	user := &models.User{Name: name, PasswordHash: &hash, CreatedAt: s.now()}
	ins := d.Builder().Insert("users").Columns("name", "password_hash", "created_at").Values(user.Name, hash, user.CreatedAt)
	if d.SupportsReturning() {
		ins = ins.Suffix("RETURNING id")
	}
	q, args, err := ins.ToSql()
	if err != nil {
		return nil, apperr.Backend(err, "failed to build user insert")
	}
	countQ, countArgs, err := d.Builder().Select("COUNT(*)").From("users").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, apperr.Backend(err, "failed to build user lookup")
	}

	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		n, err := conn.QueryInt(ctx, countQ, countArgs...)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Validation("name %q is already taken", name)
		}
		user.ID, err = conn.Insert(ctx, q, args...)
		if db.IsUniqueViolation(d, err) {
			// Lost a race with a concurrent signup for the same name.
			return apperr.Validation("name %q is already taken", name)
		}
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to create user %q", name)
	}
	log.Printf("User %d signed up as %q", user.ID, user.Name)
	return user, nil
}

// Login checks the password of the named user. A legacy user without a stored hash is
// upgraded by storing the hash of the password presented on this first login.
func (s *userService) Login(ctx context.Context, name, password string) (*models.User, error) {
	name, err := credentials(name, password)
	if err != nil {
		return nil, err
	}
	d := s.provider.Dialect()
	q, args, err := selectUsers(d).Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return nil, apperr.Backend(err, "failed to build user lookup")
	}

	var user *models.User
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		user, err = scanUser(conn.QueryRow(ctx, q, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user %q not found", name)
		}
		if err != nil {
			return err
		}

		if user.HasPassword() {
			if err := auth.VerifyPassword(password, *user.PasswordHash); err != nil {
				return apperr.Authorization("invalid credentials")
			}
			return nil
		}

		hash, err := hashPassword(password)
		if err != nil {
			return err
		}
		upd, updArgs, err := d.Builder().Update("users").
			Set("password_hash", hash).
			Where(sq.And{sq.Eq{"id": user.ID}, sq.Eq{"password_hash": nil}}).
			ToSql()
		if err != nil {
			return err
		}
		res, err := conn.Exec(ctx, upd, updArgs...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			// Another login set the hash first; it must match this password.
			return apperr.Authorization("invalid credentials")
		}
		user.PasswordHash = &hash
		log.Printf("Upgraded legacy user %d with a password hash", user.ID)
		return nil
	})
	if err != nil {
		return nil, apperr.Backend(err, "failed to log in user %q", name)
	}
	return user, nil
}

// FindByID finds a user by ID.
func (s *userService) FindByID(ctx context.Context, userID int64) (*models.User, error) {
	q, args, err := selectUsers(s.provider.Dialect()).Where(sq.Eq{"id": userID}).ToSql()
	if err != nil {
		return nil, apperr.Backend(err, "failed to build user lookup")
	}
	var user *models.User
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		user, err = scanUser(conn.QueryRow(ctx, q, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("user %d not found", userID)
		}
		return err
	})
	if err != nil {
		return nil, apperr.Backend(err, "error finding user by ID %d", userID)
	}
	return user, nil
}

// DeleteUser removes a user account. Only the user themselves may do so. Their messages are
// removed and their listings stay with no owner.
func (s *userService) DeleteUser(ctx context.Context, userID, actorID int64) error {
	if userID != actorID {
		return apperr.Authorization("user %d cannot delete user %d", actorID, userID)
	}
	q, args, err := s.provider.Dialect().Builder().Delete("users").Where(sq.Eq{"id": userID}).ToSql()
	if err != nil {
		return apperr.Backend(err, "failed to build user delete")
	}
	err = withConn(ctx, s.provider, func(conn *db.Conn) error {
		res, err := conn.Exec(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("user %d not found", userID)
		}
		return nil
	})
	if err != nil {
		return apperr.Backend(err, "failed to delete user %d", userID)
	}
	log.Printf("User %d deleted", userID)
	return nil
}
