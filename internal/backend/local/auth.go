package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"todo/internal/service"
)

type sessionFile struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// Login implements service.Authenticator.
func (s *Store) Login(ctx context.Context, email, password string) (service.Session, error) {
	var (
		id   int64
		hash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, password_hash FROM user WHERE email = ?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Session{}, fmt.Errorf("%w: Email not found. Please check your login details and try again.", service.ErrUnauthorized)
	}
	if err != nil {
		return service.Session{}, err
	}
	if !hash.Valid || hash.String == "" {
		return service.Session{}, fmt.Errorf("%w: User account is invalid. Please contact support.", service.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)); err != nil {
		return service.Session{}, fmt.Errorf("%w: Invalid password. Please try again.", service.ErrUnauthorized)
	}

	s.userID = id
	s.session = &service.Session{UID: strconv.FormatInt(id, 10), Email: email}
	if err := s.persist(); err != nil {
		return service.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return *s.session, nil
}

// SignUp implements service.Authenticator.
func (s *Store) SignUp(ctx context.Context, req service.SignUp) (service.Session, error) {
	if err := req.Validate(); err != nil {
		return service.Session{}, err
	}

	var email, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT email, phone_number FROM user WHERE email = ? OR phone_number = ? LIMIT 1`,
		req.Email, req.Phone).Scan(&email, &phone)
	switch {
	case err == nil && email.String == req.Email:
		return service.Session{}, fmt.Errorf("%w: Email address already exists", service.ErrConflict)
	case err == nil:
		return service.Session{}, fmt.Errorf("%w: Phone number already exists", service.ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return service.Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return service.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.insertUser(ctx, req, hash); err != nil {
		return service.Session{}, err
	}
	s.logger.Debug("account created", "email", req.Email)

	return s.Login(ctx, req.Email, req.Password)
}

// insertUser stores the account. A unique violation that slipped past the
// lookup in SignUp is reported as a conflict on the offending column.
func (s *Store) insertUser(ctx context.Context, req service.SignUp, hash []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user (first_name, surname, email, phone_number, password_hash) VALUES (?, ?, ?, ?, ?)`,
		req.FirstName, req.Surname, req.Email, req.Phone, string(hash))
	if err == nil {
		return nil
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
		if strings.Contains(serr.Error(), "user.phone_number") {
			return fmt.Errorf("%w: An account with this phone number already exists.", service.ErrConflict)
		}
		return fmt.Errorf("%w: An account with this email already exists.", service.ErrConflict)
	}
	return fmt.Errorf("create account: %w", err)
}

// Logout implements service.Authenticator.
func (s *Store) Logout(ctx context.Context) error {
	s.userID = 0
	s.session = nil
	if s.sessionPath == "" {
		return nil
	}
	if err := os.Remove(s.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Current implements service.Authenticator.
func (s *Store) Current(ctx context.Context) (service.Session, error) {
	if s.session == nil {
		return service.Session{}, service.ErrNotLoggedIn
	}
	return *s.session, nil
}

func (s *Store) persist() error {
	if s.sessionPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(sessionFile{UserID: s.userID, Email: s.session.Email}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.sessionPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath, data, 0600)
}

// restore signs the stored account back in if it still exists.
func (s *Store) restore(ctx context.Context) error {
	if s.sessionPath == "" {
		return nil
	}
	data, err := os.ReadFile(s.sessionPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("invalid session file %s: %w", s.sessionPath, err)
	}

	var email string
	err = s.db.QueryRowContext(ctx, `SELECT email FROM user WHERE id = ?`, sf.UserID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && email != sf.Email) {
		s.logger.Debug("stale local session ignored", "user_id", sf.UserID)
		return nil
	}
	if err != nil {
		return err
	}
	s.userID = sf.UserID
	s.session = &service.Session{UID: strconv.FormatInt(sf.UserID, 10), Email: email}
	return nil
}
