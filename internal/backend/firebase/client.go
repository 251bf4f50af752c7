// Package firebase implements service.Service on Cloud Firestore with
// Firebase email/password accounts.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"todo/internal/logging"
	"todo/internal/service"
)

const (
	// APITimeout is the timeout for each API call.
	APITimeout = 5 * time.Second

	// SecureTokenURL exchanges refresh tokens for fresh ID tokens.
	SecureTokenURL = "https://securetoken.googleapis.com/v1/token"

	// FirestoreEndpoint is the Firestore REST root.
	FirestoreEndpoint = "https://firestore.googleapis.com/"
)

// Options configures a Client.
type Options struct {
	APIKey    string
	ProjectID string

	// TokenPath persists the account tokens. Empty keeps them in memory only.
	TokenPath string

	Logger *log.Logger

	// Endpoints and HTTPClient override the Google endpoints, for tests.
	AuthEndpoint      string
	FirestoreEndpoint string
	TokenURL          string
	HTTPClient        *http.Client
}

// tokenFile is the persisted account.
type tokenFile struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// Client implements service.Service, service.Authenticator and service.Watcher.
type Client struct {
	opts   Options
	logger *log.Logger
	auth   *identitytoolkit.Service

	// base outlives the calls that open a store; token refreshes run on it.
	base context.Context

	mu    sync.Mutex
	token *tokenFile
	store *store
}

// New creates a Client and restores a persisted account when present.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" || opts.ProjectID == "" {
		return nil, errors.New("firebase backend needs api_key and project_id in config.toml")
	}
	if opts.FirestoreEndpoint == "" {
		opts.FirestoreEndpoint = FirestoreEndpoint
	}
	if opts.TokenURL == "" {
		opts.TokenURL = SecureTokenURL
	}
	c := &Client{opts: opts, logger: opts.Logger, base: context.WithoutCancel(ctx)}
	if c.logger == nil {
		c.logger = logging.Discard()
	}

	authOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.AuthEndpoint != "" {
		authOpts = append(authOpts, option.WithEndpoint(opts.AuthEndpoint))
	}
	if opts.HTTPClient != nil {
		authOpts = append(authOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	auth, err := identitytoolkit.NewService(ctx, authOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit service: %w", err)
	}
	c.auth = auth

	if err := c.restore(); err != nil {
		return nil, err
	}
	return c, nil
}

// Login implements service.Authenticator. An unknown email registers the
// account, so first use needs no separate sign-up.
func (c *Client) Login(ctx context.Context, email, password string) (service.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := c.auth.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		if authCode(err) == "EMAIL_NOT_FOUND" {
			c.logger.Debug("unknown account, registering", "email", email)
			return c.signUp(ctx, email, password)
		}
		return service.Session{}, wrapAuthError(err)
	}
	return c.establish(&tokenFile{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiry(resp.ExpiresIn),
	})
}

// SignUp implements service.Authenticator. Only email and password are used.
func (c *Client) SignUp(ctx context.Context, req service.SignUp) (service.Session, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return service.Session{}, fmt.Errorf("%w: All fields are required", service.ErrInvalidInput)
	}
	if req.Confirm != "" && req.Confirm != req.Password {
		return service.Session{}, fmt.Errorf("%w: Passwords do not match", service.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	return c.signUp(ctx, req.Email, req.Password)
}

func (c *Client) signUp(ctx context.Context, email, password string) (service.Session, error) {
	resp, err := c.auth.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return service.Session{}, wrapAuthError(err)
	}
	return c.establish(&tokenFile{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiry(resp.ExpiresIn),
	})
}

// Logout implements service.Authenticator.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.token = nil
	c.store = nil
	c.mu.Unlock()

	if c.opts.TokenPath == "" {
		return nil
	}
	if err := os.Remove(c.opts.TokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Current implements service.Authenticator.
func (c *Client) Current(ctx context.Context) (service.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return service.Session{}, service.ErrNotLoggedIn
	}
	return service.Session{UID: c.token.UID, Email: c.token.Email}, nil
}

func expiry(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// establish stores the tokens and opens the Firestore store for the account.
func (c *Client) establish(tf *tokenFile) (service.Session, error) {
	if tf.Email == "" || tf.UID == "" || tf.RefreshToken == "" {
		return service.Session{}, fmt.Errorf("%w: incomplete sign-in response", service.ErrMalformed)
	}
	if err := c.open(tf); err != nil {
		return service.Session{}, err
	}
	if err := c.save(tf); err != nil {
		return service.Session{}, fmt.Errorf("failed to save token: %w", err)
	}
	return service.Session{UID: tf.UID, Email: tf.Email}, nil
}

func (c *Client) open(tf *tokenFile) error {
	st, err := newStore(c, tf)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = tf
	c.store = st
	c.mu.Unlock()
	return nil
}

// tokenSource refreshes the ID token through the Secure Token endpoint and
// persists every new token.
func (c *Client) tokenSource(tf *tokenFile) oauth2.TokenSource {
	ctx := c.base
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.opts.TokenURL + "?key=" + c.opts.APIKey,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if c.opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.opts.HTTPClient)
	}
	src := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  tf.IDToken,
		RefreshToken: tf.RefreshToken,
		Expiry:       tf.Expiry,
	})
	return &savingSource{src: src, client: c, last: tf.IDToken}
}

type savingSource struct {
	src    oauth2.TokenSource
	client *Client

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrNotLoggedIn, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.client.refreshed(tok)
	}
	return tok, nil
}

func (c *Client) refreshed(tok *oauth2.Token) {
	c.mu.Lock()
	if c.token == nil {
		c.mu.Unlock()
		return
	}
	tf := *c.token
	c.mu.Unlock()

	tf.IDToken = tok.AccessToken
	tf.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		tf.RefreshToken = tok.RefreshToken
	}
	if err := c.save(&tf); err != nil {
		c.logger.Warn("failed to save refreshed token", "err", err)
	}
	c.mu.Lock()
	c.token = &tf
	c.mu.Unlock()
	c.logger.Debug("id token refreshed", "expiry", tok.Expiry)
}

func (c *Client) save(tf *tokenFile) error {
	if c.opts.TokenPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.opts.TokenPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.opts.TokenPath, data, 0600)
}

func (c *Client) restore() error {
	if c.opts.TokenPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.opts.TokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("invalid token file %s: %w", c.opts.TokenPath, err)
	}
	if tf.RefreshToken == "" || tf.UID == "" {
		return nil
	}
	return c.open(&tf)
}

// current returns the open store or ErrNotLoggedIn.
func (c *Client) current() (*store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil, service.ErrNotLoggedIn
	}
	return c.store, nil
}

// authCode extracts the Identity Toolkit error code, e.g. EMAIL_NOT_FOUND.
func authCode(err error) string {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return ""
	}
	code, _, _ := strings.Cut(gerr.Message, " ")
	return code
}

func wrapAuthError(err error) error {
	switch authCode(err) {
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return fmt.Errorf("%w: Invalid password. Please try again.", service.ErrUnauthorized)
	case "EMAIL_NOT_FOUND":
		return fmt.Errorf("%w: Email not found. Please check your login details and try again.", service.ErrUnauthorized)
	case "USER_DISABLED":
		return fmt.Errorf("%w: User account is invalid. Please contact support.", service.ErrUnauthorized)
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: Email address already exists", service.ErrConflict)
	case "WEAK_PASSWORD":
		return fmt.Errorf("%w: Password should be at least 6 characters", service.ErrInvalidInput)
	case "INVALID_EMAIL":
		return fmt.Errorf("%w: Invalid email address", service.ErrInvalidInput)
	}
	return wrapError(err)
}

// wrapError maps API and transport errors to service errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	if errors.Is(err, service.ErrNotLoggedIn) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return service.ErrNotLoggedIn
		case http.StatusForbidden:
			return service.ErrUnauthorized
		case http.StatusNotFound:
			return service.ErrNotFound
		case http.StatusConflict:
			return service.ErrConflict
		}
		return fmt.Errorf("firebase error %d: %s", gerr.Code, gerr.Message)
	}
	return err
}
