package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"todo/internal/service"
)

// sessionFile is the persisted login: the account and the backend cookies.
type sessionFile struct {
	Email   string         `json:"email"`
	Cookies []storedCookie `json:"cookies"`
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Flash messages rendered by the backend login and sign-up pages.
var (
	loginFlashes = []string{
		"Invalid password. Please try again.",
		"Email not found. Please check your login details and try again.",
		"User account is invalid. Please contact support.",
	}
	signUpConflicts = []string{
		"Email address already exists",
		"Phone number already exists",
		"An account with this email already exists.",
		"An account with this phone number already exists.",
	}
	signUpInvalid = []string{
		"All fields are required",
		"Passwords do not match",
	}
)

// Login implements service.Authenticator with the backend login form.
// The backend answers a good login with a redirect away from /login.
func (c *Client) Login(ctx context.Context, email, password string) (service.Session, error) {
	form := url.Values{}
	form.Set("Email", email)
	form.Set("Password", password)
	form.Set("remember", "on")

	resp, body, err := c.postForm(ctx, "/login", form)
	if err != nil {
		return service.Session{}, err
	}
	if !isRedirect(resp) || redirectsToLogin(resp) {
		if msg := findFlash(body, loginFlashes); msg != "" {
			return service.Session{}, fmt.Errorf("%w: %s", service.ErrUnauthorized, msg)
		}
		if resp.StatusCode >= 500 {
			return service.Session{}, fmt.Errorf("backend error %d", resp.StatusCode)
		}
		return service.Session{}, fmt.Errorf("%w: login rejected", service.ErrUnauthorized)
	}

	c.session = &service.Session{Email: email}
	if err := c.persist(); err != nil {
		return service.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return *c.session, nil
}

// SignUp implements service.Authenticator. The backend redirects to /login on
// success, after which the new account is signed in.
func (c *Client) SignUp(ctx context.Context, req service.SignUp) (service.Session, error) {
	if err := req.Validate(); err != nil {
		return service.Session{}, err
	}

	form := url.Values{}
	form.Set("First name", req.FirstName)
	form.Set("Surname", req.Surname)
	form.Set("Email", req.Email)
	form.Set("Phone number", req.Phone)
	form.Set("Password", req.Password)
	form.Set("Confirm password", req.Confirm)

	resp, body, err := c.postForm(ctx, "/sign-up", form)
	if err != nil {
		return service.Session{}, err
	}
	if !redirectsToLogin(resp) {
		if msg := findFlash(body, signUpConflicts); msg != "" {
			return service.Session{}, fmt.Errorf("%w: %s", service.ErrConflict, msg)
		}
		if msg := findFlash(body, signUpInvalid); msg != "" {
			return service.Session{}, fmt.Errorf("%w: %s", service.ErrInvalidInput, msg)
		}
		return service.Session{}, fmt.Errorf("sign-up rejected (status %d)", resp.StatusCode)
	}

	return c.Login(ctx, req.Email, req.Password)
}

// Logout implements service.Authenticator. The stored session is removed even
// when the backend cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+"/logout", nil)
	if err != nil {
		reqErr = err
	} else if resp, err := c.send(req); err != nil {
		reqErr = err
	} else {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	if reqErr != nil {
		c.logger.Debug("logout request failed", "err", reqErr)
	}

	c.session = nil
	if jar, err := cookiejar.New(nil); err == nil {
		c.http.Jar = jar
	}
	if c.sessionPath != "" {
		if err := os.Remove(c.sessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Current implements service.Authenticator.
func (c *Client) Current(ctx context.Context) (service.Session, error) {
	if c.session == nil {
		return service.Session{}, service.ErrNotLoggedIn
	}
	return *c.session, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, wrapError(err)
	}
	return resp, body, nil
}

func isRedirect(resp *http.Response) bool {
	return resp.StatusCode >= 300 && resp.StatusCode <= 399
}

func findFlash(body []byte, candidates []string) string {
	for _, msg := range candidates {
		if bytes.Contains(body, []byte(msg)) {
			return msg
		}
	}
	return ""
}

// persist writes the session and the base URL cookies with mode 0600.
func (c *Client) persist() error {
	if c.sessionPath == "" || c.session == nil {
		return nil
	}
	sf := sessionFile{Email: c.session.Email}
	for _, ck := range c.http.Jar.Cookies(c.base) {
		sf.Cookies = append(sf.Cookies, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.sessionPath, data, 0600)
}

// restore loads a persisted session into the cookie jar.
func (c *Client) restore() error {
	if c.sessionPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.sessionPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return fmt.Errorf("invalid session file %s: %w", c.sessionPath, err)
	}
	if sf.Email == "" || len(sf.Cookies) == 0 {
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(sf.Cookies))
	for _, sc := range sf.Cookies {
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/"})
	}
	c.http.Jar.SetCookies(c.base, cookies)
	c.session = &service.Session{Email: sf.Email}
	return nil
}
