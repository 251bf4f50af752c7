package googletasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"todo/internal/service"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

// writeSetup explains how to obtain oauth_client.json.
func writeSetup(w io.Writer, dir string) {
	fmt.Fprintln(w, "To use the Google Tasks backend, you need OAuth credentials:")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "1. Go to https://console.cloud.google.com/apis/credentials")
	fmt.Fprintln(w, "2. Create a project (or select an existing one)")
	fmt.Fprintln(w, "3. Enable the Google Tasks API:")
	fmt.Fprintln(w, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
	fmt.Fprintln(w, "4. Create OAuth 2.0 credentials of type 'Desktop app' and download the JSON file")
	fmt.Fprintln(w, "5. Save it as:")
	fmt.Fprintf(w, "   %s/oauth_client.json\n", dir)
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Then run 'todo login' again.")
}

// Login implements service.Authenticator with the browser OAuth flow.
// Email and password are ignored; the Google account is chosen in the browser.
func (c *Client) Login(ctx context.Context, _, _ string) (service.Session, error) {
	if !c.cfg.HasOAuthClient() {
		writeSetup(c.Prompt, c.cfg.Dir)
		return service.Session{}, fmt.Errorf("%w: oauth_client.json not found in %s", service.ErrNotLoggedIn, c.cfg.Dir)
	}
	if s, err := c.Current(ctx); err == nil {
		return s, nil
	}

	oauthConfig, err := c.oauthConfig()
	if err != nil {
		return service.Session{}, err
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return service.Session{}, fmt.Errorf("could not bind to local port for OAuth callback: %w", err)
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	verifier := oauth2.GenerateVerifier()
	authURL := oauthConfig.AuthCodeURL("state",
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(c.Prompt, "Open this URL in your browser:")
	fmt.Fprintln(c.Prompt, authURL)

	code, err := awaitCode(ctx, listener)
	if err != nil {
		return service.Session{}, fmt.Errorf("%w: %v", service.ErrNotLoggedIn, err)
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return service.Session{}, fmt.Errorf("%w: failed to exchange code for token: %v", service.ErrNotLoggedIn, err)
	}

	if err := c.cfg.EnsureDir(); err != nil {
		return service.Session{}, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := saveToken(c.cfg.TokenPath(), token); err != nil {
		return service.Session{}, fmt.Errorf("failed to save token: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token))
	if err := c.connect(ctx, option.WithHTTPClient(httpClient)); err != nil {
		return service.Session{}, err
	}
	c.logger.Debug("google login complete", "port", port)
	return c.Current(ctx)
}

// awaitCode serves the OAuth callback until a code arrives.
func awaitCode(ctx context.Context, listener net.Listener) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(oauthCallbackTimeout):
		return "", fmt.Errorf("oauth callback timed out")
	case <-ctx.Done():
		return "", fmt.Errorf("cancelled")
	}
}

// SignUp implements service.Authenticator. Google accounts are created elsewhere.
func (c *Client) SignUp(ctx context.Context, req service.SignUp) (service.Session, error) {
	return service.Session{}, fmt.Errorf("%w: sign up is not available for Google Tasks; use 'todo login'", service.ErrInvalidInput)
}

// Logout implements service.Authenticator by removing token.json.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.svc = nil
	c.lists = nil
	c.mu.Unlock()

	if c.cfg == nil || !c.cfg.HasToken() {
		return nil
	}
	if err := c.cfg.RemoveToken(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// Current implements service.Authenticator. Google does not expose the
// account email under the tasks scope, so the session is anonymous.
func (c *Client) Current(ctx context.Context) (service.Session, error) {
	if _, err := c.service(); err != nil {
		return service.Session{}, err
	}
	return service.Session{UID: "google", Email: "Google account"}, nil
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// saveToken saves an OAuth token to a file with mode 0600.
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
