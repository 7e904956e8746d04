package gdrive

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"

	"github.com/tonimelisma/gdrive-files/internal/tokenfile"
)

// defaultScopes grants full Drive access; the service creates, updates,
// moves and deletes arbitrary files by name.
var defaultScopes = []string{drive.DriveScope}

// OAuthConfig holds the Google OAuth client registered for this deployment.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string // defaults to full Drive access when empty
}

// stateTokenBytes is the number of random bytes for the OAuth2 state parameter.
const stateTokenBytes = 16

// callbackPath is the HTTP path the OAuth2 redirect hits on the loopback server.
const callbackPath = "/"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

// callbackResult carries the authorization code or error from the callback handler.
type callbackResult struct {
	code string
	err  error
}

// LoginWithBrowser performs the authorization code + PKCE flow against
// Google with a loopback redirect:
//  1. Binds a localhost HTTP server on a random port
//  2. Opens the browser to Google's consent screen
//  3. Receives the callback with the authorization code
//  4. Exchanges the code for tokens and saves them at tokenPath
//
// openURL is called with the consent URL. If it fails, the URL is printed to
// stderr so the operator can open it manually.
func LoginWithBrowser(
	ctx context.Context,
	oc OAuthConfig,
	tokenPath string,
	openURL func(string) error,
	logger *slog.Logger,
) (oauth2.TokenSource, error) {
	return doAuthCodeLogin(ctx, oauthConfig(oc), tokenPath, openURL, logger)
}

// doAuthCodeLogin implements the authorization code + PKCE flow. Accepts a
// pre-built oauth2.Config so tests can inject a mock endpoint.
func doAuthCodeLogin(
	ctx context.Context,
	cfg *oauth2.Config,
	tokenPath string,
	openURL func(string) error,
	logger *slog.Logger,
) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("gdrive: OAuth client id is not configured")
	}

	logger.Info("starting browser auth flow", slog.String("path", tokenPath))

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, logger)
	if err != nil {
		return nil, err
	}

	defer shutdownCallbackServer(srv, logger)

	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d%s", port, callbackPath)

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("gdrive: generating state token: %w", err)
	}

	registerCallbackHandler(mux, state, resultCh)

	// ApprovalForce makes Google issue a refresh token even when the account
	// has consented before.
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	launchBrowser(authURL, openURL, logger)

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return nil, err
	}

	return exchangeAndSave(ctx, cfg, tokenPath, code, verifier, logger)
}

// startCallbackServer binds to 127.0.0.1:0 and serves mux on it.
func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("gdrive: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, errors.New("gdrive: listener address is not TCP")
	}

	port := tcpAddr.Port
	logger.Info("callback server listening", slog.Int("port", port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("gdrive: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, port, nil
}

// registerCallbackHandler adds the callback route to the mux.
func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleOAuthCallback(w, r, state, resultCh)
	})
}

// handleOAuthCallback validates the state, extracts the code, and sends the
// result. Only the first callback is delivered.
func handleOAuthCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	deliver := func(res callbackResult) {
		select {
		case resultCh <- res:
		default:
		}
	}

	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		deliver(callbackResult{err: errors.New("gdrive: OAuth2 state mismatch (possible CSRF)")})

		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		deliver(callbackResult{err: fmt.Errorf("gdrive: authorization failed: %s", errParam)})

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		deliver(callbackResult{err: errors.New("gdrive: callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	deliver(callbackResult{code: code})
}

// shutdownCallbackServer gracefully shuts down the callback HTTP server.
func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// launchBrowser attempts to open the consent URL, falling back to printing it.
func launchBrowser(authURL string, openURL func(string) error, logger *slog.Logger) {
	logger.Info("opening browser for authorization")

	if openErr := openURL(authURL); openErr != nil {
		logger.Warn("failed to open browser, printing URL",
			slog.String("error", openErr.Error()),
		)

		fmt.Fprintf(os.Stderr, "Open this URL in your browser:\n%s\n", authURL)
	}
}

// waitForCallback blocks until the callback fires or the context is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("gdrive: browser auth canceled: %w", ctx.Err())
	}
}

// exchangeAndSave exchanges the auth code for a token and persists it.
func exchangeAndSave(
	ctx context.Context,
	cfg *oauth2.Config,
	tokenPath, code, verifier string,
	logger *slog.Logger,
) (oauth2.TokenSource, error) {
	logger.Info("received authorization code, exchanging for token")

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("gdrive: token exchange failed: %w", err)
	}

	creds := &tokenfile.Credentials{Token: tok, Scopes: cfg.Scopes}
	if saveErr := tokenfile.Save(tokenPath, creds); saveErr != nil {
		return nil, fmt.Errorf("gdrive: saving token: %w", saveErr)
	}

	logger.Info("browser login successful",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
	)

	return newPersistingSource(cfg.TokenSource(ctx, tok), tokenPath, tok, logger), nil
}

// generateState produces a cryptographically random hex string for the OAuth2
// state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// TokenSourceFromPath loads the credential cache and returns a token source
// that refreshes expired tokens and writes every new token back to the cache.
// Returns ErrNotLoggedIn if no cache exists.
//
// ctx is bound to the underlying oauth2 token source and must outlive it.
func TokenSourceFromPath(ctx context.Context, oc OAuthConfig, tokenPath string, logger *slog.Logger) (oauth2.TokenSource, error) {
	return tokenSourceFromCache(ctx, oauthConfig(oc), tokenPath, logger)
}

// tokenSourceFromCache is TokenSourceFromPath with an injectable config.
func tokenSourceFromCache(ctx context.Context, cfg *oauth2.Config, tokenPath string, logger *slog.Logger) (oauth2.TokenSource, error) {
	creds, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, err
	}

	if creds == nil {
		return nil, ErrNotLoggedIn
	}

	expired := !creds.Token.Expiry.IsZero() && creds.Token.Expiry.Before(time.Now())
	logger.Debug("loaded credential cache",
		slog.String("path", tokenPath),
		slog.Time("expiry", creds.Token.Expiry),
		slog.Bool("expired", expired),
	)

	return newPersistingSource(cfg.TokenSource(ctx, creds.Token), tokenPath, creds.Token, logger), nil
}

// RecordAccount stores the account email in the credential cache so
// operators can see which account the server acts on.
func RecordAccount(tokenPath, email string) error {
	creds, err := tokenfile.Load(tokenPath)
	if err != nil {
		return err
	}

	if creds == nil {
		return ErrNotLoggedIn
	}

	creds.Account = email

	return tokenfile.Save(tokenPath, creds)
}

// Logout removes the credential cache at tokenPath.
// Returns nil if the cache does not exist (already logged out).
func Logout(tokenPath string, logger *slog.Logger) error {
	removed, err := tokenfile.Remove(tokenPath)
	if err != nil {
		return err
	}

	if !removed {
		logger.Info("logout: no credential cache to remove (already logged out)",
			slog.String("path", tokenPath),
		)

		return nil
	}

	logger.Info("logout: removed credential cache", slog.String("path", tokenPath))

	return nil
}

// oauthConfig builds the oauth2.Config for Google's endpoint.
func oauthConfig(oc OAuthConfig) *oauth2.Config {
	scopes := oc.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	return &oauth2.Config{
		ClientID:     oc.ClientID,
		ClientSecret: oc.ClientSecret,
		Scopes:       scopes,
		Endpoint:     google.Endpoint,
	}
}

// persistingSource writes each newly minted token back to the credential
// cache. The wrapped source already serializes refreshes.
type persistingSource struct {
	src    oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string // access token most recently persisted
}

func newPersistingSource(src oauth2.TokenSource, path string, initial *oauth2.Token, logger *slog.Logger) *persistingSource {
	return &persistingSource{
		src:    src,
		path:   path,
		logger: logger,
		last:   initial.AccessToken,
	}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		p.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("gdrive: obtaining token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.last {
		return tok, nil
	}

	p.logger.Info("token refreshed", slog.Time("new_expiry", tok.Expiry))

	if saveErr := tokenfile.ReplaceToken(p.path, tok); saveErr != nil {
		// The token is still usable for this request.
		p.logger.Warn("failed to persist refreshed token",
			slog.String("path", p.path),
			slog.String("error", saveErr.Error()),
		)

		return tok, nil
	}

	p.last = tok.AccessToken

	return tok, nil
}
