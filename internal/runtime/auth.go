package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxlens/inboxlens/internal/gmail"
)

// AuthOptions selects how the Gmail service is authenticated.
type AuthOptions struct {
	// GmailctlDir, when non-empty, reuses an existing gmailctl credential
	// directory instead of running our own OAuth flow.
	GmailctlDir string
	// ConfigDir holds client_secret.json and the cached token.json for the
	// standalone flow.
	ConfigDir string
}

// NewGmailClient authenticates and returns the narrow client used by the
// fetcher. Only the readonly scope is ever requested.
func NewGmailClient(ctx context.Context, opts AuthOptions) (gmail.Client, error) {
	svc, err := NewGmailService(ctx, opts)
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc), nil
}

// NewGmailService builds an authenticated *gmailv1.Service, preferring
// gmailctl credentials when a directory is configured.
func NewGmailService(ctx context.Context, opts AuthOptions) (*gmailv1.Service, error) {
	if opts.GmailctlDir != "" {
		svc, err := (localcred.Provider{}).Service(ctx, opts.GmailctlDir)
		if err != nil {
			return nil, fmt.Errorf("gmailctl credentials: %w", err)
		}
		return svc, nil
	}
	return newStandaloneService(ctx, opts.ConfigDir)
}

func newStandaloneService(ctx context.Context, configDir string) (*gmailv1.Service, error) {
	credPath := filepath.Join(configDir, "client_secret.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", credPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	tokFile := filepath.Join(configDir, "token.json")
	if tok, err := readToken(tokFile); err == nil {
		svc, err := serviceFor(ctx, cfg, tok)
		if err == nil {
			return svc, nil
		}
		// Cached token no longer works; discard and re-authenticate.
		_ = os.Remove(tokFile)
	}

	tok, err := tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokFile, tok); err != nil {
		return nil, err
	}
	return serviceFor(ctx, cfg, tok)
}

func serviceFor(
	ctx context.Context,
	cfg *oauth2.Config,
	tok *oauth2.Token,
) (*gmailv1.Service, error) {
	client := cfg.Client(ctx, tok)
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	// Validate with a lightweight call before trusting the token.
	if _, err := svc.Users.GetProfile("me").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path) // #nosec G304 - path derives from the config dir flag
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode token: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	return os.Rename(tmp, path)
}

// tokenFromWeb runs a loopback HTTP server to capture the authorization code
// and exchanges it for a token.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen on loopback: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

	codeCh := make(chan string, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case codeCh <- code:
		default:
		}
		go func() { _ = srv.Shutdown(context.Background()) }()
	})
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintln(os.Stderr, "Open this URL in your browser to authorize inboxlens:")
	fmt.Fprintln(os.Stderr, authURL)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-time.After(2 * time.Minute):
		return nil, errors.New("timed out waiting for authorization redirect")
	}
}

// DefaultLogger returns the process-wide logger configuration.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
