package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "client_secret.json"
	tokenFile       = "token.json"
)

// AuthOptions drives the installed-app OAuth flow.
type AuthOptions struct {
	// ConfigDir holds client_secret.json and the cached token.json.
	ConfigDir string
	// In and Out are used for the manual paste fallback. Defaults: stdin, stderr.
	In  io.Reader
	Out io.Writer
	// Browser opens the consent page. nil leaves it to the user.
	Browser func(url string) error
	// RedirectTimeout is how long to wait on the loopback redirect before
	// asking for a pasted code. Default 120s.
	RedirectTimeout time.Duration
	Logger          *slog.Logger
}

func (o *AuthOptions) defaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stderr
	}
	if o.RedirectTimeout <= 0 {
		o.RedirectTimeout = 120 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
}

// Authorize returns a Gmail service for the signed-in user. A cached token is
// validated with a profile lookup; when it is missing or rejected the user is
// sent through the consent flow and the new token is cached.
//
// Scopes: gmail.readonly for the analysis and gmail.modify for trash.
func Authorize(ctx context.Context, opts AuthOptions) (*gmailv1.Service, error) {
	opts.defaults()

	credPath := filepath.Join(opts.ConfigDir, credentialsFile)
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read credentials at %s", credPath)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailReadonlyScope, gmailv1.GmailModifyScope)
	if err != nil {
		return nil, errors.Wrap(err, "parse oauth config")
	}

	tokPath := filepath.Join(opts.ConfigDir, tokenFile)
	if tok, err := readToken(tokPath); err == nil {
		svc, err := newService(ctx, cfg, tok)
		if err == nil {
			_, err = svc.Users.GetProfile(user).Context(ctx).Do()
		}
		if err == nil {
			opts.Logger.Debug("using cached token", "path", tokPath)
			return svc, nil
		}
		opts.Logger.Info("cached token rejected, re-authorizing", "error", err)
		_ = os.Remove(tokPath)
	}

	tok, err := tokenFromWeb(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokPath, tok); err != nil {
		return nil, errors.Wrap(err, "save token")
	}
	return newService(ctx, cfg, tok)
}

func newService(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*gmailv1.Service, error) {
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "create gmail service")
	}
	return svc, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// saveToken writes through a temp file so a crash never leaves a torn token.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// tokenFromWeb captures the auth code on a loopback redirect. If the listener
// cannot start or the redirect does not arrive in time, the user pastes the
// code (or the whole redirect URL) instead.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, opts AuthOptions) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		opts.Logger.Warn("loopback listener unavailable", "error", err)
		return tokenFromPaste(ctx, cfg, opts)
	}

	redirect := fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)
	loopCfg := *cfg
	loopCfg.RedirectURL = redirect

	codes := make(chan string, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           codeHandler(codes),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	authURL := loopCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(opts.Out, "A browser window will open. If it does not, copy this URL:")
	fmt.Fprintln(opts.Out, authURL)
	if opts.Browser != nil {
		if err := opts.Browser(authURL); err != nil {
			opts.Logger.Debug("open browser", "error", err)
		}
	}
	fmt.Fprintf(opts.Out, "Waiting for redirect on %s\n", redirect)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case code := <-codes:
		tok, err := loopCfg.Exchange(ctx, code)
		if err != nil {
			return nil, errors.Wrap(err, "token exchange")
		}
		fmt.Fprintln(opts.Out, "Authentication successful.")
		return tok, nil
	case <-time.After(opts.RedirectTimeout):
		fmt.Fprintln(opts.Out, "Timeout waiting for redirect; falling back to manual paste.")
	}
	return tokenFromPaste(ctx, cfg, opts)
}

func codeHandler(codes chan<- string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		select {
		case codes <- code:
		default:
		}
	})
}

func tokenFromPaste(ctx context.Context, cfg *oauth2.Config, opts AuthOptions) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(opts.Out, "Open this URL in your browser to authorize sendertally:")
	fmt.Fprintln(opts.Out, authURL)
	fmt.Fprintln(opts.Out, "")
	fmt.Fprintln(opts.Out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(opts.Out, "> ")

	sc := bufio.NewScanner(opts.In)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, "read auth code")
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := extractCode(sc.Text())
	if err != nil {
		return nil, err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "token exchange")
	}
	fmt.Fprintln(opts.Out, "Authentication successful.")
	return tok, nil
}

// extractCode accepts either a bare code or the full redirect URL.
func extractCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	lower := strings.ToLower(input)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", errors.Wrap(err, "parse redirect URL")
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return code, nil
}
