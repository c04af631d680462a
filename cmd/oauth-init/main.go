// Command oauth-init runs the one-time OAuth consent flow for the Google
// Sheets spend source and stores the resulting token.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"

	"finhealth/internal/cli"
	applog "finhealth/internal/log"
)

const consentTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentSpend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("OAuth setup failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *applog.Logger) error {
	clientJSON, err := clientCredentials()
	if err != nil {
		return err
	}
	// The spend source only reads the dashboard sheet.
	cfg, err := google.ConfigFromJSON(clientJSON, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return fmt.Errorf("oauth config: %w", err)
	}

	port := envOr("OAUTH_REDIRECT_PORT", "8085")
	cfg.RedirectURL = "http://localhost:" + port + "/callback"
	state := uuid.NewString()

	ln, err := net.Listen("tcp", "localhost:"+port)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", callbackHandler(state, codes))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize read access to your spreadsheet:\n%s\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("authorization timed out")
		}
		return errors.New("interrupted")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange: %w", err)
	}
	out := envOr("GOOGLE_OAUTH_TOKEN_FILE", "token.json")
	if err := saveToken(out, tok); err != nil {
		return err
	}
	logger.Info("OAuth token saved", "path", out, "expiry", tok.Expiry)
	return nil
}

func clientCredentials() ([]byte, error) {
	if v := os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"); v != "" {
		return []byte(v), nil
	}
	if path := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
}

// callbackHandler forwards the first authorization code whose state matches.
func callbackHandler(state string, codes chan<- string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization failed: "+e, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case codes <- code:
			fmt.Fprintln(w, "Authorized. You can close this window.")
		default:
			http.Error(w, "already authorized", http.StatusConflict)
		}
	}
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tok); err != nil {
		_ = f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
