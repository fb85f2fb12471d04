package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenSaver wraps an oauth2 token source and persists refreshed tokens,
// so a restart does not require a new consent.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	mu        sync.Mutex
}

func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		log.Println("Token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			log.Printf("Warning: Failed to save refreshed token: %v", err)
		}
	}

	return newToken, nil
}

type authorizeFunc func(config *oauth2.Config) (*oauth2.Token, error)

// getToken loads the token file, keeping expired tokens that still carry a
// refresh token. Only when neither is usable does it run authorize.
func getToken(config *oauth2.Config, tokenFile string, authorize authorizeFunc) (*oauth2.Token, error) {
	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			log.Printf("Loaded token from file (expires: %v)", tok.Expiry)
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	log.Println("Getting new token from web...")
	tok, err = authorize(config)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			log.Printf("Token exchange failed (%s): %s", retrieveErr.Response.Status, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return nil, fmt.Errorf("authorization failed: %w. Ensure your OAuth client is a 'Desktop app' and the Gmail API is enabled", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		log.Printf("Warning: Failed to save token: %v", err)
	}
	return tok, nil
}

// authorizeWithLoopback runs the installed-app flow: the user opens the
// consent URL and Google redirects the code to a local listener.
func authorizeWithLoopback(config *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("unable to open loopback listener: %w", err)
	}
	defer listener.Close()

	cfg := *config
	cfg.RedirectURL = "http://" + listener.Addr().String()
	state := fmt.Sprintf("st%d", time.Now().UnixNano())

	codes := make(chan string, 1)
	errs := make(chan error, 1)
	server := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			if denied := r.URL.Query().Get("error"); denied != "" {
				fmt.Fprintln(w, "Authorization was denied, you can close this window.")
				select {
				case errs <- fmt.Errorf("consent denied: %s", denied):
				default:
				}
				return
			}
			fmt.Fprintln(w, "Authorization complete, you can close this window.")
			select {
			case codes <- r.URL.Query().Get("code"):
			default:
			}
		}),
	}
	go server.Serve(listener)
	defer server.Close()

	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Printf("GMAIL AUTHORIZATION REQUIRED\n")
	fmt.Printf("%s\n", strings.Repeat("=", 80))
	fmt.Printf("Open this URL in a browser on this machine:\n\n   %s\n\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
	fmt.Printf("Waiting for authorization to complete... (Ctrl+C to cancel)\n")
	fmt.Printf("%s\n", strings.Repeat("-", 80))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	select {
	case code := <-codes:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to exchange authorization code: %w", err)
		}
		fmt.Printf("\n✅ Authorization successful! Token saved.\n")
		return tok, nil
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out waiting for authorization")
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}
	return nil
}
