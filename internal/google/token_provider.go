package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
)

// DefaultTimeout bounds every request made through clients from HTTPClient.
const DefaultTimeout = 60 * time.Second

// Scopes are the OAuth scopes the stored credentials must grant.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	drive.DriveFileScope,
}

// ErrNoToken is returned when no credentials are stored for an account.
var ErrNoToken = errors.New("no stored OAuth2 credentials")

var accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@+-]*$`)

// ValidateAccountName rejects names that could escape the credentials
// directory. Email addresses are valid account names.
func ValidateAccountName(account string) error {
	if !accountNamePattern.MatchString(account) || len(account) > 254 {
		return fmt.Errorf("invalid account name %q", account)
	}
	return nil
}

// TokenFile is the on-disk credential format of one account.
type TokenFile struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	TokenURI     string    `json:"token_uri,omitempty"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// FileTokenProvider reads account credentials from a directory.
type FileTokenProvider struct {
	dir     string
	timeout time.Duration

	// mu serializes writes of refreshed tokens.
	mu sync.Mutex
}

// NewFileTokenProvider creates a provider reading from dir.
func NewFileTokenProvider(dir string) *FileTokenProvider {
	return &FileTokenProvider{dir: dir, timeout: DefaultTimeout}
}

// TokenFilePath returns the credentials file of an account.
func (p *FileTokenProvider) TokenFilePath(account string) string {
	return filepath.Join(p.dir, ".oauth2."+account+".json")
}

// HasTokenForAccount reports whether credentials are stored for account.
func (p *FileTokenProvider) HasTokenForAccount(account string) bool {
	if ValidateAccountName(account) != nil {
		return false
	}
	_, err := os.Stat(p.TokenFilePath(account))
	return err == nil
}

// TokenSource returns a refreshing token source for account. Refreshed
// tokens are written back to the credentials file.
func (p *FileTokenProvider) TokenSource(ctx context.Context, account string) (oauth2.TokenSource, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	tf, err := p.read(account)
	if err != nil {
		return nil, err
	}
	if tf.RefreshToken == "" && tf.Token == "" {
		return nil, fmt.Errorf("credentials for account %s contain no token", account)
	}

	endpoint := google.Endpoint
	if tf.TokenURI != "" {
		endpoint.TokenURL = tf.TokenURI
	}
	conf := &oauth2.Config{
		ClientID:     tf.ClientID,
		ClientSecret: tf.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       Scopes,
	}

	initial := &oauth2.Token{
		AccessToken:  tf.Token,
		RefreshToken: tf.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       tf.Expiry,
	}
	if tf.Expiry.IsZero() {
		// Unknown expiry: force a refresh on first use.
		initial.Expiry = time.Unix(1, 0)
	}

	return oauth2.ReuseTokenSource(initial, &persistingTokenSource{
		base:    conf.TokenSource(ctx, initial),
		account: account,
		file:    tf,
		p:       p,
	}), nil
}

// HTTPClient returns an authenticated client for account.
func (p *FileTokenProvider) HTTPClient(ctx context.Context, account string) (*http.Client, error) {
	ts, err := p.TokenSource(ctx, account)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = p.timeout
	return client, nil
}

func (p *FileTokenProvider) read(account string) (*TokenFile, error) {
	data, err := os.ReadFile(p.TokenFilePath(account))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s: %s", ErrNoToken, account, AuthenticationErrorMessage(account))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials for account %s: %w", account, err)
	}

	var tf TokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse credentials for account %s: %w", account, err)
	}
	return &tf, nil
}

func (p *FileTokenProvider) write(account string, tf *TokenFile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return err
	}
	path := p.TokenFilePath(account)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials for account %s: %w", account, err)
	}
	return os.Rename(tmp, path)
}

// persistingTokenSource saves every token it hands out whose access token
// differs from the stored one.
type persistingTokenSource struct {
	base    oauth2.TokenSource
	account string
	file    *TokenFile
	p       *FileTokenProvider
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token for account %s: %w", s.account, err)
	}
	if tok.AccessToken != s.file.Token {
		updated := *s.file
		updated.Token = tok.AccessToken
		updated.Expiry = tok.Expiry
		if tok.RefreshToken != "" {
			updated.RefreshToken = tok.RefreshToken
		}
		// A failed write only costs an extra refresh next time.
		if err := s.p.write(s.account, &updated); err == nil {
			s.file = &updated
		}
	}
	return tok, nil
}

// AuthenticationErrorMessage tells the user how to provide credentials.
func AuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("Google OAuth credentials for account %q are missing. "+
		"Authorize the account with the scopes %v and store the resulting "+
		"credentials as .oauth2.%s.json in the credentials directory.",
		account, Scopes, account)
}
