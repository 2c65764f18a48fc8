package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/guilherme-santos/calmanager/internal"
)

var ErrPrimaryCalendar = errors.New("google: the primary calendar of an account cannot be deleted")

// Storage records the calendars listed from Google, giving them the numeric
// ids the rest of the application works with, and keeps the OAuth tokens.
type Storage interface {
	AddCredential(context.Context, *internal.Credential) error
	Credentials(_ context.Context, platform string) ([]internal.Credential, error)

	Account(_ context.Context, id int64) (internal.Account, error)
	AccountsByPlatform(_ context.Context, platform string) ([]internal.Account, error)
	ReplaceAccounts(_ context.Context, platform, accountName string, _ []internal.Account) error
	DeleteAccount(_ context.Context, id int64) error
}

type Client struct {
	oauthCfg   *oauth2.Config
	storage    Storage
	logger     *zap.Logger
	limiter    *rate.Limiter
	httpClient func(context.Context, oauth2.TokenSource) *http.Client

	retrySleep time.Duration
	maxRetries int
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps the requests sent to the Calendar API.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithHTTPClient makes every request go through hc instead of an
// oauth2-authorized client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = func(context.Context, oauth2.TokenSource) *http.Client {
			return hc
		}
	}
}

func WithRetrySleep(d time.Duration) Option {
	return func(c *Client) {
		c.retrySleep = d
	}
}

// WithRedirectAddr sets the loopback address Login listens on.
func WithRedirectAddr(addr string) Option {
	return func(c *Client) {
		if addr != "" {
			c.oauthCfg.RedirectURL = "http://" + addr + callbackPath
		}
	}
}

const (
	defaultSleep      = 5 * time.Second
	defaultMaxRetries = 5
	callbackPath      = "/calmanager"
)

func NewClient(credJSON []byte, storage Storage, opts ...Option) (*Client, error) {
	oauthCfg, err := google.ConfigFromJSON(credJSON, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("google: parsing credentials file: %v", err)
	}
	oauthCfg.RedirectURL = "http://localhost:8080" + callbackPath

	c := &Client{
		oauthCfg:   oauthCfg,
		storage:    storage,
		logger:     zap.NewNop(),
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		retrySleep: defaultSleep,
		maxRetries: defaultMaxRetries,
		httpClient: oauth2.NewClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Granted reports whether at least one Google account went through Login.
func (c *Client) Granted(ctx context.Context) (bool, error) {
	creds, err := c.storage.Credentials(ctx, internal.PlatformGoogle)
	if err != nil {
		return false, err
	}
	return len(creds) > 0, nil
}

// ListAccounts lists the calendars of every logged in Google account.
func (c *Client) ListAccounts(ctx context.Context) ([]internal.Account, error) {
	creds, err := c.storage.Credentials(ctx, internal.PlatformGoogle)
	if err != nil {
		return nil, err
	}
	for _, cred := range creds {
		svc, err := c.calendarSvc(ctx, cred)
		if err != nil {
			return nil, err
		}
		entries, err := c.calendarList(ctx, svc)
		if err != nil {
			return nil, fmt.Errorf("google: listing calendars of %s: %w", cred.Name, err)
		}

		accs := make([]internal.Account, 0, len(entries))
		for _, e := range entries {
			if e.Deleted {
				continue
			}
			accs = append(accs, newAccount(cred.Name, e))
		}
		c.logger.Debug("google: calendars listed", zap.String("account_name", cred.Name), zap.Int("count", len(accs)))

		err = c.storage.ReplaceAccounts(ctx, internal.PlatformGoogle, cred.Name, accs)
		if err != nil {
			return nil, fmt.Errorf("google: saving calendars of %s: %w", cred.Name, err)
		}
	}
	return c.storage.AccountsByPlatform(ctx, internal.PlatformGoogle)
}

func (c *Client) calendarList(ctx context.Context, svc *calendar.Service) ([]*calendar.CalendarListEntry, error) {
	var (
		entries       []*calendar.CalendarListEntry
		nextPageToken string
	)
	for {
		var list *calendar.CalendarList
		err := c.do(ctx, func() (err error) {
			list, err = svc.CalendarList.List().PageToken(nextPageToken).Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		entries = append(entries, list.Items...)
		nextPageToken = list.NextPageToken
		if nextPageToken == "" {
			break
		}
	}
	return entries, nil
}

// DeleteAccount deletes an owned calendar, or removes a calendar shared with
// the account from its calendar list.
func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	acc, err := c.storage.Account(ctx, id)
	if err != nil {
		return err
	}
	if acc.Platform != internal.PlatformGoogle {
		return internal.ErrAccountNotFound
	}
	if acc.ProviderID == acc.AccountName {
		return ErrPrimaryCalendar
	}

	cred, err := c.credential(ctx, acc.AccountName)
	if err != nil {
		return err
	}
	svc, err := c.calendarSvc(ctx, cred)
	if err != nil {
		return err
	}

	fields := internal.AccountFields(acc)
	err = c.do(ctx, func() error {
		if acc.AccessRole == roleOwner {
			return svc.Calendars.Delete(acc.ProviderID).Context(ctx).Do()
		}
		return svc.CalendarList.Delete(acc.ProviderID).Context(ctx).Do()
	})
	if err != nil && !alreadyDeleted(err) {
		c.logger.Error("google: unable to delete calendar", append(fields, zap.Error(err))...)
		return fmt.Errorf("google: deleting calendar %s: %w", acc.ProviderID, err)
	}
	c.logger.Info("google: calendar deleted", fields...)

	return c.storage.DeleteAccount(ctx, id)
}

func (c *Client) credential(ctx context.Context, name string) (internal.Credential, error) {
	creds, err := c.storage.Credentials(ctx, internal.PlatformGoogle)
	if err != nil {
		return internal.Credential{}, err
	}
	for _, cred := range creds {
		if cred.Name == name {
			return cred, nil
		}
	}
	return internal.Credential{}, fmt.Errorf("google: %s: %w", name, internal.ErrNotGranted)
}

// do runs call, waiting for the rate limiter first and retrying while Google
// says the rate limit was exceeded.
func (c *Client) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := call()
		if err == nil || !shouldRetry(err) || attempt >= c.maxRetries {
			return err
		}
		c.logger.Warn("google: rate limit exceeded, retrying", zap.Int("attempt", attempt+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retrySleep):
		}
	}
}

// Login runs the OAuth consent flow, handing the consent URL to showURL and
// waiting for Google to redirect back to the loopback server.
func (c *Client) Login(ctx context.Context, showURL func(authURL string)) (*oauth2.Token, error) {
	state := "calmanager-" + uuid.NewString()
	authURL := c.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	redirectURL, err := parseRedirect(c.oauthCfg.RedirectURL)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", redirectURL.Host)
	if err != nil {
		return nil, fmt.Errorf("google: listening for the oauth callback: %v", err)
	}

	type result struct {
		token *oauth2.Token
		err   error
	}
	resCh := make(chan result, 1)
	// Only the first callback counts; later ones must not block Shutdown.
	send := func(res result) {
		select {
		case resCh <- res:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(redirectURL.Path, func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		if query.Get("state") != state {
			w.WriteHeader(http.StatusBadRequest)
			send(result{err: errors.New("google: oauth link is not valid")})
			return
		}

		token, err := c.oauthCfg.Exchange(ctx, query.Get("code"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "Unable to retrieve token:", err)
			send(result{err: err})
			return
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "All good, you can close this window!")
		send(result{token: token})
	})
	server := &http.Server{Handler: mux}
	go server.Serve(ln)
	defer server.Shutdown(context.Background())

	showURL(authURL)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resCh:
		return res.token, res.err
	}
}

// Email returns the address of the account token belongs to, which is the
// id of its primary calendar.
func (c *Client) Email(ctx context.Context, token *oauth2.Token) (string, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(c.httpClient(ctx, c.oauthCfg.TokenSource(ctx, token))))
	if err != nil {
		return "", err
	}
	var entry *calendar.CalendarListEntry
	err = c.do(ctx, func() (err error) {
		entry, err = svc.CalendarList.Get("primary").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return entry.Id, nil
}

// SaveToken stores token as the credential of email.
func (c *Client) SaveToken(ctx context.Context, email string, token *oauth2.Token) error {
	auth, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return c.storage.AddCredential(ctx, &internal.Credential{
		Platform: internal.PlatformGoogle,
		Name:     email,
		Auth:     string(auth),
	})
}

func (c *Client) calendarSvc(ctx context.Context, cred internal.Credential) (*calendar.Service, error) {
	var tok *oauth2.Token
	err := json.Unmarshal([]byte(cred.Auth), &tok)
	if err != nil {
		return nil, fmt.Errorf("google: reading token of %s: %v", cred.Name, err)
	}

	ts := c.oauthCfg.TokenSource(ctx, tok)
	newTok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("google: refreshing token of %s: %w", cred.Name, err)
	}
	if newTok.AccessToken != tok.AccessToken {
		c.logger.Debug("google: token refreshed", zap.String("account_name", cred.Name))
		if err := c.SaveToken(ctx, cred.Name, newTok); err != nil {
			return nil, fmt.Errorf("google: saving refreshed token of %s: %v", cred.Name, err)
		}
	}
	return calendar.NewService(ctx, option.WithHTTPClient(c.httpClient(ctx, ts)))
}

func shouldRetry(err error) bool {
	return errIsReason(err, "rateLimitExceeded") || errIsReason(err, "userRateLimitExceeded")
}

func alreadyDeleted(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
		return true
	}
	return errIsReason(err, "deleted")
}

func errIsReason(err error, reason string) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}

	for _, err := range gErr.Errors {
		switch err.Reason {
		case reason:
			return true
		}
	}
	return false
}
