package caldav

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"go.uber.org/zap"

	"github.com/guilherme-santos/calmanager/internal"
)

type Storage interface {
	Account(_ context.Context, id int64) (internal.Account, error)
	AccountsOf(_ context.Context, platform, accountName string) ([]internal.Account, error)
	ReplaceAccounts(_ context.Context, platform, accountName string, _ []internal.Account) error
	DeleteAccount(_ context.Context, id int64) error
}

// Client lists and deletes the calendar collections of a CalDAV principal.
type Client struct {
	client      *caldav.Client
	storage     Storage
	logger      *zap.Logger
	accountName string
}

type Config struct {
	URL        string
	Username   string
	Password   string
	HTTPClient webdav.HTTPClient
	Logger     *zap.Logger
}

func NewClient(cfg Config, storage Storage) (*Client, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("caldav: invalid server url %q", cfg.URL)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if cfg.HTTPClient != nil {
		httpClient = cfg.HTTPClient
	}
	if cfg.Username != "" && cfg.Password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password)
	}

	c, err := caldav.NewClient(httpClient, endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("caldav: creating client: %w", err)
	}

	accountName := cfg.Username
	if accountName == "" {
		accountName = endpoint.Host
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		client:      c,
		storage:     storage,
		logger:      logger,
		accountName: accountName,
	}, nil
}

// Granted is always true: the credentials come from the configuration and
// the server rejects them on the first request if they are wrong.
func (c *Client) Granted(context.Context) (bool, error) {
	return true, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]internal.Account, error) {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("caldav: finding current user principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("caldav: finding calendar home set: %w", err)
	}
	cals, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("caldav: finding calendars: %w", err)
	}
	c.logger.Debug("caldav: calendars listed", zap.String("home_set", homeSet), zap.Int("count", len(cals)))

	owner := strings.Trim(path.Base(principal), "/")
	accs := make([]internal.Account, len(cals))
	for i, cal := range cals {
		accs[i] = c.newAccount(owner, cal)
	}

	err = c.storage.ReplaceAccounts(ctx, internal.PlatformCalDAV, c.accountName, accs)
	if err != nil {
		return nil, fmt.Errorf("caldav: saving calendars: %w", err)
	}
	return c.storage.AccountsOf(ctx, internal.PlatformCalDAV, c.accountName)
}

func (c *Client) DeleteAccount(ctx context.Context, id int64) error {
	acc, err := c.storage.Account(ctx, id)
	if err != nil {
		return err
	}
	if acc.Platform != internal.PlatformCalDAV || acc.AccountName != c.accountName {
		return internal.ErrAccountNotFound
	}

	fields := internal.AccountFields(acc)
	err = c.client.RemoveAll(ctx, acc.ProviderID)
	if err != nil {
		c.logger.Error("caldav: unable to delete calendar", append(fields, zap.Error(err))...)
		return fmt.Errorf("caldav: deleting calendar %s: %w", acc.ProviderID, err)
	}
	c.logger.Info("caldav: calendar deleted", fields...)

	return c.storage.DeleteAccount(ctx, id)
}

func (c *Client) newAccount(owner string, cal caldav.Calendar) internal.Account {
	displayName := cal.Name
	if displayName == "" {
		displayName = path.Base(strings.TrimSuffix(cal.Path, "/"))
	}
	return internal.Account{
		DisplayName: displayName,
		AccountName: c.accountName,
		OwnerName:   owner,
		Platform:    internal.PlatformCalDAV,
		ProviderID:  cal.Path,
	}
}
