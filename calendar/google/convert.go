package google

import (
	"fmt"
	"net/url"

	"google.golang.org/api/calendar/v3"

	"github.com/guilherme-santos/calmanager/internal"
)

const roleOwner = "owner"

func newAccount(accountName string, e *calendar.CalendarListEntry) internal.Account {
	displayName := e.Summary
	if e.SummaryOverride != "" {
		displayName = e.SummaryOverride
	}
	// Calendars shared with the account are owned by whoever the calendar
	// id names.
	ownerName := e.Id
	if e.AccessRole == roleOwner {
		ownerName = accountName
	}
	return internal.Account{
		DisplayName: displayName,
		AccountName: accountName,
		OwnerName:   ownerName,
		Platform:    internal.PlatformGoogle,
		ProviderID:  e.Id,
		AccessRole:  e.AccessRole,
	}
}

func parseRedirect(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("google: invalid redirect url %q: %v", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("google: redirect url %q has no host", raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}
