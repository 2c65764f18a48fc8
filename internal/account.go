package internal

import "fmt"

const (
	PlatformLocal  = "local"
	PlatformGoogle = "google"
	PlatformCalDAV = "caldav"
)

// Account is a calendar account as exposed by a Source. It is a snapshot:
// sources build new values on every listing.
type Account struct {
	ID          int64
	DisplayName string
	AccountName string
	OwnerName   string

	Platform   string
	ProviderID string
	AccessRole string
}

func (a Account) String() string {
	return fmt.Sprintf("%s/%s/%d", a.Platform, a.AccountName, a.ID)
}

// Label is how an account is named in confirmation prompts.
func (a Account) Label() string {
	return fmt.Sprintf("%s(%s)", a.DisplayName, a.AccountName)
}

// Credential is the authorization an account name holds on a platform.
type Credential struct {
	Platform string
	Name     string
	Auth     string
}

func (c Credential) ID() string {
	return c.Platform + "/" + c.Name
}
