package sqlite

import (
	"strings"

	"github.com/guilherme-santos/calmanager/internal"
)

type Calendar struct {
	ID          int64  `db:"_id"`
	Platform    string `db:"platform"`
	AccountName string `db:"account_name"`
	ProviderID  string `db:"provider_id"`
	DisplayName string `db:"display_name"`
	OwnerName   string `db:"owner_name"`
	AccessRole  string `db:"access_role"`
}

func (c Calendar) Convert() internal.Account {
	return internal.Account{
		ID:          c.ID,
		DisplayName: c.DisplayName,
		AccountName: c.AccountName,
		OwnerName:   c.OwnerName,
		Platform:    c.Platform,
		ProviderID:  c.ProviderID,
		AccessRole:  c.AccessRole,
	}
}

type Account struct {
	ID   string `db:"id"`
	Auth string `db:"auth"`
}

func (a Account) Convert() internal.Credential {
	cred := internal.Credential{
		Auth: a.Auth,
	}
	cred.Platform, cred.Name, _ = strings.Cut(a.ID, "/")
	return cred
}
