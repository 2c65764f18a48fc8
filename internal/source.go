package internal

import (
	"context"
	"errors"
)

var (
	ErrAccountNotFound = errors.New("calendar account not found")
	ErrNotGranted      = errors.New("access to calendars was not granted")
)

type Source interface {
	ListAccounts(context.Context) ([]Account, error)
	DeleteAccount(_ context.Context, id int64) error
}

// Gate reports whether the user allowed access to the calendars of a
// source. Nothing is fetched before it does.
type Gate interface {
	Granted(context.Context) (bool, error)
}

type Mux interface {
	Get(platform string) (Source, error)
}

// GrantedSource is a source whose access is always granted.
type GrantedSource struct {
	Source
}

func (GrantedSource) Granted(context.Context) (bool, error) {
	return true, nil
}
