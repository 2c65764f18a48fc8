package viewmodel

import "github.com/guilherme-santos/calmanager/internal"

type Status int

const (
	Loading Status = iota
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// FetchState is the outcome of the last account listing. Accounts is only
// meaningful on Success and Err only on Error.
type FetchState struct {
	Status   Status
	Accounts []internal.Account
	Err      error
}

func LoadingState() FetchState {
	return FetchState{Status: Loading}
}

func SuccessState(accs []internal.Account) FetchState {
	return FetchState{Status: Success, Accounts: accs}
}

func ErrorState(err error) FetchState {
	return FetchState{Status: Error, Err: err}
}
