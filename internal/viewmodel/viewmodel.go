// Package viewmodel owns the observable list of calendar accounts and
// proxies deletions to the calendar source.
package viewmodel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/guilherme-santos/calmanager/internal"
)

const fetchKey = "accounts"

type ViewModel struct {
	source internal.Source
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.Mutex
	state   FetchState
	started uint64 // fetches started
	applied uint64 // fetch whose result is published
	floor   uint64 // fetches up to this one started before a deletion
	subs    map[*subscriber]struct{}
}

func New(source internal.Source, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		source: source,
		logger: logger,
		state:  LoadingState(),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (vm *ViewModel) State() FetchState {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.state
}

// FetchIfError lists the accounts unless the last listing succeeded.
// Callers arriving while a listing is outstanding share its result.
func (vm *ViewModel) FetchIfError(ctx context.Context) FetchState {
	if st := vm.State(); st.Status == Success {
		return st
	}
	v, _, _ := vm.group.Do(fetchKey, func() (any, error) {
		return vm.fetch(ctx), nil
	})
	return v.(FetchState)
}

// Delete removes the account from the source and then lists the accounts
// again. The published list only changes once that listing is done; when
// the deletion fails nothing is published and the error is returned.
func (vm *ViewModel) Delete(ctx context.Context, id int64) (FetchState, error) {
	vm.logger.Info("deleting calendar account", zap.Int64("account_id", id))

	err := vm.source.DeleteAccount(ctx, id)
	if err != nil {
		vm.logger.Error("unable to delete calendar account", zap.Int64("account_id", id), zap.Error(err))
		return vm.State(), fmt.Errorf("deleting account %d: %w", id, err)
	}

	// Listings started before the deletion may still be running. Their
	// results are stale: do not join them and never publish them.
	vm.mu.Lock()
	vm.floor = vm.started
	vm.mu.Unlock()
	vm.group.Forget(fetchKey)
	v, _, _ := vm.group.Do(fetchKey, func() (any, error) {
		return vm.fetch(ctx), nil
	})
	return v.(FetchState), nil
}

func (vm *ViewModel) fetch(ctx context.Context) FetchState {
	vm.mu.Lock()
	vm.started++
	seq := vm.started
	if vm.state.Status == Error {
		vm.publishLocked(LoadingState())
	}
	vm.mu.Unlock()

	accs, err := vm.source.ListAccounts(ctx)
	st := SuccessState(accs)
	if err != nil {
		vm.logger.Error("unable to list calendar accounts", zap.Error(err))
		st = ErrorState(err)
	} else {
		vm.logger.Debug("calendar accounts listed", zap.Int("count", len(accs)))
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if seq <= vm.floor || seq < vm.applied {
		// A newer listing already published, or a deletion happened since
		// this one started.
		return vm.state
	}
	vm.applied = seq
	vm.publishLocked(st)
	return st
}
