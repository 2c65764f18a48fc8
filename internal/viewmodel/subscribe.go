package viewmodel

type subscriber struct {
	ch chan FetchState
}

// Subscribe returns a channel receiving every state published from now on,
// starting with the current one. A subscriber that falls behind only misses
// intermediate states: the latest one is always delivered.
func (vm *ViewModel) Subscribe() (<-chan FetchState, func()) {
	sub := &subscriber{ch: make(chan FetchState, 1)}

	vm.mu.Lock()
	vm.subs[sub] = struct{}{}
	sub.ch <- vm.state
	vm.mu.Unlock()

	cancel := func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		if _, ok := vm.subs[sub]; ok {
			delete(vm.subs, sub)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

func (vm *ViewModel) publishLocked(st FetchState) {
	vm.state = st
	for sub := range vm.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- st
	}
}
