package graph

// Listener receives fire-and-forget notifications after a store mutation
// has committed. The presentation layer subscribes to mirror graph state;
// no return value is expected and listeners must not call back into the
// store synchronously from a notification.
type Listener interface {
	OnNodeAdded(node Node)
	OnNodeRemoved(node Node)
	OnNodeUpdated(node Node)
	OnEdgeAdded(edge Edge)
	OnEdgeRemoved(edge Edge)
}

// ListenerFuncs adapts a set of optional funcs to the Listener interface.
// Nil fields are skipped.
type ListenerFuncs struct {
	NodeAdded   func(node Node)
	NodeRemoved func(node Node)
	NodeUpdated func(node Node)
	EdgeAdded   func(edge Edge)
	EdgeRemoved func(edge Edge)
}

var _ Listener = (*ListenerFuncs)(nil)

// OnNodeAdded implements Listener.
func (f *ListenerFuncs) OnNodeAdded(node Node) {
	if f.NodeAdded != nil {
		f.NodeAdded(node)
	}
}

// OnNodeRemoved implements Listener.
func (f *ListenerFuncs) OnNodeRemoved(node Node) {
	if f.NodeRemoved != nil {
		f.NodeRemoved(node)
	}
}

// OnNodeUpdated implements Listener.
func (f *ListenerFuncs) OnNodeUpdated(node Node) {
	if f.NodeUpdated != nil {
		f.NodeUpdated(node)
	}
}

// OnEdgeAdded implements Listener.
func (f *ListenerFuncs) OnEdgeAdded(edge Edge) {
	if f.EdgeAdded != nil {
		f.EdgeAdded(edge)
	}
}

// OnEdgeRemoved implements Listener.
func (f *ListenerFuncs) OnEdgeRemoved(edge Edge) {
	if f.EdgeRemoved != nil {
		f.EdgeRemoved(edge)
	}
}

// AddListener subscribes a listener to store mutations.
func (s *Store) AddListener(l Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RemoveListener unsubscribes a previously added listener.
func (s *Store) RemoveListener(l Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// notify calls fn for each registered listener. Notifications run after
// the mutation committed and outside the store lock.
func (s *Store) notify(fn func(Listener)) {
	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()

	for _, l := range listeners {
		fn(l)
	}
}
