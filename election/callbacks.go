package election

// Callbacks receives role-transition notifications. Hooks run synchronously
// on the transition path with the state machine lock held: they must return
// quickly and must not call back into the election API.
type Callbacks interface {
	OnBecameLeader()
	OnBecameFollower()
	OnLeaderChanged(leaderID string)
}

// NopCallbacks satisfies Callbacks for components that don't need hooks.
type NopCallbacks struct{}

func (NopCallbacks) OnBecameLeader() {}

func (NopCallbacks) OnBecameFollower() {}

func (NopCallbacks) OnLeaderChanged(string) {}
