package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
)

type recordingCallbacks struct {
	becameLeader   int
	becameFollower int
	leaderChanges  []string
}

func (r *recordingCallbacks) OnBecameLeader() {
	r.becameLeader++
}

func (r *recordingCallbacks) OnBecameFollower() {
	r.becameFollower++
}

func (r *recordingCallbacks) OnLeaderChanged(leaderID string) {
	r.leaderChanges = append(r.leaderChanges, leaderID)
}

func newTestState(id string, cb Callbacks) (*ElectionState, *cluster.Device) {
	device := cluster.NewDevice(id)
	return NewElectionState(device, 5*time.Second, cb), device
}

func TestVotesNeeded(t *testing.T) {
	cases := []struct {
		total  int
		needed int
	}{
		{total: 1, needed: 1},
		{total: 2, needed: 2},
		{total: 3, needed: 2},
		{total: 4, needed: 3},
		{total: 5, needed: 3},
		{total: 7, needed: 4},
	}

	for _, c := range cases {
		assert.Equal(t, c.needed, VotesNeeded(c.total), "total=%d", c.total)
	}
}

func TestStartElection(t *testing.T) {
	es, _ := newTestState("a", nil)

	term := es.StartElection()

	assert.Equal(t, 1, term)
	assert.Equal(t, Candidate, es.state)
	assert.Equal(t, "a", es.votedFor)
}

func TestBecomeLeaderSideEffects(t *testing.T) {
	cb := &recordingCallbacks{}
	es, device := newTestState("a", cb)

	es.StartElection()
	es.BecomeLeader()

	snap := es.GetState()
	assert.Equal(t, Leader, snap.State)
	assert.Equal(t, "a", snap.CurrentLeader)
	assert.Equal(t, cluster.RoleCoordinator, device.Role())
	assert.Equal(t, 1, cb.becameLeader)
}

func TestBecomeLeaderRequiresCandidacy(t *testing.T) {
	cb := &recordingCallbacks{}
	es, device := newTestState("a", cb)

	es.BecomeLeader()

	assert.Equal(t, Follower, es.GetState().State)
	assert.Equal(t, cluster.RoleWorker, device.Role())
	assert.Zero(t, cb.becameLeader)
}

func TestStepDownFromLeader(t *testing.T) {
	cb := &recordingCallbacks{}
	es, device := newTestState("a", cb)

	es.StartElection()
	es.BecomeLeader()
	es.StepDown()

	assert.Equal(t, Follower, es.GetState().State)
	assert.Equal(t, cluster.RoleWorker, device.Role())
	assert.Equal(t, 1, cb.becameFollower)
}

func TestStepDownFromCandidateSkipsFollowerHook(t *testing.T) {
	cb := &recordingCallbacks{}
	es, _ := newTestState("a", cb)

	es.StartElection()
	es.StepDown()

	assert.Equal(t, Follower, es.GetState().State)
	assert.Zero(t, cb.becameFollower)
}

func TestHandleVoteRequestGrantsFirstCandidate(t *testing.T) {
	es, _ := newTestState("a", nil)

	resp := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 1})

	assert.True(t, resp.VoteGranted)
	assert.Equal(t, 1, resp.Term)
	assert.Equal(t, "a", resp.VoterID)
}

func TestAtMostOneVotePerTerm(t *testing.T) {
	es, _ := newTestState("a", nil)

	first := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 1})
	require.True(t, first.VoteGranted)

	other := es.HandleVoteRequest(VoteRequest{CandidateID: "c", Term: 1})
	assert.False(t, other.VoteGranted)
	assert.Equal(t, 1, other.Term)

	// A retried RPC from the same candidate is granted again.
	retry := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 1})
	assert.True(t, retry.VoteGranted)
}

func TestStaleTermRejection(t *testing.T) {
	es, _ := newTestState("a", nil)
	require.True(t, es.ObserveTerm(5))

	resp := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 3})

	assert.False(t, resp.VoteGranted)
	assert.Equal(t, 5, resp.Term)

	snap := es.GetState()
	assert.Equal(t, Follower, snap.State)
	assert.Equal(t, 5, snap.CurrentTerm)
}

func TestHigherTermVoteRequestPreemptsLeader(t *testing.T) {
	cb := &recordingCallbacks{}
	es, device := newTestState("a", cb)

	es.StartElection()
	es.BecomeLeader()

	resp := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 10})

	assert.True(t, resp.VoteGranted)
	assert.Equal(t, 10, resp.Term)

	snap := es.GetState()
	assert.Equal(t, Follower, snap.State)
	assert.Equal(t, 10, snap.CurrentTerm)
	assert.Equal(t, cluster.RoleWorker, device.Role())
	assert.Equal(t, 1, cb.becameFollower)
}

func TestHigherTermHeartbeatPreemptsLeader(t *testing.T) {
	cb := &recordingCallbacks{}
	es, device := newTestState("a", cb)

	es.StartElection()
	es.BecomeLeader()

	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 7, Timestamp: time.Now()})

	snap := es.GetState()
	assert.Equal(t, Follower, snap.State)
	assert.Equal(t, 7, snap.CurrentTerm)
	assert.Equal(t, "b", snap.CurrentLeader)
	assert.Equal(t, cluster.RoleWorker, device.Role())
	assert.Equal(t, []string{"b"}, cb.leaderChanges)
}

func TestStaleHeartbeatIgnored(t *testing.T) {
	cb := &recordingCallbacks{}
	es, _ := newTestState("a", cb)
	require.True(t, es.ObserveTerm(5))

	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 3, Timestamp: time.Now()})

	snap := es.GetState()
	assert.Equal(t, 5, snap.CurrentTerm)
	assert.Empty(t, snap.CurrentLeader)
	assert.Empty(t, cb.leaderChanges)
}

func TestHeartbeatLeaderChangeFiresOnce(t *testing.T) {
	cb := &recordingCallbacks{}
	es, _ := newTestState("a", cb)

	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 1, Timestamp: time.Now()})
	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 1, Timestamp: time.Now()})

	assert.Equal(t, []string{"b"}, cb.leaderChanges)
}

func TestTermMonotonicity(t *testing.T) {
	es, _ := newTestState("a", nil)

	terms := []int{es.CurrentTerm()}
	record := func() {
		terms = append(terms, es.CurrentTerm())
	}

	es.StartElection()
	record()
	es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 0})
	record()
	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 0, Timestamp: time.Now()})
	record()
	es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 4})
	record()
	es.ObserveTerm(2)
	record()
	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "c", Term: 9, Timestamp: time.Now()})
	record()
	es.StepDown()
	record()
	es.StartElection()
	record()

	for i := 1; i < len(terms); i++ {
		assert.GreaterOrEqual(t, terms[i], terms[i-1], "term decreased at step %d: %v", i, terms)
	}
}

func TestVotedForClearedOnTermAdoption(t *testing.T) {
	es, _ := newTestState("a", nil)

	granted := es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 1})
	require.True(t, granted.VoteGranted)

	// A higher-term candidate gets a fresh vote even though b holds term 1's.
	resp := es.HandleVoteRequest(VoteRequest{CandidateID: "c", Term: 2})
	assert.True(t, resp.VoteGranted)
	assert.Equal(t, 2, resp.Term)
}

func TestTimeoutDetection(t *testing.T) {
	es, _ := newTestState("a", nil)

	current := time.Now()
	es.now = func() time.Time { return current }

	es.ResetElectionTimer()
	assert.False(t, es.IsElectionTimedOut())

	current = current.Add(es.randomizedTimeout + time.Millisecond)
	assert.True(t, es.IsElectionTimedOut())
}

func TestRandomizedTimeoutWindow(t *testing.T) {
	es, _ := newTestState("a", nil)

	for i := 0; i < 100; i++ {
		es.ResetElectionTimer()
		assert.GreaterOrEqual(t, es.randomizedTimeout, es.baseTimeout)
		assert.Less(t, es.randomizedTimeout, 2*es.baseTimeout)
	}
}

func TestGrantedVoteResetsTimer(t *testing.T) {
	es, _ := newTestState("a", nil)

	current := time.Now()
	es.now = func() time.Time { return current }
	es.ResetElectionTimer()

	current = current.Add(es.randomizedTimeout + time.Millisecond)
	require.True(t, es.IsElectionTimedOut())

	es.HandleVoteRequest(VoteRequest{CandidateID: "b", Term: 1})
	assert.False(t, es.IsElectionTimedOut())
}

func TestHeartbeatResetsTimer(t *testing.T) {
	es, _ := newTestState("a", nil)

	current := time.Now()
	es.now = func() time.Time { return current }
	es.ResetElectionTimer()

	current = current.Add(es.randomizedTimeout + time.Millisecond)
	require.True(t, es.IsElectionTimedOut())

	es.HandleHeartbeat(HeartbeatMessage{LeaderID: "b", Term: 0, Timestamp: current})
	assert.False(t, es.IsElectionTimedOut())
}
