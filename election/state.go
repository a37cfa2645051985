package election

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
	"github.com/sdow11/live-ad-detection-sub000/shared/logging"
)

type State string

const (
	Follower  State = "follower"
	Candidate State = "candidate"
	Leader    State = "leader"
)

// StateSnapshot is the externally visible view of the state machine.
type StateSnapshot struct {
	State         State  `json:"state"`
	CurrentTerm   int    `json:"current_term"`
	CurrentLeader string `json:"current_leader"`
}

// ElectionState holds one device's view of the current election: term, vote,
// leader and role. Every transition is a deterministic function of a message
// or a timeout; all network I/O lives in the Coordinator. A single mutex
// serializes the watchdog loop, the heartbeat loop and inbound RPC handlers.
type ElectionState struct {
	mu sync.Mutex

	id     string
	device *cluster.Device

	state         State
	currentTerm   int
	votedFor      string
	currentLeader string

	lastHeartbeat     time.Time
	baseTimeout       time.Duration
	randomizedTimeout time.Duration

	callbacks Callbacks
	rng       *rand.Rand
	now       func() time.Time
}

func NewElectionState(device *cluster.Device, baseTimeout time.Duration, cb Callbacks) *ElectionState {
	if cb == nil {
		cb = NopCallbacks{}
	}

	es := &ElectionState{
		id:          device.ID(),
		device:      device,
		state:       Follower,
		baseTimeout: baseTimeout,
		callbacks:   cb,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
	es.resetTimerLocked()

	return es
}

// StartElection moves to candidate for a fresh term, voting for itself.
// It returns the new term so the caller can canvass against a stable value.
func (es *ElectionState) StartElection() int {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.currentTerm++
	es.votedFor = es.id
	es.state = Candidate
	es.resetTimerLocked()

	logging.Infof("%s starting election for term %d", es.id, es.currentTerm)

	return es.currentTerm
}

// BecomeLeader records a quorum win for the current term. It is a no-op when
// the candidacy was already abandoned because a higher term arrived mid-round.
func (es *ElectionState) BecomeLeader() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.state != Candidate {
		return
	}

	es.state = Leader
	es.currentLeader = es.id
	es.device.SetRole(cluster.RoleCoordinator)

	logging.Infof("%s became leader for term %d", es.id, es.currentTerm)

	es.callbacks.OnBecameLeader()
}

// StepDown returns to follower, demoting the device role if it was leading.
func (es *ElectionState) StepDown() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.stepDownLocked()
}

func (es *ElectionState) stepDownLocked() {
	wasLeader := es.state == Leader

	es.state = Follower
	es.resetTimerLocked()

	if wasLeader {
		es.device.SetRole(cluster.RoleWorker)
		logging.Infof("%s stepping down from leader at term %d", es.id, es.currentTerm)
		es.callbacks.OnBecameFollower()
	}
}

// adoptTermLocked moves to a newer term observed in a peer message. The vote
// for the old term does not carry over.
func (es *ElectionState) adoptTermLocked(term int) {
	es.currentTerm = term
	es.votedFor = ""

	if es.state != Follower {
		es.stepDownLocked()
	}
}

// ObserveTerm adopts a higher term reported by a vote response and reports
// whether the candidacy was abandoned because of it.
func (es *ElectionState) ObserveTerm(term int) bool {
	es.mu.Lock()
	defer es.mu.Unlock()

	if term <= es.currentTerm {
		return false
	}

	es.adoptTermLocked(term)

	return true
}

// HandleVoteRequest applies a peer's vote request and always produces a
// response. Stale candidates are denied, a higher term is adopted regardless
// of the vote outcome, and within a term at most one candidate is granted;
// re-granting the same candidate is allowed so retried RPCs stay idempotent.
func (es *ElectionState) HandleVoteRequest(req VoteRequest) VoteResponse {
	es.mu.Lock()
	defer es.mu.Unlock()

	if req.Term < es.currentTerm {
		logging.Debugf("%s denying stale vote request from %s (term %d < %d)",
			es.id, req.CandidateID, req.Term, es.currentTerm)
		return VoteResponse{Term: es.currentTerm, VoteGranted: false, VoterID: es.id}
	}

	if req.Term > es.currentTerm {
		es.adoptTermLocked(req.Term)
	}

	if es.votedFor == "" || es.votedFor == req.CandidateID {
		es.votedFor = req.CandidateID
		// A granted vote is evidence of a live candidate, so the timeout
		// must not fire immediately after.
		es.resetTimerLocked()

		logging.Infof("%s voting for %s in term %d", es.id, req.CandidateID, es.currentTerm)

		return VoteResponse{Term: es.currentTerm, VoteGranted: true, VoterID: es.id}
	}

	logging.Debugf("%s already voted for %s in term %d, denying %s",
		es.id, es.votedFor, es.currentTerm, req.CandidateID)

	return VoteResponse{Term: es.currentTerm, VoteGranted: false, VoterID: es.id}
}

// HandleHeartbeat applies a leader liveness signal. A heartbeat at the
// current or a newer term suppresses the election timeout; a stale one is
// ignored entirely.
func (es *ElectionState) HandleHeartbeat(hb HeartbeatMessage) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if hb.Term < es.currentTerm {
		logging.Debugf("%s ignoring stale heartbeat from %s (term %d < %d)",
			es.id, hb.LeaderID, hb.Term, es.currentTerm)
		return
	}

	if hb.Term > es.currentTerm {
		es.adoptTermLocked(hb.Term)
	}

	if hb.LeaderID != es.currentLeader {
		es.currentLeader = hb.LeaderID
		logging.Infof("%s sees leader %s at term %d", es.id, hb.LeaderID, es.currentTerm)
		es.callbacks.OnLeaderChanged(hb.LeaderID)
	}

	es.resetTimerLocked()
}

// ResetElectionTimer stamps leader contact and resamples the jitter window.
func (es *ElectionState) ResetElectionTimer() {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.resetTimerLocked()
}

// Timeouts are uniform in [base, 2*base) so that two followers rarely expire
// on the same tick and split the vote.
func (es *ElectionState) resetTimerLocked() {
	es.lastHeartbeat = es.now()
	es.randomizedTimeout = es.baseTimeout + time.Duration(es.rng.Int63n(int64(es.baseTimeout)))
}

// IsElectionTimedOut reports whether leader contact has been quiet for longer
// than the sampled timeout. It never mutates state.
func (es *ElectionState) IsElectionTimedOut() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.now().Sub(es.lastHeartbeat) > es.randomizedTimeout
}

// VotesNeeded returns the strict majority of a cluster of the given size.
func VotesNeeded(totalDevices int) int {
	return totalDevices/2 + 1
}

func (es *ElectionState) GetState() StateSnapshot {
	es.mu.Lock()
	defer es.mu.Unlock()

	return StateSnapshot{
		State:         es.state,
		CurrentTerm:   es.currentTerm,
		CurrentLeader: es.currentLeader,
	}
}

func (es *ElectionState) IsLeader() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.state == Leader
}

func (es *ElectionState) CurrentTerm() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.currentTerm
}
