package election

import "time"

// VoteRequest is broadcast by a candidate to every known peer during a
// canvassing round. The log fields are always zero in this protocol; they
// are reserved for wire compatibility with full Raft peers.
type VoteRequest struct {
	CandidateID  string `json:"candidate_id"`
	Term         int    `json:"term"`
	LastLogIndex int    `json:"last_log_index"`
	LastLogTerm  int    `json:"last_log_term"`
}

// VoteResponse carries the responder's term after processing, so a candidate
// that is behind learns about it even on a denial.
type VoteResponse struct {
	Term        int    `json:"term"`
	VoteGranted bool   `json:"vote_granted"`
	VoterID     string `json:"voter_id"`
}

// HeartbeatMessage is the leader's periodic liveness broadcast.
type HeartbeatMessage struct {
	LeaderID  string    `json:"leader_id"`
	Term      int       `json:"term"`
	Timestamp time.Time `json:"timestamp"`
}

type heartbeatAck struct {
	Status string `json:"status"`
}
