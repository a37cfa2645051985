package election

import (
	"context"
	"sync"
	"time"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
	"github.com/sdow11/live-ad-detection-sub000/shared/logging"
)

// Coordinator owns the election state machine and the live peer set, runs
// the election-timeout watchdog and the leader heartbeat broadcaster, and
// fans vote requests and heartbeats out to peers over HTTP.
type Coordinator struct {
	cfg   Config
	state *ElectionState
	tr    *transport

	mu    sync.Mutex
	peers map[string]cluster.Peer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(cfg Config, device *cluster.Device, cb Callbacks) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		cfg:    cfg,
		state:  NewElectionState(device, cfg.ElectionTimeoutBase, cb),
		tr:     newTransport(),
		peers:  make(map[string]cluster.Peer),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, p := range cfg.Peers {
		c.peers[p.DeviceID] = p
	}

	return c, nil
}

// Start launches the watchdog and heartbeat loops.
func (c *Coordinator) Start() {
	c.wg.Add(2)
	go c.electionLoop()
	go c.heartbeatLoop()
}

// Stop cancels both loops and waits for any in-flight round to finish.
// Outstanding RPCs are released by their own deadlines.
func (c *Coordinator) Stop() {
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) electionLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !c.state.IsLeader() && c.state.IsElectionTimedOut() {
				c.runElection()
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// runElection performs one canvassing round: start a fresh term, broadcast
// vote requests to a snapshot of the peer set, tally, and either step up or
// fall back to follower so the next timeout retries with fresh jitter.
func (c *Coordinator) runElection() {
	term := c.state.StartElection()
	peers := c.peerSnapshot()

	// A device with no known peers is trivially a quorum of one.
	if len(peers) == 0 {
		c.state.BecomeLeader()
		return
	}

	req := VoteRequest{CandidateID: c.cfg.DeviceID, Term: term}

	var (
		tallyMu sync.Mutex
		granted = 1 // self
	)

	wg := sync.WaitGroup{}

	for _, p := range peers {
		wg.Add(1)

		go func(p cluster.Peer) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.VoteRPCTimeout)
			defer cancel()

			resp, err := c.tr.requestVote(ctx, p, req)
			if err != nil {
				logging.Debugf("%s vote request to %s failed: %v", c.cfg.DeviceID, p.DeviceID, err)
				return
			}

			if c.state.ObserveTerm(resp.Term) {
				logging.Infof("%s abandoning candidacy, %s is already at term %d",
					c.cfg.DeviceID, resp.VoterID, resp.Term)
				return
			}

			if resp.VoteGranted {
				tallyMu.Lock()
				granted++
				tallyMu.Unlock()
			}
		}(p)
	}

	wg.Wait()

	needed := VotesNeeded(len(peers) + 1)

	if granted >= needed {
		logging.Infof("%s won election for term %d with %d/%d votes",
			c.cfg.DeviceID, term, granted, len(peers)+1)
		c.state.BecomeLeader()
	} else {
		logging.Infof("%s lost election for term %d with %d/%d votes (needed %d)",
			c.cfg.DeviceID, term, granted, len(peers)+1, needed)
		c.state.StepDown()
	}
}

func (c *Coordinator) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.state.IsLeader() {
				c.broadcastHeartbeat()
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// broadcastHeartbeat is fire and forget: failures are logged and the next
// tick resends.
func (c *Coordinator) broadcastHeartbeat() {
	hb := HeartbeatMessage{
		LeaderID:  c.cfg.DeviceID,
		Term:      c.state.CurrentTerm(),
		Timestamp: time.Now().UTC(),
	}

	wg := sync.WaitGroup{}

	for _, p := range c.peerSnapshot() {
		wg.Add(1)

		go func(p cluster.Peer) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.HeartbeatRPCTimeout)
			defer cancel()

			if err := c.tr.sendHeartbeat(ctx, p, hb); err != nil {
				logging.Debugf("%s heartbeat to %s failed: %v", c.cfg.DeviceID, p.DeviceID, err)
			}
		}(p)
	}

	wg.Wait()
}

// OnPeerDiscovered is fed by the discovery layer when a device joins.
func (c *Coordinator) OnPeerDiscovered(p cluster.Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.peers[p.DeviceID] = p
	logging.Infof("%s discovered peer %s at %s", c.cfg.DeviceID, p.DeviceID, p.Addr())
}

// OnPeerUpdated replaces a peer's address record.
func (c *Coordinator) OnPeerUpdated(p cluster.Peer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.peers[p.DeviceID] = p
	logging.Infof("%s updated peer %s to %s", c.cfg.DeviceID, p.DeviceID, p.Addr())
}

// OnPeerRemoved drops a departed peer. Losing the current leader here does
// not trigger failover by itself; only the election timeout does, so a
// transient discovery blip cannot force a spurious election.
func (c *Coordinator) OnPeerRemoved(deviceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.peers, deviceID)
	logging.Infof("%s removed peer %s", c.cfg.DeviceID, deviceID)
}

func (c *Coordinator) peerSnapshot() []cluster.Peer {
	c.mu.Lock()
	defer c.mu.Unlock()

	peers := make([]cluster.Peer, 0, len(c.peers))
	for _, p := range c.peers {
		peers = append(peers, p)
	}

	return peers
}

// HandleVoteRequest is the inbound RPC entry point for /election/vote.
func (c *Coordinator) HandleVoteRequest(req VoteRequest) VoteResponse {
	return c.state.HandleVoteRequest(req)
}

// HandleHeartbeat is the inbound RPC entry point for /election/heartbeat.
func (c *Coordinator) HandleHeartbeat(hb HeartbeatMessage) {
	c.state.HandleHeartbeat(hb)
}

func (c *Coordinator) GetState() StateSnapshot {
	return c.state.GetState()
}

func (c *Coordinator) IsLeader() bool {
	return c.state.IsLeader()
}

// StatusReport is the payload served on /election/status.
type StatusReport struct {
	DeviceID      string `json:"device_id"`
	State         State  `json:"state"`
	CurrentTerm   int    `json:"current_term"`
	CurrentLeader string `json:"current_leader"`
	PeerCount     int    `json:"peer_count"`
}

func (c *Coordinator) Status() StatusReport {
	snap := c.state.GetState()

	c.mu.Lock()
	peerCount := len(c.peers)
	c.mu.Unlock()

	return StatusReport{
		DeviceID:      c.cfg.DeviceID,
		State:         snap.State,
		CurrentTerm:   snap.CurrentTerm,
		CurrentLeader: snap.CurrentLeader,
		PeerCount:     peerCount,
	}
}
