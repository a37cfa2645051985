package election

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
)

// transport performs the HTTP+JSON fan-out against peers. Every call carries
// its own deadline via the passed context; callers treat any returned error
// as "no response" and never retry within the round.
type transport struct {
	client *http.Client
}

func newTransport() *transport {
	return &transport{client: &http.Client{}}
}

func (t *transport) requestVote(ctx context.Context, peer cluster.Peer, req VoteRequest) (VoteResponse, error) {
	var resp VoteResponse
	if err := t.post(ctx, peer, "/election/vote", req, &resp); err != nil {
		return VoteResponse{}, err
	}
	return resp, nil
}

func (t *transport) sendHeartbeat(ctx context.Context, peer cluster.Peer, hb HeartbeatMessage) error {
	var ack heartbeatAck
	return t.post(ctx, peer, "/election/heartbeat", hb, &ack)
}

func (t *transport) post(ctx context.Context, peer cluster.Peer, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encoding request body")
	}

	url := fmt.Sprintf("http://%s%s", peer.Addr(), path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "building request for %s", peer.DeviceID)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("%s returned status %d", peer.DeviceID, res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(out)
}
