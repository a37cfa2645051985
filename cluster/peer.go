package cluster

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Peer is a reachable cluster member as reported by discovery.
type Peer struct {
	DeviceID  string `json:"device_id"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
}

func (p Peer) Addr() string {
	return net.JoinHostPort(p.IPAddress, strconv.Itoa(p.Port))
}

// ParsePeer parses a "device_id@host:port" entry from the static peer list.
func ParsePeer(s string) (Peer, error) {
	at := strings.Index(s, "@")
	if at <= 0 {
		return Peer{}, fmt.Errorf("peer %q: want device_id@host:port", s)
	}

	host, portStr, err := net.SplitHostPort(s[at+1:])
	if err != nil {
		return Peer{}, fmt.Errorf("peer %q: %v", s, err)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return Peer{}, fmt.Errorf("peer %q: bad port %q", s, portStr)
	}

	return Peer{DeviceID: s[:at], IPAddress: host, Port: port}, nil
}
