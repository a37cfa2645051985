package election

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/sdow11/live-ad-detection-sub000/cluster"
)

// Config carries the election tunables. Zero or negative durations are
// rejected at startup; use LoadConfig or DefaultConfig rather than building
// one by hand.
type Config struct {
	DeviceID            string
	BindAddr            string
	LogLevel            string
	ElectionTimeoutBase time.Duration
	HeartbeatInterval   time.Duration
	VoteRPCTimeout      time.Duration
	HeartbeatRPCTimeout time.Duration
	PollInterval        time.Duration
	Peers               []cluster.Peer
}

func DefaultConfig() Config {
	return Config{
		DeviceID:            uuid.NewString(),
		BindAddr:            ":8700",
		LogLevel:            "info",
		ElectionTimeoutBase: 5 * time.Second,
		HeartbeatInterval:   time.Second,
		VoteRPCTimeout:      2 * time.Second,
		HeartbeatRPCTimeout: time.Second,
		PollInterval:        500 * time.Millisecond,
	}
}

// LoadConfig reads the optional YAML config file plus environment overrides
// (DEVICE_ID, BIND_ADDR, ELECTION_TIMEOUT_BASE, HEARTBEAT_INTERVAL,
// VOTE_RPC_TIMEOUT, HEARTBEAT_RPC_TIMEOUT, POLL_INTERVAL, PEERS).
func LoadConfig(configFilePath string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("device.id", def.DeviceID)
	v.SetDefault("bind.addr", def.BindAddr)
	v.SetDefault("log.level", def.LogLevel)
	v.SetDefault("election.timeout.base", def.ElectionTimeoutBase)
	v.SetDefault("heartbeat.interval", def.HeartbeatInterval)
	v.SetDefault("vote.rpc.timeout", def.VoteRPCTimeout)
	v.SetDefault("heartbeat.rpc.timeout", def.HeartbeatRPCTimeout)
	v.SetDefault("poll.interval", def.PollInterval)
	v.SetDefault("peers", "")

	if configFilePath != "" {
		v.SetConfigFile(configFilePath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", configFilePath)
		}
	}

	cfg := Config{
		DeviceID:            v.GetString("device.id"),
		BindAddr:            v.GetString("bind.addr"),
		LogLevel:            v.GetString("log.level"),
		ElectionTimeoutBase: v.GetDuration("election.timeout.base"),
		HeartbeatInterval:   v.GetDuration("heartbeat.interval"),
		VoteRPCTimeout:      v.GetDuration("vote.rpc.timeout"),
		HeartbeatRPCTimeout: v.GetDuration("heartbeat.rpc.timeout"),
		PollInterval:        v.GetDuration("poll.interval"),
	}

	for _, entry := range strings.Split(v.GetString("peers"), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		peer, err := cluster.ParsePeer(entry)
		if err != nil {
			return Config{}, errors.Wrap(err, "static peer list")
		}

		cfg.Peers = append(cfg.Peers, peer)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configurations that would stall or spin the loops.
func (c Config) Validate() error {
	if c.DeviceID == "" {
		return errors.New("device id is required")
	}
	if c.ElectionTimeoutBase <= 0 {
		return errors.Errorf("election timeout base must be positive, got %v", c.ElectionTimeoutBase)
	}
	if c.HeartbeatInterval <= 0 {
		return errors.Errorf("heartbeat interval must be positive, got %v", c.HeartbeatInterval)
	}
	if c.VoteRPCTimeout <= 0 {
		return errors.Errorf("vote rpc timeout must be positive, got %v", c.VoteRPCTimeout)
	}
	if c.HeartbeatRPCTimeout <= 0 {
		return errors.Errorf("heartbeat rpc timeout must be positive, got %v", c.HeartbeatRPCTimeout)
	}
	if c.PollInterval <= 0 {
		return errors.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}

	return nil
}
