package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		NodeName:             "alice",
		NodePort:             5000,
		DataDir:              "./data",
		LogLevel:             "INFO",
		TeamTag:              "CryptoCrafters",
		DiscoveryEnabled:     true,
		DiscoveryPort:        54545,
		BroadcastAddress:     "255.255.255.255",
		BroadcastInterval:    5 * time.Second,
		DiscoveryDedupWindow: 10 * time.Second,
		LivenessInterval:     10 * time.Second,
		ProbeTimeout:         5 * time.Second,
		ProbeAttempts:        3,
		ProbeBackoff:         time.Second,
		ProbeConcurrency:     8,
		DialTimeout:          5 * time.Second,
		MaxFrameSize:         65536,
		RestartInterval:      200 * time.Millisecond,
	}
}

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config
	err := env.Unmarshal(env.EnvSet{"NODE_NAME": "alice", "NODE_PORT": "5000"}, &config)
	req.NoError(err)

	req.Equal(validConfig(), config)
	req.NoError(config.Validate())
	req.Equal("255.255.255.255:54545", config.BroadcastTarget())
}

func TestConfig_Missing_Identity_Is_Rejected(t *testing.T) {
	req := require.New(t)
	var config Config
	err := env.Unmarshal(env.EnvSet{}, &config)
	req.NoError(err)
	req.Error(config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port out of range", func(c *Config) { c.NodePort = 70000 }},
		{"name with separator", func(c *Config) { c.NodeName = "al:ice" }},
		{"team tag with space", func(c *Config) { c.TeamTag = "Crypto Crafters" }},
		{"team tag with tab", func(c *Config) { c.TeamTag = "Crypto\tCrafters" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "TRACE" }},
		{"broadcast not an ip", func(c *Config) { c.BroadcastAddress = "lan" }},
		{"advertise not an ip", func(c *Config) { c.AdvertiseIP = "host.local" }},
		{"missing name", func(c *Config) { c.NodeName = "" }},
		{"no probe attempt", func(c *Config) { c.ProbeAttempts = 0 }},
		{"inspector on node port", func(c *Config) { c.InspectPort = 5000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestConfig_Team_Tag_Accepts_Any_Non_Space_Rune(t *testing.T) {
	for _, tag := range []string{"team2", "x0x2", "Crypto-Crafters", "équipe"} {
		t.Run(tag, func(t *testing.T) {
			config := validConfig()
			config.TeamTag = tag
			require.NoError(t, config.Validate())
		})
	}
}
