package internal

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// The team tag travels as a space-delimited field of every frame.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nospace", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsSpace)
	})
	return v
}

type Config struct {
	NodeName    string `env:"NODE_NAME" validate:"required,max=64,excludes=:"`
	NodePort    int    `env:"NODE_PORT" validate:"min=1,max=65535"`
	DataDir     string `env:"DATA_DIR,default=./data" validate:"required"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	TeamTag     string `env:"TEAM_TAG,default=CryptoCrafters" validate:"required,nospace"`
	InspectPort int    `env:"INSPECT_PORT,default=0" validate:"min=0,max=65535"`

	DiscoveryEnabled     bool          `env:"DISCOVERY_ENABLED,default=true"`
	DiscoveryPort        int           `env:"DISCOVERY_PORT,default=54545" validate:"min=1,max=65535"`
	BroadcastAddress     string        `env:"BROADCAST_ADDRESS,default=255.255.255.255" validate:"required,ipv4"`
	AdvertiseIP          string        `env:"ADVERTISE_IP" validate:"omitempty,ipv4"`
	BroadcastInterval    time.Duration `env:"BROADCAST_INTERVAL,default=5s" validate:"gt=0"`
	DiscoveryDedupWindow time.Duration `env:"DISCOVERY_DEDUP_WINDOW,default=10s" validate:"gt=0"`

	LivenessInterval time.Duration `env:"LIVENESS_INTERVAL,default=10s" validate:"gt=0"`
	ProbeTimeout     time.Duration `env:"PROBE_TIMEOUT,default=5s" validate:"gt=0"`
	ProbeAttempts    int           `env:"PROBE_ATTEMPTS,default=3" validate:"min=1"`
	ProbeBackoff     time.Duration `env:"PROBE_BACKOFF,default=1s" validate:"gte=0"`
	ProbeConcurrency int           `env:"PROBE_CONCURRENCY,default=8" validate:"min=1"`

	DialTimeout     time.Duration `env:"DIAL_TIMEOUT,default=5s" validate:"gt=0"`
	MaxFrameSize    int           `env:"MAX_FRAME_SIZE,default=65536" validate:"min=1024"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
}

// Validate checks the loaded configuration once flags have been applied.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.InspectPort != 0 && c.InspectPort == c.NodePort {
		return fmt.Errorf("INSPECT_PORT must differ from NODE_PORT, got %d", c.InspectPort)
	}
	return nil
}

// BroadcastTarget is the UDP destination of discovery beacons.
func (c Config) BroadcastTarget() string {
	return net.JoinHostPort(c.BroadcastAddress, strconv.Itoa(c.DiscoveryPort))
}
