package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SUMO"

// Config file names looked up in the config directory. All are optional.
const (
	ServerFile = "sumo.server.json"
	ClientFile = "sumo.client.json"
	RelayFile  = "sumo.relay.json"
)

// Server configures the authority process.
type Server struct {
	Port              uint          `mapstructure:"port"`
	Name              string        `mapstructure:"name"`
	Version           string        `mapstructure:"version"`
	TickRate          int           `mapstructure:"tickRate"`
	MaxPlayers        int           `mapstructure:"maxPlayers"`
	Arena             string        `mapstructure:"arena"`
	PickupInterval    time.Duration `mapstructure:"pickupInterval"`
	MaxPickups        int           `mapstructure:"maxPickups"`
	LeaseGrace        time.Duration `mapstructure:"leaseGrace"`
	PowerupDuration   time.Duration `mapstructure:"powerupDuration"`
	PowerupStrength   float64       `mapstructure:"powerupStrength"`
	NormalStrength    float64       `mapstructure:"normalStrength"`
	RelayURL          string        `mapstructure:"relayUrl"`      // empty disables relay registration
	PublicAddress     string        `mapstructure:"publicAddress"` // host:port published to the relay
	HeartbeatInterval time.Duration `mapstructure:"heartbeatInterval"`
	LogLevel          string        `mapstructure:"logLevel"`
	LogFile           string        `mapstructure:"logFile"`
}

// Client configures the participant process.
type Client struct {
	Address    string `mapstructure:"address"` // direct server address, skips the relay
	RelayURL   string `mapstructure:"relayUrl"`
	PlayerName string `mapstructure:"playerName"`
	Version    string `mapstructure:"version"`
	HostPort   uint   `mapstructure:"hostPort"` // port of the authority started in host mode
	LogLevel   string `mapstructure:"logLevel"`
	LogFile    string `mapstructure:"logFile"`
}

// Relay configures the relay broker.
type Relay struct {
	Listen          string        `mapstructure:"listen"`
	Database        string        `mapstructure:"database"` // sqlite DSN or postgres URL
	AllocationTTL   time.Duration `mapstructure:"allocationTtl"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval"`
	MaxConnections  int           `mapstructure:"maxConnections"`
	LogLevel        string        `mapstructure:"logLevel"`
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("port", 7373)
	v.SetDefault("name", "Sumo Server")
	v.SetDefault("version", "")
	v.SetDefault("tickRate", netconfig.DefaultTickRate)
	v.SetDefault("maxPlayers", netconfig.MaxRelayConnections)
	v.SetDefault("arena", "sumo")
	v.SetDefault("pickupInterval", netconfig.PickupRespawnInterval)
	v.SetDefault("maxPickups", netconfig.MaxActivePickups)
	v.SetDefault("leaseGrace", netconfig.PossessionLeaseGrace)
	v.SetDefault("powerupDuration", netconfig.PowerupDuration)
	v.SetDefault("powerupStrength", netconfig.PowerupStrength)
	v.SetDefault("normalStrength", netconfig.NormalStrength)
	v.SetDefault("relayUrl", "")
	v.SetDefault("publicAddress", "")
	v.SetDefault("heartbeatInterval", 10*time.Second)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("address", "")
	v.SetDefault("relayUrl", "http://localhost:8080")
	v.SetDefault("playerName", "")
	v.SetDefault("version", "")
	v.SetDefault("hostPort", 7373)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFile", "")
}

func setRelayDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("database", "file::memory:?cache=shared")
	v.SetDefault("allocationTtl", 30*time.Second)
	v.SetDefault("cleanupInterval", 10*time.Second)
	v.SetDefault("maxConnections", netconfig.MaxRelayConnections)
	v.SetDefault("logLevel", "info")
}

// LoadServer reads ServerFile from configDir (if present), then SUMO_*
// environment variables, over the defaults.
func LoadServer(configDir string) (Server, error) {
	var cfg Server
	if err := load(configDir, ServerFile, setServerDefaults, &cfg); err != nil {
		return Server{}, err
	}
	if cfg.TickRate <= 0 {
		return Server{}, fmt.Errorf("tickRate must be positive, got %d", cfg.TickRate)
	}
	if cfg.PowerupDuration <= 0 {
		return Server{}, fmt.Errorf("powerupDuration must be positive, got %s", cfg.PowerupDuration)
	}
	return cfg, nil
}

// LoadClient reads ClientFile the same way as LoadServer.
func LoadClient(configDir string) (Client, error) {
	var cfg Client
	if err := load(configDir, ClientFile, setClientDefaults, &cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// LoadRelay reads RelayFile the same way as LoadServer.
func LoadRelay(configDir string) (Relay, error) {
	var cfg Relay
	if err := load(configDir, RelayFile, setRelayDefaults, &cfg); err != nil {
		return Relay{}, err
	}
	if cfg.MaxConnections <= 0 {
		return Relay{}, fmt.Errorf("maxConnections must be positive, got %d", cfg.MaxConnections)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func load(configDir, file string, defaults func(*viper.Viper), out any) error {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		v.SetConfigName(file)
		v.SetConfigType("json")
		v.AddConfigPath(configDir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
