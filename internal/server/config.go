package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroomhq/cardroom/internal/table"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Tables []TableConfig   `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableConfig defines a poker table configuration
type TableConfig struct {
	Name             string `hcl:"name,label"`
	MaxSeats         int    `hcl:"max_seats,optional"`
	SmallBlind       int    `hcl:"small_blind"`
	BigBlind         int    `hcl:"big_blind"`
	BuyInMin         int    `hcl:"buy_in_min,optional"`
	BuyInMax         int    `hcl:"buy_in_max,optional"`
	TurnTimeoutSecs  int    `hcl:"turn_timeout_seconds,optional"`
	NextHandDelaySec int    `hcl:"next_hand_delay_seconds,optional"`
}

// TableSettings converts the config block into engine parameters.
func (tc TableConfig) TableSettings() table.Config {
	return table.Config{
		SmallBlind:    tc.SmallBlind,
		BigBlind:      tc.BigBlind,
		MinBuyIn:      tc.BuyInMin,
		MaxBuyIn:      tc.BuyInMax,
		MaxSeats:      tc.MaxSeats,
		TurnTimeout:   time.Duration(tc.TurnTimeoutSecs) * time.Second,
		NextHandDelay: time.Duration(tc.NextHandDelaySec) * time.Second,
	}
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: &ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:       "main",
				MaxSeats:   6,
				SmallBlind: 5,
				BigBlind:   10,
				BuyInMin:   200,
				BuyInMax:   2000,
			},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(config *ServerConfig) {
	if config.Server == nil {
		config.Server = &ServerSettings{}
	}
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	for i := range config.Tables {
		t := &config.Tables[i]
		if t.MaxSeats == 0 {
			t.MaxSeats = 6
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 20
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 100
		}
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if seen[t.Name] {
			return fmt.Errorf("duplicate table name: %s", t.Name)
		}
		seen[t.Name] = true

		if t.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", t.Name)
		}
		if t.BigBlind <= t.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", t.Name)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 9 {
			return fmt.Errorf("table %s: max seats must be between 2 and 9", t.Name)
		}
		if t.BuyInMin >= t.BuyInMax {
			return fmt.Errorf("table %s: buy-in minimum must be less than maximum", t.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
