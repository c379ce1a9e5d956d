package taxlot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects the accounting behavior of a reconciliation run. The zero
// value is not usable; start from DefaultConfig or LoadConfig.
type Config struct {
	// Method is the default accounting method for every account.
	Method string `yaml:"method"`
	// WashWindowDays overrides the wash-sale window; 0 means the standard
	// 30 days on each side of a loss.
	WashWindowDays int `yaml:"washWindowDays,omitempty"`
	// Accounts overrides the method per account id.
	Accounts map[string]AccountConfig `yaml:"accounts,omitempty"`
}

// AccountConfig carries the per-account overrides.
type AccountConfig struct {
	Method string `yaml:"method"`
}

// DefaultConfig returns the configuration used when no file is provided:
// FIFO everywhere.
func DefaultConfig() *Config {
	return &Config{Method: FIFO.String()}
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every configured method parses.
func (c *Config) Validate() error {
	if _, err := ParseMethod(c.Method); err != nil {
		return err
	}
	if c.WashWindowDays < 0 {
		return fmt.Errorf("washWindowDays %d is negative", c.WashWindowDays)
	}
	for account, ac := range c.Accounts {
		if ac.Method == "" {
			continue
		}
		if _, err := ParseMethod(ac.Method); err != nil {
			return fmt.Errorf("account %q: %w", account, err)
		}
	}
	return nil
}

// MethodFor resolves the accounting method for an account. A sell carrying an
// explicit lot plan still overrides this with specific identification.
func (c *Config) MethodFor(account string) Method {
	if ac, ok := c.Accounts[account]; ok && ac.Method != "" {
		m, err := ParseMethod(ac.Method)
		if err == nil {
			return m
		}
	}
	m, err := ParseMethod(c.Method)
	if err != nil {
		return FIFO
	}
	return m
}
