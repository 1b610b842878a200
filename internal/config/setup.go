package config

import (
	"fmt"
	"os"
)

// SaveEnv writes API credentials to the data-dir .env file with restrictive
// permissions. Called by `holdup setup`.
func (c Config) SaveEnv(alpacaKey, alpacaSecret, openAIKey string) error {
	if err := c.EnsureDirectories(); err != nil {
		return err
	}

	content := fmt.Sprintf(`# Alpaca API credentials
ALPACA_API_KEY=%s
ALPACA_API_SECRET=%s

# OpenAI API key
CHATGPT_API_KEY=%s
`, alpacaKey, alpacaSecret, openAIKey)

	if err := os.WriteFile(c.EnvPath(), []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", c.EnvPath(), err)
	}
	return nil
}
