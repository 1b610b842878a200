package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(dataDirEnv, t.TempDir())

	cfg := Load()

	if cfg.Crawler.Provider != "alpaca" {
		t.Fatalf("unexpected default provider: %s", cfg.Crawler.Provider)
	}
	if cfg.Crawler.Limit != 50 {
		t.Fatalf("unexpected default limit: %d", cfg.Crawler.Limit)
	}
	if cfg.ChatGPT.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model: %s", cfg.ChatGPT.Model)
	}
	if cfg.Location().String() != "UTC" {
		t.Fatalf("unexpected default timezone: %s", cfg.Location())
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
dataDir: ` + dir + `
timezone: America/New_York
crawler:
  provider: finviz
  daysBack: 3
chatgpt:
  model: gpt-4o
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(dataDirEnv, "")
	t.Setenv(chatGPTModelEnv, "gpt-4.1-mini")
	t.Setenv(alpacaKeyEnv, "PKTEST")

	cfg := Load()

	if cfg.Crawler.Provider != "finviz" {
		t.Fatalf("file override lost: provider=%s", cfg.Crawler.Provider)
	}
	if cfg.Crawler.DaysBack != 3 {
		t.Fatalf("file override lost: daysBack=%d", cfg.Crawler.DaysBack)
	}
	if cfg.ChatGPT.Model != "gpt-4.1-mini" {
		t.Fatalf("env should beat file: model=%s", cfg.ChatGPT.Model)
	}
	if cfg.Alpaca.APIKey != "PKTEST" {
		t.Fatalf("env override lost: key=%s", cfg.Alpaca.APIKey)
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("timezone not bound: %s", cfg.Location())
	}
	// Endpoint untouched by the file keeps its default.
	if cfg.ChatGPT.Endpoint == "" {
		t.Fatalf("default endpoint lost")
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configPathEnv, "")
	t.Setenv(dataDirEnv, dir)
	// godotenv only fills variables that are absent, so clear these fully
	// (t.Setenv first, to restore them after the test).
	t.Setenv(alpacaKeyEnv, "")
	t.Setenv(alpacaSecretEnv, "")
	os.Unsetenv(alpacaKeyEnv)
	os.Unsetenv(alpacaSecretEnv)

	env := "ALPACA_API_KEY=fromfile\nALPACA_API_SECRET=secretfromfile\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg := Load()

	if cfg.Alpaca.APIKey != "fromfile" {
		t.Fatalf("dotenv key not loaded: %q", cfg.Alpaca.APIKey)
	}
	if cfg.Alpaca.APISecret != "secretfromfile" {
		t.Fatalf("dotenv secret not loaded: %q", cfg.Alpaca.APISecret)
	}
}

func TestSaveEnvPermissions(t *testing.T) {
	cfg := defaultConfig()
	cfg.DataDir = t.TempDir()

	if err := cfg.SaveEnv("key", "secret", "openai"); err != nil {
		t.Fatalf("SaveEnv: %v", err)
	}

	info, err := os.Stat(cfg.EnvPath())
	if err != nil {
		t.Fatalf("stat env: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("env file mode = %v, want 0600", info.Mode().Perm())
	}
}
