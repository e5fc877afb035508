package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const configTemplate = `# Crypto Summary Bot Configuration

[bot]
# Shared access password users must enter before using the bot
password = "changeme"
# Telegram IDs granted admin rights
admin_ids = []
# EVM address shown on the support page
evm_address = ""
# Public hostname for webhook mode; leave empty for long-poll mode
webhook_host = ""
# HTTP port for the webhook/trigger server
port = 8080
# SQLite database path; defaults to the config directory when empty
db_path = ""

[pipeline]
# Maximum news results per coin
max_news_results = 10
# Maximum social mention results per coin
max_social_results = 6
# Maximum whale alert results per coin
max_whale_results = 5
# Concurrent coins searched at once
search_concurrency = 4

[schedule]
# Enable scheduled summary broadcasts
enabled = true
# Timezone for the cron entries
timezone = "Europe/Moscow"
# Broadcast times (standard cron format)
crons = ["0 8 * * *", "0 23 * * *"]
`

const credentialsTemplate = `# Crypto Summary Bot Credentials
# Keep this file private.

[telegram]
bot_token = ""

[market_data]
api_key = ""

[openrouter]
api_key = ""
model = "openai/gpt-4o-mini"
base_url = "https://openrouter.ai/api/v1"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are secrets, restrict permissions
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}

func timezoneCheck(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
