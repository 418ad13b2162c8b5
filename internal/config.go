package internal

import (
	"encoding/json"
	"os"
)

// Config holds all runtime settings for the daemon. Every field has a
// default so a missing or partial config.json still yields a usable
// configuration (the Telegram token being the one thing that cannot be
// defaulted).
type Config struct {
	TelegramToken   string `json:"telegramToken"`
	TelegramAPIBase string `json:"telegramApiBase"`

	// Board calibration: two opposite corners of the board rectangle in
	// screen pixels. Tied to one device and one chess app layout.
	BoardLeft   int `json:"boardLeft"`
	BoardTop    int `json:"boardTop"`
	BoardRight  int `json:"boardRight"`
	BoardBottom int `json:"boardBottom"`

	// Gesture timing, in milliseconds.
	TapDelayMs  int `json:"tapDelayMs"`
	MoveDelayMs int `json:"moveDelayMs"`

	// Poll cadence.
	PollLimit       int `json:"pollLimit"`
	PollTimeoutSec  int `json:"pollTimeoutSec"`
	PollDelayMs     int `json:"pollDelayMs"`
	PollFailDelayMs int `json:"pollFailDelayMs"`

	AdbPath   string `json:"adbPath"`
	AdbSerial string `json:"adbSerial"`

	ListenAddr string `json:"listenAddr"`
	// Bcrypt hash of the control API token. Empty disables authentication.
	APITokenHash string `json:"apiTokenHash"`

	LogFile string `json:"logFile"`
}

// DefaultConfig returns the built-in defaults. The board rectangle matches
// the chess app layout on the calibrated 1080x2340 handset.
func DefaultConfig() Config {
	return Config{
		TelegramAPIBase: "https://api.telegram.org",
		BoardLeft:       18,
		BoardTop:        552,
		BoardRight:      1062,
		BoardBottom:     1596,
		TapDelayMs:      150,
		MoveDelayMs:     1000,
		PollLimit:       10,
		PollTimeoutSec:  30,
		PollDelayMs:     1000,
		PollFailDelayMs: 5000,
		AdbPath:         "adb",
		ListenAddr:      ":8080",
		LogFile:         "chesstap.log",
	}
}

// LoadConfig reads the config file at path and fills any missing fields with
// defaults. A missing file yields the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, nil
	}
	defer f.Close()

	var raw Config
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return cfg, err
	}
	mergeConfig(&cfg, raw)
	return cfg, nil
}

// mergeConfig copies every non-zero field of raw over the defaults. Zero is
// never a meaningful value for any setting here, so zero means "absent".
func mergeConfig(cfg *Config, raw Config) {
	if raw.TelegramToken != "" {
		cfg.TelegramToken = raw.TelegramToken
	}
	if raw.TelegramAPIBase != "" {
		cfg.TelegramAPIBase = raw.TelegramAPIBase
	}
	if raw.BoardLeft != 0 {
		cfg.BoardLeft = raw.BoardLeft
	}
	if raw.BoardTop != 0 {
		cfg.BoardTop = raw.BoardTop
	}
	if raw.BoardRight != 0 {
		cfg.BoardRight = raw.BoardRight
	}
	if raw.BoardBottom != 0 {
		cfg.BoardBottom = raw.BoardBottom
	}
	if raw.TapDelayMs != 0 {
		cfg.TapDelayMs = raw.TapDelayMs
	}
	if raw.MoveDelayMs != 0 {
		cfg.MoveDelayMs = raw.MoveDelayMs
	}
	if raw.PollLimit != 0 {
		cfg.PollLimit = raw.PollLimit
	}
	if raw.PollTimeoutSec != 0 {
		cfg.PollTimeoutSec = raw.PollTimeoutSec
	}
	if raw.PollDelayMs != 0 {
		cfg.PollDelayMs = raw.PollDelayMs
	}
	if raw.PollFailDelayMs != 0 {
		cfg.PollFailDelayMs = raw.PollFailDelayMs
	}
	if raw.AdbPath != "" {
		cfg.AdbPath = raw.AdbPath
	}
	if raw.AdbSerial != "" {
		cfg.AdbSerial = raw.AdbSerial
	}
	if raw.ListenAddr != "" {
		cfg.ListenAddr = raw.ListenAddr
	}
	if raw.APITokenHash != "" {
		cfg.APITokenHash = raw.APITokenHash
	}
	if raw.LogFile != "" {
		cfg.LogFile = raw.LogFile
	}
}
