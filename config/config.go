package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

// Config is assembled from HOMEPI_* environment variables, the same way
// the rest of the household scripts are configured.
type Config struct {
	// Family calendar: either a published ICS feed URL or CalDAV
	// credentials. The feed wins when both are set.
	CalendarURL    string `env:"HOMEPI_CALENDAR_URL"`
	CalDAVURL      string `env:"HOMEPI_CALDAV_URL"`
	CalDAVUsername string `env:"HOMEPI_CALDAV_USERNAME"`
	CalDAVPassword string `env:"HOMEPI_CALDAV_PASSWORD"`
	CalDAVPath     string `env:"HOMEPI_CALDAV_PATH"`

	// PersonName is whose absences the PTO job tracks.
	PersonName string `env:"HOMEPI_PERSON_NAME" envDefault:"Brian"`

	SlackToken string `env:"HOMEPI_SLACK_TOKEN"`
	// SlackVacationStatus is an "<emoji>|<fallback>" pair.
	SlackVacationStatus string `env:"HOMEPI_SLACK_VACATION_STATUS" envDefault:":palm_tree:|:palm_tree:"`

	AutoRemoteURL string `env:"HOMEPI_AUTOREMOTE_URL"`
	AutoRemoteKey string `env:"HOMEPI_AUTOREMOTE_KEY"`

	TelegramToken  string `env:"HOMEPI_TELEGRAM_TOKEN"`
	TelegramChatID int64  `env:"HOMEPI_TELEGRAM_CHAT_ID"`

	DatabasePath string `env:"HOMEPI_DATABASE_PATH" envDefault:"./data/homepi.db"`

	TimezoneName   string `env:"HOMEPI_TIMEZONE" envDefault:"America/New_York"`
	PtoSchedule    string `env:"HOMEPI_PTO_SCHEDULE" envDefault:"30 5 * * *"`
	StatusSchedule string `env:"HOMEPI_STATUS_SCHEDULE" envDefault:"0 * * * *"`

	LogLevel string `env:"HOMEPI_LOG_LEVEL" envDefault:"error"`

	Timezone *time.Location
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.CalendarURL == "" && cfg.CalDAVUsername == "" {
		return nil, fmt.Errorf("HOMEPI_CALENDAR_URL or HOMEPI_CALDAV_USERNAME is required")
	}

	tz, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid HOMEPI_TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	return cfg, nil
}

var emojiShortcode = regexp.MustCompile(`^:.*:$`)

// VacationEmoji picks the usable half of the configured emoji pair:
// the first part when it is a :shortcode:, the fallback otherwise.
func (c *Config) VacationEmoji() string {
	parts := strings.SplitN(c.SlackVacationStatus, "|", 2)
	if emojiShortcode.MatchString(parts[0]) {
		return parts[0]
	}
	if len(parts) > 1 {
		return parts[1]
	}
	return parts[0]
}
