package config

import (
	"errors"
	"io/fs"
	"taskremind/internal/domain"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Log      Log
	Redis    Redis
	DB       DB
	Reminder Reminder
	Digest   Digest
	Mail     Mail
	App      App
}

type Log struct {
	Level string `env:"Log_Level" envDefault:"info"`
	JSON  bool   `env:"Log_JSON" envDefault:"false"`
}

type Redis struct {
	Addr     string `env:"Redis_Address" envDefault:"localhost:6379"`
	Password string `env:"Redis_Password"`
	DB       int    `env:"Redis_DB"`
	// ChannelPrefix + user id is the realtime channel of that user.
	ChannelPrefix string `env:"Redis_ChannelPrefix" envDefault:"notifications:user:"`
}

type DB struct {
	// Driver is "sqlite" or "pgx".
	Driver string `env:"DB_Driver" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN" envDefault:"taskremind.db"`
}

type Reminder struct {
	// Stages is name:offset:tolerance:markerExpiry, comma separated.
	Stages     string        `env:"Reminder_Stages" envDefault:"24h:24h:30m:1h,1h:1h:10m:30m"`
	ScanPeriod time.Duration `env:"Reminder_ScanPeriod" envDefault:"30s"`
	Cooldown   time.Duration `env:"Reminder_Cooldown" envDefault:"24h"`
	// Horizon of 0 is derived from the stage table.
	Horizon time.Duration `env:"Reminder_Horizon" envDefault:"0s"`
	// MarkerBackend is "redis" or "memory".
	MarkerBackend   string `env:"Marker_Backend" envDefault:"redis"`
	MarkerCacheSize int    `env:"Marker_CacheSize" envDefault:"100000"`
}

func (r Reminder) StageTable() (*domain.StageTable, error) {
	var l domain.StageList
	if err := l.UnmarshalText([]byte(r.Stages)); err != nil {
		return nil, err
	}
	return domain.NewStageTable(l)
}

type Digest struct {
	Period time.Duration `env:"Digest_Period" envDefault:"2h"`
	// Schedule is an optional five-field cron expression used instead of Period.
	Schedule      string   `env:"Digest_Schedule"`
	ExcludedTypes []string `env:"Digest_ExcludedTypes" envDefault:"DEADLINE_REMINDER,CHAT_MESSAGE" envSeparator:","`
}

type Mail struct {
	// Host empty means digests are logged instead of sent.
	Host     string        `env:"Mail_Host"`
	Port     int           `env:"Mail_Port" envDefault:"587"`
	Username string        `env:"Mail_Username"`
	Password string        `env:"Mail_Password"`
	From     string        `env:"Mail_From" envDefault:"no-reply@taskremind.local"`
	FromName string        `env:"Mail_FromName" envDefault:"Task Reminders"`
	Timeout  time.Duration `env:"Mail_Timeout" envDefault:"30s"`
}

type App struct {
	BaseURL      string `env:"App_BaseURL" envDefault:"http://localhost:8080"`
	SenderName   string `env:"App_SenderName" envDefault:"Deadline Reminder"`
	SenderAvatar string `env:"App_SenderAvatar"`
}

func (d Digest) Excluded() []domain.NotificationType {
	out := make([]domain.NotificationType, 0, len(d.ExcludedTypes))
	for _, t := range d.ExcludedTypes {
		out = append(out, domain.NotificationType(t))
	}
	return out
}

// Parse reads an optional .env file and then the environment.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
