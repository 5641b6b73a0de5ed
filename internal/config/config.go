package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPath = "./config/application.yaml"

type Application struct {
	Host     string   `koanf:"host"`
	Listen   string   `koanf:"listen"`
	Timezone string   `koanf:"timezone"`
	Log      Log      `koanf:"log"`
	Frontend Frontend `koanf:"frontend"`
	Source   Source   `koanf:"source"`
	Database Database `koanf:"db"`
	Refresh  Refresh  `koanf:"refresh"`
	Listing  Listing  `koanf:"listing"`
	Admin    Admin    `koanf:"admin"`
}

type Log struct {
	Level string `koanf:"level"`
}

type Frontend struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
	Index   string `koanf:"index"`
}

// Source selects where events come from. Kind is one of file, ics, google or db.
type Source struct {
	Kind   string `koanf:"kind"`
	File   string `koanf:"file"`
	ICS    ICS    `koanf:"ics"`
	Google Google `koanf:"google"`
}

type ICS struct {
	URL             string `koanf:"url"`
	DefaultLanguage string `koanf:"defaultlanguage"`
	HorizonDays     int    `koanf:"horizondays"`
}

type Google struct {
	CalendarId      string `koanf:"calendarid"`
	ApiKey          string `koanf:"apikey"`
	CredentialsFile string `koanf:"credentialsfile"`
	DefaultLanguage string `koanf:"defaultlanguage"`
	HorizonDays     int    `koanf:"horizondays"`
}

// Database.Driver is one of postgres, mysql or sqlite. For sqlite, Name is the file path.
type Database struct {
	Driver string `koanf:"driver"`
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Refresh struct {
	// Cron is a standard 5-field cron expression. Empty disables periodic refresh.
	Cron string `koanf:"cron"`
}

type Listing struct {
	StaleLanguage string `koanf:"stalelanguage"`
}

type Admin struct {
	AuthFile string `koanf:"authfile"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a Application) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		log.Warnf("unknown timezone %q, using UTC: %v", a.Timezone, err)
		return time.UTC
	}
	return loc
}

func Defaults() Application {
	return Application{
		Host:     "http://localhost:3000",
		Listen:   ":8181",
		Timezone: "UTC",
		Log: Log{
			Level: "info",
		},
		Frontend: Frontend{
			Enabled: false,
			Dir:     "frontend",
			Index:   "index.html",
		},
		Source: Source{
			Kind: "file",
			File: "./data/events.json",
			ICS: ICS{
				HorizonDays: 365,
			},
			Google: Google{
				HorizonDays: 365,
			},
		},
		Database: Database{
			Driver: "postgres",
			Host:   "localhost",
			Port:   5432,
			User:   "hub",
			Pass:   "",
			Name:   "hub",
			Schema: "hub",
		},
		Listing: Listing{
			StaleLanguage: "keep",
		},
		Admin: Admin{
			AuthFile: "./auth.secret",
		},
	}
}

func Load(path string) (Application, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("could not load .env file: %v", err)
	}

	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "HUB_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "HUB_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if err := app.Validate(); err != nil {
		return Application{}, err
	}

	return app, nil
}

func (a Application) Validate() error {
	if a.Timezone != "" {
		if _, err := time.LoadLocation(a.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
		}
	}
	switch a.Source.Kind {
	case "file", "ics", "google", "db":
	default:
		return fmt.Errorf("unsupported source kind %q", a.Source.Kind)
	}
	switch a.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", a.Database.Driver)
	}
	switch a.Listing.StaleLanguage {
	case "keep", "clear", "reject":
	default:
		return fmt.Errorf("unsupported stale language policy %q", a.Listing.StaleLanguage)
	}
	return nil
}
