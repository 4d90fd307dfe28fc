// Package config reads the settings of a collection run from the
// environment. A .env file in the working directory is loaded first.
//
// Environment variables:
//
//	DB_DRIVER                       sqlite (default) or mysql
//	DB_PATH                         SQLite file (default ./data/dues.db)
//	DB_HOST, DB_PORT, DB_NAME       MySQL address (default 127.0.0.1:3306)
//	DB_USER, DB_PASSWORD            MySQL credentials
//	PROGRAM_START                   YYYY-MM-DD, overrides the tariff start
//	COLLECTION_DATE                 YYYY-MM-DD, required
//	TARGET_MONTH                    month offset, derived from COLLECTION_DATE when unset
//	INSTALLMENT_LABEL               e.g. "Vierzehnte Rate", required
//	PROGRAM_NAME                    default "WSJ 2023"
//	ARREARS_PREFIX                  default "Fehlende Raten und"
//	MANDATE_PREFIX                  default "wsjrdp"
//	LARGE_RESIDUAL_THRESHOLD_CENTS  default 31000
//	PLAUSIBLE_MIN_CENTS             default 10000
//	PLAUSIBLE_MAX_CENTS             default 31000
//	ELIGIBLE_STATUSES               comma separated registration statuses
//	TARIFF_FILE                     JSON schedule, built-in WSJ 2023 tariff when unset
//	CREDITOR_NAME, CREDITOR_IBAN, CREDITOR_BIC, CREDITOR_ID
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wsjrdp/dues/internal/batch"
	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/storage"
	"github.com/wsjrdp/dues/internal/storage/mysql"
	"github.com/wsjrdp/dues/internal/tariff"
)

const dateLayout = "2006-01-02"

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// DefaultEligibleStatuses are the registration statuses collected from when
// ELIGIBLE_STATUSES is unset.
var DefaultEligibleStatuses = []string{"bestätigt durch KT", "bestätigt durch Leitung", "vollständig"}

// Database selects and addresses the registration database.
type Database struct {
	Driver string
	Path   string
	MySQL  mysql.Config
}

// Config is everything a collection run needs besides its data.
type Config struct {
	Database Database

	ProgramStart   time.Time
	CollectionDate time.Time

	// TargetMonth is nil when the month is derived from CollectionDate.
	TargetMonth *int

	InstallmentLabel       string
	ProgramName            string
	ArrearsPrefix          string
	MandatePrefix          string
	LargeResidualThreshold int64
	PlausibleMin           int64
	PlausibleMax           int64
	EligibleStatuses       []string
	TariffFile             string

	Creditor models.Creditor
}

// Load reads files (default ".env") into the environment, without
// overriding variables already set, and then parses the environment.
// Missing files are ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, &models.ConfigurationError{Key: "ENV_FILE", Reason: err.Error()}
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup parses settings using lookup, usually os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}

	c := &Config{
		Database: Database{
			Driver: p.str("DB_DRIVER", DriverSQLite),
			Path:   p.str("DB_PATH", "./data/dues.db"),
			MySQL: mysql.Config{
				Host:     p.str("DB_HOST", "127.0.0.1"),
				Port:     int(p.int("DB_PORT", 3306)),
				Database: p.str("DB_NAME", ""),
				User:     p.str("DB_USER", ""),
				Password: p.str("DB_PASSWORD", ""),
			},
		},
		ProgramStart:           p.date("PROGRAM_START"),
		CollectionDate:         p.date("COLLECTION_DATE"),
		InstallmentLabel:       p.str("INSTALLMENT_LABEL", ""),
		ProgramName:            p.str("PROGRAM_NAME", "WSJ 2023"),
		ArrearsPrefix:          p.str("ARREARS_PREFIX", "Fehlende Raten und"),
		MandatePrefix:          p.str("MANDATE_PREFIX", "wsjrdp"),
		LargeResidualThreshold: p.int("LARGE_RESIDUAL_THRESHOLD_CENTS", 31000),
		PlausibleMin:           p.int("PLAUSIBLE_MIN_CENTS", 10000),
		PlausibleMax:           p.int("PLAUSIBLE_MAX_CENTS", 31000),
		EligibleStatuses:       p.list("ELIGIBLE_STATUSES", DefaultEligibleStatuses),
		TariffFile:             p.str("TARIFF_FILE", ""),
		Creditor: models.Creditor{
			Name: p.str("CREDITOR_NAME", ""),
			IBAN: p.str("CREDITOR_IBAN", ""),
			BIC:  p.str("CREDITOR_BIC", ""),
			ID:   p.str("CREDITOR_ID", ""),
		},
	}
	if _, ok := p.raw("TARGET_MONTH"); ok {
		m := int(p.int("TARGET_MONTH", 0))
		c.TargetMonth = &m
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the database settings every command needs.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return &models.ConfigurationError{Key: "DB_PATH", Reason: "must not be empty"}
		}
	case DriverMySQL:
		if c.Database.MySQL.Database == "" {
			return &models.ConfigurationError{Key: "DB_NAME", Reason: "must not be empty"}
		}
	default:
		return &models.ConfigurationError{Key: "DB_DRIVER", Reason: "must be sqlite or mysql"}
	}
	return nil
}

// ValidateMonth checks that the target month can be determined.
func (c *Config) ValidateMonth() error {
	if c.TargetMonth == nil && c.CollectionDate.IsZero() {
		return &models.ConfigurationError{Key: "COLLECTION_DATE", Reason: "must be set unless TARGET_MONTH is"}
	}
	return nil
}

// ValidateCollection checks the settings needed to build a batch.
func (c *Config) ValidateCollection() error {
	return c.BuilderConfig().Validate()
}

// Schedule returns the tariff for this run.
func (c *Config) Schedule() (*tariff.Schedule, error) {
	s := tariff.Default()
	if c.TariffFile != "" {
		loaded, err := tariff.Load(c.TariffFile)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	if !c.ProgramStart.IsZero() {
		s.Start = c.ProgramStart
	}
	return s, nil
}

// Month returns the month offset to collect for.
func (c *Config) Month(s *tariff.Schedule) int {
	if c.TargetMonth != nil {
		return *c.TargetMonth
	}
	return s.MonthOffset(c.CollectionDate)
}

// BuilderConfig maps the settings onto the batch builder.
func (c *Config) BuilderConfig() batch.Config {
	return batch.Config{
		Creditor:               c.Creditor,
		ProgramName:            c.ProgramName,
		InstallmentLabel:       c.InstallmentLabel,
		ArrearsPrefix:          c.ArrearsPrefix,
		MandatePrefix:          c.MandatePrefix,
		LargeResidualThreshold: c.LargeResidualThreshold,
		PlausibleMin:           c.PlausibleMin,
		PlausibleMax:           c.PlausibleMax,
		CollectionDate:         c.CollectionDate,
	}
}

// RosterFilter returns the roster feed filter.
func (c *Config) RosterFilter() storage.RosterFilter {
	return storage.RosterFilter{Statuses: c.EligibleStatuses}
}

// parser keeps the first error so all fields can be read in one pass.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(key, reason string) {
	if p.err == nil {
		p.err = &models.ConfigurationError{Key: key, Reason: reason}
	}
}

func (p *parser) str(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

func (p *parser) int(key string, fallback int64) int64 {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, "not an integer: "+strconv.Quote(v))
		return fallback
	}
	return n
}

func (p *parser) date(key string) time.Time {
	v, ok := p.raw(key)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		p.fail(key, "expected YYYY-MM-DD, got "+strconv.Quote(v))
		return time.Time{}
	}
	return t
}

func (p *parser) list(key string, fallback []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
