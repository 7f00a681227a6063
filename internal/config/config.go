// Package config provides YAML-based configuration loading for Rostretto.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// updateCronParser accepts standard 5-field cron expressions
// (minute, hour, dom, month, dow), matching the daemon's scheduler.
var updateCronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Config is the top-level Rostretto configuration, loaded from rostretto.yaml.
type Config struct {
	Timezone     string                  `yaml:"timezone"`
	Database     DatabaseConfig          `yaml:"database"`
	DefaultShift Window                  `yaml:"default_shift"`
	Requirements RequirementsConfig      `yaml:"requirements"`
	RoleWindows  map[string]RoleWindows  `yaml:"role_time_windows"`
	HoursPolicy  map[string]HoursBand    `yaml:"hours_policy"`
	Weights      WeightsConfig           `yaml:"weights"`
	Skills       SkillsConfig            `yaml:"skills"`
	Solver       SolverConfig            `yaml:"solver"`
	Scoring      ScoringConfig           `yaml:"scoring"`
	Notify       NotifyConfig            `yaml:"notify"`
	Server       ServerConfig            `yaml:"server"`
	Daemon       DaemonConfig            `yaml:"daemon"`
}

// DatabaseConfig selects the backing store: a SQLite file (default) or a
// MySQL server.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite | mysql
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"` // ${ENV} references are expanded at connect time
}

// Window is a start/end pair of HH:MM strings.
type Window struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// RoleWindows holds per-role time windows. Multiple weekend entries describe
// staggered coverage slots.
type RoleWindows struct {
	Weekday []Window `yaml:"weekday"`
	Weekend []Window `yaml:"weekend"`
}

// RequirementsConfig maps roles to required headcounts per day type, with
// per-date overrides.
type RequirementsConfig struct {
	Weekday   map[string]int            `yaml:"weekday"`
	Weekend   map[string]int            `yaml:"weekend"`
	Overrides map[string]map[string]int `yaml:"overrides"` // date → role → headcount
}

// HoursBand is a weekly-hours policy for one role.
type HoursBand struct {
	TargetMin float64 `yaml:"target_min"`
	TargetMax float64 `yaml:"target_max"`
	HardCap   float64 `yaml:"hard_cap"`
}

// WeightsConfig holds the objective weights for the assignment solver.
type WeightsConfig struct {
	SkillMatch         float64 `yaml:"skill_match"`
	Fairness           float64 `yaml:"fairness"`
	PerHourBelowTarget float64 `yaml:"per_hour_below_target"`
	PerHourAboveTarget float64 `yaml:"per_hour_above_target"`
}

// SkillsConfig controls skill aggregation.
type SkillsConfig struct {
	NeutralDefault float64           `yaml:"neutral_default"` // score for unseen dimensions
	RoleDimension  map[string]string `yaml:"role_dimension"`  // role → dominant dimension
	Window         WindowPolicy      `yaml:"window"`
}

// WindowPolicy selects the trailing window for skill averaging. Exactly one
// of LastShifts or LastWeeks is positive.
type WindowPolicy struct {
	LastShifts int `yaml:"last_shifts"`
	LastWeeks  int `yaml:"last_weeks"`
}

// SolverConfig bounds the assignment search.
type SolverConfig struct {
	Budget    string `yaml:"budget"` // wall-clock budget, e.g. "10s"
	MaxNodes  int    `yaml:"max_nodes"`
	MaxPerDay int    `yaml:"max_per_day"` // assignments per worker per calendar day
}

// ScoringConfig selects the skill-point scoring strategy.
type ScoringConfig struct {
	Strategy            string  `yaml:"strategy"` // manual | rule | predictor
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// NotifyConfig controls best-effort operator notifications.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	Command         string `yaml:"command"` // shell template, e.g. "notify-send 'Rostretto' '{{.Text}}'"
}

// ServerConfig holds the HTTP adapter settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DaemonConfig holds the cycle daemon settings.
type DaemonConfig struct {
	PollInterval string `yaml:"poll_interval"` // e.g. "30s"
	UpdateCron   string `yaml:"update_cron"`   // 5-field cron for nightly skill updates
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration, used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Australia/Sydney"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "rostretto.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Name == "" {
		c.Database.Name = "rostretto"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.DefaultShift.Start == "" {
		c.DefaultShift.Start = "07:00"
	}
	if c.DefaultShift.End == "" {
		c.DefaultShift.End = "15:00"
	}
	if c.Requirements.Weekday == nil {
		c.Requirements.Weekday = map[string]int{
			"MANAGER": 1, "BARISTA": 2, "WAITER": 1, "SANDWICH": 1,
		}
	}
	if c.Requirements.Weekend == nil {
		c.Requirements.Weekend = map[string]int{
			"MANAGER": 2, "BARISTA": 1, "WAITER": 2, "SANDWICH": 1,
		}
	}
	if c.RoleWindows == nil {
		c.RoleWindows = map[string]RoleWindows{
			"SANDWICH": {
				Weekday: []Window{{Start: "05:00", End: "12:00"}},
				Weekend: []Window{{Start: "05:00", End: "13:30"}},
			},
			"WAITER": {
				Weekend: []Window{{Start: "07:00", End: "12:00"}, {Start: "11:00", End: "15:00"}},
			},
		}
	}
	if c.HoursPolicy == nil {
		c.HoursPolicy = map[string]HoursBand{
			"MANAGER":  {TargetMin: 32, TargetMax: 40, HardCap: 45},
			"BARISTA":  {TargetMin: 16, TargetMax: 40, HardCap: 45},
			"WAITER":   {TargetMin: 16, TargetMax: 40, HardCap: 45},
			"SANDWICH": {TargetMin: 16, TargetMax: 32, HardCap: 40},
		}
	}
	if c.Weights.SkillMatch == 0 {
		c.Weights.SkillMatch = 1.0
	}
	if c.Weights.Fairness == 0 {
		c.Weights.Fairness = 0.3
	}
	if c.Weights.PerHourBelowTarget == 0 {
		c.Weights.PerHourBelowTarget = 0.5
	}
	if c.Weights.PerHourAboveTarget == 0 {
		c.Weights.PerHourAboveTarget = 0.75
	}
	if c.Skills.NeutralDefault == 0 {
		c.Skills.NeutralDefault = 50
	}
	if c.Skills.RoleDimension == nil {
		c.Skills.RoleDimension = map[string]string{
			"MANAGER":  "customer_service",
			"BARISTA":  "coffee",
			"WAITER":   "customer_service",
			"SANDWICH": "sandwich",
		}
	}
	if c.Skills.Window.LastShifts == 0 && c.Skills.Window.LastWeeks == 0 {
		c.Skills.Window.LastWeeks = 12
	}
	if c.Solver.Budget == "" {
		c.Solver.Budget = "10s"
	}
	if c.Solver.MaxNodes == 0 {
		c.Solver.MaxNodes = 5_000_000
	}
	if c.Solver.MaxPerDay == 0 {
		c.Solver.MaxPerDay = 1
	}
	if c.Scoring.Strategy == "" {
		c.Scoring.Strategy = "rule"
	}
	if c.Scoring.ConfidenceThreshold == 0 {
		c.Scoring.ConfidenceThreshold = 0.7
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Daemon.PollInterval == "" {
		c.Daemon.PollInterval = "30s"
	}
	if c.Daemon.UpdateCron == "" {
		c.Daemon.UpdateCron = "30 2 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.DefaultShift.Start >= c.DefaultShift.End {
		errs = append(errs, "default_shift.start must be before default_shift.end")
	}
	for role, n := range c.Requirements.Weekday {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("requirements.weekday[%s] must be >= 0", role))
		}
	}
	for role, n := range c.Requirements.Weekend {
		if n < 0 {
			errs = append(errs, fmt.Sprintf("requirements.weekend[%s] must be >= 0", role))
		}
	}
	for date, roles := range c.Requirements.Overrides {
		for role, n := range roles {
			if n < 0 {
				errs = append(errs, fmt.Sprintf("requirements.overrides[%s][%s] must be >= 0", date, role))
			}
		}
	}
	for role, band := range c.HoursPolicy {
		if band.TargetMin > band.TargetMax {
			errs = append(errs, fmt.Sprintf("hours_policy[%s]: target_min > target_max", role))
		}
		if band.HardCap > 0 && band.HardCap < band.TargetMax {
			errs = append(errs, fmt.Sprintf("hours_policy[%s]: hard_cap < target_max", role))
		}
	}
	if c.Skills.NeutralDefault < 0 || c.Skills.NeutralDefault > 100 {
		errs = append(errs, "skills.neutral_default must be within [0, 100]")
	}
	if c.Skills.Window.LastShifts > 0 && c.Skills.Window.LastWeeks > 0 {
		errs = append(errs, "skills.window: set last_shifts or last_weeks, not both")
	}
	if _, err := time.ParseDuration(c.Solver.Budget); err != nil {
		errs = append(errs, fmt.Sprintf("solver.budget %q is not a duration", c.Solver.Budget))
	}
	if c.Solver.MaxPerDay < 1 {
		errs = append(errs, "solver.max_per_day must be >= 1")
	}
	switch c.Scoring.Strategy {
	case "manual", "rule", "predictor":
	default:
		errs = append(errs, fmt.Sprintf("scoring.strategy %q must be manual, rule or predictor", c.Scoring.Strategy))
	}
	if c.Scoring.ConfidenceThreshold < 0 || c.Scoring.ConfidenceThreshold > 1 {
		errs = append(errs, "scoring.confidence_threshold must be within [0, 1]")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be within 1-65535")
	}
	if _, err := time.ParseDuration(c.Daemon.PollInterval); err != nil {
		errs = append(errs, fmt.Sprintf("daemon.poll_interval %q is not a duration", c.Daemon.PollInterval))
	}
	if _, err := updateCronParser.Parse(c.Daemon.UpdateCron); err != nil {
		errs = append(errs, fmt.Sprintf("daemon.update_cron %q is not a 5-field cron expression", c.Daemon.UpdateCron))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SolveBudget returns the parsed solver wall-clock budget.
func (c *Config) SolveBudget() time.Duration {
	d, err := time.ParseDuration(c.Solver.Budget)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// DaemonPollInterval returns the parsed daemon poll interval.
func (c *Config) DaemonPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Daemon.PollInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Location returns the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RequirementsFor returns the role→headcount map for a date, applying
// per-date overrides on top of the weekday/weekend defaults.
func (c *Config) RequirementsFor(date string, weekend bool) map[string]int {
	base := c.Requirements.Weekday
	if weekend {
		base = c.Requirements.Weekend
	}
	out := make(map[string]int, len(base))
	for role, n := range base {
		out[role] = n
	}
	for role, n := range c.Requirements.Overrides[date] {
		out[role] = n
	}
	return out
}

// DominantDimension returns the dominant skill dimension for role.
func (c *Config) DominantDimension(role string) string {
	if dim, ok := c.Skills.RoleDimension[role]; ok {
		return dim
	}
	return "customer_service"
}
