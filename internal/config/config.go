package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/derekprior/diamonds/internal/schedule"
)

const dateLayout = "2006-01-02"

// Date is a wrapper around time.Time for YAML date parsing.
type Date struct {
	Time time.Time
}

func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	t, err := time.Parse(dateLayout, value.Value)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", value.Value, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.Time.Format(dateLayout), nil
}

// Time is a wrapper around schedule.Clock for YAML "HH:MM" parsing.
type Time struct {
	Clock schedule.Clock
}

func (t *Time) UnmarshalYAML(value *yaml.Node) error {
	c, err := schedule.ParseClock(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	t.Clock = c
	return nil
}

func (t Time) MarshalYAML() (any, error) {
	return t.Clock.String(), nil
}

type Tournament struct {
	ID        string `yaml:"id" validate:"required"`
	Name      string `yaml:"name"`
	StartDate Date   `yaml:"start_date"`
	EndDate   Date   `yaml:"end_date"`
	// SelectedVenues restricts the tournament to a subset of venues by id.
	// All venues are selected when empty.
	SelectedVenues []string `yaml:"selected_venues"`
}

type Venue struct {
	ID                 string `yaml:"id" validate:"required"`
	Name               string `yaml:"name"`
	AvailableStartTime Time   `yaml:"available_start_time"`
	AvailableEndTime   Time   `yaml:"available_end_time"`
}

// Team accepts either a bare name or an {id, name} mapping.
type Team struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name"`
}

func (t *Team) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		t.ID, t.Name = value.Value, value.Value
		return nil
	}
	type plain Team
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*t = Team(p)
	if t.ID == "" {
		t.ID = t.Name
	}
	if t.Name == "" {
		t.Name = t.ID
	}
	return nil
}

// Pool is a round-robin grouping of teams within a division.
type Pool struct {
	ID       string `yaml:"id" validate:"required"`
	Name     string `yaml:"name"`
	Division string `yaml:"division"`
	Teams    []Team `yaml:"teams" validate:"min=2,dive"`
}

type Grid struct {
	IntervalMinutes        int  `yaml:"interval_minutes" validate:"oneof=15 30 60"`
	DefaultDurationMinutes int  `yaml:"default_duration_minutes" validate:"gte=0,lte=480"`
	MaxDurationMinutes     int  `yaml:"max_duration_minutes" validate:"gte=0,lte=480"`
	EnforceClosingTime     bool `yaml:"enforce_closing_time"`
}

type Config struct {
	Tournament Tournament `yaml:"tournament"`
	Venues     []Venue    `yaml:"venues" validate:"required,min=1,dive"`
	Pools      []Pool     `yaml:"pools" validate:"required,min=1,dive"`
	Grid       Grid       `yaml:"grid"`
	Strategy   string     `yaml:"strategy" validate:"oneof=round_robin double_round_robin"`
}

const (
	defaultInterval        = 60
	defaultDuration        = 90
	defaultStrategy        = "round_robin"
	defaultMaxDurationMins = schedule.MaxDuration
)

// AllTeams returns all teams across all pools.
func (c *Config) AllTeams() []Team {
	var teams []Team
	for _, p := range c.Pools {
		teams = append(teams, p.Teams...)
	}
	return teams
}

// ScheduleVenues returns the tournament's selected venues as schedule venues,
// in config order.
func (c *Config) ScheduleVenues() []schedule.Venue {
	selected := make(map[string]bool, len(c.Tournament.SelectedVenues))
	for _, id := range c.Tournament.SelectedVenues {
		selected[id] = true
	}
	var venues []schedule.Venue
	for _, v := range c.Venues {
		if len(selected) > 0 && !selected[v.ID] {
			continue
		}
		venues = append(venues, schedule.Venue{
			ID:    v.ID,
			Name:  v.Name,
			Open:  v.AvailableStartTime.Clock,
			Close: v.AvailableEndTime.Clock,
		})
	}
	return venues
}

// Interval returns the configured grid interval.
func (c *Config) Interval() schedule.Interval {
	return schedule.Interval(c.Grid.IntervalMinutes)
}

// Checker returns a conflict checker that names teams by their display names.
func (c *Config) Checker() schedule.Checker {
	return schedule.Checker{
		TeamName:           c.TeamName,
		EnforceClosingTime: c.Grid.EnforceClosingTime,
	}
}

// BoardConfig returns the placement rules for this tournament.
func (c *Config) BoardConfig() schedule.BoardConfig {
	return schedule.BoardConfig{
		Venues:          c.ScheduleVenues(),
		Interval:        c.Interval(),
		FirstDay:        c.Tournament.StartDate.Time,
		LastDay:         c.Tournament.EndDate.Time,
		DefaultDuration: c.Grid.DefaultDurationMinutes,
		MaxDuration:     c.Grid.MaxDurationMinutes,
		Checker:         c.Checker(),
	}
}

func (c *Config) VenueName(id string) string {
	for _, v := range c.Venues {
		if v.ID == id {
			if v.Name != "" {
				return v.Name
			}
			return v.ID
		}
	}
	return id
}

func (c *Config) TeamName(id string) string {
	for _, t := range c.AllTeams() {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

func (c *Config) PoolName(id string) string {
	for _, p := range c.Pools {
		if p.ID == id {
			if p.Name != "" {
				return p.Name
			}
			return p.ID
		}
	}
	return id
}

func (c *Config) DivisionOf(poolID string) string {
	for _, p := range c.Pools {
		if p.ID == poolID {
			return p.Division
		}
	}
	return ""
}

// LoadFromBytes parses YAML bytes into a Config, applies defaults and
// validates it.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromFile reads and parses a YAML config file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}
	return LoadFromBytes(data)
}

func (c *Config) applyDefaults() {
	if c.Grid.IntervalMinutes == 0 {
		c.Grid.IntervalMinutes = defaultInterval
	}
	if c.Grid.DefaultDurationMinutes == 0 {
		c.Grid.DefaultDurationMinutes = defaultDuration
	}
	if c.Grid.MaxDurationMinutes == 0 {
		c.Grid.MaxDurationMinutes = defaultMaxDurationMins
	}
	if c.Strategy == "" {
		c.Strategy = defaultStrategy
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) validate() error {
	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.ActualTag()))
			}
			return errors.Newf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid config")
	}

	if c.Tournament.StartDate.Time.IsZero() || c.Tournament.EndDate.Time.IsZero() {
		return errors.New("tournament start_date and end_date are required")
	}
	if c.Tournament.EndDate.Time.Before(c.Tournament.StartDate.Time) {
		return errors.Newf("end date %s must not be before start date %s",
			c.Tournament.EndDate.Time.Format(dateLayout),
			c.Tournament.StartDate.Time.Format(dateLayout))
	}

	if c.Grid.MaxDurationMinutes < c.Grid.IntervalMinutes {
		return errors.Newf("max_duration_minutes %d is shorter than one %d-minute grid interval",
			c.Grid.MaxDurationMinutes, c.Grid.IntervalMinutes)
	}

	venues := make(map[string]bool)
	for _, v := range c.Venues {
		if venues[v.ID] {
			return errors.Newf("venue %q is defined twice", v.ID)
		}
		venues[v.ID] = true
		if v.AvailableStartTime.Clock >= v.AvailableEndTime.Clock {
			return errors.Newf("venue %q: available_start_time %s must be before available_end_time %s",
				v.ID, v.AvailableStartTime.Clock, v.AvailableEndTime.Clock)
		}
	}
	for _, id := range c.Tournament.SelectedVenues {
		if !venues[id] {
			return errors.Newf("selected venue %q is not defined", id)
		}
	}

	// A team belongs to exactly one pool.
	pools := make(map[string]bool)
	seen := make(map[string]string)
	for _, p := range c.Pools {
		if pools[p.ID] {
			return errors.Newf("pool %q is defined twice", p.ID)
		}
		pools[p.ID] = true
		for _, team := range p.Teams {
			if prev, ok := seen[team.ID]; ok {
				return errors.Newf("team %q appears in both %q and %q pools", team.ID, prev, p.ID)
			}
			seen[team.ID] = p.ID
		}
	}

	return nil
}
