// Package config loads the house configuration: server settings, game
// categories and their fee schedules, the scoring table, and blind
// structures.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/rankmaster/internal/blinds"
	"github.com/lox/rankmaster/internal/scoring"
	"github.com/lox/rankmaster/internal/settlement"
)

// HouseConfig is the full configuration for one house.
type HouseConfig struct {
	Server     ServerSettings    `hcl:"server,block"`
	Scoring    *ScoringConfig    `hcl:"scoring,block"`
	Categories []CategoryConfig  `hcl:"category,block"`
	Structures []StructureConfig `hcl:"structure,block"`
}

// ServerSettings holds the host-level knobs.
type ServerSettings struct {
	HouseID         string `hcl:"house_id,optional"`
	Address         string `hcl:"address,optional"`
	Port            int    `hcl:"port,optional"`
	LogLevel        string `hcl:"log_level,optional"`
	DatabasePath    string `hcl:"database,optional"`
	DraftDir        string `hcl:"draft_dir,optional"`
	ActiveStructure string `hcl:"active_structure,optional"`
}

// ScoringConfig defines the points table.
type ScoringConfig struct {
	BaseAttendance int              `hcl:"base_attendance,optional"`
	Positions      []PositionPoints `hcl:"position,block"`
}

// PositionPoints assigns points to a finishing position.
type PositionPoints struct {
	Place  int `hcl:"place"`
	Points int `hcl:"points"`
}

// CategoryConfig is the fee schedule for one game category.
type CategoryConfig struct {
	Name           string  `hcl:"name,label"`
	BuyIn          float64 `hcl:"buy_in"`
	ReBuy          float64 `hcl:"re_buy,optional"`
	ReBuyDuplo     float64 `hcl:"re_buy_duplo,optional"`
	AddOn          float64 `hcl:"add_on,optional"`
	RakePercent    float64 `hcl:"rake_percent,optional"`
	RankingPercent float64 `hcl:"ranking_percent,optional"`
}

// StructureConfig defines a blind structure.
type StructureConfig struct {
	Name   string        `hcl:"name,label"`
	Levels []LevelConfig `hcl:"level,block"`
}

// LevelConfig is one level within a structure.
type LevelConfig struct {
	SmallBlind      int  `hcl:"small_blind,optional"`
	BigBlind        int  `hcl:"big_blind,optional"`
	Ante            int  `hcl:"ante,optional"`
	DurationMinutes int  `hcl:"duration"`
	Break           bool `hcl:"break,optional"`
}

// DefaultHouseConfig returns the configuration used when no file exists.
func DefaultHouseConfig() *HouseConfig {
	return &HouseConfig{
		Server: ServerSettings{
			HouseID:      "default",
			Address:      "localhost",
			Port:         8087,
			LogLevel:     "info",
			DatabasePath: "rankmaster.db",
			DraftDir:     "drafts",
		},
	}
}

// Load reads the HCL configuration at filename. A missing file yields the
// defaults.
func Load(filename string) (*HouseConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultHouseConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}

	var cfg HouseConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *HouseConfig) applyDefaults() {
	def := DefaultHouseConfig().Server
	if c.Server.HouseID == "" {
		c.Server.HouseID = def.HouseID
	}
	if c.Server.Address == "" {
		c.Server.Address = def.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = def.LogLevel
	}
	if c.Server.DatabasePath == "" {
		c.Server.DatabasePath = def.DatabasePath
	}
	if c.Server.DraftDir == "" {
		c.Server.DraftDir = def.DraftDir
	}
	if c.Server.ActiveStructure == "" && len(c.Structures) > 0 {
		c.Server.ActiveStructure = c.Structures[0].Name
	}
	if c.Scoring != nil && c.Scoring.BaseAttendance == 0 {
		c.Scoring.BaseAttendance = scoring.DefaultTable().BaseAttendance
	}
}

// Validate checks the configuration for contradictions.
func (c *HouseConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	seen := map[string]bool{}
	for _, cat := range c.Categories {
		if seen[cat.Name] {
			return fmt.Errorf("duplicate category %q", cat.Name)
		}
		seen[cat.Name] = true
		if cat.BuyIn < 0 || cat.ReBuy < 0 || cat.ReBuyDuplo < 0 || cat.AddOn < 0 {
			return fmt.Errorf("category %q has a negative fee", cat.Name)
		}
		if cat.RakePercent < 0 || cat.RakePercent > 100 {
			return fmt.Errorf("category %q rake_percent must be 0-100, got %v", cat.Name, cat.RakePercent)
		}
		if cat.RankingPercent < 0 || cat.RankingPercent > 100 {
			return fmt.Errorf("category %q ranking_percent must be 0-100, got %v", cat.Name, cat.RankingPercent)
		}
	}

	seen = map[string]bool{}
	for _, sc := range c.Structures {
		if seen[sc.Name] {
			return fmt.Errorf("duplicate structure %q", sc.Name)
		}
		seen[sc.Name] = true
		if err := sc.Structure().Validate(); err != nil {
			return fmt.Errorf("structure %q: %w", sc.Name, err)
		}
	}

	if c.Server.ActiveStructure != "" {
		if _, ok := c.StructureByName(c.Server.ActiveStructure); !ok {
			return fmt.Errorf("active_structure %q is not defined", c.Server.ActiveStructure)
		}
	}
	return nil
}

// ScoringTable converts the scoring block to the engine's table, falling
// back to the default table when no block is present.
func (c *HouseConfig) ScoringTable() scoring.Table {
	if c.Scoring == nil || len(c.Scoring.Positions) == 0 {
		return scoring.DefaultTable()
	}
	table := scoring.Table{
		Positions:      make(map[int]int, len(c.Scoring.Positions)),
		BaseAttendance: c.Scoring.BaseAttendance,
	}
	for _, p := range c.Scoring.Positions {
		table.Positions[p.Place] = p.Points
	}
	return table
}

// CategoryByName finds a category's fee schedule.
func (c *HouseConfig) CategoryByName(name string) (settlement.FeeSchedule, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat.FeeSchedule(), true
		}
	}
	return settlement.FeeSchedule{}, false
}

// FeeSchedule converts the category to the engine's fee schedule.
func (c CategoryConfig) FeeSchedule() settlement.FeeSchedule {
	return settlement.FeeSchedule{
		ID:             c.Name,
		Name:           c.Name,
		BuyIn:          c.BuyIn,
		ReBuy:          c.ReBuy,
		ReBuyDuplo:     c.ReBuyDuplo,
		AddOn:          c.AddOn,
		RakePercent:    c.RakePercent,
		RankingPercent: c.RankingPercent,
	}
}

// StructureByName finds a blind structure.
func (c *HouseConfig) StructureByName(name string) (blinds.Structure, bool) {
	for _, sc := range c.Structures {
		if sc.Name == name {
			return sc.Structure(), true
		}
	}
	return blinds.Structure{}, false
}

// ActiveStructure returns the structure the clock should run.
func (c *HouseConfig) ActiveStructure() (blinds.Structure, bool) {
	return c.StructureByName(c.Server.ActiveStructure)
}

// Structure converts the config block to the engine's structure.
func (c StructureConfig) Structure() blinds.Structure {
	s := blinds.Structure{ID: c.Name, Name: c.Name}
	for i, lvl := range c.Levels {
		s.Levels = append(s.Levels, blinds.Level{
			ID:              fmt.Sprintf("%s-%d", c.Name, i+1),
			SmallBlind:      lvl.SmallBlind,
			BigBlind:        lvl.BigBlind,
			Ante:            lvl.Ante,
			DurationMinutes: lvl.DurationMinutes,
			IsBreak:         lvl.Break,
		})
	}
	return s
}
