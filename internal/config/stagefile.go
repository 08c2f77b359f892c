package config

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/rankmaster/internal/stage"
)

// StageFile describes a whole stage in one HCL file, used for offline
// settlement runs.
type StageFile struct {
	Ranking              string       `hcl:"ranking"`
	Category             string       `hcl:"category"`
	Multiplier           int          `hcl:"multiplier,optional"`
	AdministrativeAmount float64      `hcl:"admin_amount,optional"`
	RankingPrize         *float64     `hcl:"ranking_prize,optional"`
	PlacesPaid           int          `hcl:"places_paid,optional"`
	Entries              []StageEntry `hcl:"entry,block"`
}

// StageEntry is one player's line in a stage file.
type StageEntry struct {
	Name         string `hcl:"name,label"`
	ID           string `hcl:"id,optional"`
	Position     int    `hcl:"position,optional"`
	Rebuys       int    `hcl:"rebuys,optional"`
	DoubleRebuys int    `hcl:"double_rebuys,optional"`
	Addons       int    `hcl:"addons,optional"`
	Paid         bool   `hcl:"paid,optional"`
}

// LoadStageFile parses a stage file. Entries without an explicit player ID
// get a generated one, for players not yet in the roster.
func LoadStageFile(filename string) (*StageFile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}

	var sf StageFile
	if diags := gohcl.DecodeBody(file.Body, nil, &sf); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}

	if sf.Multiplier == 0 {
		sf.Multiplier = 1
	}
	if sf.Multiplier != 1 && sf.Multiplier != 2 {
		return nil, fmt.Errorf("multiplier must be 1 or 2, got %d", sf.Multiplier)
	}
	if len(sf.Entries) == 0 {
		return nil, fmt.Errorf("%s has no entries", filename)
	}

	seen := map[string]bool{}
	for i := range sf.Entries {
		e := &sf.Entries[i]
		if seen[e.Name] {
			return nil, fmt.Errorf("duplicate entry %q", e.Name)
		}
		seen[e.Name] = true
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
	}
	return &sf, nil
}

// LedgerEntries converts the file entries to stage ledger entries.
func (sf *StageFile) LedgerEntries() []stage.Entry {
	out := make([]stage.Entry, len(sf.Entries))
	for i, e := range sf.Entries {
		out[i] = stage.Entry{
			PlayerID:     e.ID,
			Name:         e.Name,
			Position:     e.Position,
			Rebuys:       e.Rebuys,
			DoubleRebuys: e.DoubleRebuys,
			Addons:       e.Addons,
			Paid:         e.Paid,
		}
	}
	return out
}

// FinalizeInput converts the file's settlement knobs.
func (sf *StageFile) FinalizeInput() stage.FinalizeInput {
	return stage.FinalizeInput{
		Multiplier:           sf.Multiplier,
		RankingPrizeOverride: sf.RankingPrize,
		AdministrativeAmount: sf.AdministrativeAmount,
		PlacesPaidOverride:   sf.PlacesPaid,
	}
}
