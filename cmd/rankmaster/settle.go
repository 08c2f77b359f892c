package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/rankmaster/cmd/rankmaster/shared"
	"github.com/lox/rankmaster/internal/config"
	"github.com/lox/rankmaster/internal/scoring"
	"github.com/lox/rankmaster/internal/stage"
	"github.com/lox/rankmaster/internal/storage/sqlite"
)

// SettleCmd folds a stage file into its ranking: money settlement, ITM
// payouts, and points.
type SettleCmd struct {
	StageFile string `arg:"" help:"Stage file to settle"`
	Config    string `kong:"default='rankmaster.hcl',help='House configuration file'"`
	DryRun    bool   `kong:"help='Compute and print without persisting'"`
	CSV       string `kong:"help='Write the resulting standings to a CSV file'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

var (
	settleHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	settleLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	settleValueStyle  = lipgloss.NewStyle().Bold(true)
)

func (c *SettleCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	sf, err := config.LoadStageFile(c.StageFile)
	if err != nil {
		return err
	}

	fees, ok := cfg.CategoryByName(sf.Category)
	if !ok {
		return fmt.Errorf("category %q is not defined in %s", sf.Category, c.Config)
	}

	logger := shared.SetupLogger(cfg.Server.LogLevel, c.Debug)
	ctx := context.Background()

	store, err := sqlite.Open(cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ranking, found, err := store.LoadRanking(ctx, sf.Ranking)
	if err != nil {
		return err
	}
	if !found {
		ranking = stage.RankingState{ID: sf.Ranking}
		logger.Info("starting a new ranking", "ranking", sf.Ranking)
	}

	session := stage.NewSession(ranking, cfg.ScoringTable(), store, nil, logger)
	session.SelectFees(fees)
	session.Ledger.Replace(ctx, sf.LedgerEntries())

	var out stage.Outcome
	if c.DryRun {
		out, err = session.Preview(sf.FinalizeInput())
	} else {
		out, err = session.Finalize(ctx, sf.FinalizeInput())
	}
	if err != nil {
		return err
	}

	printOutcome(sf, out)

	if c.CSV != "" {
		if err := writeStandingsCSV(c.CSV, out.Players); err != nil {
			return err
		}
		fmt.Printf("\nStandings written to %s\n", c.CSV)
	}
	if c.DryRun {
		fmt.Println("\nDry run, nothing persisted.")
	}
	return nil
}

func printOutcome(sf *config.StageFile, out stage.Outcome) {
	row := func(label string, format string, args ...any) {
		fmt.Printf("  %s %s\n",
			settleLabelStyle.Render(fmt.Sprintf("%-16s", label)),
			settleValueStyle.Render(fmt.Sprintf(format, args...)),
		)
	}

	fmt.Println(settleHeaderStyle.Render(fmt.Sprintf("Settlement for %s (%s)", sf.Ranking, sf.Category)))
	row("Gross", "%.2f", out.Settlement.GrossTotal)
	row("Rake", "%.2f", out.Settlement.RakeAmount)
	row("Post-rake", "%.2f", out.Settlement.PostRakeAmount)
	row("Ranking prize", "%.2f", out.Settlement.RankingPrizeAmount)
	if out.Settlement.AdministrativeAmount > 0 {
		row("Administrative", "%.2f", out.Settlement.AdministrativeAmount)
	}
	row("Net", "%.2f", out.Settlement.NetAmount)

	fmt.Println()
	fmt.Println(settleHeaderStyle.Render("Payouts"))
	for _, p := range out.Prizes {
		row(fmt.Sprintf("Place %d", p.Position), "%.2f  (%.1f%%)", p.Amount, p.Percent)
	}

	fmt.Println()
	fmt.Println(settleHeaderStyle.Render("Standings"))
	for i, p := range scoring.Standings(out.Players) {
		row(fmt.Sprintf("%d. %s", i+1, p.Name), "%d pts  (day %+d)", p.TotalPoints, p.DayPoints)
	}
}

func writeStandingsCSV(path string, players []scoring.PlayerAggregate) error {
	var b strings.Builder
	if err := scoring.WriteCSV(&b, players); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
