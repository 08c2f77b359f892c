package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Serve   ServeCmd         `cmd:"" help:"Run the display server and blind clock for a house"`
	Clock   ClockCmd         `cmd:"" help:"Run the blind clock in the terminal"`
	Settle  SettleCmd        `cmd:"" help:"Settle a stage file into a ranking"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rankmaster"),
		kong.Description("Tournament session engine: settlement, payouts, blind clock and ranking ledger"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
