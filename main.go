package main

import (
	"github.com/alecthomas/kong"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("prism"),
		kong.Description("Grammar-driven tokenizer and syntax highlighter.\n\nIf no file is specified, reads from stdin (pipe)."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	app, err := cli.Setup()
	ctx.FatalIfErrorf(err)

	err = ctx.Run(app)
	app.Close()
	ctx.FatalIfErrorf(err)
}
