package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/AnoJokamp354/Prism/internal/exporter"
)

type TokenizeCmd struct {
	File     string `arg:"" optional:"" help:"Source file (default stdin)." type:"path"`
	Language string `short:"l" required:"" help:"Language name or alias."`
	Format   string `short:"f" default:"json" enum:"json,table,stats,text" help:"Output format (${enum})."`
}

func (c *TokenizeCmd) Run(app *App) error {
	code, err := app.ReadInput(c.File)
	if err != nil {
		return err
	}

	stream, stats, err := app.Highlighter.Tokenize(context.Background(), c.Language, code)
	if err != nil {
		return err
	}

	switch c.Format {
	case "table":
		return exporter.ExportTokensToTable(stream, app.Stdout)
	case "stats":
		exporter.DisplayStats(stats, app.Stdout)
		return nil
	case "text":
		var sb strings.Builder
		if err := exporter.ExportText(stream, &sb); err != nil {
			return err
		}
		return app.WriteOutput(sb.String())
	default:
		return exporter.ExportJSON(c.Language, stream, &stats, app.Stdout)
	}
}

type HighlightCmd struct {
	File     string `arg:"" optional:"" help:"Source file (default stdin)." type:"path"`
	Language string `short:"l" required:"" help:"Language name or alias."`
	Format   string `short:"f" default:"html" enum:"html,ansi" help:"Output format (${enum})."`
	Theme    string `short:"t" help:"YAML terminal theme for the ansi format." type:"existingfile"`
}

func (c *HighlightCmd) Run(app *App) error {
	code, err := app.ReadInput(c.File)
	if err != nil {
		return err
	}

	if c.Format == "ansi" {
		theme, err := app.Theme(c.Theme)
		if err != nil {
			return err
		}
		// Terminal output tokenizes the raw text: nothing is escaped.
		stream, _, err := app.Highlighter.Tokenize(context.Background(), c.Language, code)
		if err != nil {
			return err
		}
		return app.WriteOutput(exporter.NewANSI(theme).Render(stream))
	}

	out, err := app.Highlighter.Highlight(context.Background(), c.Language, code, nil)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	return app.WriteOutput(out + "\n")
}

type RenderCmd struct {
	File string `arg:"" optional:"" help:"JSON token tree (default stdin)." type:"path"`
}

func (c *RenderCmd) Run(app *App) error {
	data, err := app.readRaw(c.File)
	if err != nil {
		return err
	}

	out, err := app.Highlighter.RenderResponse(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.Stdout, out)
	return err
}

type WorkerCmd struct{}

func (c *WorkerCmd) Run(app *App) error {
	data, err := app.readRaw("")
	if err != nil {
		return err
	}

	resp, err := app.Highlighter.HandleRequest(data)
	if err != nil {
		return err
	}
	_, err = app.Stdout.Write(append(resp, '\n'))
	return err
}

type LanguagesCmd struct{}

func (c *LanguagesCmd) Run(app *App) error {
	for _, name := range app.Store.Names() {
		g, _ := app.Store.Get(name)
		line := fmt.Sprintf("%-12s %3d rules", name, g.Len())
		if aliases := app.Store.Aliases(name); len(aliases) > 0 {
			line += "  (" + strings.Join(aliases, ", ") + ")"
		}
		fmt.Fprintln(app.Stdout, line)
	}
	return nil
}
