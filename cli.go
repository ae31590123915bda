package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tliron/commonlog"

	"github.com/AnoJokamp354/Prism/internal/config"
	"github.com/AnoJokamp354/Prism/internal/exporter"
	"github.com/AnoJokamp354/Prism/internal/grammar"
	"github.com/AnoJokamp354/Prism/internal/grammar/languages"
	"github.com/AnoJokamp354/Prism/internal/processor"
	"github.com/AnoJokamp354/Prism/internal/tracing"
	"github.com/AnoJokamp354/Prism/pkg/prism"
)

var log = commonlog.GetLogger("prism.cli")

var errNoInput = errors.New("no input: pass a file or pipe data on stdin")

type CLI struct {
	Config         string   `help:"YAML configuration file." type:"path" env:"PRISM_CONFIG"`
	Verbose        int      `short:"v" type:"counter" help:"Increase log verbosity (repeatable)."`
	LogFile        string   `help:"Write logs to this file instead of stderr." type:"path"`
	Encoding       string   `short:"e" default:"utf8" enum:"utf8,cp437,cp850,iso-8859-1" help:"Input encoding (${enum})."`
	OutputEncoding string   `short:"o" default:"utf8" enum:"utf8,cp437,cp850,iso-8859-1" help:"Encoding of text, html and ansi output (${enum})."`
	Grammar        []string `short:"g" help:"Extra YAML grammar files, loaded after the built-in ones." type:"existingfile"`
	Trace          string   `help:"Trace exporter: none, stdout or otlp. Overrides the configuration file."`

	Tokenize  TokenizeCmd  `cmd:"" help:"Print the token tree of a source file."`
	Highlight HighlightCmd `cmd:"" help:"Highlight a source file as HTML or terminal colors."`
	Render    RenderCmd    `cmd:"" help:"Render a JSON token tree to HTML."`
	Worker    WorkerCmd    `cmd:"" help:"Answer one tokenize request read from stdin."`
	Languages LanguagesCmd `cmd:"" help:"List registered languages and their aliases."`
}

// App holds what the commands share once flags and configuration are merged.
type App struct {
	Config      config.Config
	Store       *grammar.Store
	Highlighter *processor.Highlighter
	Tracing     *tracing.Provider
	Encoding    string

	// OutputEncoding applies to text, html and ansi output. JSON, tables and
	// statistics stay UTF-8.
	OutputEncoding string

	Stdin  io.Reader
	Stdout io.Writer
}

// Setup loads configuration, configures logging and tracing, and registers
// the grammars.
func (c *CLI) Setup() (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	verbosity := max(c.Verbose, cfg.Log.Verbosity)
	var logFile *string
	if cfg.Log.File != "" {
		logFile = &cfg.Log.File
	}
	if c.LogFile != "" {
		logFile = &c.LogFile
	}
	commonlog.Configure(verbosity, logFile)

	if c.Trace != "" {
		cfg.Tracing.Exporter = c.Trace
	}
	cfg.Grammars = append(cfg.Grammars, c.Grammar...)

	app, err := NewApp(cfg, c.Encoding)
	if err != nil {
		return nil, err
	}
	app.OutputEncoding = c.OutputEncoding
	return app, nil
}

func NewApp(cfg config.Config, encoding string) (*App, error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	store := grammar.NewStore()
	if err := languages.Load(store, cfg.Tokenizer.MatchTimeout); err != nil {
		return nil, err
	}

	loader := grammar.NewLoader(store)
	loader.Strict = cfg.StrictGrammars
	loader.MatchTimeout = cfg.Tokenizer.MatchTimeout
	for _, path := range cfg.Grammars {
		name, err := loader.LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Infof("loaded grammar %s from %s", name, path)
	}

	return &App{
		Config:      cfg,
		Store:       store,
		Highlighter: processor.NewFromConfig(store, cfg, provider.Tracer()),
		Tracing:     provider,
		Encoding:    encoding,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
	}, nil
}

// Close flushes pending spans.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Tracing.Shutdown(ctx); err != nil {
		log.Warningf("tracing shutdown: %v", err)
	}
}

// ReadInput reads path, or stdin when path is empty, and converts it to
// UTF-8 with LF line endings.
func (a *App) ReadInput(path string) (string, error) {
	data, err := a.readRaw(path)
	if err != nil {
		return "", err
	}

	data, err = prism.ConvertToUTF8(data, a.Encoding)
	if err != nil {
		return "", err
	}
	return string(prism.NormalizeNewlines(data)), nil
}

// WriteOutput writes s to stdout in the output encoding.
func (a *App) WriteOutput(s string) error {
	data, err := prism.ConvertToEncoding([]byte(s), a.OutputEncoding)
	if err != nil {
		return err
	}
	if _, err := a.Stdout.Write(data); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}
	return nil
}

func (a *App) readRaw(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		return data, nil
	}

	// A terminal on stdin means nothing was piped in.
	if f, ok := a.Stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("error checking stdin: %w", err)
		}
		if stat.Mode()&os.ModeCharDevice != 0 {
			return nil, errNoInput
		}
	}

	data, err := io.ReadAll(a.Stdin)
	if err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return data, nil
}

// Theme returns the terminal theme named by path or the configuration,
// layered over the default palette.
func (a *App) Theme(path string) (*exporter.Theme, error) {
	if path == "" {
		path = a.Config.Theme
	}
	if path == "" {
		return exporter.DefaultTheme(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error reading theme: %w", err)
	}
	defer f.Close()

	return exporter.LoadTheme(f, exporter.DefaultTheme())
}
