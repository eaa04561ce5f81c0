// Command tailor applies generated rewrites to résumé documents.
// It projects .docx files to plain text, patches them from edit requests,
// renders editable HTML views and exports hand edits back into the
// container.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/resumetailor/core/tailor"
	"github.com/FocuswithJustin/resumetailor/internal/config"
	"github.com/FocuswithJustin/resumetailor/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for tailor.
var CLI struct {
	// Global flags
	Config   string `name:"config" short:"c" help:"Config file (YAML)" type:"path" env:"TAILOR_CONFIG"`
	LogLevel string `name:"log-level" help:"Override the configured log level"`

	Project ProjectCmd `cmd:"" help:"Print the plain-text projections of a document"`
	Outline OutlineCmd `cmd:"" help:"List the sections of a document"`
	Patch   PatchCmd   `cmd:"" help:"Apply edit requests to a document"`
	Render  RenderCmd  `cmd:"" help:"Render an editable HTML view of a document"`
	Export  ExportCmd  `cmd:"" help:"Write hand edits from an HTML view back into the document"`
	Batch   BatchCmd   `cmd:"" help:"Patch many documents in parallel"`
	Verify  VerifyCmd  `cmd:"" help:"Verify a batch bundle against its manifest"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// App carries what every command needs. It is bound into kong so each
// Run method can take it as a parameter.
type App struct {
	Config *config.Config
	Engine *tailor.Engine
	Out    io.Writer
}

// newApp loads configuration and builds the engine.
func newApp(configPath, logLevel string, out io.Writer) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	cfg.InitLogging()

	dict, err := cfg.Dictionary()
	if err != nil {
		return nil, err
	}
	engine := tailor.NewEngine(tailor.Options{
		Dictionary: dict,
		Matching:   cfg.MatcherOptions(),
	})
	return &App{Config: cfg, Engine: engine, Out: out}, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("tailor"),
		kong.Description("Résumé tailoring - run-preserving .docx rewriting"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if ctx.Command() == "version" {
		ctx.FatalIfErrorf(ctx.Run(&App{Out: os.Stdout}))
		return
	}

	app, err := newApp(CLI.Config, CLI.LogLevel, os.Stdout)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(app)
	if err != nil {
		logging.Error("command failed", "command", ctx.Command(), "error", err.Error())
	}
	ctx.FatalIfErrorf(err)
}
