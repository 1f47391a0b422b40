package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"github.com/mcncl/jsonshape/internal/config"
	"github.com/mcncl/jsonshape/internal/errors"
	"github.com/mcncl/jsonshape/internal/logging"
)

// CLI defines the command-line interface
type CLI struct {
	Config  string `help:"Path to config file. Defaults to the nearest .jsonshape.yml." short:"c" type:"path"`
	Debug   bool   `help:"Enable debug logging." short:"d"`
	LogFile string `help:"Write logs to this file instead of stderr." name:"log-file" type:"path"`

	Generate GenerateCmd `cmd:"" help:"Generate Go structs and serialization functions from schema files."`
	Infer    InferCmd    `cmd:"" help:"Infer a schema from a sample JSON document."`
	Check    CheckCmd    `cmd:"" help:"Check that a JSON document matches a schema type."`
	Fmt      FmtCmd      `cmd:"" help:"Re-serialize a JSON document in canonical form."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Context holds the runtime context shared by all commands
type Context struct {
	Config *config.Config
	Log    *zap.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: jsonshape --help\n")
		os.Exit(1)
	}
}

// execute parses args and runs the selected command.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("jsonshape"),
		kong.Description("Generate and check fixed-shape JSON serialization code for Go structs"),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return errors.NewInputError(err.Error(), nil)
	}

	cfg, err := config.LoadConfigWithCLI(cli.Config, config.Overrides{
		Debug:   cli.Debug,
		LogFile: cli.LogFile,
	})
	if err != nil {
		return errors.NewInputError(fmt.Sprintf("failed to load configuration: %v", err), err)
	}

	logger, closeLog, err := logging.New(cfg.Log, stderr)
	if err != nil {
		return errors.NewInputError(fmt.Sprintf("failed to set up logging: %v", err), err)
	}
	defer func() { _ = closeLog() }()

	logger.Debug("starting", zap.String("command", kctx.Command()), zap.String("version", Version))

	return kctx.Run(&Context{
		Config: cfg,
		Log:    logger,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	})
}
