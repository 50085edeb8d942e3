// Command vpnprov generates obfs4 bridge state and renders the provider
// configs that advertise it.
//
// Usage:
//
//	vpnprov [-v N] genstate STATEDIR
//	vpnprov [-v N] render -f eip|provider -c CONFIG -t TEMPLATE [-s STATEDIR] [--verify]
//	vpnprov [-v N] check [--host HOST] [--port PORT] STATEDIR
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/pborman/getopt/v2"

	"github.com/leapcode/vpnprov/internal/model"
	"github.com/leapcode/vpnprov/pkg/config"
	"github.com/leapcode/vpnprov/pkg/provision"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := getopt.New()
	optVerbosity := opts.Uint16Long("verbosity", 'v', uint16(4), "Verbosity level (1 to 5, 1 is lowest)")
	helpFlag := opts.BoolLong("help", 'h', "Display help")
	opts.SetParameters("genstate|render|check [args...]")
	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintln(stderr, err)
		opts.PrintUsage(stderr)
		return 2
	}
	if *helpFlag {
		opts.PrintUsage(stdout)
		return 0
	}
	rest := opts.Args()
	if len(rest) == 0 {
		opts.PrintUsage(stderr)
		return 2
	}

	logger := &log.Logger{Level: verbosityLevel(*optVerbosity), Handler: &logHandler{Writer: stderr}}

	var err error
	switch rest[0] {
	case "genstate":
		err = runGenState(rest, logger, stdout, stderr)
	case "render":
		err = runRender(rest, logger, stdout, stderr)
	case "check":
		err = runCheck(rest, logger, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		opts.PrintUsage(stderr)
		return 2
	}
	switch {
	case errors.Is(err, errUsage):
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "fatal: %s\n", err)
		return 1
	}
	return 0
}

// parseSubcommand parses the options of a subcommand and returns its
// positional arguments.
func parseSubcommand(opts *getopt.Set, args []string, stderr io.Writer) ([]string, error) {
	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintln(stderr, err)
		opts.PrintUsage(stderr)
		return nil, errUsage
	}
	return opts.Args(), nil
}

func runGenState(args []string, logger model.Logger, stdout, stderr io.Writer) error {
	opts := getopt.New()
	opts.SetParameters("STATEDIR")
	optEnv := opts.StringLong("env", 'e', ".env", "dotenv file with defaults")
	positional, err := parseSubcommand(opts, args, stderr)
	if err != nil {
		return err
	}
	var stateDir string
	if len(positional) > 0 {
		stateDir = positional[0]
	}
	cfg := config.NewConfig(
		config.WithLogger(logger),
		config.WithStateDir(stateDir),
		config.WithEnvironment(*optEnv),
	)
	id, err := provision.GenerateState(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, id.Certificate())
	return nil
}

func runRender(args []string, logger model.Logger, stdout, stderr io.Writer) error {
	opts := getopt.New()
	optFile := opts.StringLong("file", 'f', "", "Document to render (eip, provider)")
	optConfig := opts.StringLong("config", 'c', "", "Provider source document")
	optTemplate := opts.StringLong("template", 't', "", "Template file")
	optState := opts.StringLong("obfs4-state", 's', "", "obfs4 state directory")
	optVerify := opts.BoolLong("verify", 0, "Check obfs4 certificates with an obfs4 client")
	optEnv := opts.StringLong("env", 'e', ".env", "dotenv file with defaults")
	if _, err := parseSubcommand(opts, args, stderr); err != nil {
		return err
	}
	cfg := config.NewConfig(
		config.WithLogger(logger),
		config.WithSelector(model.FileSelector(*optFile)),
		config.WithSourcePath(*optConfig),
		config.WithTemplatePath(*optTemplate),
		config.WithStateDir(*optState),
		config.WithVerifyCert(*optVerify),
		config.WithEnvironment(*optEnv),
	)
	return provision.Assemble(cfg, stdout)
}

func runCheck(args []string, logger model.Logger, stdout, stderr io.Writer) error {
	opts := getopt.New()
	opts.SetParameters("STATEDIR")
	optHost := opts.StringLong("host", 0, "127.0.0.1", "Bridge address")
	optPort := opts.StringLong("port", 0, "443", "Bridge port")
	optEnv := opts.StringLong("env", 'e', ".env", "dotenv file with defaults")
	positional, err := parseSubcommand(opts, args, stderr)
	if err != nil {
		return err
	}
	var stateDir string
	if len(positional) > 0 {
		stateDir = positional[0]
	}
	cfg := config.NewConfig(
		config.WithLogger(logger),
		config.WithStateDir(stateDir),
		config.WithEnvironment(*optEnv),
	)
	node, err := provision.Check(cfg, *optHost, *optPort)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, node.URI())
	return nil
}
