// Package main provides the dice command-line tool for recording per-die throw statistics.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dice/internal/command"
	"github.com/cory-johannsen/dice/internal/config"
	"github.com/cory-johannsen/dice/internal/dice"
	"github.com/cory-johannsen/dice/internal/observability"
	"github.com/cory-johannsen/dice/internal/storage/filestore"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// boundFlags maps configuration keys to the flags that override them.
var boundFlags = map[string]string{
	"data.dir":           "data",
	"logging.level":      "log-level",
	"dice.default_faces": "faces",
}

// bindFlags binds boundFlags into v. Flags override config only when set on the command line.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range boundFlags {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("binding %s: flag --%s is not defined", key, name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// run executes one invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("dice", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	fs.String("data", "", "location of the dice & statistics data (default ~/.dice)")
	fs.String("log-level", "", "minimum log level: debug, info, warn, error")
	fs.IntP("faces", "f", dice.DefaultFaces, "number of faces for new dice")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintf(stdout, "dice %s\n", version)
		return 0
	}

	v := config.New(*configPath)
	if err := bindFlags(v, fs); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := config.Read(v, *configPath); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "initializing logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	root, err := cfg.Data.Path()
	if err != nil {
		logger.Error("resolving data directory", zap.Error(err))
		return 1
	}
	logger.Debug("using data directory", zap.String("root", root))

	store := filestore.New[dice.Die](root, dice.Codec{}, logger)
	repo := dice.NewRepository(store, logger)
	app := command.NewApp(repo, command.DefaultRegistry(), stdin, stdout, stderr, logger)

	name, rest := "", fs.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	err = app.Execute(name, rest, command.Options{Faces: cfg.Dice.DefaultFaces})
	var usage *command.UsageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usage):
		fmt.Fprintln(stderr, usage.Error())
		return 2
	default:
		fmt.Fprintln(stderr, err)
		return 1
	}
}
