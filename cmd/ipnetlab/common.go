package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ipnetlab/internal/config"
	"ipnetlab/internal/ipam"
	"ipnetlab/internal/log"
	"ipnetlab/internal/metrics"
	"ipnetlab/internal/repository"
	"ipnetlab/internal/repository/sqlite"
	"ipnetlab/internal/service"
)

var (
	cfg     *config.Config
	cfgPath string
)

// setup loads the configuration, applies the global flags on top of it and
// configures logging
func setup(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if path != "" {
		cfg, cfgPath, err = config.LoadFromPath(path)
	} else {
		cfg, cfgPath, err = config.Load()
	}
	if err != nil {
		return err
	}

	if db, _ := flags.GetString("db"); db != "" {
		cfg.Database.Path = db
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format, _ := flags.GetString("log-format"); format != "" {
		cfg.Log.Format = format
	}
	if err := log.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}

	if cfgPath != "" {
		log.L.WithField("path", cfgPath).Debug("configuration loaded")
	}
	return nil
}

// commandContext returns a context cancelled on SIGINT or SIGTERM
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// newService builds the allocation service. With persistent set the snapshot
// store is opened; the returned function closes it.
func newService(persistent bool, bus *service.EventBus, m *metrics.Metrics) (*service.AllocationService, func(), error) {
	engine, err := ipam.NewEngine(cfg.EngineOptions())
	if err != nil {
		return nil, nil, err
	}

	var (
		repo    repository.Repository
		closeFn = func() {}
	)
	if persistent {
		r, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		repo = r
		closeFn = func() { r.Close() }
		log.L.WithField("path", cfg.Database.Path).Debug("database opened")
	}
	return service.NewAllocationService(engine, repo, bus, m), closeFn, nil
}

// exclusive fails when more than one of the named flags has a non-zero value
func exclusive(flags *pflag.FlagSet, names ...string) error {
	var set []string
	flags.VisitAll(func(f *pflag.Flag) {
		for _, n := range names {
			if f.Name == n && f.Value.String() != "" && f.Value.String() != "0" {
				set = append(set, "--"+n)
			}
		}
	})
	if len(set) > 1 {
		return fmt.Errorf("%s are mutually exclusive", strings.Join(set, " and "))
	}
	return nil
}

// printHeader writes tab separated upper case column names
func printHeader(w io.Writer, columns ...string) {
	for i := range columns {
		columns[i] = strings.ToUpper(columns[i])
	}
	fmt.Fprintln(w, strings.Join(columns, "\t"))
}

// orDash renders an empty list as a dash
func orDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ",")
}
