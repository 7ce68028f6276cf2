// Package cmd implements the calctl command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/calendar-engine/config"
	"github.com/warp/calendar-engine/factory"
)

type rootOptions struct {
	configPath string
	zone       string
	firstDay   string
}

// NewRootCmd builds the calctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "calctl",
		Short: "Calendar arithmetic from the command line",
		Long: `calctl evaluates calendar arithmetic without a server.

Times are RFC 3339 ("2024-03-31T09:00:00+09:00"), local date-times in the
selected zone ("2024-03-31", "2024-03-31T09:00"), epoch milliseconds, or "now".

Commands:
  diff      - whole units between two times, with a rounding policy
  truncate  - start or end of the enclosing period
  same      - whether two times share a period
  units     - milliseconds per physical unit`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config for default zone, week start and rounding")
	root.PersistentFlags().StringVar(&opts.zone, "zone", "", "Zone name or offset (default: config or UTC)")
	root.PersistentFlags().StringVar(&opts.firstDay, "first-day", "", "First day of the week (default: config or monday)")

	root.AddCommand(
		newDiffCmd(opts),
		newTruncateCmd(opts),
		newSameCmd(opts),
		newUnitsCmd(),
	)
	return root
}

// Execute runs calctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// factory builds a request factory from the config file and flags.
func (o *rootOptions) factory() (*factory.Factory, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		if _, err := os.Stat(o.configPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config %s not found", o.configPath)
		}
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	calCfg, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	rounding, err := cfg.DefaultRounding()
	if err != nil {
		return nil, err
	}

	f := factory.New(calCfg)
	f.Rounding = rounding
	f.Default, err = f.Config(factory.ZoneJSON{Zone: o.zone, FirstDay: o.firstDay}, f.Default)
	if err != nil {
		return nil, err
	}
	return f, nil
}
