// Command homeschedctl is a demo harness for the scheduler: it wires a
// stdout-logging Dispatcher/AppRegistry/AdminProjector into a Scheduler
// built from a config file or flags and runs the tick loop until
// interrupted. It exists to exercise the library end-to-end, not as part
// of it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/halvorsen/homesched"
	"github.com/halvorsen/homesched/types"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "homeschedctl",
		Short: "Run the callback scheduler against a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfgFile)
		},
	}

	root.Flags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file (see --help for flags otherwise)")
	root.Flags().String("timezone", "UTC", "IANA time zone")
	root.Flags().Float64("latitude", 0, "location latitude")
	root.Flags().Float64("longitude", 0, "location longitude")
	root.Flags().Float64("elevation", 0, "location elevation in meters")
	root.Flags().Duration("tick", time.Second, "pacing grain")
	root.Flags().Duration("interval", time.Second, "virtual time advanced per tick")
	root.Flags().String("starttime", "", "YYYY-MM-DD HH:MM:SS start time (enables time travel)")
	root.Flags().String("endtime", "", "YYYY-MM-DD HH:MM:SS stop time")

	viper.BindPFlags(root.Flags())

	return root
}

func run(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := types.Config{
		TimeZone:  viper.GetString("timezone"),
		Latitude:  viper.GetFloat64("latitude"),
		Longitude: viper.GetFloat64("longitude"),
		Elevation: viper.GetFloat64("elevation"),
		Tick:      viper.GetDuration("tick"),
		Interval:  viper.GetDuration("interval"),
		StartTime: viper.GetString("starttime"),
		EndTime:   viper.GetString("endtime"),
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s, err := homesched.New(cfg, logDispatcher{log}, staticRegistry{}, homesched.NewAsyncBridge(ctx, logProjector{log}, log), log)
	if err != nil {
		return err
	}

	log.Info("scheduler starting", "sun_up", s.SunUp())
	return s.Run(ctx)
}

// logDispatcher logs every fire instead of actually invoking a worker
// pool; a real caller would forward this to one.
type logDispatcher struct{ log *slog.Logger }

func (d logDispatcher) Dispatch(ctx context.Context, env types.DispatchEnvelope) error {
	d.log.Info("dispatch", "owner", env.Owner, "function", env.Function, "type", env.Type)
	return nil
}

// staticRegistry has no owning apps of its own; every owner gets
// thread-affinity defaults.
type staticRegistry struct{}

func (staticRegistry) Lookup(owner string) (types.AppInfo, bool) {
	return types.AppInfo{ID: owner, PinThread: -1}, false
}
func (staticRegistry) CheckAppUpdates(scope string) {}

// logProjector logs admin projection calls instead of mirroring them into
// a real entity store.
type logProjector struct{ log *slog.Logger }

func (p logProjector) AddEntity(id string, entity homesched.AdminEntity) {
	p.log.Debug("admin add_entity", "id", id, "function", entity.Function)
}
func (p logProjector) SetState(id string, executionTime time.Time) {
	p.log.Debug("admin set_state", "id", id, "execution_time", executionTime)
}
func (p logProjector) RemoveEntity(id string) {
	p.log.Debug("admin remove_entity", "id", id)
}
