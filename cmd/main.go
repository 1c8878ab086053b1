package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fnirsi_ps/internal/config"
	"fnirsi_ps/internal/logger"
	"fnirsi_ps/internal/protocol"
	"fnirsi_ps/internal/report"
	"fnirsi_ps/internal/service"
	"fnirsi_ps/internal/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	portFlag     string
	modelFlag    string
	logLevelFlag string
	jsonFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "fnirsi-ps [flags] cmd [cmd...]",
	Short: "Controls FNIRSI DC power supplies (DC6006L, DC-580)",
	Long: `fnirsi-ps executes a list of command tokens against the supply, in order.

Commands:
  on              turn power on
  off             turn power off
  v=<V>           set target voltage
  c=<A>           set target current
  ovp=<V>         set over-voltage limit
  ocp=<A>         set over-current limit
  opp=<W>         set over-power limit
  ohp=<sec>       set over-hour limit (0 disables)
  noprotect       disable protection
  stat            show one merged status snapshot
  trace=<n>       stream trace capture (-1 for infinite)
  flush           stop logging and clear the device buffer
  mem=<m1|m2>     recall a stored preset
  cmd=<raw>       send a raw low-level frame
  dump            dump the raw serial stream
  echo=<str>      print the given text
  sep             print a separator line
  sleep=<sec>     pause command processing
  check           enable double-check (read-back verification) mode

Set $FNIRSI_PS to choose the default device port.`,
	Example: `  # Output 1V/1A for ~3s
  fnirsi-ps v=1 c=1 on sleep=3 off

  # Verified ramp experiment
  fnirsi-ps check v=1.5 c=1.0 on flush sep trace=15 c=0.5 flush sep trace=15 off`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial device path (default $"+config.EnvPort+")")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "device model: DC6006L or DC580")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit status records as JSON")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	log := logger.Get(cfg.LogLevel).With("run_id", uuid.NewString())

	model := protocol.ModelFor(cfg.Model)
	log.Debugw("configuration loaded", "port", cfg.Port, "model", model.Name)

	sess, err := transport.Open(cfg.Port)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warnw("failed to close device", "err", cerr)
		}
	}()

	// SIGINT is how an infinite trace ends; the signal context cancels the
	// capture loop and the deferred close above still releases the port.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep := report.New(os.Stdout, jsonFlag)
	svc := service.NewService(sess, model, rep, log, service.Options{
		Delay:       cfg.Delay,
		ReadTimeout: cfg.ReadTimeout,
		Retries:     cfg.CheckRetries,
	})

	if err := svc.Run(ctx, args); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Infow("interrupted")
			return nil
		}
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
