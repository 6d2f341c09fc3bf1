package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/musicguru-go"
	"github.com/cbegin/musicguru-go/internal/config"
	"github.com/cbegin/musicguru-go/internal/logger"
	"github.com/cbegin/musicguru-go/internal/playlist"
)

type globalFlags struct {
	envFile  string
	dir      string
	logLevel string
	logFile  string
}

var flags globalFlags

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "musicguru",
		Short:         "Play 16-bit PCM WAV files from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file with MUSICGURU_* settings")
	pf.StringVar(&flags.dir, "dir", "", "music directory (default $MUSICGURU_DIR or .)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&flags.logFile, "log-file", "", "rotating log file path")

	root.AddCommand(newPlayCmd(), newListCmd(), newPulseCmd())
	return root
}

// loadConfig merges the dotenv/environment config with explicit flags.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load(flags.envFile)
	if cmd.Flags().Changed("dir") {
		cfg.MusicDir = flags.dir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	return cfg
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{Level: cfg.LogLevel, OutputPath: cfg.LogFile})
}

// resolveEntries prefers explicit file arguments over a directory scan.
func resolveEntries(cfg *config.Config, args []string) ([]musicguru.Entry, error) {
	if len(args) > 0 {
		return musicguru.EntriesFromPaths(args), nil
	}
	return musicguru.ScanDir(cfg.MusicDir)
}

func newListCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list [files...]",
		Short: "Print the playlist, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			entries, err := resolveEntries(cfg, args)
			if err != nil {
				return err
			}
			lib := playlist.New(entries)
			lib.Filter(filter)
			for _, name := range lib.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive name filter")
	return cmd
}

func newPulseCmd() *cobra.Command {
	var ticks int
	cmd := &cobra.Command{
		Use:   "pulse <file>",
		Short: "Print the visualizer's per-tick energy and pulse for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			track, err := musicguru.Decode(args[0])
			if err != nil {
				return err
			}
			n := ticks
			if n <= 0 {
				n = musicguru.TicksFor(track.Duration, cfg.TickInterval)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", track)
			fmt.Fprintln(out, "tick\tcursor\tenergy\tpulse\thue")
			for _, f := range musicguru.TracePulse(track, n) {
				fmt.Fprintf(out, "%d\t%d\t%.4f\t%.4f\t%.3f\n", f.Tick, f.Cursor, f.Energy, f.Pulse, f.Hue)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 0, "number of ticks (default: whole track)")
	return cmd
}

type playFlags struct {
	volume     int
	repeat     bool
	shuffle    bool
	filter     string
	sampleRate int
	watch      bool
}

func newPlayCmd() *cobra.Command {
	var pf playFlags
	cmd := &cobra.Command{
		Use:   "play [files...]",
		Short: "Play the playlist headlessly, printing progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if cmd.Flags().Changed("volume") {
				cfg.Volume = pf.volume
			}
			if cmd.Flags().Changed("repeat") {
				cfg.Repeat = pf.repeat
			}
			if cmd.Flags().Changed("shuffle") {
				cfg.Shuffle = pf.shuffle
			}
			if cmd.Flags().Changed("sample-rate") {
				cfg.SampleRate = pf.sampleRate
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch = pf.watch
			}
			return runPlay(cmd, cfg, pf.filter, args)
		},
	}
	f := cmd.Flags()
	f.IntVar(&pf.volume, "volume", 80, "volume 0..100")
	f.BoolVar(&pf.repeat, "repeat", false, "repeat the current track")
	f.BoolVar(&pf.shuffle, "shuffle", false, "pick the next track at random")
	f.StringVar(&pf.filter, "filter", "", "case-insensitive name filter")
	f.IntVar(&pf.sampleRate, "sample-rate", 44100, "output sample rate")
	f.BoolVar(&pf.watch, "watch", true, "rescan the music directory when files change")
	return cmd
}

func runPlay(cmd *cobra.Command, cfg *config.Config, filter string, args []string) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	entries, err := resolveEntries(cfg, args)
	if err != nil {
		return err
	}
	pl, err := musicguru.NewPlayer(cfg.SampleRate,
		musicguru.WithLogger(log),
		musicguru.WithVolume(cfg.Volume),
		musicguru.WithRepeat(cfg.Repeat),
		musicguru.WithShuffle(cfg.Shuffle),
		musicguru.WithTickInterval(cfg.TickInterval))
	if err != nil {
		return err
	}
	defer pl.Close()
	pl.SetLibrary(entries)
	pl.SetFilter(filter)
	if len(pl.Tracks()) == 0 {
		return errors.New("no playable files")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch && len(args) == 0 {
		w, err := playlist.NewWatcher(cfg.MusicDir, log.Named("watch"))
		if err != nil {
			log.Warn("directory watch disabled", zap.String("dir", cfg.MusicDir), zap.Error(err))
		} else {
			go w.Run(ctx)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case list := <-w.Updates():
						pl.SetLibrary(list)
						log.Info("playlist updated", zap.Int("tracks", len(list)))
					}
				}
			}()
		}
	}

	events := pl.Watch()
	if err := pl.Play(); err != nil {
		return err
	}
	go pl.Clock().Run(ctx)

	out := cmd.OutOrStdout()
	status := time.NewTicker(time.Second)
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case ev := <-events:
			switch ev.Kind {
			case musicguru.EventTrackLoaded:
				fmt.Fprintf(out, "\n> %s\n", ev.Track)
			case musicguru.EventLoadFailed:
				fmt.Fprintf(out, "\n! %s: %v\n", ev.Track, ev.Err)
			case musicguru.EventTrackRepeated:
				fmt.Fprintf(out, "\n~ repeating %s\n", ev.Track)
			}
		case <-status.C:
			st := pl.Status()
			fmt.Fprintf(out, "\r%s  %s  %3d%%", st.TrackName, st.TimeLabel(), st.Progress)
			if st.State == musicguru.Stopped && !pl.Clock().Running() {
				fmt.Fprintln(out, "\nplayback completed")
				return nil
			}
		}
	}
}
