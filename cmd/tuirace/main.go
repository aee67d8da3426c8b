// Package main provides the CLI entrypoint for tuirace.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/verte-zerg/tuirace/internal/config"
	"github.com/verte-zerg/tuirace/internal/generator"
	"github.com/verte-zerg/tuirace/internal/lobby"
	"github.com/verte-zerg/tuirace/internal/logging"
	"github.com/verte-zerg/tuirace/internal/model"
	"github.com/verte-zerg/tuirace/internal/netaddr"
	"github.com/verte-zerg/tuirace/internal/peer"
	"github.com/verte-zerg/tuirace/internal/race"
	"github.com/verte-zerg/tuirace/internal/store"
	"github.com/verte-zerg/tuirace/internal/tui"
	"github.com/verte-zerg/tuirace/internal/wordlist"
)

const (
	defaultLang           = "en"
	defaultConnectTimeout = 30 * time.Second
)

var (
	raceTimeLimit int
	raceWords     int
	raceLang      string
	raceWordList  string

	netPort           int
	netConnectTimeout time.Duration
	netReadTimeout    time.Duration
	netSyncInterval   time.Duration

	logLevel string
	logFile  string
)

type settings struct {
	race model.Config
	net  model.NetConfig
	log  model.LogConfig
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuirace",
		Short:         "Terminal typing race, solo or against one opponent on the LAN",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRace(cmd, lobby.Options{Choose: true})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVar(&raceTimeLimit, "time-limit", race.DefaultTimeLimit, "race length in seconds")
	flags.IntVar(&raceWords, "words", generator.DefaultWords, "words in the prompt paragraph")
	flags.StringVar(&raceLang, "lang", defaultLang, "language of the word list")
	flags.StringVar(&raceWordList, "wordlist", "", "word list file, one word per line (default: built-in list)")
	flags.IntVar(&netPort, "port", peer.DefaultPort, "TCP port the host listens on")
	flags.DurationVar(&netConnectTimeout, "connect-timeout", defaultConnectTimeout, "how long a client waits for the host")
	flags.DurationVar(&netReadTimeout, "read-timeout", 0, "bound on each score send/receive (0 waits forever)")
	flags.DurationVar(&netSyncInterval, "sync-interval", peer.DefaultInterval, "pause between score exchanges (0 uses the default, negative means none)")
	flags.StringVar(&logLevel, "log-level", logging.DefaultLevel, "log level (debug, info, warn, error, off)")
	flags.StringVar(&logFile, "log-file", "", "log file (default: $XDG_STATE_HOME/tuirace/tuirace.log)")

	rootCmd.AddCommand(newSoloCmd())
	rootCmd.AddCommand(newHostCmd())
	rootCmd.AddCommand(newJoinCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newSoloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solo",
		Short: "Race against the clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRace(cmd, lobby.Options{Role: model.RoleSolo})
		},
	}
}

func newHostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "host",
		Short: "Wait for one opponent to join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRace(cmd, lobby.Options{Role: model.RoleHost})
		},
	}
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join [address]",
		Short: "Join a hosted race (host or host:port)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := lobby.Options{Role: model.RoleClient}
			if len(args) == 1 {
				opts.Address = args[0]
			}
			return runRace(cmd, opts)
		},
	}
}

func runRace(cmd *cobra.Command, opts lobby.Options) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tuirace needs an interactive terminal")
	}

	logger, err := logging.New(s.log.Level, s.log.File)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer func() {
		if cerr := logger.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()
	sessionLog := logger.With().Str("session", uuid.NewString()).Logger()

	words, err := wordlist.Load(s.race.WordListPath, s.race.Lang)
	if err != nil {
		return fmt.Errorf("failed to load word list: %w", err)
	}
	prompt := generator.New().Paragraph(words, s.race.Words)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Recent hosts only pre-fill the join prompt, so the race goes on without them.
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		sessionLog.Warn().Err(err).Msg("failed to open db")
		st = nil
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	res := lobby.Result{Role: model.RoleSolo}
	var player *race.Player
	if opts.Choose || opts.Role.Multiplayer() {
		opts.Port = s.net.Port
		opts.NewChannel = func(role model.Role) *peer.Channel {
			player = race.NewPlayer(prompt, s.race.TimeLimit, race.WithRole(role))
			return peer.New(player, peerOptions(s, sessionLog.With().Str("role", role.String()).Logger()))
		}
		opts.Resolver = netaddr.Default()
		opts.Logger = sessionLog
		if st != nil {
			last, err := st.LastHost(ctx)
			if err != nil {
				sessionLog.Warn().Err(err).Msg("failed to load recent hosts")
			}
			opts.LastHost = last
		}
		lb := lobby.New(ctx, opts)
		_, err := tea.NewProgram(lb, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		lb.Close()
		if err != nil {
			return fmt.Errorf("failed to run lobby: %w", err)
		}
		res = lb.Result()
	}
	if res.Quit {
		return nil
	}
	if res.Notice != "" {
		defer logErrln(res.Notice)
	}
	if res.Channel == nil {
		player = race.NewPlayer(prompt, s.race.TimeLimit, race.WithRole(res.Role))
	}
	return playRace(ctx, s, sessionLog, player, res, st)
}

func peerOptions(s settings, log zerolog.Logger) peer.Options {
	return peer.Options{
		Interval:       s.net.SyncInterval,
		ConnectTimeout: s.net.ConnectTimeout,
		IOTimeout:      s.net.ReadTimeout,
		Logger:         log,
	}
}

// playRace runs the race screen. A connected res.Channel must be scoring
// player; it is run alongside the UI and closed when the race ends.
func playRace(ctx context.Context, s settings, sessionLog zerolog.Logger, player *race.Player, res lobby.Result, st *store.Store) error {
	log := sessionLog.With().Str("role", res.Role.String()).Logger()

	ch := res.Channel
	var updates <-chan peer.Update
	if ch != nil {
		updates = ch.Updates()
		if res.Role == model.RoleClient && st != nil {
			if err := st.RememberHost(ctx, res.Address); err != nil {
				log.Warn().Err(err).Str("addr", res.Address).Msg("failed to remember host")
			}
		}
		// Both sides start the clock as soon as they are connected.
		player.Start()
	}
	log.Info().Int("time_limit", player.TimeLimit()).Int("words", s.race.Words).Msg("race started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if ch != nil {
		g.Go(func() error {
			return ch.Run(gctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		program := tea.NewProgram(tui.NewModel(player, updates, res.Notice), tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	})
	err := g.Wait()

	ev := log.Info().Int("wpm", player.WPM()).Bool("game_over", player.GameOver())
	if res.Role.Multiplayer() {
		ev = ev.Int("opponent_wpm", player.OpponentWPM()).Str("outcome", player.Outcome().String())
	}
	ev.Msg("race finished")
	if ch != nil && ch.Err() != nil {
		logErrf("opponent link closed: %v\n", ch.Err())
	}
	return err
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	if err := config.LoadDotEnv(); err != nil {
		logErrf("%v\n", err)
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ApplyEnv(&fileCfg, os.LookupEnv); err != nil {
		return settings{}, err
	}
	applyIntConfig(cmd, "time-limit", &raceTimeLimit, fileCfg.Race.TimeLimit)
	applyIntConfig(cmd, "words", &raceWords, fileCfg.Race.Words)
	applyStringConfig(cmd, "lang", &raceLang, fileCfg.Race.Lang)
	applyStringConfig(cmd, "wordlist", &raceWordList, fileCfg.Race.WordList)
	applyIntConfig(cmd, "port", &netPort, fileCfg.Network.Port)
	applyDurationConfig(cmd, "connect-timeout", &netConnectTimeout, fileCfg.Network.ConnectTimeout)
	applyDurationConfig(cmd, "read-timeout", &netReadTimeout, fileCfg.Network.ReadTimeout)
	applyDurationConfig(cmd, "sync-interval", &netSyncInterval, fileCfg.Network.SyncInterval)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)

	s := settings{
		race: model.Config{
			Lang:         raceLang,
			WordListPath: expandHome(raceWordList),
			Words:        raceWords,
			TimeLimit:    raceTimeLimit,
		},
		net: model.NetConfig{
			Port:           netPort,
			ConnectTimeout: netConnectTimeout,
			ReadTimeout:    netReadTimeout,
			SyncInterval:   netSyncInterval,
		},
		log: model.LogConfig{
			Level: logLevel,
			File:  expandHome(logFile),
		},
	}
	if s.log.File == "" {
		s.log.File = config.DefaultLogPath()
	}
	if err := validateSettings(s); err != nil {
		return settings{}, err
	}
	return s, nil
}

func validateSettings(s settings) error {
	if s.race.TimeLimit <= 0 {
		return fmt.Errorf("--time-limit must be > 0")
	}
	if s.race.Words <= 0 {
		return fmt.Errorf("--words must be > 0")
	}
	if s.net.Port <= 0 || s.net.Port > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535")
	}
	if s.net.ConnectTimeout < 0 {
		return fmt.Errorf("--connect-timeout must be >= 0")
	}
	if s.net.ReadTimeout < 0 {
		return fmt.Errorf("--read-timeout must be >= 0")
	}
	if _, err := logging.ParseLevel(s.log.Level); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value.Duration
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuirace configuration
# Uncomment a value to enable it. Environment variables override the file,
# CLI flags override both.

[race]
# time-limit = %d         # Race length in seconds (%s)
# words = %d             # Words in the prompt paragraph (%s)
# lang = %q              # Language of the word list
# wordlist = ""           # Word list file; empty uses the built-in list

[network]
# port = %d             # TCP port the host listens on (%s)
# connect-timeout = %q   # How long a client waits for the host (%s)
# read-timeout = "0s"     # Bound on each score send/receive; 0 waits forever
# sync-interval = %q  # Pause between score exchanges; negative means none

[log]
# level = %q           # debug, info, warn, error or off (%s)
# file = ""               # Defaults to $XDG_STATE_HOME/tuirace/tuirace.log
`,
		race.DefaultTimeLimit, config.EnvTimeLimit,
		generator.DefaultWords, config.EnvWords,
		defaultLang,
		peer.DefaultPort, config.EnvPort,
		defaultConnectTimeout.String(), config.EnvConnectTimeout,
		peer.DefaultInterval.String(),
		logging.DefaultLevel, config.EnvLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
