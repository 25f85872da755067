//go:build linux || darwin

// Package main is the entry point for termcore, a terminal that runs a
// shell on a pseudo-terminal and renders it through tcell.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	creack "github.com/creack/pty"
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dshills/termcore/internal/config"
	"github.com/dshills/termcore/internal/logging"
	"github.com/dshills/termcore/internal/process"
	"github.com/dshills/termcore/internal/render"
	"github.com/dshills/termcore/internal/session"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const renderInterval = 16 * time.Millisecond

type options struct {
	configPath string
	rows       int
	cols       int
	shell      string
	logLevel   string
	logFile    string
	raw        bool
	dumpConfig bool
	set        map[string]bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.dumpConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = os.Stdout.Write(data)
		return 0
	}

	logger := zap.NewNop()
	// Logs would land on the screen being rendered unless they go to a file.
	if opts.raw || cfg.Log.File != "" {
		logger, err = logging.New(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
			return 1
		}
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.raw {
		return runRaw(ctx, cfg, opts, logger)
	}
	return runScreen(ctx, cfg, opts, logger)
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.IntVar(&opts.rows, "rows", 0, "Terminal rows (default: window height)")
	flag.IntVar(&opts.cols, "cols", 0, "Terminal columns (default: window width)")
	flag.StringVar(&opts.shell, "shell", "", "Shell to run")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.logFile, "log-file", "", "Write logs to this file")
	flag.BoolVar(&opts.raw, "raw", false, "Pass bytes straight through instead of rendering")
	flag.BoolVar(&opts.dumpConfig, "dump-config", false, "Print the effective configuration and exit")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "termcore - terminal emulator core\n\n")
		fmt.Fprintf(os.Stderr, "Usage: termcore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables prefixed %s override the config file.\n", config.EnvPrefix)
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("termcore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	return opts
}

// loadConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order.
func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplyEnv(&cfg, config.EnvPrefix); err != nil {
		return cfg, err
	}

	if opts.set["rows"] {
		cfg.Terminal.Rows = opts.rows
	}
	if opts.set["cols"] {
		cfg.Terminal.Cols = opts.cols
	}
	if opts.set["shell"] {
		cfg.Shell.Path = opts.shell
	}
	if opts.set["log-level"] {
		cfg.Log.Level = opts.logLevel
	}
	if opts.set["log-file"] {
		cfg.Log.File = opts.logFile
	}
	return cfg, cfg.Validate()
}

// exitCode mirrors the shell's status the way a POSIX shell reports it.
func exitCode(status process.ExitStatus) int {
	if code, ok := status.ExitCode(); ok {
		return code
	}
	if sig, ok := status.Signal(); ok {
		return 128 + sig
	}
	return 0
}

// runScreen renders the session full screen through tcell.
func runScreen(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) int {
	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create screen: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize screen: %v\n", err)
		return 1
	}
	var finiOnce sync.Once
	fini := func() { finiOnce.Do(screen.Fini) }
	defer fini()

	width, height := screen.Size()
	if !opts.set["rows"] {
		cfg.Terminal.Rows = height
	}
	if !opts.set["cols"] {
		cfg.Terminal.Cols = width
	}

	statusCh := make(chan process.ExitStatus, 1)
	sess, err := session.New(ctx, cfg,
		session.WithSessionLogger(logger),
		session.OnExit(func(status process.ExitStatus, _ time.Duration) {
			statusCh <- status
		}))
	if err != nil {
		fini()
		fmt.Fprintf(os.Stderr, "Error: failed to start session: %v\n", err)
		return 1
	}
	defer func() { _ = sess.Close() }()

	view := render.NewView(screen, sess.Grid())
	view.Redraw()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()
	go func() {
		if err := sess.HandleSignals(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("signal handling stopped", zap.Error(err))
		}
	}()
	go func() {
		ticker := time.NewTicker(renderInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				view.Draw()
			}
		}
	}()

	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return 1
		case *tcell.EventInterrupt:
			cancel()
			fini()
			return finish(<-runErr, statusCh)
		case *tcell.EventResize:
			cols, rows := ev.Size()
			if err := sess.Resize(ctx, rows, cols); err != nil {
				logger.Warn("resize", zap.Int("rows", rows), zap.Int("cols", cols), zap.Error(err))
			}
			view.Redraw()
		case *tcell.EventKey:
			data := render.EncodeKey(ev)
			if len(data) == 0 {
				continue
			}
			if err := sess.Write(ctx, data); err != nil {
				logger.Warn("write input", zap.Error(err))
			}
		}
	}
}

// runRaw passes the terminal straight through to the shell and prints
// the final screen contents when it exits.
func runRaw(ctx context.Context, cfg config.Config, opts options, logger *zap.Logger) int {
	stdin := int(os.Stdin.Fd())
	interactive := term.IsTerminal(stdin)

	if interactive {
		if size, err := creack.GetsizeFull(os.Stdin); err == nil {
			if !opts.set["rows"] {
				cfg.Terminal.Rows = int(size.Rows)
			}
			if !opts.set["cols"] {
				cfg.Terminal.Cols = int(size.Cols)
			}
		}
	}

	statusCh := make(chan process.ExitStatus, 1)
	sess, err := session.New(ctx, cfg,
		session.WithSessionLogger(logger),
		session.OnOutput(func(data []byte) {
			_, _ = os.Stdout.Write(data)
		}),
		session.OnExit(func(status process.ExitStatus, _ time.Duration) {
			statusCh <- status
		}),
		session.OnWindowChange(func() (int, int, error) {
			cols, rows, err := term.GetSize(stdin)
			return rows, cols, err
		}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start session: %v\n", err)
		return 1
	}
	defer func() { _ = sess.Close() }()

	if interactive {
		state, err := term.MakeRaw(stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to enter raw mode: %v\n", err)
			return 1
		}
		defer func() { _ = term.Restore(stdin, state) }()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := sess.HandleSignals(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("signal handling stopped", zap.Error(err))
		}
	}()
	go copyInput(ctx, sess, os.Stdin, logger)

	code := finish(sess.Run(ctx), statusCh)
	fmt.Fprintf(os.Stderr, "\r\n%s\r\n", sess.Grid().Text())
	return code
}

func copyInput(ctx context.Context, sess *session.Session, r io.Reader, logger *zap.Logger) {
	buf := make([]byte, 1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if werr := sess.Write(ctx, buf[:n]); werr != nil {
				logger.Warn("write input", zap.Error(werr))
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn("read input", zap.Error(err))
			}
			return
		}
	}
}

// finish turns the result of Session.Run into a process exit code. A
// closed session counts as a normal exit.
func finish(err error, statusCh <-chan process.ExitStatus) int {
	select {
	case status := <-statusCh:
		return exitCode(status)
	default:
	}
	if err == nil || errors.Is(err, session.ErrClosed) || errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
