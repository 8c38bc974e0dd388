// searchnav adds keyboard navigation to search result pages in a real
// Chrome: it attaches over the DevTools protocol, finds the result cards,
// and moves a highlight between them from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-logr/logr"

	"searchnav/browser"
	"searchnav/config"
	"searchnav/highlight"
	"searchnav/keymap"
	"searchnav/locator"
	"searchnav/logging"
	"searchnav/nav"
	"searchnav/pagetype"
	"searchnav/storage"
	"searchnav/term"
)

func main() {
	var (
		target     string
		configPath string
		remoteURL  string
		initConfig bool
		headless   bool
		verbosity  int
	)

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--init-config":
			initConfig = true
		case "--headless":
			headless = true
		case "-v", "--verbose":
			verbosity++
		case "-c", "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --config needs a path")
				os.Exit(1)
			}
			configPath = args[i]
		case "--remote":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "error: --remote needs a DevTools URL")
				os.Exit(1)
			}
			remoteURL = args[i]
		case "-h", "--help":
			printUsage()
			return
		default:
			if target == "" {
				target = arg
			}
		}
	}

	// Generate default config and exit
	if initConfig {
		fmt.Print(config.DefaultTOML())
		return
	}

	if err := run(target, configPath, remoteURL, headless, verbosity); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`searchnav - keyboard navigation for search result pages

Usage: searchnav [options] [url or query]

Options:
  -c, --config PATH  Use an explicit config file
  --remote URL       Attach to a running Chrome's DevTools websocket
  --headless         Launch Chrome headless
  --init-config      Output default config (redirect to ~/.config/searchnav/config.toml)
  -v, --verbose      More log detail (repeatable)
  -h, --help         Show this help

Examples:
  searchnav "rust lifetimes"              Search and navigate the results
  searchnav https://www.google.com/search?q=go
  searchnav --remote ws://127.0.0.1:9222  Attach to an existing Chrome
  searchnav --init-config > ~/.config/searchnav/config.toml

Keys (defaults):
  j / k or arrows    Move between results
  Enter              Open the selected result (Ctrl: new tab, Shift: new window)
  h / l              Previous / next result page
  a i v s n m y      Switch vertical: all, images, videos, shopping, news, maps, youtube
  q or Ctrl+C        Quit`)
}

// searchURL turns the positional argument into a destination: URLs pass
// through, anything else becomes an all-results search.
func searchURL(target string) string {
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(target)
}

func run(target, configPath, remoteURL string, headless bool, verbosity int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, flush, err := logging.Setup(logging.DefaultPath(), verbosity)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storePath, err := storage.DefaultPath("settings")
	if err != nil {
		return fmt.Errorf("resolving settings path: %w", err)
	}
	store := storage.NewFileStore(storePath)

	keys, err := keymap.NewManagerWithFallback(ctx, store, cfg.Keybindings.KeyConfigs())
	if err != nil {
		return err
	}

	sess, err := browser.Connect(ctx, browser.Options{
		ChromePath:   cfg.Browser.ChromePath,
		UserAgent:    cfg.Browser.UserAgent,
		Headless:     headless || cfg.Browser.Headless,
		RemoteURL:    firstNonEmpty(remoteURL, cfg.Browser.RemoteURL),
		PollInterval: cfg.Browser.PollInterval(),
	}, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	if dest := searchURL(target); dest != "" {
		if err := sess.Navigate(ctx, dest); err != nil {
			return fmt.Errorf("opening %s: %w", dest, err)
		}
	}

	ctrl := nav.New(sess, keys, nav.Config{
		Locator:   locatorConfig(cfg),
		Highlight: highlightOptions(cfg),
		RootWait:  cfg.Browser.RootTimeout(),
		Threshold: cfg.Theme.LuminanceThreshold,
	}, log)

	if err := ctrl.Init(ctx); err != nil {
		// Attaching to a tab that is not a search page yet is fine; the
		// first route change onto one initializes the session.
		if !recoverable(err) {
			return err
		}
		log.V(1).Info("waiting for a search page", "reason", err.Error())
	}

	return eventLoop(ctx, ctrl, sess, log)
}

func eventLoop(ctx context.Context, ctrl *nav.Controller, sess *browser.Session, log logr.Logger) error {
	terminal, err := term.NewTerminal(os.Stdin)
	if err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	if err := terminal.EnterRawMode(); err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer terminal.RestoreMode()

	reader := term.NewReader(os.Stdin)
	readErr := make(chan error, 1)
	go func() { readErr <- reader.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case ev := <-reader.Events():
			if isQuit(ev) {
				return nil
			}
			if _, err := ctrl.HandleKey(ctx, ev); err != nil {
				log.Error(err, "handling key", "key", ev.Key)
			}
		case <-sess.RouteChanges():
			if err := ctrl.Reinit(ctx); err != nil {
				if !recoverable(err) {
					return err
				}
				log.V(1).Info("page not navigable", "reason", err.Error())
			}
		}
	}
}

func isQuit(ev keymap.KeyEvent) bool {
	return ev.Key == "q" || (ev.Ctrl && ev.Key == "c")
}

// recoverable reports whether an init failure just means the current page
// is not a search page, rather than a broken session.
func recoverable(err error) bool {
	return errors.Is(err, pagetype.ErrUnsupportedHost) ||
		errors.Is(err, pagetype.ErrUnknownVertical) ||
		errors.Is(err, pagetype.ErrNoQuery)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func locatorConfig(cfg *config.Config) locator.Config {
	return locator.Config{
		AncestorLevelsAll:   cfg.Locator.AncestorLevelsAll,
		AncestorLevelsOther: cfg.Locator.AncestorLevelsOther,
		YouTube: locator.YouTubeOptions{
			Shorts: cfg.Locator.YouTubeShorts,
			Mix:    cfg.Locator.YouTubeMixes,
			Ads:    cfg.Locator.YouTubeAds,
		},
	}
}

func highlightOptions(cfg *config.Config) highlight.Options {
	return highlight.Options{
		ScrollIntoView: cfg.Highlight.ScrollIntoView,
		AutoExpand:     cfg.Highlight.AutoExpand,
		SimulateHover:  cfg.Highlight.SimulateHover,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
