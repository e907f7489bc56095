// Program propmap renders a live radio-propagation overlay: it polls a
// Reverse Beacon Network map feed for reception reports, places each reporter
// on the map via its Maidenhead locator, classifies signal quality, and keeps
// the drawn marker/path set consistent with the asynchronously refreshed feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"propmap/config"
	"propmap/feed"
	"propmap/grid"
	"propmap/gridstore"
	"propmap/overlay"
	"propmap/spot"
	"propmap/stats"
	"propmap/ui"
	"propmap/web"
)

// Version is the release identifier reported at startup.
const Version = "1.0.0"

const envConfigPath = "PROPMAP_CONFIG"

// Purpose: Report whether stdout is a TTY for UI gating.
// Key aspects: Uses term.IsTerminal on stdout fd.
// Upstream: main UI selection.
// Downstream: term.IsTerminal.
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Purpose: Load configuration from flag/env/default locations.
// Key aspects: Flag wins over env; a missing file falls back to defaults.
// Upstream: main startup.
// Downstream: config.Load.
func loadOverlayConfig(flagPath string) (*config.Config, string) {
	candidates := make([]string, 0, 2)
	if flagPath != "" {
		candidates = append(candidates, flagPath)
	}
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	for _, path := range candidates {
		cfg, err := config.Load(path)
		if err == nil {
			return cfg, path
		}
		log.Printf("Config %s unusable: %v", path, err)
	}
	return config.Default(), "built-in defaults"
}

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	flag.Parse()

	cfg, configSource := loadOverlayConfig(*configPath)

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging setup degraded: %v\n", err)
	}
	defer fanout.Close()
	log.SetFlags(0) // sinks add their own timestamps
	log.SetOutput(fanout)

	log.Printf("propmap v%s starting (config: %s)", Version, configSource)

	tracker := stats.NewTracker()

	var cache feed.LocatorCache
	if cfg.GridCache.Enabled {
		store, err := gridstore.Open(cfg.GridCache.Dir, gridstore.Options{TTL: cfg.GridCacheTTL()})
		if err != nil {
			log.Printf("Grid cache disabled: %v", err)
		} else {
			defer store.Close()
			if removed, err := store.PurgeExpired(time.Now().UTC()); err != nil {
				log.Printf("Grid cache purge: %v", err)
			} else if removed > 0 {
				log.Printf("Grid cache purged %d stale locators", removed)
			}
			cache = store
		}
	}

	client := feed.NewClient(cfg.Feed.BaseURL, cfg.FeedTimeout())
	spotFeed := feed.New(client, strings.ToUpper(strings.TrimSpace(cfg.Feed.Callsign)),
		cfg.Feed.Limit, tracker, cache, log.Default())

	surface := web.NewSurface()
	surface.SetStatsProvider(func() (feed.Stats, stats.Snapshot) {
		_, feedStats, _ := spotFeed.Snapshot()
		return feedStats, tracker.GetSnapshot()
	})
	if cfg.Web.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Web.BindAddress, cfg.Web.Port)
		server := &http.Server{Addr: addr, Handler: surface.Handler()}
		go func() {
			log.Printf("Serving http://%s/overlay.geojson and /stats.json", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Snapshot server stopped: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	home := overlay.DefaultHome
	if cfg.Overlay.HomeGrid != "" {
		if pos, ok := grid.Resolve(cfg.Overlay.HomeGrid); ok {
			home = pos
		} else {
			log.Printf("Home grid %q does not resolve, using fallback (%.1f, %.1f)",
				cfg.Overlay.HomeGrid, overlay.DefaultHome.Lat, overlay.DefaultHome.Lon)
		}
	}

	filter := overlay.FilterState{
		Band:          cfg.Overlay.Band,
		WindowMinutes: cfg.Overlay.WindowMinutes,
		MinSNR:        cfg.Overlay.MinSNR,
		ShowPaths:     cfg.Overlay.ShowPaths,
	}

	var dashboard *ui.Dashboard
	if cfg.UI.Enabled && isStdoutTTY() {
		dashboard = ui.NewDashboard(spot.BandNames(), filter, true, tracker)
	}

	opts := overlay.Options{
		Feed:       spotFeed,
		Surface:    surface,
		Tracker:    tracker,
		Home:       home,
		Interval:   cfg.PollInterval(),
		PathPoints: cfg.Overlay.PathPoints,
		Filter:     filter,
	}
	if dashboard != nil {
		opts.Control = dashboard
	}
	manager := overlay.NewManager(opts)

	if dashboard != nil {
		// Widget callbacks run on the tview event loop; hop to a goroutine so
		// control-surface updates issued by the manager cannot deadlock the loop.
		dashboard.OnBandChange = func(band string) { go manager.SetBand(band) }
		dashboard.OnWindowChange = func(minutes int) { go manager.SetWindowMinutes(minutes) }
		dashboard.OnMinSNRChange = func(snr float64) { go manager.SetMinSNR(snr) }
		dashboard.OnShowPathsChange = func(show bool) { go manager.SetShowPaths(show) }
		dashboard.OnOverlayToggle = func(enabled bool) {
			go func() {
				if enabled {
					manager.Enable()
				} else {
					manager.Disable()
				}
			}()
		}
	} else {
		cfg.Print()
	}

	if !spotFeed.Configured() {
		log.Printf("No callsign configured (feed.callsign: %s); overlay stays idle until one is set", feed.UnsetCallsign)
	}
	manager.Enable()

	if dashboard != nil {
		// The dashboard owns the terminal; keep log lines off the console.
		fanout.SetConsoleSink(nil, false)
		if err := dashboard.Run(); err != nil {
			log.Printf("Dashboard stopped: %v", err)
		}
		fanout.SetConsoleSink(os.Stdout, true)
	} else {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Printf("Shutdown signal received")
	}

	manager.Disable()
	log.Printf("propmap stopped")
}
