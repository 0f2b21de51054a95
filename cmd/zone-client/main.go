package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/hazardwatch/go-hazard-zones/internal/client"
	"github.com/hazardwatch/go-hazard-zones/internal/config"
	"github.com/hazardwatch/go-hazard-zones/internal/evaluator"
	"github.com/hazardwatch/go-hazard-zones/internal/geo"
	"github.com/hazardwatch/go-hazard-zones/internal/logging"
	"github.com/hazardwatch/go-hazard-zones/internal/observability"
)

// zone-client is a terminal client: it reads "lat,lon" position fixes from
// stdin (one per line, the way a location provider would push them), keeps
// the hazard registry fresh, and prints the alert banner on changes.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	userID := cfg.Client.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	slog.Info("client starting", "server", cfg.Client.ServerURL, "user_id", userID)

	server := client.NewHTTPClient(cfg.Client.ServerURL, userID)

	rt := client.NewRuntime(client.Options{
		Server:          server,
		Radii:           cfg.Radii(),
		DebounceWindow:  cfg.Client.DebounceWindow,
		RegistryRefresh: cfg.Client.RegistryRefresh,
		PushToken:       "terminal-" + userID,
		Clock:           clockwork.NewRealClock(),
		Metrics:         observability.NewMetrics(),
		OnBanner:        printBanner,
		OnAlert: func(msg string) {
			fmt.Fprintln(os.Stderr, "! "+msg)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go readPositions(rt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := rt.Run(ctx); err != nil {
			slog.Error("client runtime error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-done
}

var lastShown string

func printBanner(res evaluator.Result, text string, visible bool) {
	if !visible {
		if lastShown != "" {
			fmt.Println("-- zone clear --")
			lastShown = ""
		}
		return
	}
	if text == lastShown {
		return
	}
	lastShown = text
	fmt.Printf("!! %s (%d devices nearby)\n", text, len(res.Devices))
}

func readPositions(rt *client.Runtime) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		coord, err := parseFix(line)
		if err != nil {
			rt.HandleError(err)
			continue
		}
		rt.HandlePosition(coord, time.Now())
	}
}

func parseFix(line string) (geo.Coordinate, error) {
	parts := strings.SplitN(line, ",", 2)
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("expected lat,lon: %q", line)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("bad latitude in %q: %w", line, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("bad longitude in %q: %w", line, err)
	}
	coord := geo.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return coord, nil
}
