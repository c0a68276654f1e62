// Command kairosrun is a small demonstration binary that wires a resource
// root end-to-end: load configuration, construct the root, fan a handful
// of illustrative jobs out across leased sessions, print a recorder
// snapshot, and release everything. It is demonstration scaffolding, not
// part of the core library's contract — real callers construct their own
// resources.Root and drive it directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/grimmkairos/automation-core/internal/configfile"
	"github.com/grimmkairos/automation-core/pkg/dispatch"
	"github.com/grimmkairos/automation-core/pkg/logging"
	"github.com/grimmkairos/automation-core/pkg/resources"
	"github.com/grimmkairos/automation-core/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional; defaults are used if empty)")
	urls := flag.String("urls", "", "comma-separated URLs to navigate to as the illustrative fan-out")
	flag.Parse()

	if err := run(*configPath, *urls); err != nil {
		fmt.Fprintf(os.Stderr, "kairosrun: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, urlsFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("constructing logger: %w", err)
	}
	defer log.Sync()

	root := resources.New(cfg, log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := root.CloseContext(closeCtx); err != nil {
			log.Warn("resource root close did not finish cleanly", zap.Error(err))
		}
	}()

	targets := parseURLs(urlsFlag)
	if len(targets) == 0 {
		targets = []string{"about:blank"}
	}

	results := dispatch.FanOut(ctx, root.Manager, "demo.navigate", targets, func(ctx context.Context, rec *session.Record, url string) (string, error) {
		if err := rec.Handle().Navigate(ctx, url); err != nil {
			return "", err
		}
		return url, nil
	})

	for i, r := range results {
		if r.Err != nil {
			log.Warn("job failed", zap.Int("index", i), zap.Error(r.Err))
			continue
		}
		log.Info("job succeeded", zap.Int("index", i), zap.String("url", r.Value))
	}

	snapshot := root.Recorder.Snapshot()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}
	fmt.Println(string(data))

	return nil
}

func loadConfig(path string) (resources.Config, error) {
	if path == "" {
		return resources.DefaultConfig(), nil
	}
	return configfile.Load(path)
}

func parseURLs(flagValue string) []string {
	if flagValue == "" {
		return nil
	}
	var urls []string
	for _, part := range strings.Split(flagValue, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
