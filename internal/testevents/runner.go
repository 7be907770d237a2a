package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/trainboard/pkg/logger"
)

const directoryPermission = 0o750

// ErrNotDrained is returned when the workers do not apply all accepted
// events within the drain timeout.
var ErrNotDrained = errors.New("events not drained")

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("testevents")
	client := newHTTPClient(cfg)

	log.Info(ctx, "starting conductor board load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	var members []Member
	if err := client.getJSON(ctx, "/api/members", &members); err != nil {
		return stats, fmt.Errorf("member retrieval failed: %w", err)
	}
	if len(members) == 0 {
		return stats, errors.New("no members to target; seed a roster first")
	}
	stats.Members = len(members)

	baseline, err := appliedCount(ctx, client)
	if err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}

	events := generateEvents(ctx, members, cfg.NumEvents, cfg.DuplicateEvery, time.Now())
	stats.EventsGenerated = len(events)
	if cfg.OutputFile != "" {
		if err := saveEventsToFile(cfg.OutputFile, events); err != nil {
			log.Warn(ctx, "failed to save events to file", logger.Error(err))
		}
	}

	submitEvents(ctx, cfg, client, events, stats)

	if err := waitForDrain(ctx, cfg, client, baseline+int64(stats.EventsSuccessful)); err != nil {
		return stats, err
	}

	var board Leaderboard
	if err := client.getJSON(ctx, "/api/rankings", &board); err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(board.Rankings)

	scores, err := retrieveScores(ctx, cfg, client, members)
	stats.ScoresRetrieved = len(scores)
	if err != nil {
		return stats, fmt.Errorf("score retrieval failed: %w", err)
	}

	if err := verifyResults(board.Rankings, scores); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	// The health endpoint serves Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// appliedCount returns how many events the service workers have finished,
// successfully or not.
func appliedCount(ctx context.Context, client *HTTPClient) (int64, error) {
	var stats map[string]any
	if err := client.getJSON(ctx, "/stats", &stats); err != nil {
		return 0, err
	}
	if started, _ := stats["started"].(bool); !started {
		return 0, errors.New("service not started")
	}
	processed, _ := stats["eventsProcessed"].(float64)
	failed, _ := stats["eventsFailed"].(float64)
	return int64(processed) + int64(failed), nil
}

// waitForDrain polls /stats until target events have been applied.
func waitForDrain(ctx context.Context, cfg Config, client *HTTPClient, target int64) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.DrainTimeout)
	defer cancel()

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	for {
		applied, err := appliedCount(ctx, client)
		if err == nil && applied >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: applied %d of %d", ErrNotDrained, applied, target)
		case <-ticker.C:
		}
	}
}

// saveEventsToFile writes events as an indented JSON array.
func saveEventsToFile(filename string, events []Event) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o600)
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var eventsPerSecond float64
	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("members", stats.Members),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsSubmitted", stats.EventsSubmitted),
		logger.Int("eventsSuccessful", stats.EventsSuccessful),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsFailed", stats.EventsFailed),
		logger.Int("scoresRetrieved", stats.ScoresRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("eventsPerSecond", eventsPerSecond),
	)
}
