package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/fplbot/internal/adapters/notify"
	"github.com/alejandrodnm/fplbot/internal/adapters/storage"
)

// runHistory imprime los runs guardados en los últimos days días.
func runHistory(ctx context.Context, dsn string, days int, notifier *notify.Console) error {
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	runs, err := store.GetHistory(ctx, from, to)
	if err != nil {
		return err
	}

	slog.Info("history loaded", "runs", len(runs), "days", days)
	notifier.PrintHistory(runs)
	return nil
}

// parseIDs convierte "1,2, 3" en []int. Cadena vacía = nil.
func parseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	seen := make(map[int]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("player id %q: %w", p, err)
		}
		if id <= 0 {
			return nil, fmt.Errorf("player id %d: must be positive", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
