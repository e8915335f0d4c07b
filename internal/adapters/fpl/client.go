package fpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/fplbot/internal/domain"
)

const (
	defaultBase = "https://fantasy.premierleague.com/api"

	// La API pública no documenta límites; bootstrap-static pesa ~2MB, así que
	// se limita a 1 req/s con ráfaga de 2.
	ratePerSec = 1
	rateBurst  = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond

	// Tras breakerTrips fetches fallidos seguidos (cada uno ya con sus retries)
	// se deja de llamar a la API durante breakerOpen.
	breakerTrips = 3
	breakerOpen  = 5 * time.Minute
)

// Client es el HTTP client de la API de Fantasy Premier League con rate
// limiting, retries y circuit breaker. Implementa ports.PlayerProvider.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewClient crea un Client con el base URL dado.
// Si base está vacío, usa la API de producción.
func NewClient(base string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		base:    strings.TrimRight(base, "/"),
		limiter: rate.NewLimiter(ratePerSec, rateBurst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "fpl-api",
			Timeout: breakerOpen,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTrips
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// FetchPlayers descarga bootstrap-static y lo convierte en PlayerRecords.
func (c *Client) FetchPlayers(ctx context.Context) ([]domain.PlayerRecord, error) {
	var resp bootstrapResponse
	if err := c.get(ctx, c.base+"/bootstrap-static/", &resp); err != nil {
		return nil, fmt.Errorf("fpl.FetchPlayers: %w", err)
	}
	players := mapBootstrap(resp)
	if len(players) == 0 {
		return nil, fmt.Errorf("fpl.FetchPlayers: %w", domain.ErrEmptyPool)
	}
	slog.Debug("bootstrap-static fetched", "elements", len(resp.Elements), "players", len(players), "teams", len(resp.Teams))
	return players, nil
}

// get hace un GET con rate limiting y retries, detrás del circuit breaker.
// Con el breaker abierto devuelve gobreaker.ErrOpenState sin tocar la red.
func (c *Client) get(ctx context.Context, url string, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("User-Agent", "fplbot/1.0")
			return c.http.Do(req)
		}, out)
	})
	return err
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by FPL API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
