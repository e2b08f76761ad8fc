// Package resolver maps dirty instrument identifiers (ISINs, MIC-qualified
// tickers, noisy free-text issuer names) to a stable resolved instrument.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	"golang.org/x/sync/singleflight"
)

// cachedResult is what the TTL cache stores for an external lookup: the
// instrument plus whether the service knew the identifier at all. Clean
// misses are cached too, with a shorter TTL so a later run can retry.
type cachedResult struct {
	Instrument models.Instrument
	Found      bool
}

// Resolver resolves identifiers through an ordered fallback chain:
// manual overrides, ticker shape, ISIN symbology lookup, cleaned-name
// reverse search, flagged pseudo-ticker. It is safe for concurrent use;
// concurrent calls for the same identifier share one outbound lookup.
type Resolver struct {
	overrides map[string]models.Instrument
	client    SymbologyClient
	lookups   *cache.Cache
	flight    singleflight.Group
	hitTTL    time.Duration
	missTTL   time.Duration
}

// Options configures a Resolver.
type Options struct {
	Overrides map[string]models.Instrument
	Client    SymbologyClient
	HitTTL    time.Duration
	MissTTL   time.Duration
}

func New(opts Options) *Resolver {
	if opts.HitTTL <= 0 {
		opts.HitTTL = 24 * time.Hour
	}
	if opts.MissTTL <= 0 {
		opts.MissTTL = 15 * time.Minute
	}
	overrides := make(map[string]models.Instrument, len(opts.Overrides))
	for k, v := range opts.Overrides {
		overrides[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return &Resolver{
		overrides: overrides,
		client:    opts.Client,
		lookups:   cache.New(opts.HitTTL, 2*opts.HitTTL),
		hitTTL:    opts.HitTTL,
		missTTL:   opts.MissTTL,
	}
}

// LoadOverrides reads the curated manual-override table from a JSON file
// mapping identifier -> instrument. A missing file is not an error: the
// resolver just runs without corrections.
func LoadOverrides(path string) (map[string]models.Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L.Info("No ticker override file found, continuing without overrides", "path", path)
			return map[string]models.Instrument{}, nil
		}
		return nil, fmt.Errorf("reading override table %s: %w", path, err)
	}
	var overrides map[string]models.Instrument
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing override table %s: %w", path, err)
	}
	return overrides, nil
}

// Resolve maps an identifier to an instrument. It never fails: when every
// step of the chain comes up empty the result is a truncated pseudo-ticker
// flagged Unresolved, so a holding can still be tracked under it.
func (r *Resolver) Resolve(ctx context.Context, identifier string) models.Instrument {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return models.Instrument{Ticker: "UNKNOWN", Unresolved: true}
	}

	// 1. Curated manual overrides correct known-bad automated mappings.
	if inst, ok := r.overrides[strings.ToUpper(id)]; ok {
		return inst
	}

	// 2. Already ticker-shaped: strip the MIC qualifier and return.
	if !IsISINShaped(strings.ToUpper(id)) && IsTickerShaped(id) {
		ticker, mic := SplitMIC(id)
		return models.Instrument{Ticker: ticker, DisplayName: ticker, Market: mic}
	}

	// 3. ISIN: external symbology lookup through the cache.
	if upper := strings.ToUpper(id); IsISINShaped(upper) {
		if inst, ok := r.overrides[upper]; ok {
			return inst
		}
		res := r.lookup(ctx, "isin:"+upper, func(ctx context.Context) (models.Instrument, bool, error) {
			return r.client.LookupISIN(ctx, upper)
		})
		if res.Found {
			inst := res.Instrument
			inst.ISIN = upper
			return inst
		}
		return models.Instrument{Ticker: upper, ISIN: upper, DisplayName: upper, Unresolved: true}
	}

	// 4. Free text: strip noise into metadata, reverse-search on the
	// cleaned name.
	cleaned, meta := CleanName(id)
	if cleaned != "" {
		res := r.lookup(ctx, "name:"+strings.ToUpper(cleaned), func(ctx context.Context) (models.Instrument, bool, error) {
			return r.client.SearchName(ctx, cleaned)
		})
		if res.Found {
			inst := res.Instrument
			applyMetadata(&inst, meta)
			return inst
		}
	}

	// 5. Last resort: flagged pseudo-ticker.
	inst := models.Instrument{
		Ticker:      PseudoTicker(cleaned),
		DisplayName: strings.TrimSpace(id),
		Unresolved:  true,
	}
	if inst.Ticker == "" {
		inst.Ticker = "UNKNOWN"
	}
	applyMetadata(&inst, meta)
	return inst
}

// lookup runs fn behind the TTL cache and a per-key single-flight lock, so
// one run never issues duplicate outbound calls for the same identifier.
func (r *Resolver) lookup(ctx context.Context, key string, fn func(context.Context) (models.Instrument, bool, error)) cachedResult {
	if v, ok := r.lookups.Get(key); ok {
		return v.(cachedResult)
	}

	v, err, _ := r.flight.Do(key, func() (interface{}, error) {
		// Re-check: a concurrent caller may have populated the cache
		// while this one waited on the flight lock.
		if v, ok := r.lookups.Get(key); ok {
			return v.(cachedResult), nil
		}
		inst, found, err := fn(ctx)
		if err != nil {
			return cachedResult{}, err
		}
		res := cachedResult{Instrument: inst, Found: found}
		if found {
			r.lookups.Set(key, res, r.hitTTL)
		} else {
			r.lookups.Set(key, res, r.missTTL)
		}
		return res, nil
	})
	if err != nil {
		logger.L.Warn("Symbology lookup failed", "key", key, "error", err)
		return cachedResult{}
	}
	return v.(cachedResult)
}
