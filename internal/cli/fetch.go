package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/scrubware/pmscrub/internal/audit"
	"github.com/scrubware/pmscrub/internal/cache"
	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"github.com/scrubware/pmscrub/internal/privacy"
	"github.com/scrubware/pmscrub/internal/sources"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// fetchCommands builds one subcommand per source, e.g.
// `pmscrub jira issues` or `pmscrub productboard notes`.
func fetchCommands() []*cobra.Command {
	defs := []struct {
		name      string
		short     string
		resources []string
	}{
		{"productboard", "Fetch Productboard records", []string{"features", "notes"}},
		{"dovetail", "Fetch Dovetail records", []string{"projects", "highlights"}},
		{"confluence", "Fetch Confluence records", []string{"pages", "search"}},
		{"jira", "Fetch Jira records", []string{"issues", "users"}},
	}

	cmds := make([]*cobra.Command, 0, len(defs))
	for _, def := range defs {
		def := def
		cmds = append(cmds, &cobra.Command{
			Use:       fmt.Sprintf("%s <resource>", def.name),
			Short:     def.short,
			Long:      fmt.Sprintf("%s. Resources: %s.", def.short, strings.Join(def.resources, ", ")),
			Args:      cobra.ExactArgs(1),
			ValidArgs: def.resources,
			Run: func(cmd *cobra.Command, args []string) {
				exitCode = runFetch(cmd.Context(), def.name, args[0])
			},
		})
	}
	return cmds
}

// runFetch is the fetch-filter-print pipeline shared by all source commands.
// Each invocation uses a fresh filter so counter numbering restarts at 1.
func runFetch(ctx context.Context, sourceName, resource string) int {
	cfg, log, code := loadConfigAndLogger()
	if code != ExitSuccess {
		return code
	}
	defer log.Sync()

	src, ok := sources.All(cfg.Sources, log)[sourceName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown source: %s\n", sourceName)
		return ExitUsageError
	}
	if !contains(src.Resources(), resource) {
		fmt.Fprintf(os.Stderr, "unknown resource %q for %s (want one of: %s)\n",
			resource, sourceName, strings.Join(src.Resources(), ", "))
		return ExitUsageError
	}

	raw, code := fetchWithCache(ctx, cfg, log, src, resource)
	if code != ExitSuccess {
		return code
	}

	filter := privacy.New(cfg.Privacy, log)
	filtered := filter.FilterObject(raw, src.Rules(resource))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(filtered); err != nil {
		fmt.Fprintf(os.Stderr, "encoding output: %v\n", err)
		return ExitRuntimeError
	}

	stats := filter.Stats()
	log.Info("redaction complete",
		zap.String("source", sourceName),
		zap.String("resource", resource),
		zap.Int("records", countRecords(raw)),
		zap.Int("emails", stats.ItemsFiltered.Email),
		zap.Int("names", stats.ItemsFiltered.Name),
		zap.Int("phones", stats.ItemsFiltered.Phone),
		zap.Int("companies", stats.ItemsFiltered.Company),
	)

	if cfg.Audit.Enabled {
		saveAuditRun(ctx, cfg, log, sourceName, resource, countRecords(raw), stats)
	}

	return ExitSuccess
}

// fetchWithCache returns the raw page set for a resource, consulting the
// Redis cache when it is enabled. Only unfiltered pages are ever cached.
func fetchWithCache(ctx context.Context, cfg *config.Config, log *logger.Logger, src sources.Source, resource string) (any, int) {
	var recordCache *cache.RecordCache
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache, log)
		if err != nil {
			log.Warn("cache unavailable, fetching directly", zap.Error(err))
		} else {
			recordCache = c
			defer recordCache.Close()

			if cached, ok := recordCache.Get(ctx, src.Name(), resource); ok {
				return cached, ExitSuccess
			}
		}
	}

	raw, err := src.Fetch(ctx, resource)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetching %s %s: %v\n", src.Name(), resource, err)
		if sources.IsAuthError(err) {
			return nil, ExitAuthError
		}
		return nil, ExitRuntimeError
	}

	if recordCache != nil {
		if err := recordCache.Set(ctx, src.Name(), resource, raw); err != nil {
			log.Warn("caching fetched records failed", zap.Error(err))
		}
	}
	return raw, ExitSuccess
}

// saveAuditRun records counter totals for this session. Audit failures are
// logged but never fail the command; the filtered output already went out.
func saveAuditRun(ctx context.Context, cfg *config.Config, log *logger.Logger, sourceName, resource string, records int, stats privacy.Stats) {
	store, err := audit.New(cfg.Audit, log)
	if err != nil {
		log.Warn("audit store unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	run := &audit.Run{
		Source:    sourceName,
		Resource:  resource,
		Records:   records,
		Emails:    stats.ItemsFiltered.Email,
		Names:     stats.ItemsFiltered.Name,
		Phones:    stats.ItemsFiltered.Phone,
		Companies: stats.ItemsFiltered.Company,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		log.Warn("saving audit run failed", zap.Error(err))
	}
}

// loadConfigAndLogger loads configuration, applies global flags and builds
// the diagnostic logger. Diagnostics go to stderr; stdout carries records.
func loadConfigAndLogger() (*config.Config, *logger.Logger, int) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		return nil, nil, ExitUsageError
	}

	if flagNoRedact {
		cfg.Privacy.Enabled = false
		fmt.Fprintln(os.Stderr, "WARNING: PII redaction is disabled")
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		return nil, nil, ExitRuntimeError
	}

	return cfg, log, ExitSuccess
}

// countRecords reports how many records a fetched page set holds. Sources
// return a single-key envelope like {"data": [...]} or {"issues": [...]}.
func countRecords(raw any) int {
	switch v := raw.(type) {
	case []any:
		return len(v)
	case map[string]any:
		for _, inner := range v {
			if list, ok := inner.([]any); ok {
				return len(list)
			}
		}
	}
	return 1
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
