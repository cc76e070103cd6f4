package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
	"github.com/hectormr206/orchestra/internal/cloudsecrets"
	"github.com/hectormr206/orchestra/internal/config"
	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/fallback"
	"github.com/hectormr206/orchestra/internal/obslog"
	"github.com/hectormr206/orchestra/internal/promptcache"
	"github.com/hectormr206/orchestra/internal/session"

	// Adapter kinds register themselves on import.
	_ "github.com/hectormr206/orchestra/internal/adapter/hosted"
	_ "github.com/hectormr206/orchestra/internal/adapter/plugin"
	_ "github.com/hectormr206/orchestra/internal/adapter/subprocess"
)

// bootstrap loads config and opens the session store; everything session-
// specific (the event bus, the fallback chains) is built once a session
// exists, since the event log path is keyed by session ID.
type bootstrap struct {
	cfg   *config.Config
	store *session.Store
	log   *obslog.Logger
}

func newBootstrap(cfgPath, workDir string) (*bootstrap, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store := session.NewStore(workDir)
	if dsn := os.Getenv("ORCHESTRA_POSTGRES_DSN"); dsn != "" {
		if idx, err := session.NewPostgresIndex(dsn); err == nil {
			store = store.WithIndex(idx)
		}
	}

	return &bootstrap{
		cfg:   cfg,
		store: store,
		log:   obslog.New(os.Stderr, "orchestra: ", cloudSinkFromEnv(context.Background())),
	}, nil
}

// cachePath returns the on-disk location of the prompt cache's persisted
// state: a single file shared across sessions under workDir's .orchestra
// directory, so `orchestra cache --stats|--list|--clear` can inspect or
// empty it without needing a session ID.
func cachePath(workDir string) string {
	return filepath.Join(workDir, ".orchestra", "cache.json")
}

// openPromptCache opens the prompt cache for workDir with the configured
// size and TTL, falling back to defaults when cfg is nil or unset.
func openPromptCache(workDir string, cfg *config.Config) *promptcache.Cache {
	maxEntries, ttl := promptcache.DefaultMaxEntries, promptcache.DefaultTTL
	if cfg != nil && cfg.Cache.MaxEntries > 0 {
		maxEntries = cfg.Cache.MaxEntries
	}
	if cfg != nil && cfg.Cache.TTLMinutes > 0 {
		ttl = time.Duration(cfg.Cache.TTLMinutes) * time.Minute
	}
	return promptcache.New(cachePath(workDir), maxEntries, ttl)
}

// cloudSinkFromEnv opens a Cloud Logging sink when GOOGLE_CLOUD_PROJECT is
// set in the environment, so runs on GCP infrastructure get their logs
// mirrored automatically; everywhere else this returns nil and local
// logging proceeds as the only sink.
func cloudSinkFromEnv(ctx context.Context) obslog.CloudSink {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil
	}
	sink, err := cloudsecrets.NewCloudLogSink(ctx, projectID, "orchestra", "bootstrap")
	if err != nil {
		return nil
	}
	return sink
}

// openOrCreateSession resumes resumeID if given, else creates a new
// session for task, else falls back to the most recently resumable one.
func (b *bootstrap) openOrCreateSession(task, resumeID string) (*session.Session, error) {
	if resumeID != "" {
		return b.store.Load(resumeID)
	}
	if task == "" {
		sess, err := b.store.MostRecentResumable()
		if err != nil {
			return nil, fmt.Errorf("no task given and no resumable session found: %w", err)
		}
		return sess, nil
	}
	return b.store.Create(session.Task(task))
}

func (b *bootstrap) eventBus(workDir string, sessionID string) (*events.Bus, error) {
	dir := filepath.Join(workDir, ".orchestra", sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fs, err := events.NewFileSink(dir)
	if err != nil {
		return nil, err
	}
	return events.NewBus(sessionID, events.NewKernelFileSink(fs)), nil
}

// chainsForRoles builds one fallback.Chain per configured agent role from
// the adapter registry, wired to bus through Hooks.
func (b *bootstrap) chainsForRoles(bus *events.Bus) (map[session.AgentRole]*fallback.Chain, error) {
	roles := map[session.AgentRole][]string{
		session.RoleArchitect:  b.cfg.Agents.Architect,
		session.RoleExecutor:   b.cfg.Agents.Executor,
		session.RoleAuditor:    b.cfg.Agents.Auditor,
		session.RoleConsultant: b.cfg.Agents.Consultant,
	}

	chains := make(map[session.AgentRole]*fallback.Chain)
	for role, names := range roles {
		if len(names) == 0 {
			continue
		}
		var entries []fallback.Entry
		for _, name := range names {
			a, err := adapter.Get(name)
			if err != nil {
				return nil, fmt.Errorf("role %s: %w", role, err)
			}
			entries = append(entries, fallback.Entry{Name: name, Adapter: a})
		}
		chain := fallback.NewChain(entries)
		chain.Hooks = fallback.Hooks{
			OnAdapterStart: func(model string, index, total int) {
				_ = bus.Publish(events.KernelEvent{Type: events.KernelAdapterStart, Model: model})
			},
			OnAdapterFallback: func(from, to, reason string) {
				_ = bus.Publish(events.KernelEvent{
					Type: events.KernelAdapterFallback, FromModel: from, ToModel: to, Reason: reason,
				})
			},
			OnAdapterSuccess: func(model string, d time.Duration) {
				_ = bus.Publish(events.KernelEvent{Type: events.KernelAdapterSuccess, Model: model, DurationMs: d.Milliseconds()})
			},
		}
		chains[role] = chain
	}
	return chains, nil
}
