package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/catalog/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Server modules the catalog depends on.
const (
	moduleSearch = "search"
	moduleJSON   = "json"
)

// jsonCheckKey is never written; JSON.TYPE on it only tells whether the
// command exists.
const jsonCheckKey = "catalog:module-check"

// moduleChecks maps a module to a read-only command that the server rejects
// with "unknown command" when the module is not loaded.
var moduleChecks = map[string][]string{
	moduleSearch: {"FT._LIST"},
	moduleJSON:   {"JSON.TYPE", jsonCheckKey},
}

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store keeps products as RedisJSON documents and answers browse, facet and
// suggestion reads with FT.SEARCH and FT.TAGVALS.
//
// Redis 8 ships both modules. Older servers and forks may lack one, so
// WaitForReady refuses a server without JSON or search, and
// SupportsTextSearch reports what the server actually answered.
type Store struct {
	client rueidis.Client

	mu      sync.Mutex
	modules map[string]bool
}

// NewStore connects to Redis with RESP2 replies and client-side caching off.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH replies are parsed as flat RESP2 arrays
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis %v: %w", cfg.Addrs, err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the server answers, then requires the JSON
// and search modules. A missing module fails immediately: retrying cannot
// load it.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err != nil {
				continue
			}
			return s.requireModules(ctx, moduleJSON, moduleSearch)
		}
	}
}

// SupportsTextSearch reports whether the server answers FT commands.
// Only a definite answer is remembered; a transport error reads as false
// and is asked again next time.
func (s *Store) SupportsTextSearch(ctx context.Context) bool {
	ok, err := s.hasModule(ctx, moduleSearch)
	return err == nil && ok
}

func (s *Store) requireModules(ctx context.Context, names ...string) error {
	for _, name := range names {
		ok, err := s.hasModule(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("redis server has no %s module", name)
		}
	}
	return nil
}

func (s *Store) hasModule(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	known, cached := s.modules[name]
	s.mu.Unlock()
	if cached {
		return known, nil
	}

	check, ok := moduleChecks[name]
	if !ok {
		return false, fmt.Errorf("unknown module %q", name)
	}
	err := s.do(ctx, s.b().Arbitrary(check...).Build()).Error()
	present := true
	switch {
	case err == nil, rueidis.IsRedisNil(err):
	case isRedisErr(err, "unknown command"):
		present = false
	default:
		return false, fmt.Errorf("check %s module: %w", name, err)
	}

	s.mu.Lock()
	if s.modules == nil {
		s.modules = make(map[string]bool, len(moduleChecks))
	}
	s.modules[name] = present
	s.mu.Unlock()
	return present, nil
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports whether err is a server error whose message contains
// substr, ignoring case. Transport errors never match.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
