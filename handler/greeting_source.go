package handler

import (
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// GreetingSource supplies the greeting line a handler sends on connect.
// Implementations never fail: a greeting must always be available.
type GreetingSource interface {
	// Greeting returns the line to send, without terminator.
	Greeting() string
}

// StaticGreeting is a GreetingSource with fixed text.
type StaticGreeting string

// Greeting implements GreetingSource.
func (g StaticGreeting) Greeting() string {
	return string(g)
}

// greetingText resolves the configured source, falling back to the
// handler's default static text.
func greetingText(src GreetingSource, fallback string) string {
	if src == nil {
		return fallback
	}

	return src.Greeting()
}

const greetingCacheKey = "greeting"

// FileGreeting serves the first non-blank line of a banner file, MOTD
// style, so operators can reword the greeting without a restart. The line
// is cached for a TTL and concurrent cache misses collapse into a single
// disk read, so a burst of simultaneous connects costs one read. When the
// file is missing or unreadable the fallback text is served instead.
type FileGreeting struct {
	path     string
	fallback string
	ttl      time.Duration
	cache    *cache.Cache
	group    singleflight.Group
	readFile func(string) ([]byte, error)
}

// NewFileGreeting creates a FileGreeting for the given banner file.
//
// Parameters:
//   - path: The banner file to read the greeting line from
//   - fallback: Text served when the file yields no usable line
//   - ttl: How long a loaded line is served before the file is re-read
//     (non-positive caches the first read for the life of the process)
//
// Returns:
//   - A FileGreeting ready for use by any number of sessions
func NewFileGreeting(path string, fallback string, ttl time.Duration) *FileGreeting {
	expiration := ttl
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}

	return &FileGreeting{
		path:     path,
		fallback: fallback,
		ttl:      expiration,
		cache:    cache.New(expiration, cleanup),
		readFile: os.ReadFile,
	}
}

// Greeting implements GreetingSource.
func (g *FileGreeting) Greeting() string {
	if v, found := g.cache.Get(greetingCacheKey); found {
		if text, ok := v.(string); ok {
			return text
		}
	}

	v, _, _ := g.group.Do(greetingCacheKey, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight lock
		if cached, found := g.cache.Get(greetingCacheKey); found {
			return cached, nil
		}

		text := g.load()
		g.cache.Set(greetingCacheKey, text, g.ttl)
		return text, nil
	})

	if text, ok := v.(string); ok {
		return text
	}

	return g.fallback
}

// load reads the banner file and picks its first non-blank line.
func (g *FileGreeting) load() string {
	data, err := g.readFile(g.path)
	if err != nil {
		return g.fallback
	}

	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}

	return g.fallback
}
