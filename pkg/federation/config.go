package federation

import (
	log "github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/pgfederation/pkg/nodeid"
)

// Config configures the engine and the service. The zero value is usable.
type Config struct {
	// Concurrency bounds the concurrent fetches of one _entities call.
	Concurrency int
	// PrintCacheSize is the number of schemas whose SDL is memoized.
	PrintCacheSize int
	Codec          nodeid.Codec
	Logger         log.Logger
	// Metrics is optional.
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PrintCacheSize <= 0 {
		c.PrintCacheSize = 1
	}
	if c.Codec == nil {
		c.Codec = nodeid.Base64JSON{}
	}
	if c.Logger == nil {
		c.Logger = log.NoopLogger
	}
	return c
}
