package redis

import (
	"github.com/go-redis/redis/v8"
)

// An Option configures a *Database.
type Option interface {
	Apply(*Database)
}

type OptionFunc func(*Database)

func (f OptionFunc) Apply(db *Database) {
	f(db)
}

// WithHooks installs command hooks on the underlying client, e.g. for
// tracing or latency metrics.
func WithHooks(hooks ...redis.Hook) Option {
	return OptionFunc(func(db *Database) {
		if db.db == nil {
			return
		}
		for _, hook := range hooks {
			db.db.AddHook(hook)
		}
	})
}

// WithNamespace prefixes every key with namespace and a colon.
func WithNamespace(namespace string) Option {
	return OptionFunc(func(db *Database) {
		db.namespace = []byte(namespace)
	})
}
