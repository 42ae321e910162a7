package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvConfig loads deployment-level defaults for the host process embedding
// the tracker: the project id and endpoint the host would otherwise have
// to hardcode, plus operational toggles. It is distinct from Config, which
// is the validated per-instance configuration passed to tracker.New.
type EnvConfig struct {
	ProjectID     string `env:"OMNITRACK_PROJECT_ID"`
	Endpoint      string `env:"OMNITRACK_ENDPOINT"`
	Debug         bool   `env:"OMNITRACK_DEBUG" envDefault:"false"`
	RedisURL      string `env:"OMNITRACK_REDIS_URL"`
	SpillBucket   string `env:"OMNITRACK_SPILL_BUCKET"`
	SpillRegion   string `env:"OMNITRACK_SPILL_REGION" envDefault:"us-east-1"`
}

var (
	envOnce  sync.Once
	envCache sync.Map // reflect.Type -> cached value
)

func loadDotenv() {
	envOnce.Do(func() {
		// A missing .env file is expected in most deployments; ignore it.
		_ = godotenv.Load()
	})
}

// Load parses environment variables into dst, which must be a pointer to a
// struct. Each concrete type is loaded once per process and cached;
// subsequent calls with the same type return the cached value.
func Load[T any](dst *T) error {
	loadDotenv()

	t := reflect.TypeOf(*dst)
	if cached, ok := envCache.Load(t); ok {
		*dst = cached.(T)
		return nil
	}

	if err := env.Parse(dst); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}

	envCache.Store(t, *dst)
	return nil
}

// MustLoad is Load but panics on failure, for use during process startup.
func MustLoad[T any](dst *T) {
	if err := Load(dst); err != nil {
		panic(err)
	}
}
