package acorn

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/acorn/pkg/config"
	"github.com/ajitpratap0/acorn/pkg/errors"
	"github.com/ajitpratap0/acorn/pkg/trunk"
	"github.com/ajitpratap0/acorn/pkg/trunk/file"
	"github.com/ajitpratap0/acorn/pkg/trunk/memory"
	"github.com/ajitpratap0/acorn/pkg/trunk/sqlite"
)

// Open creates a trunk for the backend named in cfg.Backend. Passing a nil
// logger uses the package-global one.
func Open[T any](cfg *config.BaseConfig, log *zap.Logger) (trunk.Trunk[T], error) {
	switch cfg.Backend {
	case memory.BackendType:
		return memory.New[T](cfg, log)
	case file.BackendType:
		return file.New[T](cfg, log)
	case sqlite.BackendType:
		return sqlite.New[T](cfg, log)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown backend %q", cfg.Backend)
	}
}

// Backends lists the built-in backend types accepted by Open.
func Backends() []string {
	return []string{memory.BackendType, file.BackendType, sqlite.BackendType}
}
