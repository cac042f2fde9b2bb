package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/federation"
	"github.com/wundergraph/pgfederation/pkg/schemabuilder"
)

// Config is the resolved configuration of a command run.
type Config struct {
	Catalogs        []string
	TypeDefs        []string
	LogLevel        string
	DSN             string
	Fixtures        string
	Listen          string
	Concurrency     int
	ShutdownTimeout time.Duration
}

func loadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Catalogs:        stringSlice(v, "catalog"),
		TypeDefs:        stringSlice(v, "typedefs"),
		LogLevel:        v.GetString("log-level"),
		DSN:             v.GetString("dsn"),
		Fixtures:        v.GetString("fixtures"),
		Listen:          v.GetString("listen"),
		Concurrency:     v.GetInt("concurrency"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}
	if len(cfg.Catalogs) == 0 {
		return Config{}, fmt.Errorf("no catalog configured: pass --catalog or set %s_CATALOG", envPrefix)
	}
	return cfg, nil
}

// stringSlice reads slices set by flags as well as comma separated environment values.
func stringSlice(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range cast.ToStringSlice(v.Get(key)) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func newLogger(level string) (*zap.Logger, log.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	zapLogger, err := config.Build()
	if err != nil {
		return nil, nil, err
	}
	return zapLogger, log.NewZapLogger(zapLogger, abstractLevel(zapLevel)), nil
}

func abstractLevel(level zapcore.Level) log.Level {
	switch level {
	case zapcore.DebugLevel:
		return log.DebugLevel
	case zapcore.InfoLevel:
		return log.InfoLevel
	case zapcore.WarnLevel:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// loadCatalog merges the relations of every catalog file.
func loadCatalog(paths []string) (*catalog.Catalog, error) {
	merged := &catalog.Catalog{}
	for _, path := range paths {
		c, err := catalog.Load(path)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
		merged.Relations = append(merged.Relations, c.Relations...)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

func loadTypeDefs(paths []string) ([]*ast.Source, error) {
	sources := make([]*ast.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		sources = append(sources, &ast.Source{Name: path, Input: string(data)})
	}
	return sources, nil
}

func buildSchema(cfg Config, logger log.Logger) (*catalog.Catalog, *federation.Schema, error) {
	c, err := loadCatalog(cfg.Catalogs)
	if err != nil {
		return nil, nil, err
	}
	typeDefs, err := loadTypeDefs(cfg.TypeDefs)
	if err != nil {
		return nil, nil, err
	}
	schema, err := federation.NewBuilder(c,
		schemabuilder.WithTypeDefs(typeDefs...),
		schemabuilder.WithLogger(logger),
	).Build()
	if err != nil {
		return nil, nil, err
	}
	return c, schema, nil
}
