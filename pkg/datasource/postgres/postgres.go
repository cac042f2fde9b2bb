// Package postgres fetches rows from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/wundergraph/pgfederation/pkg/catalog"
	"github.com/wundergraph/pgfederation/pkg/datasource"
)

// Query is a statement with positional arguments.
type Query struct {
	SQL  string
	Args []any
}

type Option func(*Fetcher)

func WithLogger(logger log.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher implements datasource.Fetcher on a database/sql handle.
type Fetcher struct {
	db     *sql.DB
	logger log.Logger
}

var _ datasource.Fetcher = (*Fetcher)(nil)

func New(db *sql.DB, opts ...Option) *Fetcher {
	f := &Fetcher{
		db:     db,
		logger: log.NoopLogger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Fetcher, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "postgres: ping")
	}
	return New(db, opts...), nil
}

func (f *Fetcher) Close() error {
	return f.db.Close()
}

func (f *Fetcher) FetchRows(ctx context.Context, relation *catalog.Relation, where []datasource.Condition, fields []datasource.Field) ([]datasource.Row, error) {
	query := BuildSelect(relation, where, fields)
	f.logger.Debug("postgres.Fetcher.FetchRows",
		log.String("relation", relation.QualifiedName()),
		log.String("sql", query.SQL),
	)

	rows, err := f.db.QueryContext(ctx, query.SQL, query.Args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	projected := hasColumns(fields)

	var out []datasource.Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.WithStack(err)
		}
		row := make(datasource.Row, len(columns))
		if projected {
			for i, column := range columns {
				row[column] = normalize(values[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// BuildSelect renders the query FetchRows sends. Only fields backed by a column are selected,
// each aliased to its response key.
func BuildSelect(relation *catalog.Relation, where []datasource.Condition, fields []datasource.Field) Query {
	var (
		sb   strings.Builder
		args = make([]any, 0, len(where))
	)

	sb.WriteString("SELECT ")
	if !hasColumns(fields) {
		sb.WriteString("1")
	}
	first := true
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field.Column == "" {
			continue
		}
		key := field.ResponseKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(pq.QuoteIdentifier(field.Column))
		sb.WriteString(" AS ")
		sb.WriteString(pq.QuoteIdentifier(key))
	}

	sb.WriteString(" FROM ")
	sb.WriteString(table(relation))

	for i, cond := range where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, cond.Value)
		fmt.Fprintf(&sb, "%s = $%d", pq.QuoteIdentifier(cond.Column.Name), len(args))
	}

	return Query{SQL: sb.String(), Args: args}
}

func table(relation *catalog.Relation) string {
	if relation.Namespace == "" {
		return pq.QuoteIdentifier(relation.Name)
	}
	return pq.QuoteIdentifier(relation.Namespace) + "." + pq.QuoteIdentifier(relation.Name)
}

func hasColumns(fields []datasource.Field) bool {
	for _, field := range fields {
		if field.Column != "" {
			return true
		}
	}
	return false
}

// normalize turns driver byte slices (numeric, json) into strings.
func normalize(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
