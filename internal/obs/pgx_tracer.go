package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Country-settings queries are short; anything longer than this in a span
// attribute is noise.
const maxTracedStatement = 300

type querySpanKey struct{}

// QueryTracer is a pgx.QueryTracer that emits one span per statement, named
// after the SQL verb (db.select, db.insert, ...).
type QueryTracer struct{}

func (QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	verb := sqlVerb(data.SQL)
	ctx, span := otel.Tracer("backend-jastip/pgx").Start(ctx, "db."+verb)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", verb),
		attribute.String("db.statement", clipStatement(data.SQL)),
	)
	return context.WithValue(ctx, querySpanKey{}, span)
}

func (QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
	}
	span.End()
}

func sqlVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "query"
	}
	return strings.ToLower(fields[0])
}

func clipStatement(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > maxTracedStatement {
		return trimmed[:maxTracedStatement] + "..."
	}
	return trimmed
}
