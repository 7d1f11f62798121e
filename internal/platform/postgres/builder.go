package postgres

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// psql builds statements with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// vectorLiteral renders v in pgvector's text input format, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// vectorValue returns a value for a vector column: NULL when v is empty.
func vectorValue(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return sq.Expr("?::vector", vectorLiteral(v))
}
