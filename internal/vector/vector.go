// Package vector implements a pgx-compatible codec for Postgres's vector
// extension type: plain Go types at the call site, text-format
// encode/decode at the edge.
package vector

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// Vector is a fixed-precision float32 slice matching the wire format
// Postgres's pgvector extension uses for its `vector` column type:
// "[0.1,0.2,0.3]".
type Vector []float32

// String renders the Postgres text-format representation.
func (v Vector) String() string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Parse decodes a Postgres vector text literal into a Vector.
func Parse(s string) (Vector, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("vector: malformed literal %q", s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return Vector{}, nil
	}
	fields := strings.Split(inner, ",")
	out := make(Vector, len(fields))
	for i, f := range fields {
		val, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("vector: bad component %q: %w", f, err)
		}
		out[i] = float32(val)
	}
	return out, nil
}

// Codec implements pgtype.Codec so a Vector can be registered against
// the connection's TypeMap.
type Codec struct{}

func (Codec) FormatSupported(format int16) bool {
	return format == pgtype.TextFormatCode
}

func (Codec) PreferredFormat() int16 { return pgtype.TextFormatCode }

func (Codec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	if _, ok := value.(Vector); !ok {
		return nil
	}
	return encodePlan{}
}

func (Codec) PlanScan(m *pgtype.Map, oid uint32, format int16, target any) pgtype.ScanPlan {
	if _, ok := target.(*Vector); !ok {
		return nil
	}
	return scanPlan{}
}

func (Codec) DecodeDatabaseSQLValue(m *pgtype.Map, oid uint32, format int16, src []byte) (driver.Value, error) {
	return string(src), nil
}

func (Codec) DecodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) (any, error) {
	return Parse(string(src))
}

type encodePlan struct{}

func (encodePlan) Encode(value any, buf []byte) ([]byte, error) {
	v := value.(Vector)
	return append(buf, v.String()...), nil
}

type scanPlan struct{}

func (scanPlan) Scan(src []byte, target any) error {
	v, err := Parse(string(src))
	if err != nil {
		return err
	}
	*(target.(*Vector)) = v
	return nil
}

// RegisterType wires the codec into a pgtype.Map under the Postgres type
// name "vector", called from the pool's AfterConnect hook.
func RegisterType(m *pgtype.Map, oid uint32) {
	m.RegisterType(&pgtype.Type{
		Name:  "vector",
		OID:   oid,
		Codec: Codec{},
	})
}

// CosineSimilarity computes the cosine similarity of a and b in process;
// it returns 0 for vectors of different or zero length, or with zero
// magnitude.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
