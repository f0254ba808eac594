package app

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/Blackdeer1524/HeapDB/src/storage/tuple"
)

// ParseSchema reads a comma separated list of field types such as
// "int,string,int".
func ParseSchema(s string) (*tuple.TupleDesc, error) {
	parts := strings.Split(s, ",")
	types := make([]tuple.Type, 0, len(parts))

	for _, part := range parts {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "int":
			types = append(types, tuple.IntType)
		case "string":
			types = append(types, tuple.StringType)
		default:
			return nil, errors.Errorf("unknown field type %q", part)
		}
	}
	return tuple.Anonymous(types...), nil
}
