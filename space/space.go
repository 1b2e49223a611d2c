package space

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/viant/sqlite-hnsw/vecerr"
	"github.com/viant/sqlite-hnsw/vector"
)

// Metric identifies the distance function a space is declared with.
type Metric int

const (
	L2 Metric = iota
	IP
	Cosine
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "l2"
	case IP:
		return "ip"
	case Cosine:
		return "cosine"
	default:
		return "unknown"
	}
}

// ParseMetric parses one of the three supported distance names. No aliases.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "l2":
		return L2, nil
	case "ip":
		return IP, nil
	case "cosine":
		return Cosine, nil
	default:
		return 0, vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("unknown metric %q", s))
	}
}

// VectorSpace bundles element type, distance metric, and dimension for one
// virtual table. It is immutable after construction and owned by exactly one
// HnswIndex.
type VectorSpace struct {
	Name      string // the declared vec column name
	Type      vector.ElementType
	Metric    Metric
	Dimension int
}

// Normalize reports whether vectors in this space must be L2-normalized
// before being handed to any distance kernel.
func (s VectorSpace) Normalize() bool { return s.Metric == Cosine }

var declRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_$]*)\s+(float32|float16|bfloat16)\[(\d+)\]\s*([A-Za-z][A-Za-z0-9]*)?$`)

// reservedNames rejects the SQL keywords most likely to collide with a
// column named via this grammar.
var reservedNames = map[string]bool{
	"select": true, "from": true, "where": true, "table": true, "insert": true,
	"update": true, "delete": true, "values": true, "into": true, "create": true,
	"drop": true, "index": true, "and": true, "or": true, "not": true, "null": true,
	"primary": true, "key": true, "rowid": true,
}

// ParseDeclaration parses a declaration of the form `name type[dim] metric?`
// as it appears as the first argument to the virtual-table constructor.
func ParseDeclaration(decl string) (VectorSpace, error) {
	decl = strings.TrimSpace(decl)
	m := declRe.FindStringSubmatch(decl)
	if m == nil {
		return VectorSpace{}, vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("malformed vector space declaration %q", decl))
	}
	name, typeStr, dimStr, metricStr := m[1], m[2], m[3], m[4]

	if err := ValidateColumnName(name); err != nil {
		return VectorSpace{}, err
	}

	elemType, err := vector.ParseElementType(typeStr)
	if err != nil {
		return VectorSpace{}, err
	}

	dim, err := strconv.Atoi(dimStr)
	if err != nil || dim <= 0 {
		return VectorSpace{}, vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("dimension must be a positive integer, got %q", dimStr))
	}

	metric := L2
	if metricStr != "" {
		metric, err = ParseMetric(strings.ToLower(metricStr))
		if err != nil {
			return VectorSpace{}, err
		}
	}

	return VectorSpace{Name: name, Type: elemType, Metric: metric, Dimension: dim}, nil
}

// ValidateColumnName enforces the SQL identifier grammar this module
// requires for a vector-space name: a leading letter or underscore followed
// by letters, digits, underscores or '$', and not a reserved SQL keyword.
func ValidateColumnName(name string) error {
	if name == "" {
		return vecerr.New(vecerr.InvalidArgument, "vector_space", "column name is empty")
	}
	first := name[0]
	if !(first == '_' || (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("invalid column name %q: must start with a letter or underscore", name))
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		ok := c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !ok {
			return vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("invalid column name %q: disallowed character %q", name, string(c)))
		}
	}
	if reservedNames[strings.ToLower(name)] {
		return vecerr.New(vecerr.InvalidArgument, "vector_space", fmt.Sprintf("invalid column name %q: reserved SQL keyword", name))
	}
	return nil
}
