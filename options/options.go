package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/sqlite-hnsw/vecerr"
)

// IndexOptions holds the HNSW hyper-parameters parsed once at
// CREATE VIRTUAL TABLE time.
type IndexOptions struct {
	MaxElements         uint64
	M                   int
	EfConstruction      int
	RandomSeed          uint64
	AllowReplaceDeleted bool
}

// Default returns the option set with every default applied and
// MaxElements left at 0 (callers must supply it; it is the only required
// key).
func Default() IndexOptions {
	return IndexOptions{
		M:              16,
		EfConstruction: 200,
		RandomSeed:     100,
	}
}

// Parse parses a declaration of the form
// hnsw(max_elements=N[, M=M][, ef_construction=E][, random_seed=S][, allow_replace_deleted=BOOL])
func Parse(decl string) (IndexOptions, error) {
	decl = strings.TrimSpace(decl)
	body := decl
	if strings.HasPrefix(strings.ToLower(decl), "hnsw") {
		open := strings.IndexByte(decl, '(')
		close := strings.LastIndexByte(decl, ')')
		if open < 0 || close < 0 || close < open {
			return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("malformed index options %q", decl))
		}
		body = decl[open+1 : close]
	}

	opts := Default()
	haveMaxElements := false
	for _, raw := range strings.Split(body, ",") {
		kv := strings.TrimSpace(raw)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("malformed key=value pair %q", kv))
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.TrimSpace(parts[1])
		switch key {
		case "max_elements":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil || n == 0 {
				return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("max_elements must be a positive integer, got %q", val))
			}
			opts.MaxElements = n
			haveMaxElements = true
		case "m":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("M must be a positive integer, got %q", val))
			}
			opts.M = n
		case "ef_construction":
			n, err := strconv.Atoi(val)
			if err != nil || n <= 0 {
				return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("ef_construction must be a positive integer, got %q", val))
			}
			opts.EfConstruction = n
		case "random_seed":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("random_seed must be an integer, got %q", val))
			}
			opts.RandomSeed = n
		case "allow_replace_deleted":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("allow_replace_deleted must be a boolean, got %q", val))
			}
			opts.AllowReplaceDeleted = b
		default:
			return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", fmt.Sprintf("unknown index option %q", key))
		}
	}
	if !haveMaxElements {
		return IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "index_options", "max_elements is required")
	}
	return opts, nil
}
