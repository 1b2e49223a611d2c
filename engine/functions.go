package engine

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	sqlite "modernc.org/sqlite"

	"github.com/viant/sqlite-hnsw/kernel"
	"github.com/viant/sqlite-hnsw/space"
	"github.com/viant/sqlite-hnsw/vector"
)

// buildVersion is overridable at link time; vectorlite_info falls back to
// "dev" when the extension is built without -ldflags.
var buildVersion = "dev"

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterVectorFunctions registers the SQL scalar-function surface with
// the driver so it is available on new connections opened after this call.
// Registration happens once per process; later calls return the first
// call's result without registering again.
// Note: existing open connections will not see new functions.
func RegisterVectorFunctions(_ *sql.DB) error {
	registerOnce.Do(func() {
		for _, fn := range []struct {
			name string
			nArg int32
			impl func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error)
		}{
			{"vector_from_json", 1, vectorFromJSONImpl},
			{"vector_to_json", 1, vectorToJSONImpl},
			{"vector_distance", 3, vectorDistanceImpl},
			{"knn_param", 2, knnParamImpl},
			{"knn_param", 3, knnParamImpl},
			{"knn_search", 1, knnSearchImpl},
			{"knn_search", 2, knnSearchImpl},
			{"vectorlite_info", 0, vectorliteInfoImpl},
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(fn.name, fn.nArg, fn.impl); err != nil {
				registerErr = fmt.Errorf("engine: registering %s/%d: %w", fn.name, fn.nArg, err)
				return
			}
		}
	})
	return registerErr
}

func vectorFromJSONImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, err := asText(args, 0)
	if err != nil {
		return nil, err
	}
	v, err := vector.FromJSON(vector.F32, []byte(text))
	if err != nil {
		return nil, err
	}
	return v.ToBlob(), nil
}

func vectorToJSONImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	blob, err := asBlob(args, 0)
	if err != nil {
		return nil, err
	}
	v, err := vector.FromBlob(vector.F32, blob)
	if err != nil {
		return nil, err
	}
	text, err := v.ToJSON()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

func vectorDistanceImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	aBlob, err := asBlob(args, 0)
	if err != nil {
		return nil, err
	}
	bBlob, err := asBlob(args, 1)
	if err != nil {
		return nil, err
	}
	metricText, err := asText(args, 2)
	if err != nil {
		return nil, err
	}
	metric, err := space.ParseMetric(metricText)
	if err != nil {
		return nil, err
	}
	a, err := vector.FromBlob(vector.F32, aBlob)
	if err != nil {
		return nil, err
	}
	b, err := vector.FromBlob(vector.F32, bBlob)
	if err != nil {
		return nil, err
	}
	if len(a.Data) != len(b.Data) {
		return nil, fmt.Errorf("vector_distance: dimension mismatch %d vs %d", len(a.Data), len(b.Data))
	}
	switch metric {
	case space.L2:
		return float64(kernel.L2Squared(a.Data, b.Data)), nil
	case space.IP:
		return float64(kernel.InnerProductDistance(a.Data, b.Data)), nil
	case space.Cosine:
		x, y := kernel.Normalized(a.Data), kernel.Normalized(b.Data)
		return float64(kernel.InnerProductDistance(x, y)), nil
	default:
		return nil, fmt.Errorf("vector_distance: unhandled metric %v", metric)
	}
}

func knnParamImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	blob, err := asBlob(args, 0)
	if err != nil {
		return nil, err
	}
	k, err := asInt(args, 1)
	if err != nil {
		return nil, err
	}
	ef := 0
	if len(args) > 2 {
		ef, err = asInt(args, 2)
		if err != nil {
			return nil, err
		}
	}
	v, err := vector.FromBlob(vector.F32, blob)
	if err != nil {
		return nil, err
	}
	handle := registerParam(&KnnParam{QueryVector: v.Data, K: k, EfSearch: ef})
	return handle, nil
}

// knnSearchImpl marks a MATCH right-hand side as a vector search:
// `vec MATCH knn_search(knn_param(...))` (or the two-argument form
// `knn_search(marker, knn_param(...))`) evaluates to the knn_param handle,
// passed through verbatim, and that handle is the value the virtual table's
// Filter receives for the MATCH constraint. In the two-argument form the
// first argument is accepted but ignored.
func knnSearchImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	handle, err := asInt64(args, len(args)-1)
	if err != nil {
		return nil, err
	}
	if _, ok := lookupParam(handle); !ok {
		return nil, fmt.Errorf("knn_search: unknown or already-released knn_param handle %d", handle)
	}
	return handle, nil
}

func vectorliteInfoImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	targets := kernel.SupportedTargets()
	info := fmt.Sprintf(
		"sqlite-hnsw %s (go %s); cpus=%s heap=%s; simd targets: %s; runtime target: %s",
		buildVersion,
		runtime.Version(),
		humanize.Comma(int64(runtime.NumCPU())),
		humanize.Bytes(mem.HeapAlloc),
		strings.Join(targets, ","),
		kernel.RuntimeTarget(),
	)
	return info, nil
}

func asBlob(args []driver.Value, i int) ([]byte, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("expected at least %d arguments", i+1)
	}
	switch v := args[i].(type) {
	case []byte:
		return v, nil
	case nil:
		return nil, fmt.Errorf("argument %d is NULL, want BLOB", i)
	default:
		return nil, fmt.Errorf("argument %d has type %T, want BLOB", i, v)
	}
}

func asText(args []driver.Value, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("expected at least %d arguments", i+1)
	}
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("argument %d has type %T, want TEXT", i, v)
	}
}

func asInt(args []driver.Value, i int) (int, error) {
	v, err := asInt64(args, i)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func asInt64(args []driver.Value, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("expected at least %d arguments", i+1)
	}
	switch v := args[i].(type) {
	case int64:
		return v, nil
	default:
		return 0, fmt.Errorf("argument %d has type %T, want INTEGER", i, v)
	}
}
