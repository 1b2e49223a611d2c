package vec

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/sqlite-hnsw/constraint"
	"github.com/viant/sqlite-hnsw/engine"
	"github.com/viant/sqlite-hnsw/hnsw"
	"github.com/viant/sqlite-hnsw/options"
	"github.com/viant/sqlite-hnsw/space"
	"github.com/viant/sqlite-hnsw/vecerr"
	"github.com/viant/sqlite-hnsw/vector"

	"database/sql"

	"golang.org/x/sync/singleflight"
	"modernc.org/sqlite/vtab"
)

// columnVec and columnDistance are the two declared columns of every vec
// table, in the order Create/Connect declares them.
const (
	columnVec      = 0
	columnDistance = 1
)

// Module implements vtab.Module for the vec virtual table. One Module
// instance is shared by every table registered against a *sql.DB. Because
// each Table owns its HNSW graph in process memory rather than in a shadow
// SQL table, Module keeps a registry so that a second connection CONNECTing
// to a table already CREATEd on this *sql.DB attaches to the same graph
// instead of silently starting over with an empty one.
type Module struct {
	mu     sync.Mutex
	tables map[string]*Table
	group  singleflight.Group
}

func (m *Module) registry() map[string]*Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tables == nil {
		m.tables = make(map[string]*Table)
	}
	return m.tables
}

// Table is a single virtual table instance: one vector space, one set of
// HNSW hyper-parameters, one graph. The graph lives only in process memory
// and is shared by every connection that Connects to it through the same
// Module (see Module.registry); there is no on-disk persistence, so a
// table's contents do not survive the process exiting.
type Table struct {
	name  string
	space space.VectorSpace
	opts  options.IndexOptions
	index *hnsw.Index
}

// Cursor walks the result set a single Filter call materialized.
type Cursor struct {
	table   *Table
	results []hnsw.Result
	pos     int
}

// Register registers the vec virtual table module and its scalar function
// surface (vector_from_json, knn_param, knn_search, ...) with db.
func Register(db *sql.DB) error {
	if err := engine.RegisterVectorFunctions(db); err != nil {
		return fmt.Errorf("vec: registering scalar functions: %w", err)
	}
	if err := vtab.RegisterModule(db, "vec", &Module{}); err != nil {
		return fmt.Errorf("vec: registering module: %w", err)
	}
	return nil
}

// parseArgs extracts the vector-space declaration and the optional hnsw(...)
// option string from a CREATE/CONNECT argv. Per the module-argument
// convention, args[0..2] are the fixed module/db/table names; args[3] is the
// vector space declaration (required); args[4], if present, is the hnsw
// option clause.
func parseArgs(args []string) (space.VectorSpace, options.IndexOptions, error) {
	if len(args) < 4 {
		return space.VectorSpace{}, options.IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "create", "USING vec requires a vector space declaration, e.g. vec(embedding float32[128] cosine)")
	}
	sp, err := space.ParseDeclaration(args[3])
	if err != nil {
		return space.VectorSpace{}, options.IndexOptions{}, err
	}
	opts := options.Default()
	if len(args) > 4 {
		opts, err = options.Parse(args[4])
		if err != nil {
			return space.VectorSpace{}, options.IndexOptions{}, err
		}
	}
	if opts.MaxElements == 0 {
		return space.VectorSpace{}, options.IndexOptions{}, vecerr.New(vecerr.InvalidArgument, "create", "hnsw(...) option clause must set max_elements")
	}
	return sp, opts, nil
}

func declareSchema(ctx vtab.Context, tableName, columnName string) error {
	return ctx.Declare(fmt.Sprintf("CREATE TABLE %s(%s, distance REAL HIDDEN)", tableName, columnName))
}

// registryKey identifies a table across Create/Connect calls sharing one
// Module: database name and table name together, matching how SQLite scopes
// a virtual table's identity.
func registryKey(args []string) string {
	return args[1] + "." + args[2]
}

// Create builds a fresh, empty table backed by a new HNSW graph and installs
// it in the module's registry, replacing anything previously registered
// under this name: a CREATE always starts from empty, even if a table by
// this name existed earlier in the process.
func (m *Module) Create(ctx vtab.Context, args []string) (vtab.Table, error) {
	if _, err := m.declare(ctx, args, "create"); err != nil {
		return nil, err
	}
	return m.registryCreate(args)
}

// Connect reattaches to a table declaration. If another connection on this
// same *sql.DB already CREATEd this table, Connect returns that same Table
// so it shares the live graph rather than shadowing it with an empty one;
// singleflight collapses concurrent Connect calls for the same name into one
// registry lookup-or-create. There is still no on-disk state, so a name with
// no prior CREATE in this process starts empty, and that emptiness does not
// survive the process exiting.
func (m *Module) Connect(ctx vtab.Context, args []string) (vtab.Table, error) {
	if _, err := m.declare(ctx, args, "connect"); err != nil {
		return nil, err
	}
	return m.registryConnect(args)
}

// declare validates argv, enables constraint support, and declares the
// table's SQL-visible schema. It is the only part of Create/Connect that
// touches vtab.Context, so the registry logic below stays testable without
// one.
func (m *Module) declare(ctx vtab.Context, args []string, op string) (space.VectorSpace, error) {
	if len(args) < 3 {
		return space.VectorSpace{}, vecerr.New(vecerr.InvalidArgument, op, fmt.Sprintf("%s expects at least a module, database and table name", op))
	}
	sp, _, err := parseArgs(args)
	if err != nil {
		return space.VectorSpace{}, err
	}
	if err := ctx.EnableConstraintSupport(); err != nil {
		return space.VectorSpace{}, fmt.Errorf("vec: EnableConstraintSupport: %w", err)
	}
	if err := declareSchema(ctx, args[2], sp.Name); err != nil {
		return space.VectorSpace{}, err
	}
	return sp, nil
}

// registryCreate builds a new Table from args and installs it in the
// registry under registryKey(args), replacing any table already there.
func (m *Module) registryCreate(args []string) (*Table, error) {
	sp, opts, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	t := &Table{name: args[2], space: sp, opts: opts, index: hnsw.New(sp, opts)}
	registry := m.registry()
	m.mu.Lock()
	registry[registryKey(args)] = t
	m.mu.Unlock()
	return t, nil
}

// registryConnect returns the Table already registered under
// registryKey(args), or builds and registers one if none exists yet.
// Concurrent calls for the same key are collapsed by singleflight so only
// one lookup-or-create runs.
func (m *Module) registryConnect(args []string) (*Table, error) {
	key := registryKey(args)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		registry := m.registry()
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := registry[key]; ok {
			return existing, nil
		}
		sp, opts, err := parseArgs(args)
		if err != nil {
			return nil, err
		}
		t := &Table{name: args[2], space: sp, opts: opts, index: hnsw.New(sp, opts)}
		registry[key] = t
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Table), nil
}

// BestIndex recognizes three constraint shapes: `vec MATCH knn_search(...)`
// on the vector column, rowid = ? and rowid IN (...). A WHERE clause that
// contains none of these is rejected outright: this table has no
// unconstrained full-scan plan.
func (t *Table) BestIndex(info *vtab.IndexInfo) error {
	var cs []string
	nextArg := 0

	for i := range info.Constraints {
		c := &info.Constraints[i]
		if !c.Usable {
			continue
		}
		switch {
		case c.Column == columnVec && c.Op == vtab.OpMATCH:
			cs = append(cs, "ks")
			c.ArgIndex = nextArg
			c.Omit = true
			nextArg++
		case c.Column == -1 && c.Op == vtab.OpEQ:
			// SQLite reports rowid IN (...) the same way it reports rowid = ?:
			// op stays EQ, and the constraint is only marked IN-capable via
			// sqlite3_vtab_in at the engine level. Filter disambiguates by
			// inspecting the runtime value (see rowIDInValues).
			cs = append(cs, "eq")
			c.ArgIndex = nextArg
			c.Omit = true
			nextArg++
		}
	}

	if len(cs) == 0 {
		return vecerr.New(vecerr.InvalidArgument, "best_index", "WHERE clause must constrain the vector column with MATCH or rowid with = / IN")
	}

	info.IdxStr = constraint.EncodeIdxStr(namesToConstraints(cs))
	info.IdxNum = len(cs)
	return nil
}

func namesToConstraints(names []string) []constraint.Constraint {
	out := make([]constraint.Constraint, 0, len(names))
	for _, n := range names {
		switch n {
		case "ks":
			out = append(out, constraint.Knn{})
		case "eq":
			out = append(out, constraint.RowIdEq{})
		}
	}
	return out
}

// Open allocates a cursor over t. Cursors carry no state of their own until
// Filter runs.
func (t *Table) Open() (vtab.Cursor, error) { return &Cursor{table: t}, nil }

// Disconnect releases this connection's reference to the table. The graph
// itself is owned by the Table value and is reclaimed once nothing else
// holds it; there is no persistent state to flush.
func (t *Table) Disconnect() error { return nil }

// Destroy drops the table and its graph permanently.
func (t *Table) Destroy() error {
	t.index = nil
	return nil
}

// rowIDInValues is implemented by a vtab.Value that actually carries a
// materialized rowid IN (...) set rather than a single scalar. A value that
// does not satisfy this interface is treated as a single rowid = ? value;
// Filter cannot tell an IN list delivered one value per call from an
// equality and reports no error for it.
type rowIDInValues interface {
	Values() []vtab.Value
}

// Filter reconstructs the constraint plan BestIndex selected, executes it
// against the table's HNSW graph, and buffers the resulting rows.
func (c *Cursor) Filter(idxNum int, idxStr string, vals []vtab.Value) error {
	names := constraint.DecodeIdxStr(idxStr)
	cs := make([]constraint.Constraint, 0, len(names))

	for i, name := range names {
		if i >= len(vals) {
			return vecerr.New(vecerr.Internal, "filter", "fewer argument values than constraints selected by best_index")
		}
		switch name {
		case "ks":
			handle, err := asHandle(vals[i])
			if err != nil {
				return err
			}
			p, ok := engine.LookupKnnParam(handle)
			if !ok {
				return vecerr.New(vecerr.FailedPrecondition, "filter", "knn_param handle is stale or already released")
			}
			cs = append(cs, constraint.Knn{QueryVector: p.QueryVector, K: p.K, EfSearch: p.EfSearch})
			engine.ReleaseKnnParam(handle)
		case "eq":
			// rowid IN (...) reaches Filter with the same "eq" short name as
			// rowid = ?; only the runtime value type distinguishes a
			// materialized IN-list from a single scalar.
			if in, ok := vals[i].(rowIDInValues); ok {
				set := make([]int64, 0, len(in.Values()))
				for _, v := range in.Values() {
					r, err := asRowID(v)
					if err != nil {
						return err
					}
					set = append(set, r)
				}
				cs = append(cs, constraint.RowIdIn{Set: set})
				break
			}
			r, err := asRowID(vals[i])
			if err != nil {
				return err
			}
			cs = append(cs, constraint.RowIdEq{R: r})
		}
	}

	plan, err := constraint.Fold(cs)
	if err != nil {
		return err
	}
	exec := &constraint.Executor{Index: c.table.index}
	results, err := exec.Execute(plan)
	if err != nil {
		return err
	}
	c.results = results
	c.pos = 0
	return nil
}

// Next advances the cursor.
func (c *Cursor) Next() error {
	c.pos++
	return nil
}

// Eof reports whether the cursor has been exhausted.
func (c *Cursor) Eof() bool { return c.pos >= len(c.results) }

// Column returns the vector blob (column 0) or distance (column 1) of the
// current row.
func (c *Cursor) Column(col int) (vtab.Value, error) {
	if c.pos < 0 || c.pos >= len(c.results) {
		return nil, vecerr.New(vecerr.Internal, "column", "cursor position out of range")
	}
	row := c.results[c.pos]
	switch col {
	case columnVec:
		v, err := c.table.index.GetVector(row.Label)
		if err != nil {
			return nil, err
		}
		return v.ToBlob(), nil
	case columnDistance:
		return float64(row.Distance), nil
	default:
		return nil, vecerr.New(vecerr.InvalidArgument, "column", fmt.Sprintf("unsupported column %d", col))
	}
}

// Rowid returns the label of the current row as a SQL rowid.
func (c *Cursor) Rowid() (int64, error) {
	if c.pos < 0 || c.pos >= len(c.results) {
		return 0, vecerr.New(vecerr.Internal, "rowid", "cursor position out of range")
	}
	return int64(c.results[c.pos].Label), nil
}

// Close discards the buffered result set.
func (c *Cursor) Close() error {
	c.results = nil
	c.pos = 0
	return nil
}

// Update implements the classic xUpdate(argc, argv) shape: argc==1 is a
// DELETE (argv[0] is the row-id to remove), argv[0]==nil with argc>=3 is an
// INSERT (argv[1] is the new row-id, argv[2] the vector blob), and
// argv[0]!=nil with argc>=3 is an UPDATE in place. The host vtab package
// this module targets was not confirmed to require an Updater interface by
// this exact name; the method is harmless to define regardless, since Go
// does not require it to satisfy anything unless something asserts for it.
func (t *Table) Update(argc int, argv []vtab.Value) (int64, error) {
	switch {
	case argc == 1:
		r, err := asRowID(argv[0])
		if err != nil {
			return 0, err
		}
		label, err := constraint.RowIDToLabel(r)
		if err != nil {
			return 0, err
		}
		return 0, t.index.MarkDelete(label)

	case argc >= 3 && argv[0] == nil:
		r, err := asRowID(argv[1])
		if err != nil {
			return 0, err
		}
		label, err := constraint.RowIDToLabel(r)
		if err != nil {
			return 0, err
		}
		vec, err := t.decodeColumn(argv[2])
		if err != nil {
			return 0, err
		}
		if err := t.index.Insert(vec, label, true); err != nil {
			return 0, err
		}
		return int64(label), nil

	case argc >= 3:
		oldR, err := asRowID(argv[0])
		if err != nil {
			return 0, err
		}
		newR, err := asRowID(argv[1])
		if err != nil {
			return 0, err
		}
		if oldR != newR {
			return 0, vecerr.New(vecerr.Unimplemented, "update", "row-id cannot be changed by UPDATE")
		}
		label, err := constraint.RowIDToLabel(oldR)
		if err != nil {
			return 0, err
		}
		vec, err := t.decodeColumn(argv[2])
		if err != nil {
			return 0, err
		}
		// The label is still live at this point; insert() unconditionally
		// rejects a live label regardless of allow_replace_deleted, so the
		// slot must be tombstoned first and then reinserted under the
		// table's replace policy.
		if err := t.index.MarkDelete(label); err != nil {
			return 0, err
		}
		if err := t.index.Insert(vec, label, t.opts.AllowReplaceDeleted); err != nil {
			return 0, err
		}
		return int64(label), nil

	default:
		return 0, vecerr.New(vecerr.InvalidArgument, "update", fmt.Sprintf("unsupported argc %d", argc))
	}
}

func (t *Table) decodeColumn(v vtab.Value) ([]float32, error) {
	blob, ok := v.([]byte)
	if !ok {
		return nil, vecerr.New(vecerr.InvalidArgument, "update", fmt.Sprintf("expected a vector BLOB, got %T", v))
	}
	vec, err := vector.FromBlob(t.space.Type, blob)
	if err != nil {
		return nil, err
	}
	if vec.Dim() != t.space.Dimension {
		return nil, vecerr.New(vecerr.InvalidArgument, "update", fmt.Sprintf("vector has dimension %d, table declares %d", vec.Dim(), t.space.Dimension))
	}
	if t.space.Normalize() {
		vec.NormalizeInPlace()
	}
	return vec.Data, nil
}

// FindFunction recognizes the knn_search symbol so the planner's
// `vec MATCH knn_search(...)` form resolves to a function-based constraint
// rather than ordinary scalar evaluation. knn_search itself is a plain
// registered scalar function (see engine.RegisterVectorFunctions) that
// passes its knn_param handle through verbatim, so this method has no
// SQLite constant to report beyond confirming the name is ours.
func (t *Table) FindFunction(nArg int, name string) (int, bool) {
	if name == "knn_search" {
		return 1, true
	}
	return 0, false
}

func asRowID(v vtab.Value) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case float64:
		return int64(val), nil
	case nil:
		return 0, vecerr.New(vecerr.InvalidArgument, "row_id", "row-id is NULL")
	default:
		return 0, vecerr.New(vecerr.InvalidArgument, "row_id", fmt.Sprintf("unsupported row-id type %T", v))
	}
}

func asHandle(v vtab.Value) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case []byte:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return 0, vecerr.New(vecerr.InvalidArgument, "knn_handle", fmt.Sprintf("cannot parse knn_param handle %q", string(val)))
		}
		return n, nil
	default:
		return 0, vecerr.New(vecerr.InvalidArgument, "knn_handle", fmt.Sprintf("unsupported knn_param handle type %T", v))
	}
}
