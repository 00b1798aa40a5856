package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// fakeRow scans a fixed value tuple.
type fakeRow struct {
	values []any
	err    error
}

func rowFromValues(values ...any) Row {
	return &fakeRow{values: values}
}

func errRow(err error) Row {
	return &fakeRow{err: err}
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: have %d values, want %d destinations", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

// fakeRows iterates fixed value tuples.
type fakeRows struct {
	rows [][]any
	err  error
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return (&fakeRow{values: r.rows[r.idx-1]}).Scan(dest...)
}

func (r *fakeRows) Close()    {}
func (r *fakeRows) Err() error { return r.err }

// assign copies a fixture value into a scan destination, boxing plain values
// into pointer destinations so nullable columns can be faked with literals.
func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("scan destination must be a non-nil pointer, got %T", dest)
	}
	ev := dv.Elem()
	if value == nil {
		ev.Set(reflect.Zero(ev.Type()))
		return nil
	}
	vv := reflect.ValueOf(value)
	switch {
	case vv.Type().AssignableTo(ev.Type()):
		ev.Set(vv)
	case ev.Kind() == reflect.Pointer && vv.Type().AssignableTo(ev.Type().Elem()):
		p := reflect.New(ev.Type().Elem())
		p.Elem().Set(vv)
		ev.Set(p)
	case vv.Type().ConvertibleTo(ev.Type()):
		ev.Set(vv.Convert(ev.Type()))
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dest)
	}
	return nil
}

// fakeDB implements DBConn with pluggable behavior per call. Transactions
// delegate to the same functions; commits and rollbacks are counted.
type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	ExecFunc     func(ctx context.Context, sql string, args ...any) (int64, error)
	BeginErr     error

	Commits   int
	Rollbacks int
}

func (d *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if d.QueryRowFunc == nil {
		return errRow(fmt.Errorf("unexpected QueryRow: %s", sql))
	}
	return d.QueryRowFunc(ctx, sql, args...)
}

func (d *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if d.QueryFunc == nil {
		return nil, fmt.Errorf("unexpected Query: %s", sql)
	}
	return d.QueryFunc(ctx, sql, args...)
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if d.ExecFunc == nil {
		return 0, fmt.Errorf("unexpected Exec: %s", sql)
	}
	return d.ExecFunc(ctx, sql, args...)
}

func (d *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if d.BeginErr != nil {
		return nil, d.BeginErr
	}
	return &fakeTx{db: d}, nil
}

type fakeTx struct {
	db       *fakeDB
	finished bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.finished = true
	t.db.Commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.finished {
		t.db.Rollbacks++
		t.finished = true
	}
	return nil
}

// capturedEvent records one Publish call.
type capturedEvent struct {
	Topic   string
	Kind    string
	Payload any
}

// fakeEvents collects published events for assertions.
type fakeEvents struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakeEvents) Publish(ctx context.Context, topic, kind string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{Topic: topic, Kind: kind, Payload: payload})
}

func (f *fakeEvents) topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Topic
	}
	return out
}

func (f *fakeEvents) hasTopic(topic string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Topic == topic {
			return true
		}
	}
	return false
}
