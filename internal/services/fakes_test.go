package services

import (
	"context"
	"fmt"
	"reflect"
)

type fakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	BeginFunc    func(ctx context.Context) (Tx, error)

	tx *fakeTx
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc == nil {
		return fakeRow{err: fmt.Errorf("unexpected QueryRow: %s", sql)}
	}
	return f.QueryRowFunc(ctx, sql, args...)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc == nil {
		return fakeCommandTag{rowsAffected: 1}, nil
	}
	return f.ExecFunc(ctx, sql, args...)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc == nil {
		return &fakeRows{}, nil
	}
	return f.QueryFunc(ctx, sql, args...)
}

// Begin returns a transaction that routes statements through the same funcs.
func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	f.tx = &fakeTx{db: f}
	return f.tx, nil
}

type fakeTx struct {
	db         *fakeDB
	committed  bool
	rolledBack bool
	CommitErr  error
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeCommandTag struct {
	rowsAffected int64
}

func (c fakeCommandTag) RowsAffected() int64 { return c.rowsAffected }

type fakeRow struct {
	values []any
	err    error
}

func rowFromValues(values ...any) fakeRow {
	return fakeRow{values: values}
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assignValues(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assignValues(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Close()     {}
func (r *fakeRows) Err() error { return r.err }

// assignValues copies values into scan destinations, converting between
// named types and allocating pointers for nullable columns.
func assignValues(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values for %d destinations", len(values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case v.Type().ConvertibleTo(elem.Type()):
			elem.Set(v.Convert(elem.Type()))
		case elem.Kind() == reflect.Pointer && v.Type().ConvertibleTo(elem.Type().Elem()):
			p := reflect.New(elem.Type().Elem())
			p.Elem().Set(v.Convert(elem.Type().Elem()))
			elem.Set(p)
		default:
			return fmt.Errorf("scan: cannot assign %T to %s", values[i], elem.Type())
		}
	}
	return nil
}
