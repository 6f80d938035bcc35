package repository

import "mailflow/pkg/database"

type updateCall struct {
	fields map[string]any
	cond   map[string]any
}

type queryCall struct {
	sql  string
	args []any
}

// fakeStore is a scriptable Store: behavior hooks are optional and
// calls are recorded for assertions.
type fakeStore struct {
	countFn    func(model any, cond map[string]any) (int64, error)
	fetchOneFn func(dest any, cond map[string]any) error
	queryFn    func(dest any, sql string, args ...any) error
	insertFn   func(value any) error

	inserts   []any
	updates   []updateCall
	queries   []queryCall
	commits   int
	rollbacks int
}

func (s *fakeStore) Insert(value any) error {
	s.inserts = append(s.inserts, value)
	if s.insertFn != nil {
		return s.insertFn(value)
	}
	return nil
}

func (s *fakeStore) Update(model any, fields map[string]any, cond map[string]any) error {
	s.updates = append(s.updates, updateCall{fields: fields, cond: cond})
	return nil
}

func (s *fakeStore) Delete(model any, cond map[string]any) error { return nil }

func (s *fakeStore) Count(model any, cond map[string]any) (int64, error) {
	if s.countFn != nil {
		return s.countFn(model, cond)
	}
	return 0, nil
}

func (s *fakeStore) Fetch(dest any, cond map[string]any) error { return nil }

func (s *fakeStore) FetchOne(dest any, cond map[string]any) error {
	if s.fetchOneFn != nil {
		return s.fetchOneFn(dest, cond)
	}
	return database.ErrNotFound
}

func (s *fakeStore) Query(dest any, sql string, args ...any) error {
	s.queries = append(s.queries, queryCall{sql: sql, args: args})
	if s.queryFn != nil {
		return s.queryFn(dest, sql, args...)
	}
	return nil
}

func (s *fakeStore) Commit() error {
	s.commits++
	return nil
}

func (s *fakeStore) Rollback() error {
	s.rollbacks++
	return nil
}
