package sup_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// record is one captured log record, attrs flattened by key.
type record struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

// recorder is a slog.Handler collecting records for assertions.
type recorder struct {
	mu      sync.Mutex
	records []record
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]any)
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record{level: rec.Level, msg: rec.Message, attrs: attrs})
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recorder) WithGroup(string) slog.Handler      { return r }

func (r *recorder) logger() *slog.Logger {
	return slog.New(r)
}

// find returns all records with the given message.
func (r *recorder) find(msg string) []record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []record
	for _, rec := range r.records {
		if rec.msg == msg {
			out = append(out, rec)
		}
	}
	return out
}

// lines returns the output lines captured for one service and stream, in
// the order they were logged.
func (r *recorder) lines(service, stream string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.msg != "log" || rec.attrs["service"] != service || rec.attrs["stream"] != stream {
			continue
		}
		if line, ok := rec.attrs["line"].(string); ok {
			out = append(out, line)
		}
	}
	return out
}

// index returns the position of the first record with msg for the given
// service, or -1.
func (r *recorder) index(msg, service string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.msg == msg && (service == "" || rec.attrs["service"] == service) {
			return i
		}
	}
	return -1
}
