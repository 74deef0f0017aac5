package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/nandanugg/mallfence/module/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

type toastCall struct {
	level domain.ToastLevel
	text  string
	opts  domain.ToastOptions
}

type recordingToasts struct {
	mu    sync.Mutex
	calls []toastCall
	err   error
}

func (r *recordingToasts) Toast(_ context.Context, level domain.ToastLevel, text string, opts domain.ToastOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, toastCall{level: level, text: text, opts: opts})
	return r.err
}

func (r *recordingToasts) count(level domain.ToastLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.level == level {
			n++
		}
	}
	return n
}

func (r *recordingToasts) last() toastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return toastCall{}
	}
	return r.calls[len(r.calls)-1]
}
