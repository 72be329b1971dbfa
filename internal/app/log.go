package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const logTimeLayout = "2006-01-02T15:04:05Z"

// wlHandler writes one tab-separated line per record to wl.log:
//
//	<timestamp>\t<level>\t<opID>\t<operation>\t<message>\t<key=value ...>
//
// Group names prefix their keys ("vault.name=local"). Byte slices such as
// image blobs are logged by size and passphrases are masked.
type wlHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	op     *Operation
	prefix string
	attrs  []slog.Attr
}

func newWLHandler(w io.Writer, op *Operation) *wlHandler {
	return &wlHandler{w: w, mu: &sync.Mutex{}, op: op}
}

func (h *wlHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *wlHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s",
		r.Time.UTC().Format(logTimeLayout), r.Level, h.op.ID, h.op.Name, r.Message)
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	// One write per record keeps lines whole when the file and console share w.
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *wlHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	if h.prefix != "" {
		attrs = []slog.Attr{{Key: strings.TrimSuffix(h.prefix, "."), Value: slog.GroupValue(attrs...)}}
	}
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

func (h *wlHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix, ga)
		}
		return
	}
	fmt.Fprintf(b, "\t%s%s=%s", prefix, a.Key, logValue(a))
}

func logValue(a slog.Attr) string {
	if strings.EqualFold(a.Key, "passphrase") {
		return "***"
	}
	switch v := a.Value.Any().(type) {
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	case time.Time:
		return v.UTC().Format(logTimeLayout)
	}
	return a.Value.String()
}

// newLogger creates a logger that tags every line with op and writes it to
// logDir/wl.log and, when console is not nil, to console as well. The
// returned file must be closed by the caller.
func newLogger(logDir string, op *Operation, console io.Writer) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, "wl.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var w io.Writer = f
	if console != nil {
		w = io.MultiWriter(f, console)
	}
	return slog.New(newWLHandler(w, op)), f, nil
}

// slogAdapter hands a component-tagged *slog.Logger to the wishlist facade
// and the live hub, which only know the wishlist.Logger method set.
type slogAdapter struct {
	l *slog.Logger
}

func newComponentLogger(l *slog.Logger, component string) *slogAdapter {
	return &slogAdapter{l: l.With("component", component)}
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
