package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Dumper persists raw provider responses to disk when debug mode is on.
type Dumper struct {
	dir     string
	enabled bool
	now     func() time.Time
}

func NewDumper(dir string, enabled bool) *Dumper {
	return &Dumper{dir: dir, enabled: enabled, now: time.Now}
}

// Dump writes body to <dir>/<timestamp>_<provider>_response.txt.
// Errors are logged and swallowed.
func (d *Dumper) Dump(ctx context.Context, provider, subject string, body []byte) {
	if d == nil || !d.enabled {
		return
	}
	log := FromContext(ctx)

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		log.Warn("failed to create dump dir", slog.String("dir", d.dir), slog.String("error", err.Error()))
		return
	}

	now := d.now()
	name := fmt.Sprintf("%s_%s_response.txt", now.Format("20060102_150405.000000"), provider)
	path := filepath.Join(d.dir, name)

	content := fmt.Sprintf("=== %s RESPONSE ===\nTimestamp: %s\nSubject: %s\n\n%s\n=== END ===\n",
		provider, now.Format(time.RFC3339), subject, body)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Warn("failed to write provider dump", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	log.Debug("provider response dumped", slog.String("path", path))
}
