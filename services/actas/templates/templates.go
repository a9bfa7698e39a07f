package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed defaults/acta_prompt.txt defaults/email.html
var defaults embed.FS

const (
	defaultPrompt = "defaults/acta_prompt.txt"
	defaultEmail  = "defaults/email.html"
)

// Store holds the summarization prompt and the e-mail template. Files
// configured on disk override the embedded defaults.
type Store struct {
	promptPath string
	emailPath  string
	log        *slog.Logger

	mu     sync.RWMutex
	prompt string
	email  *template.Template
}

func New(promptPath, emailPath string, log *slog.Logger) (*Store, error) {
	s := &Store{
		promptPath: promptPath,
		emailPath:  emailPath,
		log:        log,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

func (s *Store) Email() *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

// Reload re-reads both sources. On error the previous versions stay active.
func (s *Store) Reload() error {
	prompt, err := read(s.promptPath, defaultPrompt)
	if err != nil {
		return fmt.Errorf("failed to load prompt: %w", err)
	}

	raw, err := read(s.emailPath, defaultEmail)
	if err != nil {
		return fmt.Errorf("failed to load email template: %w", err)
	}
	email, err := template.New("email").Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse email template: %w", err)
	}

	s.mu.Lock()
	s.prompt = prompt
	s.email = email
	s.mu.Unlock()

	s.log.Debug("templates loaded",
		slog.String("prompt", source(s.promptPath)),
		slog.String("email", source(s.emailPath)))
	return nil
}

// Watch reloads the store whenever a configured file changes. It blocks
// until ctx is done. Directories are watched rather than files so that
// editors replacing the file by rename are picked up.
func (s *Store) Watch(ctx context.Context) error {
	targets := make(map[string]struct{})
	for _, p := range []string{s.promptPath, s.emailPath} {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = struct{}{}
	}
	if len(targets) == 0 {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	dirs := make(map[string]struct{})
	for p := range targets {
		dir := filepath.Dir(p)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	s.log.Info("watching templates", slog.Int("files", len(targets)))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[name]; !ok {
				continue
			}
			if err := s.Reload(); err != nil {
				s.log.Warn("template reload failed, keeping previous version",
					slog.String("file", name),
					slog.String("error", err.Error()))
				continue
			}
			s.log.Info("templates reloaded", slog.String("file", name))

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.log.Error("template watcher error", slog.String("error", err.Error()))
		}
	}
}

func read(path, fallback string) (string, error) {
	if path == "" {
		data, err := defaults.ReadFile(fallback)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func source(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
