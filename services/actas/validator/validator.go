package validator

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/voxcliente/backend/services/actas/consts"
)

var (
	ErrEmailRequired     = errors.New("email requerido")
	ErrInvalidEmail      = errors.New("formato de email inválido")
	ErrFilenameRequired  = errors.New("nombre de archivo requerido")
	ErrFileTooLarge      = errors.New("archivo muy grande")
	ErrUnsupportedFormat = errors.New("formato de audio no permitido")
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	unsafeFileRun = regexp.MustCompile(`[^\w\-.]`)
)

const maxSanitizedLen = 100

type Config struct {
	MaxFileSizeMB int64
	// EnforceFormats turns on extension filtering. An empty AllowedFormats
	// disables filtering as well.
	EnforceFormats bool
	AllowedFormats []string
}

type Validator struct {
	maxBytes int64
	maxMB    int64
	allowed  map[string]struct{}
}

func New(cfg Config) *Validator {
	v := &Validator{
		maxBytes: cfg.MaxFileSizeMB * consts.BytesPerMB,
		maxMB:    cfg.MaxFileSizeMB,
	}
	if cfg.EnforceFormats && len(cfg.AllowedFormats) > 0 {
		v.allowed = make(map[string]struct{}, len(cfg.AllowedFormats))
		for _, f := range cfg.AllowedFormats {
			f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
			if f != "" {
				v.allowed[f] = struct{}{}
			}
		}
	}
	return v
}

func (v *Validator) ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func (v *Validator) ValidateAudio(filename string, sizeBytes int64) error {
	if filename == "" {
		return ErrFilenameRequired
	}
	if sizeBytes > v.maxBytes {
		return fmt.Errorf("%w: máximo %dMB", ErrFileTooLarge, v.maxMB)
	}
	if v.allowed != nil {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
		if _, ok := v.allowed[ext]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
		}
	}
	return nil
}

// MaxBytes is the configured upload limit.
func (v *Validator) MaxBytes() int64 {
	return v.maxBytes
}

// SanitizeFilename replaces unsafe characters and caps the length while
// keeping the extension.
func SanitizeFilename(name string) string {
	if name == "" {
		return "audio_file"
	}

	sanitized := unsafeFileRun.ReplaceAllString(name, "_")
	if len(sanitized) <= maxSanitizedLen {
		return sanitized
	}

	base, ext := sanitized, ""
	if i := strings.LastIndex(sanitized, "."); i >= 0 {
		base, ext = sanitized[:i], sanitized[i:]
	}
	if len(base) > maxSanitizedLen-5 {
		base = base[:maxSanitizedLen-5]
	}
	return base + ext
}
