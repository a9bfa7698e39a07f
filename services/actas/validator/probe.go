package validator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/youpy/go-wav"
)

var ErrProbeUnsupported = errors.New("duration probe only supports wav")

// ProbeDuration reads the header of a WAV file and returns its playback
// length. Other formats return ErrProbeUnsupported.
func ProbeDuration(path, filename string) (time.Duration, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".wav") {
		return 0, ErrProbeUnsupported
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	d, err := wav.NewReader(f).Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read wav header: %w", err)
	}
	return d, nil
}
