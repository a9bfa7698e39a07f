package assemblyai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/transcription"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.mp3")
	if err := os.WriteFile(path, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	var polls atomic.Int32
	var submitted transcriptRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
			body, _ := io.ReadAll(r.Body)
			if string(body) != "audio-bytes" {
				t.Errorf("upload body = %q", body)
			}
			w.Write([]byte(`{"upload_url":"https://cdn.example/u1"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			if err := json.NewDecoder(r.Body).Decode(&submitted); err != nil {
				t.Errorf("decode submit: %v", err)
			}
			w.Write([]byte(`{"id":"tr_1","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/tr_1":
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"id":"tr_1","status":"processing"}`))
				return
			}
			w.Write([]byte(`{"id":"tr_1","status":"completed","text":"hola adiós","audio_duration":180,"confidence":0.93,
				"utterances":[{"speaker":"A","text":"hola"},{"speaker":"B","text":"adiós"}]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", BaseURL: srv.URL, PollInterval: 5 * time.Millisecond, Timeout: 5 * time.Second},
		logger.NewDumper(t.TempDir(), false), logger.Discard())

	res, err := c.Transcribe(context.Background(), writeAudio(t), transcription.Options{
		Language:      "es",
		SpeakerLabels: true,
		Punctuate:     true,
		FormatText:    true,
		Spelling:      []transcription.Spelling{{From: []string{"laib"}, To: "LAIVE"}},
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if submitted.AudioURL != "https://cdn.example/u1" || submitted.LanguageCode != "es" || !submitted.SpeakerLabels {
		t.Errorf("submitted = %+v", submitted)
	}
	if len(submitted.CustomSpelling) != 1 || submitted.CustomSpelling[0].To != "LAIVE" {
		t.Errorf("custom spelling = %+v", submitted.CustomSpelling)
	}
	if res.ID != "tr_1" || res.DurationSeconds != 180 || res.Confidence != 0.93 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Segments) != 2 || res.Segments[1].Speaker != "B" {
		t.Errorf("segments = %+v", res.Segments)
	}
}

func TestTranscribeErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/upload":
			w.Write([]byte(`{"upload_url":"u"}`))
		case "/v2/transcript":
			w.Write([]byte(`{"id":"tr_2","status":"queued"}`))
		default:
			w.Write([]byte(`{"id":"tr_2","status":"error","error":"audio too short"}`))
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, PollInterval: time.Millisecond}, nil, logger.Discard())
	res, err := c.Transcribe(context.Background(), writeAudio(t), transcription.Options{})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Status != transcription.StatusError || res.Error != "audio too short" {
		t.Errorf("result = %+v", res)
	}
}

func TestTranscribeHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil, logger.Discard())
	if _, err := c.Transcribe(context.Background(), writeAudio(t), transcription.Options{}); err == nil {
		t.Error("Transcribe() expected error on 401")
	}
}

func TestTranscribeTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/upload":
			w.Write([]byte(`{"upload_url":"u"}`))
		default:
			w.Write([]byte(`{"id":"tr_3","status":"processing"}`))
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, PollInterval: 10 * time.Millisecond, Timeout: 50 * time.Millisecond}, nil, logger.Discard())
	if _, err := c.Transcribe(context.Background(), writeAudio(t), transcription.Options{}); err == nil {
		t.Error("Transcribe() expected timeout error")
	}
}
