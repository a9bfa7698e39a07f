package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/delivery"
)

func TestSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer re_test" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"49a3999c"}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "re_test", BaseURL: srv.URL}, logger.Discard())
	id, err := c.Send(context.Background(), &delivery.Email{
		From:    "VoxCliente <actas@example.com>",
		To:      []string{"ana@example.com"},
		Subject: "Acta de Reunión - a.mp3",
		HTML:    "<p>hola</p>",
		ReplyTo: "soporte@example.com",
		Attachments: []delivery.Attachment{
			{Filename: "Acta_Reunion_a_mp3.docx", Content: "eA==", ContentType: "application/x"},
		},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "49a3999c" {
		t.Errorf("id = %q", id)
	}

	if got["subject"] != "Acta de Reunión - a.mp3" || got["reply_to"] != "soporte@example.com" {
		t.Errorf("payload = %v", got)
	}
	atts, _ := got["attachments"].([]any)
	if len(atts) != 1 {
		t.Fatalf("attachments = %v", got["attachments"])
	}
	att, _ := atts[0].(map[string]any)
	if att["filename"] != "Acta_Reunion_a_mp3.docx" || att["content"] != "eA==" {
		t.Errorf("attachment = %v", att)
	}
}

func TestSendRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, logger.Discard())
	_, err := c.Send(context.Background(), &delivery.Email{To: []string{"a@b.co"}})
	if err == nil || !strings.Contains(err.Error(), "Invalid from field") {
		t.Errorf("Send() error = %v", err)
	}
}
