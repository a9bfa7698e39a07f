package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

const timestampFmt = "02/01/2006 a las 15:04"

type (
	Attachment struct {
		Filename    string `json:"filename"`
		Content     string `json:"content"`
		ContentType string `json:"content_type"`
	}

	Email struct {
		From        string       `json:"from"`
		To          []string     `json:"to"`
		Subject     string       `json:"subject"`
		HTML        string       `json:"html"`
		Text        string       `json:"text,omitempty"`
		ReplyTo     string       `json:"reply_to,omitempty"`
		Attachments []Attachment `json:"attachments,omitempty"`
	}

	// Message is what the pipeline hands over for delivery. ActaPath is
	// required, TranscriptPath is attached when set.
	Message struct {
		To             string
		Filename       string
		Acta           entity.Acta
		ActaPath       string
		TranscriptPath string
	}

	Config struct {
		FromEmail string
		FromName  string
		ReplyTo   string
	}
)

// Sender hands a composed e-mail to the provider and returns its message id.
type Sender interface {
	Send(ctx context.Context, email *Email) (string, error)
}

type TemplateSource interface {
	Email() *template.Template
}

type emailData struct {
	Filename  string
	Timestamp string
	Summary   entity.ExecutiveSummary
	Acta      string
}

type Adapter struct {
	sender    Sender
	templates TemplateSource
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
}

func New(sender Sender, templates TemplateSource, cfg Config, log *slog.Logger) *Adapter {
	return &Adapter{
		sender:    sender,
		templates: templates,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// Send composes and sends the acta e-mail. It reports success only; every
// failure is logged.
func (a *Adapter) Send(ctx context.Context, msg Message) bool {
	log := a.log.With(slog.String("to", msg.To), slog.String("filename", msg.Filename))

	email, err := a.Compose(msg)
	if err != nil {
		log.Error("failed to compose email", slog.String("error", err.Error()))
		return false
	}

	id, err := a.sender.Send(ctx, email)
	if err != nil {
		log.Error("failed to send email", slog.String("error", err.Error()))
		return false
	}

	log.Info("email sent",
		slog.String("message_id", id),
		slog.Int("attachments", len(email.Attachments)))
	return true
}

func (a *Adapter) Compose(msg Message) (*Email, error) {
	if msg.ActaPath == "" {
		return nil, fmt.Errorf("acta document is required")
	}

	html, err := a.renderHTML(msg)
	if err != nil {
		return nil, err
	}

	text, err := PlainText(html)
	if err != nil {
		a.log.Warn("failed to derive plain text part", slog.String("error", err.Error()))
		text = ""
	}

	acta, err := attach(msg.ActaPath, AttachmentName(consts.KindActa, msg.Filename))
	if err != nil {
		return nil, err
	}
	attachments := []Attachment{acta}

	if msg.TranscriptPath != "" {
		tr, err := attach(msg.TranscriptPath, AttachmentName(consts.KindTranscript, msg.Filename))
		if err != nil {
			a.log.Warn("skipping transcript attachment", slog.String("error", err.Error()))
		} else {
			attachments = append(attachments, tr)
		}
	}

	return &Email{
		From:        fmt.Sprintf("%s <%s>", a.cfg.FromName, a.cfg.FromEmail),
		To:          []string{msg.To},
		Subject:     "Acta de Reunión - " + msg.Filename,
		HTML:        html,
		Text:        text,
		ReplyTo:     a.cfg.ReplyTo,
		Attachments: attachments,
	}, nil
}

func (a *Adapter) renderHTML(msg Message) (string, error) {
	tmpl := a.templates.Email()
	if tmpl == nil {
		return "", fmt.Errorf("email template is not loaded")
	}

	data := emailData{
		Filename:  msg.Filename,
		Timestamp: a.now().Format(timestampFmt),
		Summary:   WithDefaults(msg.Acta.ResumenEjecutivo),
		Acta:      msg.Acta.Acta,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

// WithDefaults fills empty summary fields with the display placeholders.
func WithDefaults(s entity.ExecutiveSummary) entity.ExecutiveSummary {
	if strings.TrimSpace(s.Objetivo) == "" {
		s.Objetivo = "No especificado"
	}
	if strings.TrimSpace(s.Acuerdos) == "" {
		s.Acuerdos = "No especificados"
	}
	if strings.TrimSpace(s.ProximosPasos) == "" {
		s.ProximosPasos = "No especificados"
	}
	return s
}

// AttachmentName builds "<Label>_<filename with dots replaced>.docx".
func AttachmentName(kind consts.Kind, filename string) string {
	return kind.Label() + "_" + strings.ReplaceAll(filename, ".", "_") + consts.DocxExt
}

// PlainText extracts a readable text alternative from an HTML body.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("head, script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, li, tr, hr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var out []string
	blank := true
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, line)
		blank = false
	}

	return strings.TrimSpace(strings.Join(out, "\n")), nil
}

func attach(path, name string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment %s: %w", name, err)
	}
	return Attachment{
		Filename:    name,
		Content:     base64.StdEncoding.EncodeToString(data),
		ContentType: consts.DocxMIMEType,
	}, nil
}
