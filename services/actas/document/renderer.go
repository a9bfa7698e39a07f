package document

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"

	"github.com/voxcliente/backend/services/actas/consts"
	"github.com/voxcliente/backend/services/actas/entity"
)

const (
	fontName     = "Calibri"
	fontSize     = 11
	footerSize   = 8
	inchTwips    = 1440
	timestampFmt = "02/01/2006 a las 15:04"

	Attribution = "Generado por VoxCliente – Actas profesionales al instante con IA"

	transcriptNote = "Esta transcripción contiene el texto completo tal como fue procesado por el servicio de transcripción, incluyendo la identificación de hablantes."
)

type Renderer struct {
	now func() time.Time
	log *slog.Logger
}

func New(log *slog.Logger) *Renderer {
	return &Renderer{now: time.Now, log: log}
}

// RenderActa writes the acta document into dir and returns its path.
func (r *Renderer) RenderActa(acta entity.Acta, filename, dir string) (string, error) {
	doc, err := r.newDocument("ACTA DE REUNIÓN", filename)
	if err != nil {
		return "", err
	}

	if _, err := doc.AddHeading("RESUMEN EJECUTIVO", 1); err != nil {
		return "", fmt.Errorf("failed to add heading: %w", err)
	}
	addLabeled(doc, "Objetivo: ", orDefault(acta.ResumenEjecutivo.Objetivo, "No especificado"))
	addLabeled(doc, "Acuerdos: ", orDefault(acta.ResumenEjecutivo.Acuerdos, "No especificados"))
	addLabeled(doc, "Próximos Pasos: ", orDefault(acta.ResumenEjecutivo.ProximosPasos, "No especificados"))
	doc.AddParagraph("")

	if strings.TrimSpace(acta.Acta) != "" {
		if _, err := doc.AddHeading("ACTA COMPLETA", 1); err != nil {
			return "", fmt.Errorf("failed to add heading: %w", err)
		}
		for _, b := range ParseActa(acta.Acta) {
			if err := addBlock(doc, b); err != nil {
				return "", err
			}
		}
	}

	return r.finish(doc, dir, consts.KindActa)
}

// RenderTranscript writes the transcript line by line without markup.
func (r *Renderer) RenderTranscript(transcript, filename, dir string) (string, error) {
	doc, err := r.newDocument("TRANSCRIPCIÓN COMPLETA", filename)
	if err != nil {
		return "", err
	}

	addPlain(doc.AddParagraph(""), transcriptNote)
	doc.AddParagraph("")

	if _, err := doc.AddHeading("TRANSCRIPCIÓN", 1); err != nil {
		return "", fmt.Errorf("failed to add heading: %w", err)
	}
	for _, line := range strings.Split(transcript, "\n") {
		addPlain(doc.AddParagraph(""), strings.TrimSpace(line))
	}

	return r.finish(doc, dir, consts.KindTranscript)
}

func (r *Renderer) newDocument(title, filename string) (*docx.RootDoc, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	setMargins(doc, inchTwips)

	heading, err := doc.AddHeading(title, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to add title: %w", err)
	}
	heading.Justification(stypes.JustificationCenter)

	addPlain(doc.AddParagraph(""), "Archivo procesado: "+filename)
	addPlain(doc.AddParagraph(""), "Fecha de generación: "+r.now().Format(timestampFmt))
	doc.AddParagraph("")

	return doc, nil
}

func (r *Renderer) finish(doc *docx.RootDoc, dir string, kind consts.Kind) (string, error) {
	doc.AddParagraph("")
	doc.AddParagraph("")
	footer := doc.AddParagraph("")
	footer.Justification(stypes.JustificationCenter)
	footer.AddText(Attribution).Font(fontName).Size(footerSize).Color("808080")

	f, err := os.CreateTemp(dir, string(kind)+"-*"+consts.DocxExt)
	if err != nil {
		return "", fmt.Errorf("failed to reserve output file: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := doc.SaveTo(path); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save %s document: %w", kind, err)
	}

	r.log.Debug("document rendered",
		slog.String("kind", string(kind)),
		slog.String("path", path))
	return path, nil
}

func addBlock(doc *docx.RootDoc, b Block) error {
	switch b.Kind {
	case BlockHeading:
		if _, err := doc.AddHeading(b.Text, 2); err != nil {
			return fmt.Errorf("failed to add heading: %w", err)
		}
	case BlockSubheading:
		if _, err := doc.AddHeading(b.Text, 3); err != nil {
			return fmt.Errorf("failed to add subheading: %w", err)
		}
	case BlockBullet:
		p := doc.AddParagraph("")
		p.Style("List Bullet")
		addPlain(p, b.Text)
	case BlockBreak:
		doc.AddParagraph("")
	default:
		addPlain(doc.AddParagraph(""), b.Text)
	}
	return nil
}

func addPlain(p *docx.Paragraph, text string) {
	if text == "" {
		return
	}
	p.AddText(text).Font(fontName).Size(fontSize)
}

func addLabeled(doc *docx.RootDoc, label, value string) {
	p := doc.AddParagraph("")
	p.AddText(label).Font(fontName).Size(fontSize).Bold(true)
	p.AddText(value).Font(fontName).Size(fontSize)
}

func setMargins(doc *docx.RootDoc, twips int) {
	if doc.Document == nil || doc.Document.Body == nil {
		return
	}
	body := doc.Document.Body
	if body.SectPr == nil {
		body.SectPr = &ctypes.SectionProp{}
	}
	if body.SectPr.PageMargin == nil {
		body.SectPr.PageMargin = &ctypes.PageMargin{}
	}
	m := body.SectPr.PageMargin
	top, right, bottom, left := twips, twips, twips, twips
	m.Top, m.Right, m.Bottom, m.Left = &top, &right, &bottom, &left
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
