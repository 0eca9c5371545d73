package forms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"namesake/cache"
	"namesake/models"
)

const pdfAuthor = "Namesake Collaborative, Inc."

const disclaimer = "Namesake provides information about the legal name " +
	"change process. It does not provide legal advice, and filling out these " +
	"forms does not create an attorney-client relationship. Review each " +
	"document before filing it with the relevant agency."

// TemplateMaxAge is how long a fetched template stays valid on disk before
// it is refetched from the source.
const TemplateMaxAge = 24 * time.Hour

// Definition describes how a user's saved data maps onto one government
// form's named PDF fields. Definitions live in code, not the database.
type Definition struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Code         string   `json:"code"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	SourcePath   string   `json:"source_path"`
	Instructions []string `json:"instructions"`

	// Fields maps saved user data to PDF field name -> value. String values
	// go to text fields, bool values to checkboxes. Zero values (empty
	// string, false) are treated as unmapped and leave the field at its
	// template default.
	Fields func(data models.UserData) map[string]any `json:"-"`
}

var pdfConf = model.NewDefaultConfiguration()

// fetchTemplate returns the template bytes for a definition, from the disk
// cache when fresh, otherwise over HTTP. Responses that are not PDFs are
// rejected outright.
func fetchTemplate(source string) ([]byte, error) {
	if data, ok := cache.ReadTemplate(source, TemplateMaxAge); ok {
		return data, nil
	}

	resp, err := http.Get(source)
	if err != nil {
		return nil, fmt.Errorf("error fetching template %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error fetching template %s: status %d", source, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/pdf") {
		return nil, fmt.Errorf("template %s is not a PDF (content-type %q)", source, contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading template %s: %w", source, err)
	}

	if err := cache.WriteTemplate(source, data); err != nil {
		log.Printf("error caching template %s: %v", source, err)
	}

	return data, nil
}

// pdfcpu form-fill JSON types.
type fillTextField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fillCheckBox struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type fillForm struct {
	TextFields []fillTextField `json:"textfield,omitempty"`
	CheckBoxes []fillCheckBox  `json:"checkbox,omitempty"`
}

type fillDoc struct {
	Forms []fillForm `json:"forms"`
}

// BuildFillJSON turns a definition's field mapping into the JSON pdfcpu's
// form filler consumes. Zero values are dropped so untouched fields keep
// their template defaults.
func BuildFillJSON(def Definition, data models.UserData) ([]byte, error) {
	var form fillForm

	for name, value := range def.Fields(data) {
		switch v := value.(type) {
		case string:
			if v != "" {
				form.TextFields = append(form.TextFields, fillTextField{Name: name, Value: v})
			}
		case bool:
			if v {
				form.CheckBoxes = append(form.CheckBoxes, fillCheckBox{Name: name, Value: true})
			}
		default:
			return nil, fmt.Errorf("field %s has unsupported value type %T", name, value)
		}
	}

	return json.Marshal(fillDoc{Forms: []fillForm{form}})
}

// FillPDF fetches a definition's template and fills its named fields from the
// user's saved data. pdfcpu errors (missing field, unparsable template) are
// logged and returned unchanged; there is no partial fill.
func FillPDF(def Definition, data models.UserData) ([]byte, error) {
	template, err := fetchTemplate(def.SourcePath)
	if err != nil {
		log.Printf("fill %s: %v", def.ID, err)
		return nil, err
	}

	fillJSON, err := BuildFillJSON(def, data)
	if err != nil {
		log.Printf("fill %s: %v", def.ID, err)
		return nil, err
	}

	var filled bytes.Buffer
	if err := api.FillForm(bytes.NewReader(template), bytes.NewReader(fillJSON), &filled, pdfConf); err != nil {
		log.Printf("fill %s: %v", def.ID, err)
		// The cached copy may be stale or corrupt; drop it so the next
		// request refetches from the source.
		if clearErr := cache.ClearTemplate(def.SourcePath); clearErr != nil {
			log.Printf("fill %s: clearing cached template: %v", def.ID, clearErr)
		}
		return nil, err
	}

	var stamped bytes.Buffer
	properties := map[string]string{
		"Title":  def.Title,
		"Author": pdfAuthor,
	}
	if err := api.AddProperties(bytes.NewReader(filled.Bytes()), &stamped, properties, pdfConf); err != nil {
		log.Printf("fill %s: %v", def.ID, err)
		return nil, err
	}

	return stamped.Bytes(), nil
}

// CoverPage renders the packet cover: title, the list of included documents,
// filing instructions, an optional logo, a timestamp and the disclaimer.
// US-Letter, always a single page.
func CoverPage(title string, documents, instructions []string) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor(pdfAuthor, true)
	pdf.AddPage()

	if _, err := os.Stat("assets/logo.png"); err == nil {
		pdf.ImageOptions("assets/logo.png", 486, 36, 90, 0, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetXY(54, 60)
	pdf.MultiCell(420, 28, title, "", "L", false)
	pdf.Ln(12)

	pdf.SetX(54)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, "Prepared "+time.Now().Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(16)

	writeBullets := func(heading string, items []string) {
		pdf.SetX(54)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 18, heading, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, item := range items {
			pdf.SetX(66)
			pdf.MultiCell(440, 16, "•  "+item, "", "L", false)
		}
		pdf.Ln(12)
	}

	writeBullets("Included documents", documents)
	writeBullets("Instructions", instructions)

	pdf.SetXY(54, 684)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(480, 11, disclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DownloadMergedPDF builds one document: cover page first, then each
// definition's filled pages in the order given.
func DownloadMergedPDF(defs []Definition, data models.UserData) ([]byte, error) {
	documents := make([]string, 0, len(defs))
	instructions := []string{}
	for _, def := range defs {
		label := def.Title
		if def.Code != "" {
			label = fmt.Sprintf("%s (%s)", def.Title, def.Code)
		}
		documents = append(documents, label)
		instructions = append(instructions, def.Instructions...)
	}

	cover, err := CoverPage("Your name change documents", documents, instructions)
	if err != nil {
		return nil, err
	}

	readers := []io.ReadSeeker{bytes.NewReader(cover)}
	for _, def := range defs {
		filled, err := FillPDF(def, data)
		if err != nil {
			return nil, err
		}
		readers = append(readers, bytes.NewReader(filled))
	}

	var merged bytes.Buffer
	if err := api.MergeRaw(readers, &merged, false, pdfConf); err != nil {
		log.Printf("merge: %v", err)
		return nil, err
	}

	return merged.Bytes(), nil
}
