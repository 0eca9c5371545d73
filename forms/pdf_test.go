package forms

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"

	"namesake/cache"
	"namesake/models"
)

// chdirTemp isolates tests that touch the on-disk template cache.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestBuildFillJSON(t *testing.T) {
	def, ok := LookupDefinition("ma-cjp27")
	assert.True(t, ok)

	data := models.UserData{
		NewFirstName: "Eva",
		NewLastName:  "Green",
		OldFirstName: "Evan",
		City:         "Boston",
	}

	raw, err := BuildFillJSON(def, data)
	assert.NoError(t, err)

	var doc fillDoc
	assert.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Forms, 1)

	fields := map[string]string{}
	for _, f := range doc.Forms[0].TextFields {
		fields[f.Name] = f.Value
	}
	assert.Equal(t, "Eva", fields["newFirstName"])
	assert.Equal(t, "Green", fields["newLastName"])
	assert.Equal(t, "Evan", fields["currentFirstName"])
	assert.Equal(t, "Boston", fields["city"])

	// Unset data stays out of the fill entirely.
	_, present := fields["newMiddleName"]
	assert.False(t, present)
}

func TestBuildFillJSON_Checkboxes(t *testing.T) {
	def, ok := LookupDefinition("ss5")
	assert.True(t, ok)

	raw, err := BuildFillJSON(def, models.UserData{NewFirstName: "Eva"})
	assert.NoError(t, err)

	var doc fillDoc
	assert.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Forms, 1)

	boxes := map[string]bool{}
	for _, b := range doc.Forms[0].CheckBoxes {
		boxes[b.Name] = b.Value
	}
	assert.True(t, boxes["isNameChange"])
}

func TestBuildFillJSON_EmptyData(t *testing.T) {
	def, _ := LookupDefinition("ma-cjp27")

	raw, err := BuildFillJSON(def, models.UserData{})
	assert.NoError(t, err)

	var doc fillDoc
	assert.NoError(t, json.Unmarshal(raw, &doc))
	assert.Len(t, doc.Forms, 1)
	assert.Empty(t, doc.Forms[0].TextFields)
}

func TestBuildFillJSON_UnsupportedType(t *testing.T) {
	def := Definition{
		ID: "bad",
		Fields: func(models.UserData) map[string]any {
			return map[string]any{"count": 7}
		},
	}

	_, err := BuildFillJSON(def, models.UserData{})
	assert.Error(t, err)
}

func TestLookupDefinition(t *testing.T) {
	def, ok := LookupDefinition("ss5")
	assert.True(t, ok)
	assert.Equal(t, "SS-5", def.Code)

	_, ok = LookupDefinition("nonexistent")
	assert.False(t, ok)
}

func TestDefinitions_HaveSourcesAndFields(t *testing.T) {
	defs := Definitions()
	assert.NotEmpty(t, defs)

	for _, def := range defs {
		assert.NotEmpty(t, def.ID)
		assert.NotEmpty(t, def.Title)
		assert.NotEmpty(t, def.SourcePath)
		assert.NotNil(t, def.Fields)
	}
}

func TestCoverPage(t *testing.T) {
	pdf, err := CoverPage("Name Change Packet",
		[]string{"Petition to Change Name of Adult (CJP 27)"},
		[]string{"File with the Probate and Family Court."})
	assert.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestFillPDF_RoundTrip(t *testing.T) {
	fixture, err := os.ReadFile("testdata/fillable.pdf")
	assert.NoError(t, err)
	chdirTemp(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(fixture)
	}))
	defer server.Close()

	def := Definition{
		ID:         "fixture",
		Title:      "Fixture Form",
		SourcePath: server.URL + "/fillable.pdf",
		Fields: func(d models.UserData) map[string]any {
			return map[string]any{
				"newFirstName": d.NewFirstName,
				"newLastName":  d.NewLastName,
			}
		},
	}

	filled, err := FillPDF(def, models.UserData{NewFirstName: "Eva"})
	assert.NoError(t, err)
	assert.NotEmpty(t, filled)

	// Read the field back out of the filled document.
	var exportBuf bytes.Buffer
	assert.NoError(t, pdfapi.ExportFormJSON(bytes.NewReader(filled), &exportBuf, "fillable.pdf", pdfConf))

	var doc fillDoc
	assert.NoError(t, json.Unmarshal(exportBuf.Bytes(), &doc))
	assert.Len(t, doc.Forms, 1)

	values := map[string]string{}
	for _, f := range doc.Forms[0].TextFields {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "Eva", values["newFirstName"])
}

func TestFillPDF_ClearsCachedTemplateOnFailure(t *testing.T) {
	chdirTemp(t)

	source := "https://example.com/corrupt.pdf"
	assert.NoError(t, cache.WriteTemplate(source, []byte("%PDF-1.7 truncated garbage")))

	def := Definition{
		ID:         "corrupt",
		Title:      "Corrupt Form",
		SourcePath: source,
		Fields: func(d models.UserData) map[string]any {
			return map[string]any{"newFirstName": d.NewFirstName}
		},
	}

	_, err := FillPDF(def, models.UserData{NewFirstName: "Eva"})
	assert.Error(t, err)

	_, ok := cache.ReadTemplate(source, TemplateMaxAge)
	assert.False(t, ok)
}

func TestFetchTemplate_NotAPDF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not a pdf</html>"))
	}))
	defer server.Close()

	_, err := fetchTemplate(server.URL + "/form.pdf")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a PDF")
}

func TestFetchTemplate_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := fetchTemplate(server.URL + "/missing.pdf")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
