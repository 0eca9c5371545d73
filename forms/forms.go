package forms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"gorm.io/gorm"

	"namesake/auth"
	"namesake/models"
)

type FormsModule struct {
	db *gorm.DB
}

func NewFormsModule(db *gorm.DB) *FormsModule {
	return &FormsModule{db: db}
}

func (f *FormsModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(auth.RequireAuth)
	{
		api.GET("/forms", f.listForms)
		api.GET("/forms/:id", f.getForm)
		api.GET("/forms/:id/pages", f.listPages)
		api.GET("/form-pages/:id/fields", f.listFields)

		api.GET("/pdfs", f.listDefinitions)
		api.GET("/pdfs/:id", f.downloadFilled)
		api.POST("/pdfs/download", f.downloadMerged)
	}

	adminAPI := router.Group("/api")
	adminAPI.Use(auth.RequireAuth, auth.RequireRole(f.db, models.RoleAdmin))
	{
		adminAPI.POST("/forms", f.createForm)
		adminAPI.PUT("/forms/:id", f.updateForm)
		adminAPI.DELETE("/forms/:id", f.softDeleteForm)
		adminAPI.POST("/forms/:id/restore", f.restoreForm)
		adminAPI.POST("/forms/:id/parse", f.parseForm)

		adminAPI.POST("/form-pages", f.createPage)
		adminAPI.PUT("/form-pages/:id", f.updatePage)
		adminAPI.DELETE("/form-pages/:id", f.deletePage)

		adminAPI.POST("/form-fields", f.createField)
		adminAPI.PUT("/form-fields/:id", f.updateField)
		adminAPI.DELETE("/form-fields/:id", f.deleteField)
	}
}

func (f *FormsModule) activeForm(id string) (*models.Form, error) {
	var form models.Form
	err := f.db.Where("id = ? AND deleted_at IS NULL", id).First(&form).Error
	return &form, err
}

func (f *FormsModule) listForms(c *gin.Context) {
	var forms []models.Form
	query := f.db.Where("deleted_at IS NULL")
	if jurisdiction := c.Query("jurisdiction"); jurisdiction != "" {
		query = query.Where("jurisdiction = ?", jurisdiction)
	}
	if err := query.Order("title ASC").Find(&forms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading forms"})
		return
	}
	if forms == nil {
		forms = []models.Form{}
	}
	c.JSON(http.StatusOK, forms)
}

func (f *FormsModule) getForm(c *gin.Context) {
	form, err := f.activeForm(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (f *FormsModule) createForm(c *gin.Context) {
	var request struct {
		Title        string `json:"title"`
		Jurisdiction string `json:"jurisdiction"`
		SourcePath   string `json:"source_path"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Title == "" || request.SourcePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title and source path are required"})
		return
	}
	if request.Jurisdiction != "" && !models.ValidJurisdiction(request.Jurisdiction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction"})
		return
	}

	form := models.Form{
		Title:        request.Title,
		Jurisdiction: request.Jurisdiction,
		SourcePath:   request.SourcePath,
	}
	if err := f.db.Create(&form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating form"})
		return
	}

	c.JSON(http.StatusOK, form)
}

func (f *FormsModule) updateForm(c *gin.Context) {
	form, err := f.activeForm(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	var request struct {
		Title        string `json:"title"`
		Jurisdiction string `json:"jurisdiction"`
		SourcePath   string `json:"source_path"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if request.Title != "" {
		form.Title = request.Title
	}
	if request.SourcePath != "" {
		form.SourcePath = request.SourcePath
	}
	if request.Jurisdiction != "" {
		if !models.ValidJurisdiction(request.Jurisdiction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jurisdiction"})
			return
		}
		form.Jurisdiction = request.Jurisdiction
	}
	form.UpdatedAt = time.Now()

	if err := f.db.Save(form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating form"})
		return
	}

	c.JSON(http.StatusOK, form)
}

func (f *FormsModule) softDeleteForm(c *gin.Context) {
	form, err := f.activeForm(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	now := time.Now()
	form.DeletedAt = &now
	if err := f.db.Save(form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting form"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Form deleted"})
}

func (f *FormsModule) restoreForm(c *gin.Context) {
	var form models.Form
	if err := f.db.First(&form, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	form.DeletedAt = nil
	if err := f.db.Save(&form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error restoring form"})
		return
	}

	c.JSON(http.StatusOK, form)
}

func (f *FormsModule) listPages(c *gin.Context) {
	var pages []models.FormPage
	if err := f.db.Where("form_id = ?", c.Param("id")).Order("position ASC").Find(&pages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading pages"})
		return
	}
	if pages == nil {
		pages = []models.FormPage{}
	}
	c.JSON(http.StatusOK, pages)
}

func (f *FormsModule) createPage(c *gin.Context) {
	var request struct {
		FormID   uint   `json:"form_id"`
		Title    string `json:"title"`
		Position int    `json:"position"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := f.activeForm(fmt.Sprint(request.FormID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	page := models.FormPage{FormID: request.FormID, Title: request.Title, Position: request.Position}
	if err := f.db.Create(&page).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating page"})
		return
	}

	c.JSON(http.StatusOK, page)
}

func (f *FormsModule) updatePage(c *gin.Context) {
	var page models.FormPage
	if err := f.db.First(&page, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form page not found"})
		return
	}

	var request struct {
		Title    string `json:"title"`
		Position *int   `json:"position"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if request.Title != "" {
		page.Title = request.Title
	}
	if request.Position != nil {
		page.Position = *request.Position
	}

	if err := f.db.Save(&page).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating page"})
		return
	}

	c.JSON(http.StatusOK, page)
}

func (f *FormsModule) deletePage(c *gin.Context) {
	var page models.FormPage
	if err := f.db.First(&page, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form page not found"})
		return
	}

	if err := f.db.Where("page_id = ?", page.ID).Delete(&models.FormField{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting page"})
		return
	}
	if err := f.db.Delete(&page).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting page"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Page deleted"})
}

func (f *FormsModule) listFields(c *gin.Context) {
	var fields []models.FormField
	if err := f.db.Where("page_id = ?", c.Param("id")).Order("id ASC").Find(&fields).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading fields"})
		return
	}
	if fields == nil {
		fields = []models.FormField{}
	}
	c.JSON(http.StatusOK, fields)
}

func (f *FormsModule) createField(c *gin.Context) {
	var request struct {
		PageID   uint     `json:"page_id"`
		Type     string   `json:"type"`
		Name     string   `json:"name"`
		Label    string   `json:"label"`
		Required bool     `json:"required"`
		Options  []string `json:"options"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Field name is required"})
		return
	}

	var page models.FormPage
	if err := f.db.First(&page, request.PageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form page not found"})
		return
	}
	// Pages of soft-deleted forms cannot grow new fields.
	if _, err := f.activeForm(fmt.Sprint(page.FormID)); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	field := models.FormField{
		PageID:   request.PageID,
		Type:     request.Type,
		Name:     request.Name,
		Label:    request.Label,
		Required: request.Required,
		Options:  request.Options,
	}
	if field.Type == "" {
		field.Type = "text"
	}
	if err := f.db.Create(&field).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating field"})
		return
	}

	c.JSON(http.StatusOK, field)
}

func (f *FormsModule) updateField(c *gin.Context) {
	var field models.FormField
	if err := f.db.First(&field, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form field not found"})
		return
	}

	var request struct {
		Type     string   `json:"type"`
		Name     string   `json:"name"`
		Label    string   `json:"label"`
		Required *bool    `json:"required"`
		Options  []string `json:"options"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if request.Type != "" {
		field.Type = request.Type
	}
	if request.Name != "" {
		field.Name = request.Name
	}
	if request.Label != "" {
		field.Label = request.Label
	}
	if request.Required != nil {
		field.Required = *request.Required
	}
	if request.Options != nil {
		field.Options = request.Options
	}

	if err := f.db.Save(&field).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating field"})
		return
	}

	c.JSON(http.StatusOK, field)
}

func (f *FormsModule) deleteField(c *gin.Context) {
	result := f.db.Where("id = ?", c.Param("id")).Delete(&models.FormField{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting field"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form field not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Field deleted"})
}

// Shapes produced by pdfcpu's form export.
type exportedField struct {
	Pages []int  `json:"pages"`
	Name  string `json:"name"`
}

type exportedForm struct {
	TextFields []exportedField `json:"textfield"`
	CheckBoxes []exportedField `json:"checkbox"`
	DateFields []exportedField `json:"datefield"`
	ComboBoxes []exportedField `json:"combobox"`
	ListBoxes  []exportedField `json:"listbox"`
}

type exportedDoc struct {
	Forms []exportedForm `json:"forms"`
}

// parseForm inspects an uploaded template (or the form's source, when no file
// is attached), replaces the form's page/field hierarchy with what the
// template actually exposes, and returns the result synchronously.
func (f *FormsModule) parseForm(c *gin.Context) {
	form, err := f.activeForm(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Form not found"})
		return
	}

	var content []byte
	if file, err := c.FormFile("file"); err == nil {
		opened, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading upload"})
			return
		}
		defer opened.Close()
		content, err = io.ReadAll(opened)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error reading upload"})
			return
		}
	} else {
		content, err = fetchTemplate(form.SourcePath)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template failed to parse as a PDF"})
		return
	}
	pageCount := reader.NumPage()

	var exportBuf bytes.Buffer
	if err := pdfapi.ExportFormJSON(bytes.NewReader(content), &exportBuf, form.SourcePath, pdfConf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template has no fillable form fields"})
		return
	}

	var doc exportedDoc
	if err := json.Unmarshal(exportBuf.Bytes(), &doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error decoding form fields"})
		return
	}

	// Rebuild the stored hierarchy from scratch.
	var oldPages []models.FormPage
	f.db.Where("form_id = ?", form.ID).Find(&oldPages)
	for _, old := range oldPages {
		f.db.Where("page_id = ?", old.ID).Delete(&models.FormField{})
	}
	f.db.Where("form_id = ?", form.ID).Delete(&models.FormPage{})

	pagesByNumber := map[int]models.FormPage{}
	pageFor := func(number int) (models.FormPage, error) {
		if page, ok := pagesByNumber[number]; ok {
			return page, nil
		}
		page := models.FormPage{
			FormID:   form.ID,
			Title:    fmt.Sprintf("Page %d", number),
			Position: number,
		}
		if err := f.db.Create(&page).Error; err != nil {
			return page, err
		}
		pagesByNumber[number] = page
		return page, nil
	}

	fieldCount := 0
	addFields := func(fields []exportedField, fieldType string) error {
		for _, exported := range fields {
			number := 1
			if len(exported.Pages) > 0 {
				number = exported.Pages[0]
			}
			page, err := pageFor(number)
			if err != nil {
				return err
			}
			field := models.FormField{
				PageID: page.ID,
				Type:   fieldType,
				Name:   exported.Name,
				Label:  exported.Name,
			}
			if err := f.db.Create(&field).Error; err != nil {
				return err
			}
			fieldCount++
		}
		return nil
	}

	for _, exported := range doc.Forms {
		if err := addFields(exported.TextFields, "text"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving fields"})
			return
		}
		if err := addFields(exported.CheckBoxes, "checkbox"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving fields"})
			return
		}
		if err := addFields(exported.DateFields, "date"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving fields"})
			return
		}
		if err := addFields(exported.ComboBoxes, "select"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving fields"})
			return
		}
		if err := addFields(exported.ListBoxes, "select"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving fields"})
			return
		}
	}

	form.PageCount = pageCount
	form.UpdatedAt = time.Now()
	if err := f.db.Save(form).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating form"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"form":        form,
		"page_count":  pageCount,
		"field_count": fieldCount,
	})
}

func (f *FormsModule) listDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, Definitions())
}

func (f *FormsModule) userData(c *gin.Context) (models.UserData, bool) {
	var data models.UserData
	if err := f.db.Where("user_id = ?", c.GetInt("user_id")).First(&data).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No saved data to fill forms with"})
		return data, false
	}
	return data, true
}

func (f *FormsModule) downloadFilled(c *gin.Context) {
	def, ok := LookupDefinition(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF definition not found"})
		return
	}

	data, ok := f.userData(c)
	if !ok {
		return
	}

	filled, err := FillPDF(def, data)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", def.ID))
	c.Data(http.StatusOK, "application/pdf", filled)
}

func (f *FormsModule) downloadMerged(c *gin.Context) {
	var request struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || len(request.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one PDF id is required"})
		return
	}

	defs := make([]Definition, 0, len(request.IDs))
	for _, id := range request.IDs {
		def, ok := LookupDefinition(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("PDF definition %s not found", id)})
			return
		}
		defs = append(defs, def)
	}

	data, ok := f.userData(c)
	if !ok {
		return
	}

	merged, err := DownloadMergedPDF(defs, data)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=namesake-documents.pdf")
	c.Data(http.StatusOK, "application/pdf", merged)
}
