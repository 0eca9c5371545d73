package forms

import (
	"fmt"
	"strings"

	"namesake/models"
)

// The definition registry. Order here is the order documents appear in a
// merged packet.
var definitions = []Definition{
	{
		ID:           "ma-cjp27",
		Title:        "Petition to Change Name of Adult",
		Code:         "CJP 27",
		Jurisdiction: "MA",
		SourcePath:   "https://www.mass.gov/doc/petition-to-change-name-of-adult-cjp-27/download",
		Instructions: []string{
			"File with the Probate and Family Court in the county where you live.",
			"Bring a certified copy of your birth certificate.",
		},
		Fields: func(d models.UserData) map[string]any {
			return map[string]any{
				"currentFirstName":  d.OldFirstName,
				"currentMiddleName": d.OldMiddleName,
				"currentLastName":   d.OldLastName,
				"newFirstName":      d.NewFirstName,
				"newMiddleName":     d.NewMiddleName,
				"newLastName":       d.NewLastName,
				"dateOfBirth":       d.DateOfBirth,
				"placeOfBirth":      d.PlaceOfBirth,
				"streetAddress":     d.StreetAddress,
				"city":              d.City,
				"state":             d.State,
				"zip":               d.Zip,
				"county":            d.County,
				"phone":             d.Phone,
				"email":             d.Email,
				"reasonForChange":   d.ReasonForChange,
			}
		},
	},
	{
		ID:         "ss5",
		Title:      "Application for a Social Security Card",
		Code:       "SS-5",
		SourcePath: "https://www.ssa.gov/forms/ss-5.pdf",
		Instructions: []string{
			"Mail or bring the application to your local Social Security office with your court order.",
			"There is no fee to update your Social Security card.",
		},
		Fields: func(d models.UserData) map[string]any {
			return map[string]any{
				"firstName":         d.NewFirstName,
				"middleName":        d.NewMiddleName,
				"lastName":          d.NewLastName,
				"firstNameAtBirth":  d.OldFirstName,
				"middleNameAtBirth": d.OldMiddleName,
				"lastNameAtBirth":   d.OldLastName,
				"dateOfBirth":       d.DateOfBirth,
				"placeOfBirth":      d.PlaceOfBirth,
				"mailingAddress":    d.StreetAddress,
				"city":              d.City,
				"state":             d.State,
				"zip":               d.Zip,
				"phone":             d.Phone,
				"isNameChange":      true,
			}
		},
	},
	{
		ID:           "ma-rmv-amend",
		Title:        "License or ID Amendment Form",
		Code:         "LIC100",
		Jurisdiction: "MA",
		SourcePath:   "https://www.mass.gov/doc/license-and-id-card-application-lic100/download",
		Instructions: []string{
			"Bring the completed form and your court order to an RMV service center.",
		},
		Fields: func(d models.UserData) map[string]any {
			return map[string]any{
				"formerName": strings.TrimSpace(fmt.Sprintf("%s %s %s", d.OldFirstName, d.OldMiddleName, d.OldLastName)),
				"firstName":  d.NewFirstName,
				"middleName": d.NewMiddleName,
				"lastName":   d.NewLastName,
				"dob":        d.DateOfBirth,
				"address":    d.StreetAddress,
				"city":       d.City,
				"state":      d.State,
				"zip":        d.Zip,
				"nameChange": true,
			}
		},
	},
}

// LookupDefinition finds a registered definition by id.
func LookupDefinition(id string) (Definition, bool) {
	for _, def := range definitions {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// Definitions returns the registry in packet order.
func Definitions() []Definition {
	return definitions
}
