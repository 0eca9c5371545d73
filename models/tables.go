package models

import "time"

// Roles are ordered: admin can do everything an editor can, and so on.
const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// UserQuest statuses.
const (
	StatusNotStarted = "notStarted"
	StatusInProgress = "inProgress"
	StatusComplete   = "complete"
)

// Quest categories. The first five are "core" categories: every user gets a
// placeholder for each until they start a real quest in that category.
const (
	CategoryCourtOrder       = "courtOrder"
	CategorySocialSecurity   = "socialSecurity"
	CategoryStateID          = "stateId"
	CategoryBirthCertificate = "birthCertificate"
	CategoryPassport         = "passport"
	CategoryEducation        = "education"
	CategoryEmployment       = "employment"
	CategoryFinance          = "finance"
	CategoryGaming           = "gaming"
	CategoryGovernment       = "government"
	CategoryHealthcare       = "healthcare"
	CategoryHousing          = "housing"
	CategoryPersonal         = "personal"
	CategorySocial           = "social"
	CategoryTravel           = "travel"
)

var CoreCategories = []string{
	CategoryCourtOrder,
	CategorySocialSecurity,
	CategoryStateID,
	CategoryBirthCertificate,
	CategoryPassport,
}

var allCategories = map[string]bool{
	CategoryCourtOrder: true, CategorySocialSecurity: true, CategoryStateID: true,
	CategoryBirthCertificate: true, CategoryPassport: true, CategoryEducation: true,
	CategoryEmployment: true, CategoryFinance: true, CategoryGaming: true,
	CategoryGovernment: true, CategoryHealthcare: true, CategoryHousing: true,
	CategoryPersonal: true, CategorySocial: true, CategoryTravel: true,
}

func ValidCategory(c string) bool {
	return allCategories[c]
}

func IsCoreCategory(c string) bool {
	for _, core := range CoreCategories {
		if c == core {
			return true
		}
	}
	return false
}

// US states, DC and territories.
var jurisdictions = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true, "PR": true, "VI": true, "GU": true,
	"AS": true, "MP": true,
}

func ValidJurisdiction(code string) bool {
	return jurisdictions[code]
}

type User struct {
	ID           int       `gorm:"primary_key;autoIncrement" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null;default:'user'" json:"role"`
	IsMinor      bool      `gorm:"default:false" json:"is_minor"`
	CreatedAt    time.Time `json:"created_at"`
}

type UserSettings struct {
	ID     uint   `gorm:"primary_key" json:"id"`
	UserID int    `gorm:"not null;uniqueIndex" json:"user_id"`
	Theme  string `gorm:"not null;default:'system'" json:"theme"` // system, light, dark
	Color  string `gorm:"not null;default:'violet'" json:"color"`
}

// UserData holds the personal data a user has saved for filling out forms.
// One row per user, upserted as a whole.
type UserData struct {
	ID              uint   `gorm:"primary_key" json:"id"`
	UserID          int    `gorm:"not null;uniqueIndex" json:"user_id"`
	NewFirstName    string `json:"new_first_name"`
	NewMiddleName   string `json:"new_middle_name"`
	NewLastName     string `json:"new_last_name"`
	OldFirstName    string `json:"old_first_name"`
	OldMiddleName   string `json:"old_middle_name"`
	OldLastName     string `json:"old_last_name"`
	DateOfBirth     string `json:"date_of_birth"` // YYYY-MM-DD
	PlaceOfBirth    string `json:"place_of_birth"`
	StreetAddress   string `json:"street_address"`
	City            string `json:"city"`
	State           string `json:"state"`
	Zip             string `json:"zip"`
	County          string `json:"county"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	ReasonForChange string `json:"reason_for_change"`
}

type Cost struct {
	Amount      int    `json:"amount"` // cents
	Description string `json:"description"`
	IsRequired  bool   `json:"is_required"`
}

type TimeRequired struct {
	Min  int    `json:"min"`
	Max  int    `json:"max"`
	Unit string `json:"unit"` // minutes, hours, days, weeks, months
}

type Quest struct {
	ID           uint         `gorm:"primary_key" json:"id"`
	Title        string       `gorm:"not null" json:"title"`
	Slug         string       `gorm:"unique;not null;index" json:"slug"`
	Category     string       `gorm:"not null;index" json:"category"`
	Jurisdiction string       `gorm:"index" json:"jurisdiction,omitempty"` // optional
	Costs        []Cost       `gorm:"serializer:json" json:"costs"`
	TimeRequired TimeRequired `gorm:"serializer:json" json:"time_required"`
	Content      string       `gorm:"type:text" json:"content"` // markdown
	CreatedBy    int          `gorm:"not null;index" json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	UpdatedBy    int          `json:"updated_by"`
	DeletedAt    *time.Time   `gorm:"index" json:"deleted_at,omitempty"`
}

type UserQuest struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	UserID      int        `gorm:"not null;uniqueIndex:idx_user_quest" json:"user_id"`
	QuestID     uint       `gorm:"not null;uniqueIndex:idx_user_quest" json:"quest_id"`
	Status      string     `gorm:"not null;default:'notStarted'" json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type UserQuestPlaceholder struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	UserID      int        `gorm:"not null;uniqueIndex:idx_user_category" json:"user_id"`
	Category    string     `gorm:"not null;uniqueIndex:idx_user_category" json:"category"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type EarlyAccessCode struct {
	ID        string     `gorm:"primary_key" json:"id"` // uuid
	CreatedBy int        `gorm:"not null;index" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	ClaimedBy *int       `json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`
}

type Faq struct {
	ID        uint      `gorm:"primary_key" json:"id"`
	Question  string    `gorm:"not null" json:"question"`
	Answer    string    `gorm:"type:text" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuestFaq struct {
	ID       uint `gorm:"primary_key" json:"id"`
	QuestID  uint `gorm:"not null;index" json:"quest_id"`
	FaqID    uint `gorm:"not null;index" json:"faq_id"`
	Position int  `json:"position"`
}

type Document struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	QuestID    uint      `gorm:"not null;index" json:"quest_id"`
	Title      string    `gorm:"not null" json:"title"`
	Code       string    `json:"code"` // agency form number, e.g. "CJP 27"
	SourcePath string    `json:"source_path"`
	CreatedAt  time.Time `json:"created_at"`
}

type Form struct {
	ID           uint       `gorm:"primary_key" json:"id"`
	Title        string     `gorm:"not null" json:"title"`
	Jurisdiction string     `gorm:"index" json:"jurisdiction,omitempty"`
	SourcePath   string     `gorm:"not null" json:"source_path"`
	PageCount    int        `json:"page_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

type FormPage struct {
	ID       uint   `gorm:"primary_key" json:"id"`
	FormID   uint   `gorm:"not null;index" json:"form_id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// FormField types: text, checkbox, select, date.
type FormField struct {
	ID       uint     `gorm:"primary_key" json:"id"`
	PageID   uint     `gorm:"not null;index" json:"page_id"`
	Type     string   `gorm:"not null" json:"type"`
	Name     string   `gorm:"not null" json:"name"` // PDF field name
	Label    string   `json:"label"`
	Required bool     `gorm:"default:false" json:"required"`
	Options  []string `gorm:"serializer:json" json:"options,omitempty"` // select only
}
