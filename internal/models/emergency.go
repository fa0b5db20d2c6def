package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"gopkg.in/guregu/null.v3"
)

type DisasterType struct {
	bun.BaseModel `bun:"table:disaster_types,alias:dt"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Name    string `bun:"name,notnull" json:"name"`
	Summary string `bun:"summary" json:"summary"`
}

// IFRC alert levels shared by events and DREF disaster categories.
const (
	SeverityYellow = 0
	SeverityOrange = 1
	SeverityRed    = 2
)

// Visibility levels for events and field reports.
const (
	VisibilityMembership = 1
	VisibilityIFRCOnly   = 2
	VisibilityPublic     = 3
	VisibilityIFRCNS     = 4
)

func ValidVisibility(v int) bool {
	return v >= VisibilityMembership && v <= VisibilityIFRCNS
}

// Event is an emergency grouping field reports, appeals and deployments.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID                  int64      `bun:"id,pk,autoincrement" json:"id"`
	Name                string     `bun:"name,notnull" json:"name"`
	DTypeID             *int64     `bun:"dtype_id" json:"dtype"`
	DisasterStartDate   *time.Time `bun:"disaster_start_date" json:"disaster_start_date"`
	Summary             string     `bun:"summary" json:"summary"`
	NumAffected         null.Int   `bun:"num_affected" json:"num_affected"`
	IFRCSeverityLevel   int        `bun:"ifrc_severity_level" json:"ifrc_severity_level"`
	Glide               string     `bun:"glide" json:"glide"`
	AutoGenerated       bool       `bun:"auto_generated" json:"auto_generated"`
	AutoGeneratedSource string     `bun:"auto_generated_source" json:"auto_generated_source"`
	IsFeatured          bool       `bun:"is_featured" json:"is_featured"`
	Visibility          int        `bun:"visibility" json:"visibility"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	DType     *DisasterType `bun:"rel:belongs-to,join:dtype_id=id" json:"dtype_details,omitempty"`
	Countries []Country     `bun:"m2m:event_countries,join:Event=Country" json:"countries"`
	Districts []District    `bun:"m2m:event_districts,join:Event=District" json:"districts"`
	Appeals   []Appeal      `bun:"rel:has-many,join:id=event_id" json:"appeals,omitempty"`
}

type EventCountry struct {
	bun.BaseModel `bun:"table:event_countries"`

	EventID   int64    `bun:"event_id,pk"`
	Event     *Event   `bun:"rel:belongs-to,join:event_id=id"`
	CountryID int64    `bun:"country_id,pk"`
	Country   *Country `bun:"rel:belongs-to,join:country_id=id"`
}

type EventDistrict struct {
	bun.BaseModel `bun:"table:event_districts"`

	EventID    int64     `bun:"event_id,pk"`
	Event      *Event    `bun:"rel:belongs-to,join:event_id=id"`
	DistrictID int64     `bun:"district_id,pk"`
	District   *District `bun:"rel:belongs-to,join:district_id=id"`
}

// EventFilterParams defines query parameters for filtering events
type EventFilterParams struct {
	DTypes      []int64
	Countries   []int64
	Regions     []int
	StartAfter  *time.Time
	StartBefore *time.Time
	IsFeatured  *bool
	Search      string
	Lang        string
}

// EventInput is the writable shape of an event.
type EventInput struct {
	Name              string     `json:"name"`
	DTypeID           *int64     `json:"dtype"`
	DisasterStartDate *time.Time `json:"disaster_start_date"`
	Summary           string     `json:"summary"`
	NumAffected       null.Int   `json:"num_affected"`
	IFRCSeverityLevel int        `json:"ifrc_severity_level"`
	Glide             string     `json:"glide"`
	IsFeatured        bool       `json:"is_featured"`
	Visibility        int        `json:"visibility"`
	Countries         []int64    `json:"countries"`
	Districts         []int64    `json:"districts"`
}

// Field report statuses.
const (
	FieldReportStatusEarlyWarning = 8
	FieldReportStatusEvent        = 9
)

type FieldReport struct {
	bun.BaseModel `bun:"table:field_reports,alias:fr"`

	ID                  int64      `bun:"id,pk,autoincrement" json:"id"`
	RID                 string     `bun:"rid" json:"rid"`
	Summary             string     `bun:"summary" json:"summary"`
	Title               string     `bun:"title" json:"title"`
	Description         string     `bun:"description" json:"description"`
	EventID             *int64     `bun:"event_id" json:"event"`
	DTypeID             *int64     `bun:"dtype_id" json:"dtype"`
	Status              int        `bun:"status" json:"status"`
	Visibility          int        `bun:"visibility" json:"visibility"`
	RequestAssistance   null.Bool  `bun:"request_assistance" json:"request_assistance"`
	NSRequestAssistance null.Bool  `bun:"ns_request_assistance" json:"ns_request_assistance"`
	ActionsOthers       string     `bun:"actions_others" json:"actions_others"`
	StartDate           *time.Time `bun:"start_date" json:"start_date"`
	ReportDate          *time.Time `bun:"report_date" json:"report_date"`
	UserID              *uuid.UUID `bun:"user_id,type:uuid" json:"user"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Figures

	DType     *DisasterType `bun:"rel:belongs-to,join:dtype_id=id" json:"dtype_details,omitempty"`
	Event     *Event        `bun:"rel:belongs-to,join:event_id=id" json:"event_details,omitempty"`
	Countries []Country     `bun:"m2m:field_report_countries,join:FieldReport=Country" json:"countries"`
	Districts []District    `bun:"m2m:field_report_districts,join:FieldReport=District" json:"districts"`
}

// Figures are the casualty numbers reported by the Red Cross, the
// government and other sources. Unknown figures stay null.
type Figures struct {
	NumInjured        null.Int `bun:"num_injured" json:"num_injured"`
	NumDead           null.Int `bun:"num_dead" json:"num_dead"`
	NumMissing        null.Int `bun:"num_missing" json:"num_missing"`
	NumAffected       null.Int `bun:"num_affected" json:"num_affected"`
	NumDisplaced      null.Int `bun:"num_displaced" json:"num_displaced"`
	NumAssisted       null.Int `bun:"num_assisted" json:"num_assisted"`
	GovNumInjured     null.Int `bun:"gov_num_injured" json:"gov_num_injured"`
	GovNumDead        null.Int `bun:"gov_num_dead" json:"gov_num_dead"`
	GovNumMissing     null.Int `bun:"gov_num_missing" json:"gov_num_missing"`
	GovNumAffected    null.Int `bun:"gov_num_affected" json:"gov_num_affected"`
	GovNumDisplaced   null.Int `bun:"gov_num_displaced" json:"gov_num_displaced"`
	GovNumAssisted    null.Int `bun:"gov_num_assisted" json:"gov_num_assisted"`
	OtherNumInjured   null.Int `bun:"other_num_injured" json:"other_num_injured"`
	OtherNumDead      null.Int `bun:"other_num_dead" json:"other_num_dead"`
	OtherNumMissing   null.Int `bun:"other_num_missing" json:"other_num_missing"`
	OtherNumAffected  null.Int `bun:"other_num_affected" json:"other_num_affected"`
	OtherNumDisplaced null.Int `bun:"other_num_displaced" json:"other_num_displaced"`
	OtherNumAssisted  null.Int `bun:"other_num_assisted" json:"other_num_assisted"`
}

// Negative reports every figure below zero by its JSON name.
func (f Figures) Negative() []string {
	var out []string
	check := func(name string, v null.Int) {
		if v.Valid && v.Int64 < 0 {
			out = append(out, name)
		}
	}
	check("num_injured", f.NumInjured)
	check("num_dead", f.NumDead)
	check("num_missing", f.NumMissing)
	check("num_affected", f.NumAffected)
	check("num_displaced", f.NumDisplaced)
	check("num_assisted", f.NumAssisted)
	check("gov_num_injured", f.GovNumInjured)
	check("gov_num_dead", f.GovNumDead)
	check("gov_num_missing", f.GovNumMissing)
	check("gov_num_affected", f.GovNumAffected)
	check("gov_num_displaced", f.GovNumDisplaced)
	check("gov_num_assisted", f.GovNumAssisted)
	check("other_num_injured", f.OtherNumInjured)
	check("other_num_dead", f.OtherNumDead)
	check("other_num_missing", f.OtherNumMissing)
	check("other_num_affected", f.OtherNumAffected)
	check("other_num_displaced", f.OtherNumDisplaced)
	check("other_num_assisted", f.OtherNumAssisted)
	return out
}

type FieldReportCountry struct {
	bun.BaseModel `bun:"table:field_report_countries"`

	FieldReportID int64        `bun:"field_report_id,pk"`
	FieldReport   *FieldReport `bun:"rel:belongs-to,join:field_report_id=id"`
	CountryID     int64        `bun:"country_id,pk"`
	Country       *Country     `bun:"rel:belongs-to,join:country_id=id"`
}

type FieldReportDistrict struct {
	bun.BaseModel `bun:"table:field_report_districts"`

	FieldReportID int64        `bun:"field_report_id,pk"`
	FieldReport   *FieldReport `bun:"rel:belongs-to,join:field_report_id=id"`
	DistrictID    int64        `bun:"district_id,pk"`
	District      *District    `bun:"rel:belongs-to,join:district_id=id"`
}

type FieldReportFilterParams struct {
	DTypes     []int64
	Countries  []int64
	Regions    []int
	Events     []int64
	Statuses   []int
	Visibility []int
	Search     string
	Lang       string
}

// FieldReportInput is the writable shape of a field report.
type FieldReportInput struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	EventID             *int64     `json:"event"`
	DTypeID             *int64     `json:"dtype"`
	Status              int        `json:"status"`
	Visibility          int        `json:"visibility"`
	RequestAssistance   null.Bool  `json:"request_assistance"`
	NSRequestAssistance null.Bool  `json:"ns_request_assistance"`
	ActionsOthers       string     `json:"actions_others"`
	StartDate           *time.Time `json:"start_date"`
	ReportDate          *time.Time `json:"report_date"`
	Countries           []int64    `json:"countries"`
	Districts           []int64    `json:"districts"`
	CreateEvent         bool       `json:"create_event"`

	Figures
}
