package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DREF types.
const (
	DrefTypeImminent   = 0
	DrefTypeAssessment = 1
	DrefTypeResponse   = 2
	DrefTypeLoan       = 3
)

// DREF onset types.
const (
	OnsetSlow   = 1
	OnsetSudden = 2
)

// DREF statuses.
const (
	DrefStatusDraft      = 1
	DrefStatusFinalizing = 2
	DrefStatusFinalized  = 3
	DrefStatusApproved   = 4
)

type Dref struct {
	bun.BaseModel `bun:"table:drefs,alias:dr"`

	ID                 int64      `bun:"id,pk,autoincrement" json:"id"`
	Title              string     `bun:"title,notnull" json:"title"`
	NationalSocietyID  *int64     `bun:"national_society_id" json:"national_society"`
	CountryID          *int64     `bun:"country_id" json:"country"`
	DisasterTypeID     *int64     `bun:"disaster_type_id" json:"disaster_type"`
	TypeOfDref         *int       `bun:"type_of_dref" json:"type_of_dref"`
	TypeOfOnset        *int       `bun:"type_of_onset" json:"type_of_onset"`
	DisasterCategory   *int       `bun:"disaster_category" json:"disaster_category"`
	Status             int        `bun:"status" json:"status"`
	AmountRequested    *float64   `bun:"amount_requested" json:"amount_requested"`
	NumAffected        *int       `bun:"num_affected" json:"num_affected"`
	NumAssisted        *int       `bun:"num_assisted" json:"num_assisted"`
	DateOfApproval     *time.Time `bun:"date_of_approval,type:date" json:"date_of_approval"`
	OperationTimeframe *int       `bun:"operation_timeframe" json:"operation_timeframe"`
	EndDate            *time.Time `bun:"end_date,type:date" json:"end_date"`
	AppealCode         string     `bun:"appeal_code" json:"appeal_code"`
	GlideCode          string     `bun:"glide_code" json:"glide_code"`
	IsPublished        bool       `bun:"is_published" json:"is_published"`
	CreatedBy          *uuid.UUID `bun:"created_by,type:uuid" json:"created_by"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ModifiedAt         time.Time  `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"modified_at"`

	OperationalUpdates []DrefOperationalUpdate `bun:"rel:has-many,join:id=dref_id" json:"operational_updates,omitempty"`
}

// ComputeEndDate sets EndDate to the approval date plus the operation
// timeframe in months when both are known.
func (d *Dref) ComputeEndDate() {
	if d.DateOfApproval == nil || d.OperationTimeframe == nil {
		return
	}
	end := d.DateOfApproval.AddDate(0, *d.OperationTimeframe, 0)
	d.EndDate = &end
}

type DrefFilterParams struct {
	Statuses    []int
	Countries   []int64
	TypeOfDref  []int
	IsPublished *bool
	Search      string
}

// DrefInput is the writable shape of a DREF application.
type DrefInput struct {
	Title              string     `json:"title"`
	NationalSocietyID  *int64     `json:"national_society"`
	CountryID          *int64     `json:"country"`
	DisasterTypeID     *int64     `json:"disaster_type"`
	TypeOfDref         *int       `json:"type_of_dref"`
	TypeOfOnset        *int       `json:"type_of_onset"`
	DisasterCategory   *int       `json:"disaster_category"`
	Status             int        `json:"status"`
	AmountRequested    *float64   `json:"amount_requested"`
	NumAffected        *int       `json:"num_affected"`
	NumAssisted        *int       `json:"num_assisted"`
	DateOfApproval     *time.Time `json:"date_of_approval"`
	OperationTimeframe *int       `json:"operation_timeframe"`
	AppealCode         string     `json:"appeal_code"`
	GlideCode          string     `json:"glide_code"`
}

type DrefOperationalUpdate struct {
	bun.BaseModel `bun:"table:dref_operational_updates,alias:dou"`

	ID                      int64      `bun:"id,pk,autoincrement" json:"id"`
	DrefID                  int64      `bun:"dref_id,notnull" json:"dref"`
	OperationalUpdateNumber int        `bun:"operational_update_number" json:"operational_update_number"`
	Title                   string     `bun:"title" json:"title"`
	NewOperationalEndDate   *time.Time `bun:"new_operational_end_date,type:date" json:"new_operational_end_date"`
	TotalOperationTimeframe *int       `bun:"total_operation_timeframe" json:"total_operation_timeframe"`
	ChangingBudget          bool       `bun:"changing_budget" json:"changing_budget"`
	AdditionalAllocation    *float64   `bun:"additional_allocation" json:"additional_allocation"`
	IsPublished             bool       `bun:"is_published" json:"is_published"`
	CreatedAt               time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type DrefOperationalUpdateInput struct {
	DrefID                  int64      `json:"dref"`
	Title                   string     `json:"title"`
	NewOperationalEndDate   *time.Time `json:"new_operational_end_date"`
	TotalOperationTimeframe *int       `json:"total_operation_timeframe"`
	ChangingBudget          bool       `json:"changing_budget"`
	AdditionalAllocation    *float64   `json:"additional_allocation"`
}

type DrefFinalReport struct {
	bun.BaseModel `bun:"table:dref_final_reports,alias:dfr"`

	ID                  int64      `bun:"id,pk,autoincrement" json:"id"`
	DrefID              int64      `bun:"dref_id,notnull" json:"dref"`
	Title               string     `bun:"title" json:"title"`
	NumAssisted         *int       `bun:"num_assisted" json:"num_assisted"`
	TotalDrefAllocation *float64   `bun:"total_dref_allocation" json:"total_dref_allocation"`
	OperationStartDate  *time.Time `bun:"operation_start_date,type:date" json:"operation_start_date"`
	OperationEndDate    *time.Time `bun:"operation_end_date,type:date" json:"operation_end_date"`
	IsPublished         bool       `bun:"is_published" json:"is_published"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type DrefFinalReportInput struct {
	DrefID              int64      `json:"dref"`
	Title               string     `json:"title"`
	NumAssisted         *int       `json:"num_assisted"`
	TotalDrefAllocation *float64   `json:"total_dref_allocation"`
	OperationStartDate  *time.Time `json:"operation_start_date"`
	OperationEndDate    *time.Time `json:"operation_end_date"`
}
