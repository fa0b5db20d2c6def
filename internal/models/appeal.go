package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Appeal types.
const (
	AppealTypeDREF = 0
	AppealTypeEA   = 1
	AppealTypeIntl = 2
	AppealTypeFBA  = 3
)

// Appeal statuses.
const (
	AppealStatusActive   = 0
	AppealStatusClosed   = 1
	AppealStatusFrozen   = 2
	AppealStatusArchived = 3
)

type Appeal struct {
	bun.BaseModel `bun:"table:appeals,alias:ap"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	AID               string     `bun:"aid" json:"aid"`
	Name              string     `bun:"name,notnull" json:"name"`
	AType             int        `bun:"atype" json:"atype"`
	Status            int        `bun:"status" json:"status"`
	Code              string     `bun:"code,notnull" json:"code"`
	Sector            string     `bun:"sector" json:"sector"`
	NumBeneficiaries  int        `bun:"num_beneficiaries" json:"num_beneficiaries"`
	AmountRequested   float64    `bun:"amount_requested" json:"amount_requested"`
	AmountFunded      float64    `bun:"amount_funded" json:"amount_funded"`
	StartDate         *time.Time `bun:"start_date" json:"start_date"`
	EndDate           *time.Time `bun:"end_date" json:"end_date"`
	EventID           *int64     `bun:"event_id" json:"event"`
	CountryID         *int64     `bun:"country_id" json:"country"`
	RegionID          *int       `bun:"region_id" json:"region"`
	NeedsConfirmation bool       `bun:"needs_confirmation" json:"needs_confirmation"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ModifiedAt        time.Time  `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"modified_at"`

	Country *Country `bun:"rel:belongs-to,join:country_id=id" json:"country_details,omitempty"`
}

type AppealFilterParams struct {
	ATypes      []int
	Statuses    []int
	Countries   []int64
	Regions     []int
	Codes       []string
	Events      []int64
	StartAfter  *time.Time
	StartBefore *time.Time
	EndAfter    *time.Time
	EndBefore   *time.Time
	Search      string
	Lang        string
}

// AppealInput is the writable shape of an appeal.
type AppealInput struct {
	AID               string     `json:"aid"`
	Name              string     `json:"name"`
	AType             int        `json:"atype"`
	Status            int        `json:"status"`
	Code              string     `json:"code"`
	Sector            string     `json:"sector"`
	NumBeneficiaries  int        `json:"num_beneficiaries"`
	AmountRequested   float64    `json:"amount_requested"`
	AmountFunded      float64    `json:"amount_funded"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	EventID           *int64     `json:"event"`
	CountryID         *int64     `json:"country"`
	RegionID          *int       `json:"region"`
	NeedsConfirmation bool       `json:"needs_confirmation"`
}

// AppealAggregate is the totals row of /appeals/aggregate.
type AppealAggregate struct {
	ActiveAppeals    int     `bun:"active_appeals" json:"active_appeals"`
	ActiveDrefs      int     `bun:"active_drefs" json:"active_drefs"`
	TotalAppeals     int     `bun:"total_appeals" json:"total_appeals"`
	NumBeneficiaries int64   `bun:"num_beneficiaries" json:"target_population"`
	AmountRequested  float64 `bun:"amount_requested" json:"amount_requested"`
	AmountFunded     float64 `bun:"amount_funded" json:"amount_funded"`
}

type AppealDocument struct {
	bun.BaseModel `bun:"table:appeal_documents,alias:ad"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull" json:"name"`
	DocumentURL string    `bun:"document_url,notnull" json:"document_url"`
	Document    string    `bun:"document" json:"document"`
	AppealID    int64     `bun:"appeal_id,notnull" json:"appeal"`
	ISO         string    `bun:"iso" json:"iso"`
	Type        string    `bun:"type" json:"type"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Appeal *Appeal `bun:"rel:belongs-to,join:appeal_id=id" json:"-"`
}

type AppealDocumentFilterParams struct {
	Appeals     []int64
	AppealCodes []string
}

// AppealExtract holds appeal figures read from a published document. Nil
// fields were not found.
type AppealExtract struct {
	NumBeneficiaries *int
	AmountRequested  *float64
	StartDate        *time.Time
	EndDate          *time.Time
}

// Empty reports whether nothing was extracted.
func (e AppealExtract) Empty() bool {
	return e.NumBeneficiaries == nil && e.AmountRequested == nil && e.StartDate == nil && e.EndDate == nil
}
