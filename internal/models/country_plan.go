package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Strategic priority types, in spreadsheet column order.
const (
	PriorityClimate   = 1
	PriorityCrisis    = 2
	PriorityHealth    = 3
	PriorityMigration = 4
	PriorityValues    = 5
)

var StrategicPriorityOrder = []int{PriorityClimate, PriorityCrisis, PriorityHealth, PriorityMigration, PriorityValues}

type CountryPlan struct {
	bun.BaseModel `bun:"table:country_plans,alias:cp"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	CountryID        int64     `bun:"country_id,notnull" json:"country"`
	RequestedAmount  *float64  `bun:"requested_amount" json:"requested_amount"`
	PeopleTargeted   *int      `bun:"people_targeted" json:"people_targeted"`
	IsPublish        bool      `bun:"is_publish" json:"is_publish"`
	InternalPlanFile string    `bun:"internal_plan_file" json:"-"`
	PublicPlanFile   string    `bun:"public_plan_file" json:"public_plan_file"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Country             *Country            `bun:"rel:belongs-to,join:country_id=id" json:"country_details,omitempty"`
	StrategicPriorities []StrategicPriority `bun:"rel:has-many,join:id=country_plan_id" json:"strategic_priorities"`
}

type StrategicPriority struct {
	bun.BaseModel `bun:"table:strategic_priorities,alias:sp"`

	ID                 int64    `bun:"id,pk,autoincrement" json:"id"`
	CountryPlanID      int64    `bun:"country_plan_id,notnull" json:"country_plan"`
	Type               int      `bun:"type" json:"type"`
	FundingRequirement *float64 `bun:"funding_requirement" json:"funding_requirement"`
	PeopleTargeted     *int     `bun:"people_targeted" json:"people_targeted"`
}

type CountryPlanFilterParams struct {
	Countries []int64
	Regions   []int
	// PublishedOnly hides unpublished plans from anonymous callers.
	PublishedOnly bool
}

// CountryPlanRow is one spreadsheet row of the country plan import.
type CountryPlanRow struct {
	Row             int
	ISO3            string
	RequestedAmount *float64
	PeopleTargeted  *int
	Priorities      []PriorityFigures
}

// PriorityFigures are the funding and people columns of one strategic
// priority.
type PriorityFigures struct {
	Type               int
	FundingRequirement *float64
	PeopleTargeted     *int
}
