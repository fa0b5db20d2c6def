package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PER phases.
const (
	PerPhaseOrientation    = 1
	PerPhaseAssessment     = 2
	PerPhasePrioritisation = 3
	PerPhaseWorkplan       = 4
	PerPhaseAction         = 5
)

type PerOverview struct {
	bun.BaseModel `bun:"table:per_overviews,alias:po"`

	ID               int64      `bun:"id,pk,autoincrement" json:"id"`
	CountryID        int64      `bun:"country_id,notnull" json:"country"`
	AssessmentNumber int        `bun:"assessment_number" json:"assessment_number"`
	DateOfAssessment *time.Time `bun:"date_of_assessment,type:date" json:"date_of_assessment"`
	TypeOfAssessment string     `bun:"type_of_assessment" json:"type_of_assessment"`
	Phase            int        `bun:"phase" json:"phase"`
	IsDraft          bool       `bun:"is_draft" json:"is_draft"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`

	Country *Country              `bun:"rel:belongs-to,join:country_id=id" json:"country_details,omitempty"`
	Ratings []FormComponentRating `bun:"rel:has-many,join:id=overview_id" json:"ratings,omitempty"`
}

type PerOverviewFilterParams struct {
	Countries []int64
	Phases    []int
}

type PerOverviewInput struct {
	CountryID        int64      `json:"country"`
	DateOfAssessment *time.Time `json:"date_of_assessment"`
	TypeOfAssessment string     `json:"type_of_assessment"`
	Phase            int        `json:"phase"`
	IsDraft          *bool      `json:"is_draft"`
}

type FormArea struct {
	bun.BaseModel `bun:"table:per_form_areas,alias:pfa"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	AreaNum int    `bun:"area_num" json:"area_num"`
	Title   string `bun:"title" json:"title"`
}

type FormComponent struct {
	bun.BaseModel `bun:"table:per_form_components,alias:pfc"`

	ID              int64  `bun:"id,pk,autoincrement" json:"id"`
	AreaID          int64  `bun:"area_id,notnull" json:"area"`
	ComponentNum    int    `bun:"component_num" json:"component_num"`
	ComponentLetter string `bun:"component_letter" json:"component_letter"`
	Title           string `bun:"title" json:"title"`

	Area *FormArea `bun:"rel:belongs-to,join:area_id=id" json:"area_details,omitempty"`
}

// MaxRating is the top of the PER benchmark scale; 0 means not reviewed.
const MaxRating = 5

type FormComponentRating struct {
	bun.BaseModel `bun:"table:per_component_ratings,alias:pcr"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	OverviewID  int64  `bun:"overview_id,notnull" json:"overview"`
	ComponentID int64  `bun:"component_id,notnull" json:"component"`
	Rating      int    `bun:"rating" json:"rating"`
	Notes       string `bun:"notes" json:"notes"`
}

type RatingInput struct {
	ComponentID int64  `json:"component"`
	Rating      int    `json:"rating"`
	Notes       string `json:"notes"`
}

// RatingRow is one reviewed rating joined to its component and area, the
// input of the PER statistics.
type RatingRow struct {
	OverviewID     int64  `bun:"overview_id"`
	CountryID      int64  `bun:"country_id"`
	AreaNum        int    `bun:"area_num"`
	AreaTitle      string `bun:"area_title"`
	ComponentID    int64  `bun:"component_id"`
	ComponentTitle string `bun:"component_title"`
	Rating         int    `bun:"rating"`
}

type PerStatsFilterParams struct {
	Countries []int64
	Regions   []int
	Phases    []int
}

type AreaStat struct {
	AreaNum       int     `json:"area_num"`
	Title         string  `json:"title"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

type ComponentStat struct {
	ComponentID   int64   `json:"component_id"`
	Title         string  `json:"title"`
	AreaNum       int     `json:"area_num"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

type PerStats struct {
	Assessments int             `json:"assessments"`
	Countries   int             `json:"countries"`
	Areas       []AreaStat      `json:"areas"`
	Components  []ComponentStat `json:"components"`
}

// Ops learning types.
const (
	OpsLearningLesson    = 1
	OpsLearningChallenge = 2
)

type OpsLearning struct {
	bun.BaseModel `bun:"table:ops_learnings,alias:ol"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	Learning          string    `bun:"learning,notnull" json:"learning"`
	LearningValidated string    `bun:"learning_validated" json:"learning_validated"`
	AppealCode        string    `bun:"appeal_code" json:"appeal_code"`
	IsValidated       bool      `bun:"is_validated" json:"is_validated"`
	Type              int       `bun:"type" json:"type"`
	Sector            string    `bun:"sector" json:"sector"`
	PerComponentID    *int64    `bun:"per_component_id" json:"per_component"`
	CountryID         *int64    `bun:"country_id" json:"country"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	PerComponent *FormComponent `bun:"rel:belongs-to,join:per_component_id=id" json:"per_component_details,omitempty"`
}

// OpsLearningFilterParams doubles as the cache key material for summaries,
// hence the JSON tags.
type OpsLearningFilterParams struct {
	Countries     []int64  `json:"country,omitempty"`
	Regions       []int    `json:"region,omitempty"`
	Sectors       []string `json:"sector,omitempty"`
	PerComponents []int64  `json:"per_component,omitempty"`
	AppealCodes   []string `json:"appeal_code,omitempty"`
	IsValidated   *bool    `json:"is_validated,omitempty"`
	Search        string   `json:"search,omitempty"`
}

// Ops learning cache statuses.
const (
	CacheStatusPending    = 1
	CacheStatusStarted    = 2
	CacheStatusSuccess    = 3
	CacheStatusNoEvidence = 4
	CacheStatusFailed     = 5
)

var CacheStatusNames = map[int]string{
	CacheStatusPending:    "pending",
	CacheStatusStarted:    "started",
	CacheStatusSuccess:    "success",
	CacheStatusNoEvidence: "no_evidence",
	CacheStatusFailed:     "failed",
}

type SectorSummary struct {
	Sector  string `json:"sector"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

type OpsLearningCacheResponse struct {
	bun.BaseModel `bun:"table:ops_learning_cache_responses,alias:olc"`

	ID                   int64           `bun:"id,pk,autoincrement" json:"id"`
	UsedFiltersHash      string          `bun:"used_filters_hash,notnull" json:"used_filters_hash"`
	UsedFilters          map[string]any  `bun:"used_filters,type:jsonb" json:"used_filters"`
	Status               int             `bun:"status" json:"status"`
	Insight1Title        string          `bun:"insight1_title" json:"insights1_title"`
	Insight1Content      string          `bun:"insight1_content" json:"insights1_content"`
	Insight2Title        string          `bun:"insight2_title" json:"insights2_title"`
	Insight2Content      string          `bun:"insight2_content" json:"insights2_content"`
	Insight3Title        string          `bun:"insight3_title" json:"insights3_title"`
	Insight3Content      string          `bun:"insight3_content" json:"insights3_content"`
	SectorSummaries      []SectorSummary `bun:"sector_summaries,type:jsonb" json:"sector_summaries"`
	ContradictoryReports string          `bun:"contradictory_reports" json:"contradictory_reports"`
	CreatedAt            time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ModifiedAt           time.Time       `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"modified_at"`
}
