package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Translation stores one machine translated field value.
type Translation struct {
	bun.BaseModel `bun:"table:translations,alias:tr"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Model     string    `bun:"model,notnull" json:"model"`
	ObjectID  int64     `bun:"object_id,notnull" json:"object_id"`
	Field     string    `bun:"field,notnull" json:"field"`
	Language  string    `bun:"language,notnull" json:"language"`
	Text      string    `bun:"text,notnull" json:"text"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// TranslatableField names a text column that gets machine translated.
type TranslatableField struct {
	Model string // logical model name stored in translations.model
	Table string
	Field string
}

var TranslatableFields = []TranslatableField{
	{Model: "event", Table: "events", Field: "name"},
	{Model: "event", Table: "events", Field: "summary"},
	{Model: "field_report", Table: "field_reports", Field: "summary"},
	{Model: "field_report", Table: "field_reports", Field: "description"},
	{Model: "appeal", Table: "appeals", Field: "name"},
	{Model: "local_unit", Table: "local_units", Field: "english_branch_name"},
	{Model: "ops_learning", Table: "ops_learnings", Field: "learning"},
}
