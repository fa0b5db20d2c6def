package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Local unit types.
const (
	LocalUnitAdministrative = 1
	LocalUnitHealthcare     = 2
	LocalUnitEmergency      = 3
	LocalUnitHumanitarian   = 4
	LocalUnitTraining       = 5
	LocalUnitOther          = 6
)

func ValidLocalUnitType(t int) bool {
	return t >= LocalUnitAdministrative && t <= LocalUnitOther
}

// LocalUnit is a National Society branch or facility.
type LocalUnit struct {
	bun.BaseModel `bun:"table:local_units,alias:lu"`

	ID                int64      `bun:"id,pk,autoincrement" json:"id"`
	CountryID         int64      `bun:"country_id,notnull" json:"country"`
	TypeID            int        `bun:"type_id" json:"type"`
	LocalBranchName   string     `bun:"local_branch_name" json:"local_branch_name"`
	EnglishBranchName string     `bun:"english_branch_name" json:"english_branch_name"`
	AddressLoc        string     `bun:"address_loc" json:"address_loc"`
	AddressEn         string     `bun:"address_en" json:"address_en"`
	CityLoc           string     `bun:"city_loc" json:"city_loc"`
	CityEn            string     `bun:"city_en" json:"city_en"`
	Postcode          string     `bun:"postcode" json:"postcode"`
	Phone             string     `bun:"phone" json:"phone"`
	Email             string     `bun:"email" json:"email"`
	Link              string     `bun:"link" json:"link"`
	Location          GeoPoint   `bun:"location,type:geometry" json:"location"`
	Visibility        int        `bun:"visibility" json:"visibility"`
	Validated         bool       `bun:"validated" json:"validated"`
	DateOfData        *time.Time `bun:"date_of_data,type:date" json:"date_of_data"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	ModifiedAt        time.Time  `bun:"modified_at,nullzero,notnull,default:current_timestamp" json:"modified_at"`
}

type LocalUnitFilterParams struct {
	Countries []int64
	Types     []int
	Validated *bool
	Search    string
}

type LocalUnitInput struct {
	CountryID         int64      `json:"country"`
	TypeID            int        `json:"type"`
	LocalBranchName   string     `json:"local_branch_name"`
	EnglishBranchName string     `json:"english_branch_name"`
	AddressLoc        string     `json:"address_loc"`
	AddressEn         string     `json:"address_en"`
	CityLoc           string     `json:"city_loc"`
	CityEn            string     `json:"city_en"`
	Postcode          string     `json:"postcode"`
	Phone             string     `json:"phone"`
	Email             string     `json:"email"`
	Link              string     `json:"link"`
	Location          GeoPoint   `json:"location"`
	Visibility        int        `json:"visibility"`
	DateOfData        *time.Time `json:"date_of_data"`
}
