package models

import (
	"github.com/uptrace/bun"
)

// Region ids are fixed: 0 Africa, 1 Americas, 2 Asia Pacific, 3 Europe, 4 MENA.
type Region struct {
	bun.BaseModel `bun:"table:regions,alias:rg"`

	ID    int    `bun:"id,pk" json:"id"`
	Name  string `bun:"name" json:"name"`
	Label string `bun:"label" json:"label"`
}

// Country record types.
const (
	CountryRecordTypeCountry        = 1
	CountryRecordTypeCluster        = 2
	CountryRecordTypeRegion         = 3
	CountryRecordTypeCountryOffice  = 4
	CountryRecordTypeRepresentative = 5
)

type Country struct {
	bun.BaseModel `bun:"table:countries,alias:c"`

	ID           int64    `bun:"id,pk,autoincrement" json:"id"`
	Name         string   `bun:"name,notnull" json:"name"`
	ISO          *string  `bun:"iso" json:"iso"`
	ISO3         *string  `bun:"iso3" json:"iso3"`
	SocietyName  string   `bun:"society_name" json:"society_name"`
	RegionID     *int     `bun:"region_id" json:"region"`
	Independent  *bool    `bun:"independent" json:"independent"`
	IsDeprecated bool     `bun:"is_deprecated" json:"is_deprecated"`
	RecordType   int      `bun:"record_type" json:"record_type"`
	Centroid     GeoPoint `bun:"centroid,type:geometry" json:"centroid"`
}

// CountryFilterParams defines query parameters for filtering countries
type CountryFilterParams struct {
	Regions     []int
	ISO         []string
	ISO3        []string
	RecordTypes []int
	Search      string
	Deprecated  *bool
}

type District struct {
	bun.BaseModel `bun:"table:districts,alias:d"`

	ID           int64    `bun:"id,pk,autoincrement" json:"id"`
	CountryID    *int64   `bun:"country_id" json:"country"`
	Name         string   `bun:"name,notnull" json:"name"`
	Code         string   `bun:"code" json:"code"`
	IsDeprecated bool     `bun:"is_deprecated" json:"is_deprecated"`
	Centroid     GeoPoint `bun:"centroid,type:geometry" json:"centroid"`

	Country *Country `bun:"rel:belongs-to,join:country_id=id" json:"country_details,omitempty"`
}

type DistrictFilterParams struct {
	Countries []int64
	Search    string
}

type Admin2 struct {
	bun.BaseModel `bun:"table:admin2,alias:a2"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	DistrictID int64  `bun:"district_id,notnull" json:"district"`
	Name       string `bun:"name,notnull" json:"name"`
	Code       string `bun:"code" json:"code"`
}
