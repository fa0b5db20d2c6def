package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Personnel types.
const (
	PersonnelFACT = "fact"
	PersonnelHEOP = "heop"
	PersonnelRDRT = "rdrt"
	PersonnelIFRC = "ifrc"
	PersonnelERU  = "eru"
	PersonnelRR   = "rr"
)

var PersonnelTypes = []string{PersonnelFACT, PersonnelHEOP, PersonnelRDRT, PersonnelIFRC, PersonnelERU, PersonnelRR}

type PersonnelDeployment struct {
	bun.BaseModel `bun:"table:personnel_deployments,alias:pd"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	CountryDeployedTo *int64    `bun:"country_deployed_to_id" json:"country_deployed_to"`
	RegionDeployedTo  *int      `bun:"region_deployed_to_id" json:"region_deployed_to"`
	EventDeployedTo   *int64    `bun:"event_deployed_to_id" json:"event_deployed_to"`
	Comments          string    `bun:"comments" json:"comments"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type PersonnelDeploymentInput struct {
	CountryDeployedTo *int64 `json:"country_deployed_to"`
	RegionDeployedTo  *int   `json:"region_deployed_to"`
	EventDeployedTo   *int64 `json:"event_deployed_to"`
	Comments          string `json:"comments"`
}

type Personnel struct {
	bun.BaseModel `bun:"table:personnel,alias:pe"`

	ID            int64      `bun:"id,pk,autoincrement" json:"id"`
	DeploymentID  int64      `bun:"deployment_id,notnull" json:"deployment"`
	Name          string     `bun:"name,notnull" json:"name"`
	Role          string     `bun:"role" json:"role"`
	Type          string     `bun:"type,notnull" json:"type"`
	CountryFromID *int64     `bun:"country_from_id" json:"country_from"`
	StartDate     *time.Time `bun:"start_date" json:"start_date"`
	EndDate       *time.Time `bun:"end_date" json:"end_date"`
	IsActive      bool       `bun:"is_active" json:"is_active"`

	Deployment *PersonnelDeployment `bun:"rel:belongs-to,join:deployment_id=id" json:"deployment_details,omitempty"`
}

type PersonnelFilterParams struct {
	Types       []string
	CountryFrom []int64
	DeployedTo  []int64
	Events      []int64
	IsActive    *bool
}

type PersonnelInput struct {
	DeploymentID  int64      `json:"deployment"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	Type          string     `json:"type"`
	CountryFromID *int64     `json:"country_from"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	IsActive      *bool      `json:"is_active"`
}

// ERU types.
const (
	ERUBasecamp = iota
	ERUITTelecom
	ERULogistics
	ERUEmergencyHospital
	ERUEmergencyClinic
	ERURelief
	ERUWashM15
	ERUWashMSM20
	ERUWashM40
)

var ERUTypeLabels = map[int]string{
	ERUBasecamp:          "Basecamp",
	ERUITTelecom:         "IT & Telecom",
	ERULogistics:         "Logistics",
	ERUEmergencyHospital: "RCRC Emergency Hospital",
	ERUEmergencyClinic:   "RCRC Emergency Clinic",
	ERURelief:            "Relief",
	ERUWashM15:           "Wash M15",
	ERUWashMSM20:         "Wash MSM20",
	ERUWashM40:           "Wash M40",
}

type ERUOwner struct {
	bun.BaseModel `bun:"table:eru_owners,alias:eo"`

	ID                       int64 `bun:"id,pk,autoincrement" json:"id"`
	NationalSocietyCountryID int64 `bun:"national_society_country_id,notnull" json:"national_society_country"`
}

type ERU struct {
	bun.BaseModel `bun:"table:erus,alias:eru"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	Type           int    `bun:"type" json:"type"`
	Units          int    `bun:"units" json:"units"`
	EquipmentUnits int    `bun:"equipment_units" json:"equipment_units"`
	ERUOwnerID     int64  `bun:"eru_owner_id,notnull" json:"eru_owner"`
	DeployedToID   *int64 `bun:"deployed_to_id" json:"deployed_to"`
	EventID        *int64 `bun:"event_id" json:"event"`
	Available      bool   `bun:"available" json:"available"`

	Owner *ERUOwner `bun:"rel:belongs-to,join:eru_owner_id=id" json:"eru_owner_details,omitempty"`
}

type ERUFilterParams struct {
	Types        []int
	Available    *bool
	OwnerCountry []int64
	DeployedTo   []int64
}

// ERUReadiness summarises units per ERU type.
type ERUReadiness struct {
	Type           int    `bun:"type" json:"type"`
	Label          string `bun:"-" json:"label"`
	Units          int    `bun:"units" json:"units"`
	EquipmentUnits int    `bun:"equipment_units" json:"equipment_units"`
	Available      int    `bun:"available" json:"available"`
	Deployed       int    `bun:"deployed" json:"deployed"`
}
