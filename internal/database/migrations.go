package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type migration struct {
	name string
	sql  string
}

// migrations run in order; every statement is idempotent so a partially
// applied run can simply be repeated.
var migrations = []migration{
	{"0001_schema", createSchema},
	{"0002_geo", createGeoTables},
	{"0003_emergencies", createEmergencyTables},
	{"0004_appeals", createAppealTables},
	{"0005_dref", createDrefTables},
	{"0006_per", createPerTables},
	{"0007_local_units", createLocalUnitTables},
	{"0008_deployments", createDeploymentTables},
	{"0009_country_plans", createCountryPlanTables},
	{"0010_translations", createTranslationTable},
	{"0011_auth", createAuthTables},
	{"0012_seed_lookups", seedLookups},
}

// RunMigrations applies every migration not yet recorded in schema_migrations.
func RunMigrations(ctx context.Context, db *bun.DB, logr *zap.Logger) error {
	if _, err := db.ExecContext(ctx, createMigrationTable); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var applied []string
	if err := db.NewSelect().
		Column("name").
		TableExpr("app.schema_migrations").
		Scan(ctx, &applied); err != nil {
		return fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	for i, m := range migrations {
		if done[m.name] {
			continue
		}
		logr.Info("running migration",
			zap.Int("step", i+1),
			zap.Int("total", len(migrations)),
			zap.String("name", m.name))

		err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO app.schema_migrations (name) VALUES (?)", m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
	}

	logr.Info("all migrations applied", zap.Int("count", len(migrations)))
	return nil
}

const createMigrationTable = `
CREATE SCHEMA IF NOT EXISTS app;
CREATE TABLE IF NOT EXISTS app.schema_migrations (
  name TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createSchema = `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE EXTENSION IF NOT EXISTS "uuid-ossp";
`

const createGeoTables = `
CREATE TABLE IF NOT EXISTS app.regions (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  label TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS app.countries (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  iso VARCHAR(2),
  iso3 VARCHAR(3),
  society_name TEXT NOT NULL DEFAULT '',
  region_id INTEGER REFERENCES app.regions(id) ON DELETE SET NULL,
  independent BOOLEAN,
  is_deprecated BOOLEAN NOT NULL DEFAULT false,
  record_type INTEGER NOT NULL DEFAULT 1,
  centroid geometry(Point, 4326),
  bbox geometry(Polygon, 4326)
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_countries_iso3 ON app.countries (upper(iso3)) WHERE iso3 IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_countries_region ON app.countries (region_id);

CREATE TABLE IF NOT EXISTS app.districts (
  id BIGSERIAL PRIMARY KEY,
  country_id BIGINT REFERENCES app.countries(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT '',
  is_deprecated BOOLEAN NOT NULL DEFAULT false,
  centroid geometry(Point, 4326)
);
CREATE INDEX IF NOT EXISTS idx_districts_country ON app.districts (country_id);

CREATE TABLE IF NOT EXISTS app.admin2 (
  id BIGSERIAL PRIMARY KEY,
  district_id BIGINT NOT NULL REFERENCES app.districts(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  code TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_admin2_district ON app.admin2 (district_id);
`

const createEmergencyTables = `
CREATE TABLE IF NOT EXISTS app.disaster_types (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  summary TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS app.events (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  dtype_id BIGINT REFERENCES app.disaster_types(id) ON DELETE SET NULL,
  disaster_start_date TIMESTAMPTZ,
  summary TEXT NOT NULL DEFAULT '',
  num_affected INTEGER,
  ifrc_severity_level INTEGER NOT NULL DEFAULT 0,
  glide TEXT NOT NULL DEFAULT '',
  auto_generated BOOLEAN NOT NULL DEFAULT false,
  auto_generated_source TEXT NOT NULL DEFAULT '',
  is_featured BOOLEAN NOT NULL DEFAULT false,
  visibility INTEGER NOT NULL DEFAULT 3,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_start ON app.events (disaster_start_date DESC);

CREATE TABLE IF NOT EXISTS app.event_countries (
  event_id BIGINT NOT NULL REFERENCES app.events(id) ON DELETE CASCADE,
  country_id BIGINT NOT NULL REFERENCES app.countries(id) ON DELETE CASCADE,
  PRIMARY KEY (event_id, country_id)
);

CREATE TABLE IF NOT EXISTS app.event_districts (
  event_id BIGINT NOT NULL REFERENCES app.events(id) ON DELETE CASCADE,
  district_id BIGINT NOT NULL REFERENCES app.districts(id) ON DELETE CASCADE,
  PRIMARY KEY (event_id, district_id)
);

CREATE TABLE IF NOT EXISTS app.field_reports (
  id BIGSERIAL PRIMARY KEY,
  rid TEXT NOT NULL DEFAULT '',
  summary TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  event_id BIGINT REFERENCES app.events(id) ON DELETE SET NULL,
  dtype_id BIGINT REFERENCES app.disaster_types(id) ON DELETE SET NULL,
  status INTEGER NOT NULL DEFAULT 9,
  visibility INTEGER NOT NULL DEFAULT 1,
  request_assistance BOOLEAN,
  ns_request_assistance BOOLEAN,
  num_injured INTEGER, num_dead INTEGER, num_missing INTEGER,
  num_affected INTEGER, num_displaced INTEGER, num_assisted INTEGER,
  gov_num_injured INTEGER, gov_num_dead INTEGER, gov_num_missing INTEGER,
  gov_num_affected INTEGER, gov_num_displaced INTEGER, gov_num_assisted INTEGER,
  other_num_injured INTEGER, other_num_dead INTEGER, other_num_missing INTEGER,
  other_num_affected INTEGER, other_num_displaced INTEGER, other_num_assisted INTEGER,
  actions_others TEXT NOT NULL DEFAULT '',
  start_date TIMESTAMPTZ,
  report_date TIMESTAMPTZ,
  user_id UUID,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_field_reports_event ON app.field_reports (event_id);

CREATE TABLE IF NOT EXISTS app.field_report_countries (
  field_report_id BIGINT NOT NULL REFERENCES app.field_reports(id) ON DELETE CASCADE,
  country_id BIGINT NOT NULL REFERENCES app.countries(id) ON DELETE CASCADE,
  PRIMARY KEY (field_report_id, country_id)
);

CREATE TABLE IF NOT EXISTS app.field_report_districts (
  field_report_id BIGINT NOT NULL REFERENCES app.field_reports(id) ON DELETE CASCADE,
  district_id BIGINT NOT NULL REFERENCES app.districts(id) ON DELETE CASCADE,
  PRIMARY KEY (field_report_id, district_id)
);
`

const createAppealTables = `
CREATE TABLE IF NOT EXISTS app.appeals (
  id BIGSERIAL PRIMARY KEY,
  aid TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL,
  atype INTEGER NOT NULL DEFAULT 0,
  status INTEGER NOT NULL DEFAULT 0,
  code TEXT NOT NULL UNIQUE,
  sector TEXT NOT NULL DEFAULT '',
  num_beneficiaries INTEGER NOT NULL DEFAULT 0,
  amount_requested NUMERIC(14,2) NOT NULL DEFAULT 0,
  amount_funded NUMERIC(14,2) NOT NULL DEFAULT 0,
  start_date TIMESTAMPTZ,
  end_date TIMESTAMPTZ,
  event_id BIGINT REFERENCES app.events(id) ON DELETE SET NULL,
  country_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  region_id INTEGER REFERENCES app.regions(id) ON DELETE SET NULL,
  needs_confirmation BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_appeals_country ON app.appeals (country_id);

CREATE TABLE IF NOT EXISTS app.appeal_documents (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  document_url TEXT NOT NULL,
  document TEXT NOT NULL DEFAULT '',
  appeal_id BIGINT NOT NULL REFERENCES app.appeals(id) ON DELETE CASCADE,
  iso VARCHAR(2) NOT NULL DEFAULT '',
  type TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (appeal_id, document_url)
);
`

const createDrefTables = `
CREATE TABLE IF NOT EXISTS app.drefs (
  id BIGSERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  national_society_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  country_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  disaster_type_id BIGINT REFERENCES app.disaster_types(id) ON DELETE SET NULL,
  type_of_dref INTEGER,
  type_of_onset INTEGER,
  disaster_category INTEGER,
  status INTEGER NOT NULL DEFAULT 1,
  amount_requested NUMERIC(14,2),
  num_affected INTEGER,
  num_assisted INTEGER,
  date_of_approval DATE,
  operation_timeframe INTEGER,
  end_date DATE,
  appeal_code TEXT NOT NULL DEFAULT '',
  glide_code TEXT NOT NULL DEFAULT '',
  is_published BOOLEAN NOT NULL DEFAULT false,
  created_by UUID,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS app.dref_operational_updates (
  id BIGSERIAL PRIMARY KEY,
  dref_id BIGINT NOT NULL REFERENCES app.drefs(id) ON DELETE CASCADE,
  operational_update_number INTEGER NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  new_operational_end_date DATE,
  total_operation_timeframe INTEGER,
  changing_budget BOOLEAN NOT NULL DEFAULT false,
  additional_allocation NUMERIC(14,2),
  is_published BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (dref_id, operational_update_number)
);

CREATE TABLE IF NOT EXISTS app.dref_final_reports (
  id BIGSERIAL PRIMARY KEY,
  dref_id BIGINT NOT NULL UNIQUE REFERENCES app.drefs(id) ON DELETE CASCADE,
  title TEXT NOT NULL DEFAULT '',
  num_assisted INTEGER,
  total_dref_allocation NUMERIC(14,2),
  operation_start_date DATE,
  operation_end_date DATE,
  is_published BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createPerTables = `
CREATE TABLE IF NOT EXISTS app.per_overviews (
  id BIGSERIAL PRIMARY KEY,
  country_id BIGINT NOT NULL REFERENCES app.countries(id) ON DELETE CASCADE,
  assessment_number INTEGER NOT NULL DEFAULT 1,
  date_of_assessment DATE,
  type_of_assessment TEXT NOT NULL DEFAULT '',
  phase INTEGER NOT NULL DEFAULT 1,
  is_draft BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (country_id, assessment_number)
);

CREATE TABLE IF NOT EXISTS app.per_form_areas (
  id BIGSERIAL PRIMARY KEY,
  area_num INTEGER NOT NULL UNIQUE,
  title TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS app.per_form_components (
  id BIGSERIAL PRIMARY KEY,
  area_id BIGINT NOT NULL REFERENCES app.per_form_areas(id) ON DELETE CASCADE,
  component_num INTEGER NOT NULL,
  component_letter TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  UNIQUE (area_id, component_num, component_letter)
);

CREATE TABLE IF NOT EXISTS app.per_component_ratings (
  id BIGSERIAL PRIMARY KEY,
  overview_id BIGINT NOT NULL REFERENCES app.per_overviews(id) ON DELETE CASCADE,
  component_id BIGINT NOT NULL REFERENCES app.per_form_components(id) ON DELETE CASCADE,
  rating INTEGER NOT NULL DEFAULT 0 CHECK (rating BETWEEN 0 AND 5),
  notes TEXT NOT NULL DEFAULT '',
  UNIQUE (overview_id, component_id)
);

CREATE TABLE IF NOT EXISTS app.ops_learnings (
  id BIGSERIAL PRIMARY KEY,
  learning TEXT NOT NULL,
  learning_validated TEXT NOT NULL DEFAULT '',
  appeal_code TEXT NOT NULL DEFAULT '',
  is_validated BOOLEAN NOT NULL DEFAULT false,
  type INTEGER NOT NULL DEFAULT 1,
  sector TEXT NOT NULL DEFAULT '',
  per_component_id BIGINT REFERENCES app.per_form_components(id) ON DELETE SET NULL,
  country_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS app.ops_learning_cache_responses (
  id BIGSERIAL PRIMARY KEY,
  used_filters_hash TEXT NOT NULL UNIQUE,
  used_filters JSONB NOT NULL DEFAULT '{}',
  status INTEGER NOT NULL DEFAULT 1,
  insight1_title TEXT NOT NULL DEFAULT '', insight1_content TEXT NOT NULL DEFAULT '',
  insight2_title TEXT NOT NULL DEFAULT '', insight2_content TEXT NOT NULL DEFAULT '',
  insight3_title TEXT NOT NULL DEFAULT '', insight3_content TEXT NOT NULL DEFAULT '',
  sector_summaries JSONB NOT NULL DEFAULT '[]',
  contradictory_reports TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const createLocalUnitTables = `
CREATE TABLE IF NOT EXISTS app.local_units (
  id BIGSERIAL PRIMARY KEY,
  country_id BIGINT NOT NULL REFERENCES app.countries(id) ON DELETE CASCADE,
  type_id INTEGER NOT NULL,
  local_branch_name TEXT NOT NULL DEFAULT '',
  english_branch_name TEXT NOT NULL DEFAULT '',
  address_loc TEXT NOT NULL DEFAULT '',
  address_en TEXT NOT NULL DEFAULT '',
  city_loc TEXT NOT NULL DEFAULT '',
  city_en TEXT NOT NULL DEFAULT '',
  postcode TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  link TEXT NOT NULL DEFAULT '',
  location geometry(Point, 4326) NOT NULL,
  visibility INTEGER NOT NULL DEFAULT 1,
  validated BOOLEAN NOT NULL DEFAULT false,
  date_of_data DATE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_local_units_location ON app.local_units USING GIST (location);
`

const createDeploymentTables = `
CREATE TABLE IF NOT EXISTS app.personnel_deployments (
  id BIGSERIAL PRIMARY KEY,
  country_deployed_to_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  region_deployed_to_id INTEGER REFERENCES app.regions(id) ON DELETE SET NULL,
  event_deployed_to_id BIGINT REFERENCES app.events(id) ON DELETE SET NULL,
  comments TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS app.personnel (
  id BIGSERIAL PRIMARY KEY,
  deployment_id BIGINT NOT NULL REFERENCES app.personnel_deployments(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT '',
  type TEXT NOT NULL,
  country_from_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  start_date TIMESTAMPTZ,
  end_date TIMESTAMPTZ,
  is_active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS app.eru_owners (
  id BIGSERIAL PRIMARY KEY,
  national_society_country_id BIGINT NOT NULL UNIQUE REFERENCES app.countries(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS app.erus (
  id BIGSERIAL PRIMARY KEY,
  type INTEGER NOT NULL,
  units INTEGER NOT NULL DEFAULT 0,
  equipment_units INTEGER NOT NULL DEFAULT 0,
  eru_owner_id BIGINT NOT NULL REFERENCES app.eru_owners(id) ON DELETE CASCADE,
  deployed_to_id BIGINT REFERENCES app.countries(id) ON DELETE SET NULL,
  event_id BIGINT REFERENCES app.events(id) ON DELETE SET NULL,
  available BOOLEAN NOT NULL DEFAULT false
);
`

const createCountryPlanTables = `
CREATE TABLE IF NOT EXISTS app.country_plans (
  id BIGSERIAL PRIMARY KEY,
  country_id BIGINT NOT NULL UNIQUE REFERENCES app.countries(id) ON DELETE CASCADE,
  requested_amount NUMERIC(16,2),
  people_targeted INTEGER,
  is_publish BOOLEAN NOT NULL DEFAULT false,
  internal_plan_file TEXT NOT NULL DEFAULT '',
  public_plan_file TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS app.strategic_priorities (
  id BIGSERIAL PRIMARY KEY,
  country_plan_id BIGINT NOT NULL REFERENCES app.country_plans(id) ON DELETE CASCADE,
  type INTEGER NOT NULL,
  funding_requirement NUMERIC(16,2),
  people_targeted INTEGER,
  UNIQUE (country_plan_id, type)
);
`

const createTranslationTable = `
CREATE TABLE IF NOT EXISTS app.translations (
  id BIGSERIAL PRIMARY KEY,
  model TEXT NOT NULL,
  object_id BIGINT NOT NULL,
  field TEXT NOT NULL,
  language VARCHAR(8) NOT NULL,
  text TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (model, object_id, field, language)
);
`

const createAuthTables = `
CREATE TABLE IF NOT EXISTS app.users (
  id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL DEFAULT '',
  token_version INTEGER NOT NULL DEFAULT 0,
  roles TEXT[] NOT NULL DEFAULT '{user}',
  provider TEXT NOT NULL DEFAULT 'local',
  name TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_login_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS app.refresh_tokens (
  id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id UUID NOT NULL REFERENCES app.users(id) ON DELETE CASCADE,
  jti TEXT NOT NULL,
  token_hash TEXT NOT NULL,
  device_info TEXT,
  revoked BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_jti ON app.refresh_tokens (jti);
`

const seedLookups = `
INSERT INTO app.regions (id, name, label) VALUES
  (0, 'africa', 'Africa'),
  (1, 'americas', 'Americas'),
  (2, 'asia_pacific', 'Asia Pacific'),
  (3, 'europe', 'Europe'),
  (4, 'middle_east_north_africa', 'Middle East & North Africa')
ON CONFLICT (id) DO NOTHING;

INSERT INTO app.per_form_areas (area_num, title) VALUES
  (1, 'Policy strategy and standards'),
  (2, 'Analysis and planning'),
  (3, 'Operational capacity'),
  (4, 'Coordination'),
  (5, 'Operations support')
ON CONFLICT (area_num) DO NOTHING;
`
