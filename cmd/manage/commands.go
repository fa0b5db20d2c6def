package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go-api/internal/database"
	"go-api/internal/importer"
	"go-api/internal/models"
	"go-api/internal/scraper"
	"go-api/internal/services"
	"go-api/internal/storage"
	"go-api/internal/translate"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cmd.Context(), db, a.logr.Logger); err != nil {
				return err
			}
			a.logr.Info("migrations applied")
			return nil
		},
	}
}

func (a *app) newCreateUserCmd() *cobra.Command {
	var (
		email string
		name  string
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a local user account",
		Long:  "Create a local user account. The password is read from MANAGE_USER_PASSWORD.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("MANAGE_USER_PASSWORD")
			if password == "" {
				return errors.New("MANAGE_USER_PASSWORD is not set")
			}
			db, err := a.database()
			if err != nil {
				return err
			}
			svc := services.NewAuthService(db, nil, a.cfg, a.logr.Logger)
			user, err := svc.CreateUser(cmd.Context(), email, name, password, roles)
			if err != nil {
				return err
			}
			a.logr.Info("user created", zap.String("id", user.ID.String()), zap.Strings("roles", user.Roles))
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&roles, "role", []string{models.RoleUser}, "roles to grant, repeatable")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) newImportCountryPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "import-country-plans <workbook.xlsx>",
		Short:   "Import country plan figures from a spreadsheet",
		Example: "  manage import-country-plans country-plans-2025.xlsx",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			im := importer.New(services.NewCountryPlanService(db), a.logr.Logger, a.metrics)
			res, err := im.ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, e := range res.Errors {
				a.logr.Warn("row not imported", zap.Int("row", e.Row), zap.String("iso3", e.ISO3), zap.String("error", e.Error))
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func (a *app) newScrapeAppealDocsCmd() *cobra.Command {
	var feedURL string
	cmd := &cobra.Command{
		Use:   "scrape-appeal-docs",
		Short: "Download appeal documents from the feed and extract their figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			blobs, err := storage.New(a.cfg)
			if err != nil {
				return err
			}
			cat, err := scraper.LoadCatalogue(a.cfg.ScraperFieldsFile)
			if err != nil {
				return err
			}

			opts := scraper.OptionsFromConfig(a.cfg)
			if feedURL != "" {
				opts.FeedURL = feedURL
			}
			appeals := services.NewAppealService(db, services.NewTranslationService(db))
			s := scraper.New(opts, appeals, blobs, scraper.NewExtractor(cat, a.cfg.ScraperMatchScore), a.logr.Logger, a.metrics)

			report, err := s.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&feedURL, "feed", "", "feed URL, overrides APPEAL_DOCS_FEED_URL")
	return cmd
}

func (a *app) newTranslateCmd() *cobra.Command {
	var (
		only      []string
		languages []string
	)
	cmd := &cobra.Command{
		Use:     "translate",
		Short:   "Machine translate text fields that have no translation yet",
		Example: "  manage translate --model event --language fr",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := selectFields(only)
			if err != nil {
				return err
			}
			if len(languages) == 0 {
				languages = a.cfg.TranslationLanguages
			}
			provider, err := translate.NewProvider(a.cfg)
			if err != nil {
				return err
			}
			db, err := a.database()
			if err != nil {
				return err
			}

			r := translate.NewRunner(services.NewTranslationService(db), provider, languages, a.cfg.TranslationBatchSize, a.logr.Logger, a.metrics)
			res, err := r.Run(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringSliceVar(&only, "model", nil, "limit to these models (event, appeal, ...)")
	cmd.Flags().StringSliceVar(&languages, "language", nil, "target languages, overrides TRANSLATION_LANGUAGES")
	return cmd
}

// selectFields returns the translatable fields of the named models, or all
// of them when none are named.
func selectFields(only []string) ([]models.TranslatableField, error) {
	if len(only) == 0 {
		return models.TranslatableFields, nil
	}
	var out []models.TranslatableField
	for _, name := range only {
		found := false
		for _, f := range models.TranslatableFields {
			if f.Model == strings.TrimSpace(name) {
				out = append(out, f)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no translatable fields on model %q", name)
		}
	}
	return out, nil
}

func (a *app) newOpsLearningSummaryCmd() *cobra.Command {
	var params models.OpsLearningFilterParams
	cmd := &cobra.Command{
		Use:   "ops-learning-summary",
		Short: "Build, or return the cached, ops learning summary for a filter set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			svc := services.NewOpsLearningService(db, services.NewTranslationService(db), services.NewExtractiveSummarizer(), a.logr.Logger)
			summary, err := svc.GetOrCreateSummary(cmd.Context(), params)
			if err != nil {
				return err
			}
			a.metrics.SummaryRuns.WithLabelValues(models.CacheStatusNames[summary.Status]).Inc()
			a.logr.Info("ops learning summary", zap.String("hash", summary.UsedFiltersHash), zap.String("status", models.CacheStatusNames[summary.Status]))
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	f := cmd.Flags()
	f.Int64SliceVar(&params.Countries, "country", nil, "country ids")
	f.IntSliceVar(&params.Regions, "region", nil, "region ids")
	f.StringSliceVar(&params.Sectors, "sector", nil, "sector titles")
	f.Int64SliceVar(&params.PerComponents, "per-component", nil, "PER component ids")
	f.StringSliceVar(&params.AppealCodes, "appeal-code", nil, "appeal codes")
	f.StringVar(&params.Search, "search", "", "free text search")
	return cmd
}
