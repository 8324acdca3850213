// Command regtechctl manages the compliance catalog and runs one-off
// analyses against the configured database.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/regtech-advisor/internal/application"
	appadvisory "github.com/bryanwahyu/regtech-advisor/internal/application/advisory"
	appaudit "github.com/bryanwahyu/regtech-advisor/internal/application/audit"
	"github.com/bryanwahyu/regtech-advisor/internal/application/catalog"
	"github.com/bryanwahyu/regtech-advisor/internal/application/rules"
	"github.com/bryanwahyu/regtech-advisor/internal/config"
	"github.com/bryanwahyu/regtech-advisor/internal/domain/compliance"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/ai/offline"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/auditlog"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db"
	"github.com/bryanwahyu/regtech-advisor/internal/infra/db/sqlstore"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type env struct {
	conn    *sql.DB
	dialect sqlstore.Dialect
	catalog *sqlstore.CatalogRepository
	loader  *rules.Loader
	log     *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	root := &cobra.Command{
		Use:          "regtechctl",
		Short:        "Manage compliance frameworks and run advisory analyses",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config.yaml")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log to stderr")

	// open loads config and connects; the caller closes env.conn.
	open := func(ctx context.Context) (*env, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		conn, dialect, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log := zap.NewNop()
		if verbose {
			log, _ = zap.NewDevelopment()
		}
		repo := sqlstore.NewCatalogRepository(conn, dialect)
		return &env{conn: conn, dialect: dialect, catalog: repo, loader: rules.NewLoader(repo), log: log}, nil
	}

	root.AddCommand(
		migrateCmd(open),
		seedCmd(open),
		frameworksCmd(open),
		exportCmd(open),
		validateCmd(open),
		analyzeCmd(open),
	)
	return root
}

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

type opener func(context.Context) (*env, error)

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog, audit and analysis tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			if err := sqlstore.Migrate(cmd.Context(), e.conn, e.dialect); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s schema\n", e.dialect.Name)
			return nil
		},
	}
}

func seedCmd(open opener) *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "seed",
		Short: "Load frameworks, controls and articles from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			sum, err := (&catalog.Seeder{Writer: e.catalog, Logger: e.log}).Seed(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d frameworks, %d controls, %d articles, %d links\n",
				sum.Frameworks, sum.Controls, sum.Articles, sum.Edges)
			return nil
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "seeds/saudi-frameworks.yaml", "Seed YAML file")
	return c
}

func frameworksCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List the frameworks in the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			list, err := e.loader.Frameworks(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", f.ID, f.Code, f.Status, f.Name)
			}
			return nil
		},
	}
}

func exportCmd(open opener) *cobra.Command {
	var framework, format, outPath string
	c := &cobra.Command{
		Use:   "export",
		Short: "Export a framework's rules as json, xml, yaml or openapi",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := rules.ParseFormat(format)
			if err != nil {
				return err
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			doc, err := (&rules.Exporter{Loader: e.loader}).Export(cmd.Context(), compliance.FrameworkID(framework), f)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(doc.Content)
				return err
			}
			if err := os.WriteFile(outPath, doc.Content, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", outPath)
			return nil
		},
	}
	c.Flags().StringVar(&framework, "framework", "", "Framework id")
	c.Flags().StringVar(&format, "format", "json", "Output format: json, xml, yaml or openapi")
	c.Flags().StringVar(&outPath, "out", "", "Write to file instead of stdout")
	_ = c.MarkFlagRequired("framework")
	return c
}

func validateCmd(open opener) *cobra.Command {
	var framework, dataPath string
	c := &cobra.Command{
		Use:   "validate",
		Short: "Check a JSON evidence object keyed by control code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(dataPath)
			if err != nil {
				return err
			}
			var data map[string]any
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse %s: %w", dataPath, err)
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			res, err := (&rules.Validator{Loader: e.loader}).Validate(cmd.Context(), compliance.FrameworkID(framework), data)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), res)
		},
	}
	c.Flags().StringVar(&framework, "framework", "", "Framework id")
	c.Flags().StringVar(&dataPath, "data", "", "JSON evidence file")
	_ = c.MarkFlagRequired("framework")
	_ = c.MarkFlagRequired("data")
	return c
}

// analyzeCmd runs the advisory pipeline with the offline analyzer so the
// catalog and citation mapping can be checked without a model key.
func analyzeCmd(open opener) *cobra.Command {
	var framework, docPath, user string
	c := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a document offline and print the advisory result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := os.ReadFile(docPath)
			if err != nil {
				return err
			}
			e, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer e.conn.Close()
			clock := application.SystemClock{}
			svc := &appadvisory.Service{
				Rules:  e.loader,
				AI:     offline.Analyzer{},
				Audit:  appaudit.NewLogger(auditlog.NewMemoryStore(), clock),
				Clock:  clock,
				Logger: e.log,
			}
			res, err := svc.AnalyzeDocument(cmd.Context(), appadvisory.AnalyzeCommand{
				TenantID:     "cli",
				UserID:       user,
				FrameworkID:  compliance.FrameworkID(framework),
				DocumentText: string(doc),
			})
			if err != nil {
				if appadvisory.IsNotFound(err) {
					return fmt.Errorf("framework %q has no rules: %w", framework, err)
				}
				return err
			}
			return writeIndented(cmd.OutOrStdout(), res)
		},
	}
	c.Flags().StringVar(&framework, "framework", "", "Framework id")
	c.Flags().StringVar(&docPath, "doc", "", "Document text file")
	c.Flags().StringVar(&user, "user", currentUser(), "User recorded in the audit trail")
	_ = c.MarkFlagRequired("framework")
	_ = c.MarkFlagRequired("doc")
	return c
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "regtechctl"
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
