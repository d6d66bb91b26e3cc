// Package cli implements the xltransform command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javajack/xltransform"
	"github.com/javajack/xltransform/internal/config"
	"github.com/javajack/xltransform/internal/logging"
	"github.com/javajack/xltransform/internal/store"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	envFile string
	cfg     *config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "xltransform",
		Short:         "Template-driven spreadsheet transformation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDotenv(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(
		runCmd(a),
		validateCmd(a),
		describeCmd(a),
		importCmd(a),
		exportCmd(a),
		serveCmd(a),
	)
	return cmd
}

// openStore returns the Postgres store when DATABASE_URL is set, else an
// empty in-memory store. The returned func releases it.
func (a *app) openStore(ctx context.Context) (store.Store, func(), error) {
	if !a.cfg.UsePostgres() {
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.OpenPostgres(ctx, a.cfg.Database.URL, a.cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}

// engineOptions translates run configuration into engine options.
func (a *app) engineOptions() []xltransform.Option {
	opts := []xltransform.Option{
		xltransform.WithHeaderRows(a.cfg.Run.HeaderRows),
		xltransform.WithProgressInterval(a.cfg.Run.ProgressInterval),
		xltransform.WithResolver(xltransform.NewResolver(
			xltransform.WithUnresolvedMarker(a.cfg.Run.UnresolvedMarker),
			xltransform.WithReferenceYear(a.cfg.Run.ReferenceYear),
		)),
	}
	if a.cfg.Run.Sheet != "" {
		opts = append(opts, xltransform.WithSheet(a.cfg.Run.Sheet))
	}
	return opts
}

// templateRef selects a template either from an interchange file or from the store.
type templateRef struct {
	file string
	name string
	id   int64
}

func (r *templateRef) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&r.file, "template-file", "f", "", "interchange file (yaml or json) holding the template")
	cmd.Flags().StringVarP(&r.name, "name", "n", "", "template name inside --template-file (default: first)")
	cmd.Flags().Int64Var(&r.id, "template-id", 0, "id of a stored template")
}

func (r *templateRef) load(ctx context.Context, a *app) (*xltransform.Template, error) {
	switch {
	case r.file != "":
		return loadTemplateFile(r.file, r.name)
	case r.id != 0:
		st, closeStore, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer closeStore()
		return st.Load(ctx, xltransform.TemplateID(r.id))
	default:
		return nil, fmt.Errorf("one of --template-file or --template-id is required")
	}
}

func loadTemplateFile(path, name string) (*xltransform.Template, error) {
	cat, err := readCatalog(path)
	if err != nil {
		return nil, err
	}
	for _, t := range cat.Templates() {
		if name == "" || t.Name == name {
			return t, nil
		}
	}
	if name != "" {
		return nil, fmt.Errorf("template %q not found in %s", name, path)
	}
	return nil, fmt.Errorf("no templates in %s", path)
}

func readCatalog(path string) (*xltransform.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ic, err := xltransform.ParseInterchange(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return xltransform.Import(ic)
}
