package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javajack/xltransform"
	"github.com/javajack/xltransform/internal/server"
	"github.com/javajack/xltransform/internal/store"
)

func runCmd(a *app) *cobra.Command {
	var ref templateRef
	var quiet, plain bool

	c := &cobra.Command{
		Use:   "run <input> <output>",
		Short: "Transform an input workbook with a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Run.Timeout)
			defer cancel()

			tmpl, err := ref.load(ctx, a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			opts := append(a.engineOptions(), xltransform.WithObserver(func(n xltransform.Notification) {
				if n.Type == xltransform.NoteCell && !quiet {
					fmt.Fprintln(out, n)
				}
			}))
			var notes xltransform.Collector
			opts = append(opts, xltransform.WithObserver(notes.Observe))
			if !plain {
				opts = append(opts, xltransform.WithPreWrite(xltransform.AutoFit(a.cfg.Run.HeaderRows > 0)))
			}

			path, err := xltransform.ProcessFile(ctx, args[0], args[1], tmpl, opts...).Unwrap()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %s (%d warnings, %d errors)\n", path,
				countCells(notes, xltransform.SeverityWarning), countCells(notes, xltransform.SeverityError))
			return nil
		},
	}
	ref.bind(c)
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print per-cell notifications")
	c.Flags().BoolVar(&plain, "plain", false, "skip column sizing and header freezing in xlsx output")
	return c
}

func countCells(c xltransform.Collector, sev xltransform.Severity) int {
	n := 0
	for _, note := range c.Filter(xltransform.NoteCell) {
		if note.Severity == sev {
			n++
		}
	}
	return n
}

func validateCmd(a *app) *cobra.Command {
	var ref templateRef

	c := &cobra.Command{
		Use:   "validate",
		Short: "Check a template for structural problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl, err := ref.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			issues := xltransform.ValidateTemplate(tmpl)
			for _, i := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), i)
			}
			if xltransform.HasErrors(issues) {
				return fmt.Errorf("template %q is invalid", tmpl.Name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	ref.bind(c)
	return c
}

func describeCmd(a *app) *cobra.Command {
	var ref templateRef

	c := &cobra.Command{
		Use:   "describe",
		Short: "Print a template as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl, err := ref.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), xltransform.Describe(tmpl))
			return nil
		},
	}
	ref.bind(c)
	return c
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import templates from an interchange file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := readCatalog(args[0])
			if err != nil {
				return err
			}
			if !a.cfg.UsePostgres() {
				return errors.New("import needs DATABASE_URL; the in-memory store does not outlive the command")
			}
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			ids, err := store.ImportCatalog(cmd.Context(), st, cat)
			if err != nil {
				return err
			}
			for i, t := range cat.Templates() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", ids[i], t.Name)
			}
			return nil
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var format, output string

	c := &cobra.Command{
		Use:   "export",
		Short: "Export stored templates as an interchange file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			list, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			data, err := xltransform.Export(list, time.Now()).Marshal(format)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	c.Flags().StringVar(&format, "format", "yaml", "yaml or json")
	c.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return c
}

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			srv := server.New(st,
				server.WithRunOptions(a.engineOptions()...),
				server.WithRunTimeout(a.cfg.Run.Timeout),
				server.WithDataDir(a.cfg.Server.DataDir),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(a.cfg.Server.Addr) }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
