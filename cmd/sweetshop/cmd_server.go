package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/mithai/internal/kernel"
	"github.com/shashiranjanraj/mithai/pkg/app"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/logger"
)

var migrateOnServe bool

// sweetshop serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server and the maintenance scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := app.Boot(ctx)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := a.Close(closeCtx); err != nil {
				logger.Error("shutdown", "error", err)
			}
		}()

		if migrateOnServe {
			if err := migrator(a.DB).Run(ctx); err != nil {
				return err
			}
		}
		return a.Serve(ctx)
	},
}

// sweetshop route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		k := kernel.New(kernel.Options{Tokens: auth.NewTokenManager("route-list", time.Minute)})

		infos := k.Router.Routes()
		if len(infos) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnServe, "migrate", false, "Run pending migrations before serving")
}
