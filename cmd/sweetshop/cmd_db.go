package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/mithai/database/seeders"
	"github.com/shashiranjanraj/mithai/pkg/app"
	"github.com/shashiranjanraj/mithai/pkg/database"
	"github.com/shashiranjanraj/mithai/pkg/migration"
)

func migrator(db *gorm.DB) *migration.Runner {
	return migration.New(db, os.Stdout)
}

// withDB opens the configured database for the duration of fn.
func withDB(fn func(ctx context.Context, db *gorm.DB) error) error {
	ctx := context.Background()
	db, err := app.OpenDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)
	return fn(ctx, db)
}

// sweetshop migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Running migrations…")
			return migrator(db).Run(ctx)
		})
	},
}

// sweetshop migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Rolling back last batch…")
			return migrator(db).Rollback(ctx)
		})
	},
}

// sweetshop migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			return migrator(db).Status(ctx)
		})
	},
}

// sweetshop seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, categories, demo users and the sweet catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(ctx context.Context, db *gorm.DB) error {
			fmt.Println("Running seeders…")
			return seeders.RunAll(ctx, db, os.Stdout)
		})
	},
}
