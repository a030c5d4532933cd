// Package main is the operator CLI: seat usage, waitlists, payments and staff accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vighneshparab/SkyWings-sub000/config"
	"github.com/vighneshparab/SkyWings-sub000/internal/auth"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
	"github.com/vighneshparab/SkyWings-sub000/internal/reports"
	"github.com/vighneshparab/SkyWings-sub000/pkg/database"
)

func main() {
	cfg, err := config.Load()
	errAndDie(err)

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), zap.NewNop())
	errAndDie(err)
	defer pool.Close()

	cli := &commandLine{
		out:      os.Stdout,
		reports:  reports.NewRepository(pool),
		payments: payments.NewRepository(pool),
		users:    auth.NewRepository(pool),
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		pool.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
