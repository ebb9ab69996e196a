// Package main is the entry point for the organization quota service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/router-for-me/OrgQuotaService/internal/app"
	"github.com/router-for-me/OrgQuotaService/internal/buildinfo"
	"github.com/router-for-me/OrgQuotaService/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (%s %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	cfg := config.AppConfig{ConfigPath: *configPath}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "migrate":
		if err := app.Migrate(ctx, cfg); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.Info("migrations applied")
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
		username := fs.String("username", "", "admin username")
		password := fs.String("password", "", "admin password")
		super := fs.Bool("super", false, "grant super admin")
		if err := fs.Parse(flag.Args()[1:]); err != nil {
			log.WithError(err).Fatal("parse create-admin flags failed")
		}
		params := app.CreateAdminParams{
			Username:     *username,
			Password:     *password,
			IsSuperAdmin: *super,
		}
		if err := app.CreateAdmin(ctx, cfg, params); err != nil {
			log.WithError(err).Fatal("create admin failed")
		}
		log.Infof("admin %s created", *username)
	default:
		if err := app.RunServer(ctx, cfg); err != nil {
			log.WithError(err).Fatal("server exited")
		}
	}
}
