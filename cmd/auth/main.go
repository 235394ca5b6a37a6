package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/aussiebroadwan/tenantauth/internal/auth/app"
)

var cli struct {
	Version kong.VersionFlag `help:"Print the build version and exit."`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the auth HTTP service."`
	Migrate MigrateCmd `cmd:"" help:"Manage the database schema."`
}

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("auth"),
		kong.Description("Multi-tenant authentication and session service. Configured through the environment."),
		kong.Vars{"version": app.BuildVersion},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	cmd.FatalIfErrorf(cmd.Run())
}
