package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/agendaclinica/agenda/libs/config"
	"github.com/alecthomas/kong"
)

type Globals struct {
	Timeout time.Duration `help:"Request timeout." default:"10s"`
}

type appContext struct {
	ctx    context.Context
	client *http.Client
	out    *os.File
}

var CLI struct {
	Globals

	Slots  SlotsCmd  `cmd:"" help:"List open booking slots for an attendant on a date."`
	Remind RemindCmd `cmd:"" help:"Run or preview a reminder cycle."`
	Health HealthCmd `cmd:"" help:"Query the reminder service gRPC health endpoint."`
}

func main() {
	_ = config.LoadDotEnv()

	kctx := kong.Parse(&CLI,
		kong.Name("agendactl"),
		kong.Description("Operator tool for the agenda and reminder services"),
		kong.UsageOnError(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), CLI.Timeout)
	defer cancel()

	app := &appContext{
		ctx:    ctx,
		client: &http.Client{Timeout: CLI.Timeout},
		out:    os.Stdout,
	}
	if err := kctx.Run(app); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
