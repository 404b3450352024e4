package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agendaclinica/agenda/libs/grpcx"
	"github.com/agendaclinica/agenda/libs/httpx"
)

type SlotsCmd struct {
	BaseURL   string `name:"base-url" help:"Agenda service base URL." env:"AGENDA_BASE_URL" default:"http://localhost:8090"`
	Attendant string `arg:"" help:"Attendant id."`
	Date      string `arg:"" help:"Civil date (YYYY-MM-DD)."`
	Duration  int    `help:"Service duration in minutes (0 keeps the schedule slot length)."`
}

func (c *SlotsCmd) Run(app *appContext) error {
	q := url.Values{}
	q.Set("date", c.Date)
	if c.Duration > 0 {
		q.Set("duration_minutes", fmt.Sprint(c.Duration))
	}
	endpoint := fmt.Sprintf("%s/api/v1/attendants/%s/slots?%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Attendant), q.Encode())

	var body struct {
		Slots []struct {
			Start           string `json:"start"`
			End             string `json:"end"`
			DurationMinutes int    `json:"duration_minutes"`
		} `json:"slots"`
	}
	if err := app.do(http.MethodGet, endpoint, "", &body); err != nil {
		return err
	}
	if len(body.Slots) == 0 {
		fmt.Fprintln(app.out, "no slots available")
		return nil
	}
	for _, s := range body.Slots {
		fmt.Fprintf(app.out, "%s-%s (%d min)\n", s.Start, s.End, s.DurationMinutes)
	}
	return nil
}

type RemindCmd struct {
	BaseURL string `name:"base-url" help:"Reminder service base URL." env:"REMINDER_BASE_URL" default:"http://localhost:8091"`
	APIKey  string `name:"api-key" help:"Reminder API key." env:"REMINDER_API_KEY"`
	DryRun  bool   `name:"dry-run" help:"Preview decisions without dispatching."`
	Now     string `help:"Evaluate at this RFC3339 instant instead of the server clock (past only unless --dry-run)."`
}

func (c *RemindCmd) Run(app *appContext) error {
	if c.Now != "" {
		if _, err := time.Parse(time.RFC3339, c.Now); err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}
	path, method := "/api/v1/reminders/trigger", http.MethodPost
	if c.DryRun {
		path, method = "/api/v1/reminders/preview", http.MethodGet
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if c.Now != "" {
		endpoint += "?now=" + url.QueryEscape(c.Now)
	}

	var out json.RawMessage
	if err := app.do(method, endpoint, c.APIKey, &out); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, string(pretty))
	return nil
}

type HealthCmd struct {
	Addr    string `help:"gRPC address." env:"REMINDER_GRPC_ADDR" default:"localhost:9091"`
	Service string `help:"Service name to check." default:"reminder-service"`
}

func (c *HealthCmd) Run(app *appContext) error {
	status, err := grpcx.CheckHealth(app.ctx, c.Addr, c.Service, grpcx.DialOptions{})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, status.String())
	return nil
}

func (a *appContext) do(method, endpoint, apiKey string, out any) error {
	req, err := http.NewRequestWithContext(a.ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(httpx.RequestIDHeader, grpcx.NewRequestID())
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status=%d body=%s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}
