// Command schoolctl talks to a running schooldesk API.
//
//	schoolctl snapshot
//	schoolctl login USERNAME PASSWORD
//	schoolctl call ACTION [PAYLOAD_JSON]
//	schoolctl export SHEET
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"schooldesk/internal/client"
	"schooldesk/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "schoolctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("schoolctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	url := fs.String("url", cfg.DispatchURL, "dispatch endpoint")
	token := fs.String("token", cfg.Token, "session token")
	timeout := fs.Duration("timeout", cfg.Timeout, "request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	c, err := client.New(*url,
		client.WithHTTPClient(&http.Client{Timeout: *timeout}),
		client.WithToken(*token),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "snapshot":
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, snap)

	case "login":
		if len(rest) != 2 {
			return errors.New("usage: login USERNAME PASSWORD")
		}
		id, err := c.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		if t := c.Token(); t != "" {
			fmt.Fprintln(stderr, "token:", t)
		}
		return printJSON(stdout, id)

	case "call":
		if len(rest) < 1 || len(rest) > 2 {
			return errors.New("usage: call ACTION [PAYLOAD_JSON]")
		}
		var payload any
		if len(rest) == 2 {
			if !json.Valid([]byte(rest[1])) {
				return errors.New("payload is not valid JSON")
			}
			payload = json.RawMessage(rest[1])
		}
		var out any
		if err := c.Call(ctx, rest[0], payload, &out); err != nil {
			return err
		}
		return printJSON(stdout, out)

	case "export":
		if len(rest) != 1 {
			return errors.New("usage: export SHEET")
		}
		recs, err := c.ExportTable(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, recs)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
