package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/taekwondodev/go-BaaS-Client/internal/client"
	"github.com/taekwondodev/go-BaaS-Client/internal/hooks"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
	"github.com/taekwondodev/go-BaaS-Client/internal/repository"
	"github.com/taekwondodev/go-BaaS-Client/internal/service"
)

var filterFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:  "eq",
		Usage: "Equality filter as COLUMN=VALUE, repeatable",
	},
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Read rows from a table",
		ArgsUsage: "TABLE",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "columns", Value: "*", Usage: "Column list"},
			&cli.StringSliceFlag{Name: "order", Usage: "Order as COLUMN or COLUMN.desc, repeatable"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of rows"},
			&cli.BoolFlag{Name: "single", Usage: "Expect exactly one row"},
		}, filterFlags...),
		Action: withContainer(func(c *cli.Context, app *container) error {
			q, err := tableQuery(c, app)
			if err != nil {
				return err
			}
			for _, o := range c.StringSlice("order") {
				column, dir, _ := strings.Cut(o, ".")
				q = q.Order(column, !strings.EqualFold(dir, "desc"))
			}
			if n := c.Int("limit"); n > 0 {
				q = q.Limit(n)
			}

			if c.Bool("single") {
				row, err := q.Single(c.Context, c.String("columns"))
				if err != nil {
					return err
				}
				return printJSON(row)
			}
			rows, err := q.Select(c.Context, c.String("columns"))
			if err != nil {
				return err
			}
			return printJSON(rows)
		}),
	}
}

func insertCommand() *cli.Command {
	return &cli.Command{
		Name:      "insert",
		Usage:     "Insert rows given as a JSON object or array",
		ArgsUsage: "TABLE JSON",
		Action: withContainer(func(c *cli.Context, app *container) error {
			q, err := tableQuery(c, app)
			if err != nil {
				return err
			}
			rows, err := parseRows(c.Args().Get(1))
			if err != nil {
				return err
			}
			inserted, err := q.Insert(c.Context, rows...)
			if err != nil {
				return err
			}
			return printJSON(inserted)
		}),
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update the rows matching the filters",
		ArgsUsage: "TABLE JSON",
		Flags:     filterFlags,
		Action: withContainer(func(c *cli.Context, app *container) error {
			q, err := tableQuery(c, app)
			if err != nil {
				return err
			}
			values, err := parseObject(c.Args().Get(1))
			if err != nil {
				return err
			}
			updated, err := q.Update(c.Context, values)
			if err != nil {
				return err
			}
			return printJSON(updated)
		}),
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete the rows matching the filters",
		ArgsUsage: "TABLE",
		Flags:     filterFlags,
		Action: withContainer(func(c *cli.Context, app *container) error {
			q, err := tableQuery(c, app)
			if err != nil {
				return err
			}
			deleted, err := q.Delete(c.Context)
			if err != nil {
				return err
			}
			return printJSON(deleted)
		}),
	}
}

func rpcCommand() *cli.Command {
	return &cli.Command{
		Name:      "rpc",
		Usage:     "Call a database function with named parameters",
		ArgsUsage: "FUNCTION [JSON]",
		Action: withContainer(func(c *cli.Context, app *container) error {
			fn := c.Args().First()
			if fn == "" {
				return cli.Exit("function name is required", 1)
			}
			params, err := parseObject(c.Args().Get(1))
			if err != nil {
				return err
			}
			rows, err := app.client.RPC(c.Context, fn, params)
			if err != nil {
				return err
			}
			return printJSON(rows)
		}),
	}
}

func uploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a local file to a bucket",
		ArgsUsage: "BUCKET PATH FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "upsert", Usage: "Overwrite an existing object"},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			if c.NArg() != 3 {
				return cli.Exit("usage: upload BUCKET PATH FILE", 1)
			}
			f, err := os.Open(c.Args().Get(2))
			if err != nil {
				return err
			}
			defer f.Close()

			obj, err := app.client.Storage().Upload(c.Context, c.Args().Get(0), c.Args().Get(1), f,
				service.UploadOptions{Upsert: c.Bool("upsert")})
			if err != nil {
				return err
			}
			return printJSON(obj)
		}),
	}
}

func publicURLCommand() *cli.Command {
	return &cli.Command{
		Name:      "public-url",
		Usage:     "Print the public URL of an object",
		ArgsUsage: "BUCKET PATH",
		Action: withContainer(func(c *cli.Context, app *container) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: public-url BUCKET PATH", 1)
			}
			fmt.Println(app.client.Storage().GetPublicURL(c.Args().Get(0), c.Args().Get(1)))
			return nil
		}),
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove objects from a bucket",
		ArgsUsage: "BUCKET PATH...",
		Action: withContainer(func(c *cli.Context, app *container) error {
			if c.NArg() < 2 {
				return cli.Exit("usage: remove BUCKET PATH...", 1)
			}
			removed, err := app.client.Storage().Remove(c.Context, c.Args().First(), c.Args().Tail())
			if err != nil {
				return err
			}
			return printJSON(removed)
		}),
	}
}

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "Print row changes of a table until interrupted",
		ArgsUsage: "TABLE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "event", Value: "*", Usage: "INSERT, UPDATE, DELETE or *"},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			table := c.Args().First()
			if table == "" {
				return cli.Exit("table is required", 1)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt := app.client.Realtime()
			sub, err := rt.Subscribe(ctx, table, func(change models.Change) {
				_ = printJSON(change)
			}, models.ChangeType(strings.ToUpper(c.String("event"))))
			if err != nil {
				return err
			}

			select {
			case <-ctx.Done():
			case <-sub.Done():
			}
			return rt.Unsubscribe(sub)
		}),
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "GET a path of the HTTP API with the stored bearer token",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "param", Usage: "Query parameter as KEY=VALUE, repeatable"},
		},
		Action: withContainer(func(c *cli.Context, app *container) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("path is required", 1)
			}
			params, err := parsePairs(c.StringSlice("param"))
			if err != nil {
				return err
			}

			fetch := hooks.NewFetch(hooks.HTTPGet[any](app.http), hooks.WithOnChange(func(s hooks.State[any]) {
				app.log.Debug("fetch state changed", "path", path, "status", s.Status.String())
			}))
			fetch.Mount(path, params)
			fetch.Wait()
			state := fetch.State()
			fetch.Unmount()

			if state.Err != nil {
				return state.Err
			}
			return printJSON(state.Data)
		}),
	}
}

func tableQuery(c *cli.Context, app *container) (*client.Query, error) {
	table := c.Args().First()
	if table == "" {
		return nil, cli.Exit("table is required", 1)
	}
	q := app.client.From(table)

	filters, err := parsePairs(c.StringSlice("eq"))
	if err != nil {
		return nil, err
	}
	for column, value := range filters {
		q = q.Eq(column, value)
	}
	return q, nil
}

func parsePairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, expected KEY=VALUE", p)
		}
		out[k] = v
	}
	return out, nil
}

func parseObject(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return out, nil
}

func parseRows(raw string) ([]repository.Row, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var rows []repository.Row
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return rows, nil
	}

	row, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return []repository.Row{row}, nil
}
