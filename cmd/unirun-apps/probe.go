package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/machinefabric/unirun-apps/unirun"
)

func probeCommand(c *cli.Context) error {
	_, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Sync()

	bin := c.String("provider")
	if bin == "" {
		if bin, err = os.Executable(); err != nil {
			return fmt.Errorf("failed to locate provider executable: %w", err)
		}
	}

	var args []string
	if path := c.String("config"); path != "" {
		args = append(args, "--config", path)
	}
	args = append(args, "serve")

	cmd := exec.CommandContext(c.Context, bin, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start provider %s: %w", bin, err)
	}
	log.Debug("provider started", zap.String("bin", bin), zap.Int("pid", cmd.Process.Pid))

	conn := unirun.NewConn(stdout, stdin, stdin)
	probeErr := probe(unirun.NewClient(conn), probeOptions{
		Query:    strings.Join(c.Args().Slice(), " "),
		Limit:    c.Int("limit"),
		Activate: c.Bool("activate"),
	}, c.App.Writer)
	conn.Close()

	if err := cmd.Wait(); err != nil && probeErr == nil {
		return fmt.Errorf("provider exited: %w", err)
	}
	return probeErr
}

type probeOptions struct {
	Query    string
	Limit    int
	Activate bool
}

// probe runs one search, optionally launches the first hit, and quits the
// provider. Hits are printed as tab-separated id, title and description.
func probe(client *unirun.Client, opts probeOptions, w io.Writer) error {
	var hits []unirun.Hit
	err := client.Search(opts.Query, func(hit unirun.Hit) bool {
		hits = append(hits, hit)
		fmt.Fprintf(w, "%s\t%s\t%s\n", hit.ID, hit.Title, hit.Description)
		return opts.Limit <= 0 || len(hits) < opts.Limit
	})
	if err != nil {
		return fmt.Errorf("search %q: %w", opts.Query, err)
	}

	if opts.Activate {
		if len(hits) == 0 {
			return fmt.Errorf("no hits for %q", opts.Query)
		}
		if err := client.Activate(hits[0].ID); err != nil {
			return fmt.Errorf("activate %s: %w", hits[0].ID, err)
		}
		fmt.Fprintf(w, "launched %s\n", hits[0].ID)
	}

	return client.Quit()
}
