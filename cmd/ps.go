package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/lambda-feedback/nodewarden/config"
	"github.com/lambda-feedback/nodewarden/internal/process"
	"github.com/lambda-feedback/nodewarden/internal/supervisor"
	"github.com/lambda-feedback/nodewarden/util/conf"
	"github.com/lambda-feedback/nodewarden/util/logging"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	psCmdDescription = `The ps command looks for running instances of the node
executable and prints each of them with its descendants.

The output is a table when printing to a terminal and JSON
otherwise, unless a format is selected with --output.`
	psCmd = &cli.Command{
		Name:        "ps",
		Usage:       "List running node processes.",
		Description: psCmdDescription,
		Before:      withConfig,
		Action:      psAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "The output format. Options: table, json, yaml.",
			},
		},
	}
)

// ProcessTree is a located node process with its descendants.
type ProcessTree struct {
	Pid       int           `json:"pid" yaml:"pid"`
	Processes []ProcessInfo `json:"processes" yaml:"processes"`
}

// ProcessInfo describes a single process of a tree.
type ProcessInfo struct {
	Pid       int       `json:"pid" yaml:"pid"`
	PPid      int       `json:"ppid" yaml:"ppid"`
	Depth     int       `json:"depth" yaml:"depth"`
	Name      string    `json:"name" yaml:"name"`
	Exe       string    `json:"exe,omitempty" yaml:"exe,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
}

func psAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	cfg, err := conf.GetConfigFromContext[config.Config](ctx.Context)
	if err != nil {
		return err
	}

	var remembered int
	if cfg.Supervisor.PidFile != "" {
		if remembered, err = supervisor.ReadPidFile(cfg.Supervisor.PidFile); err != nil {
			log.Warn(err.Error())
		}
	}

	locator := process.NewLocator(process.NewSystemTable(log), log)

	pids, err := locator.Find(ctx.Context, process.Candidate{
		Executable:    cfg.Supervisor.Node.Cmd,
		RememberedPid: remembered,
	})
	if err != nil {
		return err
	}

	snap, err := locator.Snapshot(ctx.Context)
	if err != nil {
		return err
	}

	trees := make([]ProcessTree, 0, len(pids))
	for _, pid := range pids {
		trees = append(trees, newProcessTree(snap, pid))
	}

	out := ctx.App.Writer

	format := ctx.String("output")
	if format == "" {
		format = defaultOutputFormat(out)
	}

	return writeTrees(out, format, trees, time.Now())
}

func newProcessTree(snap *process.Snapshot, pid int) ProcessTree {
	tree := ProcessTree{Pid: pid}

	for _, node := range snap.Tree(pid) {
		info := ProcessInfo{
			Pid:   node.Pid,
			PPid:  node.PPid,
			Depth: node.Depth,
			Name:  node.Name,
			Exe:   node.Exe,
		}
		if node.CreateTime > 0 {
			info.StartedAt = time.UnixMilli(node.CreateTime)
		}
		tree.Processes = append(tree.Processes, info)
	}

	return tree
}

func defaultOutputFormat(out io.Writer) string {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

func writeTrees(out io.Writer, format string, trees []ProcessTree, now time.Time) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(trees)

	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(trees); err != nil {
			return err
		}
		return enc.Close()

	case "table":
		if len(trees) == 0 {
			_, err := fmt.Fprintln(out, "no node process found")
			return err
		}

		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PID\tPPID\tAGE\tCOMMAND")
		for _, tree := range trees {
			for _, p := range tree.Processes {
				age := "-"
				if !p.StartedAt.IsZero() {
					age = units.HumanDuration(now.Sub(p.StartedAt))
				}
				name := strings.Repeat("  ", p.Depth) + p.Name
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", p.Pid, p.PPid, age, name)
			}
		}
		return w.Flush()

	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func init() {
	psCmd.Flags = append(psCmd.Flags, nodeFlags...)
	psCmd.Flags = append(psCmd.Flags, &cli.PathFlag{
		Name:     "pid-file",
		Usage:    "prefer the pid remembered in this file.",
		Category: "supervisor",
	})

	rootApp.Commands = append(rootApp.Commands, psCmd)
}
