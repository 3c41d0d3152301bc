// Package todo implements the todo command-line client.
package todo

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BuzzLyutic/todo-api/internal/client"
	"github.com/BuzzLyutic/todo-api/internal/model"
)

const (
	defaultServer = "http://localhost:8080"
	maxPageSize   = 100
)

// ErrUsage is returned for malformed command lines.
var ErrUsage = errors.New("usage")

// ErrDuplicateTitle is returned by add when a task with the same title exists.
var ErrDuplicateTitle = errors.New("task with this title already exists")

// Config holds the parsed command line.
type Config struct {
	Server  string
	Token   string
	Command string
	Args    []string
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses global flags into a Config. The first positional
// argument is the command name.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		Server: envOrDefault(lookup, "TODO_SERVER", defaultServer),
		Token:  envOrDefault(lookup, "TODO_TOKEN", ""),
	}
	fs.StringVar(&cfg.Server, "server", cfg.Server, "API base URL (env TODO_SERVER)")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "access token (env TODO_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, fmt.Errorf("%w: todo [-server URL] [-token T] <signup|login|add|list|done|undone|edit|rm> ...", ErrUsage)
	}
	cfg.Command = rest[0]
	cfg.Args = rest[1:]
	return cfg, nil
}

func envOrDefault(lookup EnvLookup, key, def string) string {
	if lookup == nil {
		return def
	}
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Run executes one command against the API.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	c := client.New(cfg.Server).WithToken(cfg.Token)

	switch cfg.Command {
	case "signup":
		return runSignup(ctx, c, cfg.Args, out)
	case "login":
		return runLogin(ctx, c, cfg.Args, out)
	case "add":
		return runAdd(ctx, c, cfg.Args, out, errOut)
	case "list":
		return runList(ctx, c, cfg.Args, out, errOut)
	case "done", "undone":
		return runSetDone(ctx, c, cfg.Args, cfg.Command == "done", out)
	case "edit":
		return runEdit(ctx, c, cfg.Args, out, errOut)
	case "rm":
		return runRemove(ctx, c, cfg.Args, out)
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cfg.Command)
	}
}

func runSignup(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: todo signup <email> <password>", ErrUsage)
	}
	user, err := c.Signup(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (id %d)\n", user.Email, user.ID)
	return nil
}

func runLogin(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: todo login <email> <password>", ErrUsage)
	}
	token, err := c.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func runAdd(ctx context.Context, c *client.Client, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(errOut)
	desc := fs.String("desc", "", "description")
	due := fs.String("due", "", "due date (RFC 3339 or YYYY-MM-DD[THH:MM:SS])")
	if err := fs.Parse(args); err != nil {
		return err
	}

	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		return fmt.Errorf("%w: todo add [-desc D] [-due T] <title>", ErrUsage)
	}

	existing, err := c.AllTasks(ctx, 0)
	if err != nil {
		return err
	}
	for _, t := range existing {
		if strings.EqualFold(strings.TrimSpace(t.Title), title) {
			return fmt.Errorf("%w: %q (id %d)", ErrDuplicateTitle, t.Title, t.ID)
		}
	}

	draft := model.TaskDraft{Title: title}
	if *desc != "" {
		draft.Description = desc
	}
	if *due != "" {
		ts, err := model.ParseTimestamp(*due)
		if err != nil {
			return err
		}
		draft.DueDate = &ts
	}

	task, err := c.CreateTask(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "added task %d\n", task.ID)
	return nil
}

func runList(ctx context.Context, c *client.Client, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	page := fs.Int("page", 0, "1-based page number (0 lists everything)")
	size := fs.Int("size", 10, "page size (at most 100)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *page < 0 || *size < 1 || *size > maxPageSize {
		return fmt.Errorf("%w: -page must be >= 0 and -size between 1 and %d", ErrUsage, maxPageSize)
	}

	var (
		tasks []model.Task
		err   error
	)
	if *page == 0 {
		tasks, err = c.AllTasks(ctx, *size)
	} else {
		tasks, err = c.ListTasks(ctx, (*page-1)*(*size), *size)
	}
	if err != nil {
		return err
	}

	printTasks(out, tasks)
	return nil
}

func printTasks(out io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no tasks")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tDUE\tDESCRIPTION")
	for _, t := range tasks {
		mark := " "
		if t.Done {
			mark = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.UTC().Format(time.DateTime)
		}
		desc := "-"
		if t.Description != nil && *t.Description != "" {
			desc = *t.Description
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\n", t.ID, mark, t.Title, due, desc)
	}
	tw.Flush()
}

func runSetDone(ctx context.Context, c *client.Client, args []string, done bool, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: todo done|undone <id>", ErrUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	task, err := c.UpdateTask(ctx, id, model.TaskPatch{Done: &done})
	if err != nil {
		return err
	}
	state := "open"
	if task.Done {
		state = "done"
	}
	fmt.Fprintf(out, "task %d is %s\n", task.ID, state)
	return nil
}

func runEdit(ctx context.Context, c *client.Client, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(errOut)
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new description")
	clearDesc := fs.Bool("clear-desc", false, "remove the description")
	due := fs.String("due", "", "new due date")
	clearDue := fs.Bool("clear-due", false, "remove the due date")
	if len(args) == 0 {
		return fmt.Errorf("%w: todo edit <id> [-title T] [-desc D|-clear-desc] [-due T|-clear-due]", ErrUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var p model.TaskPatch
	if *title != "" {
		p.Title = title
	}
	switch {
	case *clearDesc:
		p.Description = model.Null[string]()
	case *desc != "":
		p.Description = model.Some(*desc)
	}
	switch {
	case *clearDue:
		p.DueDate = model.Null[time.Time]()
	case *due != "":
		ts, err := model.ParseTimestamp(*due)
		if err != nil {
			return err
		}
		p.DueDate = model.Some(ts)
	}
	if p.Empty() {
		return fmt.Errorf("%w: nothing to change", ErrUsage)
	}

	task, err := c.UpdateTask(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "updated task %d\n", task.ID)
	return nil
}

func runRemove(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: todo rm <id>", ErrUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.DeleteTask(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted task %d\n", id)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid task id %q", ErrUsage, s)
	}
	return id, nil
}
