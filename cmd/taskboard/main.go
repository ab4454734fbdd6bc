package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/taskboard/internal/api"
	"github.com/kazz187/taskboard/internal/config"
	"github.com/kazz187/taskboard/internal/mirror"
	"github.com/kazz187/taskboard/internal/syncer"
	"github.com/kazz187/taskboard/internal/task"
	"github.com/kazz187/taskboard/internal/view"
	"github.com/kazz187/taskboard/pkg/clog"
	"github.com/kazz187/taskboard/pkg/panicerr"
)

const requestTimeout = 10 * time.Second

// updateSet records which update flags were given, so an empty value can
// clear a field.
var updateSet struct {
	title, description, status, priority, assignee, due bool
}

var (
	app     = kingpin.New("taskboard", "Task board client with a live, offline-capable local mirror.")
	noColor = app.Flag("no-color", "Disable colored output").Bool()

	// View commands
	watchCmd  = app.Command("watch", "Keep the mirror in sync and redraw a view on every change")
	watchView = watchCmd.Flag("view", "View to draw: list, board, stats or activity").Default(string(view.ModeBoard)).String()

	listCmd    = app.Command("list", "List tasks")
	listStatus = listCmd.Flag("status", "Only show tasks with this status (pending, in_progress, completed)").String()

	boardCmd    = app.Command("board", "Show tasks grouped by status")
	statsCmd    = app.Command("stats", "Show task counts")
	activityCmd = app.Command("activity", "Show recent activity")
	diffCmd     = app.Command("diff", "Show how the local mirror differs from the server")

	// Task commands
	createCmd         = app.Command("create", "Create a new task")
	createTitle       = createCmd.Arg("title", "Task title").Required().String()
	createDescription = createCmd.Flag("description", "Task description").Short('d').String()
	createStatus      = createCmd.Flag("status", "Initial status (pending, in_progress, completed)").Default(string(task.StatusPending)).String()
	createPriority    = createCmd.Flag("priority", "Task priority (low, medium, high)").Short('p').Default(string(task.DefaultPriority)).String()
	createAssignee    = createCmd.Flag("assignee", "Assignee").Short('a').String()
	createDue         = createCmd.Flag("due", "Due date (YYYY-MM-DD)").String()

	updateCmd         = app.Command("update", "Update a task")
	updateID          = updateCmd.Arg("id", "Task ID").Required().String()
	updateTitle       = updateCmd.Flag("title", "New title").IsSetByUser(&updateSet.title).String()
	updateDescription = updateCmd.Flag("description", "New description").Short('d').IsSetByUser(&updateSet.description).String()
	updateStatus      = updateCmd.Flag("status", "New status (pending, in_progress, completed)").IsSetByUser(&updateSet.status).String()
	updatePriority    = updateCmd.Flag("priority", "New priority (low, medium, high)").Short('p').IsSetByUser(&updateSet.priority).String()
	updateAssignee    = updateCmd.Flag("assignee", "New assignee").Short('a').IsSetByUser(&updateSet.assignee).String()
	updateDue         = updateCmd.Flag("due", "New due date (YYYY-MM-DD), empty to clear").IsSetByUser(&updateSet.due).String()

	deleteCmd = app.Command("delete", "Delete a task")
	deleteID  = deleteCmd.Arg("id", "Task ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadClientEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading env: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(
		clog.NewConnectTextHandler(os.Stderr, clog.WithLevel(env.SlogLevel()), clog.WithColor(!*noColor)),
	)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newClient(ctx, env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening mirror: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case watchCmd.FullCommand():
		var mode view.Mode
		if mode, err = view.ParseMode(*watchView); err == nil {
			err = c.watch(ctx, mode)
		}
	case listCmd.FullCommand():
		var f view.Filter
		if f, err = listFilter(*listStatus); err == nil {
			err = c.show(ctx, view.ModeList, f)
		}
	case boardCmd.FullCommand():
		err = c.show(ctx, view.ModeBoard, view.Filter{})
	case statsCmd.FullCommand():
		err = c.show(ctx, view.ModeStats, view.Filter{})
	case activityCmd.FullCommand():
		err = c.show(ctx, view.ModeActivity, view.Filter{})
	case diffCmd.FullCommand():
		err = c.diff(ctx)
	case createCmd.FullCommand():
		err = c.create(ctx)
	case updateCmd.FullCommand():
		err = c.update(ctx)
	case deleteCmd.FullCommand():
		err = c.delete(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	mirror   *mirror.Mirror
	syncer   *syncer.Syncer
	renderer *view.Renderer
}

func newClient(ctx context.Context, env *config.ClientEnv) (*client, error) {
	m, err := mirror.Open(ctx, env.ClientDir)
	if err != nil {
		return nil, err
	}
	var opts []connect.ClientOption
	if env.APIKey != "" {
		opts = append(opts, connect.WithInterceptors(api.NewAuthInterceptor(env.APIKey)))
	}
	s := syncer.New(m,
		api.NewTaskServiceClient(http.DefaultClient, env.ServerURL, opts...),
		api.NewEventServiceClient(http.DefaultClient, env.ServerURL, opts...),
		syncer.WithReconnectInterval(env.ReconnectInterval),
	)
	return &client{
		mirror:   m,
		syncer:   s,
		renderer: view.NewRenderer(os.Stdout, view.WithColor(!*noColor)),
	}, nil
}

// watch redraws the view on every mirror change until interrupted. The
// mirror is also reloaded when another client process rewrites it.
func (c *client) watch(ctx context.Context, mode view.Mode) error {
	c.mirror.Subscribe(func(snap mirror.Snapshot) {
		c.redraw(mode, snap)
	})
	c.redraw(mode, c.mirror.Snapshot())

	p := pool.New().WithContext(ctx)
	p.Go(panicerr.SafeContext(c.syncer.Run))
	p.Go(panicerr.SafeContext(func(ctx context.Context) error {
		return c.mirror.Watch(ctx)
	}))
	return p.Wait()
}

func (c *client) redraw(mode view.Mode, snap mirror.Snapshot) {
	// Clear the terminal and move the cursor home.
	fmt.Fprint(os.Stdout, "\033[H\033[2J")
	if err := c.renderer.Render(mode, snap, view.Filter{}); err != nil {
		slog.Error("failed to render view", "error", err)
		return
	}
	fmt.Fprintf(os.Stdout, "\n[%s] %d tasks\n", c.syncer.State(), len(snap.Tasks))
}

// refresh pulls the server state into the mirror. An unreachable server
// only produces a notice.
func (c *client) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	err := c.syncer.Refresh(ctx)
	if errors.Is(err, syncer.ErrChannelUnavailable) {
		fmt.Fprintln(os.Stderr, "(offline) showing the local mirror")
		return nil
	}
	return err
}

func (c *client) show(ctx context.Context, mode view.Mode, f view.Filter) error {
	if err := c.refresh(ctx); err != nil {
		return err
	}
	return c.renderer.Render(mode, c.mirror.Snapshot(), f)
}

func (c *client) diff(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	d, err := c.syncer.Diff(ctx)
	if err != nil {
		return err
	}
	if d == "" {
		fmt.Println("mirror is up to date")
		return nil
	}
	fmt.Print(d)
	return nil
}

func listFilter(status string) (view.Filter, error) {
	if status == "" {
		return view.Filter{}, nil
	}
	st, err := task.ParseStatus(status)
	if err != nil {
		return view.Filter{}, err
	}
	return view.Filter{Status: st}, nil
}

func (c *client) create(ctx context.Context) error {
	status, err := task.ParseStatus(*createStatus)
	if err != nil {
		return err
	}
	priority, err := task.ParsePriority(*createPriority)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := c.syncer.Create(ctx, task.Fields{
		Title:       *createTitle,
		Description: *createDescription,
		Status:      status,
		Priority:    priority,
		Assignee:    *createAssignee,
		DueDate:     *createDue,
	})
	if err != nil {
		return err
	}
	report("Created", res)
	return nil
}

func (c *client) update(ctx context.Context) error {
	var p task.Patch
	if updateSet.title {
		p.Title = updateTitle
	}
	if updateSet.description {
		p.Description = updateDescription
	}
	if updateSet.status {
		s, err := task.ParseStatus(*updateStatus)
		if err != nil {
			return err
		}
		p.Status = &s
	}
	if updateSet.priority {
		pr, err := task.ParsePriority(*updatePriority)
		if err != nil {
			return err
		}
		p.Priority = &pr
	}
	if updateSet.assignee {
		p.Assignee = updateAssignee
	}
	if updateSet.due {
		p.DueDate = updateDue
	}
	if p.Empty() {
		return errors.New("nothing to update")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := c.syncer.Update(ctx, *updateID, p)
	if err != nil {
		return err
	}
	report("Updated", res)
	return nil
}

func (c *client) delete(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := c.syncer.Delete(ctx, *deleteID)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s%s\n", *deleteID, offlineSuffix(res))
	return nil
}

func report(verb string, res *syncer.Result) {
	fmt.Printf("%s %s: %s [%s]%s\n", verb, res.Task.ID, res.Task.Title, res.Task.Status.Label(), offlineSuffix(res))
}

func offlineSuffix(res *syncer.Result) string {
	if res.Local {
		return " (offline)"
	}
	return ""
}
