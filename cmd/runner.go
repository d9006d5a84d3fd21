package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/calebmds/taskchain/internal/gate"
	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/repositories"
	"github.com/calebmds/taskchain/internal/server"
	"github.com/calebmds/taskchain/internal/service"
	"github.com/calebmds/taskchain/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, projectCommand, taskCommand, outlineCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// engine bundles the wired collaboration stack for one CLI invocation.
type engine struct {
	db         *sql.DB
	projects   *repositories.ProjectRepository
	tasks      *repositories.TaskRepository
	service    *service.TaskService
	hub        *realtime.Hub
	dispatcher *server.Dispatcher
}

func (e *engine) Close() error {
	return e.db.Close()
}

// openEngine opens the database and wires the full mutation pipeline:
// repositories, admission gate, broadcast hub, service, and the dispatcher
// with its middleware stack.
func (r *Runner) openEngine() (*engine, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	projects := repositories.NewProjectRepository(db)
	tasks := repositories.NewTaskRepository(db)
	hub := realtime.NewHub(r.logger)
	svc := service.NewTaskService(tasks, gate.New(r.config.Engine.GateCapacity), hub, r.logger)

	dispatcher := server.NewDispatcher(r.logger)
	dispatcher.Use(server.RateLimit(rate.Limit(r.config.Engine.ConnRateLimit), r.config.Engine.ConnRateBurst))
	dispatcher.Use(server.AccessFilter(projects))
	server.NewHandlers(svc, hub).Register(dispatcher)

	return &engine{
		db:         db,
		projects:   projects,
		tasks:      tasks,
		service:    svc,
		hub:        hub,
		dispatcher: dispatcher,
	}, nil
}

// cliConn is the local connection identity CLI invocations dispatch under.
// Broadcast deliveries to it are discarded; the CLI reads replies only.
type cliConn struct {
	id     string
	userID string
}

func (c cliConn) ID() string                { return c.id }
func (c cliConn) UserID() string            { return c.userID }
func (c cliConn) Send(realtime.Event) error { return nil }

// dispatch runs one named operation through the dispatcher under the given
// user identity and prints the reply.
func (r *Runner) dispatch(ctx context.Context, e *engine, userID, op string, params any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}

	conn := cliConn{id: shared.GenerateID(), userID: userID}
	reply := e.dispatcher.Dispatch(ctx, server.Request{Conn: conn, Op: op, Params: raw})

	if err := r.writeJSON(reply, true); err != nil {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("%s failed: %s (%s)", op, reply.Error, reply.Code)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
