package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/calebmds/taskchain/internal/gate"
	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/repositories"
	"github.com/calebmds/taskchain/internal/server"
	"github.com/calebmds/taskchain/internal/service"
	"github.com/calebmds/taskchain/internal/shared"
	internaltesting "github.com/calebmds/taskchain/internal/testing"
)

type env struct {
	dispatcher *server.Dispatcher
	hub        *realtime.Hub
	projects   *repositories.ProjectRepository
	project    *models.Project
}

// newEnv wires the full dispatch stack over an in-memory database: rate
// limit, access filter, handlers.
func newEnv(t *testing.T, limit rate.Limit, burst int) *env {
	t.Helper()

	db := internaltesting.SetupTestDB(t)
	logger := shared.NewLogger(nil)

	projects := repositories.NewProjectRepository(db)
	tasks := repositories.NewTaskRepository(db)
	hub := realtime.NewHub(logger)
	svc := service.NewTaskService(tasks, gate.New(0), hub, logger)

	dispatcher := server.NewDispatcher(logger)
	dispatcher.Use(server.RateLimit(limit, burst))
	dispatcher.Use(server.AccessFilter(projects))
	server.NewHandlers(svc, hub).Register(dispatcher)

	project, err := projects.Create(context.Background(), "alice", "Dispatch")
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	return &env{dispatcher: dispatcher, hub: hub, projects: projects, project: project}
}

func (e *env) dispatch(t *testing.T, conn realtime.Conn, op string, params map[string]any) server.Reply {
	t.Helper()

	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	return e.dispatcher.Dispatch(context.Background(), server.Request{Conn: conn, Op: op, Params: raw})
}

func (e *env) params(extra map[string]any) map[string]any {
	params := map[string]any{"project_id": fmt.Sprintf("%d", e.project.ID)}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func TestDispatcher(t *testing.T) {
	t.Run("UnknownOperation", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		conn := internaltesting.NewRecordingConn("c1", "alice")

		reply := e.dispatch(t, conn, "task/frobnicate", e.params(nil))
		if reply.OK || reply.Code != shared.KindValidation {
			t.Errorf("expected validation reply for unknown op, got %+v", reply)
		}
	})

	t.Run("OwnerCanMutate", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		conn := internaltesting.NewRecordingConn("c1", "alice")

		reply := e.dispatch(t, conn, "task/add", e.params(nil))
		if !reply.OK {
			t.Fatalf("expected success, got %+v", reply)
		}

		result, ok := reply.Result.(map[string]any)
		if !ok {
			t.Fatalf("expected result map, got %T", reply.Result)
		}
		if _, ok := result["task"]; !ok {
			t.Errorf("expected task in result, got %v", result)
		}
	})

	t.Run("StrangerDenied", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		conn := internaltesting.NewRecordingConn("c1", "mallory")

		reply := e.dispatch(t, conn, "task/add", e.params(nil))
		if reply.OK || reply.Code != shared.KindAccessDenied {
			t.Errorf("expected access denied, got %+v", reply)
		}
	})

	t.Run("CollaboratorAdmitted", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		if err := e.projects.AddCollaborator(context.Background(), e.project.ID, "bob"); err != nil {
			t.Fatalf("failed to add collaborator: %v", err)
		}

		conn := internaltesting.NewRecordingConn("c1", "bob")
		reply := e.dispatch(t, conn, "task/add", e.params(nil))
		if !reply.OK {
			t.Errorf("collaborator should be admitted, got %+v", reply)
		}
	})

	t.Run("UnparsableProjectID", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		conn := internaltesting.NewRecordingConn("c1", "alice")

		for _, bad := range []any{"abc", "-3", ""} {
			reply := e.dispatch(t, conn, "task/add", map[string]any{"project_id": bad})
			if reply.OK || reply.Code != shared.KindValidation {
				t.Errorf("project_id %q: expected validation reply, got %+v", bad, reply)
			}
			if !strings.Contains(reply.Error, "invalid identifier") {
				t.Errorf("project_id %q: expected invalid identifier message, got %q", bad, reply.Error)
			}
		}
	})

	t.Run("RateLimitExhaustion", func(t *testing.T) {
		e := newEnv(t, 1, 2)
		conn := internaltesting.NewRecordingConn("c1", "alice")

		for i := 0; i < 2; i++ {
			if reply := e.dispatch(t, conn, "outline/get", e.params(nil)); !reply.OK {
				t.Fatalf("call %d within burst failed: %+v", i, reply)
			}
		}

		reply := e.dispatch(t, conn, "outline/get", e.params(nil))
		if reply.OK || reply.Code != shared.KindUnavailable {
			t.Errorf("expected unavailable after burst, got %+v", reply)
		}

		// Other connections keep their own budget.
		other := internaltesting.NewRecordingConn("c2", "alice")
		if reply := e.dispatch(t, other, "outline/get", e.params(nil)); !reply.OK {
			t.Errorf("fresh connection should not be throttled, got %+v", reply)
		}
	})
}

func TestDispatcherRealtimeFlow(t *testing.T) {
	t.Run("JoinDeliversSnapshotThenDeltas", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		editor := internaltesting.NewRecordingConn("c1", "alice")
		watcher := internaltesting.NewRecordingConn("c2", "alice")

		if reply := e.dispatch(t, editor, "task/add", e.params(nil)); !reply.OK {
			t.Fatalf("seed add failed: %+v", reply)
		}

		reply := e.dispatch(t, watcher, "project/join", e.params(nil))
		if !reply.OK {
			t.Fatalf("join failed: %+v", reply)
		}

		events := watcher.Events()
		if len(events) != 1 || events[0].Kind != realtime.OutlineJoined {
			t.Fatalf("expected outline_joined snapshot, got %+v", events)
		}
		if len(events[0].Tasks) != 1 {
			t.Errorf("snapshot should carry the existing task, got %d", len(events[0].Tasks))
		}

		if reply := e.dispatch(t, editor, "task/add", e.params(nil)); !reply.OK {
			t.Fatalf("second add failed: %+v", reply)
		}

		events = watcher.Events()
		if len(events) != 2 || events[1].Kind != realtime.TaskAdded {
			t.Errorf("expected task_added delta after join, got %+v", events)
		}
	})

	t.Run("LeaveStopsDeltas", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		editor := internaltesting.NewRecordingConn("c1", "alice")
		watcher := internaltesting.NewRecordingConn("c2", "alice")

		if reply := e.dispatch(t, watcher, "project/join", e.params(nil)); !reply.OK {
			t.Fatalf("join failed: %+v", reply)
		}
		if reply := e.dispatch(t, watcher, "project/leave", e.params(nil)); !reply.OK {
			t.Fatalf("leave failed: %+v", reply)
		}

		before := len(watcher.Events())
		if reply := e.dispatch(t, editor, "task/add", e.params(nil)); !reply.OK {
			t.Fatalf("add failed: %+v", reply)
		}
		if len(watcher.Events()) != before {
			t.Errorf("expected no deltas after leave, got %d new", len(watcher.Events())-before)
		}
	})

	t.Run("FailedSnapshotDeliveryLeavesGroup", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		broken := internaltesting.NewFailingConn("c1", "alice")

		reply := e.dispatch(t, broken, "project/join", e.params(nil))
		if reply.OK || reply.Code != shared.KindUnavailable {
			t.Errorf("expected unavailable reply, got %+v", reply)
		}
		if e.hub.Subscribers(e.project.ID) != 0 {
			t.Errorf("failed join must not leave the connection subscribed, got %d subscribers",
				e.hub.Subscribers(e.project.ID))
		}
	})

	t.Run("JoinRejectedWithoutAccess", func(t *testing.T) {
		e := newEnv(t, rate.Inf, 1)
		stranger := internaltesting.NewRecordingConn("c1", "mallory")

		reply := e.dispatch(t, stranger, "project/join", e.params(nil))
		if reply.OK || reply.Code != shared.KindAccessDenied {
			t.Errorf("expected access denied, got %+v", reply)
		}
		if e.hub.Subscribers(e.project.ID) != 0 {
			t.Errorf("denied join must not register the connection, got %d subscribers",
				e.hub.Subscribers(e.project.ID))
		}
	})
}
