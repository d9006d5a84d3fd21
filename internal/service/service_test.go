package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/calebmds/taskchain/internal/gate"
	"github.com/calebmds/taskchain/internal/models"
	"github.com/calebmds/taskchain/internal/realtime"
	"github.com/calebmds/taskchain/internal/repositories"
	"github.com/calebmds/taskchain/internal/service"
	"github.com/calebmds/taskchain/internal/shared"
	internaltesting "github.com/calebmds/taskchain/internal/testing"
)

type fixture struct {
	service  *service.TaskService
	projects *repositories.ProjectRepository
	tasks    *repositories.TaskRepository
	gate     *gate.Gate
	hub      *realtime.Hub
	project  *models.Project
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db := internaltesting.SetupTestDB(t)
	logger := shared.NewLogger(nil)

	projects := repositories.NewProjectRepository(db)
	tasks := repositories.NewTaskRepository(db)
	g := gate.New(4)
	hub := realtime.NewHub(logger)

	project, err := projects.Create(context.Background(), "alice", "Fixture")
	if err != nil {
		t.Fatalf("failed to create project: %v", err)
	}

	return &fixture{
		service:  service.NewTaskService(tasks, g, hub, logger),
		projects: projects,
		tasks:    tasks,
		gate:     g,
		hub:      hub,
		project:  project,
	}
}

func ptr(v int64) *int64 { return &v }

// seedOutline drives the service through real operations to produce
// A(0) -> B(1) -> C(2) -> D(0), returning the ids in that order.
func seedOutline(t *testing.T, f *fixture) []int64 {
	t.Helper()
	ctx := context.Background()
	pid := f.project.ID

	a, err := f.service.Add(ctx, pid, nil)
	if err != nil {
		t.Fatalf("failed to add head: %v", err)
	}
	b, err := f.service.Add(ctx, pid, &a.ID)
	if err != nil {
		t.Fatalf("failed to add after %d: %v", a.ID, err)
	}
	if _, err := f.service.Indent(ctx, pid, b.ID); err != nil {
		t.Fatalf("failed to indent %d: %v", b.ID, err)
	}
	c, err := f.service.Add(ctx, pid, &b.ID)
	if err != nil {
		t.Fatalf("failed to add after %d: %v", b.ID, err)
	}
	if _, err := f.service.Indent(ctx, pid, c.ID); err != nil {
		t.Fatalf("failed to indent %d: %v", c.ID, err)
	}
	d, err := f.service.Add(ctx, pid, &c.ID)
	if err != nil {
		t.Fatalf("failed to add after %d: %v", c.ID, err)
	}
	if _, err := f.service.Outdent(ctx, pid, d.ID); err != nil {
		t.Fatalf("failed to outdent %d: %v", d.ID, err)
	}
	if _, err := f.service.Outdent(ctx, pid, d.ID); err != nil {
		t.Fatalf("failed to outdent %d: %v", d.ID, err)
	}

	assertLevels(t, f, []int64{a.ID, b.ID, c.ID, d.ID}, []int{0, 1, 2, 0})
	return []int64{a.ID, b.ID, c.ID, d.ID}
}

func assertLevels(t *testing.T, f *fixture, ids []int64, levels []int) {
	t.Helper()

	chain, err := f.tasks.Snapshot(context.Background(), f.project.ID)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	tasks := chain.Tasks()
	if len(tasks) != len(ids) {
		t.Fatalf("expected %d tasks, got %d", len(ids), len(tasks))
	}
	for i := range ids {
		if tasks[i].ID != ids[i] || tasks[i].Level != levels[i] {
			t.Errorf("position %d: expected task %d at level %d, got task %d at level %d",
				i, ids[i], levels[i], tasks[i].ID, tasks[i].Level)
		}
	}
}

func TestTaskServiceMutations(t *testing.T) {
	ctx := context.Background()

	t.Run("AddToEmptyProject", func(t *testing.T) {
		f := setup(t)

		task, err := f.service.Add(ctx, f.project.ID, nil)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if task.Level != 0 {
			t.Errorf("head insert starts at level 0, got %d", task.Level)
		}

		project, err := f.projects.Get(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("failed to reload project: %v", err)
		}
		if project.FirstTask == nil || *project.FirstTask != task.ID {
			t.Errorf("project head should be %d, got %v", task.ID, project.FirstTask)
		}
	})

	t.Run("AddUnknownAnchor", func(t *testing.T) {
		f := setup(t)

		_, err := f.service.Add(ctx, f.project.ID, ptr(42))
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if f.gate.InUse() != 0 {
			t.Errorf("failed mutation must release its permit, in use: %d", f.gate.InUse())
		}
	})

	t.Run("RenamePersists", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		task, err := f.service.Rename(ctx, f.project.ID, ids[1], "write tests")
		if err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if task.Value != "write tests" {
			t.Errorf("expected renamed value, got %q", task.Value)
		}

		stored, err := f.tasks.Get(ctx, f.project.ID, ids[1])
		if err != nil {
			t.Fatalf("failed to reload task: %v", err)
		}
		if stored.Value != "write tests" {
			t.Errorf("rename not persisted, got %q", stored.Value)
		}
	})

	t.Run("RenameEmptyRejected", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		if _, err := f.service.Rename(ctx, f.project.ID, ids[0], ""); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("DeleteCascadesDescendants", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		deleted, err := f.service.Delete(ctx, f.project.ID, ids[1])
		if err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if len(deleted) != 2 || deleted[0] != ids[1] || deleted[1] != ids[2] {
			t.Errorf("expected deleted [%d %d], got %v", ids[1], ids[2], deleted)
		}

		assertLevels(t, f, []int64{ids[0], ids[3]}, []int{0, 0})
	})

	t.Run("IndentHeadIsNoOp", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		task, err := f.service.Indent(ctx, f.project.ID, ids[0])
		if err != nil {
			t.Fatalf("head indent must succeed as a no-op: %v", err)
		}
		if task.Level != 0 {
			t.Errorf("head must stay at level 0, got %d", task.Level)
		}
		assertLevels(t, f, ids, []int{0, 1, 2, 0})
	})

	t.Run("OutdentParentShiftsDescendants", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		task, err := f.service.Outdent(ctx, f.project.ID, ids[1])
		if err != nil {
			t.Fatalf("outdent failed: %v", err)
		}
		if task.Level != 0 {
			t.Errorf("expected outdented task at level 0, got %d", task.Level)
		}

		// The descendant shifts too, so the stored chain stays readable.
		assertLevels(t, f, ids, []int{0, 0, 1, 0})
	})

	t.Run("RenameEmptyFailsFastAtFullGate", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		for i := 0; i < f.gate.Capacity(); i++ {
			if err := f.gate.Acquire(ctx); err != nil {
				t.Fatalf("failed to saturate gate: %v", err)
			}
		}
		defer func() {
			for i := 0; i < f.gate.Capacity(); i++ {
				f.gate.Release()
			}
		}()

		// A malformed payload must be rejected before admission, so a full
		// gate never turns it into an unavailable error.
		bounded, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		if _, err := f.service.Rename(bounded, f.project.ID, ids[0], "  "); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("CompleteCascadesUncompleteDoesNot", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		updated, err := f.service.Complete(ctx, f.project.ID, ids[1])
		if err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		if len(updated) != 2 {
			t.Fatalf("expected task and descendant completed, got %d updates", len(updated))
		}

		task, err := f.service.Uncomplete(ctx, f.project.ID, ids[1])
		if err != nil {
			t.Fatalf("uncomplete failed: %v", err)
		}
		if task.Completed {
			t.Error("task should be reopened")
		}

		descendant, err := f.tasks.Get(ctx, f.project.ID, ids[2])
		if err != nil {
			t.Fatalf("failed to reload descendant: %v", err)
		}
		if !descendant.Completed {
			t.Error("descendant must stay completed after parent reopens")
		}
	})

	t.Run("PermitsReleasedAfterEveryOp", func(t *testing.T) {
		f := setup(t)
		seedOutline(t, f)

		if f.gate.InUse() != 0 {
			t.Errorf("all permits should be returned, in use: %d", f.gate.InUse())
		}
	})
}

func TestTaskServiceBroadcast(t *testing.T) {
	ctx := context.Background()

	t.Run("SubscribersReceiveDeltas", func(t *testing.T) {
		f := setup(t)
		conn := internaltesting.NewRecordingConn("c1", "bob")
		f.hub.Join(f.project.ID, conn)

		task, err := f.service.Add(ctx, f.project.ID, nil)
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if _, err := f.service.Rename(ctx, f.project.ID, task.ID, "ship it"); err != nil {
			t.Fatalf("rename failed: %v", err)
		}
		if _, err := f.service.Delete(ctx, f.project.ID, task.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		events := conn.Events()
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		wantKinds := []realtime.EventKind{realtime.TaskAdded, realtime.TaskRenamed, realtime.TasksDeleted}
		for i, kind := range wantKinds {
			if events[i].Kind != kind {
				t.Errorf("event %d: expected %s, got %s", i, kind, events[i].Kind)
			}
		}
		if events[1].Tasks[0].Value != "ship it" {
			t.Errorf("rename event carries new value, got %q", events[1].Tasks[0].Value)
		}
		if len(events[2].DeletedIDs) != 1 || events[2].DeletedIDs[0] != task.ID {
			t.Errorf("delete event carries removed ids, got %v", events[2].DeletedIDs)
		}
	})

	t.Run("OutdentDeltaCarriesShiftedRun", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		conn := internaltesting.NewRecordingConn("c1", "bob")
		f.hub.Join(f.project.ID, conn)

		if _, err := f.service.Outdent(ctx, f.project.ID, ids[1]); err != nil {
			t.Fatalf("outdent failed: %v", err)
		}

		events := conn.Events()
		if len(events) != 1 || events[0].Kind != realtime.TaskOutdented {
			t.Fatalf("expected a single outdent delta, got %+v", events)
		}

		got := map[int64]int{}
		for _, task := range events[0].Tasks {
			got[task.ID] = task.Level
		}
		if len(got) != 2 || got[ids[1]] != 0 || got[ids[2]] != 1 {
			t.Errorf("delta must carry the task and its shifted descendant, got %v", got)
		}
	})

	t.Run("ClampedNoOpBroadcastsNothing", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		conn := internaltesting.NewRecordingConn("c1", "bob")
		f.hub.Join(f.project.ID, conn)

		if _, err := f.service.Indent(ctx, f.project.ID, ids[0]); err != nil {
			t.Fatalf("head indent failed: %v", err)
		}
		if len(conn.Events()) != 0 {
			t.Errorf("no-op must not broadcast, got %d events", len(conn.Events()))
		}
	})

	t.Run("FailedMutationBroadcastsNothing", func(t *testing.T) {
		f := setup(t)
		conn := internaltesting.NewRecordingConn("c1", "bob")
		f.hub.Join(f.project.ID, conn)

		if _, err := f.service.Delete(ctx, f.project.ID, 42); err == nil {
			t.Fatal("expected delete of missing task to fail")
		}
		if len(conn.Events()) != 0 {
			t.Errorf("failed mutation must not broadcast, got %d events", len(conn.Events()))
		}
	})
}

func TestTaskServiceConcurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("OverlappingDeletes", func(t *testing.T) {
		f := setup(t)
		ids := seedOutline(t, f)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.service.Delete(ctx, f.project.ID, ids[1])
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded, failed int
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			failed++
			if !shared.Retryable(err) && !errors.Is(err, shared.ErrNotFound) {
				t.Errorf("loser must fail with a conflict-class error, got %v", err)
			}
		}
		if succeeded != 1 || failed != 1 {
			t.Errorf("expected exactly one winner, got %d successes and %d failures", succeeded, failed)
		}

		// Whatever the interleaving, the surviving chain must validate.
		assertLevels(t, f, []int64{ids[0], ids[3]}, []int{0, 0})

		if f.gate.InUse() != 0 {
			t.Errorf("permits leaked under contention, in use: %d", f.gate.InUse())
		}
	})
}
