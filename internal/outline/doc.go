// Package outline implements the ordered list manager for project task
// chains.
//
// A project's outline is a singly-linked chain of tasks (Next pointers)
// whose hierarchy is encoded purely by indentation levels: a task's subtree
// is its contiguous run of successors with a strictly greater level.
//
// The package computes structural edits without touching storage:
//
//   - [Chain] materializes a full ordered snapshot and validates the
//     single-visit invariant (no cycles, no orphans, no level jumps)
//   - [Neighborhood] is the minimal chain region an operation needs: the
//     task, its predecessor, and its descendant run
//   - [Manager] turns a neighborhood plus an operation into an [EditSet] of
//     guarded pointer, level, value, and completion edits
//
// Every pointer edit carries the expected prior value; the repository uses
// those guards for optimistic conflict detection, so two concurrent edits to
// overlapping chain regions can never both commit against a stale pointer.
package outline
