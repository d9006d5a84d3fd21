package outline

import "github.com/calebmds/taskchain/internal/models"

// PointerEdit rewires one task's Next pointer. From is the expected current
// value; applying the edit against any other value is a conflict.
type PointerEdit struct {
	TaskID int64
	From   *int64
	To     *int64
}

// HeadEdit rewires the project's FirstTask pointer, guarded like a
// [PointerEdit].
type HeadEdit struct {
	From *int64
	To   *int64
}

// LevelEdit sets a task's indentation level.
type LevelEdit struct {
	TaskID int64
	Level  int
}

// ValueEdit replaces a task's text content.
type ValueEdit struct {
	TaskID int64
	Value  string
}

// CompletionEdit sets a task's completed flag.
type CompletionEdit struct {
	TaskID    int64
	Completed bool
}

// Insert describes a new task spliced into the chain. Task.ID is zero; the
// repository assigns the next per-project id when persisting. Task.Next is
// the new task's successor and doubles as the splice guard: the predecessor
// (or the project head for a head insert) must still point at that successor
// when the edit is applied.
type Insert struct {
	Task models.Task
	// PredecessorID is the task whose Next is rewired to the new task,
	// nil when the new task becomes the chain head.
	PredecessorID *int64
}

// EditSet is the complete structural change computed for one operation.
// A zero EditSet is a successful no-op (e.g. a clamped indent).
type EditSet struct {
	ProjectID    int64
	Insert       *Insert
	SetHead      *HeadEdit
	SetNext      []PointerEdit
	SetLevel     []LevelEdit
	SetValue     *ValueEdit
	SetCompleted []CompletionEdit
	Delete       []int64
}

// Empty reports whether applying the edit set would change nothing.
func (e *EditSet) Empty() bool {
	return e.Insert == nil &&
		e.SetHead == nil &&
		len(e.SetNext) == 0 &&
		len(e.SetLevel) == 0 &&
		e.SetValue == nil &&
		len(e.SetCompleted) == 0 &&
		len(e.Delete) == 0
}
