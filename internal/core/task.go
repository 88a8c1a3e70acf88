package core

import "fmt"

// TaskKind classifies what a robot is doing this tick.
type TaskKind int

const (
	TaskIdle TaskKind = iota
	TaskExplore
	TaskHarvest
	TaskAnalyze
	TaskReturnToStation
)

func (k TaskKind) String() string {
	return [...]string{"Idle", "Explore", "Harvest", "Analyze", "ReturnToStation"}[k]
}

func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *TaskKind) UnmarshalText(b []byte) error {
	for _, v := range []TaskKind{TaskIdle, TaskExplore, TaskHarvest, TaskAnalyze, TaskReturnToStation} {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown task kind %q", b)
}

// Task is the action selected for one tick. Tasks are regenerated every
// decision and never persisted.
type Task struct {
	Kind     TaskKind `json:"kind"`
	Target   Position `json:"target"`
	Priority int      `json:"priority"` // diagnostic only
	Rule     string   `json:"rule"`     // name of the rule that produced it
}

// IdleTask is the designated fallback when nothing else applies.
func IdleTask(at Position) Task {
	return Task{Kind: TaskIdle, Target: at, Rule: "idle"}
}

// NewTask creates a task for target.
func NewTask(kind TaskKind, target Position, priority int) Task {
	return Task{Kind: kind, Target: target, Priority: priority}
}

// IsIdle reports whether t is the idle task.
func (t Task) IsIdle() bool {
	return t.Kind == TaskIdle
}

// Valid reports whether the task is well formed on m.
func (t Task) Valid(m *Map) bool {
	return t.Kind == TaskIdle || m.InBounds(t.Target)
}

func (t Task) String() string {
	if t.IsIdle() {
		return "Idle"
	}
	return fmt.Sprintf("%v->%v@%d", t.Kind, t.Target, t.Priority)
}
