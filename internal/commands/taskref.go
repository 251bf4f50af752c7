package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"todo/internal/board"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Num int    // 1-based position in the visible list; 0 when ID is set
	ID  string // backend ID given as @<id>
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// String returns the reference as the user typed it.
func (r TaskRef) String() string {
	if r.ID != "" {
		return "@" + r.ID
	}
	return strconv.Itoa(r.Num)
}

// ParseTaskRef parses a single task reference.
//
// Parsing rules:
// 1. All digits → position in the visible list (must be >= 1)
// 2. @<id> → backend task ID
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(arg string) (TaskRef, error) {
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		if num < 1 {
			return TaskRef{}, fmt.Errorf("task number out of range: %d", num)
		}
		return TaskRef{Num: num}, nil
	}

	if id, ok := strings.CutPrefix(arg, "@"); ok && strings.TrimSpace(id) != "" {
		return TaskRef{ID: id}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
}

// ParseTaskRefs parses one or more task references.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, a := range args {
		ref, err := ParseTaskRef(a)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Resolve finds the referenced item on the board. Numbers index the visible
// list; IDs may name a task in any category.
func (r TaskRef) Resolve(st *board.State) (board.Item, error) {
	if r.ID != "" {
		it, ok := st.Find(r.ID)
		if !ok {
			return board.Item{}, fmt.Errorf("task not found: %s", r)
		}
		return it, nil
	}

	visible := st.Visible()
	if r.Num < 1 || r.Num > len(visible) {
		return board.Item{}, fmt.Errorf("task number out of range: %d", r.Num)
	}
	return visible[r.Num-1], nil
}

// position returns the 1-based visible position of id, or 0.
func position(st *board.State, id string) int {
	for i, it := range st.Visible() {
		if it.Task.ID == id {
			return i + 1
		}
	}
	return 0
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
