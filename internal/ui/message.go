package ui

import (
	"todo/internal/board"
	"todo/internal/service"
)

// resultMsg carries the outcome of an engine action.
type resultMsg struct {
	result board.Result
}

// snapshotMsg carries one live-query result.
type snapshotMsg struct {
	snap service.Snapshot
}

// watchClosedMsg reports that the live query ended.
type watchClosedMsg struct{}
