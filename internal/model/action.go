package model

// ActionKind tags the variant held by a SyncAction.
type ActionKind int

const (
	// ActionCopyNew copies a source entry that has no destination counterpart.
	ActionCopyNew ActionKind = iota
	// ActionOverwrite replaces an existing destination entry with the source's.
	ActionOverwrite
	// ActionDelete removes a destination-only path.
	ActionDelete
	// ActionMove is reserved for a future rename-detection optimization. The
	// planner never emits it.
	ActionMove
	// ActionSkip records that no change was needed for a path.
	ActionSkip
)

// SyncAction is a tagged variant over CopyNew(entry) / Overwrite(entry) /
// Delete(path) / Move{from,to} / Skip. Only CopyNew and Overwrite carry
// bytes to transfer.
type SyncAction struct {
	Kind ActionKind

	// Entry is populated for CopyNew and Overwrite.
	Entry FileEntry

	// Path is the relative path the action operates on, populated for
	// CopyNew, Overwrite, Delete, and Skip.
	Path string

	// MoveFrom/MoveTo are populated only for ActionMove.
	MoveFrom string
	MoveTo   string
}

// NewCopyNew builds a CopyNew action for entry.
func NewCopyNew(entry FileEntry) SyncAction {
	return SyncAction{Kind: ActionCopyNew, Entry: entry, Path: entry.Path}
}

// NewOverwrite builds an Overwrite action for entry.
func NewOverwrite(entry FileEntry) SyncAction {
	return SyncAction{Kind: ActionOverwrite, Entry: entry, Path: entry.Path}
}

// NewDelete builds a Delete action for the given relative path.
func NewDelete(path string) SyncAction {
	return SyncAction{Kind: ActionDelete, Path: path}
}

// NewSkip builds a Skip action recording that path needed no change.
func NewSkip(path string) SyncAction {
	return SyncAction{Kind: ActionSkip, Path: path}
}

// NewMove builds a reserved Move action. The planner never emits this; the
// executor rejects it with a validation error.
func NewMove(from, to string) SyncAction {
	return SyncAction{Kind: ActionMove, MoveFrom: from, MoveTo: to}
}

// IsCopyNew reports whether a is a CopyNew action.
func (a SyncAction) IsCopyNew() bool { return a.Kind == ActionCopyNew }

// IsOverwrite reports whether a is an Overwrite action.
func (a SyncAction) IsOverwrite() bool { return a.Kind == ActionOverwrite }

// IsDelete reports whether a is a Delete action.
func (a SyncAction) IsDelete() bool { return a.Kind == ActionDelete }

// IsMove reports whether a is a Move action.
func (a SyncAction) IsMove() bool { return a.Kind == ActionMove }

// IsSkip reports whether a is a Skip action.
func (a SyncAction) IsSkip() bool { return a.Kind == ActionSkip }

// RequiresTransfer reports whether executing a moves file bytes.
func (a SyncAction) RequiresTransfer() bool {
	return a.Kind == ActionCopyNew || a.Kind == ActionOverwrite
}

// ActionName returns the action's displayable name, one of
// "Copy" | "Update" | "Delete" | "Move" | "Skip".
func (a SyncAction) ActionName() string {
	switch a.Kind {
	case ActionCopyNew:
		return "Copy"
	case ActionOverwrite:
		return "Update"
	case ActionDelete:
		return "Delete"
	case ActionMove:
		return "Move"
	default:
		return "Skip"
	}
}

// PathKey returns the path used for sorting and display. Move actions sort
// by their source path; Skip actions sorting after path-bearing actions is
// handled by the caller (Plan.SortByPath), since an action with no path at
// all only ever occurs as a pathless Skip, which this model never produces.
func (a SyncAction) PathKey() string {
	if a.Kind == ActionMove {
		return a.MoveFrom
	}
	return a.Path
}

// DeleteMode controls orphan handling in the diff engine and executor.
type DeleteMode int

const (
	// DeleteNone is the default, non-destructive mode: orphans are left alone.
	DeleteNone DeleteMode = iota
	// DeleteTrash relocates orphans into the destination's trash area.
	DeleteTrash
	// DeletePermanent unlinks orphans unconditionally.
	DeletePermanent
)

// IsSafe reports whether the mode never destroys data outright.
func (m DeleteMode) IsSafe() bool {
	return m != DeletePermanent
}

// IsDestructive reports whether the mode can permanently destroy data.
func (m DeleteMode) IsDestructive() bool {
	return m == DeletePermanent
}

// String returns a human-readable description of the mode.
func (m DeleteMode) String() string {
	switch m {
	case DeleteNone:
		return "none"
	case DeleteTrash:
		return "trash"
	case DeletePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}
