package splitstore

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidWindowWidth      = errors.New("window width must be positive")
	ErrUnknownPanel            = errors.New("panel does not resolve to a tab")
	ErrUnknownGroup            = errors.New("group not found")
	ErrInvalidLayout           = errors.New("unsupported layout")
	ErrMissingColor            = errors.New("group color is empty")
	ErrWrongGroupSize          = errors.New("group must have exactly two tabs")
	ErrColumnMismatch          = errors.New("tab column does not match its position")
	ErrInvalidTabFields        = errors.New("tab distribution must be between 0 and 1")
	ErrDuplicatePanelInGroup   = errors.New("panel appears twice in group")
	ErrPanelAlreadySplit       = errors.New("panel already belongs to a group")
	ErrDistributionSumMismatch = errors.New("tab distributions must sum to 1")
	ErrUnknownActionType       = errors.New("unknown action type")
	ErrInvalidActionValue      = errors.New("invalid action value")
	ErrStoreDestroyed          = errors.New("store destroyed")
)

// ActionError reports which action of a batch failed.
type ActionError struct {
	Index int
	Type  ActionType
	Err   error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
