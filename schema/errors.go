package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTabNotFound indicates a requested tab could not be found.
	ErrTabNotFound = errors.New("tab not found")
	// ErrProfileNotFound indicates an unknown profile identifier.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrLastTab indicates a close was refused to keep the profile in view non-empty.
	ErrLastTab = errors.New("cannot close the last tab")
	// ErrSurfaceUnavailable indicates the render engine could not provide a surface.
	ErrSurfaceUnavailable = errors.New("render surface unavailable")
	// ErrNoClosedTabs indicates the closed-tab buffer is empty.
	ErrNoClosedTabs = errors.New("no recently closed tabs")
	// ErrInvalidBehavior indicates an unknown profile-switch behavior.
	ErrInvalidBehavior = errors.New("invalid profile switch behavior")
	// ErrInvalidStrategy indicates an unknown tab loading strategy.
	ErrInvalidStrategy = errors.New("invalid tab loading strategy")
)
