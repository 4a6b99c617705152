package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabwell/schema"
)

type contextKey int

const (
	tabKey contextKey = iota
	profileKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTab annotates the logger with the tab id if present.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID != "" {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// WithProfileTab annotates the logger with profile and tab identifiers.
func WithProfileTab(ctx context.Context, profileID schema.ProfileID, tabID schema.TabID) pslog.Logger {
	log := WithTab(ctx, tabID)
	if profileID != "" {
		if current, ok := ctx.Value(profileKey).(schema.ProfileID); ok && current == profileID {
			return log
		}
		log = log.With("profile", profileID)
	}
	return log
}

// WithProfile annotates the logger with profile metadata when available.
func WithProfile(log pslog.Logger, profile schema.ProfileRef) pslog.Logger {
	if profile.ID != "" {
		log = log.With("profile", profile.ID)
	}
	if profile.Name != "" {
		log = log.With("profile_name", profile.Name)
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil || tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithProfile stores the profile marker on the context for log de-duplication.
func ContextWithProfile(ctx context.Context, profileID schema.ProfileID) context.Context {
	if ctx == nil || profileID == "" {
		return ctx
	}
	return context.WithValue(ctx, profileKey, profileID)
}

// ContextWithTabLogger attaches the logger and tab marker to the context.
func ContextWithTabLogger(ctx context.Context, log pslog.Logger, tabID schema.TabID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ctx, tabID)
}

// CopyContextFields copies profile/tab markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if profile, ok := src.Value(profileKey).(schema.ProfileID); ok && profile != "" {
		dst = ContextWithProfile(dst, profile)
	}
	if tab, ok := src.Value(tabKey).(schema.TabID); ok && tab != "" {
		dst = ContextWithTab(dst, tab)
	}
	return dst
}
