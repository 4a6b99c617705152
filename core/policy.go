package core

import (
	"context"
	"errors"

	"pkt.systems/tabwell/internal/logx"
	"pkt.systems/tabwell/schema"
)

// ApplySettings swaps the lifecycle settings. When the profile-switch
// behavior itself changes, the new behavior is applied immediately to every
// profile except the one owning the active tab, so a stricter policy takes
// effect without an actual switch.
func (s *service) ApplySettings(ctx context.Context, req schema.ApplySettingsRequest) (schema.ApplySettingsResponse, error) {
	normalized, err := schema.NormalizeSettings(req.Settings)
	if err != nil {
		return schema.ApplySettingsResponse{}, err
	}
	log := logx.Ctx(ctx)
	s.mu.Lock()
	previous := s.settings
	s.settings = normalized
	exempt := schema.ProfileID("")
	if s.reg.active != "" {
		if at := s.reg.get(s.reg.active); at != nil {
			exempt = at.Profile
		}
	}
	s.mu.Unlock()
	log.Info("service settings applied",
		"auto_suspend", normalized.AutoSuspendEnabled,
		"auto_suspend_minutes", normalized.AutoSuspendMinutes,
		"switch_behavior", normalized.ProfileSwitchBehavior,
	)

	if previous.ProfileSwitchBehavior != normalized.ProfileSwitchBehavior {
		for _, profile := range s.cfg.Profiles {
			if profile.ID == exempt {
				continue
			}
			s.applyBehavior(ctx, profile.ID, normalized.ProfileSwitchBehavior)
		}
	}
	return schema.ApplySettingsResponse{Settings: normalized}, nil
}

// applySwitchPolicy runs the configured behavior against the profile the
// user just switched away from.
func (s *service) applySwitchPolicy(ctx context.Context, fromProfile schema.ProfileID) {
	s.mu.Lock()
	behavior := s.settings.ProfileSwitchBehavior
	s.mu.Unlock()
	s.applyBehavior(ctx, fromProfile, behavior)
}

func (s *service) applyBehavior(ctx context.Context, profileID schema.ProfileID, behavior schema.SwitchBehavior) {
	log := logx.Ctx(ctx).With("profile", profileID, "behavior", behavior)
	switch behavior {
	case schema.SwitchKeep:
		return
	case schema.SwitchSuspend:
		for _, id := range s.profileTabIDs(profileID, true) {
			if _, err := s.UnloadTab(ctx, schema.UnloadTabRequest{TabID: id}); err != nil && !errors.Is(err, schema.ErrTabNotFound) {
				log.Warn("service policy unload failed", "tab", id, "err", err)
			}
		}
		log.Debug("service switch policy applied")
	case schema.SwitchClose:
		// Closing can legitimately empty the profile; the last-tab guard
		// only protects the profile currently in view.
		for _, id := range s.profileTabIDs(profileID, false) {
			if _, err := s.CloseTab(ctx, schema.CloseTabRequest{TabID: id}); err != nil && !errors.Is(err, schema.ErrTabNotFound) {
				log.Warn("service policy close failed", "tab", id, "err", err)
			}
		}
		log.Debug("service switch policy applied")
	}
}

// profileTabIDs snapshots the ids of a profile's tabs, optionally only the
// loaded ones.
func (s *service) profileTabIDs(profileID schema.ProfileID, loadedOnly bool) []schema.TabID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []schema.TabID
	for _, t := range s.reg.tabsForProfile(profileID) {
		if loadedOnly && !t.loaded() {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}
