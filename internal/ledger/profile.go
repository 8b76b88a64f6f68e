package ledger

import "financas/internal/core"

// UpdateUserProfile merges patch onto the profile, seeding it with
// core.DefaultProfile when none exists yet.
func (l *Ledger) UpdateUserProfile(patch ProfilePatch) core.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()

	base := core.DefaultProfile()
	if l.profile != nil {
		base = *l.profile
	}
	updated := patch.apply(base)
	l.profile = &updated
	return copyProfile(updated)
}

// Profile returns the profile and whether one has been created.
func (l *Ledger) Profile() (core.UserProfile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.profile == nil {
		return core.UserProfile{}, false
	}
	return copyProfile(*l.profile), true
}

func copyProfile(p core.UserProfile) core.UserProfile {
	p.Goals = append([]string{}, p.Goals...)
	return p
}
