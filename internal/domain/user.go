package domain

import "time"

// Profile is a registered staff member.
type Profile struct {
	UserID    int64
	Name      string // immutable once set through the normal flow
	Phone     string // empty until a contact is shared
	CreatedAt time.Time
}

// Registered reports whether onboarding has finished.
func (p *Profile) Registered() bool { return p != nil && p.Name != "" && p.Phone != "" }
