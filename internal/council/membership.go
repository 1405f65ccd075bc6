package council

import "github.com/alanyoungcy/oracles/internal/domain"

// Membership is the static council roster.
type Membership struct {
	members []domain.AgentIdentity
}

// NewMembership copies members into a roster.
func NewMembership(members []domain.AgentIdentity) *Membership {
	return &Membership{members: append([]domain.AgentIdentity(nil), members...)}
}

// Enabled returns the members that participate in a run, in roster order.
func (m *Membership) Enabled() []domain.AgentIdentity {
	out := make([]domain.AgentIdentity, 0, len(m.members))
	for _, a := range m.members {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out
}
