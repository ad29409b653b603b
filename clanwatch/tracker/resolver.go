package tracker

// sessionClanWeightCap dampens score inflation from large-party activities
// where teammate count is incidental rather than a sign of clan cohesion.
const sessionClanWeightCap = 2.9

// CoParticipantResolver cross-references a session's participants against
// the cached clan rosters.
type CoParticipantResolver struct {
	roster *RosterCache
}

func NewCoParticipantResolver(roster *RosterCache) *CoParticipantResolver {
	return &CoParticipantResolver{roster: roster}
}

// Resolve returns the session's capped clan-weight contribution and the
// true, uncapped set of clan teammates it contained. The member whose
// stats are being pulled never counts as their own teammate.
func (r *CoParticipantResolver) Resolve(session PlaySession, selfID string) (float64, map[string]struct{}) {
	unique := make(map[string]struct{})

	count := 0
	for _, participant := range session.Participants {
		if participant.MembershipID == selfID {
			continue
		}
		if ok, _ := r.roster.IsMember(participant.MembershipID); ok {
			count++
			unique[participant.MembershipID] = struct{}{}
		}
	}

	weight := float64(count)
	if count > 2 {
		weight = sessionClanWeightCap
	}
	return weight, unique
}
