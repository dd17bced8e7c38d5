package participant

import (
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Directory holds the profile and current room of every known participant.
// Like the session registry it is owned by the orchestrator and not locked.
type Directory struct {
	clock   clockwork.Clock
	policy  RetentionPolicy
	entries map[string]*entry
	seq     uint64
}

type entry struct {
	participant models.Participant
	seq         uint64
}

// NewDirectory creates an empty directory with the given retention policy.
func NewDirectory(clock clockwork.Clock, policy RetentionPolicy) *Directory {
	if policy == "" {
		policy = RetentionRetain
	}
	return &Directory{
		clock:   clock,
		policy:  policy,
		entries: make(map[string]*entry),
	}
}

// Policy returns the directory's retention policy.
func (d *Directory) Policy() RetentionPolicy {
	return d.policy
}

// Join upserts the participant and moves them into sessionID.
// A repeated join replaces the previous record.
func (d *Directory) Join(participantID, sessionID string, profile models.Profile, role models.Role) models.Participant {
	d.seq++
	p := models.Participant{
		ID:               participantID,
		DisplayName:      profile.DisplayName,
		AvatarURL:        profile.AvatarURL,
		Role:             role,
		CurrentSessionID: sessionID,
		Present:          true,
		JoinedAt:         d.clock.Now(),
	}

	if prev, ok := d.entries[participantID]; ok && prev.participant.CurrentSessionID != sessionID {
		log.Debug().
			Str("participant_id", participantID).
			Str("from_session", prev.participant.CurrentSessionID).
			Str("to_session", sessionID).
			Msg("participant moved rooms")
	}
	d.entries[participantID] = &entry{participant: p, seq: d.seq}
	return p
}

// Get returns the participant's directory record.
func (d *Directory) Get(participantID string) (models.Participant, bool) {
	e, ok := d.entries[participantID]
	if !ok {
		return models.Participant{}, false
	}
	return e.participant, true
}

// ResolveSession returns the session the participant last entered.
func (d *Directory) ResolveSession(participantID string) (string, bool) {
	e, ok := d.entries[participantID]
	if !ok || e.participant.CurrentSessionID == "" {
		return "", false
	}
	return e.participant.CurrentSessionID, true
}

// Leave clears the participant's presence and applies the retention policy.
// It returns the record as it was before leaving.
func (d *Directory) Leave(participantID string) (models.Participant, bool) {
	e, ok := d.entries[participantID]
	if !ok {
		return models.Participant{}, false
	}
	before := e.participant

	switch d.policy {
	case RetentionPurge:
		delete(d.entries, participantID)
	default:
		e.participant.Present = false
	}

	log.Debug().
		Str("participant_id", participantID).
		Str("session_id", before.CurrentSessionID).
		Str("retention", string(d.policy)).
		Msg("participant left")

	return before, true
}

// Members returns the participants currently present in sessionID, in join order.
func (d *Directory) Members(sessionID string) []models.Participant {
	var found []*entry
	for _, e := range d.entries {
		if e.participant.Present && e.participant.CurrentSessionID == sessionID {
			found = append(found, e)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]models.Participant, len(found))
	for i, e := range found {
		out[i] = e.participant
	}
	return out
}

// Len returns the number of directory entries.
func (d *Directory) Len() int {
	return len(d.entries)
}
