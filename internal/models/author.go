package models

// AuthorRef is the resolved writer of a conversation or message: either a
// still-enrolled participant or the departed sentinel. Call ResolveAuthor
// rather than null-checking the foreign key at call sites.
type AuthorRef struct {
	enrolled    bool
	participant Participant
}

// DepartedName is the display form of an author whose enrollment was removed.
const DepartedName = "no longer enrolled"

// EnrolledAuthor returns an AuthorRef for a participant that still exists.
func EnrolledAuthor(p Participant) AuthorRef {
	return AuthorRef{enrolled: true, participant: p}
}

// DepartedAuthor returns the sentinel for a removed enrollment.
func DepartedAuthor() AuthorRef {
	return AuthorRef{}
}

// ResolveAuthor builds an AuthorRef from a row's author foreign key and the
// participant loaded for it, which is nil when the enrollment is gone.
func ResolveAuthor(authorID *uint, p *Participant) AuthorRef {
	if authorID == nil || p == nil {
		return DepartedAuthor()
	}
	return EnrolledAuthor(*p)
}

// Enrolled returns the participant and true when the author is still
// enrolled.
func (a AuthorRef) Enrolled() (Participant, bool) {
	return a.participant, a.enrolled
}

// DisplayName returns the participant's name, or the departed sentinel.
func (a AuthorRef) DisplayName() string {
	if !a.enrolled {
		return DepartedName
	}
	return a.participant.Name
}
