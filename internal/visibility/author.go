package visibility

import "github.com/hollisk/lectern/internal/models"

// AnonymousName is the display form of an anonymous author.
const AnonymousName = "Anonymous"

// AuthorView is an author as rendered for one particular viewer.
type AuthorView struct {
	Name      string `json:"name"`
	Anonymous bool   `json:"anonymous"`

	// RealName carries the actual identity behind an anonymous post. Set
	// only when the viewer is staff or the author themself.
	RealName string `json:"real_name,omitempty"`
}

// RenderAuthor resolves an author for display. Non-anonymous authors render
// by name (or the departed sentinel). Anonymous authors render as
// AnonymousName for everyone, with the real identity revealed alongside for
// staff and for the author.
func RenderAuthor(author models.AuthorRef, anonymous bool, viewer *models.Participant) AuthorView {
	if !anonymous {
		return AuthorView{Name: author.DisplayName()}
	}
	view := AuthorView{Name: AnonymousName, Anonymous: true}
	p, enrolled := author.Enrolled()
	if viewer.IsStaff() || (enrolled && viewer != nil && p.ID == viewer.ID) {
		view.RealName = author.DisplayName()
	}
	return view
}
