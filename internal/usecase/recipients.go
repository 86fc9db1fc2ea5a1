package usecase

import "taskremind/internal/domain"

// ResolveRecipients returns assignee, creator and followers of t, each
// user at most once, in that order. Nil users and users without an id
// are dropped.
func ResolveRecipients(t domain.Task) []domain.User {
	seen := make(map[string]struct{})
	var out []domain.User

	add := func(u *domain.User) {
		if u == nil || u.ID == "" {
			return
		}
		if _, ok := seen[u.ID]; ok {
			return
		}
		seen[u.ID] = struct{}{}
		out = append(out, *u)
	}

	add(t.Assignee)
	add(t.Creator)
	for _, f := range t.Followers {
		add(f.User)
	}
	return out
}
