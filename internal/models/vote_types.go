package models

// UpvoteState is the vote tally of a post or answer after a toggle.
type UpvoteState struct {
	Upvotes   int      `json:"upvotes"`
	UpvotedBy []string `json:"upvotedBy"`
}

// ToggleUpvote flips userID's membership in upvotedBy and returns the new
// voter list. Upvotes is always len of the returned slice.
func ToggleUpvote(upvotedBy []string, userID string) []string {
	toggled := make([]string, 0, len(upvotedBy)+1)
	found := false
	for _, id := range upvotedBy {
		if id == userID {
			found = true
			continue
		}
		toggled = append(toggled, id)
	}
	if !found {
		toggled = append(toggled, userID)
	}
	return toggled
}
