package forms

import "strings"

const MsgCommentTextRequired = "the comment text field must be filled in"

// CommentForm is the add-comment field set.
type CommentForm struct {
	Text string `form:"text" json:"text"`
}

// Validate trims the text and rejects an empty comment.
func (f *CommentForm) Validate() error {
	verr := &ValidationError{}
	f.Text = strings.TrimSpace(f.Text)
	if f.Text == "" {
		verr.Add("text", MsgCommentTextRequired)
	}
	return verr.OrNil()
}
