package validation

import (
	"strings"
	"unicode/utf8"

	"bboard/internal/models"
)

const (
	maxTitleLength         = 40
	maxCommentAuthorLength = 30
)

// AdFields are the user-editable text fields of an ad.
type AdFields struct {
	Title    string
	Content  string
	Contacts string
	Price    float64
}

// ValidateAd checks the text fields of an ad form. The rubric and images are
// checked by the caller because they need the database and the upload.
func ValidateAd(in AdFields) models.FieldErrors {
	errs := models.FieldErrors{}
	switch title := strings.TrimSpace(in.Title); {
	case title == "":
		errs.Add("title", ErrRequired.Error())
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs.Add("title", maxLengthError(maxTitleLength, utf8.RuneCountInString(title)).Error())
	}
	if strings.TrimSpace(in.Content) == "" {
		errs.Add("content", ErrRequired.Error())
	}
	if strings.TrimSpace(in.Contacts) == "" {
		errs.Add("contacts", ErrRequired.Error())
	}
	if in.Price < 0 {
		errs.Add("price", "Ensure this value is greater than or equal to 0.")
	}
	return errs
}

// ValidateComment checks the author name and text of a comment.
func ValidateComment(author, content string) models.FieldErrors {
	errs := models.FieldErrors{}
	switch author = strings.TrimSpace(author); {
	case author == "":
		errs.Add("author", ErrRequired.Error())
	case utf8.RuneCountInString(author) > maxCommentAuthorLength:
		errs.Add("author", maxLengthError(maxCommentAuthorLength, utf8.RuneCountInString(author)).Error())
	}
	if strings.TrimSpace(content) == "" {
		errs.Add("content", ErrRequired.Error())
	}
	return errs
}
