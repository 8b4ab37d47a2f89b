package validation

import (
	"strings"
	"testing"

	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"Valid", "test_user123", false},
		{"Allowed Symbols", "a.b+c-d@e_f", false},
		{"Unicode Letters", "Ångström", false},
		{"Single Char", "a", false},
		{"Exactly Max Length", strings.Repeat("u", 150), false},
		{"Empty", "", true},
		{"Too Long", strings.Repeat("u", 151), true},
		{"Space", "john smith", true},
		{"Slash", "john/smith", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	emailAt254 := strings.Repeat("a", 64) + "@" + strings.Repeat("b", 185) + ".com"
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "test@example.com", false},
		{"Exactly 254 Characters", emailAt254, false},
		{"Too Long", "a" + emailAt254, true},
		{"Empty", "", true},
		{"Invalid Format", "not-an-email", true},
		{"Missing Domain", "user@", true},
		{"No Dot In Domain", "user@localhost", true},
		{"Display Name", "Bob <bob@example.com>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	attrs := UserAttributes{Username: "johnsmith", FirstName: "John", LastName: "Smith", Email: "john.smith@example.com"}

	tests := []struct {
		name     string
		password string
		wantMsgs []string
	}{
		{"Valid", "correct-horse-battery", nil},
		{"Too Short", "Xk9#q", []string{"This password is too short. It must contain at least 8 characters."}},
		{"Common", "password", []string{"This password is too common."}},
		{"Common Ignores Case", "PassWord", []string{"This password is too common."}},
		{"Numeric", "83749201", []string{"This password is entirely numeric."}},
		{"Short Numeric And Common", "123456", []string{
			"This password is too short. It must contain at least 8 characters.",
			"This password is too common.",
			"This password is entirely numeric.",
		}},
		{"Similar To Username", "johnsmith1", []string{"The password is too similar to the username."}},
		{"Similar To Email Part", "smith.john", []string{"The password is too similar to the username."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidatePassword(tt.password, attrs)
			msgs := make([]string, 0, len(errs))
			for _, err := range errs {
				msgs = append(msgs, err.Error())
			}
			if tt.wantMsgs == nil {
				assert.Empty(t, msgs)
			} else {
				assert.Equal(t, tt.wantMsgs, msgs)
			}
		})
	}
}

func TestQuickRatio(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1.0, quickRatio("abc", "cba"))
	assert.Equal(t, 0.0, quickRatio("abc", "xyz"))
	assert.InDelta(t, 0.5, quickRatio("ab", "ac"), 1e-9)
	assert.Equal(t, 1.0, quickRatio("", ""))
}

func TestUserAttributeSimilarity_SkipsShortValues(t *testing.T) {
	t.Parallel()
	err := UserAttributeSimilarity("a-very-long-passphrase-with-words", UserAttributes{FirstName: "Al"})
	assert.NoError(t, err)
}

func TestValidateAd(t *testing.T) {
	t.Parallel()
	ok := AdFields{Title: "Bike", Content: "Red bike", Contacts: "555-0100", Price: 10}
	assert.Empty(t, ValidateAd(ok))

	errs := ValidateAd(AdFields{Title: strings.Repeat("t", 41), Price: -1})
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "content")
	assert.Contains(t, errs, "contacts")
	assert.Contains(t, errs, "price")
}

func TestValidateComment(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ValidateComment("guest", "hello"))

	errs := ValidateComment(strings.Repeat("g", 31), " ")
	assert.Contains(t, errs, "author")
	assert.Contains(t, errs, "content")
}

func TestValidateImage(t *testing.T) {
	t.Parallel()
	png := testutil.TinyPNG(t, 4, 3)
	jpg := testutil.TinyJPEG(t, 2, 2)
	gif := testutil.TinyGIF(t, 2, 2)
	wp := testutil.TinyWEBP(t, 3, 2)

	info, err := ValidateImage(png, "image/png", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.MIME)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, 4, info.Width)

	info, err = ValidateImage(jpg, "", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", info.Extension)

	info, err = ValidateImage(gif, "image/gif; charset=binary", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, ".gif", info.Extension)

	info, err = ValidateImage(wp, "image/webp", 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", info.MIME)
	assert.Equal(t, ".webp", info.Extension)
	assert.Equal(t, 2, info.Height)

	_, err = ValidateImage(png, "image/jpeg", 1<<20)
	assert.Error(t, err, "declared type must match content")

	_, err = ValidateImage([]byte("plain text, not an image"), "", 1<<20)
	assert.Error(t, err)

	_, err = ValidateImage(png, "image/png", 10)
	assert.Error(t, err, "size limit")

	_, err = ValidateImage(nil, "", 1<<20)
	assert.Error(t, err)
}
