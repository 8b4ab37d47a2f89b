package server

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"bboard/internal/models"
	"bboard/internal/signing"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	activationLink = regexp.MustCompile(`http://board\.test(/accounts/register/activate/[^/\s]+/)`)
	resetLink      = regexp.MustCompile(`(/accounts/password_reset/[^/\s]+/[^/\s]+/)`)
)

func registerForm(username string) url.Values {
	return url.Values{
		"username":             {username},
		"email":                {username + "@example.com"},
		"first_name":           {"Ann"},
		"last_name":            {"Smith"},
		"password1":            {strongPassword},
		"password2":            {strongPassword},
		"send_messages":        {"on"},
		"g-recaptcha-response": {"token"},
	}
}

func TestRegisterActivateLogin(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post("/accounts/register/", registerForm("ann"))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/register/done/", resp.Header.Get("Location"))

	var user models.User
	require.NoError(t, ts.db.Where("username = ?", "ann").First(&user).Error)
	assert.False(t, user.IsActive)
	assert.False(t, user.IsActivated)
	assert.True(t, user.SendMessages)

	msgs := ts.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ann@example.com", msgs[0].To)
	m := activationLink.FindStringSubmatch(msgs[0].Body)
	require.NotNil(t, m, msgs[0].Body)
	link := m[1]

	// Pending accounts cannot log in yet.
	resp = ts.post("/accounts/login/", url.Values{"username": {"ann"}, "password": {strongPassword}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	page := decodePage(t, resp)
	assert.Equal(t, []string{"This account is inactive."}, page.Errors["__all__"])

	resp = ts.get(link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "main/activation_done", decodePage(t, resp).Page)

	resp = ts.get(link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "main/user_is_activated", decodePage(t, resp).Page)

	cookies := ts.login("ann", strongPassword)
	resp = ts.get("/accounts/profile/", cookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodePage(t, resp)
	assert.Equal(t, "main/profile", page.Page)
	require.NotNil(t, page.User)
	assert.Equal(t, "ann", page.User.Username)
}

func TestActivateBadSignature(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get("/accounts/register/activate/tampered:value/")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "main/bad_signature", decodePage(t, resp).Page)

}

func TestActivateUnknownUser(t *testing.T) {
	ts := newTestServer(t)

	token := signing.NewSigner(ts.srv.config.SecretKey, signing.DefaultSalt).Sign("ghost")
	resp := ts.get("/accounts/register/activate/" + url.PathEscape(token) + "/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeError(t, resp).Code)
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateUser(t, ts.db, "taken")

	tests := []struct {
		name  string
		edit  func(url.Values)
		field string
	}{
		{"missing captcha", func(v url.Values) { v.Del("g-recaptcha-response") }, "captcha"},
		{"password mismatch", func(v url.Values) { v.Set("password2", "Other-Passphrase-9") }, "password2"},
		{"weak password", func(v url.Values) { v.Set("password1", "123"); v.Set("password2", "123") }, "password1"},
		{"username taken", func(v url.Values) { v.Set("username", "taken") }, "username"},
		{"email taken", func(v url.Values) { v.Set("email", "taken@example.com") }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := registerForm("newcomer")
			tt.edit(form)
			resp := ts.post("/accounts/register/", form)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			page := decodePage(t, resp)
			assert.Equal(t, "main/register_user", page.Page)
			assert.NotEmpty(t, page.Errors[tt.field], page.Errors)
			assert.Equal(t, form.Get("username"), page.Data["form"].(map[string]any)["username"])
		})
	}

	var count int64
	require.NoError(t, ts.db.Model(&models.User{}).Where("username = ?", "newcomer").Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, ts.outbox.Messages())
}

func TestRegisterMailFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.outbox.Err = errors.New("smtp: connection refused")

	resp := ts.post("/accounts/register/", registerForm("ann"))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The account is kept so an administrator can resend the letter.
	var user models.User
	require.NoError(t, ts.db.Where("username = ?", "ann").First(&user).Error)
	assert.False(t, user.IsActivated)
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateUser(t, ts.db, "bob")

	t.Run("wrong password", func(t *testing.T) {
		resp := ts.post("/accounts/login/", url.Values{"username": {"bob"}, "password": {"nope"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, "main/login", page.Page)
		assert.NotEmpty(t, page.Errors["__all__"])
		assert.Nil(t, page.User)
	})

	t.Run("json body", func(t *testing.T) {
		resp := ts.postJSON("/accounts/login/", map[string]string{"username": "bob", "password": "secret-pass-42"})
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/accounts/profile/", resp.Header.Get("Location"))
	})

	tests := []struct {
		next, want string
	}{
		{"/accounts/profile/change/", "/accounts/profile/change/"},
		{"//evil.example/", "/accounts/profile/"},
		{"https://evil.example/", "/accounts/profile/"},
		{"", "/accounts/profile/"},
	}
	for _, tt := range tests {
		t.Run("next "+tt.next, func(t *testing.T) {
			resp := ts.post("/accounts/login/", url.Values{
				"username": {"bob"},
				"password": {"secret-pass-42"},
				"next":     {tt.next},
			})
			require.Equal(t, http.StatusFound, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}
}

func TestAuthRequiredRedirect(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get("/accounts/profile/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/login/?next=%2Faccounts%2Fprofile%2F", resp.Header.Get("Location"))

	resp = ts.get("/accounts/login/?next=%2Faccounts%2Fprofile%2F")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/accounts/profile/", decodePage(t, resp).Data["next"])
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateUser(t, ts.db, "bob")
	cookies := ts.login("bob", "secret-pass-42")

	resp := ts.get("/accounts/logout/", cookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "main/logout", decodePage(t, resp).Page)

	resp = ts.post("/accounts/logout/", nil, cookies...)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	flashCookies := liveCookies(resp)

	// The old cookie is refused even though its signature is still valid.
	resp = ts.get("/accounts/profile/", cookies...)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp = ts.get("/", flashCookies...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodePage(t, resp)
	assert.Nil(t, page.User)
	assert.Contains(t, page.Messages, "You have been logged out.")
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateUser(t, ts.db, "bob")

	resp := ts.post("/accounts/password_reset/", url.Values{"email": {"nobody@example.com"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Empty(t, ts.outbox.Messages(), "unknown addresses get no mail")

	resp = ts.post("/accounts/password_reset/", url.Values{"email": {"bob@example.com"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/password_reset/done/", resp.Header.Get("Location"))

	msgs := ts.outbox.Messages()
	require.Len(t, msgs, 1)
	m := resetLink.FindStringSubmatch(msgs[0].Body)
	require.NotNil(t, m, msgs[0].Body)
	link := m[1]

	resp = ts.get(link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodePage(t, resp).Data["validlink"])

	resp = ts.post(link, url.Values{"new_password1": {strongPassword}, "new_password2": {"mismatch"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	page := decodePage(t, resp)
	assert.NotEmpty(t, page.Errors["new_password2"])
	assert.Equal(t, true, page.Data["validlink"])

	resp = ts.post(link, url.Values{"new_password1": {strongPassword}, "new_password2": {strongPassword}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/accounts/password_reset/complete/", resp.Header.Get("Location"))

	// The link is single use.
	resp = ts.get(link)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodePage(t, resp).Data["validlink"])

	resp = ts.post(link, url.Values{"new_password1": {strongPassword}, "new_password2": {strongPassword}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.login("bob", strongPassword)
}
