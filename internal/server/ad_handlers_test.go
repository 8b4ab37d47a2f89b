package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"bboard/internal/models"
	"bboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adTitles(t *testing.T, page pageBody) []string {
	t.Helper()
	raw, ok := page.Data["ads"].([]any)
	require.True(t, ok, "ads missing from %v", page.Data)
	titles := make([]string, 0, len(raw))
	for _, item := range raw {
		titles = append(titles, item.(map[string]any)["title"].(string))
	}
	return titles
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.get("/health/live")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.get("/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Checks["redis"])
}

func TestIndexShowsLatestActiveAds(t *testing.T) {
	ts := newTestServer(t)
	owner := testutil.CreateUser(t, ts.db, "bob")
	_, child := testutil.CreateRubrics(t, ts.db, "Transport", "Bikes")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= 12; i++ {
		testutil.CreateAdAt(t, ts.db, owner, child, fmt.Sprintf("Ad %02d", i), base.Add(time.Duration(i)*time.Hour))
	}
	hidden := testutil.CreateAdAt(t, ts.db, owner, child, "Hidden", base.Add(48*time.Hour))
	require.NoError(t, ts.db.Model(hidden).Update("is_active", false).Error)

	resp := ts.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodePage(t, resp)
	assert.Equal(t, "main/index", page.Page)
	titles := adTitles(t, page)
	require.Len(t, titles, 10)
	assert.Equal(t, "Ad 12", titles[0])
	assert.NotContains(t, titles, "Hidden")
	assert.NotEmpty(t, page.Menu)
}

func TestByRubric(t *testing.T) {
	ts := newTestServer(t)
	owner := testutil.CreateUser(t, ts.db, "bob")
	parent, child := testutil.CreateRubrics(t, ts.db, "Transport", "Bikes")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	testutil.CreateAdAt(t, ts.db, owner, child, "Road bike", base)
	testutil.CreateAdAt(t, ts.db, owner, child, "Helmet", base.Add(time.Hour))
	testutil.CreateAdAt(t, ts.db, owner, child, "Kids BIKE", base.Add(2*time.Hour))

	path := fmt.Sprintf("/%d/", child.ID)

	t.Run("first page", func(t *testing.T) {
		resp := ts.get(path)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, "main/by_rubric", page.Page)
		assert.Equal(t, []string{"Kids BIKE", "Helmet"}, adTitles(t, page))
		p := page.Data["page"].(map[string]any)
		assert.Equal(t, float64(1), p["number"])
		assert.Equal(t, float64(2), p["num_pages"])
		assert.Equal(t, true, p["has_next"])
		assert.Equal(t, false, p["has_previous"])
	})

	t.Run("out of range page is clamped", func(t *testing.T) {
		page := decodePage(t, ts.get(path+"?page=9"))
		assert.Equal(t, []string{"Road bike"}, adTitles(t, page))
		assert.Equal(t, float64(2), page.Data["page"].(map[string]any)["number"])
	})

	t.Run("non numeric page means first", func(t *testing.T) {
		page := decodePage(t, ts.get(path+"?page=abc"))
		assert.Equal(t, float64(1), page.Data["page"].(map[string]any)["number"])
	})

	t.Run("keyword", func(t *testing.T) {
		page := decodePage(t, ts.get(path+"?keyword="+url.QueryEscape(" bike ")))
		assert.Equal(t, []string{"Kids BIKE", "Road bike"}, adTitles(t, page))
		assert.Equal(t, "bike", page.Data["keyword"])
	})

	t.Run("top-level rubric", func(t *testing.T) {
		resp := ts.get(fmt.Sprintf("/%d/", parent.ID))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown rubric", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ts.get("/999/").StatusCode)
		assert.Equal(t, http.StatusNotFound, ts.get("/bikes/").StatusCode)
	})
}

func TestDetail(t *testing.T) {
	ts := newTestServer(t)
	owner := testutil.CreateUser(t, ts.db, "bob")
	_, child := testutil.CreateRubrics(t, ts.db, "Transport", "Bikes")
	_, other := testutil.CreateRubrics(t, ts.db, "Home", "Furniture")
	ad := testutil.CreateAd(t, ts.db, owner, child, "Road bike")
	require.NoError(t, ts.db.Create(&models.Comment{AdID: ad.ID, Author: "ann", Content: "Still for sale?", IsActive: true}).Error)
	require.NoError(t, ts.db.Create(&models.Comment{AdID: ad.ID, Author: "spam", Content: "hidden", IsActive: false}).Error)

	resp := ts.get(fmt.Sprintf("/%d/%d/", child.ID, ad.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodePage(t, resp)
	assert.Equal(t, "main/detail", page.Page)
	assert.Equal(t, "Road bike", page.Data["ad"].(map[string]any)["title"])
	assert.Len(t, page.Data["comments"], 1)
	assert.Equal(t, "", page.Data["form"].(map[string]any)["author"])

	// Logged-in visitors get their username as the default author.
	cookies := ts.login("bob", "secret-pass-42")
	page = decodePage(t, ts.get(fmt.Sprintf("/%d/%d/", child.ID, ad.ID), cookies...))
	assert.Equal(t, "bob", page.Data["form"].(map[string]any)["author"])

	t.Run("wrong rubric", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ts.get(fmt.Sprintf("/%d/%d/", other.ID, ad.ID)).StatusCode)
	})

	t.Run("inactive ad", func(t *testing.T) {
		require.NoError(t, ts.db.Model(ad).Update("is_active", false).Error)
		assert.Equal(t, http.StatusNotFound, ts.get(fmt.Sprintf("/%d/%d/", child.ID, ad.ID)).StatusCode)
	})
}

func TestAddComment(t *testing.T) {
	ts := newTestServer(t)
	owner := testutil.CreateUser(t, ts.db, "bob")
	_, child := testutil.CreateRubrics(t, ts.db, "Transport", "Bikes")
	ad := testutil.CreateAd(t, ts.db, owner, child, "Red bike")
	path := fmt.Sprintf("/%d/%d/", child.ID, ad.ID)

	t.Run("captcha is required", func(t *testing.T) {
		resp := ts.post(path, url.Values{"author": {"ann"}, "content": {"Is it available?"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		page := decodePage(t, resp)
		assert.Equal(t, "main/detail", page.Page)
		assert.NotEmpty(t, page.Errors["captcha"])
		assert.Contains(t, page.Messages, "Comment not added")
		assert.Equal(t, "Is it available?", page.Data["form"].(map[string]any)["content"])
		assert.Empty(t, ts.outbox.Messages())
	})

	t.Run("owner is mailed", func(t *testing.T) {
		resp := ts.post(path, url.Values{
			"author":               {"ann"},
			"content":              {"Is it available?"},
			"g-recaptcha-response": {"token"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, path, resp.Header.Get("Location"))

		msgs := ts.outbox.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "bob@example.com", msgs[0].To)
		assert.Contains(t, msgs[0].Body, "http://board.test"+path)

		page := decodePage(t, ts.get(path, liveCookies(resp)...))
		assert.Contains(t, page.Messages, "Comment added")
		assert.Len(t, page.Data["comments"], 1)
	})

	t.Run("owner opted out", func(t *testing.T) {
		ts.outbox.Reset()
		require.NoError(t, ts.db.Model(owner).Update("send_messages", false).Error)
		resp := ts.post(path, url.Values{
			"author":               {"ann"},
			"content":              {"Second question"},
			"g-recaptcha-response": {"token"},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Empty(t, ts.outbox.Messages())
		require.NoError(t, ts.db.Model(owner).Update("send_messages", true).Error)
	})

	t.Run("author defaults to session user", func(t *testing.T) {
		testutil.CreateUser(t, ts.db, "carol")
		cookies := ts.login("carol", "secret-pass-42")
		resp := ts.post(path, url.Values{
			"content":              {"I will take it"},
			"g-recaptcha-response": {"token"},
		}, cookies...)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		var c models.Comment
		require.NoError(t, ts.db.Where("content = ?", "I will take it").First(&c).Error)
		assert.Equal(t, "carol", c.Author)
	})

	t.Run("mail failure is reported", func(t *testing.T) {
		ts.outbox.Err = errors.New("smtp: connection refused")
		defer ts.outbox.Reset()
		resp := ts.post(path, url.Values{
			"author":               {"ann"},
			"content":              {"Anyone there?"},
			"g-recaptcha-response": {"token"},
		})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("unknown ad", func(t *testing.T) {
		resp := ts.post(fmt.Sprintf("/%d/999/", child.ID), url.Values{
			"author":               {"ann"},
			"content":              {"Hello"},
			"g-recaptcha-response": {"token"},
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServeMediaMissing(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.get("/media/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
