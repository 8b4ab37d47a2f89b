package server

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"bboard/internal/middleware"
	"bboard/internal/service"
	"bboard/internal/storage"

	"github.com/gofiber/fiber/v2"
)

const (
	msgCommentAdded    = "Comment added"
	msgCommentNotAdded = "Comment not added"
)

// Index handles GET /
// @Summary Front page with the newest ads
// @Tags ads
// @Produce json
// @Success 200 {object} Page
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	ads, err := s.adService.Index(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/index", fiber.Map{"ads": ads})
}

// ByRubric handles GET /:rubric_id/
// @Summary Active ads of a sub-rubric
// @Description Keyword matches title or content, case-insensitively. Out of range pages are clamped.
// @Tags ads
// @Produce json
// @Param rubric_id path int true "Sub-rubric id"
// @Param keyword query string false "Search text"
// @Param page query int false "Page number"
// @Success 200 {object} Page
// @Failure 404 {object} models.ErrorResponse
// @Router /{rubric_id}/ [get]
func (s *Server) ByRubric(c *fiber.Ctx) error {
	rubricID, err := parseID(c, "rubric_id")
	if err != nil {
		return nil
	}
	keyword := strings.TrimSpace(c.Query("keyword"))
	page, err := s.adService.ByRubric(c.UserContext(), rubricID, keyword, service.ParsePage(c.Query("page")))
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/by_rubric", fiber.Map{
		"rubric":  page.Rubric,
		"keyword": page.Keyword,
		"ads":     page.Ads,
		"page": fiber.Map{
			"number":       page.Number,
			"num_pages":    page.NumPages,
			"count":        page.Total,
			"per_page":     page.PageSize,
			"has_previous": page.HasPrevious(),
			"has_next":     page.HasNext(),
		},
	})
}

func (s *Server) detailData(c *fiber.Ctx, rubricID, adID uint) (fiber.Map, error) {
	detail, err := s.adService.Detail(c.UserContext(), rubricID, adID)
	if err != nil {
		return nil, err
	}
	return fiber.Map{
		"ad":       detail.Ad,
		"comments": detail.Comments,
		"images":   s.imageURLs(detail.Ad),
	}, nil
}

func detailIDs(c *fiber.Ctx) (rubricID, adID uint, err error) {
	if rubricID, err = parseID(c, "rubric_id"); err != nil {
		return 0, 0, err
	}
	if adID, err = parseID(c, "ad_id"); err != nil {
		return 0, 0, err
	}
	return rubricID, adID, nil
}

// Detail handles GET /:rubric_id/:ad_id/
// @Summary Public ad page with its active comments
// @Tags ads
// @Produce json
// @Param rubric_id path int true "Sub-rubric id"
// @Param ad_id path int true "Ad id"
// @Success 200 {object} Page
// @Failure 404 {object} models.ErrorResponse
// @Router /{rubric_id}/{ad_id}/ [get]
func (s *Server) Detail(c *fiber.Ctx) error {
	rubricID, adID, err := detailIDs(c)
	if err != nil {
		return nil
	}
	data, err := s.detailData(c, rubricID, adID)
	if err != nil {
		return respondError(c, err)
	}
	form := fiber.Map{"author": ""}
	if u := middleware.CurrentUser(c); u != nil {
		form["author"] = u.Username
	}
	data["form"] = form
	return s.render.Render(c, fiber.StatusOK, "main/detail", data)
}

// AddComment handles POST /:rubric_id/:ad_id/
// @Summary Comment on an ad
// @Description Requires a CAPTCHA answer. The ad owner is mailed when they opted in.
// @Tags ads
// @Accept x-www-form-urlencoded,json
// @Param rubric_id path int true "Sub-rubric id"
// @Param ad_id path int true "Ad id"
// @Param author formData string false "Author, defaults to the session username"
// @Param content formData string true "Comment text"
// @Param g-recaptcha-response formData string true "CAPTCHA answer"
// @Success 302
// @Failure 400 {object} Page
// @Failure 404 {object} models.ErrorResponse
// @Router /{rubric_id}/{ad_id}/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	rubricID, adID, err := detailIDs(c)
	if err != nil {
		return nil
	}
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in := service.CommentInput{
		RubricID: rubricID,
		AdID:     adID,
		Author:   f.Value("author"),
		Content:  f.Value("content"),
		Captcha:  captchaInput(c, f),
	}
	if u := middleware.CurrentUser(c); u != nil {
		in.SessionUsername = u.Username
	}

	if _, err := s.commentService.Create(c.UserContext(), in); err != nil {
		if !isValidation(err) {
			return respondError(c, err)
		}
		data, derr := s.detailData(c, rubricID, adID)
		if derr != nil {
			return respondError(c, derr)
		}
		data["form"] = fiber.Map{"author": in.Author, "content": in.Content}
		return s.render.RenderInvalid(c, "main/detail", data, err, msgCommentNotAdded)
	}
	return redirectWith(c, fmt.Sprintf("/%d/%d/", rubricID, adID), msgCommentAdded)
}

// ServeMedia handles GET /media/*
// @Summary Stored image file
// @Tags media
// @Param name path string true "File name"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /media/{name} [get]
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	name := c.Params("*")
	rc, err := s.store.Open(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "File not found")
		}
		return respondError(c, err)
	}
	if ext := strings.TrimPrefix(path.Ext(name), "."); ext != "" {
		c.Type(ext)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendStream(rc)
}
