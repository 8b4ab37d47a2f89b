package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	flashCookie = "bboard_messages"
	// captchaField is the form key the reCAPTCHA widget posts.
	captchaField = "g-recaptcha-response"
)

// statusForError maps an AppError code to its HTTP status. Anything that is
// not an AppError is a server error.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation, models.CodeBadSignature:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict, models.CodeIntegrity:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func isValidation(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Code == models.CodeValidation
}

// respondError writes err with its mapped status.
func respondError(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// parseID extracts a route parameter as a positive uint. Anything else is
// a missing page, the same as an unmatched route.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(param), 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Page", c.Params(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// MenuSource lists the rubric navigation shown on every page.
type MenuSource interface {
	Menu(ctx context.Context) ([]models.Rubric, error)
}

// Page is the JSON envelope every page handler responds with. Page names
// the template a front end renders it with.
type Page struct {
	Page     string              `json:"page"`
	User     *models.User        `json:"user,omitempty"`
	Menu     []models.Rubric     `json:"menu"`
	Data     fiber.Map           `json:"data"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Messages []string            `json:"messages"`
}

// Renderer builds page envelopes.
type Renderer struct {
	menu MenuSource
}

func NewRenderer(menu MenuSource) *Renderer {
	return &Renderer{menu: menu}
}

// Render writes page with status. Pending flash messages are consumed.
func (r *Renderer) Render(c *fiber.Ctx, status int, page string, data fiber.Map) error {
	return r.render(c, status, page, data, nil)
}

// RenderInvalid re-renders a form page with the field errors of err.
// messages are shown along with any pending flash messages.
func (r *Renderer) RenderInvalid(c *fiber.Ctx, page string, data fiber.Map, err error, messages ...string) error {
	var appErr *models.AppError
	fields := map[string][]string{}
	if errors.As(err, &appErr) {
		if len(appErr.Fields) > 0 {
			fields = appErr.Fields
		} else {
			fields["__all__"] = []string{appErr.Message}
		}
	}
	return r.render(c, fiber.StatusBadRequest, page, data, fields, messages...)
}

func (r *Renderer) render(c *fiber.Ctx, status int, page string, data fiber.Map, fields map[string][]string, messages ...string) error {
	menu, err := r.menu.Menu(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if data == nil {
		data = fiber.Map{}
	}
	if menu == nil {
		menu = []models.Rubric{}
	}
	return c.Status(status).JSON(Page{
		Page:     page,
		User:     middleware.CurrentUser(c),
		Menu:     menu,
		Data:     data,
		Errors:   fields,
		Messages: append(takeFlash(c), messages...),
	})
}

// flash queues a message for the next rendered page.
func flash(c *fiber.Ctx, message string) {
	msgs := append(pendingFlash(c), message)
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(strings.Join(msgs, "\n")),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func pendingFlash(c *fiber.Ctx) []string {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return nil
	}
	decoded, err := url.QueryUnescape(raw)
	if err != nil || decoded == "" {
		return nil
	}
	return strings.Split(decoded, "\n")
}

func takeFlash(c *fiber.Ctx) []string {
	msgs := pendingFlash(c)
	if msgs == nil {
		return []string{}
	}
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return msgs
}

// redirectWith queues message and redirects with 302.
func redirectWith(c *fiber.Ctx, location, message string) error {
	if message != "" {
		flash(c, message)
	}
	return c.Redirect(location, fiber.StatusFound)
}

// form reads submitted fields from urlencoded, multipart or JSON bodies.
type form struct {
	c         *fiber.Ctx
	json      map[string]any
	multipart *multipart.Form
}

func parseForm(c *fiber.Ctx) (*form, error) {
	f := &form{c: c}
	switch {
	case c.Is("json"):
		if len(c.Body()) > 0 {
			if err := c.App().Config().JSONDecoder(c.Body(), &f.json); err != nil {
				return nil, models.NewValidationError("Invalid request body")
			}
		}
	case strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm):
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, models.NewValidationError("Invalid multipart body")
		}
		f.multipart = mf
	}
	return f, nil
}

// Value returns the submitted value of key.
func (f *form) Value(key string) string {
	if f.json != nil {
		switch v := f.json[key].(type) {
		case nil:
			return ""
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		default:
			return fmt.Sprint(v)
		}
	}
	return f.c.FormValue(key)
}

// Bool follows checkbox semantics: an absent box is false.
func (f *form) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(f.Value(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Values returns every value of a repeated key.
func (f *form) Values(key string) []string {
	if f.json != nil {
		switch v := f.json[key].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
			return out
		case nil:
			return nil
		default:
			return []string{f.Value(key)}
		}
	}
	if f.multipart != nil {
		return f.multipart.Value[key]
	}
	var out []string
	f.c.Request().PostArgs().VisitAll(func(k, v []byte) {
		if string(k) == key {
			out = append(out, string(v))
		}
	})
	return out
}

// IDs parses a repeated key of numeric ids, skipping anything else.
func (f *form) IDs(key string) []uint {
	var ids []uint
	for _, raw := range f.Values(key) {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
		if err == nil && id > 0 {
			ids = append(ids, uint(id))
		}
	}
	return ids
}

// File returns the first upload under key, or nil.
func (f *form) File(key string) (*service.Upload, error) {
	files, err := f.Files(key)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

// Files reads every upload under key. Empty file inputs are skipped.
func (f *form) Files(key string) ([]service.Upload, error) {
	if f.multipart == nil {
		return nil, nil
	}
	var uploads []service.Upload
	for _, fh := range f.multipart.File[key] {
		if fh.Size == 0 && fh.Filename == "" {
			continue
		}
		data, err := readUpload(fh)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Data:        data,
		})
	}
	return uploads, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return data, nil
}

// captchaInput collects the challenge answer from the form.
func captchaInput(c *fiber.Ctx, f *form) service.CaptchaInput {
	return service.CaptchaInput{
		Response: f.Value(captchaField),
		RemoteIP: c.IP(),
	}
}
