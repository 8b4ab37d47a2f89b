package server

import (
	"bboard/internal/middleware"
	"bboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	profileURL   = "/accounts/profile/"
	msgLoggedOut = "You have been logged out."
)

// RegisterForm handles GET /accounts/register/
// @Summary Registration page
// @Tags accounts
// @Produce json
// @Success 200 {object} Page
// @Router /accounts/register/ [get]
func (s *Server) RegisterForm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/register_user", fiber.Map{
		"form": fiber.Map{"send_messages": true},
	})
}

// Register handles POST /accounts/register/
// @Summary Register a new account
// @Description Stores an inactive user and mails the activation link.
// @Tags accounts
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param first_name formData string false "First name"
// @Param last_name formData string false "Last name"
// @Param password1 formData string true "Password"
// @Param password2 formData string true "Password confirmation"
// @Param send_messages formData bool false "Mail me about new comments"
// @Param g-recaptcha-response formData string true "CAPTCHA answer"
// @Success 302
// @Failure 400 {object} Page
// @Failure 500 {object} models.ErrorResponse
// @Router /accounts/register/ [post]
func (s *Server) Register(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in := service.RegisterInput{
		Username:     f.Value("username"),
		Email:        f.Value("email"),
		FirstName:    f.Value("first_name"),
		LastName:     f.Value("last_name"),
		Password1:    f.Value("password1"),
		Password2:    f.Value("password2"),
		SendMessages: f.Bool("send_messages"),
		Captcha:      captchaInput(c, f),
	}

	if _, err := s.accountService.Register(c.UserContext(), in); err != nil {
		if isValidation(err) {
			return s.render.RenderInvalid(c, "main/register_user", fiber.Map{
				"form": fiber.Map{
					"username":      in.Username,
					"email":         in.Email,
					"first_name":    in.FirstName,
					"last_name":     in.LastName,
					"send_messages": in.SendMessages,
				},
			}, err)
		}
		return respondError(c, err)
	}
	return c.Redirect("/accounts/register/done/", fiber.StatusFound)
}

// RegisterDone handles GET /accounts/register/done/
func (s *Server) RegisterDone(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/register_done", nil)
}

// Activate handles GET /accounts/register/activate/:sign/
// @Summary Redeem an activation link
// @Tags accounts
// @Produce json
// @Param sign path string true "Signed username"
// @Success 200 {object} Page
// @Failure 400 {object} Page
// @Failure 404 {object} models.ErrorResponse
// @Router /accounts/register/activate/{sign}/ [get]
func (s *Server) Activate(c *fiber.Ctx) error {
	outcome, err := s.accountService.Activate(c.UserContext(), c.Params("sign"))
	if err != nil {
		return respondError(c, err)
	}
	switch outcome {
	case service.OutcomeActivated:
		return s.render.Render(c, fiber.StatusOK, "main/activation_done", nil)
	case service.OutcomeAlreadyActivated:
		return s.render.Render(c, fiber.StatusOK, "main/user_is_activated", nil)
	default:
		return s.render.Render(c, fiber.StatusBadRequest, "main/bad_signature", nil)
	}
}

// LoginForm handles GET /accounts/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/login", fiber.Map{
		"next": c.Query("next"),
	})
}

// Login handles POST /accounts/login/
// @Summary Log in
// @Description Starts a session cookie and redirects to next, or the profile page.
// @Tags accounts
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param next formData string false "Local path to continue to"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/login/ [post]
func (s *Server) Login(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	next := f.Value("next")
	if next == "" {
		next = c.Query("next")
	}

	user, err := s.accountService.Login(c.UserContext(), f.Value("username"), f.Value("password"))
	if err != nil {
		if isValidation(err) {
			return s.render.RenderInvalid(c, "main/login", fiber.Map{
				"form": fiber.Map{"username": f.Value("username")},
				"next": next,
			}, err)
		}
		return respondError(c, err)
	}
	if err := s.sessions.Issue(c, user); err != nil {
		return respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)
	return c.Redirect(middleware.SafeNext(next, profileURL), fiber.StatusFound)
}

// LogoutConfirm handles GET /accounts/logout/
func (s *Server) LogoutConfirm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/logout", nil)
}

// Logout handles POST /accounts/logout/
// @Summary Log out
// @Description Revokes the current session.
// @Tags accounts
// @Success 302
// @Router /accounts/logout/ [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.sessions.Clear(c); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "session revocation failed", "error", err)
	}
	return redirectWith(c, "/", msgLoggedOut)
}

// PasswordResetForm handles GET /accounts/password_reset/
func (s *Server) PasswordResetForm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/password_reset", nil)
}

// PasswordReset handles POST /accounts/password_reset/
// @Summary Request a password reset link
// @Description Mails a reset link to every active account with the address. The response does not reveal whether one exists.
// @Tags accounts
// @Accept x-www-form-urlencoded,json
// @Param email formData string true "Email"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/password_reset/ [post]
func (s *Server) PasswordReset(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.passwordService.RequestReset(c.UserContext(), f.Value("email")); err != nil {
		if isValidation(err) {
			return s.render.RenderInvalid(c, "main/password_reset", fiber.Map{
				"form": fiber.Map{"email": f.Value("email")},
			}, err)
		}
		return respondError(c, err)
	}
	return c.Redirect("/accounts/password_reset/done/", fiber.StatusFound)
}

// PasswordResetDone handles GET /accounts/password_reset/done/
func (s *Server) PasswordResetDone(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/password_reset_done", nil)
}

// PasswordResetConfirmForm handles GET /accounts/password_reset/:uid/:token/
func (s *Server) PasswordResetConfirmForm(c *fiber.Ctx) error {
	_, err := s.passwordService.CheckResetLink(c.UserContext(), c.Params("uid"), c.Params("token"))
	if err != nil && statusForError(err) != fiber.StatusBadRequest {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/password_reset_confirm", fiber.Map{
		"validlink": err == nil,
	})
}

// PasswordResetConfirm handles POST /accounts/password_reset/:uid/:token/
// @Summary Set a new password through a reset link
// @Tags accounts
// @Accept x-www-form-urlencoded,json
// @Param uid path string true "Encoded user id"
// @Param token path string true "Reset token"
// @Param new_password1 formData string true "New password"
// @Param new_password2 formData string true "New password confirmation"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/password_reset/{uid}/{token}/ [post]
func (s *Server) PasswordResetConfirm(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	err = s.passwordService.ConfirmReset(c.UserContext(), c.Params("uid"), c.Params("token"),
		f.Value("new_password1"), f.Value("new_password2"))
	switch {
	case err == nil:
		return c.Redirect("/accounts/password_reset/complete/", fiber.StatusFound)
	case isValidation(err):
		return s.render.RenderInvalid(c, "main/password_reset_confirm", fiber.Map{"validlink": true}, err)
	case statusForError(err) == fiber.StatusBadRequest:
		return s.render.Render(c, fiber.StatusBadRequest, "main/password_reset_confirm", fiber.Map{"validlink": false})
	default:
		return respondError(c, err)
	}
}

// PasswordResetComplete handles GET /accounts/password_reset/complete/
func (s *Server) PasswordResetComplete(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/password_reset_complete", nil)
}
