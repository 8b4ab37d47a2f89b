package server

import (
	"strconv"
	"strings"

	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	msgUserChanged     = "User data changed"
	msgPasswordChanged = "Password of user changed"
	msgUserDeleted     = "User deleted"
	msgAdAdded         = "Ad added"
	msgAdChanged       = "Ad changed"
	msgAdDeleted       = "Ad deleted"
)

// currentUserID is only called behind AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	return middleware.CurrentUser(c).ID
}

// Profile handles GET /accounts/profile/
// @Summary Own profile with every own ad
// @Tags profile
// @Produce json
// @Success 200 {object} Page
// @Router /accounts/profile/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	ads, err := s.adService.ListOwned(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/profile", fiber.Map{"ads": ads})
}

// ProfileChangeForm handles GET /accounts/profile/change/
func (s *Server) ProfileChangeForm(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return s.render.Render(c, fiber.StatusOK, "main/change_user_info", fiber.Map{
		"form": fiber.Map{
			"username":      user.Username,
			"email":         user.Email,
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"send_messages": user.SendMessages,
		},
	})
}

// ProfileChange handles POST /accounts/profile/change/
// @Summary Edit own profile
// @Tags profile
// @Accept x-www-form-urlencoded,json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param first_name formData string false "First name"
// @Param last_name formData string false "Last name"
// @Param send_messages formData bool false "Mail me about new comments"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/profile/change/ [post]
func (s *Server) ProfileChange(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in := service.ProfileInput{
		Username:     f.Value("username"),
		Email:        f.Value("email"),
		FirstName:    f.Value("first_name"),
		LastName:     f.Value("last_name"),
		SendMessages: f.Bool("send_messages"),
	}
	if _, err := s.profileService.UpdateInfo(c.UserContext(), currentUserID(c), in); err != nil {
		if isValidation(err) {
			return s.render.RenderInvalid(c, "main/change_user_info", fiber.Map{
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
	return redirectWith(c, profileURL, msgUserChanged)
}

// PasswordChangeForm handles GET /accounts/profile/password_change/
func (s *Server) PasswordChangeForm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/password_change", nil)
}

// PasswordChange handles POST /accounts/profile/password_change/
// @Summary Change own password
// @Description Other sessions of the user stop working; the current one is reissued.
// @Tags profile
// @Accept x-www-form-urlencoded,json
// @Param old_password formData string true "Current password"
// @Param new_password1 formData string true "New password"
// @Param new_password2 formData string true "New password confirmation"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/profile/password_change/ [post]
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	user, err := s.passwordService.Change(c.UserContext(), currentUserID(c),
		f.Value("old_password"), f.Value("new_password1"), f.Value("new_password2"))
	if err != nil {
		if isValidation(err) {
			return s.render.RenderInvalid(c, "main/password_change", nil, err)
		}
		return respondError(c, err)
	}
	if err := s.sessions.Issue(c, user); err != nil {
		return respondError(c, err)
	}
	return redirectWith(c, "/accounts/profile/password_change/done/", msgPasswordChanged)
}

// PasswordChangeDone handles GET /accounts/profile/password_change/done/
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/password_change_done", nil)
}

// DeleteUserConfirm handles GET /accounts/profile/delete/
func (s *Server) DeleteUserConfirm(c *fiber.Ctx) error {
	return s.render.Render(c, fiber.StatusOK, "main/delete_user", nil)
}

// DeleteUser handles POST /accounts/profile/delete/
// @Summary Delete own account
// @Description Removes the user with every ad, extra image and stored file, then ends the session.
// @Tags profile
// @Success 302
// @Router /accounts/profile/delete/ [post]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.profileService.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	if err := s.sessions.Clear(c); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "session revocation failed", "error", err)
	}
	return redirectWith(c, "/", msgUserDeleted)
}

// adForm reads the ad form. Malformed numbers are reported as field errors.
func adForm(f *form) (service.AdInput, error) {
	fe := models.FieldErrors{}
	in := service.AdInput{
		Title:          f.Value("title"),
		Content:        f.Value("content"),
		Contacts:       f.Value("contacts"),
		IsActive:       f.Bool("is_active"),
		ClearImage:     f.Bool("image-clear"),
		DeleteImageIDs: f.IDs("delete_images"),
	}

	if raw := strings.TrimSpace(f.Value("rubric")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			fe.Add("rubric", "Select a valid choice. That choice is not one of the available choices.")
		}
		in.RubricID = uint(id)
	}
	if raw := strings.TrimSpace(f.Value("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fe.Add("price", "Enter a number.")
		}
		in.Price = price
	}

	image, err := f.File("image")
	if err != nil {
		return in, err
	}
	in.Image = image
	extras, err := f.Files("additional_images")
	if err != nil {
		return in, err
	}
	in.NewImages = extras

	return in, fe.Err()
}

func adFormValues(in service.AdInput) fiber.Map {
	return fiber.Map{
		"rubric":    in.RubricID,
		"title":     in.Title,
		"content":   in.Content,
		"price":     in.Price,
		"contacts":  in.Contacts,
		"is_active": in.IsActive,
	}
}

func (s *Server) adPageData(c *fiber.Ctx, data fiber.Map) (fiber.Map, error) {
	rubrics, err := s.rubricService.SubLevel(c.UserContext())
	if err != nil {
		return nil, err
	}
	data["rubrics"] = rubrics
	return data, nil
}

// AdAddForm handles GET /accounts/profile/add/
func (s *Server) AdAddForm(c *fiber.Ctx) error {
	data, err := s.adPageData(c, fiber.Map{"form": fiber.Map{"is_active": true}})
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/profile_ad_add", data)
}

// AdAdd handles POST /accounts/profile/add/
// @Summary Post a new ad
// @Description The author is the session user. Extra images are stored with the ad in one transaction.
// @Tags profile
// @Accept multipart/form-data
// @Param rubric formData int true "Sub-rubric id"
// @Param title formData string true "Title"
// @Param content formData string true "Description"
// @Param price formData number false "Price"
// @Param contacts formData string true "Contacts"
// @Param is_active formData bool false "Show in listings"
// @Param image formData file false "Main image"
// @Param additional_images formData file false "Extra images"
// @Success 302
// @Failure 400 {object} Page
// @Router /accounts/profile/add/ [post]
func (s *Server) AdAdd(c *fiber.Ctx) error {
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in, err := adForm(f)
	if err == nil {
		_, err = s.adService.Create(c.UserContext(), currentUserID(c), in)
	}
	if err != nil {
		if isValidation(err) {
			data, derr := s.adPageData(c, fiber.Map{"form": adFormValues(in)})
			if derr != nil {
				return respondError(c, derr)
			}
			return s.render.RenderInvalid(c, "main/profile_ad_add", data, err)
		}
		return respondError(c, err)
	}
	return redirectWith(c, profileURL, msgAdAdded)
}

// AdChangeForm handles GET /accounts/profile/change/:id/
func (s *Server) AdChangeForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.adService.OwnedDetail(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	ad := detail.Ad
	data, err := s.adPageData(c, fiber.Map{
		"ad": ad,
		"form": adFormValues(service.AdInput{
			RubricID: ad.RubricID,
			Title:    ad.Title,
			Content:  ad.Content,
			Price:    ad.Price,
			Contacts: ad.Contacts,
			IsActive: ad.IsActive,
		}),
	})
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/profile_ad_change", data)
}

// AdChange handles POST /accounts/profile/change/:id/
// @Summary Edit an own ad
// @Tags profile
// @Accept multipart/form-data
// @Param id path int true "Ad id"
// @Param rubric formData int true "Sub-rubric id"
// @Param title formData string true "Title"
// @Param content formData string true "Description"
// @Param price formData number false "Price"
// @Param contacts formData string true "Contacts"
// @Param is_active formData bool false "Show in listings"
// @Param image formData file false "Replacement main image"
// @Param image-clear formData bool false "Remove the main image"
// @Param additional_images formData file false "Extra images to add"
// @Param delete_images formData []int false "Extra image ids to remove"
// @Success 302
// @Failure 400 {object} Page
// @Failure 403 {object} models.ErrorResponse
// @Router /accounts/profile/change/{id}/ [post]
func (s *Server) AdChange(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	f, err := parseForm(c)
	if err != nil {
		return respondError(c, err)
	}
	in, err := adForm(f)
	var ad *models.Ad
	if err == nil {
		ad, err = s.adService.Update(c.UserContext(), currentUserID(c), id, in)
	}
	if err != nil {
		if isValidation(err) {
			data, derr := s.adPageData(c, fiber.Map{"form": adFormValues(in), "ad_id": id})
			if derr != nil {
				return respondError(c, derr)
			}
			return s.render.RenderInvalid(c, "main/profile_ad_change", data, err)
		}
		return respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "ad changed", "ad_id", ad.ID)
	return redirectWith(c, profileURL, msgAdChanged)
}

// AdDeleteConfirm handles GET /accounts/profile/delete/:id/
func (s *Server) AdDeleteConfirm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.adService.OwnedDetail(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/profile_ad_delete", fiber.Map{"ad": detail.Ad})
}

// AdDelete handles POST /accounts/profile/delete/:id/
// @Summary Delete an own ad
// @Tags profile
// @Param id path int true "Ad id"
// @Success 302
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /accounts/profile/delete/{id}/ [post]
func (s *Server) AdDelete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return redirectWith(c, profileURL, msgAdDeleted)
}

// ProfileAdDetail handles GET /accounts/profile/:id/
// @Summary One of the user's own ads, active or not
// @Tags profile
// @Produce json
// @Param id path int true "Ad id"
// @Success 200 {object} Page
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /accounts/profile/{id}/ [get]
func (s *Server) ProfileAdDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.adService.OwnedDetail(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return s.render.Render(c, fiber.StatusOK, "main/profile_ad_detail", fiber.Map{
		"ad":       detail.Ad,
		"comments": detail.Comments,
		"images":   s.imageURLs(detail.Ad),
	})
}

// imageURLs resolves the stored file names of ad to public URLs.
func (s *Server) imageURLs(ad *models.Ad) fiber.Map {
	extras := make([]string, 0, len(ad.AdditionalImages))
	for _, img := range ad.AdditionalImages {
		extras = append(extras, s.store.URL(img.Image))
	}
	main := ""
	if ad.Image != "" {
		main = s.store.URL(ad.Image)
	}
	return fiber.Map{"image": main, "additional": extras}
}
