package service

import (
	"context"
	"fmt"
	"strconv"

	"bboard/internal/middleware"
	"bboard/internal/models"
	"bboard/internal/repository"
	"bboard/internal/storage"
	"bboard/internal/validation"
)

const (
	// IndexSize is how many of the newest ads the front page shows.
	IndexSize = 10
	// DefaultPageSize is the rubric listing page size.
	DefaultPageSize = 2
)

// Upload is one submitted file.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AdInput is the owner's ad form. NewImages are appended as extra images
// and DeleteImageIDs dropped; ClearImage removes the main image.
type AdInput struct {
	RubricID       uint
	Title          string
	Content        string
	Contacts       string
	Price          float64
	IsActive       bool
	Image          *Upload
	ClearImage     bool
	NewImages      []Upload
	DeleteImageIDs []uint
}

// AdPage is one page of a rubric listing.
type AdPage struct {
	Rubric   *models.Rubric
	Keyword  string
	Ads      []models.Ad
	Number   int
	NumPages int
	Total    int64
	PageSize int
}

func (p *AdPage) HasPrevious() bool { return p.Number > 1 }
func (p *AdPage) HasNext() bool     { return p.Number < p.NumPages }

// AdDetail is an ad with its active comments, oldest first.
type AdDetail struct {
	Ad       *models.Ad
	Comments []models.Comment
}

// AdService covers browsing and the owner's ad management.
type AdService struct {
	ads      repository.AdRepository
	rubrics  repository.RubricRepository
	comments repository.CommentRepository
	store    storage.FileStore
	pageSize int
	maxBytes int64
}

func NewAdService(ads repository.AdRepository, rubrics repository.RubricRepository, comments repository.CommentRepository, store storage.FileStore, pageSize int, maxUploadMB int) *AdService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &AdService{
		ads:      ads,
		rubrics:  rubrics,
		comments: comments,
		store:    store,
		pageSize: pageSize,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Index returns the newest active ads.
func (s *AdService) Index(ctx context.Context) ([]models.Ad, error) {
	return s.ads.Latest(ctx, IndexSize)
}

// ParsePage turns the page query value into a page number. Anything that
// is not a number means the first page.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// ByRubric lists active ads of a sub-rubric, optionally filtered by keyword.
// The page is clamped into [1, last page].
func (s *AdService) ByRubric(ctx context.Context, rubricID uint, keyword string, page int) (*AdPage, error) {
	rubric, err := s.rubrics.GetByID(ctx, rubricID)
	if err != nil {
		return nil, err
	}
	if !rubric.IsSubLevel() {
		return nil, models.NewNotFoundError("Rubric", rubricID)
	}
	if page < 1 {
		page = 1
	}

	ads, total, err := s.ads.ListByRubric(ctx, rubricID, keyword, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}
	numPages := int((total + int64(s.pageSize) - 1) / int64(s.pageSize))
	if numPages < 1 {
		numPages = 1
	}
	if page > numPages {
		page = numPages
		ads, total, err = s.ads.ListByRubric(ctx, rubricID, keyword, s.pageSize, (page-1)*s.pageSize)
		if err != nil {
			return nil, err
		}
	}

	return &AdPage{
		Rubric:   rubric,
		Keyword:  keyword,
		Ads:      ads,
		Number:   page,
		NumPages: numPages,
		Total:    total,
		PageSize: s.pageSize,
	}, nil
}

// publicAd loads an active ad and checks it is filed under rubricID.
func publicAd(ctx context.Context, ads repository.AdRepository, rubricID, adID uint) (*models.Ad, error) {
	ad, err := ads.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad.RubricID != rubricID || !ad.IsActive {
		return nil, models.NewNotFoundError("Ad", adID)
	}
	return ad, nil
}

// Detail returns a public ad page.
func (s *AdService) Detail(ctx context.Context, rubricID, adID uint) (*AdDetail, error) {
	ad, err := publicAd(ctx, s.ads, rubricID, adID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListActiveByAd(ctx, ad.ID)
	if err != nil {
		return nil, err
	}
	return &AdDetail{Ad: ad, Comments: comments}, nil
}

// ListOwned returns every ad of the user, active or not.
func (s *AdService) ListOwned(ctx context.Context, userID uint) ([]models.Ad, error) {
	return s.ads.ListByAuthor(ctx, userID)
}

func (s *AdService) owned(ctx context.Context, userID, adID uint) (*models.Ad, error) {
	ad, err := s.ads.GetByID(ctx, adID)
	if err != nil {
		return nil, err
	}
	if ad.AuthorID != userID {
		return nil, models.NewForbiddenError("You can only manage your own ads")
	}
	return ad, nil
}

// OwnedDetail returns one of the user's own ads with its comments.
func (s *AdService) OwnedDetail(ctx context.Context, userID, adID uint) (*AdDetail, error) {
	ad, err := s.owned(ctx, userID, adID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListActiveByAd(ctx, ad.ID)
	if err != nil {
		return nil, err
	}
	return &AdDetail{Ad: ad, Comments: comments}, nil
}

type storedFile struct {
	upload Upload
	info   *validation.ImageInfo
	name   string
}

// validate checks the form and returns the images ready to be stored.
func (s *AdService) validate(ctx context.Context, in AdInput) (main *storedFile, extras []storedFile, err error) {
	fe := validation.ValidateAd(validation.AdFields{
		Title:    in.Title,
		Content:  in.Content,
		Contacts: in.Contacts,
		Price:    in.Price,
	})

	rubric, rerr := s.rubrics.GetByID(ctx, in.RubricID)
	switch {
	case isNotFound(rerr) || in.RubricID == 0:
		fe.Add("rubric", "Select a valid choice. That choice is not one of the available choices.")
	case rerr != nil:
		return nil, nil, rerr
	case !rubric.IsSubLevel():
		fe.Add("rubric", "Ads can only be filed under a sub-rubric.")
	}

	if in.Image != nil {
		info, ierr := validation.ValidateImage(in.Image.Data, in.Image.ContentType, s.maxBytes)
		if ierr != nil {
			fe.Add("image", ierr.Error())
		} else {
			main = &storedFile{upload: *in.Image, info: info}
		}
	}
	for _, up := range in.NewImages {
		info, ierr := validation.ValidateImage(up.Data, up.ContentType, s.maxBytes)
		if ierr != nil {
			fe.Add("additional_images", fmt.Sprintf("%s: %s", up.Filename, ierr.Error()))
			continue
		}
		extras = append(extras, storedFile{upload: up, info: info})
	}

	if err := fe.Err(); err != nil {
		return nil, nil, err
	}
	return main, extras, nil
}

// save writes files to the store and names them. On failure nothing that
// was written stays behind.
func (s *AdService) save(ctx context.Context, files ...*storedFile) ([]string, error) {
	var written []string
	for _, f := range files {
		if f == nil {
			continue
		}
		f.name = storage.NewName(f.info.Extension)
		if err := s.store.Save(ctx, f.name, f.info.MIME, f.upload.Data); err != nil {
			s.cleanup(ctx, written)
			return nil, models.NewInternalError(fmt.Errorf("store image: %w", err))
		}
		written = append(written, f.name)
	}
	return written, nil
}

func (s *AdService) cleanup(ctx context.Context, names []string) {
	if err := storage.DeleteAll(ctx, s.store, names); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to clean up stored images", "error", err)
	}
}

func filePointers(main *storedFile, extras []storedFile) []*storedFile {
	out := make([]*storedFile, 0, len(extras)+1)
	out = append(out, main)
	for i := range extras {
		out = append(out, &extras[i])
	}
	return out
}

// Create stores a new ad for authorID with its images.
func (s *AdService) Create(ctx context.Context, authorID uint, in AdInput) (*models.Ad, error) {
	main, extras, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	written, err := s.save(ctx, filePointers(main, extras)...)
	if err != nil {
		return nil, err
	}

	ad := &models.Ad{
		RubricID: in.RubricID,
		AuthorID: authorID,
		Title:    in.Title,
		Content:  in.Content,
		Contacts: in.Contacts,
		Price:    in.Price,
		IsActive: in.IsActive,
	}
	if main != nil {
		ad.Image = main.name
	}
	for _, f := range extras {
		ad.AdditionalImages = append(ad.AdditionalImages, models.AdditionalImage{Image: f.name})
	}

	if err := s.ads.Create(ctx, ad); err != nil {
		s.cleanup(ctx, written)
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "ad created", "ad_id", ad.ID, "images", len(written))
	return s.ads.GetByID(ctx, ad.ID)
}

// Update edits one of the user's ads. Files of dropped or replaced images
// are deleted after the database commit.
func (s *AdService) Update(ctx context.Context, userID, adID uint, in AdInput) (*models.Ad, error) {
	ad, err := s.owned(ctx, userID, adID)
	if err != nil {
		return nil, err
	}
	main, extras, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	written, err := s.save(ctx, filePointers(main, extras)...)
	if err != nil {
		return nil, err
	}

	var obsolete []string
	switch {
	case main != nil:
		if ad.Image != "" {
			obsolete = append(obsolete, ad.Image)
		}
		ad.Image = main.name
	case in.ClearImage && ad.Image != "":
		obsolete = append(obsolete, ad.Image)
		ad.Image = ""
	}
	ad.RubricID = in.RubricID
	ad.Title = in.Title
	ad.Content = in.Content
	ad.Contacts = in.Contacts
	ad.Price = in.Price
	ad.IsActive = in.IsActive

	added := make([]models.AdditionalImage, 0, len(extras))
	for _, f := range extras {
		added = append(added, models.AdditionalImage{Image: f.name})
	}

	removed, err := s.ads.Update(ctx, ad, added, in.DeleteImageIDs)
	if err != nil {
		s.cleanup(ctx, written)
		return nil, err
	}
	s.cleanup(ctx, append(obsolete, removed...))
	return s.ads.GetByID(ctx, ad.ID)
}

// Delete removes one of the user's ads with its images and comments.
func (s *AdService) Delete(ctx context.Context, userID, adID uint) error {
	if _, err := s.owned(ctx, userID, adID); err != nil {
		return err
	}
	files, err := s.ads.Delete(ctx, adID)
	if err != nil {
		return err
	}
	s.cleanup(ctx, files)
	middleware.Logger.InfoContext(ctx, "ad deleted", "ad_id", adID)
	return nil
}
