// Package seed provides helpers to create test and demo data for the
// bulletin board database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"bboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

// FactoryOptions tune how entities are generated.
type FactoryOptions struct {
	// DryRun builds entities with synthetic ids and writes nothing.
	DryRun bool
	// SkipBcrypt stores a cheap hash for fast local seeding.
	SkipBcrypt bool
	// MaxDays spreads creation times over this many past days.
	MaxDays int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rnd  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		// #nosec G404: acceptable for seeding
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() string {
	if f.hash != "" {
		return f.hash
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		log.Printf("seed: hashing default password: %v", err)
		return ""
	}
	f.hash = string(hashed)
	return f.hash
}

// pastTime returns a random moment within the configured day window.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.rnd.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return time.Now().UTC().Add(-back)
}

func (f *Factory) create(value any, label string) error {
	if f.opts.DryRun {
		f.nextID++
		log.Printf("[dry-run] %s #%d (no DB write)", label, f.nextID)
		return nil
	}
	return f.db.Create(value).Error
}

// BuildUser constructs an active, activated account without saving it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999))
	user := models.NewManagedUser(username, fmt.Sprintf("%s@example.com", username), f.passwordHash())
	user.FirstName = first
	user.LastName = last
	user.SendMessages = gofakeit.Bool()
	user.DateJoined = f.pastTime()
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample account.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	if err := f.create(user, "CreateUser "+user.Username); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		user.ID = f.nextID
	}
	return user, nil
}

// CreatePendingUser persists an account that never followed its activation link.
func (f *Factory) CreatePendingUser(overrides ...func(*models.User)) (*models.User, error) {
	return f.CreateUser(append([]func(*models.User){func(u *models.User) {
		u.IsActive = false
		u.IsActivated = false
	}}, overrides...)...)
}

// BuildAd constructs an active ad for author under rubric without saving it.
func (f *Factory) BuildAd(author *models.User, rubric *models.Rubric, overrides ...func(*models.Ad)) *models.Ad {
	title := gofakeit.ProductName()
	if len([]rune(title)) > 40 {
		title = string([]rune(title)[:40])
	}
	ad := &models.Ad{
		RubricID:  rubric.ID,
		AuthorID:  author.ID,
		Title:     title,
		Content:   gofakeit.ProductDescription(),
		Price:     float64(gofakeit.Number(1, 5000)),
		Contacts:  gofakeit.Phone(),
		IsActive:  f.rnd.Float32() < 0.9,
		CreatedAt: f.pastTime(),
	}
	for _, override := range overrides {
		override(ad)
	}
	return ad
}

// CreateAd constructs and persists a sample ad.
func (f *Factory) CreateAd(author *models.User, rubric *models.Rubric, overrides ...func(*models.Ad)) (*models.Ad, error) {
	ad := f.BuildAd(author, rubric, overrides...)
	if err := f.createOmitting(ad, "CreateAd "+ad.Title); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		ad.ID = f.nextID
	}
	return ad, nil
}

func (f *Factory) createOmitting(ad *models.Ad, label string) error {
	if f.opts.DryRun {
		return f.create(ad, label)
	}
	return f.db.Omit("Rubric", "Author").Create(ad).Error
}

// CreateComment constructs and persists a sample comment on ad.
func (f *Factory) CreateComment(ad *models.Ad, overrides ...func(*models.Comment)) (*models.Comment, error) {
	author := gofakeit.FirstName()
	comment := &models.Comment{
		AdID:      ad.ID,
		Author:    author,
		Content:   gofakeit.Question(),
		IsActive:  true,
		CreatedAt: ad.CreatedAt.Add(time.Duration(f.rnd.Intn(72)+1) * time.Hour),
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.create(comment, "CreateComment on ad "+fmt.Sprint(ad.ID)); err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		comment.ID = f.nextID
	}
	return comment, nil
}
