package seed

import (
	"fmt"
	"log"

	"bboard/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumAds      int
	ShouldClean bool
	Factory     FactoryOptions
}

// Seed populates the database with demo data: the built-in rubric tree,
// users, ads and a few comments.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d ads...", opts.NumUsers, opts.NumAds)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("clear existing data: %w", err)
		}
	}

	subRubrics, err := Rubrics(db)
	if err != nil {
		return fmt.Errorf("failed to seed rubrics: %w", err)
	}
	log.Printf("✓ %d sub-rubrics available", len(subRubrics))

	f := NewFactory(db, opts.Factory)
	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		create := f.CreateUser
		// Every fifth account is left waiting for activation.
		if i%5 == 4 {
			create = f.CreatePendingUser
		}
		user, err := create()
		if err != nil {
			log.Printf("Failed to create user: %v", err)
			continue
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		log.Println("No users created, skipping ads")
		return nil
	}
	log.Printf("✓ %d users created", len(users))

	ads := 0
	for i := 0; i < opts.NumAds; i++ {
		author := users[f.rnd.Intn(len(users))]
		rubric := &subRubrics[f.rnd.Intn(len(subRubrics))]
		ad, err := f.CreateAd(author, rubric)
		if err != nil {
			return fmt.Errorf("failed to create ad: %w", err)
		}
		ads++
		for n := f.rnd.Intn(3); n > 0; n-- {
			if _, err := f.CreateComment(ad); err != nil {
				return fmt.Errorf("failed to create comment: %w", err)
			}
		}
	}
	log.Printf("✓ %d ads created", ads)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		steps := []func() error{
			func() error { return tx.Where("1 = 1").Delete(&models.Comment{}).Error },
			func() error { return tx.Where("1 = 1").Delete(&models.AdditionalImage{}).Error },
			func() error { return tx.Where("1 = 1").Delete(&models.Ad{}).Error },
			func() error { return tx.Where("super_rubric_id IS NOT NULL").Delete(&models.Rubric{}).Error },
			func() error { return tx.Where("1 = 1").Delete(&models.Rubric{}).Error },
			// Administrators survive a clean.
			func() error { return tx.Where("is_superuser = ?", false).Delete(&models.User{}).Error },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}
