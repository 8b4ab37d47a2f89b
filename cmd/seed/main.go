// Command main runs the database seeder for the bulletin board.
package main

import (
	"flag"
	"log"

	"bboard/internal/bootstrap"
	"bboard/internal/config"
	"bboard/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numAds := flag.Int("ads", 60, "Number of ads to create")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate entities without writing them")
	fast := flag.Bool("fast", true, "Use the cheapest bcrypt cost for seeded passwords")
	maxDays := flag.Int("days", 30, "Spread ad dates over this many past days")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d ads, clean=%v\n", *numUsers, *numAds, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumAds:      *numAds,
		ShouldClean: *shouldClean,
		Factory: seed.FactoryOptions{
			DryRun:     *dryRun,
			SkipBcrypt: *fast,
			MaxDays:    *maxDays,
		},
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
