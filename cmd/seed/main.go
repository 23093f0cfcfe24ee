// Command main fills a Quill database with demo users, posts, comments and follows.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fast := flag.Bool("fast", true, "Hash the demo password with the minimum bcrypt cost")
	days := flag.Int("days", 90, "Spread post dates over this many past days")
	randSeed := flag.Int64("seed", 0, "Random seed for repeatable data (0 picks one)")
	flag.Parse()

	log.Println("Quill database seeder")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	summary, err := seed.Seed(context.Background(), db, seed.Options{
		NumUsers:    *numUsers,
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		FastHash:    *fast,
		MaxDays:     *days,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("Created %d users, %d groups, %d posts, %d comments, %d follows.\n",
		summary.Users, summary.Groups, summary.Posts, summary.Comments, summary.Follows)
	fmt.Printf("All demo users have the password: %s\n", seed.DefaultPassword)
}
