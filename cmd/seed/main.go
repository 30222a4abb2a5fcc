// Command main runs the database seeder for karmafeed.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"karmafeed/internal/bootstrap"
	"karmafeed/internal/config"
	"karmafeed/internal/repository"
	"karmafeed/internal/seed"
	"karmafeed/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	likes := flag.Int("likes", defaults.LikesPerPost, "Likes per post")
	workers := flag.Int("workers", defaults.Concurrency, "Concurrent like workers")
	randSeed := flag.Int64("seed", 0, "Random seed for a reproducible run (0 = time based)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	likeService := service.NewLikeService(db,
		repository.NewUserRepository(db),
		repository.NewPostRepository(db),
		repository.NewCommentRepository(db),
		repository.NewLikeRepository(db),
		repository.NewKarmaRepository(db),
	)

	s := seed.NewSeeder(db, likeService, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		LikesPerPost:    *likes,
		ShouldClean:     *shouldClean,
		Concurrency:     *workers,
		RandSeed:        *randSeed,
	})

	start := time.Now()
	summary, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done in %s: %d users, %d posts, %d comments, %d likes",
		time.Since(start).Round(time.Millisecond), summary.Users, summary.Posts, summary.Comments, summary.Likes)
	log.Println("Act as any seeded user by sending its username in the X-User header.")
}
