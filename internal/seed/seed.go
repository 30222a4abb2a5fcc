// Package seed populates the database with demo data for development and load testing.
package seed

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"karmafeed/internal/models"
	"karmafeed/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	LikesPerPost    int
	ShouldClean     bool
	// Concurrency bounds the like workers.
	Concurrency int
	// RandSeed makes a run reproducible; zero means time-based.
	RandSeed int64
}

// DefaultOptions returns a small but lively data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		NumPosts:        50,
		CommentsPerPost: 6,
		LikesPerPost:    8,
		ShouldClean:     true,
		Concurrency:     8,
	}
}

// Liker applies likes through the same path the API uses, so every seeded
// like has its ledger entry.
type Liker interface {
	EnsureLiked(ctx context.Context, kind models.TargetKind, actorID, targetID uint) (*service.LikeOutcome, error)
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Likes    int64
}

type Seeder struct {
	db    *gorm.DB
	likes Liker
	opts  Options
	faker *gofakeit.Faker
}

type likeJob struct {
	kind     models.TargetKind
	actorID  uint
	targetID uint
}

func NewSeeder(db *gorm.DB, likes Liker, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Seeder{db: db, likes: likes, opts: opts, faker: gofakeit.New(seed)}
}

// ClearAll deletes every feed row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.KarmaEvent{},
		&models.CommentLike{},
		&models.PostLike{},
		&models.Comment{},
		&models.Post{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	log.Println("✓ Existing feed data cleared")
	return nil
}

// Run seeds users, posts, threaded comments and likes.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	users, err := s.createUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	posts, err := s.createPosts(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	comments, err := s.createComments(ctx, users, posts)
	if err != nil {
		return nil, fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ %d comments created", len(comments))

	liked, err := s.applyLikes(ctx, s.planLikes(users, posts, comments))
	if err != nil {
		return nil, fmt.Errorf("failed to apply likes: %w", err)
	}
	log.Printf("✓ %d likes applied", liked)

	return &Summary{Users: len(users), Posts: len(posts), Comments: len(comments), Likes: liked}, nil
}

func (s *Seeder) createUsers(ctx context.Context) ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		users = append(users, &models.User{
			Username: fmt.Sprintf("%s_%d", s.faker.Username(), i+1),
		})
	}
	if len(users) == 0 {
		return users, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(users, 100).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Seeder) createPosts(ctx context.Context, users []*models.User) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		posts = append(posts, &models.Post{
			Body:   s.faker.Paragraph(1, 3, 12, "\n"),
			UserID: author.ID,
		})
	}
	if len(posts) == 0 {
		return posts, nil
	}
	if err := s.db.WithContext(ctx).Omit("User").CreateInBatches(posts, 100).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// createComments builds threads one comment at a time so a reply can point at
// any earlier comment of the same post.
func (s *Seeder) createComments(ctx context.Context, users []*models.User, posts []*models.Post) ([]*models.Comment, error) {
	var all []*models.Comment
	for _, post := range posts {
		var thread []*models.Comment
		for i := 0; i < s.opts.CommentsPerPost; i++ {
			c := &models.Comment{
				Body:   s.faker.Sentence(s.faker.Number(4, 16)),
				PostID: post.ID,
				UserID: users[s.faker.Number(0, len(users)-1)].ID,
			}
			if len(thread) > 0 && s.faker.Bool() {
				parent := thread[s.faker.Number(0, len(thread)-1)]
				c.ParentID = &parent.ID
			}
			if err := s.db.WithContext(ctx).Omit("User", "Post", "Parent").Create(c).Error; err != nil {
				return nil, err
			}
			thread = append(thread, c)
		}
		all = append(all, thread...)
	}
	return all, nil
}

// planLikes picks distinct likers per target up front; the faker is not safe
// for concurrent use.
func (s *Seeder) planLikes(users []*models.User, posts []*models.Post, comments []*models.Comment) []likeJob {
	if len(users) == 0 {
		return nil
	}
	pick := func(n int) []uint {
		if n > len(users) {
			n = len(users)
		}
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		s.faker.ShuffleAnySlice(ids)
		return ids[:n]
	}

	var jobs []likeJob
	for _, p := range posts {
		for _, actorID := range pick(s.faker.Number(0, s.opts.LikesPerPost)) {
			jobs = append(jobs, likeJob{kind: models.TargetPost, actorID: actorID, targetID: p.ID})
		}
	}
	for _, c := range comments {
		for _, actorID := range pick(s.faker.Number(0, s.opts.LikesPerPost/2)) {
			jobs = append(jobs, likeJob{kind: models.TargetComment, actorID: actorID, targetID: c.ID})
		}
	}
	return jobs
}

func (s *Seeder) applyLikes(ctx context.Context, jobs []likeJob) (int64, error) {
	var changed atomic.Int64

	p := pool.New().
		WithMaxGoroutines(s.opts.Concurrency).
		WithContext(ctx).
		WithCancelOnError()
	for _, job := range jobs {
		p.Go(func(ctx context.Context) error {
			out, err := s.likes.EnsureLiked(ctx, job.kind, job.actorID, job.targetID)
			if err != nil {
				return fmt.Errorf("like %s %d by %d: %w", job.kind, job.targetID, job.actorID, err)
			}
			if out.Changed {
				changed.Add(1)
			}
			return nil
		})
	}
	err := p.Wait()
	return changed.Load(), err
}
