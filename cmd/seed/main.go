// Seed loads demo accounts and content into a dev or test database. It
// refuses to run against anything else.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xcenweb/lextrade/internal/config"
	"github.com/xcenweb/lextrade/internal/security"
	"github.com/xcenweb/lextrade/internal/storage"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo123456"

	bannedEmail    = "banned@example.com"
	bannedPassword = "banned123456"
)

func main() {
	env := os.Getenv("LEX_ENV")
	if env == "" {
		env = "dev"
	}
	if env != "dev" && env != "test" {
		log.Fatalf("refusing to seed: LEX_ENV must be 'dev' or 'test' (got '%s')", env)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := storage.RunMigrations(ctx, cfg.DB.URL()); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DB.URL())
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if err := seedUsers(ctx, pool, security.Argon2Params(cfg.Argon2)); err != nil {
		log.Fatalf("seed users: %v", err)
	}
	if err := seedContent(ctx, pool); err != nil {
		log.Fatalf("seed content: %v", err)
	}

	fmt.Println("seeded demo data:")
	fmt.Printf("  active account:  %s / %s\n", demoEmail, demoPassword)
	fmt.Printf("  banned account:  %s / %s\n", bannedEmail, bannedPassword)
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, params security.Argon2Params) error {
	accounts := []struct {
		nickname string
		email    string
		password string
		status   int16
	}{
		{"demo", demoEmail, demoPassword, storage.UserStatusActive},
		{"banned", bannedEmail, bannedPassword, storage.UserStatusBanned},
	}

	for _, a := range accounts {
		hash, err := security.HashPassword(a.password, params)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (nickname, password, email, status)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET status = $4
		`, a.nickname, hash, a.email, a.status)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedContent(ctx context.Context, pool *pgxpool.Pool) error {
	var authorID int64
	if err := pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1`, demoEmail).Scan(&authorID); err != nil {
		return err
	}

	tagNames := []string{"writing", "coding", "productivity"}
	tagIDs := make(map[string]int64, len(tagNames))
	for i, name := range tagNames {
		var tagID int64
		err := pool.QueryRow(ctx, `
			INSERT INTO prompt_tag (name, status, click_count)
			VALUES ($1, 1, $2)
			ON CONFLICT (name) DO UPDATE SET click_count = EXCLUDED.click_count
			RETURNING id
		`, name, (len(tagNames)-i)*100).Scan(&tagID)
		if err != nil {
			return err
		}
		tagIDs[name] = tagID

		_, err = pool.Exec(ctx, `
			INSERT INTO prompt_tag_public (real_tag_id, name, sort_order, status, click_count)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (name) DO NOTHING
		`, tagID, name, len(tagNames)-i, (len(tagNames)-i)*100)
		if err != nil {
			return err
		}
	}

	articles := []struct {
		title   string
		summary string
		content string
		tag     string
		views   int
	}{
		{"Better prompts for technical writing", "Patterns for documentation prompts.", "Start with the audience...", "writing", 420},
		{"Code review prompt cookbook", "Prompts that catch real bugs.", "Ask for invariants first...", "coding", 310},
		{"A weekly planning prompt", "One prompt, one planning session.", "List the week's commitments...", "productivity", 150},
	}
	for _, a := range articles {
		var exists bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM prompts WHERE user_id = $1 AND title = $2)`,
			authorID, a.title).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		var promptID int64
		err := pool.QueryRow(ctx, `
			INSERT INTO prompts (user_id, type, title, summary_content, content, status, view_count)
			VALUES ($1, 'article', $2, $3, $4, 1, $5)
			RETURNING id
		`, authorID, a.title, a.summary, a.content, a.views).Scan(&promptID)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO prompt_tag_relation (prompt_id, tag_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, promptID, tagIDs[a.tag])
		if err != nil {
			return err
		}
	}
	return nil
}
