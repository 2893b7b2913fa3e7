// Versions every snapshot save as a git commit using go-git.

package persist

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Author identifies who commits snapshot revisions.
type Author struct {
	Name  string
	Email string
}

// Revision is one committed version of the snapshot.
type Revision struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

type commitMessageKey struct{}

// WithCommitMessage attaches the commit message used by Git.Save to ctx.
func WithCommitMessage(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, commitMessageKey{}, msg)
}

func commitMessage(ctx context.Context) string {
	if msg, ok := ctx.Value(commitMessageKey{}).(string); ok && msg != "" {
		return msg
	}
	return "Update snapshot"
}

// Git wraps a File and commits the snapshot to a git repository rooted at the
// snapshot's directory after each save.
type Git struct {
	file   *File
	rel    string
	author Author
	repo   *gogit.Repository
	mu     sync.Mutex
}

// NewGit opens or initializes the repository holding f's snapshot.
func NewGit(f *File, author Author) (*Git, error) {
	dir := filepath.Dir(f.Path())
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = author.Name
		cfg.User.Email = author.Email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Git{
		file:   f,
		rel:    filepath.ToSlash(filepath.Base(f.Path())),
		author: author,
		repo:   repo,
	}, nil
}

// Save writes the snapshot and commits it. Saving identical content creates no
// commit. If the commit fails, the previous snapshot file is put back.
func (g *Git) Save(ctx context.Context, snapshot []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev, hadPrev, err := g.file.LoadAtStartup(ctx)
	if err != nil {
		return err
	}
	if err := g.file.Save(ctx, snapshot); err != nil {
		return err
	}
	if err := g.commit(ctx); err != nil {
		if rerr := g.restore(ctx, prev, hadPrev); rerr != nil {
			slog.ErrorContext(ctx, "Failed to restore snapshot", "path", g.file.Path(), "err", rerr)
		}
		return err
	}
	return nil
}

func (g *Git) commit(ctx context.Context) error {
	w, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(g.rel); err != nil {
		return fmt.Errorf("failed to stage snapshot: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to get worktree status: %w", err)
	}
	if fs, ok := status[g.rel]; !ok || fs.Staging == gogit.Unmodified {
		return nil
	}
	sig := &object.Signature{Name: g.author.Name, Email: g.author.Email, When: time.Now()}
	if _, err := w.Commit(commitMessage(ctx), &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// restore puts back the snapshot file as it was before a failed Save.
func (g *Git) restore(ctx context.Context, prev []byte, hadPrev bool) error {
	if hadPrev {
		return g.file.Save(ctx, prev)
	}
	if err := os.Remove(g.file.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// LoadAtStartup returns the working copy of the snapshot.
func (g *Git) LoadAtStartup(ctx context.Context) ([]byte, bool, error) {
	return g.file.LoadAtStartup(ctx)
}

// Revisions returns up to n snapshot commits, newest first.
func (g *Git) Revisions(_ context.Context, n int) ([]Revision, error) {
	if n <= 0 || n > 1000 {
		n = 1000
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	rel := g.rel
	iter, err := g.repo.Log(&gogit.LogOptions{FileName: &rel})
	if err != nil {
		// No commits yet.
		return []Revision{}, nil
	}
	defer iter.Close()
	out := []Revision{}
	for range n {
		c, err := iter.Next()
		if err != nil {
			break
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		out = append(out, Revision{
			Hash:    c.Hash.String(),
			Message: subject,
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
	}
	return out, nil
}

// SnapshotAt returns the snapshot content as of the given commit hash.
func (g *Git) SnapshotAt(_ context.Context, hash string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, err := g.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", hash, err)
	}
	c, err := g.repo.CommitObject(*h)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	f, err := c.File(g.rel)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot at %s: %w", hash, err)
	}
	s, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot at %s: %w", hash, err)
	}
	return []byte(s), nil
}
