package git

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Status represents repository state following a commit attempt.
type Status struct {
	Committed bool
	Pending   bool
	Hash      string
}

// Repo describes the backup operations the CLI needs.
type Repo interface {
	Init(ctx context.Context) error
	Commit(ctx context.Context, message string, paths []string) (Status, error)
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

// ProfileRepo versions a profile directory with go-git. Paths passed to
// Commit are relative to the profile directory.
type ProfileRepo struct {
	Path   string
	Remote string
}

// Init creates the repository if needed and configures the origin remote.
func (r *ProfileRepo) Init(ctx context.Context) error {
	_ = ctx
	_, err := gogit.PlainInit(r.Path, false)
	if err != nil && !errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
		return fmt.Errorf("init repo at %s: %w", r.Path, err)
	}
	if r.Remote == "" {
		return nil
	}
	repo, err := gogit.PlainOpen(r.Path)
	if err != nil {
		return err
	}
	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{r.Remote},
	})
	if err != nil && !errors.Is(err, gogit.ErrRemoteExists) {
		return fmt.Errorf("configure remote: %w", err)
	}
	return nil
}

// Commit stages paths and records a snapshot. A clean worktree commits
// nothing and reports Pending false.
func (r *ProfileRepo) Commit(ctx context.Context, message string, paths []string) (Status, error) {
	_ = ctx
	repo, err := gogit.PlainOpen(r.Path)
	if err != nil {
		return Status{}, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Status{}, err
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return Status{}, fmt.Errorf("stage %s: %w", p, err)
		}
	}
	status, err := wt.Status()
	if err != nil {
		return Status{}, err
	}
	if status.IsClean() {
		return Status{}, nil
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "otpbridge",
			Email: "otpbridge@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return Status{Pending: true}, err
	}
	return Status{Committed: true, Hash: hash.String()}, nil
}

// Push pushes to origin.
func (r *ProfileRepo) Push(ctx context.Context) error {
	repo, err := gogit.PlainOpen(r.Path)
	if err != nil {
		return err
	}
	err = repo.PushContext(ctx, &gogit.PushOptions{RemoteName: "origin"})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Pull fetches and fast-forward merges from origin.
func (r *ProfileRepo) Pull(ctx context.Context) error {
	repo, err := gogit.PlainOpen(r.Path)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{RemoteName: "origin"})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}
