// Package revision stamps builds with the source control revision of the project.
package revision

import (
	"errors"
	"fmt"

	ggit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info identifies the checked-out revision of a repository.
type Info struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
	Dirty  bool   `json:"dirty"`
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 8 {
		return i.Commit[:8]
	}
	return i.Commit
}

func (i Info) String() string {
	if i.Commit == "" {
		return ""
	}
	s := i.Short()
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// Detect returns the HEAD revision of the repository containing dir,
// searching parent directories for the .git folder. ok is false when dir is
// not inside a repository or HEAD has no commit yet. When only the worktree
// status fails, ok is true and info carries the commit with Dirty unset.
func Detect(dir string) (info Info, ok bool, err error) {
	repo, err := ggit.PlainOpenWithOptions(dir, &ggit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, ggit.ErrRepositoryNotExists) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return Info{}, false, nil
		}
		return Info{}, false, fmt.Errorf("resolve HEAD: %w", err)
	}

	info = Info{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return info, true, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, true, fmt.Errorf("worktree status: %w", err)
	}
	info.Dirty = !status.IsClean()
	return info, true, nil
}
