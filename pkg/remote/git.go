package remote

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/rs/zerolog"
)

const defaultStateFile = "heimdal.state.json"

// GitOptions configures a Git remote.
type GitOptions struct {
	// Dir is any path inside the dotfiles worktree.
	Dir        string
	RemoteName string
	Branch     string
	// StateFile is the state file path, absolute or relative to the
	// repository root.
	StateFile   string
	AuthorName  string
	AuthorEmail string
	Auth        transport.AuthMethod
	Clock       func() time.Time
}

// Git implements Remote on a local clone with go-git.
type Git struct {
	opts   GitOptions
	repo   *git.Repository
	root   string
	logger zerolog.Logger
}

var _ Remote = (*Git)(nil)

// OpenGit opens the repository containing opts.Dir. A directory outside any
// repository is NOT_FOUND so callers can run without a remote.
func OpenGit(opts GitOptions) (*Git, error) {
	if opts.RemoteName == "" {
		opts.RemoteName = git.DefaultRemoteName
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	repo, err := git.PlainOpenWithOptions(opts.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		return nil, errors.Newf(errors.ErrNotFound, "%s is not inside a git repository", opts.Dir).
			WithDetail("path", opts.Dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRemoteFailed, "cannot open git repository at %s", opts.Dir)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrRemoteFailed, "dotfiles repository has no worktree")
	}

	if _, err := repo.Remote(opts.RemoteName); err != nil {
		return nil, errors.Wrapf(err, errors.ErrNotFound, "git remote %q is not configured", opts.RemoteName).
			WithDetail("remote", opts.RemoteName)
	}

	root := wt.Filesystem.Root()
	if opts.StateFile == "" {
		opts.StateFile = defaultStateFile
	}
	if filepath.IsAbs(opts.StateFile) {
		rel, err := filepath.Rel(root, opts.StateFile)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, errors.Newf(errors.ErrConfigValid, "state file %s is outside the repository at %s", opts.StateFile, root).
				WithDetail("path", opts.StateFile)
		}
		opts.StateFile = rel
	}
	opts.StateFile = filepath.ToSlash(opts.StateFile)

	return &Git{
		opts:   opts,
		repo:   repo,
		root:   root,
		logger: logging.GetLogger("remote"),
	}, nil
}

// Root is the worktree root.
func (g *Git) Root() string { return g.root }

// URL is the first fetch URL of the configured remote.
func (g *Git) URL() string {
	r, err := g.repo.Remote(g.opts.RemoteName)
	if err != nil || len(r.Config().URLs) == 0 {
		return ""
	}
	return r.Config().URLs[0]
}

func (g *Git) remoteRef() plumbing.ReferenceName {
	return plumbing.NewRemoteReferenceName(g.opts.RemoteName, g.opts.Branch)
}

// FetchRemoteState fetches the configured branch and reads the state file
// from the remote-tracking ref.
func (g *Git) FetchRemoteState(ctx context.Context) ([]byte, error) {
	spec := config.RefSpec(fmt.Sprintf("+%s:%s", plumbing.NewBranchReferenceName(g.opts.Branch), g.remoteRef()))
	start := g.opts.Clock()

	err := g.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: g.opts.RemoteName,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       g.opts.Auth,
	})
	switch {
	case err == nil, stderrors.Is(err, git.NoErrAlreadyUpToDate):
	case stderrors.Is(err, transport.ErrEmptyRemoteRepository), stderrors.Is(err, git.NoMatchingRefSpecError{}):
		g.logger.Debug().Str("branch", g.opts.Branch).Msg("Remote branch does not exist yet")
		return nil, nil
	default:
		return nil, Classify(err, "fetch")
	}

	g.logger.Debug().
		Str("remote", g.opts.RemoteName).
		Dur("took", g.opts.Clock().Sub(start)).
		Msg("Fetched remote")
	return g.readRemoteState()
}

// readRemoteState reads the state file from the remote-tracking ref without
// touching the network.
func (g *Git) readRemoteState() ([]byte, error) {
	ref, err := g.repo.Reference(g.remoteRef(), true)
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err, "read remote ref")
	}

	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, Classify(err, "read remote commit")
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, Classify(err, "read remote tree")
	}
	file, err := tree.File(filepath.ToSlash(g.opts.StateFile))
	if stderrors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err, "read remote state")
	}

	r, err := file.Reader()
	if err != nil {
		return nil, Classify(err, "read remote state")
	}
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Classify(err, "read remote state")
	}
	return data, nil
}

// Commit stages paths, absolute or relative to the worktree root, and
// commits them.
func (g *Git) Commit(ctx context.Context, paths []string, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	wt, err := g.repo.Worktree()
	if err != nil {
		return Classify(err, "commit")
	}

	for _, p := range paths {
		rel, err := g.relative(p)
		if err != nil {
			return err
		}
		if _, statErr := os.Stat(filepath.Join(g.root, rel)); os.IsNotExist(statErr) {
			if _, err := wt.Remove(rel); err != nil && !stderrors.Is(err, index.ErrEntryNotFound) {
				return Classify(err, "rm")
			}
			continue
		}
		if _, err := wt.Add(rel); err != nil {
			return Classify(err, "add")
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: g.signature()})
	if stderrors.Is(err, git.ErrEmptyCommit) {
		g.logger.Debug().Msg("Nothing to commit")
		return nil
	}
	if err != nil {
		return Classify(err, "commit")
	}
	g.logger.Info().Str("commit", hash.String()).Msg("Committed state")
	return nil
}

func (g *Git) relative(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return filepath.ToSlash(filepath.Clean(p)), nil
	}
	rel, err := filepath.Rel(g.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.ErrInvalidInput, "%s is outside the dotfiles repository", p).
			WithDetail("path", p)
	}
	return filepath.ToSlash(rel), nil
}

// signature picks the configured author, then the git config identity, then
// a local fallback.
func (g *Git) signature() *object.Signature {
	now := g.opts.Clock()
	if g.opts.AuthorName != "" && g.opts.AuthorEmail != "" {
		return &object.Signature{Name: g.opts.AuthorName, Email: g.opts.AuthorEmail, When: now}
	}
	if cfg, err := g.repo.ConfigScoped(config.SystemScope); err == nil && cfg.User.Name != "" && cfg.User.Email != "" {
		return &object.Signature{Name: cfg.User.Name, Email: cfg.User.Email, When: now}
	}

	name := "heimdal"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}
	return &object.Signature{Name: name, Email: name + "@" + host, When: now}
}

// Push publishes the current branch.
func (g *Git) Push(ctx context.Context) error {
	err := g.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: g.opts.RemoteName,
		RefSpecs: []config.RefSpec{
			config.RefSpec(fmt.Sprintf("%s:%s", plumbing.NewBranchReferenceName(g.opts.Branch), plumbing.NewBranchReferenceName(g.opts.Branch))),
		},
		Auth: g.opts.Auth,
	})
	if err == nil || stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return Classify(err, "push")
}

// Pull fast-forwards the worktree to the remote branch. go-git cannot
// rebase, so a diverged branch fails either way and is reported with
// diverged=true.
func (g *Git) Pull(ctx context.Context, rebase bool) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return Classify(err, "pull")
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    g.opts.RemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(g.opts.Branch),
		SingleBranch:  true,
		Auth:          g.opts.Auth,
	})
	switch {
	case err == nil, stderrors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case stderrors.Is(err, git.ErrNonFastForwardUpdate):
		hint := "merge the branches by hand"
		if rebase {
			hint = "rebase by hand with 'git pull --rebase'"
		}
		return errors.Wrapf(err, errors.ErrRemoteFailed, "local and remote branches diverged; %s", hint).
			WithDetail("op", "pull").
			WithDetail("diverged", true)
	default:
		return Classify(err, "pull")
	}
}

// HeadCommit returns the commit HEAD points at, or "" on an unborn branch.
func (g *Git) HeadCommit() (string, error) {
	head, err := g.repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", Classify(err, "rev-parse HEAD")
	}
	return head.Hash().String(), nil
}
