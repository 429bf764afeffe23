// Package mirror reconciles local posts with the remote esa team.
//
// Push decides between create and update from the locally cached post
// number. Fetch materializes remote records as local files, always
// overwriting: the remote copy is authoritative. Attach uploads a file
// through a pre-signed upload policy.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/journal"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/post"
)

// ErrUncategorized indicates a single fetched record has no category and
// so cannot be mapped onto a local path.
var ErrUncategorized = errors.New("remote post has no category")

// Gateway is the subset of the esa API the engine drives.
// *esa.Client satisfies it.
type Gateway interface {
	CreatePost(ctx context.Context, payload esa.PostPayload) (*esa.Post, error)
	UpdatePost(ctx context.Context, number uint64, payload esa.PostPayload) (*esa.Post, error)
	GetPost(ctx context.Context, number uint64) (*esa.Post, error)
	SearchPosts(ctx context.Context, query string) (*esa.SearchResult, error)
	AttachmentPolicy(ctx context.Context, meta esa.FileMeta) (*esa.UploadPolicy, error)
	Upload(ctx context.Context, policy *esa.UploadPolicy, path string) (*esa.UploadResult, error)
}

// Recorder receives one entry per completed sync operation.
// *journal.Journal satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Options configures an Engine.
type Options struct {
	Gateway Gateway

	// Root is the workspace directory posts are stored under.
	Root string

	// User scopes name and bulk fetches to posts by this screen name.
	User string

	// Journal is optional.
	Journal Recorder

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Engine runs sync operations against one workspace.
type Engine struct {
	gateway Gateway
	root    string
	user    string
	journal Recorder
	logger  zerolog.Logger
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("mirror: gateway is required")
	}
	if opts.Root == "" {
		return nil, fmt.Errorf("mirror: workspace root is required")
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Engine{
		gateway: opts.Gateway,
		root:    opts.Root,
		user:    opts.User,
		journal: opts.Journal,
		logger:  logger.With().Str("component", "mirror").Logger(),
	}, nil
}

// Root returns the workspace root.
func (e *Engine) Root() string {
	return e.root
}

// PushResult describes a completed push.
type PushResult struct {
	Post    *post.Post
	URL     string
	Created bool
}

// Push sends the post stored at path to the remote. A post without a
// number is created; otherwise the numbered post is updated. The number
// from the response is written back to the local file.
func (e *Engine) Push(ctx context.Context, path string) (*PushResult, error) {
	p, err := post.LoadFile(e.root, path)
	if err != nil {
		return nil, err
	}

	var (
		remote  *esa.Post
		created = p.Meta.Number == nil
	)
	if created {
		e.logger.Debug().Str("post", p.Name.String()).Msg("creating remote post")
		remote, err = e.gateway.CreatePost(ctx, p.Payload())
	} else {
		e.logger.Debug().Str("post", p.Name.String()).Uint64("number", *p.Meta.Number).Msg("updating remote post")
		remote, err = e.gateway.UpdatePost(ctx, *p.Meta.Number, p.Payload())
	}
	if err != nil {
		return nil, fmt.Errorf("push %s: %w", p.Name, err)
	}

	p.SetNumber(remote.Number)
	if err := p.Save(); err != nil {
		return nil, err
	}

	action := journal.ActionUpdate
	if created {
		action = journal.ActionCreate
	}
	e.record(ctx, journal.Entry{Action: action, Name: p.Name.String(), Number: p.Meta.Number, URL: remote.URL})

	return &PushResult{Post: p, URL: remote.URL, Created: created}, nil
}

// Selector chooses which remote posts Fetch materializes.
type Selector struct {
	name   string
	number uint64
	kind   selectorKind
}

type selectorKind int

const (
	selectAll selectorKind = iota
	selectName
	selectNumber
)

// ByName selects the current user's posts matching a hierarchical name.
func ByName(name paths.Name) Selector {
	return Selector{kind: selectName, name: name.String()}
}

// ByNumber selects the single post with the given number.
func ByNumber(number uint64) Selector {
	return Selector{kind: selectNumber, number: number}
}

// All selects every post by the current user.
func All() Selector {
	return Selector{kind: selectAll}
}

func (s Selector) String() string {
	switch s.kind {
	case selectName:
		return "name " + s.name
	case selectNumber:
		return "number " + strconv.FormatUint(s.number, 10)
	default:
		return "all"
	}
}

// FetchedPost is one post written by Fetch.
type FetchedPost struct {
	Post *post.Post
	URL  string
}

// Fetch writes the selected remote posts into the workspace, replacing any
// local copies.
//
// Records without a category are skipped when the selector can match
// several posts; a single post fetched by number must have one. Files are
// written one by one, so a failure part way through keeps the files
// already written.
func (e *Engine) Fetch(ctx context.Context, selector Selector) ([]FetchedPost, error) {
	if selector.kind == selectNumber {
		record, err := e.gateway.GetPost(ctx, selector.number)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", selector, err)
		}
		if record.CategoryPath() == "" {
			return nil, fmt.Errorf("%w: #%d %s", ErrUncategorized, selector.number, record.Name)
		}
		fetched, err := e.materialize(ctx, *record)
		if err != nil {
			return nil, err
		}
		return []FetchedPost{fetched}, nil
	}

	query, err := e.query(selector)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("query", query).Msg("searching remote posts")

	result, err := e.gateway.SearchPosts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", selector, err)
	}

	var out []FetchedPost
	for _, record := range result.Posts {
		if record.CategoryPath() == "" {
			e.logger.Info().Str("name", record.Name).Msg("skipping uncategorized post")
			continue
		}
		fetched, err := e.materialize(ctx, record)
		if err != nil {
			return out, err
		}
		out = append(out, fetched)
	}
	if result.NextPage != nil {
		e.logger.Warn().Int("total", result.TotalCount).Int("fetched", len(result.Posts)).Msg("more posts match than one page holds")
	}
	return out, nil
}

func (e *Engine) query(selector Selector) (string, error) {
	terms := []esa.Term{{Key: "user", Value: e.user}}
	if selector.kind == selectName {
		n, err := paths.Parse(selector.name)
		if err != nil {
			return "", err
		}
		terms = append(terms,
			esa.Term{Key: "category", Value: n.Category()},
			esa.Term{Key: "name", Value: n.Base()},
		)
	}
	return esa.Query(terms...), nil
}

func (e *Engine) materialize(ctx context.Context, record esa.Post) (FetchedPost, error) {
	name, err := paths.Join(record.CategoryPath(), record.Name)
	if err != nil {
		return FetchedPost{}, fmt.Errorf("remote post %q: %w", record.Name, err)
	}

	p := post.FromRemote(e.root, name, record)
	if err := p.Save(); err != nil {
		return FetchedPost{}, err
	}
	e.logger.Debug().Str("post", name.String()).Str("path", p.Path()).Msg("wrote fetched post")

	e.record(ctx, journal.Entry{Action: journal.ActionFetch, Name: name.String(), Number: p.Meta.Number, URL: record.URL})
	return FetchedPost{Post: p, URL: record.URL}, nil
}

// AttachResult describes a completed upload.
type AttachResult struct {
	File string
	Meta esa.FileMeta

	// URL is where the attachment is served.
	URL string

	// Response is the storage endpoint's raw response.
	Response *esa.UploadResult
}

// Attach uploads file as an attachment. Failures are not retried.
func (e *Engine) Attach(ctx context.Context, file string) (*AttachResult, error) {
	meta, err := esa.FileMetaFromPath(file)
	if err != nil {
		return nil, err
	}

	policy, err := e.gateway.AttachmentPolicy(ctx, meta)
	if err != nil {
		if errors.Is(err, esa.ErrUploadFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: upload policy for %s: %w", esa.ErrUploadFailed, meta.Name, err)
	}

	response, err := e.gateway.Upload(ctx, policy, file)
	if err != nil {
		return nil, err
	}

	e.record(ctx, journal.Entry{Action: journal.ActionAttach, Name: meta.Name, URL: policy.Attachment.URL})
	return &AttachResult{File: file, Meta: meta, URL: policy.Attachment.URL, Response: response}, nil
}

func (e *Engine) record(ctx context.Context, entry journal.Entry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Str("post", entry.Name).Msg("journal write failed")
	}
}
