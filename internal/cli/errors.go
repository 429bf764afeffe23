package cli

import (
	"errors"

	"github.com/aidanlsb/esm/internal/config"
	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/mirror"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/post"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Post errors
	ErrNameInvalid   = "NAME_INVALID"
	ErrFileExists    = "FILE_EXISTS"
	ErrFileNotFound  = "FILE_NOT_FOUND"
	ErrFormatInvalid = "FORMAT_INVALID"
	ErrMetaInvalid   = "META_INVALID"

	// Remote errors
	ErrTransport     = "TRANSPORT_ERROR"
	ErrUploadFailed  = "UPLOAD_FAILED"
	ErrUncategorized = "UNCATEGORIZED"

	// Local state errors
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrJournal       = "JOURNAL_ERROR"

	// Input errors
	ErrInvalidInput = "INVALID_INPUT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// errorCode maps an error onto its stable code. Upload failures are
// checked before transport failures since a failed policy request is both.
func errorCode(err error) string {
	switch {
	case errors.Is(err, paths.ErrNameInvalid):
		return ErrNameInvalid
	case errors.Is(err, post.ErrAlreadyExists):
		return ErrFileExists
	case errors.Is(err, post.ErrNotExists):
		return ErrFileNotFound
	case errors.Is(err, document.ErrFormatInvalid):
		return ErrFormatInvalid
	case errors.Is(err, document.ErrMetaInvalid):
		return ErrMetaInvalid
	case errors.Is(err, esa.ErrUploadFailed):
		return ErrUploadFailed
	case errors.Is(err, esa.ErrTransport):
		return ErrTransport
	case errors.Is(err, mirror.ErrUncategorized):
		return ErrUncategorized
	case errors.Is(err, config.ErrMissingCredential), errors.Is(err, config.ErrInvalid):
		return ErrConfigInvalid
	default:
		return ErrInternal
	}
}

func suggestionFor(code string) string {
	switch code {
	case ErrNameInvalid:
		return "Post names need a category: <category>/<name>, without '.' or '..' segments"
	case ErrFileExists:
		return "Edit the existing file, or fetch it to replace it with the remote copy"
	case ErrFileNotFound:
		return "Create it with 'esm create <category>/<name>' or fetch it"
	case ErrFormatInvalid:
		return "Posts start with a +++ delimited TOML header"
	case ErrMetaInvalid:
		return "The header needs tags = [...] and wip = true|false"
	case ErrTransport:
		return "Check the team name, access token, and network; rerun with --verbose for details"
	case ErrConfigInvalid:
		return "Set team, user and token in the config file or via ESA_TEAM, ESA_USER, ESA_API_KEY"
	case ErrUncategorized:
		return "Give the post a category on esa before fetching it"
	default:
		return ""
	}
}
