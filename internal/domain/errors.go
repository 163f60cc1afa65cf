package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned when the resolver or backend cannot be reached
	ErrNetwork = errors.New("resolver unreachable")
	// ErrStream is returned when the resolver answered without a playable source
	ErrStream = errors.New("no playable stream")
	// ErrPlayback is returned when the media backend fails after loading a URL
	ErrPlayback = errors.New("playback failed")
	// ErrPersistence wraps storage failures; callers swallow it
	ErrPersistence = errors.New("persistence failed")
	// ErrKeyNotFound is returned by KVStore.Get for absent keys
	ErrKeyNotFound = errors.New("key not found")

	ErrQueueBoundary    = errors.New("no queue entry in that direction")
	ErrNoTrack          = errors.New("no track loaded")
	ErrNoSearchKey      = errors.New("song has no search key")
	ErrNothingToRetry   = errors.New("no failed track to retry")
	ErrSuperseded       = errors.New("resolution superseded by a newer play request")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// ResolutionError reports why a search key could not be turned into a stream
type ResolutionError struct {
	SearchTerm string
	Kind       ErrorKind
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q (%s): %v", e.SearchTerm, e.Kind, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ClassifyResolution maps a resolver error to the session error kind
func ClassifyResolution(err error) ErrorKind {
	var resErr *ResolutionError
	if errors.As(err, &resErr) && resErr.Kind != "" {
		return resErr.Kind
	}
	if errors.Is(err, ErrNetwork) {
		return KindNetwork
	}
	return KindStream
}
