package media

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Container formats recognised by Sniff
const (
	FormatMP3    = "mp3"
	FormatFLAC   = "flac"
	FormatWAV    = "wav"
	FormatVorbis = "vorbis"
)

// ErrUnknownFormat is returned for data no decoder recognises
var ErrUnknownFormat = errors.New("unrecognised audio container")

// Sniff identifies the container from the leading bytes
func Sniff(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3, nil
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC, nil
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && string(data[8:12]) == "WAVE":
		return FormatWAV, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatVorbis, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Bare MPEG frame sync
		return FormatMP3, nil
	}
	return "", ErrUnknownFormat
}

// readSeekNopCloser keeps Seek visible to decoders that want an io.ReadCloser
type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// decode turns an in-memory file into a seekable stream
func decode(data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	kind, err := Sniff(data)
	if err != nil {
		return nil, beep.Format{}, err
	}

	r := readSeekNopCloser{bytes.NewReader(data)}
	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch kind {
	case FormatMP3:
		s, format, err = mp3.Decode(r)
	case FormatFLAC:
		s, format, err = flac.Decode(r)
	case FormatWAV:
		s, format, err = wav.Decode(r)
	case FormatVorbis:
		s, format, err = vorbis.Decode(r)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	return s, format, nil
}
