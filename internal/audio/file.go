// Package audio manages the per-event temporary audio files. Every file has a
// unique name and is owned by whoever created it until Release.
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrEmpty = errors.New("audio file is empty")

var mediaTypes = map[string]string{
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
}

// MediaType guesses the MIME type from the file extension, defaulting to audio/ogg.
func MediaType(name string) string {
	if mt, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "audio/ogg"
}

type Workspace struct {
	dir string
}

func NewWorkspace(dir string) (*Workspace, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "kisan_voice")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Sweep removes files in the workspace last modified before cutoff and returns
// how many were removed. Files of a crashed process are left behind otherwise.
func (w *Workspace) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// NewFile reserves a unique path; nothing is written until Write or Fill.
func (w *Workspace) NewFile(prefix, ext string) *File {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext))
	return &File{Path: path, MediaType: MediaType(path)}
}

type File struct {
	Path      string
	MediaType string

	once sync.Once
}

// Fill copies r into the file and returns the number of bytes written.
func (f *File) Fill(r io.Reader) (int64, error) {
	out, err := os.Create(f.Path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(f.Path), err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", filepath.Base(f.Path), err)
	}
	if n == 0 {
		return 0, ErrEmpty
	}
	return n, nil
}

func (f *File) Bytes() ([]byte, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrEmpty
	}
	return b, nil
}

func (f *File) Open() (*os.File, error) {
	return os.Open(f.Path)
}

// Release deletes the file. Safe to call more than once or on a nil File.
func (f *File) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		_ = os.Remove(f.Path)
	})
}
