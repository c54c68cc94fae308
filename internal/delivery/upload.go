package delivery

import (
	"context"
	"io"
	"path/filepath"

	"github.com/Vovarama1992/kisan_voice/internal/audio"
)

const UploadSourceName = "http"

// UploadSource feeds a multipart upload into the pipeline.
type UploadSource struct {
	workspace *audio.Workspace
	body      io.Reader
	filename  string
}

func NewUploadSource(ws *audio.Workspace, body io.Reader, filename string) *UploadSource {
	return &UploadSource{workspace: ws, body: body, filename: filename}
}

func (s *UploadSource) Name() string { return UploadSourceName }

func (s *UploadSource) Fetch(context.Context) (*audio.File, error) {
	ext := filepath.Ext(s.filename)
	if ext == "" {
		ext = ".ogg"
	}
	f := s.workspace.NewFile("upload", ext)
	if _, err := f.Fill(s.body); err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}
