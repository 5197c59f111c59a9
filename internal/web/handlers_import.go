package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/pokecatalog/internal/core"
)

type importResponse struct {
	core.ImportResult
	DurationMS int64 `json:"duration_ms"`
}

// handleImport runs a dataset import from the multipart "file" field. The
// whole file is committed or nothing is; a failing row is reported with its
// row and line number.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		fail(w, r, errNoFile)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(w, r, errFileTooBig)
			return
		}
		fail(w, r, errNoFile)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, r, errNoFile)
		return
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	res, err := s.service.ImportDataset(ctx, file, header.Filename)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, importResponse{
		ImportResult: res,
		DurationMS:   res.Duration.Milliseconds(),
	})
}
