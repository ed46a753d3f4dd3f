package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

const (
	multipartMemory   = 32 << 20
	debugPreviewChars = 200
)

type askRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k,omitempty"`
}

type askResponse struct {
	Answer    string            `json:"answer"`
	Source    []domain.Citation `json:"source"`
	ChunkUsed int               `json:"chunk_used"`
	Grounded  bool              `json:"grounded"`
	Status    string            `json:"status"`
}

type debugResult struct {
	Score    float64 `json:"score"`
	Filename string  `json:"filename"`
	ChunkID  int     `json:"chunk_id"`
	Preview  string  `json:"preview"`
}

type debugResponse struct {
	Question string        `json:"question"`
	TopK     int           `json:"top_k"`
	Results  []debugResult `json:"results"`
}

type uploadResponse struct {
	Message string `json:"message"`
	*domain.IngestResult
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "docrag",
		"version": s.deps.Version,
		"endpoints": []string{
			"GET /health",
			"POST /ingest/upload",
			"DELETE /ingest/clear",
			"GET /documents",
			"POST /query/ask",
			"POST /query/debug",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Store.Count(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"collection":     s.deps.Store.Info().Name,
		"records":        n,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInputTooLarge, tooLarge.Limit))
			return
		}
		writeError(w, r, fmt.Errorf("%w: expected a multipart form with a files field: %v", domain.ErrInvalidInput, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)

	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: reading %s: %v", domain.ErrInvalidInput, fh.Filename, err))
			return
		}
		uploads = append(uploads, domain.Upload{Filename: fh.Filename, Data: data})
	}

	res, err := s.deps.Ingest.Ingest(r.Context(), uploads)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:      fmt.Sprintf("ingested %d file(s) into %d chunk(s)", res.FilesProcessed, res.ChunksCreated),
		IngestResult: res,
	})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Ingest.Clear(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "collection cleared",
		"records_removed": res.RecordsRemoved,
		"files_removed":   res.FilesRemoved,
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs := []domain.DocumentSummary{}
	if s.deps.Catalog != nil {
		listed, err := s.deps.Catalog.ListDocuments(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		if listed != nil {
			docs = listed
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection": s.deps.Store.Info().Name,
		"documents":  docs,
	})
}

func decodeQuery(r *http.Request) (domain.Query, error) {
	var req askRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return domain.Query{}, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err)
	}
	q := domain.Query{Question: req.Question}
	if req.TopK != nil {
		if *req.TopK < 1 {
			return q, fmt.Errorf("%w: top_k must be at least 1, got %d", domain.ErrInvalidInput, *req.TopK)
		}
		q.TopK = *req.TopK
	}
	return q, nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ans, err := s.deps.Answer.Ask(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	sources := ans.Citations
	if sources == nil {
		sources = []domain.Citation{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Answer:    ans.Text,
		Source:    sources,
		ChunkUsed: ans.ChunksUsed,
		Grounded:  ans.Grounded,
		Status:    string(ans.Status),
	})
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Retrieve.Retrieve(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := debugResponse{Question: res.Question, TopK: res.TopK, Results: make([]debugResult, 0, len(res.Results))}
	for _, sr := range res.Results {
		out.Results = append(out.Results, debugResult{
			Score:    sr.Score,
			Filename: sr.Record.Filename,
			ChunkID:  sr.Record.ChunkIndex,
			Preview:  usecase.Preview(sr.Record.Text, debugPreviewChars),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
