package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/logging"
)

// multipartOverhead is allowed on top of the file size for form framing.
const multipartOverhead = 1 << 20

// documentResponse is the JSON view of a document: the summary plus the
// anomalies found while parsing.
type documentResponse struct {
	core.DocumentSummary
	AnomalyList []efile.Anomaly `json:"anomaly_list"`
}

func newDocumentResponse(doc *core.Document) documentResponse {
	list := doc.Anomalies
	if list == nil {
		list = []efile.Anomaly{}
	}
	return documentResponse{DocumentSummary: doc.Summary(), AnomalyList: list}
}

// handleHealth reports liveness and, when configured, store reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["store"] = "ok"
		}
	}
	writeJSON(w, r, code, status)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Spec())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"parses":        s.service.Limiter().Status(),
		"documents":     len(s.service.Documents()),
		"store_enabled": s.service.StoreEnabled(),
	})
}

// parseUpload reads the multipart "file" field and parses it.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*core.Document, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadUpload, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, core.ErrNoFile
	}
	defer file.Close()

	ctx := withRequestMetadata(r.Context(), r)
	if s.cfg.Upload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()
	}

	logging.FromContext(ctx).Debug("parsing upload", "file", header.Filename, "size", header.Size)
	return s.service.Parse(ctx, path.Base(header.Filename), file, header.Size)
}

// handleParse parses an uploaded document and returns its summary.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	doc, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/documents/"+doc.ID.String())
	writeJSON(w, r, http.StatusCreated, newDocumentResponse(doc))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Documents())
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newDocumentResponse(doc))
}

func (s *Server) handleForgetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !s.service.Forget(id) {
		s.respondError(w, r, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	table, err := s.service.Table(id, tableName(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, table)
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "", core.FormatEfile)
}

func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, tableName(r), core.FormatCSV)
}

// export renders into memory first so that a failing export still gets
// a proper error status.
func (s *Server) export(w http.ResponseWriter, r *http.Request, table string, def core.Format) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	format, err := exportFormat(r, def)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	doc, err := s.service.Document(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.service.Export(&buf, id, table, format); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(doc.FileName, table, format)))
	w.Write(buf.Bytes())
}

// exportName derives the download name from the uploaded file name.
func exportName(fileName, table string, format core.Format) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	if table != "" {
		base += "_" + table
	}
	name := base + format.Extension()
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
}

func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.Save(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "saved", "id": id.String()})
}

func (s *Server) handleListStored(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.Stored(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.DocumentSummary{}
	}
	writeJSON(w, r, http.StatusOK, list)
}

// handleLoadStored loads a stored document into the cache.
func (s *Server) handleLoadStored(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	doc, err := s.service.LoadStored(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newDocumentResponse(doc))
}

func (s *Server) handleDeleteStored(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteStored(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) document(r *http.Request) (*core.Document, error) {
	id, err := documentID(r)
	if err != nil {
		return nil, err
	}
	return s.service.Document(id)
}
