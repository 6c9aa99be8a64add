package web

import (
	"net/http"

	"github.com/JonMunkholm/efile/internal/logging"
	"github.com/JonMunkholm/efile/internal/web/templates"
	"github.com/a-h/templ"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	params := templates.DashboardParams{
		Documents:    s.service.Documents(),
		StoreEnabled: s.service.StoreEnabled(),
		Format:       s.service.Spec(),
		Limiter:      s.service.Limiter().Status(),
	}
	if params.StoreEnabled {
		stored, err := s.service.Stored(r.Context())
		if err != nil {
			// the page is still useful without the stored list
			logging.FromContext(r.Context()).Warn("list stored documents", "error", err)
			msg := userMessage(err)
			params.Error = &msg
		}
		params.Stored = stored
	}
	s.render(w, r, templates.Dashboard(params))
}

// handleUploadForm parses a browser upload and shows the document.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	doc, err := s.parseUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/documents/"+doc.ID.String(), http.StatusSeeOther)
}

func (s *Server) handleDocumentPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.render(w, r, templates.DocumentPage(templates.DocumentParams{
		Document:     doc,
		StoreEnabled: s.service.StoreEnabled(),
	}))
}

func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.Save(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleStoredPage loads a stored document and shows it.
func (s *Server) handleStoredPage(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.service.LoadStored(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/documents/"+id.String(), http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render page", "path", r.URL.Path, "error", err)
	}
}
