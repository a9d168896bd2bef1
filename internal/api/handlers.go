package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"notebook/internal/blob"
	"notebook/internal/errs"
	"notebook/internal/models"
	"notebook/internal/service"
	"notebook/internal/store"
)

// Options configures the HTTP handlers.
type Options struct {
	// PublicBaseURL prefixes upload URLs. Empty yields host-relative URLs.
	PublicBaseURL  string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type Handlers struct {
	store     store.Store
	blobs     blob.Store
	notes     *service.NoteService
	tags      *service.TagService
	query     *service.QueryService
	uploader  *service.Uploader
	maxUpload int64
	log       *slog.Logger
}

func NewHandlers(s store.Store, blobs blob.Store, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handlers{
		store:     s,
		blobs:     blobs,
		notes:     service.NewNoteService(s, logger),
		tags:      service.NewTagService(s, logger),
		query:     service.NewQueryService(s),
		uploader:  service.NewUploader(blobs, opts.PublicBaseURL, logger),
		maxUpload: maxUpload,
		log:       logger,
	}
}

// Query and Tags expose the read services so other surfaces can share them.
func (h *Handlers) Query() *service.QueryService { return h.query }
func (h *Handlers) Tags() *service.TagService    { return h.tags }

func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/notes", h.ListNotesHandler).Methods(http.MethodGet)
	r.HandleFunc("/notes", h.CreateNoteHandler).Methods(http.MethodPost)
	r.HandleFunc("/notes/{id}", h.GetNoteHandler).Methods(http.MethodGet)
	r.HandleFunc("/notes/{id}", h.UpdateNoteHandler).Methods(http.MethodPatch)
	r.HandleFunc("/notes/{id}", h.DeleteNoteHandler).Methods(http.MethodDelete)
	r.HandleFunc("/notes/{id}/html", h.NoteHTMLHandler).Methods(http.MethodGet)
	r.HandleFunc("/tags", h.ListTagsHandler).Methods(http.MethodGet)
	r.HandleFunc("/tags", h.CreateTagHandler).Methods(http.MethodPost)
	r.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost)
	r.HandleFunc(service.FilesPrefix+"{key:.+}", h.ServeFileHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
}

// Router returns a fresh router with every route registered.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func (h *Handlers) ListNotesHandler(w http.ResponseWriter, r *http.Request) {
	q := models.ListNotesQuery{
		Search: r.URL.Query().Get("search"),
		TagID:  r.URL.Query().Get("tagId"),
	}
	notes, err := h.query.List(r.Context(), q)
	if err != nil {
		h.writeError(w, "fetch notes", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *Handlers) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, "create note", err)
		return
	}
	note, err := h.notes.Create(r.Context(), req)
	if err != nil {
		if note != nil {
			h.log.Error("note created but tagging failed", "note_id", note.ID, "err", err)
		}
		h.writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handlers) GetNoteHandler(w http.ResponseWriter, r *http.Request) {
	note, err := h.query.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "fetch note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) NoteHTMLHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	html, err := h.query.RenderHTML(r.Context(), id)
	if err != nil {
		h.writeError(w, "render note", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "html": html})
}

func (h *Handlers) UpdateNoteHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, "update note", err)
		return
	}
	note, err := h.notes.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handlers) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) ListTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context())
	if err != nil {
		h.writeError(w, "fetch tags", err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handlers) CreateTagHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTagRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, "create tag", err)
		return
	}
	tag, created, err := h.tags.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, "create tag", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, tag)
}

func (h *Handlers) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("File too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("No file provided"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("No file provided"))
		return
	}
	defer file.Close()

	att, err := h.uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(w, "upload file", err)
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (h *Handlers) ServeFileHandler(w http.ResponseWriter, r *http.Request) {
	rc, contentType, err := h.blobs.Open(r.Context(), mux.Vars(r)["key"])
	if errors.Is(err, blob.ErrNotFound) || errors.Is(err, blob.ErrBadKey) {
		writeJSON(w, http.StatusNotFound, errorBody("File not found"))
		return
	}
	if err != nil {
		h.writeError(w, "read file", errs.Upload(err, "open object"))
		return
	}
	defer rc.Close()

	// Uploads share the API's origin, so nothing served here may run as a page.
	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Cache-Control", "public, max-age=31536000, immutable")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Content-Security-Policy", "sandbox")
	if !strings.HasPrefix(contentType, "image/") {
		hdr.Set("Content-Disposition", "attachment")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.log.Warn("serve file", "key", mux.Vars(r)["key"], "err", err)
	}
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.Error("health check", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON rejects unknown fields and type mismatches as validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validation("invalid request body: %v", err)
	}
	if dec.More() {
		return errs.Validation("invalid request body: trailing data")
	}
	return nil
}

// writeError maps the error kind to a status. Store and upload details are only logged.
func (h *Handlers) writeError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	msg := "Failed to " + op
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status, msg = http.StatusBadRequest, err.Error()
	case errs.KindNotFound:
		status, msg = http.StatusNotFound, err.Error()
	}
	if errors.Is(err, context.Canceled) {
		h.log.Debug(op, "err", err)
	} else {
		h.log.Error(op, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody(msg))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
