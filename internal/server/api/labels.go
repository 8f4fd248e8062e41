package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/signify/internal/labels"
	"github.com/ayusman/signify/internal/store"
)

// maxLabelBody bounds uploaded label tables.
const maxLabelBody = 1 << 20

// LabelHandler handles HTTP requests for imported label tables.
type LabelHandler struct {
	store *store.Store
}

// NewLabelHandler creates a new LabelHandler with the given store.
func NewLabelHandler(s *store.Store) *LabelHandler {
	return &LabelHandler{store: s}
}

// ServeHTTP routes:
//
//	GET    /api/labels
//	POST   /api/labels
//	GET    /api/labels/{id}
//	DELETE /api/labels/{id}
//	POST   /api/labels/{id}/activate
func (h *LabelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/labels")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createLabelsRequest struct {
	Name    string         `json:"name"`
	Entries []labels.Entry `json:"entries"`
}

type listLabelsResponse struct {
	LabelSets []*store.LabelSet `json:"label_sets"`
}

// list handles GET /api/labels.
func (h *LabelHandler) list(w http.ResponseWriter, r *http.Request) {
	sets, err := h.store.Labels().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list label sets")
		return
	}
	if sets == nil {
		sets = []*store.LabelSet{}
	}
	writeJSON(w, http.StatusOK, listLabelsResponse{LabelSets: sets})
}

// get handles GET /api/labels/{id}.
func (h *LabelHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ls, err := h.store.Labels().Get(id)
	if err != nil {
		h.storeError(w, err, "Failed to get label set")
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

// create handles POST /api/labels. A JSON body carries name and entries;
// any other body is read as a label file ("label,index" per line) named by
// the name query parameter.
func (h *LabelHandler) create(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxLabelBody)

	var req createLabelsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	} else {
		entries, err := labels.ParseEntries(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = r.URL.Query().Get("name")
		req.Entries = entries
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "At least one label is required")
		return
	}
	for _, e := range req.Entries {
		if e.Index < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid class index %d", e.Index))
			return
		}
	}

	ls, err := h.store.Labels().Import(req.Name, req.Entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to import label set")
		return
	}

	writeJSON(w, http.StatusCreated, ls)
}

// delete handles DELETE /api/labels/{id}.
func (h *LabelHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Labels().Delete(id); err != nil {
		h.storeError(w, err, "Failed to delete label set")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/labels/{id}/activate. The active set replaces
// the label file on the next start.
func (h *LabelHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Labels().Activate(id); err != nil {
		h.storeError(w, err, "Failed to activate label set")
		return
	}
	ls, err := h.store.Labels().Get(id)
	if err != nil {
		h.storeError(w, err, "Failed to get label set")
		return
	}
	writeJSON(w, http.StatusOK, ls)
}

func (h *LabelHandler) storeError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Label set not found")
		return
	}
	writeError(w, http.StatusInternalServerError, message)
}
