package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"fitting-room-server/modules/common/diagnostics"
	"fitting-room-server/modules/session"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const sessionCookieName = "fitting_room_session"

type Handler struct {
	service        *Service
	manager        *session.Manager
	recorder       diagnostics.Recorder
	maxUploadBytes int64
}

func NewHandler(service *Service, manager *session.Manager, recorder diagnostics.Recorder, maxUploadBytes int64) *Handler {
	if recorder == nil {
		recorder = diagnostics.NewLogRecorder()
	}
	return &Handler{
		service:        service,
		manager:        manager,
		recorder:       recorder,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes mounts the page, API and WebSocket routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.HandlePage).Methods("GET")
	r.HandleFunc("/ws", h.HandleWebSocket)
	r.HandleFunc("/api/session", h.HandleGetSession).Methods("GET")
	r.HandleFunc("/api/session", h.HandleClearSession).Methods("DELETE")
	r.HandleFunc("/api/upload/{slot}", h.HandleUpload).Methods("POST")
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST")
	r.HandleFunc("/admin/diagnostics", h.HandleDiagnostics).Methods("GET")
}

// session resolves the browser's session from its cookie, issuing a new one
// when the cookie is missing or malformed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return h.manager.GetOrCreate(c.Value)
		}
	}

	id := session.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.manager.GetOrCreate(id)
}

func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	h.session(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(pageHTML))
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.manager.ServeWS(w, r, h.session(w, r))
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	state := h.session(w, r).Snapshot()
	writeJSON(w, http.StatusOK, GenerateResponseBody{Success: true, State: &state})
}

// HandleClearSession empties both slots and the result area.
func (h *Handler) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	if err := sess.Clear(); err != nil {
		writeJSON(w, http.StatusConflict, GenerateResponseBody{
			Success:      false,
			ErrorMessage: "A generation is in progress. Please wait for it to finish.",
		})
		return
	}

	log.Printf("🧹 [TryOn] Session %s cleared", sess.ID())
	state := sess.Snapshot()
	writeJSON(w, http.StatusOK, GenerateResponseBody{Success: true, State: &state})
}

// HandleUpload - POST /api/upload/{slot}, multipart field "file"
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	slot, err := session.ParseSlot(mux.Vars(r)["slot"])
	if err != nil {
		writeJSON(w, http.StatusNotFound, UploadResponse{
			Success:      false,
			ErrorMessage: fmt.Sprintf("Unknown slot %q", mux.Vars(r)["slot"]),
		})
		return
	}

	sess := h.session(w, r)
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.service.UploadFailed(r.Context(), sess, slot, fmt.Errorf("failed to read multipart file: %w", err))
		h.uploadFailedResponse(w, sess, slot)
		return
	}
	defer file.Close()

	if _, err := h.service.Upload(r.Context(), sess, slot, file, header.Header.Get("Content-Type")); err != nil {
		h.uploadFailedResponse(w, sess, slot)
		return
	}

	state := sess.Snapshot()
	writeJSON(w, http.StatusOK, UploadResponse{Success: true, Slot: string(slot), State: &state})
}

func (h *Handler) uploadFailedResponse(w http.ResponseWriter, sess *session.Session, slot session.Slot) {
	state := sess.Snapshot()
	writeJSON(w, http.StatusBadRequest, UploadResponse{
		Success:      false,
		Slot:         string(slot),
		State:        &state,
		ErrorMessage: UploadReadNotice,
	})
}

// HandleGenerate - POST /api/generate. The upstream call is detached from the
// request so closing the tab does not cancel it.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	result, err := h.service.Generate(context.WithoutCancel(r.Context()), sess)
	state := sess.Snapshot()

	switch {
	case errors.Is(err, session.ErrMissingInput):
		writeJSON(w, http.StatusBadRequest, GenerateResponseBody{
			Success:      false,
			State:        &state,
			ErrorMessage: MissingInputMessage,
		})
		return
	case errors.Is(err, session.ErrGenerationInFlight):
		writeJSON(w, http.StatusConflict, GenerateResponseBody{
			Success:      false,
			State:        &state,
			ErrorMessage: "A generation is already in progress.",
		})
		return
	case err != nil:
		log.Printf("❌ [TryOn] Session %s: generate failed: %v", sess.ID(), err)
		writeJSON(w, http.StatusInternalServerError, GenerateResponseBody{
			Success:      false,
			State:        &state,
			ErrorMessage: GenericFailureMessage,
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponseBody{
		Success:      result.Succeeded(),
		State:        &state,
		ErrorMessage: result.Message,
	})
}

// HandleDiagnostics - GET /admin/diagnostics?n=50, newest first
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	var n int64 = 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}

	events, err := h.recorder.Recent(r.Context(), n)
	if err != nil {
		log.Printf("❌ [TryOn] Failed to read diagnostics: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read diagnostics"})
		return
	}
	if events == nil {
		events = []diagnostics.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("⚠️  [TryOn] Failed to encode response: %v", err)
	}
}
