package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aegiscare/aegis/pkg/companion"
	"github.com/aegiscare/aegis/pkg/memory"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		Error(w, http.StatusBadRequest, "No message provided")
		return
	}

	res, err := s.engine.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, companion.ErrEmptyMessage) {
			Error(w, http.StatusBadRequest, "No message provided")
			return
		}
		s.logger.Error("chat turn failed", "session", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "Failed to get response from backend: "+err.Error())
		return
	}
	JSON(w, http.StatusOK, res)
}

type saveMemoryRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        *string `json:"date"`
	MediaPath   string  `json:"mediaPath"`
	ChatRef     string  `json:"chatRef"`
}

func (s *Server) handleSaveMemoryFromChat(w http.ResponseWriter, r *http.Request) {
	var req saveMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "No data provided")
		return
	}

	rec, err := s.engine.ConfirmMemory(r.Context(), memory.Proposal{
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
	}, req.ChatRef, req.MediaPath)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "memory": rec})
}

func (s *Server) handleMergeExtracted(w http.ResponseWriter, r *http.Request) {
	var frag memory.Fragment
	if err := json.NewDecoder(r.Body).Decode(&frag); err != nil {
		Error(w, http.StatusBadRequest, "Invalid extracted data")
		return
	}

	res, err := s.engine.MergeExtracted(r.Context(), frag)
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []memory.Diagnostic{}
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "skipped": skipped})
}

func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	var messages []memory.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil || len(messages) == 0 {
		Error(w, http.StatusBadRequest, "No chat data provided")
		return
	}
	if err := s.store.ReplaceChat(r.Context(), messages); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"message": "Chat saved successfully!"})
}

// handleGetMemories returns only the memories array; the rest of the
// document stays server-side.
func (s *Server) handleGetMemories(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.LoadMemoryDocument(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, doc.Memories)
}

// handlePostMemories replaces the memories array while preserving every
// other category in the document.
func (s *Server) handlePostMemories(w http.ResponseWriter, r *http.Request) {
	var list []memory.Record
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		Error(w, http.StatusBadRequest, "Data must be a list")
		return
	}
	if list == nil {
		list = []memory.Record{}
	}

	doc, err := s.store.LoadMemoryDocument(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	doc.Memories = list
	if err := s.store.SaveMemoryDocument(r.Context(), doc); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "memories": list})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.LoadProfile(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, profile)
}

func (s *Server) handlePostProfile(w http.ResponseWriter, r *http.Request) {
	var profile memory.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		Error(w, http.StatusBadRequest, "Invalid profile data")
		return
	}
	if err := s.store.SaveProfile(r.Context(), profile); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "profile": profile})
}

func (s *Server) handleGetRoutines(w http.ResponseWriter, r *http.Request) {
	routines, err := s.store.LoadRoutines(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, routines)
}

func (s *Server) handlePostRoutines(w http.ResponseWriter, r *http.Request) {
	var routines []memory.Routine
	if err := json.NewDecoder(r.Body).Decode(&routines); err != nil {
		Error(w, http.StatusBadRequest, "Data must be a list")
		return
	}
	if err := s.store.SaveRoutines(r.Context(), routines); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "routines": routines})
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := s.store.LoadFamily(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, family)
}

func (s *Server) handlePostFamily(w http.ResponseWriter, r *http.Request) {
	var family []memory.FamilyMember
	if err := json.NewDecoder(r.Body).Decode(&family); err != nil {
		Error(w, http.StatusBadRequest, "Data must be a list")
		return
	}
	if err := s.store.SaveFamily(r.Context(), family); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "family": family})
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.LoadNotes(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, notes)
}

// handlePostNotes adds a single note, or replaces the full list when the
// body is an array (bulk sync from the frontend).
func (s *Server) handlePostNotes(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		Error(w, http.StatusBadRequest, "Invalid note data")
		return
	}

	var list []memory.Note
	if err := json.Unmarshal(raw, &list); err == nil {
		if err := s.store.ReplaceNotes(r.Context(), list); err != nil {
			Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		JSON(w, http.StatusOK, map[string]any{"status": "success", "notes": list})
		return
	}

	var note struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &note); err != nil {
		Error(w, http.StatusBadRequest, "Invalid note data")
		return
	}
	saved, err := s.store.AddNote(r.Context(), strings.TrimSpace(note.Title), strings.TrimSpace(note.Content))
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "success", "note": saved})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		Error(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		Error(w, http.StatusBadRequest, "No selected file")
		return
	}
	name, err := s.uploads.Save(header.Filename, file)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]string{"url": "/uploads/" + name})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	path, err := s.uploads.Path(chi.URLParam(r, "name"))
	if err != nil {
		Error(w, http.StatusNotFound, "File not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.engine.SessionCount(),
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.webRoot, "app.html"))
}
