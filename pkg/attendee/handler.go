package attendee

import (
	"encoding/json"
	"net/http"

	"github.com/daypick/daypick/internal/rest"
	"github.com/daypick/daypick/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// SessionCookieName is the per-event cookie carrying the opaque session key.
func SessionCookieName(eventID string) string {
	return "daypick_session_" + eventID
}

// SessionKeyFromRequest extracts the caller's session key for the event, or
// empty when the browser has not joined yet.
func SessionKeyFromRequest(r *http.Request, eventID string) string {
	cookie, err := r.Cookie(SessionCookieName(eventID))
	if err != nil {
		return ""
	}
	return cookie.Value
}

type JoinDTO struct {
	Name            string `json:"name"`
	DisplayName     string `json:"displayName,omitempty"`
	TimeZone        string `json:"timeZone,omitempty"`
	AnonymousBlocks bool   `json:"anonymousBlocks,omitempty"`
}

type SessionDTO struct {
	SessionID       string `json:"sessionId"`
	DisplayName     string `json:"displayName"`
	TimeZone        string `json:"timeZone"`
	AnonymousBlocks bool   `json:"anonymousBlocks"`
	LoggedIn        bool   `json:"loggedIn"`
}

type NameDTO struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	var dto JoinDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.service.Join(r.Context(), eventID, JoinRequest{
		SessionKey:      SessionKeyFromRequest(r, eventID),
		UserID:          user.OptionalId(r.Context()),
		Label:           dto.Name,
		DisplayName:     dto.DisplayName,
		TimeZone:        dto.TimeZone,
		AnonymousBlocks: dto.AnonymousBlocks,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName(eventID),
		Value:    session.SessionKey,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	rest.RespondJSON(w, http.StatusCreated, sessionToDTO(session))
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	session, err := h.service.Resolve(r.Context(), eventID,
		SessionKeyFromRequest(r, eventID), user.OptionalId(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if session == nil {
		http.Error(w, "no attendee session, join first", http.StatusUnauthorized)
		return
	}
	rest.RespondJSON(w, http.StatusOK, sessionToDTO(*session))
}

func (h *Handler) SwitchName(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	session, err := h.service.Resolve(r.Context(), eventID,
		SessionKeyFromRequest(r, eventID), user.OptionalId(r.Context()))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if session == nil {
		http.Error(w, "no attendee session, join first", http.StatusUnauthorized)
		return
	}

	var dto JoinDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.service.SwitchName(r.Context(), *session, dto.Name, dto.DisplayName)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	log.Debugf("event %s: session %s switched name", eventID, session.ID)
	rest.RespondJSON(w, http.StatusOK, sessionToDTO(updated))
}

func (h *Handler) ListNames(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["eventId"]

	names, err := h.service.ListNames(r.Context(), eventID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	dtos := make([]NameDTO, 0, len(names))
	for _, name := range names {
		dtos = append(dtos, NameDTO{Label: name.Label, Slug: name.Slug})
	}
	rest.RespondJSON(w, http.StatusOK, dtos)
}

func sessionToDTO(s Session) SessionDTO {
	return SessionDTO{
		SessionID:       s.ID,
		DisplayName:     s.DisplayName,
		TimeZone:        s.TimeZone,
		AnonymousBlocks: s.AnonymousBlocks,
		LoggedIn:        s.UserID != "",
	}
}
