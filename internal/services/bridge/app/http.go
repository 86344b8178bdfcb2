package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/audit"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

// maxRequestBodyBytes bounds admin JSON request bodies.
const maxRequestBodyBytes = 64 * 1024

// AuditReader lists recorded intervention attempts. *audit.Store satisfies
// it.
type AuditReader interface {
	ListByRoom(ctx context.Context, roomID string, limit int) ([]audit.Record, error)
}

type handlers struct {
	rooms         *room.Registry
	coordinator   *Coordinator
	admin         *adminAuth
	audit         AuditReader
	localizer     *i18n.Localizer
	logger        *zap.Logger
	publicBaseURL string
}

func newHandler(h *handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("POST /api/admin/login", h.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/logout", h.handleAdminLogout)
	mux.HandleFunc("POST /api/rooms", h.requireAdmin(h.handleCreateRoom))
	mux.HandleFunc("GET /api/rooms", h.requireAdmin(h.handleListRooms))
	mux.HandleFunc("GET /api/rooms/{roomID}/log", h.requireAdmin(h.handleRoomLog))
	mux.HandleFunc("GET /api/rooms/{roomID}/interventions", h.requireAdmin(h.handleInterventions))
	return mux
}

func (s *handlers) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// Participants connect without a session; only join-admin looks at
	// this flag.
	admin := s.admin.authenticated(r) == nil
	websocket.Handler(func(conn *websocket.Conn) {
		s.coordinator.handleConn(conn, admin)
	}).ServeHTTP(w, r)
}

type createRoomRequest struct {
	Theme        string `json:"theme"`
	SecretA      string `json:"secretA"`
	SecretB      string `json:"secretB"`
	NameA        string `json:"nameA"`
	NameB        string `json:"nameB"`
	Strength     string `json:"aiStrength"`
	Instructions string `json:"aiPrompt"`
}

type createRoomResponse struct {
	RoomID string `json:"roomId"`
	URLA   string `json:"urlA"`
	URLB   string `json:"urlB"`
}

func (s *handlers) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.rooms.Create(room.CreateInput{
		Theme:        req.Theme,
		SecretA:      req.SecretA,
		SecretB:      req.SecretB,
		Strength:     req.Strength,
		NameA:        req.NameA,
		NameB:        req.NameB,
		Instructions: req.Instructions,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("room created",
		zap.String("room_id", created.ID),
		zap.String("strength", string(created.Strength)),
	)

	base := s.baseURL(r)
	writeJSON(w, http.StatusCreated, createRoomResponse{
		RoomID: created.ID,
		URLA:   chatURL(base, created.ID, room.RoleA),
		URLB:   chatURL(base, created.ID, room.RoleB),
	})
}

func (s *handlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	if roomID := strings.TrimSpace(r.URL.Query().Get("roomId")); roomID != "" {
		s.writeRoomLog(w, roomID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.rooms.List()})
}

func (s *handlers) handleRoomLog(w http.ResponseWriter, r *http.Request) {
	s.writeRoomLog(w, r.PathValue("roomID"))
}

func (s *handlers) writeRoomLog(w http.ResponseWriter, roomID string) {
	transcript, err := s.rooms.RenderLog(roomID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+room.LogFileName(roomID)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, transcript)
}

func (s *handlers) handleInterventions(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	if _, err := s.rooms.Get(roomID); err != nil {
		s.writeError(w, err)
		return
	}
	if s.audit == nil {
		writeJSON(w, http.StatusOK, map[string]any{"interventions": []audit.Record{}})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, apperrors.New(apperrors.CodeAdminRequestInvalid, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	records, err := s.audit.ListByRoom(r.Context(), roomID, limit)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.CodeAuditUnavailable, "list interventions", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interventions": records})
}

// baseURL prefers the configured public URL, falling back to the request
// host and forwarded scheme.
func (s *handlers) baseURL(r *http.Request) string {
	if base := strings.TrimRight(strings.TrimSpace(s.publicBaseURL), "/"); base != "" {
		return base
	}
	host := r.Host
	if host == "" {
		host = "localhost:3000"
	}
	return requestScheme(r) + "://" + host
}

func chatURL(base string, roomID string, role room.Role) string {
	return base + "/chat?room=" + url.QueryEscape(roomID) + "&role=" + url.QueryEscape(string(role))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError renders err as a localized JSON error with the status mapped
// from its code.
func (s *handlers) writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusOf(err)
	if status == apperrors.StatusInternal {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status.HTTPStatus(), errorResponse{
		Error: s.localizer.ErrorMessage(err),
		Code:  string(status),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSONBody strictly decodes a bounded request body.
func decodeJSONBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeAdminRequestInvalid, "decode request body", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return apperrors.New(apperrors.CodeAdminRequestInvalid, "trailing data after request body")
	}
	return nil
}
