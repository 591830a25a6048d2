package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ErinHernandez/TopDog-sub003/internal/draft/pick"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/room"
	"github.com/ErinHernandez/TopDog-sub003/internal/draft/turn"
	"github.com/ErinHernandez/TopDog-sub003/internal/models"
)

// RoomService is the room lifecycle surface the HTTP layer talks to.
type RoomService interface {
	CreateRoom(ctx context.Context, req room.CreateRoomRequest) (*models.DraftRoom, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error)
	AssignSeat(ctx context.Context, roomID uuid.UUID, seat int, userRef string) (*models.DraftRoom, error)
	Pause(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error)
	Resume(ctx context.Context, id uuid.UUID) (*models.DraftRoom, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error)
	Heartbeat(ctx context.Context, roomID uuid.UUID, seat int) error
	SetAutopickEnabled(ctx context.Context, roomID uuid.UUID, seat int, enabled bool) error
	GetQueue(ctx context.Context, roomID uuid.UUID, seat int) ([]uuid.UUID, error)
	SetQueue(ctx context.Context, roomID uuid.UUID, seat int, queue []uuid.UUID) error
}

// PickService is the pick protocol surface the HTTP layer talks to.
type PickService interface {
	SubmitPick(ctx context.Context, req pick.SubmitPickRequest) (*models.PickLedgerEntry, error)
	Ledger(ctx context.Context, roomID uuid.UUID) ([]models.PickLedgerEntry, error)
	Roster(ctx context.Context, roomID uuid.UUID, seat int) ([]pick.RosterSlot, error)
	AvailablePlayers(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
	Audit(ctx context.Context, room *models.DraftRoom) ([]pick.LedgerFault, error)
}

// RankingService serves read-only ADP boards.
type RankingService interface {
	Rankings(ctx context.Context, speedClass models.SpeedClass, limit int) ([]models.ADPEntry, error)
}

// IdentityResolver extracts the caller's user reference from a request.
// Production puts an auth proxy in front; the default reads a header.
type IdentityResolver interface {
	UserRef(r *http.Request) (string, error)
}

// HeaderIdentity resolves identity from the X-User-Ref header.
type HeaderIdentity struct{}

func (HeaderIdentity) UserRef(r *http.Request) (string, error) {
	ref := r.Header.Get("X-User-Ref")
	if ref == "" {
		return "", errors.New("missing X-User-Ref header")
	}
	return ref, nil
}

// Handlers wires the HTTP and WebSocket surface of the draft service.
type Handlers struct {
	rooms    RoomService
	picks    PickService
	rankings RankingService
	cm       *ConnectionManager
	identity IdentityResolver
}

func NewHandlers(rooms RoomService, picks PickService, rankings RankingService, cm *ConnectionManager, identity IdentityResolver) *Handlers {
	if identity == nil {
		identity = HeaderIdentity{}
	}
	return &Handlers{rooms: rooms, picks: picks, rankings: rankings, cm: cm, identity: identity}
}

// Register mounts all routes on the mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.createRoom)
	mux.HandleFunc("GET /api/rooms/{id}", h.getRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", h.joinRoom)
	mux.HandleFunc("POST /api/rooms/{id}/picks", h.submitPick)
	mux.HandleFunc("GET /api/rooms/{id}/picks", h.getLedger)
	mux.HandleFunc("GET /api/rooms/{id}/roster", h.getRoster)
	mux.HandleFunc("GET /api/rooms/{id}/players", h.getAvailablePlayers)
	mux.HandleFunc("GET /api/rooms/{id}/audit", h.auditRoom)
	mux.HandleFunc("POST /api/rooms/{id}/pause", h.pauseRoom)
	mux.HandleFunc("POST /api/rooms/{id}/resume", h.resumeRoom)
	mux.HandleFunc("POST /api/rooms/{id}/cancel", h.cancelRoom)
	mux.HandleFunc("POST /api/rooms/{id}/heartbeat", h.heartbeat)
	mux.HandleFunc("PUT /api/rooms/{id}/autopick", h.setAutopick)
	mux.HandleFunc("GET /api/rooms/{id}/queue", h.getQueue)
	mux.HandleFunc("PUT /api/rooms/{id}/queue", h.setQueue)
	mux.HandleFunc("GET /api/adp", h.getRankings)
	mux.HandleFunc("GET /ws/rooms/{id}", h.roomSocket)
	mux.HandleFunc("GET /healthz", h.health)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeServiceError maps domain errors onto HTTP statuses. Pick rejections
// become 409 with their machine-readable code so clients can branch without
// string matching.
func writeServiceError(w http.ResponseWriter, err error) {
	if rej, ok := pick.AsRejection(err); ok {
		writeJSON(w, http.StatusConflict, errorResponse{Error: rej.Detail, Code: rej.Code})
		return
	}
	switch {
	case errors.Is(err, room.ErrNotFound), errors.Is(err, pick.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, room.ErrSeatTaken), errors.Is(err, room.ErrStatusConflict):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func roomIDFromPath(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

type createRoomBody struct {
	ID           string `json:"id"`
	TournamentID string `json:"tournament_id"`
	TeamCount    int    `json:"team_count"`
	RoundCount   int    `json:"round_count"`
	SpeedClass   string `json:"speed_class"`
	PickClockSec int    `json:"pick_clock_sec"`
	Snake        bool   `json:"snake"`
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var body createRoomBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	req := room.CreateRoomRequest{
		TeamCount:    body.TeamCount,
		RoundCount:   body.RoundCount,
		SpeedClass:   models.SpeedClass(body.SpeedClass),
		PickClockSec: body.PickClockSec,
		Snake:        body.Snake,
	}
	if body.ID != "" {
		id, err := uuid.Parse(body.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.ID = id
	} else {
		req.ID = uuid.New()
	}
	if body.TournamentID != "" {
		tid, err := uuid.Parse(body.TournamentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.TournamentID = tid
	}

	created, err := h.rooms.CreateRoom(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.roomState(created))
}

// roomStateResponse is the room document plus derived turn fields the client
// would otherwise recompute.
type roomStateResponse struct {
	*models.DraftRoom
	OnClockSeat *int      `json:"on_clock_seat,omitempty"`
	Round       *int      `json:"round,omitempty"`
	PickInRound *int      `json:"pick_in_round,omitempty"`
	PicksTotal  int       `json:"picks_total"`
	ServerTime  time.Time `json:"server_time"`
}

func (h *Handlers) roomState(rm *models.DraftRoom) roomStateResponse {
	resp := roomStateResponse{
		DraftRoom:  rm,
		PicksTotal: rm.TotalPicks(),
		ServerTime: time.Now().UTC(),
	}
	if rm.Status == models.RoomStatusActive {
		if slot, err := turn.At(rm.CurrentPick, rm.TeamCount); err == nil {
			resp.OnClockSeat = &slot.Seat
			resp.Round = &slot.Round
			resp.PickInRound = &slot.PickInRound
		}
	}
	return resp
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rm, err := h.rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.roomState(rm))
}

func (h *Handlers) joinRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userRef, err := h.identity.UserRef(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var body struct {
		Seat int `json:"seat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rm, err := h.rooms.AssignSeat(r.Context(), id, body.Seat, userRef)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.roomState(rm))
}

type submitPickBody struct {
	PickNumber int    `json:"pick_number"`
	PlayerID   string `json:"player_id"`
	Seat       int    `json:"seat"`
}

func (h *Handlers) submitPick(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := h.identity.UserRef(r); err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	var body submitPickBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	playerID, err := uuid.Parse(body.PlayerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.picks.SubmitPick(r.Context(), pick.SubmitPickRequest{
		RoomID:     id,
		PickNumber: body.PickNumber,
		PlayerID:   playerID,
		Seat:       body.Seat,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handlers) getLedger(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entries, err := h.picks.Ledger(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"picks": entries})
}

func seatFromQuery(r *http.Request) (int, error) {
	return strconv.Atoi(r.URL.Query().Get("seat"))
}

func (h *Handlers) getRoster(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seat, err := seatFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("seat query parameter is required"))
		return
	}
	slots, err := h.picks.Roster(r.Context(), id, seat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seat": seat, "roster": slots})
}

func (h *Handlers) getAvailablePlayers(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	players, err := h.picks.AvailablePlayers(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

// auditRoom runs the ledger integrity check against the room cursor. An
// empty fault list means the ledger is exactly {1..current_pick-1}.
func (h *Handlers) auditRoom(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rm, err := h.rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	faults, err := h.picks.Audit(r.Context(), rm)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": len(faults) == 0, "faults": faults})
}

func (h *Handlers) pauseRoom(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error) {
		return h.rooms.Pause(ctx, id, reason)
	})
}

func (h *Handlers) resumeRoom(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id uuid.UUID, _ string) (*models.DraftRoom, error) {
		return h.rooms.Resume(ctx, id)
	})
}

func (h *Handlers) cancelRoom(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id uuid.UUID, reason string) (*models.DraftRoom, error) {
		return h.rooms.Cancel(ctx, id, reason)
	})
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, string) (*models.DraftRoom, error)) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional on lifecycle calls.
	_ = json.NewDecoder(r.Body).Decode(&body)

	rm, err := fn(r.Context(), id, body.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.roomState(rm))
}

func (h *Handlers) heartbeat(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Seat int `json:"seat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.rooms.Heartbeat(r.Context(), id, body.Seat); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setAutopick(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Seat    int  `json:"seat"`
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.rooms.SetAutopickEnabled(r.Context(), id, body.Seat, body.Enabled); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getQueue(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seat, err := seatFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("seat query parameter is required"))
		return
	}
	queue, err := h.rooms.GetQueue(r.Context(), id, seat)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"seat": seat, "queue": queue})
}

func (h *Handlers) setQueue(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Seat  int      `json:"seat"`
		Queue []string `json:"queue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	queue := make([]uuid.UUID, 0, len(body.Queue))
	for _, raw := range body.Queue {
		playerID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		queue = append(queue, playerID)
	}
	if err := h.rooms.SetQueue(r.Context(), id, body.Seat, queue); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) getRankings(w http.ResponseWriter, r *http.Request) {
	speedClass := models.SpeedClass(r.URL.Query().Get("speed_class"))
	if speedClass != models.SpeedClassFast && speedClass != models.SpeedClassSlow {
		writeError(w, http.StatusBadRequest, errors.New("speed_class must be fast or slow"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.rankings.Rankings(r.Context(), speedClass, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"speed_class": speedClass, "entries": entries})
}

func (h *Handlers) roomSocket(w http.ResponseWriter, r *http.Request) {
	id, err := roomIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	userRef, err := h.identity.UserRef(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err := h.cm.UpgradeConnection(w, r, userRef, id); err != nil {
		// Upgrade already wrote the HTTP error.
		log.Error().Err(err).Str("room_id", id.String()).Msg("WebSocket upgrade failed")
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.cm.ConnectionStats(),
	})
}
