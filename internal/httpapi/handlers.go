package httpapi

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/derekprior/diamonds/internal/config"
	"github.com/derekprior/diamonds/internal/excel"
	"github.com/derekprior/diamonds/internal/logging"
	"github.com/derekprior/diamonds/internal/schedule"
	"github.com/derekprior/diamonds/internal/store"
)

// Planner is the schedule service the API drives.
type Planner interface {
	Config() *config.Config
	Slots(day *time.Time, venueID string) (iter.Seq[schedule.Slot], error)
	Unplaced(ctx context.Context) ([]schedule.Matchup, error)
	Games(ctx context.Context) ([]schedule.Game, error)
	Progress(ctx context.Context) (schedule.Progress, error)
	Preview(ctx context.Context, req schedule.PlaceRequest) (*schedule.Conflict, error)
	Place(ctx context.Context, req schedule.PlaceRequest) (schedule.Game, error)
	Resize(ctx context.Context, gameID uuid.UUID, minutes int) (schedule.Game, error)
	Move(ctx context.Context, req schedule.MoveRequest) (schedule.Game, error)
	Remove(ctx context.Context, gameID uuid.UUID) (uuid.UUID, error)
	Export(ctx context.Context, filter schedule.ExportFilter) ([]schedule.ExportRow, error)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ScheduleHandler struct {
	p   Planner
	log *logging.Logger
}

func NewScheduleHandler(p Planner, logger *logging.Logger) *ScheduleHandler {
	return &ScheduleHandler{p: p, log: logger}
}

type slotJSON struct {
	Date string         `json:"date"`
	Time schedule.Clock `json:"time"`
}

func (h *ScheduleHandler) Slots(c *gin.Context) {
	day, err := optionalDate(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	slots, err := h.p.Slots(day, c.Query("venue"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := []slotJSON{}
	for s := range slots {
		out = append(out, slotJSON{Date: s.Date.Format(time.DateOnly), Time: s.Time})
	}
	c.JSON(http.StatusOK, gin.H{"slots": out})
}

func (h *ScheduleHandler) Unplaced(c *gin.Context) {
	matchups, err := h.p.Unplaced(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if matchups == nil {
		matchups = []schedule.Matchup{}
	}
	c.JSON(http.StatusOK, gin.H{"matchups": matchups})
}

func (h *ScheduleHandler) Games(c *gin.Context) {
	games, err := h.p.Games(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (h *ScheduleHandler) Progress(c *gin.Context) {
	progress, err := h.p.Progress(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

type placeBody struct {
	MatchupID string `json:"matchupId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	VenueID   string `json:"venueId" binding:"required"`
	Duration  int    `json:"durationMinutes" binding:"gte=0"`
}

func (b placeBody) request() (schedule.PlaceRequest, error) {
	id, err := uuid.Parse(b.MatchupID)
	if err != nil {
		return schedule.PlaceRequest{}, errors.Wrap(err, "matchupId")
	}
	date, err := time.Parse(time.DateOnly, b.Date)
	if err != nil {
		return schedule.PlaceRequest{}, errors.Wrap(err, "date")
	}
	at, err := schedule.ParseClock(b.Time)
	if err != nil {
		return schedule.PlaceRequest{}, err
	}
	return schedule.PlaceRequest{MatchupID: id, Date: date, Time: at, VenueID: b.VenueID, Duration: b.Duration}, nil
}

func (h *ScheduleHandler) Place(c *gin.Context) {
	var in placeBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	req, err := in.request()
	if err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.p.Place(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// Preview answers whether a placement would be accepted, for drag feedback.
// A conflict is a normal answer here, not an error status.
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var in placeBody
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	req, err := in.request()
	if err != nil {
		badRequest(c, err)
		return
	}
	conflict, err := h.p.Preview(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if conflict != nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "conflict": toConflictJSON(conflict)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ScheduleHandler) Resize(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	var in struct {
		Duration int `json:"durationMinutes" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.p.Resize(c.Request.Context(), id, in.Duration)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *ScheduleHandler) Move(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	var in struct {
		Date    string `json:"date" binding:"required"`
		Time    string `json:"time" binding:"required"`
		VenueID string `json:"venueId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	date, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		badRequest(c, errors.Wrap(err, "date"))
		return
	}
	at, err := schedule.ParseClock(in.Time)
	if err != nil {
		badRequest(c, err)
		return
	}
	g, err := h.p.Move(c.Request.Context(), schedule.MoveRequest{GameID: id, Date: date, Time: at, VenueID: in.VenueID})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *ScheduleHandler) Remove(c *gin.Context) {
	id, ok := gameID(c)
	if !ok {
		return
	}
	matchupID, err := h.p.Remove(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchupId": matchupID})
}

// Export returns filtered rows as JSON, or as a workbook with format=xlsx.
func (h *ScheduleHandler) Export(c *gin.Context) {
	day, err := optionalDate(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	filter := schedule.ExportFilter{
		Date:     day,
		Division: c.Query("division"),
		PoolID:   c.Query("pool"),
		VenueID:  c.Query("venue"),
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		rows, err := h.p.Export(c.Request.Context(), filter)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
	case "xlsx":
		games, err := h.p.Games(c.Request.Context())
		if err != nil {
			h.fail(c, err)
			return
		}
		f, err := excel.Generate(h.p.Config(), games, filter)
		if err != nil {
			h.fail(c, err)
			return
		}
		defer f.Close()
		buf, err := f.WriteToBuffer()
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="schedule.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or xlsx"})
	}
}

type conflictJSON struct {
	Kind   schedule.ConflictKind `json:"kind"`
	Reason string                `json:"reason"`
	GameID *uuid.UUID            `json:"gameId,omitempty"`
	Teams  []string              `json:"teams,omitempty"`
}

func toConflictJSON(c *schedule.Conflict) conflictJSON {
	out := conflictJSON{Kind: c.Kind, Reason: c.Reason, Teams: c.Teams}
	if c.GameID != uuid.Nil {
		id := c.GameID
		out.GameID = &id
	}
	return out
}

// fail maps service errors onto status codes. Conflicts and stale writes are
// 409 so the UI can tell them apart from bad input.
func (h *ScheduleHandler) fail(c *gin.Context, err error) {
	var conflict *schedule.Conflict
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, toConflictJSON(conflict))
	case errors.Is(err, store.ErrStaleState):
		c.JSON(http.StatusConflict, gin.H{"kind": "stale", "reason": "the schedule changed; reload and try again"})
	case errors.Is(err, schedule.ErrInvalidGame),
		errors.Is(err, schedule.ErrInvalidMatchup),
		errors.Is(err, schedule.ErrInvalidVenue),
		errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, schedule.ErrMalformedTime),
		errors.Is(err, schedule.ErrInvalidSlot):
		badRequest(c, err)
	default:
		h.log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func gameID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown game " + c.Param("id")})
		return uuid.Nil, false
	}
	return id, true
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, errors.Wrap(err, "date")
	}
	return &d, nil
}
