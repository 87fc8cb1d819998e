package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/service"
)

// DropHandler serves the drop browse, waitlist and claim endpoints.  The
// waitlist and claim routes assume JWTAuth has run.
type DropHandler struct {
	Drops *service.DropService
}

// NewDropHandler panics if svc is nil.
func NewDropHandler(svc *service.DropService) *DropHandler {
	if svc == nil {
		panic("nil service passed to NewDropHandler")
	}
	return &DropHandler{Drops: svc}
}

type dropResp struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	Stock            int       `json:"stock"`
	ClaimWindowStart time.Time `json:"claim_window_start"`
	ClaimWindowEnd   time.Time `json:"claim_window_end"`
	WaitlistCount    int       `json:"waitlist_count"`
	ClaimedCount     int       `json:"claimed_count"`
	CreatedAt        time.Time `json:"created_at"`
}

type entryResp struct {
	DropID        uint64    `json:"drop_id"`
	UserID        uint64    `json:"user_id"`
	Position      int       `json:"position"`
	PriorityScore int64     `json:"priority_score"`
	JoinedAt      time.Time `json:"joined_at"`
}

type codeResp struct {
	Code      string     `json:"code"`
	DropID    uint64     `json:"drop_id"`
	CreatedAt time.Time  `json:"created_at"`
	Used      bool       `json:"used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func toDropResp(d model.DropSummary) dropResp {
	return dropResp{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		Stock:            d.Stock,
		ClaimWindowStart: d.ClaimWindowStart,
		ClaimWindowEnd:   d.ClaimWindowEnd,
		WaitlistCount:    d.WaitlistCount,
		ClaimedCount:     d.ClaimedCount,
		CreatedAt:        d.CreatedAt,
	}
}

func toEntryResp(e model.WaitlistEntry) entryResp {
	return entryResp{
		DropID:        e.DropID,
		UserID:        e.UserID,
		Position:      e.Position,
		PriorityScore: e.PriorityScore,
		JoinedAt:      e.CreatedAt,
	}
}

func toCodeResp(cc model.ClaimCode) codeResp {
	return codeResp{
		Code:      cc.Code,
		DropID:    cc.DropID,
		CreatedAt: cc.CreatedAt,
		Used:      cc.Used,
		UsedAt:    cc.UsedAt,
	}
}

// ListActive handles GET /v1/drops?page=&limit=.
func (h *DropHandler) ListActive(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	res, err := h.Drops.ListActiveDrops(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dropResp, 0, len(res.Drops))
	for _, d := range res.Drops {
		items = append(items, toDropResp(d))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": items,
		"pagination": echo.Map{
			"page":        res.Page,
			"limit":       res.Limit,
			"total":       res.Total,
			"total_pages": res.TotalPages,
		},
	})
}

// Get handles GET /v1/drops/:id.
func (h *DropHandler) Get(c echo.Context) error {
	dropID, ok := parseDropID(c)
	if !ok {
		return writeError(c, errInvalidDropID)
	}
	d, err := h.Drops.GetDrop(c.Request().Context(), dropID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toDropResp(d))
}

// Join handles POST /v1/drops/:id/join.  Joining twice returns the
// existing entry with already_joined set.
func (h *DropHandler) Join(c echo.Context) error {
	userID, dropID, err := h.ids(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Drops.JoinWaitlist(c.Request().Context(), userID, dropID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"entry":          toEntryResp(res.Entry),
		"already_joined": !res.Created,
	})
}

// Leave handles POST /v1/drops/:id/leave.
func (h *DropHandler) Leave(c echo.Context) error {
	userID, dropID, err := h.ids(c)
	if err != nil {
		return writeError(c, err)
	}
	left, err := h.Drops.LeaveWaitlist(c.Request().Context(), userID, dropID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"left": left})
}

// Claim handles POST /v1/drops/:id/claim.  A newly issued code is 201;
// repeating the call returns the same code with 200.
func (h *DropHandler) Claim(c echo.Context) error {
	userID, dropID, err := h.ids(c)
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Drops.ClaimDrop(c.Request().Context(), userID, dropID)
	if err != nil {
		return writeError(c, err)
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, toCodeResp(res.Code))
}

// Status handles GET /v1/drops/:id/waitlist-status.
func (h *DropHandler) Status(c echo.Context) error {
	userID, dropID, err := h.ids(c)
	if err != nil {
		return writeError(c, err)
	}
	st, err := h.Drops.GetWaitlistStatus(c.Request().Context(), userID, dropID)
	if err != nil {
		return writeError(c, err)
	}
	out := echo.Map{"joined": st.Entry != nil, "entry": nil, "claim_code": nil}
	if st.Entry != nil {
		out["entry"] = toEntryResp(*st.Entry)
	}
	if st.Code != nil {
		out["claim_code"] = toCodeResp(*st.Code)
	}
	return c.JSON(http.StatusOK, out)
}

// ids reads the caller and the :id path parameter.
func (h *DropHandler) ids(c echo.Context) (uint64, uint64, error) {
	userID, err := getUserID(c)
	if err != nil {
		return 0, 0, errUnauthorized
	}
	dropID, ok := parseDropID(c)
	if !ok {
		return 0, 0, errInvalidDropID
	}
	return userID, dropID, nil
}
