package api

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/Octopus-Moneycoach/coaching-ai/assessment"
	"github.com/Octopus-Moneycoach/coaching-ai/checklist"
	"github.com/Octopus-Moneycoach/coaching-ai/db"
	"github.com/Octopus-Moneycoach/coaching-ai/vendors"
	"github.com/Octopus-Moneycoach/coaching-ai/workers/casecheck"
	"github.com/gin-gonic/gin"
)

// SubmitCaseCheckRequest is the body of POST /api/case-checks
type SubmitCaseCheckRequest struct {
	MeetingID      string          `json:"meetingId" binding:"required"`
	Transcript     string          `json:"transcript" binding:"required"`
	VTT            string          `json:"vtt,omitempty"`
	CoachName      string          `json:"coachName,omitempty"`
	Facts          checklist.Facts `json:"facts,omitempty"`
	ForceReprocess bool            `json:"forceReprocess,omitempty"`
}

// CaseCheckDetail is a case check with its stored result
type CaseCheckDetail struct {
	*db.CaseCheck
	Result    json.RawMessage   `json:"result,omitempty"`
	Analytics *db.CallAnalytics `json:"analytics,omitempty"`
}

// SubmitCaseCheck handles POST /api/case-checks.
// New work is accepted with 202; an existing case check is returned with 200.
// A forced reprocess of a case check under assessment is refused with 409.
func (h *Handlers) SubmitCaseCheck(c *gin.Context) {
	var req SubmitCaseCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, "invalid request body", []ErrorDetail{{Message: err.Error()}})
		return
	}

	cc, created, err := h.server.Worker().Submit(casecheck.Submission{
		MeetingID:      req.MeetingID,
		Transcript:     req.Transcript,
		VTT:            req.VTT,
		CoachName:      req.CoachName,
		Facts:          req.Facts,
		ForceReprocess: req.ForceReprocess,
	})
	if errors.Is(err, casecheck.ErrBusy) {
		c.Header("Location", "/api/case-checks/"+cc.MeetingID)
		RespondConflict(c, "case check is being processed, retry once it finishes")
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("meetingId", req.MeetingID).Msg("failed to submit case check")
		RespondInternalError(c, "failed to submit case check")
		return
	}

	c.Header("Location", "/api/case-checks/"+cc.MeetingID)
	if created {
		RespondAccepted(c, cc)
		return
	}
	RespondData(c, cc)
}

// ListCaseChecks handles GET /api/case-checks?status=&limit=&offset=
func (h *Handlers) ListCaseChecks(c *gin.Context) {
	limit, offset, ok := paging(c, 50)
	if !ok {
		return
	}

	items, total, err := h.server.DB().ListCaseChecks(db.ListOptions{
		Status: db.CaseCheckStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to list case checks")
		RespondInternalError(c, "failed to list case checks")
		return
	}

	totalInt := int(total)
	RespondList(c, items, &Pagination{
		HasMore: offset+len(items) < totalInt,
		Total:   &totalInt,
		Limit:   &limit,
		Offset:  &offset,
	})
}

// GetCaseCheck handles GET /api/case-checks/:meetingId
func (h *Handlers) GetCaseCheck(c *gin.Context) {
	cc, ok := h.lookupCaseCheck(c)
	if !ok {
		return
	}

	detail := CaseCheckDetail{CaseCheck: cc}
	if cc.Result != nil {
		detail.Result = json.RawMessage(*cc.Result)
	}
	analytics, err := h.server.DB().GetCallAnalytics(cc.ID)
	if err != nil {
		logger.Warn().Err(err).Str("meetingId", cc.MeetingID).Msg("failed to load call analytics")
	}
	detail.Analytics = analytics

	RespondData(c, detail)
}

// GetCheckResults handles GET /api/case-checks/:meetingId/checks
func (h *Handlers) GetCheckResults(c *gin.Context) {
	cc, ok := h.lookupCaseCheck(c)
	if !ok {
		return
	}

	rows, err := h.server.DB().ListCheckResults(cc.ID)
	if err != nil {
		logger.Error().Err(err).Str("meetingId", cc.MeetingID).Msg("failed to list check results")
		RespondInternalError(c, "failed to list check results")
		return
	}
	RespondList(c, rows, nil)
}

// ReviewRequest is the body of PUT /api/case-checks/:meetingId/checks/:checkId/review
type ReviewRequest struct {
	// Status overrides the model's verdict; empty confirms it
	Status   string `json:"status,omitempty"`
	Reviewer string `json:"reviewer,omitempty"`
	Note     string `json:"note,omitempty"`
	// PromoteExample stores the reviewed verdict as a reference example
	PromoteExample bool `json:"promoteExample,omitempty"`
}

// ReviewCheck handles PUT /api/case-checks/:meetingId/checks/:checkId/review
func (h *Handlers) ReviewCheck(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondValidationError(c, "invalid request body", []ErrorDetail{{Message: err.Error()}})
		return
	}

	if req.Status != "" {
		status, ok := assessment.ParseStatus(req.Status)
		if !ok {
			RespondValidationError(c, "invalid status", []ErrorDetail{{Field: "status", Message: "unknown status " + strconv.Quote(req.Status)}})
			return
		}
		req.Status = string(status)
	}

	cc, ok := h.lookupCaseCheck(c)
	if !ok {
		return
	}
	checkID := c.Param("checkId")

	row, err := h.server.DB().ReviewCheckResult(cc.ID, checkID, db.Review{
		Status:   req.Status,
		Reviewer: req.Reviewer,
		Note:     req.Note,
	})
	if err != nil {
		logger.Error().Err(err).Str("meetingId", cc.MeetingID).Str("checkId", checkID).Msg("failed to review check")
		RespondInternalError(c, "failed to review check")
		return
	}
	if row == nil {
		RespondNotFound(c, "check result not found")
		return
	}

	h.server.Notifications().NotifyCheckReviewed(cc.MeetingID, checkID, string(row.ReviewStatus))

	if req.PromoteExample {
		h.promoteExample(c, row)
	}
	RespondData(c, row)
}

// promoteExample adds a reviewed verdict to the knowledge base. Failures are
// logged; the review itself is already stored.
func (h *Handlers) promoteExample(c *gin.Context, row *db.CheckResultRow) {
	if row.EvidenceQuote == nil {
		logger.Debug().Str("checkId", row.CheckID).Msg("no evidence quote, not promoting example")
		return
	}
	ex := assessment.Example{
		CheckID: row.CheckID,
		Status:  assessment.Status(row.Status),
		Quote:   *row.EvidenceQuote,
	}
	if row.ReviewNote != nil {
		ex.Comment = *row.ReviewNote
	} else if row.Comment != nil {
		ex.Comment = *row.Comment
	}

	if err := h.server.KnowledgeBase().Promote(c.Request.Context(), ex); err != nil {
		logger.Warn().Err(err).Str("checkId", row.CheckID).Msg("failed to promote example")
	}
}

// SearchCaseChecks handles GET /api/case-checks/search?q=&status=&checkId=&meetingId=
func (h *Handlers) SearchCaseChecks(c *gin.Context) {
	search := h.server.Search()
	if search == nil {
		RespondServiceUnavailable(c, "search is not configured")
		return
	}

	limit, offset, ok := paging(c, 20)
	if !ok {
		return
	}

	result, err := search.Search(c.Query("q"), vendors.MeiliSearchOptions{
		Limit:     limit,
		Offset:    offset,
		Status:    c.Query("status"),
		CheckID:   c.Query("checkId"),
		MeetingID: c.Query("meetingId"),
	})
	if err != nil {
		logger.Error().Err(err).Msg("search failed")
		RespondServiceUnavailable(c, "search failed")
		return
	}
	RespondData(c, result)
}

// lookupCaseCheck loads the case check named by :meetingId, writing the error response when it can't
func (h *Handlers) lookupCaseCheck(c *gin.Context) (*db.CaseCheck, bool) {
	meetingID := c.Param("meetingId")
	cc, err := h.server.DB().GetCaseCheckByMeeting(meetingID)
	if err != nil {
		logger.Error().Err(err).Str("meetingId", meetingID).Msg("failed to load case check")
		RespondInternalError(c, "failed to load case check")
		return nil, false
	}
	if cc == nil {
		RespondNotFound(c, "case check not found")
		return nil, false
	}
	return cc, true
}

// paging reads limit and offset, answering 400 when either is not a
// non-negative integer. A zero or missing limit means defaultLimit.
func paging(c *gin.Context, defaultLimit int) (limit, offset int, ok bool) {
	if limit, ok = queryInt(c, "limit", defaultLimit); !ok {
		return 0, 0, false
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if offset, ok = queryInt(c, "offset", 0); !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, key string, defaultValue int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		RespondBadRequest(c, key+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}

