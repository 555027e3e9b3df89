package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type taskResponse struct {
	ID          string `json:"id"`
	PlanID      string `json:"planId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Duration    string `json:"duration"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
}

type planResponse struct {
	ID             string         `json:"id"`
	Date           string         `json:"date"`
	TZOffset       int            `json:"tzOffset"`
	Explanation    string         `json:"explanation"`
	Tasks          []taskResponse `json:"tasks"`
	CompletionRate int            `json:"completionRate"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type slotResponse struct {
	Index       int    `json:"index"`
	Time        string `json:"time"`
	Label       string `json:"label"`
	IsHourStart bool   `json:"isHourStart"`
	IsNight     bool   `json:"isNight"`
}

type placementResponse struct {
	TaskID    string `json:"taskId"`
	StartSlot int    `json:"startSlot"`
	Span      int    `json:"span"`
}

type windowResponse struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	SlotMinutes int    `json:"slotMinutes"`
}

type viewResponse struct {
	Plan       planResponse        `json:"plan"`
	Window     windowResponse      `json:"window"`
	Slots      []slotResponse      `json:"slots"`
	Placements []placementResponse `json:"placements"`
	Unplaced   []string            `json:"unplaced"`
}

type generateRequest struct {
	Date     string   `json:"date"`
	TZOffset *int     `json:"tzOffset"`
	Titles   []string `json:"titles"`
}

type generateResponse struct {
	Success      bool     `json:"success"`
	PlanID       string   `json:"planId"`
	Date         string   `json:"date"`
	TasksCreated int      `json:"tasksCreated"`
	Explanation  string   `json:"explanation"`
	Warnings     []string `json:"warnings,omitempty"`
}

type toggleRequest struct {
	Completed *bool `json:"completed"`
}

func toPlanResponse(p *plan.Plan) planResponse {
	tasks := make([]taskResponse, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, taskResponse{
			ID:          t.ID,
			PlanID:      t.PlanID,
			Title:       t.Title,
			Description: t.Description,
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
			Duration:    t.Duration,
			Priority:    string(t.Priority),
			Completed:   t.Completed,
		})
	}
	return planResponse{
		ID:             p.ID,
		Date:           p.DateKey(),
		TZOffset:       p.TZOffset,
		Explanation:    p.Explanation,
		Tasks:          tasks,
		CompletionRate: p.Stats().Percent(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, planner.ErrNoTasks),
		errors.Is(err, dateutil.ErrInvalidDateFormat),
		errors.Is(err, dateutil.ErrEndDateBeforeStart):
		return http.StatusBadRequest
	case errors.Is(err, plan.ErrPlanNotFound), errors.Is(err, plan.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrMalformedAIResponse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// planView returns a day's plan laid out on a grid.
func (s *Server) planView(c *gin.Context) {
	date, err := dateutil.Resolve(c.Param("date"), s.now())
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.repo.FindPlanByDate(c.Request.Context(), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	if p == nil {
		s.fail(c, plan.ErrPlanNotFound)
		return
	}

	g := s.grid("default", c.Query("full") == "1")
	placements := timegrid.Place(p.Tasks, g)

	resp := viewResponse{
		Plan:       toPlanResponse(p),
		Window:     windowResponse{Start: g.Window.Start, End: g.Window.End, SlotMinutes: g.Window.SlotMinutes},
		Slots:      make([]slotResponse, 0, g.Len()),
		Placements: make([]placementResponse, 0, len(p.Tasks)),
		Unplaced:   placements.Unplaced(),
	}
	for _, sl := range g.Slots {
		resp.Slots = append(resp.Slots, slotResponse{
			Index:       sl.Index,
			Time:        sl.Time,
			Label:       sl.Label,
			IsHourStart: sl.IsHourStart,
			IsNight:     sl.IsNight,
		})
	}
	for _, t := range p.Tasks {
		if pl, ok := placements.Get(t.ID); ok && pl.Placed {
			resp.Placements = append(resp.Placements, placementResponse{TaskID: t.ID, StartSlot: pl.StartSlot, Span: pl.Span})
		}
	}
	c.JSON(http.StatusOK, resp)
}

// listPlans returns plans in a date range, newest first.
func (s *Server) listPlans(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	r, err := dateutil.NewDateRange(c.Query("from"), c.Query("to"), days, s.now())
	if err != nil {
		s.fail(c, err)
		return
	}

	plans, err := s.repo.ListPlans(c.Request.Context(), r.From, r.To)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "plans": out})
}

// generatePlan asks the AI for a schedule and stores it.
func (s *Server) generatePlan(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	now := s.now()
	date, err := dateutil.Resolve(req.Date, now)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, tzOffset := dateutil.Today(now)
	if req.TZOffset != nil {
		tzOffset = *req.TZOffset
	}

	res, err := s.generator.Generate(c.Request.Context(), planner.Request{Date: date, TZOffset: tzOffset, Titles: req.Titles})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, generateResponse{
		Success:      true,
		PlanID:       res.PlanID,
		Date:         res.Plan.DateKey(),
		TasksCreated: res.TasksCreated,
		Explanation:  res.Explanation,
		Warnings:     res.Warnings,
	})
}

// toggleTask confirms a completion toggle. The body carries the value the
// task had before the user toggled it.
func (s *Server) toggleTask(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: `invalid request: "completed" is required`})
		return
	}

	if err := s.toggler.ToggleTaskCompletion(c.Request.Context(), c.Param("id"), *req.Completed); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "completed": !*req.Completed})
}

// deletePlan removes a plan and its tasks.
func (s *Server) deletePlan(c *gin.Context) {
	if err := s.repo.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
