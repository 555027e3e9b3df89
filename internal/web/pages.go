package web

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
)

var templateFuncs = template.FuncMap{
	"longDate": func(t time.Time) string {
		return t.Format("Monday, January 2, 2006")
	},
	"shortDate": func(t time.Time) string {
		return t.Format("Mon, Jan 2")
	},
	"lower": func(p plan.Priority) string {
		return strings.ToLower(string(p))
	},
	"inc": func(n int) int { return n + 1 },
	"dec": func(n int) int { return n - 1 },
}

type pageData struct {
	Title    string
	Nav      string
	Date     time.Time
	Schedule schedule
	PageURL  string
	Error    string
}

type historyItem struct {
	Plan  *plan.Plan
	Stats plan.Stats
}

type historyData struct {
	Title      string
	Nav        string
	Items      []historyItem
	Page       int
	TotalPages int
}

type createData struct {
	Title  string
	Nav    string
	Titles string
	Date   string
	Error  string
}

func (s *Server) renderError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Something went wrong. Please try again."
	}
	c.HTML(status, "error.html", pageData{Title: "Error", Error: msg})
}

func (s *Server) todayPage(c *gin.Context) {
	today, _ := dateutil.Today(s.now())
	s.renderDay(c, today, "today", "default", "/today")
}

func (s *Server) planPage(c *gin.Context) {
	date, err := dateutil.Resolve(c.Param("date"), s.now())
	if err != nil {
		s.renderError(c, err)
		return
	}
	s.renderDay(c, date, "history", "detail", "/plans/"+date.Format(plan.DateLayout))
}

func (s *Server) renderDay(c *gin.Context, date time.Time, nav, gridName, pageURL string) {
	p, err := s.repo.FindPlanByDate(c.Request.Context(), date)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if p == nil && nav != "today" {
		s.renderError(c, plan.ErrPlanNotFound)
		return
	}

	full := c.Query("full") == "1"
	c.HTML(http.StatusOK, "day.html", pageData{
		Title:    date.Format("Mon, Jan 2"),
		Nav:      nav,
		Date:     date,
		Schedule: buildSchedule(p, s.grid(gridName, full), full),
		PageURL:  pageURL,
	})
}

func (s *Server) historyPage(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	today, _ := dateutil.Today(s.now())
	yesterday := today.AddDate(0, 0, -1)
	ctx := c.Request.Context()

	plans, total, err := s.repo.PagePlans(ctx, yesterday, (page-1)*historyPageSize, historyPageSize)
	if err != nil {
		s.renderError(c, err)
		return
	}

	totalPages := max((total+historyPageSize-1)/historyPageSize, 1)
	if page > totalPages {
		page = totalPages
		plans, _, err = s.repo.PagePlans(ctx, yesterday, (page-1)*historyPageSize, historyPageSize)
		if err != nil {
			s.renderError(c, err)
			return
		}
	}

	items := make([]historyItem, 0, len(plans))
	for _, p := range plans {
		items = append(items, historyItem{Plan: p, Stats: p.Stats()})
	}

	c.HTML(http.StatusOK, "history.html", historyData{
		Title:      "Past plans",
		Nav:        "history",
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
	})
}

func (s *Server) createForm(c *gin.Context) {
	c.HTML(http.StatusOK, "create.html", createData{Title: "Create plan", Nav: "create"})
}

func (s *Server) createPlan(c *gin.Context) {
	form := createData{
		Title:  "Create plan",
		Nav:    "create",
		Titles: c.PostForm("titles"),
		Date:   c.PostForm("date"),
	}

	now := s.now()
	date, err := dateutil.Resolve(form.Date, now)
	if err != nil {
		form.Error = err.Error()
		c.HTML(http.StatusBadRequest, "create.html", form)
		return
	}
	_, tzOffset := dateutil.Today(now)

	res, err := s.generator.Generate(c.Request.Context(), planner.Request{
		Date:     date,
		TZOffset: tzOffset,
		Titles:   planner.SplitTitles(form.Titles),
	})
	if err != nil {
		status := statusFor(err)
		_ = c.Error(err)
		form.Error = err.Error()
		if status == http.StatusInternalServerError {
			form.Error = "Could not create the plan. Please try again."
		}
		c.HTML(status, "create.html", form)
		return
	}

	today, _ := dateutil.Today(now)
	target := "/plans/" + res.Plan.DateKey()
	if res.Plan.Date.Equal(today) {
		target = "/today"
	}
	c.Redirect(http.StatusSeeOther, target)
}
