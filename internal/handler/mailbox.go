package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

// MailboxHandler serves the inquiry and story forms and their admin views.
type MailboxHandler struct {
	Mailbox MailboxStore
}

func NewMailboxHandler(m MailboxStore) *MailboxHandler {
	return &MailboxHandler{Mailbox: m}
}

type inquiryReq struct {
	UserName string `json:"user_name"`
	Phone    string `json:"phone"`
	Content  string `json:"content"`
}

type answerReq struct {
	Answer string `json:"answer"`
}

type storyReq struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateInquiry handles POST /v1/inquiries.  Senders need not be
// registered.
func (h *MailboxHandler) CreateInquiry(c echo.Context) error {
	var req inquiryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name, err := utils.ValidateName(req.UserName)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	content, err := utils.ValidateMessage(req.Content)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Mailbox.CreateInquiry(ctx, name, phone, content)
	if err != nil {
		return storeError(c, err, "save inquiry failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "id": id})
}

// InquiriesByPhone handles GET /v1/inquiries/phone/:phone.
func (h *MailboxHandler) InquiriesByPhone(c echo.Context) error {
	phone, err := utils.NormalizePhone(c.Param("phone"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Mailbox.InquiriesByPhone(ctx, phone)
	if err != nil {
		return storeError(c, err, "load inquiries failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListInquiries handles GET /v1/admin/inquiries?filter=all|answered|unanswered.
func (h *MailboxHandler) ListInquiries(c echo.Context) error {
	filter := strings.ToLower(c.QueryParam("filter"))
	var answered *bool
	switch filter {
	case "", "all":
		filter = "all"
	case "answered", "unanswered":
		v := filter == "answered"
		answered = &v
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "filter must be all, answered or unanswered"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Mailbox.ListInquiries(ctx, answered)
	if err != nil {
		return storeError(c, err, "load inquiries failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "filter": filter})
}

// AnswerInquiry handles PUT /v1/admin/inquiries/:id/answer.
func (h *MailboxHandler) AnswerInquiry(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req answerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	answer, err := utils.ValidateMessage(req.Answer)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Mailbox.AnswerInquiry(ctx, id, answer); err != nil {
		return storeError(c, err, "save answer failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteInquiry handles DELETE /v1/admin/inquiries/:id.
func (h *MailboxHandler) DeleteInquiry(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Mailbox.DeleteInquiry(ctx, id); err != nil {
		return storeError(c, err, "delete inquiry failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateStory handles POST /v1/stories.  The phone may be typed with
// separators.
func (h *MailboxHandler) CreateStory(c echo.Context) error {
	var req storyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	name, err := utils.ValidateName(req.Name)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	phone, err := utils.NormalizePhone(utils.DigitsOnly(req.Phone))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	content, err := utils.ValidateMessage(req.Content)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	title := strings.TrimSpace(req.Title)
	if len([]rune(title)) > 200 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is too long"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Mailbox.CreateStory(ctx, name, phone, title, content)
	if err != nil {
		return storeError(c, err, "save story failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "id": id})
}

// ListStories handles GET /v1/admin/stories?page=&limit=&include_read=.
func (h *MailboxHandler) ListStories(c echo.Context) error {
	page := queryInt(c, "page", 1, 1, 1<<20)
	limit := queryInt(c, "limit", 20, 1, 100)
	includeRead := true
	if v := queryBool(c, "include_read"); v != nil {
		includeRead = *v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Mailbox.ListStories(ctx, includeRead, limit, (page-1)*limit)
	if err != nil {
		return storeError(c, err, "load stories failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":       items,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": (total + limit - 1) / limit,
	})
}

// StoryStats handles GET /v1/admin/stories/stats.
func (h *MailboxHandler) StoryStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	st, err := h.Mailbox.StoryStats(ctx)
	if err != nil {
		return storeError(c, err, "load story stats failed")
	}
	return c.JSON(http.StatusOK, st)
}

// MarkStoryRead handles PUT /v1/admin/stories/:id/read.
func (h *MailboxHandler) MarkStoryRead(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Mailbox.MarkStoryRead(ctx, id); err != nil {
		return storeError(c, err, "mark story failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteStory handles DELETE /v1/admin/stories/:id.
func (h *MailboxHandler) DeleteStory(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Mailbox.DeleteStory(ctx, id); err != nil {
		return storeError(c, err, "delete story failed")
	}
	return c.NoContent(http.StatusNoContent)
}
