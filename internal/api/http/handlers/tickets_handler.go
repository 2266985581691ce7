package handlers

import (
	"context"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// attachmentFields are the multipart field names that carry files.
var attachmentFields = []string{"attachments", "attachments[]"}

// TicketService is the ticket workflow the handler drives.
type TicketService interface {
	CreateTicket(ctx context.Context, p domain.Principal, input service.CreateTicketInput) (*service.TicketView, error)
	AddMessage(ctx context.Context, p domain.Principal, ticketID, content string, files []service.RawAttachment) (*service.TicketView, error)
	AssignAdmin(ctx context.Context, p domain.Principal, ticketID, adminID string) (*domain.Ticket, error)
	GetTicketThread(ctx context.Context, p domain.Principal, ticketID string) (*service.TicketView, error)
	ListTickets(ctx context.Context, p domain.Principal, query service.TicketQuery) ([]service.TicketView, error)
	ListMyTickets(ctx context.Context, p domain.Principal) ([]service.TicketView, error)
	UpdateStatus(ctx context.Context, p domain.Principal, ticketID, status string) (*service.TicketView, error)
}

const maxPageSize = 100

// TicketsHandler serves the ticket endpoints for users and admins.
type TicketsHandler struct {
	service TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	files, err := readAttachments(c)
	if err != nil {
		return err
	}

	// Form values alias the request buffer and must not outlive the request.
	view, err := h.service.CreateTicket(c.UserContext(), principal, service.CreateTicketInput{
		Title:       strings.Clone(req.Title),
		PurchaseID:  strings.Clone(req.PurchaseID),
		Priority:    strings.Clone(req.Priority),
		Message:     strings.Clone(req.Message),
		Attachments: files,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicketView(view)})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListTickets(c.UserContext(), principal, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketViews(views)})
}

// ListMyTickets GET /api/tickets/mine.
func (h *TicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	views, err := h.service.ListMyTickets(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketViews(views)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTicketThread(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketView(view)})
}

// AddMessage POST /api/tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AddMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	files, err := readAttachments(c)
	if err != nil {
		return err
	}

	view, err := h.service.AddMessage(c.UserContext(), principal, c.Params("id"), strings.Clone(req.Content), files)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicketView(view)})
}

// AssignTicket PATCH /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AssignAdmin(c.UserContext(), principal, c.Params("id"), strings.Clone(req.AdminID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromAssignedTicket(ticket)})
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	view, err := h.service.UpdateStatus(c.UserContext(), principal, c.Params("id"), strings.Clone(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicketView(view)})
}

func requirePrincipal(c *fiber.Ctx) (domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal == nil {
		return domain.Principal{}, apperrors.NewUnauthorized("authentication required")
	}
	return *principal, nil
}

// readAttachments collects uploaded files from a multipart body. Other
// content types carry no files.
func readAttachments(c *fiber.Ctx) ([]service.RawAttachment, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart body", nil)
	}

	var files []service.RawAttachment
	for _, field := range attachmentFields {
		for _, header := range form.File[field] {
			data, err := readFile(header)
			if err != nil {
				return nil, apperrors.NewValidationError("unreadable attachment", map[string]any{"filename": header.Filename})
			}
			files = append(files, service.RawAttachment{
				Filename:    header.Filename,
				ContentType: header.Header.Get(fiber.HeaderContentType),
				Data:        data,
			})
		}
	}
	return files, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseTicketQuery reads listing filters. Without page_size every match is
// returned. page_size is capped at maxPageSize.
func parseTicketQuery(c *fiber.Ctx) (service.TicketQuery, error) {
	query := service.TicketQuery{
		Statuses:      splitList(c.Query("status")),
		Priorities:    splitList(c.Query("priority")),
		CreatorID:     c.Query("creator"),
		AssignedAdmin: c.Query("assigned_admin"),
	}
	pageSize := min(parseInt(c.Query("page_size"), 0), maxPageSize)
	if pageSize > 0 {
		page := parseInt(c.Query("page"), 1)
		if page-1 > math.MaxInt32/pageSize {
			return service.TicketQuery{}, apperrors.NewValidationError("page out of range", map[string]any{"page": page})
		}
		query.Limit = pageSize
		query.Offset = (page - 1) * pageSize
	}
	return query, nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
