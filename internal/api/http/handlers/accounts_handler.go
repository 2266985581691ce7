package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
)

// TicketPurger removes every ticket of a deleted account.
type TicketPurger interface {
	DeleteAllByCreator(ctx context.Context, userID string) (int64, error)
}

// AccountsHandler serves hooks called by the identity provider.
type AccountsHandler struct {
	tickets TicketPurger
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(tickets TicketPurger) *AccountsHandler {
	return &AccountsHandler{tickets: tickets}
}

// PurgeUserTickets DELETE /internal/users/:userId/tickets.
func (h *AccountsHandler) PurgeUserTickets(c *fiber.Ctx) error {
	deleted, err := h.tickets.DeleteAllByCreator(c.UserContext(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(dto.PurgeResponse{Deleted: deleted})
}
