package service_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/storage"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var (
	alice = domain.Principal{UserID: "u-alice", Role: domain.RoleUser}
	bob   = domain.Principal{UserID: "u-bob", Role: domain.RoleUser}
	admin = domain.Principal{UserID: "u-admin", Role: domain.RoleAdmin}
)

var _ = Describe("TicketService", func() {
	var (
		ctx       context.Context
		repo      *mockTicketRepository
		store     *mockAttachmentStore
		users     *repository.MemoryUserDirectory
		orders    *repository.MemoryOrderDirectory
		published []events.Event
		svc       *service.TicketService
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockTicketRepository()
		store = &mockAttachmentStore{}
		users = repository.NewMemoryUserDirectory(
			domain.UserSummary{ID: alice.UserID, Username: "alice"},
			domain.UserSummary{ID: bob.UserID, Username: "bob"},
			domain.UserSummary{ID: admin.UserID, Username: "agent"},
		)
		orders = repository.NewMemoryOrderDirectory(domain.OrderSummary{ID: "P1", OrderNumber: "ORD-1001"})

		published = nil
		dispatcher := events.NewInMemoryDispatcher()
		for _, eventType := range []events.EventType{
			events.EventTicketCreated,
			events.EventTicketMessageAdded,
			events.EventTicketAssigned,
			events.EventTicketStatusChanged,
			events.EventTicketsPurged,
		} {
			dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
				published = append(published, e)
				return nil
			})
		}

		uploader := service.NewAttachmentUploader(store, service.UploaderConfig{MaxFiles: 5}, nil, zap.NewNop())
		svc = service.NewTicketService(service.TicketDependencies{
			TicketRepo:     repo,
			UserDirectory:  users,
			OrderDirectory: orders,
			Uploader:       uploader,
			Dispatcher:     dispatcher,
			Logger:         zap.NewNop(),
		})
	})

	open := func(p domain.Principal, title string) *service.TicketView {
		view, err := svc.CreateTicket(ctx, p, service.CreateTicketInput{
			Title:      title,
			PurchaseID: "P1",
			Priority:   "high",
			Message:    "first message",
		})
		Expect(err).NotTo(HaveOccurred())
		return view
	}

	stored := func(id string) *domain.Ticket {
		ticket, err := repo.inner.FindByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return ticket
	}

	failOn := func(name string) {
		store.putFn = func(_ context.Context, key string, _ []byte, _ string, _ map[string]string) (storage.StoredObject, error) {
			if strings.HasSuffix(key, name) {
				return storage.StoredObject{}, errors.New("store unavailable")
			}
			return storage.StoredObject{Key: key, URL: "https://files.test/" + key}, nil
		}
	}

	Describe("CreateTicket", func() {
		It("opens the refund request with both attachments in input order", func() {
			store.putFn = func(_ context.Context, key string, _ []byte, _ string, _ map[string]string) (storage.StoredObject, error) {
				if strings.HasSuffix(key, "photo.jpg") {
					time.Sleep(20 * time.Millisecond)
				}
				return storage.StoredObject{Key: key, URL: "https://files.test/" + key}, nil
			}

			view, err := svc.CreateTicket(ctx, alice, service.CreateTicketInput{
				Title:      "Refund request",
				PurchaseID: "P1",
				Priority:   "high",
				Message:    "Item arrived damaged",
				Attachments: []service.RawAttachment{
					{Filename: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
					{Filename: "receipt.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
				},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Status).To(Equal(domain.TicketStatusOpen))
			Expect(view.Messages).To(HaveLen(1))
			Expect(view.Messages[0].Content).To(Equal("Item arrived damaged"))
			Expect(view.Messages[0].Attachments).To(HaveLen(2))
			Expect(view.Messages[0].Attachments[0].Filename).To(Equal("photo.jpg"))
			Expect(view.Messages[0].Attachments[1].Filename).To(Equal("receipt.pdf"))
			Expect(view.Creator).NotTo(BeNil())
			Expect(view.Creator.Username).To(Equal("alice"))
			Expect(view.Purchase).NotTo(BeNil())
			Expect(view.Purchase.OrderNumber).To(Equal("ORD-1001"))

			ticket := stored(view.ID)
			Expect(ticket.CreatorID).To(Equal(alice.UserID))
			Expect(ticket.Status).To(Equal(domain.TicketStatusOpen))
			Expect(ticket.Messages[0].Attachments[0].ExternalID).To(HavePrefix("ticket-attachments/"))
		})

		It("lower-cases the priority and publishes ticket_created", func() {
			view, err := svc.CreateTicket(ctx, alice, service.CreateTicketInput{
				Title: "Late", PurchaseID: "P1", Priority: " HIGH ", Message: "where is it",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Priority).To(Equal("high"))
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventTicketCreated))
			Expect(published[0].TicketID).To(Equal(view.ID))
		})

		It("rejects missing fields before uploading anything", func() {
			var puts atomic.Int32
			store.putFn = func(_ context.Context, key string, _ []byte, _ string, _ map[string]string) (storage.StoredObject, error) {
				puts.Add(1)
				return storage.StoredObject{Key: key}, nil
			}

			_, err := svc.CreateTicket(ctx, alice, service.CreateTicketInput{
				Title:       "  ",
				PurchaseID:  "P1",
				Priority:    "low",
				Attachments: []service.RawAttachment{{Filename: "a.txt", Data: []byte("a")}},
			})

			Expect(apperrors.IsCode(err, apperrors.CodeValidationFailed)).To(BeTrue())
			Expect(puts.Load()).To(BeZero())
			all, _ := repo.inner.FindByFilter(ctx, repository.TicketFilter{})
			Expect(all).To(BeEmpty())
		})

		It("stores nothing when an upload fails", func() {
			failOn("b.txt")

			_, err := svc.CreateTicket(ctx, alice, service.CreateTicketInput{
				Title: "Broken", PurchaseID: "P1", Priority: "low", Message: "see files",
				Attachments: []service.RawAttachment{
					{Filename: "a.txt", Data: []byte("a")},
					{Filename: "b.txt", Data: []byte("b")},
				},
			})

			Expect(apperrors.IsCode(err, apperrors.CodeUploadFailed)).To(BeTrue())
			all, _ := repo.inner.FindByFilter(ctx, repository.TicketFilter{})
			Expect(all).To(BeEmpty())
			Expect(published).To(BeEmpty())
		})

		It("reports store failures as persistence failures", func() {
			repo.insertFn = func(context.Context, *domain.Ticket) error {
				return errors.New("write concern")
			}

			_, err := svc.CreateTicket(ctx, alice, service.CreateTicketInput{
				Title: "t", PurchaseID: "P1", Priority: "low", Message: "m",
			})

			Expect(apperrors.IsCode(err, apperrors.CodePersistenceFailed)).To(BeTrue())
		})

		It("requires an authenticated principal", func() {
			_, err := svc.CreateTicket(ctx, domain.Principal{}, service.CreateTicketInput{
				Title: "t", PurchaseID: "P1", Priority: "low", Message: "m",
			})

			Expect(apperrors.IsCode(err, apperrors.CodeUnauthorized)).To(BeTrue())
		})
	})

	Describe("AddMessage", func() {
		var ticket *service.TicketView

		BeforeEach(func() {
			ticket = open(alice, "Refund request")
		})

		It("appends messages in call order", func() {
			for _, body := range []string{"one", "two", "three"} {
				_, err := svc.AddMessage(ctx, alice, ticket.ID, body, nil)
				Expect(err).NotTo(HaveOccurred())
			}

			messages := stored(ticket.ID).Messages
			Expect(messages).To(HaveLen(4))
			Expect(messages[0].Content).To(Equal("first message"))
			Expect(messages[1].Content).To(Equal("one"))
			Expect(messages[2].Content).To(Equal("two"))
			Expect(messages[3].Content).To(Equal("three"))
		})

		It("lets an admin reply and expands the sender", func() {
			view, err := svc.AddMessage(ctx, admin, ticket.ID, "we are on it", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Messages).To(HaveLen(2))
			Expect(view.Messages[1].SenderID).To(Equal(admin.UserID))
			Expect(view.Messages[1].Sender.Username).To(Equal("agent"))
		})

		It("accepts an attachment without text", func() {
			view, err := svc.AddMessage(ctx, alice, ticket.ID, "", []service.RawAttachment{
				{Filename: "label.png", ContentType: "image/png", Data: []byte("png")},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Messages[1].Attachments).To(HaveLen(1))
		})

		It("rejects an empty message", func() {
			_, err := svc.AddMessage(ctx, alice, ticket.ID, "   ", nil)

			Expect(apperrors.IsCode(err, apperrors.CodeValidationFailed)).To(BeTrue())
			Expect(stored(ticket.ID).Messages).To(HaveLen(1))
		})

		It("hides other users' tickets", func() {
			_, err := svc.AddMessage(ctx, bob, ticket.ID, "hi", nil)

			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
			Expect(stored(ticket.ID).Messages).To(HaveLen(1))
		})

		It("returns not found for an unknown ticket", func() {
			_, err := svc.AddMessage(ctx, alice, "missing", "hi", nil)

			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
		})

		It("adds no message when one of several uploads fails", func() {
			before := len(stored(ticket.ID).Messages)
			failOn("c.txt")

			_, err := svc.AddMessage(ctx, alice, ticket.ID, "files attached", []service.RawAttachment{
				{Filename: "a.txt", Data: []byte("a")},
				{Filename: "b.txt", Data: []byte("b")},
				{Filename: "c.txt", Data: []byte("c")},
				{Filename: "d.txt", Data: []byte("d")},
			})

			Expect(apperrors.IsCode(err, apperrors.CodeUploadFailed)).To(BeTrue())
			after := stored(ticket.ID)
			Expect(after.Messages).To(HaveLen(before))
			for _, msg := range after.Messages {
				Expect(msg.Attachments).To(BeEmpty())
			}
		})

		It("reports save failures as persistence failures", func() {
			repo.saveFn = func(context.Context, *domain.Ticket) error {
				return errors.New("socket closed")
			}

			_, err := svc.AddMessage(ctx, alice, ticket.ID, "hi", nil)

			Expect(apperrors.IsCode(err, apperrors.CodePersistenceFailed)).To(BeTrue())
		})
	})

	Describe("AssignAdmin", func() {
		DescribeTable("moves the ticket to in_progress from every status",
			func(from domain.TicketStatus) {
				ticket := open(alice, "Assign me")
				_, err := svc.UpdateStatus(ctx, admin, ticket.ID, string(from))
				Expect(err).NotTo(HaveOccurred())

				assigned, err := svc.AssignAdmin(ctx, admin, ticket.ID, admin.UserID)

				Expect(err).NotTo(HaveOccurred())
				Expect(assigned.Status).To(Equal(domain.TicketStatusInProgress))
				Expect(*assigned.AssignedAdmin).To(Equal(admin.UserID))
				Expect(stored(ticket.ID).Status).To(Equal(domain.TicketStatusInProgress))
			},
			Entry("open", domain.TicketStatusOpen),
			Entry("in_progress", domain.TicketStatusInProgress),
			Entry("resolved", domain.TicketStatusResolved),
			Entry("closed", domain.TicketStatusClosed),
		)

		It("publishes the previous status", func() {
			ticket := open(alice, "Assign me")
			published = nil

			_, err := svc.AssignAdmin(ctx, admin, ticket.ID, admin.UserID)

			Expect(err).NotTo(HaveOccurred())
			Expect(published).To(HaveLen(1))
			payload, ok := published[0].Payload.(events.TicketAssignedPayload)
			Expect(ok).To(BeTrue())
			Expect(payload.PreviousStatus).To(Equal(domain.TicketStatusOpen))
			Expect(payload.PreviousAdmin).To(BeNil())
		})

		It("is forbidden for non-admins", func() {
			ticket := open(alice, "Assign me")

			_, err := svc.AssignAdmin(ctx, alice, ticket.ID, admin.UserID)

			Expect(apperrors.IsCode(err, apperrors.CodeForbidden)).To(BeTrue())
			Expect(stored(ticket.ID).AssignedAdmin).To(BeNil())
		})

		It("rejects an admin id the directory does not know", func() {
			ticket := open(alice, "Assign me")

			_, err := svc.AssignAdmin(ctx, admin, ticket.ID, "ghost")

			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
			Expect(stored(ticket.ID).Status).To(Equal(domain.TicketStatusOpen))
		})

		It("returns not found for an unknown ticket", func() {
			_, err := svc.AssignAdmin(ctx, admin, "missing", admin.UserID)

			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
		})
	})

	Describe("UpdateStatus", func() {
		It("rejects archived and leaves the status unchanged", func() {
			ticket := open(alice, "Refund request")
			_, err := svc.UpdateStatus(ctx, admin, ticket.ID, "resolved")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.UpdateStatus(ctx, admin, ticket.ID, "archived")

			Expect(apperrors.IsCode(err, apperrors.CodeValidationFailed)).To(BeTrue())
			Expect(stored(ticket.ID).Status).To(Equal(domain.TicketStatusResolved))
		})

		It("allows any transition between enum members", func() {
			ticket := open(alice, "Refund request")
			_, err := svc.UpdateStatus(ctx, admin, ticket.ID, "closed")
			Expect(err).NotTo(HaveOccurred())

			view, err := svc.UpdateStatus(ctx, admin, ticket.ID, "open")

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Status).To(Equal(domain.TicketStatusOpen))
			last := published[len(published)-1].Payload.(events.TicketStatusChangedPayload)
			Expect(last.OldStatus).To(Equal(domain.TicketStatusClosed))
			Expect(last.NewStatus).To(Equal(domain.TicketStatusOpen))
		})

		It("is forbidden for non-admins", func() {
			ticket := open(alice, "Refund request")

			_, err := svc.UpdateStatus(ctx, alice, ticket.ID, "closed")

			Expect(apperrors.IsCode(err, apperrors.CodeForbidden)).To(BeTrue())
			Expect(stored(ticket.ID).Status).To(Equal(domain.TicketStatusOpen))
		})

		It("returns not found for an unknown ticket", func() {
			_, err := svc.UpdateStatus(ctx, admin, "missing", "closed")

			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
		})
	})

	Describe("ListTickets", func() {
		BeforeEach(func() {
			open(alice, "alice 1")
			open(bob, "bob 1")
			open(alice, "alice 2")
		})

		titles := func(views []service.TicketView) []string {
			out := make([]string, 0, len(views))
			for _, v := range views {
				out = append(out, v.Title)
			}
			return out
		}

		It("only returns the caller's tickets for non-admins", func() {
			views, err := svc.ListTickets(ctx, alice, service.TicketQuery{CreatorID: bob.UserID})

			Expect(err).NotTo(HaveOccurred())
			Expect(titles(views)).To(Equal([]string{"alice 2", "alice 1"}))
		})

		It("returns every ticket newest first for admins", func() {
			views, err := svc.ListTickets(ctx, admin, service.TicketQuery{})

			Expect(err).NotTo(HaveOccurred())
			Expect(titles(views)).To(Equal([]string{"alice 2", "bob 1", "alice 1"}))
		})

		It("lets admins filter by creator and status", func() {
			views, err := svc.ListTickets(ctx, admin, service.TicketQuery{CreatorID: bob.UserID})
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(views)).To(Equal([]string{"bob 1"}))

			views, err = svc.ListTickets(ctx, admin, service.TicketQuery{Statuses: []string{"closed"}})
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())
		})

		It("rejects an unknown status filter", func() {
			_, err := svc.ListTickets(ctx, admin, service.TicketQuery{Statuses: []string{"archived"}})

			Expect(apperrors.IsCode(err, apperrors.CodeValidationFailed)).To(BeTrue())
		})

		It("lists the caller's own tickets even for admins", func() {
			views, err := svc.ListMyTickets(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(views).To(BeEmpty())

			views, err = svc.ListMyTickets(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(titles(views)).To(Equal([]string{"bob 1"}))
		})
	})

	Describe("GetTicketThread", func() {
		It("is visible to the creator and admins only", func() {
			ticket := open(alice, "Refund request")

			_, err := svc.GetTicketThread(ctx, alice, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.GetTicketThread(ctx, admin, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.GetTicketThread(ctx, bob, ticket.ID)
			Expect(apperrors.IsCode(err, apperrors.CodeNotFound)).To(BeTrue())
		})

		It("leaves unresolvable references empty", func() {
			ghost := domain.Principal{UserID: "u-ghost", Role: domain.RoleUser}
			ticket := open(ghost, "Orphan")

			view, err := svc.GetTicketThread(ctx, admin, ticket.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(view.Creator).To(BeNil())
			Expect(view.Messages[0].Sender).To(BeNil())
		})

		It("reports directory failures", func() {
			ticket := open(alice, "Refund request")
			broken := &mockUserDirectory{findUsersFn: func(context.Context, []string) (map[string]domain.UserSummary, error) {
				return nil, errors.New("pool exhausted")
			}}
			failing := service.NewTicketService(service.TicketDependencies{
				TicketRepo:     repo,
				UserDirectory:  broken,
				OrderDirectory: orders,
				Uploader:       service.NewAttachmentUploader(store, service.UploaderConfig{}, nil, nil),
			})

			_, err := failing.GetTicketThread(ctx, alice, ticket.ID)

			Expect(apperrors.IsCode(err, apperrors.CodePersistenceFailed)).To(BeTrue())
		})
	})

	Describe("DeleteAllByCreator", func() {
		It("removes only that creator's tickets", func() {
			open(alice, "a1")
			open(alice, "a2")
			open(bob, "b1")
			published = nil

			deleted, err := svc.DeleteAllByCreator(ctx, alice.UserID)

			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(2)))
			remaining, _ := repo.inner.FindByFilter(ctx, repository.TicketFilter{})
			Expect(remaining).To(HaveLen(1))
			Expect(remaining[0].CreatorID).To(Equal(bob.UserID))
			Expect(published).To(HaveLen(1))
			Expect(published[0].Type).To(Equal(events.EventTicketsPurged))
		})

		It("requires a user id", func() {
			_, err := svc.DeleteAllByCreator(ctx, " ")

			Expect(apperrors.IsCode(err, apperrors.CodeValidationFailed)).To(BeTrue())
		})
	})
})
