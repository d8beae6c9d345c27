package handler

import (
	"context"
	"time"

	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/service"
)

// RegistrantStore is implemented by *repository.RegistrantRepo.
type RegistrantStore interface {
	Create(ctx context.Context, reg *model.Registrant) (uint64, error)
	Count(ctx context.Context) (applications, tickets int, err error)
	GetByID(ctx context.Context, id uint64) (*model.Registrant, error)
	FindByPhone(ctx context.Context, phone string) (*model.Registrant, bool, error)
	SetCompanion(ctx context.Context, phone string, c repository.Companion) error
	List(ctx context.Context, f repository.ListFilter) ([]model.Registrant, error)
	SetPaid(ctx context.Context, id uint64, paid bool) error
	SoftDelete(ctx context.Context, id uint64) error
	Restore(ctx context.Context, id uint64) error
}

// SettingStore is implemented by *repository.SettingRepo.
type SettingStore interface {
	RegistrationOpen(ctx context.Context) (bool, error)
	SetRegistrationOpen(ctx context.Context, open bool) error
	ActiveSeatGroups(ctx context.Context) (*model.SeatGroupConfig, error)
	SaveSeatGroups(ctx context.Context, groups []string, by string) (uint64, error)
	SeatGroupHistory(ctx context.Context, limit int) ([]model.SeatGroupConfig, error)
}

// SeatStore is implemented by *repository.SeatRepo.
type SeatStore interface {
	AssignManual(ctx context.Context, id uint64, slot int, s seating.Seat) error
	ClearSeats(ctx context.Context, id uint64, slot int) error
	ResetAllSeats(ctx context.Context, token string) (int64, error)
	ResetSeatsAndPayment(ctx context.Context, token string) (int64, error)
	ClaimedLabels(ctx context.Context) (seating.LabelSet, error)
}

// Assigner is implemented by *service.SeatService.
type Assigner interface {
	Assign(ctx context.Context, req service.AssignRequest) (*service.AssignResult, error)
	Catalog() seating.Catalog
}

// CheckinStore is implemented by *repository.CheckinRepo.
type CheckinStore interface {
	ListLists(ctx context.Context, activeOnly bool) ([]model.CheckinList, error)
	GetList(ctx context.Context, id uint64) (*model.CheckinList, error)
	CreateList(ctx context.Context, l *model.CheckinList) error
	UpdateList(ctx context.Context, l *model.CheckinList) error
	DeleteList(ctx context.Context, id uint64) error
	Record(ctx context.Context, registrantID, listID uint64, by string) (bool, time.Time, error)
	Stats(ctx context.Context) (model.CheckinStats, error)
	ListStats(ctx context.Context, l model.CheckinList) (model.CheckinStats, error)
	Records(ctx context.Context, listID uint64, limit, offset int) ([]model.CheckinRecord, int, error)
	CancelRecord(ctx context.Context, listID, recordID uint64) error
}

// CheckinPublisher is implemented by *queue.Publisher.
type CheckinPublisher interface {
	PublishCheckinRecorded(ctx context.Context, ev queue.CheckinRecordedEvent) error
}

// CachePurger drops cached public responses after a write that changes
// them.  A nil CachePurger is a no-op.
type CachePurger func(ctx context.Context)

func (p CachePurger) purge(ctx context.Context) {
	if p != nil {
		p(ctx)
	}
}

// MailboxStore is implemented by *repository.MailboxRepo.
type MailboxStore interface {
	CreateInquiry(ctx context.Context, name, phone, content string) (uint64, error)
	InquiriesByPhone(ctx context.Context, phone string) ([]model.Inquiry, error)
	ListInquiries(ctx context.Context, answered *bool) ([]model.Inquiry, error)
	AnswerInquiry(ctx context.Context, id uint64, answer string) error
	DeleteInquiry(ctx context.Context, id uint64) error
	CreateStory(ctx context.Context, name, phone, title, content string) (uint64, error)
	ListStories(ctx context.Context, includeRead bool, limit, offset int) ([]model.Story, int, error)
	MarkStoryRead(ctx context.Context, id uint64) error
	DeleteStory(ctx context.Context, id uint64) error
	StoryStats(ctx context.Context) (model.StoryStats, error)
}
