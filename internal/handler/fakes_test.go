package handler

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-assignment/internal/middleware"
	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/queue"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/service"
	"github.com/iliyamo/event-seat-assignment/internal/utils"
)

func strp(s string) *string { return &s }

// call runs h against a request built from method, target and a JSON body.
// params are path parameter name/value pairs.
func call(h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	c.Set(middleware.CtxUserID, uint64(7))
	_ = h(c)
	return rec
}

type fakeRegistrants struct {
	mu     sync.Mutex
	byID   map[uint64]*model.Registrant
	nextID uint64
}

func newFakeRegistrants(regs ...*model.Registrant) *fakeRegistrants {
	f := &fakeRegistrants{byID: map[uint64]*model.Registrant{}, nextID: 1}
	for _, r := range regs {
		f.byID[r.ID] = r
		if r.ID >= f.nextID {
			f.nextID = r.ID + 1
		}
	}
	return f
}

func (f *fakeRegistrants) Create(_ context.Context, reg *model.Registrant) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.Phone == reg.Phone || (r.CompanionPhone != nil && *r.CompanionPhone == reg.Phone) {
			return 0, repository.ErrPhoneExists
		}
	}
	reg.ID = f.nextID
	f.nextID++
	f.byID[reg.ID] = reg
	return reg.ID, nil
}

func (f *fakeRegistrants) Count(context.Context) (int, int, error) {
	apps, tickets := 0, 0
	for _, r := range f.byID {
		if r.DeletedAt == nil {
			apps++
			tickets += r.TicketCount
		}
	}
	return apps, tickets, nil
}

func (f *fakeRegistrants) GetByID(_ context.Context, id uint64) (*model.Registrant, error) {
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

func (f *fakeRegistrants) FindByPhone(_ context.Context, phone string) (*model.Registrant, bool, error) {
	for _, r := range f.byID {
		if r.DeletedAt != nil {
			continue
		}
		if r.Phone == phone {
			return r, false, nil
		}
		if r.CompanionCompleted && r.CompanionPhone != nil && *r.CompanionPhone == phone {
			return r, true, nil
		}
	}
	return nil, false, repository.ErrNotFound
}

func (f *fakeRegistrants) SetCompanion(_ context.Context, phone string, c repository.Companion) error {
	r, asCompanion, err := f.FindByPhone(context.Background(), phone)
	if err != nil || asCompanion {
		return repository.ErrNotFound
	}
	r.CompanionName = &c.Name
	r.CompanionPhone = &c.Phone
	r.CompanionBirthDate = c.BirthDate
	r.CompanionCompleted = true
	return nil
}

func (f *fakeRegistrants) List(context.Context, repository.ListFilter) ([]model.Registrant, error) {
	out := make([]model.Registrant, 0, len(f.byID))
	for _, r := range f.byID {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRegistrants) SetPaid(_ context.Context, id uint64, paid bool) error {
	r, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.IsPaid = paid
	return nil
}

func (f *fakeRegistrants) SoftDelete(_ context.Context, id uint64) error {
	r, ok := f.byID[id]
	if !ok || r.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	r.DeletedAt = &now
	r.SeatLabel, r.SeatLabel2 = nil, nil
	return nil
}

func (f *fakeRegistrants) Restore(_ context.Context, id uint64) error {
	r, ok := f.byID[id]
	if !ok || r.DeletedAt == nil {
		return repository.ErrNotFound
	}
	r.DeletedAt = nil
	return nil
}

type fakeSettings struct {
	open    bool
	active  *model.SeatGroupConfig
	history []model.SeatGroupConfig
}

func (f *fakeSettings) RegistrationOpen(context.Context) (bool, error) { return f.open, nil }

func (f *fakeSettings) SetRegistrationOpen(_ context.Context, open bool) error {
	f.open = open
	return nil
}

func (f *fakeSettings) ActiveSeatGroups(context.Context) (*model.SeatGroupConfig, error) {
	if f.active == nil {
		return nil, repository.ErrNotFound
	}
	return f.active, nil
}

func (f *fakeSettings) SaveSeatGroups(_ context.Context, groups []string, by string) (uint64, error) {
	id := uint64(len(f.history) + 1)
	f.active = &model.SeatGroupConfig{ID: id, Groups: groups, IsActive: true, CreatedBy: &by, CreatedAt: time.Now()}
	f.history = append([]model.SeatGroupConfig{*f.active}, f.history...)
	return id, nil
}

func (f *fakeSettings) SeatGroupHistory(_ context.Context, limit int) ([]model.SeatGroupConfig, error) {
	return f.history[:min(limit, len(f.history))], nil
}

type manualCall struct {
	id   uint64
	slot int
	seat seating.Seat
}

type fakeSeats struct {
	claimed seating.LabelSet
	manual  []manualCall
	cleared []int
}

func (f *fakeSeats) AssignManual(_ context.Context, id uint64, slot int, s seating.Seat) error {
	if f.claimed.Has(s.Label()) {
		return repository.ErrSeatTaken
	}
	f.manual = append(f.manual, manualCall{id, slot, s})
	return nil
}

func (f *fakeSeats) ClearSeats(_ context.Context, _ uint64, slot int) error {
	f.cleared = append(f.cleared, slot)
	return nil
}

func (f *fakeSeats) ResetAllSeats(_ context.Context, token string) (int64, error) {
	if token != repository.ConfirmResetAllSeats {
		return 0, repository.ErrInvalidConfirmToken
	}
	return 3, nil
}

func (f *fakeSeats) ResetSeatsAndPayment(_ context.Context, token string) (int64, error) {
	if token != repository.ConfirmResetSeatsAndPayment {
		return 0, repository.ErrInvalidConfirmToken
	}
	return 3, nil
}

func (f *fakeSeats) ClaimedLabels(context.Context) (seating.LabelSet, error) {
	return f.claimed, nil
}

type fakeAssigner struct {
	catalog seating.Catalog
	got     []service.AssignRequest
	res     *service.AssignResult
	err     error
}

func (f *fakeAssigner) Assign(_ context.Context, req service.AssignRequest) (*service.AssignResult, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeAssigner) Catalog() seating.Catalog { return f.catalog }

type fakeCheckins struct {
	lists   map[uint64]*model.CheckinList
	records map[[2]uint64]time.Time
}

func newFakeCheckins(lists ...*model.CheckinList) *fakeCheckins {
	f := &fakeCheckins{lists: map[uint64]*model.CheckinList{}, records: map[[2]uint64]time.Time{}}
	for _, l := range lists {
		f.lists[l.ID] = l
	}
	return f
}

func (f *fakeCheckins) ListLists(_ context.Context, activeOnly bool) ([]model.CheckinList, error) {
	out := []model.CheckinList{}
	for _, l := range f.lists {
		if !activeOnly || l.IsActive {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeCheckins) GetList(_ context.Context, id uint64) (*model.CheckinList, error) {
	l, ok := f.lists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return l, nil
}

func (f *fakeCheckins) CreateList(_ context.Context, l *model.CheckinList) error {
	l.ID = uint64(len(f.lists) + 1)
	f.lists[l.ID] = l
	return nil
}

func (f *fakeCheckins) UpdateList(_ context.Context, l *model.CheckinList) error {
	if _, ok := f.lists[l.ID]; !ok {
		return repository.ErrNotFound
	}
	f.lists[l.ID] = l
	return nil
}

func (f *fakeCheckins) DeleteList(_ context.Context, id uint64) error {
	if _, ok := f.lists[id]; !ok {
		return repository.ErrNotFound
	}
	for k := range f.records {
		if k[1] == id {
			return repository.ErrConflict
		}
	}
	delete(f.lists, id)
	return nil
}

func (f *fakeCheckins) Record(_ context.Context, registrantID, listID uint64, _ string) (bool, time.Time, error) {
	k := [2]uint64{registrantID, listID}
	if at, ok := f.records[k]; ok {
		return false, at, nil
	}
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	f.records[k] = at
	return true, at, nil
}

func (f *fakeCheckins) Stats(context.Context) (model.CheckinStats, error) {
	return model.CheckinStats{Eligible: 10, CheckedIn: len(f.records), Remaining: 10 - len(f.records)}, nil
}

func (f *fakeCheckins) ListStats(_ context.Context, l model.CheckinList) (model.CheckinStats, error) {
	n := 0
	for k := range f.records {
		if k[1] == l.ID {
			n++
		}
	}
	return model.CheckinStats{Eligible: 10, CheckedIn: n, Remaining: 10 - n}, nil
}

func (f *fakeCheckins) Records(_ context.Context, listID uint64, limit, offset int) ([]model.CheckinRecord, int, error) {
	return []model.CheckinRecord{}, 0, nil
}

func (f *fakeCheckins) CancelRecord(_ context.Context, listID, recordID uint64) error {
	return repository.ErrNotFound
}

type fakePublisher struct {
	events []queue.CheckinRecordedEvent
}

func (f *fakePublisher) PublishCheckinRecorded(_ context.Context, ev queue.CheckinRecordedEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeUsers struct {
	users map[string]model.User
}

func newFakeUsers(t interface{ Fatal(...any) }, email, password, role string) *fakeUsers {
	hash, err := utils.HashPassword(password, 4)
	if err != nil {
		t.Fatal(err)
	}
	return &fakeUsers{users: map[string]model.User{
		email: {ID: 1, Email: email, PasswordHash: hash, Role: role, IsActive: true},
	}}
}

func (f *fakeUsers) Create(_ context.Context, email, password, role string, cost int) (uint64, error) {
	if _, ok := f.users[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := uint64(len(f.users) + 1)
	f.users[email] = model.User{ID: id, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	return id, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) SetActive(_ context.Context, id uint64, active bool) error {
	for email, u := range f.users {
		if u.ID == id {
			u.IsActive = active
			f.users[email] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeTokens struct {
	live map[string]uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	f.live[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	uid, ok := f.live[hash]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return uid, nil
}

func (f *fakeTokens) Rotate(_ context.Context, oldHash string, userID uint64, newHash string, _ time.Time) error {
	if _, ok := f.live[oldHash]; !ok {
		return repository.ErrConflict
	}
	delete(f.live, oldHash)
	f.live[newHash] = userID
	return nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.live, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	for h, uid := range f.live {
		if uid == userID {
			delete(f.live, h)
		}
	}
	return nil
}
