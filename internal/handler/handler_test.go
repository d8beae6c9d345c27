package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-seat-assignment/internal/config"
	"github.com/iliyamo/event-seat-assignment/internal/model"
	"github.com/iliyamo/event-seat-assignment/internal/repository"
	"github.com/iliyamo/event-seat-assignment/internal/seating"
	"github.com/iliyamo/event-seat-assignment/internal/service"
)

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestRegister(t *testing.T) {
	regs := newFakeRegistrants()
	settings := &fakeSettings{open: false}
	h := NewRegistrantHandler(config.Config{}, regs, settings)

	body := `{"user_name":"Kim","phone":"01012345678","birth_date":"990101","ticket_count":2}`
	rec := call(h.Register, http.MethodPost, "/v1/registrants", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	settings.open = true
	rec = call(h.Register, http.MethodPost, "/v1/registrants", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec.Body.Bytes())["id"])

	rec = call(h.Register, http.MethodPost, "/v1/registrants", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(h.Register, http.MethodPost, "/v1/registrants",
		`{"user_name":"Lee","phone":"010-1234-5678","ticket_count":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.Register, http.MethodPost, "/v1/registrants",
		`{"user_name":"Lee","phone":"01099998888","ticket_count":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.Count, http.MethodGet, "/v1/registrants/count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec.Body.Bytes())
	assert.Equal(t, float64(1), m["applications"])
	assert.Equal(t, float64(2), m["tickets"])
}

func TestSeatLookup(t *testing.T) {
	reg := &model.Registrant{
		ID: 1, UserName: "Kim", Phone: "01011112222", TicketCount: 2, IsPaid: true,
		CompanionPhone: strp("01033334444"), CompanionCompleted: true,
		SeatLabel: strp("A-3"), SeatGroup: strp("A"),
		SeatLabel2: strp("A-4"), SeatGroup2: strp("A"),
	}
	regs := newFakeRegistrants(reg, &model.Registrant{ID: 2, Phone: "01055556666", TicketCount: 1})
	loc := time.UTC
	h := NewRegistrantHandler(config.Config{EventDate: "2026-03-01", EventLocation: loc}, regs, &fakeSettings{})

	h.Now = func() time.Time { return time.Date(2026, 2, 28, 23, 59, 0, 0, loc) }
	rec := call(h.Seat, http.MethodGet, "/", "", "phone", "01011112222")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "2026-03-01", decode(t, rec.Body.Bytes())["event_date"])

	h.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, loc) }
	rec = call(h.Seat, http.MethodGet, "/", "", "phone", "01011112222")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A-3", decode(t, rec.Body.Bytes())["seat"])

	rec = call(h.Seat, http.MethodGet, "/", "", "phone", "01033334444")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode(t, rec.Body.Bytes())
	assert.Equal(t, "A-4", m["seat"])
	assert.Equal(t, true, m["as_companion"])

	rec = call(h.Seat, http.MethodGet, "/", "", "phone", "01055556666")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.Seat, http.MethodGet, "/", "", "phone", "01000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetCompanion(t *testing.T) {
	regs := newFakeRegistrants(&model.Registrant{ID: 1, Phone: "01011112222", TicketCount: 2})
	h := NewRegistrantHandler(config.Config{}, regs, &fakeSettings{})

	rec := call(h.SetCompanion, http.MethodPut, "/", `{"companion_name":"Park","companion_phone":"123"}`,
		"phone", "01011112222")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.SetCompanion, http.MethodPut, "/", `{"companion_name":"Park","companion_phone":"01077778888"}`,
		"phone", "01011112222")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(h.Lookup, http.MethodGet, "/", "", "phone", "01077778888")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec.Body.Bytes())["as_companion"])
}

func TestAssignRunUsesActiveConfig(t *testing.T) {
	a := &fakeAssigner{
		catalog: seating.DefaultCatalog(),
		res: &service.AssignResult{
			RunID: "run-1", Policy: seating.PolicyRandom, Groups: []string{"A", "B"},
			AssignedCount: 3, Registrants: 2,
			Assignments: []seating.Assignment{}, Unplaced: []uint64{},
		},
	}
	settings := &fakeSettings{active: &model.SeatGroupConfig{ID: 1, Groups: []string{"A", "B"}}}
	h := NewAdminSeatHandler(a, &fakeSeats{claimed: seating.NewLabelSet()}, settings)

	rec := call(h.AssignRandom, http.MethodPost, "/", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, a.got, 1)
	assert.Equal(t, []string{"A", "B"}, a.got[0].Groups)
	assert.Equal(t, seating.PolicyRandom, a.got[0].Policy)
	m := decode(t, rec.Body.Bytes())
	assert.Equal(t, float64(3), m["assigned_count"])
	assert.Equal(t, "run-1", m["run_id"])

	seed := uint64(42)
	a.res.DryRun = true
	rec = call(h.AssignPriority, http.MethodPost, "/", `{"groups":["c"," d "],"seed":42,"dry_run":true,"rowsPerGroup":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"C", "D"}, a.got[1].Groups)
	assert.Equal(t, seating.PolicyPriority, a.got[1].Policy)
	assert.Equal(t, &seed, a.got[1].Seed)
	assert.True(t, a.got[1].DryRun)
}

func TestAssignRunErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"capacity", &seating.CapacityError{Free: 8, Needed: 10}, http.StatusBadRequest, CodeInsufficientSeats},
		{"pairing", &seating.PairingError{RequestID: 5}, http.StatusBadRequest, CodePairingExhausted},
		{"locked", service.ErrAssignmentInProgress, http.StatusConflict, ""},
		{"store", repository.ErrSeatTaken, http.StatusConflict, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &fakeAssigner{catalog: seating.DefaultCatalog(), err: tc.err}
			h := NewAdminSeatHandler(a, &fakeSeats{}, &fakeSettings{})
			rec := call(h.AssignRandom, http.MethodPost, "/", `{"groups":["A"]}`)
			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				m := decode(t, rec.Body.Bytes())
				assert.Equal(t, "insufficient seats", m["error"])
				assert.Equal(t, tc.code, m["code"])
			}
		})
	}

	h := NewAdminSeatHandler(&fakeAssigner{}, &fakeSeats{}, &fakeSettings{})
	rec := call(h.AssignRandom, http.MethodPost, "/", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h.AssignRandom, http.MethodPost, "/", `{"groups":["A-1"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetRequiresConfirmToken(t *testing.T) {
	h := NewAdminSeatHandler(&fakeAssigner{}, &fakeSeats{}, &fakeSettings{})

	rec := call(h.ResetSeats, http.MethodPost, "/", `{"confirm":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.ResetSeats, http.MethodPost, "/", `{"confirm":"RESET_ALL_SEATS"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec.Body.Bytes())["cleared"])

	rec = call(h.ResetSeatsAndPayment, http.MethodPost, "/", `{"confirm":"RESET_ALL_SEATS"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h.ResetSeatsAndPayment, http.MethodPost, "/", `{"confirm":"RESET_SEATS_AND_PAYMENT"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestManualSeat(t *testing.T) {
	seats := &fakeSeats{claimed: seating.NewLabelSet("A-2")}
	a := &fakeAssigner{catalog: seating.NewCatalog(map[string]int{"A": 3}, 3)}
	h := NewAdminSeatHandler(a, seats, &fakeSettings{})

	rec := call(h.AssignSeat, http.MethodPut, "/", `{"seat":"a-1"}`, "id", "4")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, seats.manual, 1)
	assert.Equal(t, repository.SlotPrimary, seats.manual[0].slot)
	assert.Equal(t, "A-1", seats.manual[0].seat.Label())

	rec = call(h.AssignSeat, http.MethodPut, "/", `{"seat":"A-4","slot":2}`, "id", "4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.AssignSeat, http.MethodPut, "/", `{"seat":"A-2"}`, "id", "4")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = call(h.AssignSeat, http.MethodPut, "/", `{"seat":"nope"}`, "id", "4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// groups without a configured capacity take the default, as in a run
	rec = call(h.AssignSeat, http.MethodPut, "/", `{"seat":"z-3"}`, "id", "4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Z-3", seats.manual[len(seats.manual)-1].seat.Label())
	rec = call(h.AssignSeat, http.MethodPut, "/", `{"seat":"Z-4"}`, "id", "4")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.ClearSeat, http.MethodDelete, "/?slot=2", "", "id", "4")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{2}, seats.cleared)

	rec = call(h.SeatMap, http.MethodGet, "/?groups=A", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Groups []groupUsage `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []groupUsage{{Group: "A", Capacity: 3, Taken: 1, Free: 2}}, out.Groups)
}

func TestAdminRegistrants(t *testing.T) {
	regs := newFakeRegistrants(&model.Registrant{ID: 1, Phone: "01011112222", TicketCount: 1, SeatLabel: strp("A-1")})
	purged := 0
	h := NewAdminRegistrantHandler(regs, func(ctx context.Context) { purged++ })

	rec := call(h.SetPaid, http.MethodPatch, "/", `{}`, "id", "1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h.SetPaid, http.MethodPatch, "/", `{"is_paid":true}`, "id", "1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, regs.byID[1].IsPaid)

	rec = call(h.Delete, http.MethodDelete, "/", "", "id", "1")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, regs.byID[1].SeatLabel)
	assert.Equal(t, 1, purged)

	rec = call(h.Delete, http.MethodDelete, "/", "", "id", "1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(h.Restore, http.MethodPost, "/", "", "id", "1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(h.Get, http.MethodGet, "/", "", "id", "x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.List, http.MethodGet, "/?paid=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec.Body.Bytes())["total"])
}

func TestSettings(t *testing.T) {
	settings := &fakeSettings{}
	purged := 0
	h := NewSettingsHandler(settings, seating.NewCatalog(map[string]int{"A": 10}, 5), func(ctx context.Context) { purged++ })

	rec := call(h.SetRegistration, http.MethodPut, "/", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(h.SetRegistration, http.MethodPut, "/", `{"open":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, settings.open)
	assert.Equal(t, 1, purged)

	rec = call(h.GetSeatConfig, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec.Body.Bytes())["groups"])

	rec = call(h.SaveSeatConfig, http.MethodPost, "/", `{"groups":["a","B","a"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decode(t, rec.Body.Bytes())
	assert.Equal(t, []any{"A", "B"}, m["groups"])
	assert.Equal(t, float64(15), m["total_seats"])
	assert.Equal(t, 2, purged)

	rec = call(h.SaveSeatConfig, http.MethodPost, "/", `{"groups":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(h.SeatConfigHistory, http.MethodGet, "/?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec.Body.Bytes())["items"], 1)
}
