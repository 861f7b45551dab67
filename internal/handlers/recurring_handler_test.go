package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/recurrence"
	"moneta/internal/recurring"
	"moneta/internal/services"
)

type mockRecurringService struct {
	createFn  func(workspaceID, userID string, in services.CreateRecurringInput) (recurring.RecurringTransaction, error)
	listFn    func(workspaceID string, status *recurring.Status, page pagination.PageRequest) (*pagination.PageResponse[recurring.Primitives], error)
	getFn     func(workspaceID, id string) (recurring.RecurringTransaction, error)
	updateFn  func(workspaceID, id string, in services.UpdateRecurringInput) (recurring.RecurringTransaction, error)
	pauseFn   func(workspaceID, id string) (recurring.RecurringTransaction, error)
	resumeFn  func(workspaceID, id string) (recurring.RecurringTransaction, error)
	archiveFn func(workspaceID, id string) (recurring.RecurringTransaction, error)
	previewFn func(workspaceID, id string, n int) ([]time.Time, error)
}

func (m *mockRecurringService) CreateRecurring(_ context.Context, workspaceID, userID string, in services.CreateRecurringInput) (recurring.RecurringTransaction, error) {
	if m.createFn != nil {
		return m.createFn(workspaceID, userID, in)
	}
	return sampleRecurring(nil), nil
}

func (m *mockRecurringService) GetWorkspaceRecurring(_ context.Context, workspaceID string, status *recurring.Status, page pagination.PageRequest) (*pagination.PageResponse[recurring.Primitives], error) {
	if m.listFn != nil {
		return m.listFn(workspaceID, status, page)
	}
	resp := pagination.NewPageResponse([]recurring.Primitives{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockRecurringService) GetRecurringByID(_ context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	if m.getFn != nil {
		return m.getFn(workspaceID, id)
	}
	return sampleRecurring(nil), nil
}

func (m *mockRecurringService) UpdateRecurring(_ context.Context, workspaceID, id string, in services.UpdateRecurringInput) (recurring.RecurringTransaction, error) {
	if m.updateFn != nil {
		return m.updateFn(workspaceID, id, in)
	}
	return sampleRecurring(nil), nil
}

func (m *mockRecurringService) PauseRecurring(_ context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	if m.pauseFn != nil {
		return m.pauseFn(workspaceID, id)
	}
	return sampleRecurring(nil).Pause(time.Now())
}

func (m *mockRecurringService) ResumeRecurring(_ context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	if m.resumeFn != nil {
		return m.resumeFn(workspaceID, id)
	}
	return sampleRecurring(nil), nil
}

func (m *mockRecurringService) ArchiveRecurring(_ context.Context, workspaceID, id string) (recurring.RecurringTransaction, error) {
	if m.archiveFn != nil {
		return m.archiveFn(workspaceID, id)
	}
	return sampleRecurring(nil).Archive(time.Now()), nil
}

func (m *mockRecurringService) PreviewRecurring(_ context.Context, workspaceID, id string, n int) ([]time.Time, error) {
	if m.previewFn != nil {
		return m.previewFn(workspaceID, id, n)
	}
	return []time.Time{}, nil
}

var _ services.RecurringServicer = (*mockRecurringService)(nil)

// sampleRecurring builds a monthly expense on the 10th starting Jan 10 2025.
func sampleRecurring(end *time.Time) recurring.RecurringTransaction {
	day := 10
	rt, err := recurring.New(recurring.Params{
		ID:          testResourceID,
		WorkspaceID: testWorkspaceID,
		AccountID:   testResourceID,
		CategoryID:  testResourceID,
		Type:        "expense",
		Amount:      120000,
		Currency:    "MYR",
		Schedule:    recurrence.MustSchedule(recurrence.ScheduleParams{Frequency: "monthly", Interval: 1, DayOfMonth: &day}),
		StartDate:   time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     end,
		CreatedBy:   testUserID,
	})
	if err != nil {
		panic(err)
	}
	return rt
}

func setupRecurringRouter(handler *RecurringHandler) *gin.Engine {
	r := gin.New()
	ws := r.Group("/workspaces/:workspaceId/recurring-transactions", injectScope(testUserID, testWorkspaceID))
	ws.POST("", handler.CreateRecurring)
	ws.GET("", handler.GetWorkspaceRecurring)
	ws.GET("/:id", handler.GetRecurringByID)
	ws.PUT("/:id", handler.UpdateRecurring)
	ws.POST("/:id/pause", handler.PauseRecurring)
	ws.POST("/:id/resume", handler.ResumeRecurring)
	ws.POST("/:id/archive", handler.ArchiveRecurring)
	ws.GET("/:id/preview", handler.PreviewRecurring)
	return r
}

const recurringPath = "/workspaces/" + testWorkspaceID + "/recurring-transactions"

func TestRecurringHandler_CreateRecurring(t *testing.T) {
	t.Run("returns 201 with primitives", func(t *testing.T) {
		var got services.CreateRecurringInput
		svc := &mockRecurringService{
			createFn: func(_, _ string, in services.CreateRecurringInput) (recurring.RecurringTransaction, error) {
				got = in
				return sampleRecurring(nil), nil
			},
		}
		audit := &mockAuditService{}
		r := setupRecurringRouter(NewRecurringHandler(svc, audit))

		rec := doRequest(r, "POST", recurringPath, `{
			"account_id":"`+testResourceID+`",
			"category_id":"`+testResourceID+`",
			"type":"expense",
			"amount":120000,
			"frequency":"monthly",
			"day_of_month":10,
			"start_date":"2025-01-10"
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Schedule.Interval != 1 {
			t.Errorf("expected default interval 1, got %d", got.Schedule.Interval)
		}
		if got.Schedule.DayOfMonth == nil || *got.Schedule.DayOfMonth != 10 || got.Schedule.Frequency != "monthly" {
			t.Errorf("unexpected schedule %+v", got.Schedule)
		}
		if !got.StartDate.Equal(time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)) || got.EndDate != nil {
			t.Errorf("unexpected dates start=%s end=%v", got.StartDate, got.EndDate)
		}

		body := parseJSON(t, rec)["recurring_transaction"].(map[string]interface{})
		if body["status"] != "active" || body["frequency"] != "monthly" {
			t.Errorf("unexpected body %v", body)
		}
		if body["next_run_date"] != "2025-01-10T00:00:00Z" {
			t.Errorf("unexpected next_run_date %v", body["next_run_date"])
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_RECURRING" {
			t.Errorf("unexpected audit entries %v", audit.entries)
		}
	})

	t.Run("passes explicit interval and end date", func(t *testing.T) {
		var got services.CreateRecurringInput
		svc := &mockRecurringService{
			createFn: func(_, _ string, in services.CreateRecurringInput) (recurring.RecurringTransaction, error) {
				got = in
				return sampleRecurring(in.EndDate), nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", recurringPath, `{
			"account_id":"`+testResourceID+`","category_id":"`+testResourceID+`",
			"type":"income","amount":500,"frequency":"weekly","interval":2,"day_of_week":1,
			"start_date":"2025-01-06T00:00:00Z","end_date":"2025-06-30"
		}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Schedule.Interval != 2 || got.Schedule.DayOfWeek == nil || *got.Schedule.DayOfWeek != 1 {
			t.Errorf("unexpected schedule %+v", got.Schedule)
		}
		if got.EndDate == nil || !got.EndDate.Equal(time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected end date %v", got.EndDate)
		}
	})

	serviceErrors := []struct {
		name string
		err  *apperrors.AppError
	}{
		{"frequency", apperrors.ErrInvalidFrequency},
		{"interval", apperrors.ErrInvalidInterval},
		{"schedule", apperrors.ErrInvalidSchedule},
		{"date range", apperrors.ErrInvalidDateRange},
		{"type", apperrors.ErrInvalidRecurringType},
	}
	for _, tt := range serviceErrors {
		t.Run("surfaces invalid "+tt.name, func(t *testing.T) {
			svc := &mockRecurringService{
				createFn: func(string, string, services.CreateRecurringInput) (recurring.RecurringTransaction, error) {
					return recurring.RecurringTransaction{}, tt.err
				},
			}
			r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

			rec := doRequest(r, "POST", recurringPath, `{
				"account_id":"`+testResourceID+`","category_id":"`+testResourceID+`",
				"type":"expense","amount":1,"frequency":"monthly","start_date":"2025-01-01"
			}`)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tt.err.Code)
		})
	}

	t.Run("returns 400 on missing start date", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", recurringPath, `{
			"account_id":"`+testResourceID+`","category_id":"`+testResourceID+`",
			"type":"expense","amount":1,"frequency":"monthly"
		}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestRecurringHandler_GetWorkspaceRecurring(t *testing.T) {
	t.Run("passes status filter", func(t *testing.T) {
		var got *recurring.Status
		svc := &mockRecurringService{
			listFn: func(_ string, status *recurring.Status, page pagination.PageRequest) (*pagination.PageResponse[recurring.Primitives], error) {
				got = status
				resp := pagination.NewPageResponse([]recurring.Primitives{sampleRecurring(nil).ToPrimitives()}, 1, 20, 1)
				return &resp, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", recurringPath+"?status=paused", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got == nil || *got != recurring.StatusPaused {
			t.Errorf("expected paused filter, got %v", got)
		}
		if data := parseJSON(t, rec)["data"].([]interface{}); len(data) != 1 {
			t.Errorf("expected 1 item, got %d", len(data))
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", recurringPath+"?status=deleted", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_GetRecurringByID(t *testing.T) {
	svc := &mockRecurringService{
		getFn: func(_, _ string) (recurring.RecurringTransaction, error) {
			return recurring.RecurringTransaction{}, apperrors.ErrRecurringNotFound
		},
	}
	r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", recurringPath+"/"+testResourceID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "RECURRING_TRANSACTION_NOT_FOUND")
}

func TestRecurringHandler_UpdateRecurring(t *testing.T) {
	t.Run("builds schedule patch", func(t *testing.T) {
		var got services.UpdateRecurringInput
		svc := &mockRecurringService{
			updateFn: func(_, _ string, in services.UpdateRecurringInput) (recurring.RecurringTransaction, error) {
				got = in
				return sampleRecurring(nil), nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", recurringPath+"/"+testResourceID, `{"day_of_month":20,"clear_end_date":true}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Schedule == nil || got.Schedule.DayOfMonth == nil || *got.Schedule.DayOfMonth != 20 {
			t.Errorf("expected day_of_month patch, got %+v", got.Schedule)
		}
		if got.Schedule.Frequency != nil || got.Amount != nil || !got.ClearEndDate {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("no schedule patch without schedule fields", func(t *testing.T) {
		var got services.UpdateRecurringInput
		svc := &mockRecurringService{
			updateFn: func(_, _ string, in services.UpdateRecurringInput) (recurring.RecurringTransaction, error) {
				got = in
				return sampleRecurring(nil), nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", recurringPath+"/"+testResourceID, `{"amount":999,"end_date":"2025-12-31"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.Schedule != nil || got.Amount == nil || *got.Amount != 999 || got.EndDate == nil {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("returns 409 when archived", func(t *testing.T) {
		svc := &mockRecurringService{
			updateFn: func(string, string, services.UpdateRecurringInput) (recurring.RecurringTransaction, error) {
				return recurring.RecurringTransaction{}, apperrors.ErrRecurringArchived
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", recurringPath+"/"+testResourceID, `{"amount":1}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECURRING_ARCHIVED")
	})
}

func TestRecurringHandler_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		action     string
		wantStatus string
	}{
		{"pause", "/pause", "PAUSE_RECURRING", "paused"},
		{"resume", "/resume", "RESUME_RECURRING", "active"},
		{"archive", "/archive", "ARCHIVE_RECURRING", "archived"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audit := &mockAuditService{}
			r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, audit))

			rec := doRequest(r, "POST", recurringPath+"/"+testResourceID+tt.path, "")

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			body := parseJSON(t, rec)["recurring_transaction"].(map[string]interface{})
			if body["status"] != tt.wantStatus {
				t.Errorf("expected %s, got %v", tt.wantStatus, body["status"])
			}
			if len(audit.entries) != 1 || audit.entries[0].action != tt.action {
				t.Errorf("unexpected audit entries %v", audit.entries)
			}
		})
	}

	t.Run("pause twice conflicts", func(t *testing.T) {
		svc := &mockRecurringService{
			pauseFn: func(_, _ string) (recurring.RecurringTransaction, error) {
				return recurring.RecurringTransaction{}, apperrors.ErrRecurringAlreadyPaused
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", recurringPath+"/"+testResourceID+"/pause", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "RECURRING_ALREADY_PAUSED")
	})

	t.Run("rejects bad id", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", recurringPath+"/nope/pause", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRecurringHandler_PreviewRecurring(t *testing.T) {
	t.Run("defaults to five", func(t *testing.T) {
		var gotN int
		svc := &mockRecurringService{
			previewFn: func(_, _ string, n int) ([]time.Time, error) {
				gotN = n
				return []time.Time{time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)}, nil
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", recurringPath+"/"+testResourceID+"/preview", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotN != defaultPreviewCount {
			t.Errorf("expected n=%d, got %d", defaultPreviewCount, gotN)
		}
		dates := parseJSON(t, rec)["dates"].([]interface{})
		if len(dates) != 1 || dates[0] != "2025-01-31T00:00:00Z" {
			t.Errorf("unexpected dates %v", dates)
		}
	})

	t.Run("passes n and surfaces bounds errors", func(t *testing.T) {
		svc := &mockRecurringService{
			previewFn: func(_, _ string, n int) ([]time.Time, error) {
				if n > services.MaxPreviewOccurrences {
					return nil, apperrors.ErrInvalidInput
				}
				return nil, errors.New("unexpected")
			},
		}
		r := setupRecurringRouter(NewRecurringHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", recurringPath+"/"+testResourceID+"/preview?n=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects non-numeric n", func(t *testing.T) {
		r := setupRecurringRouter(NewRecurringHandler(&mockRecurringService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", recurringPath+"/"+testResourceID+"/preview?n=many", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
