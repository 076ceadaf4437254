package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/internal/classifier"
	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/ics"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
	"github.com/oumizumi/Kairo-sub002/internal/service"
	pkgerrors "github.com/oumizumi/Kairo-sub002/pkg/errors"
	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	"github.com/oumizumi/Kairo-sub002/pkg/llm"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.TokenResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	guestResult    *dto.TokenResponse
	guestErr       error
	refreshResult  *dto.TokenResponse
	refreshErr     error
	refreshGot     string
	logoutErr      error
	logoutRefresh  string
	meResult       *dto.UserResponse
	meErr          error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) GuestLogin(_ context.Context) (*dto.TokenResponse, error) {
	return m.guestResult, m.guestErr
}
func (m *mockAuthService) Refresh(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshGot = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ *jwt.Claims, refreshToken string) error {
	m.logoutRefresh = refreshToken
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	listResult   []dto.CalendarEventResponse
	eventResult  *dto.CalendarEventResponse
	err          error
	bulkResult   *dto.BulkCreateResponse
	clearResult  *dto.ClearCalendarResponse
	clearGot     *dto.ClearCalendarRequest
	exportResult *dto.ExportCalendarResponse
}

func (m *mockCalendarService) List(_ context.Context, _ string) ([]dto.CalendarEventResponse, error) {
	return m.listResult, m.err
}
func (m *mockCalendarService) Get(_ context.Context, _, _ string) (*dto.CalendarEventResponse, error) {
	return m.eventResult, m.err
}
func (m *mockCalendarService) Create(_ context.Context, _ string, _ *dto.CalendarEventRequest) (*dto.CalendarEventResponse, error) {
	return m.eventResult, m.err
}
func (m *mockCalendarService) Update(_ context.Context, _, _ string, _ *dto.UpdateCalendarEventRequest) (*dto.CalendarEventResponse, error) {
	return m.eventResult, m.err
}
func (m *mockCalendarService) Delete(_ context.Context, _, _ string) error {
	return m.err
}
func (m *mockCalendarService) BulkCreate(_ context.Context, _ string, _ []dto.CalendarEventRequest) (*dto.BulkCreateResponse, error) {
	return m.bulkResult, m.err
}
func (m *mockCalendarService) Clear(_ context.Context, _ string, req *dto.ClearCalendarRequest) (*dto.ClearCalendarResponse, error) {
	m.clearGot = req
	return m.clearResult, m.err
}
func (m *mockCalendarService) Export(_ context.Context, _ string) (*dto.ExportCalendarResponse, error) {
	return m.exportResult, m.err
}

// ── Mock ScheduleService ──

type mockScheduleService struct {
	result      *dto.GenerateScheduleResponse
	err         error
	resetResult *dto.ResetResponse
	resetUser   string
}

func (m *mockScheduleService) Generate(_ context.Context, _ string, _ *dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	return m.result, m.err
}
func (m *mockScheduleService) Reset(_ context.Context, userID string) *dto.ResetResponse {
	m.resetUser = userID
	return m.resetResult
}

// ── Mock AIService ──

type mockAIService struct {
	result *classifier.ClassifyResponse
	err    error
}

func (m *mockAIService) Classify(_ context.Context, _ *dto.ClassifyRequest) (*classifier.ClassifyResponse, error) {
	return m.result, m.err
}

// ── Mock ShareService ──

type mockShareService struct {
	result    *dto.ShareResponse
	err       error
	createGot *dto.CreateShareRequest
}

func (m *mockShareService) Create(_ context.Context, _ string, req *dto.CreateShareRequest) (*dto.ShareResponse, error) {
	m.createGot = req
	return m.result, m.err
}
func (m *mockShareService) Get(_ context.Context, _ string) (*dto.ShareResponse, error) {
	return m.result, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	icsBody      string
	buf          *bytes.Buffer
	err          error
	importResult *dto.BulkCreateResponse
	imported     string
}

func (m *mockExportService) ExportICS(_ context.Context, _ string) (string, error) {
	return m.icsBody, m.err
}
func (m *mockExportService) ExportXLSX(_ context.Context, _ string) (*bytes.Buffer, error) {
	return m.buf, m.err
}
func (m *mockExportService) ImportICS(_ context.Context, _ string, r io.Reader) (*dto.BulkCreateResponse, error) {
	b, _ := io.ReadAll(r)
	m.imported = string(b)
	return m.importResult, m.err
}

// ── Mock ProgramService ──

type mockProgramService struct {
	programs   []curriculum.Program
	match      *dto.ProgramMatchResponse
	curriculum *dto.CurriculumResponse
	offering   *offering.CourseGrouped
	err        error
}

func (m *mockProgramService) List(_ context.Context) ([]curriculum.Program, error) {
	return m.programs, m.err
}
func (m *mockProgramService) Match(_ context.Context, _ string) (*dto.ProgramMatchResponse, error) {
	return m.match, m.err
}
func (m *mockProgramService) Curriculum(_ context.Context, _ string) (*dto.CurriculumResponse, error) {
	return m.curriculum, m.err
}
func (m *mockProgramService) Offering(_ context.Context, _, _ string) (*offering.CourseGrouped, error) {
	return m.offering, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	c.Set(ContextUserID, "test-user-id")
}

func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, path, route string, h gin.HandlerFunc, body io.Reader) *httptest.ResponseRecorder {
	_, _, w := setupGin()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

func sampleEvent() dto.CalendarEventRequest {
	return dto.CalendarEventRequest{
		Title:     "CSI2110 Lecture",
		StartTime: "10:00",
		EndTime:   "11:30",
		DayOfWeek: "Monday",
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, 24*time.Hour)

	w := serve("POST", "/auth/login", "/auth/login", h.Login, jsonBody(dto.LoginRequest{
		Username: "alice",
		Password: "Secret123",
	}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			found = true
			if c.Value != "test-refresh-token" {
				t.Errorf("expected cookie value test-refresh-token, got %s", c.Value)
			}
			if !c.HttpOnly {
				t.Error("expected refresh cookie to be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_GuestLogin_Success(t *testing.T) {
	mock := &mockAuthService{
		guestResult: &dto.TokenResponse{
			AccessToken:  "guest-access",
			RefreshToken: "guest-refresh",
			ExpiresIn:    900,
			User:         dto.UserResponse{ID: "user-1", Username: "guest_0a1b2c3d", IsGuest: true},
		},
	}
	h := NewAuthHandler(mock, 24*time.Hour)

	w := serve("POST", "/auth/guest-login/", "/auth/guest-login/", h.GuestLogin, nil)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"is_guest":true`) {
		t.Errorf("expected is_guest in body, got %s", w.Body.String())
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			found = true
			if c.Value != "guest-refresh" {
				t.Errorf("expected cookie value guest-refresh, got %s", c.Value)
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_GuestLogin_Error(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{guestErr: fmt.Errorf("insert failed")}, time.Hour)

	w := serve("POST", "/auth/guest-login/", "/auth/guest-login/", h.GuestLogin, nil)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("expected no cookie on failure")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, time.Hour)

	w := serve("POST", "/auth/login", "/auth/login", h.Login, strings.NewReader("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Errors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized, 11001},
		{service.ErrUsernameTaken, http.StatusConflict, 11002},
		{service.ErrEmailTaken, http.StatusConflict, 11003},
		{service.ErrUserNotFound, http.StatusNotFound, 11005},
		{fmt.Errorf("db down"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{registerErr: tt.err}, time.Hour)
			w := serve("POST", "/auth/register", "/auth/register", h.Register, jsonBody(dto.RegisterRequest{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "Secret123",
			}))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, time.Hour)

	w := serve("POST", "/auth/register", "/auth/register", h.Register, jsonBody(dto.RegisterRequest{
		Username: "al",
		Password: "short",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 || resp.Details == "" {
		t.Errorf("expected code 10001 with details, got %d %q", resp.Code, resp.Details)
	}
}

func TestAuthHandler_Register_Created(t *testing.T) {
	mock := &mockAuthService{registerResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}}
	h := NewAuthHandler(mock, time.Hour)

	w := serve("POST", "/auth/register", "/auth/register", h.Register, jsonBody(dto.RegisterRequest{
		Username: "alice",
		Password: "Secret123",
	}))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, time.Hour)

	w := serve("POST", "/auth/refresh", "/auth/refresh", h.RefreshToken, jsonBody(map[string]string{}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, time.Hour)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshGot != "cookie-refresh" {
		t.Errorf("expected cookie token to be used, got %q", mock.refreshGot)
	}
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken}, time.Hour)

	w := serve("POST", "/auth/refresh", "/auth/refresh", h.RefreshToken, jsonBody(dto.RefreshTokenRequest{RefreshToken: "x"}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11004 {
		t.Errorf("expected code 11004, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, time.Hour)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/logout", withAuth(h.Logout))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutRefresh != "cookie-refresh" {
		t.Errorf("expected cookie refresh token to be revoked, got %q", mock.logoutRefresh)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.MaxAge >= 0 {
			t.Errorf("expected refresh cookie to be expired, max-age %d", c.MaxAge)
		}
	}
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{meResult: &dto.UserResponse{ID: "test-user-id", Username: "alice"}}, time.Hour)

	w := serve("GET", "/auth/me", "/auth/me", withAuth(h.Me), nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve("GET", "/auth/me", "/auth/me", h.Me, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without auth, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10002 {
		t.Errorf("expected code 10002, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CalendarHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCalendarHandler_Create(t *testing.T) {
	mock := &mockCalendarService{eventResult: &dto.CalendarEventResponse{ID: "event-1", Title: "CSI2110 Lecture", Version: 1}}
	h := NewCalendarHandler(mock)

	w := serve("POST", "/user-calendar/", "/user-calendar/", withAuth(h.Create), jsonBody(sampleEvent()))

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestCalendarHandler_Create_BadTime(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})
	ev := sampleEvent()
	ev.StartTime = "ten o'clock"

	w := serve("POST", "/user-calendar/", "/user-calendar/", withAuth(h.Create), jsonBody(ev))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("expected code 10001, got %d", resp.Code)
	}
}

func TestCalendarHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"not found", service.ErrEventNotFound, http.StatusNotFound, 12001},
		{"time range", service.ErrInvalidTimeRange, http.StatusBadRequest, 12002},
		{"day required", service.ErrDayRequired, http.StatusBadRequest, 12002},
		{"conflict", pkgerrors.ErrVersionConflict, http.StatusConflict, 12003},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCalendarHandler(&mockCalendarService{err: tt.err})
			w := serve("PATCH", "/user-calendar/event-1/", "/user-calendar/:id/", withAuth(h.Update), jsonBody(map[string]string{"title": "x"}))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestCalendarHandler_Delete(t *testing.T) {
	h := NewCalendarHandler(&mockCalendarService{})

	w := serve("DELETE", "/user-calendar/event-1/", "/user-calendar/:id/", withAuth(h.Delete), nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCalendarHandler_BulkCreate(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		mock := &mockCalendarService{bulkResult: &dto.BulkCreateResponse{TotalCreated: 1, TotalErrors: 1}}
		h := NewCalendarHandler(mock)

		w := serve("POST", "/bulk", "/bulk", withAuth(h.BulkCreate), jsonBody(dto.BulkCreateRequest{
			Events: []dto.CalendarEventRequest{sampleEvent(), sampleEvent()},
		}))
		if w.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", w.Code)
		}
	})

	t.Run("nothing created", func(t *testing.T) {
		mock := &mockCalendarService{bulkResult: &dto.BulkCreateResponse{TotalErrors: 1}}
		h := NewCalendarHandler(mock)

		w := serve("POST", "/bulk", "/bulk", withAuth(h.BulkCreate), jsonBody(dto.BulkCreateRequest{
			Events: []dto.CalendarEventRequest{sampleEvent()},
		}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if resp := parseResponse(w); resp.Code != 12004 {
			t.Errorf("expected code 12004, got %d", resp.Code)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		h := NewCalendarHandler(&mockCalendarService{})

		w := serve("POST", "/bulk", "/bulk", withAuth(h.BulkCreate), jsonBody(dto.BulkCreateRequest{}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestCalendarHandler_Clear_Query(t *testing.T) {
	mock := &mockCalendarService{clearResult: &dto.ClearCalendarResponse{DeletedCount: 3}}
	h := NewCalendarHandler(mock)

	w := serve("DELETE", "/clear?start_date=2025-09-01&end_date=2025-12-31", "/clear", withAuth(h.Clear), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.clearGot.StartDate != "2025-09-01" || mock.clearGot.EndDate != "2025-12-31" {
		t.Errorf("unexpected range %+v", mock.clearGot)
	}

	w = serve("DELETE", "/clear?start_date=09/01/2025", "/clear", withAuth(h.Clear), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a malformed date, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ScheduleHandler / AIHandler Tests
// ═══════════════════════════════════════════════════════════

func TestScheduleHandler_Generate(t *testing.T) {
	tests := []struct {
		name       string
		mock       *mockScheduleService
		body       interface{}
		wantStatus int
		wantCode   int
	}{
		{
			name: "success",
			mock: &mockScheduleService{result: &dto.GenerateScheduleResponse{
				Result: &planner.Result{Success: true, Message: "Generated 4 events"},
			}},
			body:       dto.GenerateScheduleRequest{Message: "second year computer science fall"},
			wantStatus: http.StatusOK,
			wantCode:   0,
		},
		{
			name: "nothing generated",
			mock: &mockScheduleService{result: &dto.GenerateScheduleResponse{
				Result: &planner.Result{Message: "I couldn't tell which program you're in"},
			}},
			body:       dto.GenerateScheduleRequest{Message: "hello"},
			wantStatus: http.StatusOK,
			wantCode:   13002,
		},
		{
			name:       "data unavailable",
			mock:       &mockScheduleService{err: service.ErrCurriculumUnavailable},
			body:       dto.GenerateScheduleRequest{Program: "csi"},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   13003,
		},
		{
			name:       "empty request",
			mock:       &mockScheduleService{},
			body:       dto.GenerateScheduleRequest{},
			wantStatus: http.StatusBadRequest,
			wantCode:   13001,
		},
		{
			name:       "year out of range",
			mock:       &mockScheduleService{},
			body:       dto.GenerateScheduleRequest{Program: "csi", Year: 9},
			wantStatus: http.StatusBadRequest,
			wantCode:   10001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewScheduleHandler(tt.mock)
			w := serve("POST", "/schedule/generate/", "/schedule/generate/", withAuth(h.Generate), jsonBody(tt.body))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAIHandler_Classify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"success", nil, http.StatusOK, 0},
		{"prompt required", service.ErrPromptRequired, http.StatusBadRequest, 15001},
		{"not configured", llm.ErrNotConfigured, http.StatusInternalServerError, 15002},
		{"unavailable", llm.ErrUnavailable, http.StatusServiceUnavailable, 15003},
		{"rate limited", llm.ErrRateLimited, http.StatusTooManyRequests, 15004},
		{"upstream", fmt.Errorf("%w: status 500", llm.ErrUpstream), http.StatusBadGateway, 15005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAIService{
				result: &classifier.ClassifyResponse{Classification: json.RawMessage(`{"type":"schedule"}`), Model: "gemini-2.0-flash"},
				err:    tt.err,
			}
			h := NewAIHandler(mock, &mockScheduleService{})
			w := serve("POST", "/ai/classify/", "/ai/classify/", h.Classify, jsonBody(dto.ClassifyRequest{Message: "make me a schedule", Prompt: "classify"}))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAIHandler_Reset(t *testing.T) {
	sched := &mockScheduleService{resetResult: &dto.ResetResponse{Message: "Conversation reset", HistoryCleared: 2, SessionCleared: true}}
	h := NewAIHandler(&mockAIService{}, sched)

	w := serve("POST", "/ai/reset/", "/ai/reset/", withAuth(h.Reset), nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if sched.resetUser != "test-user-id" {
		t.Errorf("expected reset for test-user-id, got %q", sched.resetUser)
	}
}

// ═══════════════════════════════════════════════════════════
// ShareHandler Tests
// ═══════════════════════════════════════════════════════════

func TestShareHandler_Create_EmptyBody(t *testing.T) {
	mock := &mockShareService{result: &dto.ShareResponse{ID: "abc", ShareURL: "https://kairoo.ca/schedule/abc"}}
	h := NewShareHandler(mock)

	w := serve("POST", "/shared-schedules/", "/shared-schedules/", withAuth(h.Create), nil)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.createGot == nil || len(mock.createGot.Events) != 0 {
		t.Errorf("expected an empty request, got %+v", mock.createGot)
	}
}

func TestShareHandler_Errors(t *testing.T) {
	h := NewShareHandler(&mockShareService{err: service.ErrNothingToShare})
	w := serve("POST", "/shared-schedules/", "/shared-schedules/", withAuth(h.Create), jsonBody(dto.CreateShareRequest{Title: "Fall"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17002 {
		t.Errorf("expected code 17002, got %d", resp.Code)
	}

	h = NewShareHandler(&mockShareService{err: service.ErrShareNotFound})
	w = serve("GET", "/schedule/missing/", "/schedule/:id/", h.Get, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 17001 {
		t.Errorf("expected code 17001, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportICS(t *testing.T) {
	h := NewExportHandler(&mockExportService{icsBody: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"})

	w := serve("GET", "/calendar/export/ics/", "/calendar/export/ics/", withAuth(h.ExportICS), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "kairo_schedule.ics") {
		t.Errorf("expected attachment filename, got %s", cd)
	}
}

func TestExportHandler_ExportXLSX(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("PK fake xlsx")})

	w := serve("GET", "/calendar/export/xlsx/", "/calendar/export/xlsx/", withAuth(h.ExportXLSX), nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxMIME {
		t.Errorf("expected xlsx content type, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("expected RFC 5987 filename, got %s", cd)
	}
}

func TestExportHandler_ExportXLSX_NoEvents(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportNoEvents})

	w := serve("GET", "/calendar/export/xlsx/", "/calendar/export/xlsx/", withAuth(h.ExportXLSX), nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16001 {
		t.Errorf("expected code 16001, got %d", resp.Code)
	}
}

func multipartICS(t *testing.T, field, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "schedule.ics")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func importRequest(h *ExportHandler, body io.Reader, contentType string) *httptest.ResponseRecorder {
	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/calendar/import/ics/", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/calendar/import/ics/", withAuth(h.ImportICS))
	r.ServeHTTP(w, req)
	return w
}

func TestExportHandler_ImportICS(t *testing.T) {
	mock := &mockExportService{importResult: &dto.BulkCreateResponse{TotalCreated: 2}}
	h := NewExportHandler(mock)

	body, ct := multipartICS(t, "file", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	w := importRequest(h, body, ct)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if !strings.HasPrefix(mock.imported, "BEGIN:VCALENDAR") {
		t.Errorf("expected the upload to reach the service, got %q", mock.imported)
	}
}

func TestExportHandler_ImportICS_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		h := NewExportHandler(&mockExportService{})
		body, ct := multipartICS(t, "upload", "x")
		w := importRequest(h, body, ct)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})

	t.Run("invalid calendar", func(t *testing.T) {
		h := NewExportHandler(&mockExportService{err: fmt.Errorf("%w: bad line", ics.ErrInvalidCalendar)})
		body, ct := multipartICS(t, "file", "hello")
		w := importRequest(h, body, ct)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if resp := parseResponse(w); resp.Code != 16004 {
			t.Errorf("expected code 16004, got %d", resp.Code)
		}
	})

	t.Run("no events", func(t *testing.T) {
		h := NewExportHandler(&mockExportService{err: service.ErrImportEmpty})
		body, ct := multipartICS(t, "file", "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
		w := importRequest(h, body, ct)
		if resp := parseResponse(w); resp.Code != 16003 {
			t.Errorf("expected code 16003, got %d", resp.Code)
		}
	})
}

// ═══════════════════════════════════════════════════════════
// ProgramHandler Tests
// ═══════════════════════════════════════════════════════════

func TestProgramHandler_List(t *testing.T) {
	h := NewProgramHandler(&mockProgramService{programs: []curriculum.Program{{ID: "csi", Name: "Computer Science"}}})

	w := serve("GET", "/programs/", "/programs/", h.List, nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestProgramHandler_Match_RequiresQuery(t *testing.T) {
	h := NewProgramHandler(&mockProgramService{})

	w := serve("GET", "/programs/match/", "/programs/match/", h.Match, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestProgramHandler_Errors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   int
	}{
		{service.ErrTermNotOffered, http.StatusNotFound, 14003},
		{service.ErrCourseNotOffered, http.StatusNotFound, 14004},
		{service.ErrCurriculumUnavailable, http.StatusServiceUnavailable, 14005},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			h := NewProgramHandler(&mockProgramService{err: tt.err})
			w := serve("GET", "/terms/Fall/courses/CSI2110/", "/terms/:term/courses/:code/", h.Offering, nil)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}
