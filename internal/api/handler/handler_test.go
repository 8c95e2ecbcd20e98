package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"cantine/internal/api/middleware"
	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/internal/service"
	pkgerrors "cantine/pkg/errors"
	"cantine/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

const testEstablishmentID = "7b0d6c1e-3a4f-4e61-9a57-2f1d4f0f8a01"

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
	meResult      *dto.UserResponse
	meErr         error
	changePassErr error

	lastRefresh   string
	lastLogoutJTI string
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.lastRefresh = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.lastLogoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock UserService ──

type mockUserService struct {
	createResult *dto.UserResponse
	createErr    error
	listResult   []dto.UserResponse
	listTotal    int64
	listErr      error
	resetResult  *dto.ResetPasswordResponse
	resetErr     error
	deleteErr    error
}

func (m *mockUserService) CreateUser(_ context.Context, _ *dto.CreateUserRequest, _ string) (*dto.UserResponse, error) {
	return m.createResult, m.createErr
}
func (m *mockUserService) List(_ context.Context, _ *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockUserService) ResetPassword(_ context.Context, _ string, _ string) (*dto.ResetPasswordResponse, error) {
	return m.resetResult, m.resetErr
}
func (m *mockUserService) Delete(_ context.Context, _ string, _ string) error {
	return m.deleteErr
}

// ── Mock EstablishmentService ──

type mockEstablishmentService struct {
	result  *dto.EstablishmentResponse
	list    []dto.EstablishmentResponse
	err     error
	lastReq *dto.EstablishmentRequest
}

func (m *mockEstablishmentService) Create(_ context.Context, req *dto.EstablishmentRequest, _ string) (*dto.EstablishmentResponse, error) {
	m.lastReq = req
	return m.result, m.err
}
func (m *mockEstablishmentService) GetByID(_ context.Context, _ string) (*dto.EstablishmentResponse, error) {
	return m.result, m.err
}
func (m *mockEstablishmentService) List(_ context.Context) ([]dto.EstablishmentResponse, error) {
	return m.list, m.err
}
func (m *mockEstablishmentService) Update(_ context.Context, _ string, req *dto.EstablishmentRequest, _ string) (*dto.EstablishmentResponse, error) {
	m.lastReq = req
	return m.result, m.err
}
func (m *mockEstablishmentService) Delete(_ context.Context, _ string) error {
	return m.err
}

// ── Mock PersonService ──

type mockPersonService struct {
	result    *dto.PersonResponse
	list      []dto.PersonResponse
	total     int64
	err       error
	lastList  *dto.PersonListRequest
	lastWrite *dto.PersonRequest
}

func (m *mockPersonService) Create(_ context.Context, req *dto.PersonRequest, _ string) (*dto.PersonResponse, error) {
	m.lastWrite = req
	return m.result, m.err
}
func (m *mockPersonService) GetByID(_ context.Context, _ string) (*dto.PersonResponse, error) {
	return m.result, m.err
}
func (m *mockPersonService) List(_ context.Context, req *dto.PersonListRequest) ([]dto.PersonResponse, int64, error) {
	m.lastList = req
	return m.list, m.total, m.err
}
func (m *mockPersonService) Update(_ context.Context, _ string, req *dto.PersonRequest, _ string) (*dto.PersonResponse, error) {
	m.lastWrite = req
	return m.result, m.err
}
func (m *mockPersonService) Delete(_ context.Context, _ string) error {
	return m.err
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
	setAuthAs(c, model.RoleAdmin, "")
}

func setAuthAs(c *gin.Context, role, establishmentID string) {
	c.Set(middleware.CtxUserID, "test-user-id")
	c.Set(middleware.CtxUsername, "tester")
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxEstablishmentID, establishmentID)
	c.Set(middleware.CtxTokenJTI, "test-jti")
	c.Set(middleware.CtxTokenExp, time.Now().Add(15*time.Minute))
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

// dataMap returns the envelope's data as a JSON object.
func dataMap(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	m, ok := parseResponse(w).Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %s", w.Body.String())
	}
	return m
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
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "240001",
		Password: "Ct240001",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

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
				t.Error("expected refresh_token cookie to be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "240001",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_RefreshToken_Success(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old-refresh"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastRefresh != "old-refresh" {
		t.Errorf("expected body token to be used, got %q", mock.lastRefresh)
	}
}

func TestAuthHandler_RefreshToken_MissingToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(map[string]string{}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{
		refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
	}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "cookie-refresh"})

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastRefresh != "cookie-refresh" {
		t.Errorf("expected cookie token to be used, got %q", mock.lastRefresh)
	}
}

func TestAuthHandler_RefreshToken_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrTokenInvalid}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "stale"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 11002 {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
}

func TestAuthHandler_GetCurrentUser_Success(t *testing.T) {
	mock := &mockAuthService{meResult: &dto.UserResponse{ID: "test-user-id", Username: "tester"}}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", func(c *gin.Context) {
		setAuth(c)
		h.GetCurrentUser(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if data := dataMap(t, w); data["username"] != "tester" {
		t.Errorf("expected username tester, got %v", data["username"])
	}
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.GetCurrentUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "Old12345",
		NewPassword: "New12345",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_TooShort(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "Old12345",
		NewPassword: "weak",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword_WrongOld(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{changePassErr: service.ErrWrongOldPassword}, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/auth/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword: "Nope1234",
		NewPassword: "New12345",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/auth/password", func(c *gin.Context) {
		setAuth(c)
		h.ChangePassword(c)
	})
	r.ServeHTTP(w, req)

	if resp := parseResponse(w); resp.Code != 11004 {
		t.Errorf("expected error code 11004, got %d", resp.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", func(c *gin.Context) {
		setAuth(c)
		h.Logout(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastLogoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti to be revoked, got %q", mock.lastLogoutJTI)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" && c.MaxAge >= 0 {
			t.Error("expected refresh_token cookie to be cleared")
		}
	}
}

// ═══════════════════════════════════════════════════════════
// UserHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUserHandler_CreateUser_Success(t *testing.T) {
	mock := &mockUserService{createResult: &dto.UserResponse{ID: "u-1", Username: "gerant", Role: model.RoleManager}}
	h := NewUserHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/users", jsonBody(dto.CreateUserRequest{
		Username:        "gerant",
		Password:        "Passw0rd!",
		Role:            model.RoleManager,
		EstablishmentID: testEstablishmentID,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/users", func(c *gin.Context) {
		setAuth(c)
		h.CreateUser(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestUserHandler_CreateUser_UnknownRole(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/users", jsonBody(map[string]string{
		"username": "chef",
		"password": "Passw0rd!",
		"role":     "CHEF",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/users", func(c *gin.Context) {
		setAuth(c)
		h.CreateUser(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUserHandler_ListUsers_Pagination(t *testing.T) {
	mock := &mockUserService{
		listResult: []dto.UserResponse{{ID: "u-1"}, {ID: "u-2"}},
		listTotal:  45,
	}
	h := NewUserHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/users?page=2&page_size=20", nil)

	r := gin.New()
	r.GET("/users", h.ListUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	pagination, _ := dataMap(t, w)["pagination"].(map[string]interface{})
	if pagination["total_pages"] != float64(3) {
		t.Errorf("expected 3 pages, got %v", pagination["total_pages"])
	}
}

func TestUserHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrUserNotFound, 404, 12001},
		{"SelfDelete", service.ErrUserSelfDelete, 400, 12003},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewUserHandler(&mockUserService{deleteErr: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("DELETE", "/users/u-1", nil)

			r := gin.New()
			r.DELETE("/users/:id", func(c *gin.Context) {
				setAuth(c)
				h.DeleteUser(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// EstablishmentHandler / PersonHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEstablishmentHandler_Create_NameTooShort(t *testing.T) {
	mock := &mockEstablishmentService{}
	h := NewEstablishmentHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/establishments", jsonBody(dto.EstablishmentRequest{Name: "A"}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/establishments", func(c *gin.Context) {
		setAuth(c)
		h.CreateEstablishment(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.lastReq != nil {
		t.Error("service should not be called")
	}
}

func TestEstablishmentHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrEstablishmentNotFound, 404, 13001},
		{"NameExists", service.ErrEstablishmentNameExists, 409, 13002},
		{"InUse", service.ErrEstablishmentInUse, 409, 13003},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEstablishmentHandler(&mockEstablishmentService{err: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("DELETE", "/establishments/e-1", nil)

			r := gin.New()
			r.DELETE("/establishments/:id", h.DeleteEstablishment)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestPersonHandler_List_Filters(t *testing.T) {
	mock := &mockPersonService{list: []dto.PersonResponse{{ID: "p-1", Matricule: "240001"}}, total: 1}
	h := NewPersonHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/persons?type=STUDENT&search=dupont&establishment_id="+testEstablishmentID, nil)

	r := gin.New()
	r.GET("/persons", h.ListPersons)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastList.Type != "STUDENT" || mock.lastList.Search != "dupont" || mock.lastList.EstablishmentID != testEstablishmentID {
		t.Errorf("filters not bound: %+v", mock.lastList)
	}
}

func TestPersonHandler_List_BadType(t *testing.T) {
	h := NewPersonHandler(&mockPersonService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/persons?type=VISITOR", nil)

	r := gin.New()
	r.GET("/persons", h.ListPersons)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestPersonHandler_Update_RequiresVersion(t *testing.T) {
	mock := &mockPersonService{}
	h := NewPersonHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/persons/p-1", jsonBody(dto.PersonRequest{
		Matricule:       "240001",
		Name:            "Dupont Marie",
		EstablishmentID: testEstablishmentID,
		Type:            "STUDENT",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/persons/:id", func(c *gin.Context) {
		setAuth(c)
		h.UpdatePerson(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.lastWrite != nil {
		t.Error("service should not be called without a version")
	}
}

func TestPersonHandler_Update_Conflict(t *testing.T) {
	h := NewPersonHandler(&mockPersonService{err: pkgerrors.ErrOptimisticLock})

	_, _, w := setupGin()
	req := httptest.NewRequest("PUT", "/persons/p-1", jsonBody(dto.PersonRequest{
		Matricule:       "240001",
		Name:            "Dupont Marie",
		EstablishmentID: testEstablishmentID,
		Type:            "STUDENT",
		Version:         3,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/persons/:id", func(c *gin.Context) {
		setAuth(c)
		h.UpdatePerson(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14003 {
		t.Errorf("expected code 14003, got %d", resp.Code)
	}
}

func TestPersonHandler_Create_DuplicateMatricule(t *testing.T) {
	h := NewPersonHandler(&mockPersonService{err: service.ErrPersonMatriculeExists})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/persons", jsonBody(dto.PersonRequest{
		Matricule:       "240001",
		Name:            "Dupont Marie",
		EstablishmentID: testEstablishmentID,
		Type:            "STUDENT",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/persons", func(c *gin.Context) {
		setAuth(c)
		h.CreatePerson(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14002 {
		t.Errorf("expected code 14002, got %d", resp.Code)
	}
}
