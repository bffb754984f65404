package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	authdomain "github.com/desklyhq/deskly/internal/auth/domain"
	authservice "github.com/desklyhq/deskly/internal/auth/service"
	"github.com/desklyhq/deskly/internal/auth/session"
	"github.com/desklyhq/deskly/internal/config"
	customerdomain "github.com/desklyhq/deskly/internal/customer/domain"
	customerrepository "github.com/desklyhq/deskly/internal/customer/repository"
	customerservice "github.com/desklyhq/deskly/internal/customer/service"
)

func newGateTestServer(t *testing.T) (*Server, authdomain.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.Session{},
		&customerdomain.Customer{},
		&customerdomain.Profile{},
		&customerdomain.Company{},
	))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	cfg := config.Config{
		LoginPath:  "/login",
		PublicPath: "/",
	}

	authSvc := authservice.New(authservice.Params{DB: db, Log: zap.NewNop(), GenID: node})
	customerSvc := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepository.Provide(),
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:      engine,
		cfg:         cfg,
		db:          db,
		genID:       node,
		sessions:    session.NewManager(cfg),
		authSvc:     authSvc,
		customerSvc: customerSvc,
	}

	admin := engine.Group("/admin", s.AdminRequired())
	admin.GET("/customers", s.ListCustomers)
	admin.GET("/customers/:id", s.GetCustomerByID)

	return s, authSvc
}

func issueSession(t *testing.T, svc authdomain.Service, role customerdomain.Role) string {
	t.Helper()

	issued, err := svc.Issue(context.Background(), authdomain.IssueRequest{
		Subject: "usr_test",
		Email:   "gate@deskly.my",
		Role:    role,
		TTL:     time.Hour,
	})
	require.NoError(t, err)
	return issued.RawToken
}

func TestGateRedirectsAnonymousBrowserToLogin(t *testing.T) {
	s, _ := newGateTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestGateReturns401ForAnonymousJSON(t *testing.T) {
	s, _ := newGateTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers", nil)
	req.Header.Set("Accept", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"unauthorized"`)
}

func TestGateRedirectsNonAdminBrowserToPublicPath(t *testing.T) {
	s, authSvc := newGateTestServer(t)
	token := issueSession(t, authSvc, customerdomain.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestGateReturns403ForNonAdminJSON(t *testing.T) {
	s, authSvc := newGateTestServer(t)
	token := issueSession(t, authSvc, customerdomain.RoleCustomer)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGateAdmitsAdminSession(t *testing.T) {
	s, authSvc := newGateTestServer(t)
	token := issueSession(t, authSvc, customerdomain.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data"`)
}

func TestUnknownCustomerMapsTo404(t *testing.T) {
	s, authSvc := newGateTestServer(t)
	token := issueSession(t, authSvc, customerdomain.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers/123456789", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"not_found"`)
}

func TestMalformedCustomerIDMapsTo400(t *testing.T) {
	s, authSvc := newGateTestServer(t)
	token := issueSession(t, authSvc, customerdomain.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/admin/customers/not-an-id", nil)
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: token})
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"validation_error"`)
}
