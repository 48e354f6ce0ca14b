package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invest_platform/internal/domain"
	"invest_platform/internal/investment"
	"invest_platform/internal/ledger/ledgertest"
	"invest_platform/internal/lock"
	"invest_platform/internal/metrics"
	"invest_platform/internal/middleware"
	"invest_platform/internal/project"
	"invest_platform/internal/returns"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	user   *domain.User
	other  *domain.User
	admin  *domain.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, gdb := ledgertest.NewStore(t)
	locker := lock.NewMemory()
	projects := project.NewLifecycle(store, locker, time.Second)
	collector := metrics.New()
	engine := investment.NewEngine(investment.Deps{
		Store:    store,
		Projects: projects,
		Returns:  returns.NewCalculator(returns.FixedRate(decimal.Zero)),
		Locker:   locker,
		Metrics:  collector,
	}, investment.Options{LockTimeout: time.Second})

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)
	s := &testServer{db: gdb}
	s.user = ledgertest.SeedUser(t, gdb, "0")
	s.other = ledgertest.SeedUser(t, gdb, "0")
	s.admin = ledgertest.SeedUser(t, gdb, "0")
	require.NoError(t, gdb.Model(&domain.User{}).Where("1 = 1").Update("password_hash", string(hash)).Error)
	require.NoError(t, gdb.Model(s.admin).Update("role", domain.RoleAdmin).Error)

	s.router = NewRouter(RouterDeps{
		Store:     store,
		Engine:    engine,
		Projects:  projects,
		Limiter:   middleware.NewRateLimiter(1000, 1000),
		Metrics:   collector.Handler(),
		JWTSecret: testSecret,
		JWTTTL:    time.Hour,
	})
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, u *domain.User) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": u.Email, "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": s.user.Email, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": s.user.Email})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.NotEmpty(t, s.login(t, s.user))
}

func TestInvestmentFlow(t *testing.T) {
	s := newTestServer(t)
	userToken := s.login(t, s.user)
	adminToken := s.login(t, s.admin)

	// Only admins create projects.
	draft := gin.H{
		"title": "Wind park", "description": "turbines", "capacity": 1000, "min_investment": 100,
		"duration": 30, "return_type": "fixed", "fixed_return": 10, "withdrawal_fee": 5,
	}
	rec := s.do(t, http.MethodPost, "/projects", userToken, draft)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/projects", adminToken, draft)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Project domain.Project `json:"project"`
	}
	decode(t, rec, &created)
	projectID := created.Project.ID

	rec = s.do(t, http.MethodPost, "/wallet/"+s.user.ID+"/funds", userToken, gin.H{"amount": "500"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/wallet/"+s.other.ID+"/funds", userToken, gin.H{"amount": "5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"forbidden"`)

	rec = s.do(t, http.MethodPost, "/projects/"+projectID+"/investments", userToken, gin.H{"amount": 50})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"below_minimum"`)

	rec = s.do(t, http.MethodPost, "/projects/"+projectID+"/investments", userToken, gin.H{"amount": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invested struct {
		Investment investment.CreateResult `json:"investment"`
	}
	decode(t, rec, &invested)
	assert.True(t, invested.Investment.WalletBalance.Equal(decimal.NewFromInt(400)))

	rec = s.do(t, http.MethodGet, "/investments", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), invested.Investment.Investment.ID)

	otherToken := s.login(t, s.other)
	rec = s.do(t, http.MethodPost, "/investments/"+invested.Investment.Investment.ID+"/withdraw", otherToken, gin.H{"amount": 100})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/investments/"+invested.Investment.Investment.ID+"/withdraw", userToken, gin.H{"amount": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var withdrawn struct {
		Withdrawal investment.WithdrawResult `json:"withdrawal"`
	}
	decode(t, rec, &withdrawn)
	assert.True(t, withdrawn.Withdrawal.Return.Net.Equal(decimal.NewFromInt(105)))
	assert.True(t, withdrawn.Withdrawal.WalletBalance.Equal(decimal.NewFromInt(505)))
	assert.True(t, withdrawn.Withdrawal.Closed)

	rec = s.do(t, http.MethodGet, "/wallet/history?page_size=2", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		History struct {
			Entries []domain.InvestmentHistory `json:"entries"`
			Total   int64                      `json:"total"`
		} `json:"history"`
		Cached bool `json:"cached"`
	}
	decode(t, rec, &hist)
	assert.EqualValues(t, 3, hist.History.Total)
	assert.Len(t, hist.History.Entries, 2)
	assert.False(t, hist.Cached)

	rec = s.do(t, http.MethodGet, "/admin/history?user_id="+s.user.ID+"&action=withdrawal", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &hist)
	assert.EqualValues(t, 1, hist.History.Total)

	rec = s.do(t, http.MethodGet, "/wallet", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"wallet":"505"`)
}

func TestProjectRoutes(t *testing.T) {
	s := newTestServer(t)
	userToken := s.login(t, s.user)
	adminToken := s.login(t, s.admin)
	p := ledgertest.SeedProject(t, s.db, nil)
	expired := ledgertest.SeedProject(t, s.db, func(p *domain.Project) { p.EndDate = time.Now().UTC().Add(-time.Hour) })

	rec := s.do(t, http.MethodGet, "/projects/"+p.ID, userToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/projects/not-an-id", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/projects/"+p.ID, adminToken, gin.H{"capacity": 50, "min_investment": 10})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/admin/projects/close-expired", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/admin/projects/close-expired", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), expired.ID)

	rec = s.do(t, http.MethodGet, "/projects?status=open", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Projects []domain.Project `json:"projects"`
	}
	decode(t, rec, &list)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, p.ID, list.Projects[0].ID)

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invest_projects_closed_total 1")
}

func TestRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteProjectRoute(t *testing.T) {
	s := newTestServer(t)
	userToken, adminToken := s.login(t, s.user), s.login(t, s.admin)
	p := ledgertest.SeedProject(t, s.db, nil)
	invested := ledgertest.SeedProject(t, s.db, func(p *domain.Project) { p.RaisedAmount = decimal.NewFromInt(300) })

	rec := s.do(t, http.MethodDelete, "/projects/"+p.ID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/projects/"+invested.ID, adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodDelete, "/projects/"+p.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/projects/"+p.ID, userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/projects/"+p.ID+"/investments", userToken, gin.H{"amount": 100})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/projects", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Projects []domain.Project `json:"projects"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Projects, 1)
	assert.Equal(t, invested.ID, listed.Projects[0].ID)
}

func TestUpdateProjectRoute_ReturnTypeAndDuration(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, s.admin)
	p := ledgertest.SeedProject(t, s.db, nil)

	rec := s.do(t, http.MethodPut, "/projects/"+p.ID, adminToken, gin.H{"return_type": "variable", "duration": 90})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Project domain.Project `json:"project"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, domain.ReturnVariable, resp.Project.ReturnType)
	assert.Nil(t, resp.Project.FixedReturn)
	assert.Equal(t, 90, resp.Project.DurationDays)

	rec = s.do(t, http.MethodPut, "/projects/"+p.ID, adminToken, gin.H{"return_type": "fixed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
