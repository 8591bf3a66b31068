package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/services"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type middlewareTestEnv struct {
	db   *gorm.DB
	auth *services.AuthService
	task *services.TaskService
}

func setupMiddlewareTestEnv(t *testing.T) middlewareTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(database.Models()...))

	userRepo := repository.NewUserRepository(db)
	historyRepo := repository.NewTaskHistoryRepository(db)
	auth := services.NewAuthService(userRepo, services.LogMailer{}, services.AuthOptions{JWTSecret: "test-secret"})
	task := services.NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewCommentRepository(db),
		historyRepo,
		userRepo,
		repository.NewBrandRepository(db),
		services.NewAuditRecorder(historyRepo),
		nil,
	)

	return middlewareTestEnv{db: db, auth: auth, task: task}
}

func (env middlewareTestEnv) createUser(t *testing.T, email string, role models.UserRole) *models.User {
	t.Helper()
	user, err := env.auth.CreateUser(services.CreateUserInput{Name: "User", Email: email, Password: "secret1", Role: role})
	require.NoError(t, err)
	return user
}

func (env middlewareTestEnv) router(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.GET("/login/:id", func(c *gin.Context) {
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		session := sessions.Default(c)
		session.Set(constants.ContextKeyUserID, id)
		_ = session.Save()
		c.Status(http.StatusNoContent)
	})
	chain := append(handlers, func(c *gin.Context) {
		identity, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"email": identity.Email})
	})
	r.GET("/protected", chain...)
	r.GET("/tasks/:id", chain...)
	return r
}

func TestRequireAuth_Bearer(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	user := env.createUser(t, "ana@example.com", models.RoleUser)
	token, err := env.auth.IssueToken(user)
	require.NoError(t, err)

	r := env.router(RequireAuth(env.auth))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

func TestRequireAuth_Session(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	user := env.createUser(t, "ana@example.com", models.RoleUser)
	r := env.router(RequireAuth(env.auth))

	loginReq := httptest.NewRequest(http.MethodGet, "/login/"+strconv.FormatUint(user.ID, 10), nil)
	loginW := httptest.NewRecorder()
	r.ServeHTTP(loginW, loginReq)
	require.Equal(t, http.StatusNoContent, loginW.Code)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, ck := range loginW.Result().Cookies() {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_Rejects(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	user := env.createUser(t, "ana@example.com", models.RoleUser)
	token, err := env.auth.IssueToken(user)
	require.NoError(t, err)
	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	r := env.router(RequireAuth(env.auth))

	tests := []struct {
		name   string
		header string
	}{
		{"no credentials", ""},
		{"garbage token", "Bearer nope"},
		{"deleted user", "Bearer " + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	admin := env.createUser(t, "root@example.com", models.RoleAdmin)
	user := env.createUser(t, "ana@example.com", models.RoleUser)
	r := env.router(RequireAuth(env.auth), RequireAdmin())

	for _, tc := range []struct {
		user *models.User
		want int
	}{
		{admin, http.StatusOK},
		{user, http.StatusForbidden},
	} {
		token, err := env.auth.IssueToken(tc.user)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.user.Email)
	}
}

func TestRequireTaskAccess(t *testing.T) {
	env := setupMiddlewareTestEnv(t)
	boss := env.createUser(t, "boss@example.com", models.RoleUser)
	stranger := env.createUser(t, "stranger@example.com", models.RoleUser)

	due := time.Now().Add(time.Hour)
	task, err := env.task.CreateTask(services.CreateTaskInput{
		Title:      "Plan",
		AssignedTo: "worker@example.com",
		DueDate:    &due,
	}, models.IdentityFromUser(boss))
	require.NoError(t, err)

	r := env.router(RequireAuth(env.auth), RequireTaskAccess(env.task))

	tests := []struct {
		name string
		user *models.User
		path string
		want int
	}{
		{"assigner", boss, "/tasks/" + strconv.FormatUint(task.ID, 10), http.StatusOK},
		{"stranger", stranger, "/tasks/" + strconv.FormatUint(task.ID, 10), http.StatusForbidden},
		{"missing", boss, "/tasks/999", http.StatusNotFound},
		{"bad id", boss, "/tasks/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := env.auth.IssueToken(tt.user)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 1))
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("127.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("127.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	generated := w.Header().Get(constants.HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	const given = "6f1c1d9e-3b0a-4f55-9a43-2d2a1c3c9f10"
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(constants.HeaderRequestID, given)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, given, w.Header().Get(constants.HeaderRequestID))
}
