package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/brand-task-api/internal/constants"
	"github.com/yukikurage/brand-task-api/internal/database"
	"github.com/yukikurage/brand-task-api/internal/models"
	"github.com/yukikurage/brand-task-api/internal/repository"
	"github.com/yukikurage/brand-task-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerTestEnv struct {
	db       *gorm.DB
	auth     *services.AuthService
	brands   *services.BrandService
	tasks    *services.TaskService
	comments *services.CommentService
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
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
	brandRepo := repository.NewBrandRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	historyRepo := repository.NewTaskHistoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	env := handlerTestEnv{db: db}
	env.auth = services.NewAuthService(userRepo, services.LogMailer{}, services.AuthOptions{JWTSecret: "test-secret"})
	env.brands = services.NewBrandService(brandRepo, userRepo, taskRepo)
	env.tasks = services.NewTaskService(taskRepo, commentRepo, historyRepo, userRepo, brandRepo,
		services.NewAuditRecorder(historyRepo), nil)
	env.comments = services.NewCommentService(commentRepo, env.tasks)
	return env
}

func (env handlerTestEnv) createUser(t *testing.T, name, email string, role models.UserRole) *models.Identity {
	t.Helper()
	user, err := env.auth.CreateUser(services.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: "supersecret",
		Role:     role,
	})
	require.NoError(t, err)
	return models.IdentityFromUser(user)
}

// as stands in for RequireAuth in handler tests.
func as(identity *models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity != nil {
			c.Set(constants.ContextKeyUserID, identity.ID)
			c.Set(constants.ContextKeyIdentity, identity)
		}
		c.Next()
	}
}

func performJSON(r http.Handler, method, url string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope decodes the success envelope, leaving data raw.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	resp := decode(t, w)
	require.NoError(t, json.Unmarshal(resp.Data, out), string(resp.Data))
	return resp
}

func uitoa(id uint64) string {
	return strconv.FormatUint(id, 10)
}
