package quest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"habitquest/pkg/featureflags"
	"habitquest/pkg/middleware"
	"habitquest/pkg/taskname"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, t)
	return &asynq.TaskInfo{ID: "task-1", Queue: "critical", Type: t.Type()}, nil
}

func serveHTTP(h *HTTPHandler, method, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Error())
	h.Register(r.Group("/v1"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHTTPSweepEnqueues(t *testing.T) {
	f := newFixture(t, featureflags.Static{})
	q := &fakeEnqueuer{}
	h := NewHTTPHandler(HTTPHandlerParams{Tracker: f.tracker, Enqueuer: q})

	w := serveHTTP(h, http.MethodPost, "/v1/quests/sweep")
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, q.tasks, 1)
	require.Equal(t, taskname.QuestSweep, q.tasks[0].Type())
}

func TestHTTPSweepInline(t *testing.T) {
	f := newFixture(t, featureflags.Static{})
	h := NewHTTPHandler(HTTPHandlerParams{Tracker: f.tracker})

	w := serveHTTP(h, http.MethodPost, "/v1/quests/sweep")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"failed":0,"penalties_issued":0,"errors":0}`, w.Body.String())
}

func TestHTTPCompleteUnknownPenalty(t *testing.T) {
	f := newFixture(t, featureflags.Static{})
	h := NewHTTPHandler(HTTPHandlerParams{Tracker: f.tracker})

	w := serveHTTP(h, http.MethodPost, "/v1/penalties/missing/complete")
	require.Equal(t, http.StatusNotFound, w.Code)
}
