package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lumiclass/teacherdir/core"
	"github.com/lumiclass/teacherdir/core/directory"
	dummydb "github.com/lumiclass/teacherdir/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeUpstream struct {
	snap directory.Snapshot
	err  error
}

func (f *fakeUpstream) FetchDirectory(context.Context) (directory.Snapshot, error) {
	if f.err != nil {
		return directory.Snapshot{}, f.err
	}
	return f.snap, nil
}

type testApp struct {
	server   Server
	cache    *directory.Cache
	upstream *fakeUpstream
	repo     *dummydb.DirectoryRepository
}

func initApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{TestMode: true}
	conf.Directory.TTL = 24 * time.Hour

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("initApp() failed: %v", err)
	}
	repo := dummydb.NewDirectoryRepository(db)
	upstream := &fakeUpstream{}
	cache := directory.NewCache(conf.Directory.TTL)
	svc := directory.NewService(cache, upstream, repo, nopLogger{}, directory.DefaultSimilarityThreshold)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:         conf,
		Logger:       nopLogger{},
		DirectorySvc: svc,
		Validate:     validate,
		Translator:   translator,
	})
	return &testApp{server: server, cache: cache, upstream: upstream, repo: repo}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func (app *testApp) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newRequest(method, path, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decodeBody() failed: %v; body: %s", err, rec.Body.String())
	}
	return body
}

func snapshotOf(fetchedAt time.Time, names ...string) directory.Snapshot {
	snap := directory.Snapshot{FetchedAt: fetchedAt}
	for _, n := range names {
		snap.Teachers = append(snap.Teachers, directory.Teacher{Name: n + " Chen", DisplayName: n})
	}
	return snap
}
