package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"studyforge_backend/internal/config"
	"studyforge_backend/internal/model"
	"studyforge_backend/internal/repository"
	"studyforge_backend/internal/util"
	"studyforge_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func newTestSessions(t *testing.T) *SessionService {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "sessions.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.StudySession{}))
	return NewSessionService(repository.NewSessionRepository(db))
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Storage:    config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		Generation: config.GenerationConfig{BaseURL: baseURL, APIKey: "test-key", TimeoutSeconds: 5},
		Upload:     config.UploadConfig{MaxSizeMB: 1},
		Credits:    config.CreditConfig{BaseCost: 1, PagesPerCredit: 10},
	}
}

func newTestPipeline(t *testing.T, handler http.Handler) (*ProcessingService, *CreditService, *SessionService) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := newTestConfig(t, srv.URL)
	credits := NewCreditService(nil)
	sessions := newTestSessions(t)
	svc := NewProcessingService(cfg, NewGenerationService(cfg.Generation), credits, sessions, NewStorageService(cfg))
	return svc, credits, sessions
}

const successBundle = `{
	"shortSummary": "breve",
	"extendedSummary": "esteso",
	"conceptMap": [{"title":"root"}],
	"flashcards": [{"front":"f","back":"b"}],
	"quiz": [{"kind":"single_choice","prompt":"q","options":["a","b"],"correctIndex":0}],
	"examGuide": "ripassa",
	"sessionId": "sess-1",
	"creditsUsed": 3,
	"newCreditBalance": 7
}`

func waitForJob(t *testing.T, svc *ProcessingService, ownerID uint, jobID string) model.ProcessingJobView {
	t.Helper()
	var view model.ProcessingJobView
	require.Eventually(t, func() bool {
		v, err := svc.GetJob(ownerID, jobID)
		if err != nil {
			return false
		}
		view = v
		return v.Status != model.JobRunning
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestProcessingSuccess(t *testing.T) {
	svc, credits, sessions := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(successBundle))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "appunti.txt",
		Data:           []byte("contenuto"),
		SourceLanguage: "Italiano",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobRunning, view.Status)

	final := waitForJob(t, svc, 1, view.ID)
	assert.Equal(t, model.JobSucceeded, final.Status)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Bundle)
	assert.Equal(t, "breve", final.Bundle.ShortSummary)
	assert.Equal(t, 3, final.Bundle.CreditsCharged)

	// 权威余额覆盖本地账本
	balance, known := credits.Balance(context.Background(), 1)
	assert.True(t, known)
	assert.Equal(t, 7, balance)

	// 会话异步持久化
	require.Eventually(t, func() bool {
		_, err := sessions.Reload(1, "sess-1")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestProcessingInsufficientCredits(t *testing.T) {
	svc, credits, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"required":5,"available":2}`))
	}))
	credits.ApplyAuthoritativeBalance(context.Background(), 1, 10)

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "doc.txt",
		Data:           []byte("x"),
		SourceLanguage: "English",
	})
	require.NoError(t, err)

	final := waitForJob(t, svc, 1, view.ID)
	assert.Equal(t, model.JobFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Equal(t, model.JobErrorInsufficientCredits, final.Error.Kind)
	// 数字按上游原样透出
	assert.Equal(t, 5, final.Error.Required)
	assert.Equal(t, 2, final.Error.Available)

	// 失败不触碰账本
	balance, _ := credits.Balance(context.Background(), 1)
	assert.Equal(t, 10, balance)
}

func TestProcessingPreCheckRejectsKnownShortfall(t *testing.T) {
	svc, credits, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called when pre-check fails")
	}))
	credits.ApplyAuthoritativeBalance(context.Background(), 1, 0)

	_, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "doc.txt",
		Data:           []byte("x"),
		SourceLanguage: "English",
	})
	var insufficient *util.InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Required)
	assert.Equal(t, 0, insufficient.Available)
}

func TestProcessingMalformedResponse(t *testing.T) {
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 两个摘要都缺失的残缺包
		w.Write([]byte(`{"quiz":[]}`))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "doc.txt",
		Data:           []byte("x"),
		SourceLanguage: "English",
	})
	require.NoError(t, err)

	final := waitForJob(t, svc, 1, view.ID)
	assert.Equal(t, model.JobFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Equal(t, model.JobErrorUpstreamFailure, final.Error.Kind)
	assert.Nil(t, final.Bundle)
}

func TestProcessingAutoTargetLanguageOmitted(t *testing.T) {
	var sawTarget atomic.Bool
	var source atomic.Value
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, ok := r.MultipartForm.Value["targetLanguage"]
		sawTarget.Store(ok)
		source.Store(r.FormValue("sourceLanguage"))
		w.Write([]byte(successBundle))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "doc.txt",
		Data:           []byte("x"),
		SourceLanguage: "Italiano",
		TargetLanguage: util.LanguageAuto,
	})
	require.NoError(t, err)
	waitForJob(t, svc, 1, view.ID)

	assert.False(t, sawTarget.Load(), "Auto must not send a target language override")
	assert.Equal(t, "Italiano", source.Load())
}

func TestProcessingExplicitTargetLanguageForwarded(t *testing.T) {
	var target atomic.Value
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		target.Store(r.FormValue("targetLanguage"))
		w.Write([]byte(successBundle))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID:        1,
		FileName:       "doc.txt",
		Data:           []byte("x"),
		SourceLanguage: "Italiano",
		TargetLanguage: "English",
	})
	require.NoError(t, err)
	waitForJob(t, svc, 1, view.ID)
	assert.Equal(t, "English", target.Load())
}

func TestProcessingSubmitValidation(t *testing.T) {
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called on validation failure")
	}))

	_, err := svc.Submit(context.Background(), SubmitRequest{OwnerID: 1, FileName: "a.txt", SourceLanguage: "English"})
	assert.ErrorIs(t, err, util.ErrEmptyDocument)

	big := make([]byte, 2*1024*1024)
	_, err = svc.Submit(context.Background(), SubmitRequest{OwnerID: 1, FileName: "a.txt", Data: big, SourceLanguage: "English"})
	assert.ErrorIs(t, err, util.ErrDocumentTooLarge)

	_, err = svc.Submit(context.Background(), SubmitRequest{OwnerID: 1, FileName: "a.txt", Data: []byte("x"), SourceLanguage: "Klingon"})
	assert.ErrorIs(t, err, util.ErrUnsupportedLanguage)
}

func TestProcessingSingleJobPerOwner(t *testing.T) {
	release := make(chan struct{})
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(successBundle))
	}))

	req := SubmitRequest{OwnerID: 1, FileName: "a.txt", Data: []byte("x"), SourceLanguage: "English"}
	first, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	// 第二次提交被拒绝而非排队
	_, err = svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, util.ErrJobInFlight)

	// 其它用户不受影响
	_, err = svc.Submit(context.Background(), SubmitRequest{OwnerID: 2, FileName: "b.txt", Data: []byte("y"), SourceLanguage: "English"})
	require.NoError(t, err)

	close(release)
	waitForJob(t, svc, 1, first.ID)

	// 完成后可再次提交
	_, err = svc.Submit(context.Background(), req)
	assert.NoError(t, err)
}

func TestProcessingProgressMonotonicBelowCompletion(t *testing.T) {
	release := make(chan struct{})
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(successBundle))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID: 1, FileName: "a.txt", Data: []byte("x"), SourceLanguage: "English",
	})
	require.NoError(t, err)

	last := view.Progress
	for i := 0; i < 10; i++ {
		time.Sleep(50 * time.Millisecond)
		v, err := svc.GetJob(1, view.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v.Progress, last, "progress must never move backwards")
		assert.Less(t, v.Progress, 100, "progress must not reach 100 before the authoritative result")
		last = v.Progress
	}

	close(release)
	final := waitForJob(t, svc, 1, view.ID)
	assert.Equal(t, 100, final.Progress)
}

func TestProcessingGetJobOwnerScoped(t *testing.T) {
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(successBundle))
	}))

	view, err := svc.Submit(context.Background(), SubmitRequest{
		OwnerID: 1, FileName: "a.txt", Data: []byte("x"), SourceLanguage: "English",
	})
	require.NoError(t, err)

	_, err = svc.GetJob(2, view.ID)
	assert.ErrorIs(t, err, util.ErrJobNotFound)
	_, err = svc.GetJob(1, "missing-id")
	assert.ErrorIs(t, err, util.ErrJobNotFound)

	waitForJob(t, svc, 1, view.ID)
}

func TestProcessingFinishedJobEvictedOnResubmit(t *testing.T) {
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(successBundle))
	}))

	req := SubmitRequest{OwnerID: 1, FileName: "a.txt", Data: []byte("x"), SourceLanguage: "English"}
	first, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	waitForJob(t, svc, 1, first.ID)

	// 结束后、下次提交前仍可轮询到最终结果
	view, err := svc.GetJob(1, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobSucceeded, view.Status)

	second, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)

	// 新提交淘汰上一个已结束任务
	_, err = svc.GetJob(1, first.ID)
	assert.ErrorIs(t, err, util.ErrJobNotFound)

	waitForJob(t, svc, 1, second.ID)
}

func TestEstimateCostNonPDF(t *testing.T) {
	svc, _, _ := newTestPipeline(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	assert.Equal(t, 1, svc.EstimateCost("notes.txt", []byte("plain text")))
}
