package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"studyforge_backend/internal/config"
	"studyforge_backend/internal/model"
	"studyforge_backend/internal/util"
	"studyforge_backend/pkg/logger"
	"studyforge_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// 各阶段的模拟进度上限。进度是本地估算信号，与真实网络调用解耦，
// 权威结果（产物包或错误）到达时才决定最终状态
var stageCeilings = map[model.JobStage]int{
	model.StageExtracting: 25,
	model.StageGenerating: 90,
	model.StageFinishing:  99,
}

// processingJob 单个处理任务的运行时状态
type processingJob struct {
	mu       sync.Mutex
	id       string
	ownerID  uint
	stage    model.JobStage
	progress int
	status   model.JobStatus
	bundle   *model.ArtifactBundle
	jobErr   *model.JobError
	done     chan struct{}
}

func newProcessingJob(ownerID uint) *processingJob {
	return &processingJob{
		id:      model.GenerateUUID(),
		ownerID: ownerID,
		stage:   model.StageExtracting,
		status:  model.JobRunning,
		done:    make(chan struct{}),
	}
}

// setStage 进入新阶段，进度只增不减
func (j *processingJob) setStage(stage model.JobStage, base int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != model.JobRunning {
		return
	}
	j.stage = stage
	if base > j.progress {
		j.progress = base
	}
}

// tick 模拟进度步进，封顶在当前阶段上限，真实完成前绝不到100
func (j *processingJob) tick() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != model.JobRunning {
		return
	}
	ceiling := stageCeilings[j.stage]
	if j.progress < ceiling {
		j.progress++
	}
}

func (j *processingJob) succeed(bundle *model.ArtifactBundle) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != model.JobRunning {
		return
	}
	j.bundle = bundle
	j.status = model.JobSucceeded
	j.progress = 100
	close(j.done)
}

func (j *processingJob) fail(jobErr *model.JobError) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != model.JobRunning {
		return
	}
	j.jobErr = jobErr
	j.status = model.JobFailed
	close(j.done)
}

func (j *processingJob) snapshot() model.ProcessingJobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	return model.ProcessingJobView{
		ID:       j.id,
		Stage:    j.stage,
		Progress: j.progress,
		Status:   j.status,
		Bundle:   j.bundle,
		Error:    j.jobErr,
	}
}

// ProcessingService 文档处理管线：提取 → 生成 → 收尾。
// 每个用户同时只允许一个在途任务，第二次提交直接拒绝而非静默排队。
type ProcessingService struct {
	Config     *config.Config
	Generation *GenerationService
	Credits    *CreditService
	Sessions   *SessionService
	Storage    *StorageService

	mu       sync.Mutex
	jobs     map[string]*processingJob
	inFlight map[uint]*processingJob
}

func NewProcessingService(cfg *config.Config, generation *GenerationService, credits *CreditService, sessions *SessionService, storage *StorageService) *ProcessingService {
	return &ProcessingService{
		Config:     cfg,
		Generation: generation,
		Credits:    credits,
		Sessions:   sessions,
		Storage:    storage,
		jobs:       make(map[string]*processingJob),
		inFlight:   make(map[uint]*processingJob),
	}
}

type SubmitRequest struct {
	OwnerID        uint
	FileName       string
	Data           []byte
	SourceLanguage string
	TargetLanguage string
}

// EstimateCost 提交前的积分消耗预估：基础消耗 + 按PDF页数加收
func (s *ProcessingService) EstimateCost(filename string, data []byte) int {
	cost := s.Config.Credits.BaseCost
	if util.IsPDF(filename, data) {
		pages := util.CountPDFPages(data)
		cost += pages / s.Config.Credits.PagesPerCredit
	}
	return cost
}

// Submit 校验并启动处理任务，立即返回任务快照供轮询
func (s *ProcessingService) Submit(ctx context.Context, req SubmitRequest) (model.ProcessingJobView, error) {
	if len(req.Data) == 0 {
		return model.ProcessingJobView{}, util.ErrEmptyDocument
	}
	if int64(len(req.Data)) > s.Config.Upload.MaxSizeMB*1024*1024 {
		return model.ProcessingJobView{}, util.ErrDocumentTooLarge
	}
	if !util.IsSupportedLanguage(req.SourceLanguage) {
		return model.ProcessingJobView{}, util.ErrUnsupportedLanguage
	}
	// 目标语言为 Auto 时沿用源语言，不向上游传递覆盖值
	if req.TargetLanguage == util.LanguageAuto {
		req.TargetLanguage = ""
	}

	estimate := s.EstimateCost(req.FileName, req.Data)
	if !s.Credits.HasSufficientBalance(ctx, req.OwnerID, estimate) {
		available, _ := s.Credits.Balance(ctx, req.OwnerID)
		return model.ProcessingJobView{}, &util.InsufficientCreditsError{
			Required:  estimate,
			Available: available,
		}
	}

	s.mu.Lock()
	if prev, ok := s.inFlight[req.OwnerID]; ok {
		if prev.snapshot().Status == model.JobRunning {
			s.mu.Unlock()
			return model.ProcessingJobView{}, util.ErrJobInFlight
		}
		// 每用户只保留最近一个任务，已结束的随新提交淘汰
		delete(s.jobs, prev.id)
	}
	job := newProcessingJob(req.OwnerID)
	s.jobs[job.id] = job
	s.inFlight[req.OwnerID] = job
	s.mu.Unlock()

	monitoring.ProcessingJobsInFlight.Inc()
	go s.run(job, req)

	return job.snapshot(), nil
}

func (s *ProcessingService) GetJob(ownerID uint, jobID string) (model.ProcessingJobView, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok || job.ownerID != ownerID {
		return model.ProcessingJobView{}, util.ErrJobNotFound
	}
	return job.snapshot(), nil
}

func (s *ProcessingService) run(job *processingJob, req SubmitRequest) {
	defer monitoring.ProcessingJobsInFlight.Dec()

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.Config.Generation.TimeoutSeconds+30)*time.Second)
	defer cancel()

	// 模拟进度与真实调用并行推进
	go func() {
		ticker := time.NewTicker(300 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-job.done:
				return
			case <-ticker.C:
				job.tick()
			}
		}
	}()

	// 阶段一：提取。源文档落盘，供会话追溯
	job.setStage(model.StageExtracting, 1)
	objectName := fmt.Sprintf("documents/%d/%s%s", req.OwnerID, job.id, filepath.Ext(req.FileName))
	if _, err := s.Storage.Provider.Upload(ctx, objectName, bytes.NewReader(req.Data), int64(len(req.Data)), util.MimeOctetStream); err != nil {
		// 留档失败不中断处理，仅丢失源文档追溯
		logger.Log.Warn("failed to archive source document", zap.String("jobId", job.id), zap.Error(err))
		objectName = ""
	}

	// 阶段二：生成。权威结果由此决定
	job.setStage(model.StageGenerating, 25)
	raw, err := s.Generation.ProcessDocument(ctx, req.FileName, req.Data, req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		s.failJob(job, err)
		return
	}

	// 阶段三：收尾。归一化解码、记账、持久化
	job.setStage(model.StageFinishing, 90)
	bundle, dropped, err := model.DecodeBundle(raw)
	if err != nil {
		// 结构性必填字段缺失升级为上游失败，残缺包不交付给消费者
		s.failJob(job, &util.UpstreamError{Status: 0, Message: "malformed generation response: " + err.Error()})
		return
	}
	if dropped > 0 {
		logger.Log.Warn("dropped corrupt questions from generation response",
			zap.String("jobId", job.id), zap.Int("dropped", dropped))
	}

	s.Credits.ApplyAuthoritativeBalance(ctx, req.OwnerID, bundle.NewBalance)
	monitoring.CreditsChargedCounter.Add(float64(bundle.CreditsCharged))

	// 持久化失败只记录，不回滚已交付的产物包
	go func() {
		_, err := s.Sessions.Persist(bundle, SessionMeta{
			OwnerID:        req.OwnerID,
			DocumentName:   req.FileName,
			StoredObject:   objectName,
			SourceLanguage: req.SourceLanguage,
			TargetLanguage: req.TargetLanguage,
		})
		if err != nil {
			logger.Log.Error("failed to persist study session",
				zap.String("jobId", job.id),
				zap.String("sessionId", bundle.SessionID),
				zap.Error(err))
		}
	}()

	job.succeed(bundle)
	monitoring.ProcessingJobCounter.WithLabelValues(string(model.JobSucceeded)).Inc()
}

func (s *ProcessingService) failJob(job *processingJob, err error) {
	var insufficient *util.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		// 余额不足按原样透出数字，账本不做任何本地修正
		job.fail(&model.JobError{
			Kind:      model.JobErrorInsufficientCredits,
			Message:   insufficient.Error(),
			Required:  insufficient.Required,
			Available: insufficient.Available,
		})
	} else {
		job.fail(&model.JobError{
			Kind:    model.JobErrorUpstreamFailure,
			Message: err.Error(),
		})
	}
	monitoring.ProcessingJobCounter.WithLabelValues(string(model.JobFailed)).Inc()
	logger.Log.Warn("processing job failed", zap.String("jobId", job.id), zap.Error(err))
}
