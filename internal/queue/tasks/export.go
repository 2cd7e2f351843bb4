package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/buildbuddy/engine/internal/repository"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const TypePlanExport = "plan:export"

// PlanExportPayload is the task payload for plan exports.
type PlanExportPayload struct {
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}

func NewPlanExportTask(userID, projectID uuid.UUID) (*asynq.Task, error) {
	b, err := json.Marshal(PlanExportPayload{UserID: userID.String(), ProjectID: projectID.String()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePlanExport, b, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}

// PlanLoader reads a project's saved plan.
type PlanLoader interface {
	LoadPlan(ctx context.Context, userID, projectID uuid.UUID) (*repository.PlanBundle, error)
}

// ExportStore keeps rendered export documents.
type ExportStore interface {
	Put(ctx context.Context, userID, projectID uuid.UUID, doc []byte) error
	Get(ctx context.Context, userID, projectID uuid.UUID) ([]byte, bool, error)
}

// Enqueuer is the part of asynq.Client the exporter needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

const (
	ExportQueued = "queued"
	ExportReady  = "ready"
)

// ExportStatus is the answer to an export request.
type ExportStatus struct {
	State  string `json:"state"`
	TaskID string `json:"task_id,omitempty"`
}

// Exporter renders plan exports, through the queue when one is configured
// and inline otherwise.
type Exporter struct {
	plans PlanLoader
	store ExportStore
	queue Enqueuer
	now   func() time.Time
}

// NewExporter builds an exporter. A nil queue renders synchronously.
func NewExporter(plans PlanLoader, store ExportStore, queue Enqueuer) *Exporter {
	return &Exporter{plans: plans, store: store, queue: queue, now: time.Now}
}

// Request starts an export of the project's plan.
func (e *Exporter) Request(ctx context.Context, userID, projectID uuid.UUID) (ExportStatus, error) {
	if e.queue == nil {
		if err := e.Render(ctx, userID, projectID); err != nil {
			return ExportStatus{}, err
		}
		return ExportStatus{State: ExportReady}, nil
	}

	task, err := NewPlanExportTask(userID, projectID)
	if err != nil {
		return ExportStatus{}, appErr.Wrap(err, appErr.CodeInternal, "build export task failed")
	}
	info, err := e.queue.EnqueueContext(ctx, task)
	if err != nil {
		logger.L().Error("enqueue plan export failed", zap.String("project_id", projectID.String()), zap.Error(err))
		return ExportStatus{}, appErr.Wrap(err, appErr.CodeUnavailable, "could not queue the export")
	}
	logger.L().Info("plan export queued", zap.String("project_id", projectID.String()), zap.String("task_id", info.ID))
	return ExportStatus{State: ExportQueued, TaskID: info.ID}, nil
}

// Fetch returns a rendered export.
func (e *Exporter) Fetch(ctx context.Context, userID, projectID uuid.UUID) ([]byte, error) {
	doc, ok, err := e.store.Get(ctx, userID, projectID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "read export failed")
	}
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "export not ready")
	}
	return doc, nil
}

// Render loads the plan, renders it and stores the document.
func (e *Exporter) Render(ctx context.Context, userID, projectID uuid.UUID) error {
	b, err := e.plans.LoadPlan(ctx, userID, projectID)
	if err != nil {
		return err
	}
	doc, err := RenderPlan(b, e.now())
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "render export failed")
	}
	if err := e.store.Put(ctx, userID, projectID, doc); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "store export failed")
	}
	logger.L().Info("plan export rendered", zap.String("project_id", projectID.String()), zap.Int("bytes", len(doc)))
	return nil
}

// HandlePlanExport is the asynq handler for TypePlanExport.
func (e *Exporter) HandlePlanExport(ctx context.Context, t *asynq.Task) error {
	var p PlanExportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid plan export payload", zap.Error(err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	userID, err := uuid.Parse(p.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", asynq.SkipRetry)
	}
	projectID, err := uuid.Parse(p.ProjectID)
	if err != nil {
		return fmt.Errorf("invalid project id: %w", asynq.SkipRetry)
	}

	logger.L().Info("handling plan export task", zap.String("project_id", projectID.String()))
	if err := e.Render(ctx, userID, projectID); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

func exportKey(userID, projectID uuid.UUID) string {
	return fmt.Sprintf("buildbuddy:export:%s:%s", userID, projectID)
}

type redisExportStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisExportStore keeps exports in Redis for ttl.
func NewRedisExportStore(rdb *redis.Client, ttl time.Duration) ExportStore {
	return &redisExportStore{rdb: rdb, ttl: ttl}
}

func (s *redisExportStore) Put(ctx context.Context, userID, projectID uuid.UUID, doc []byte) error {
	return s.rdb.Set(ctx, exportKey(userID, projectID), doc, s.ttl).Err()
}

func (s *redisExportStore) Get(ctx context.Context, userID, projectID uuid.UUID) ([]byte, bool, error) {
	doc, err := s.rdb.Get(ctx, exportKey(userID, projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

type memoryExportStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryExportStore keeps exports in process memory.
func NewMemoryExportStore() ExportStore {
	return &memoryExportStore{docs: map[string][]byte{}}
}

func (s *memoryExportStore) Put(_ context.Context, userID, projectID uuid.UUID, doc []byte) error {
	s.mu.Lock()
	s.docs[exportKey(userID, projectID)] = doc
	s.mu.Unlock()
	return nil
}

func (s *memoryExportStore) Get(_ context.Context, userID, projectID uuid.UUID) ([]byte, bool, error) {
	s.mu.RLock()
	doc, ok := s.docs[exportKey(userID, projectID)]
	s.mu.RUnlock()
	return doc, ok, nil
}
