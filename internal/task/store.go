package task

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azhengyongqin/scholar-hub/internal/model"
)

// NewRunID 生成一个随机 run_id（uuid v4 的 32 位 hex 形式）。
func NewRunID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Record 一次后台运行的完整状态。
// 约定：记录只由其所属的 orchestrator 写入（单写者），
// 任意数量的轮询方并发读取。
type Record struct {
	RunID      string
	Kind       model.RunKind
	Status     model.RunStatus
	Log        []string
	OutputPath string
	Result     *model.StyleResult
	Params     any
	CreatedAt  time.Time
}

// Store 进程内任务注册表，轮询接口的唯一数据来源。
type Store struct {
	mu    sync.RWMutex
	items map[string]*Record // key: run_id
}

func NewStore() *Store {
	return &Store{
		items: map[string]*Record{},
	}
}

// Create 创建一条新记录并返回其快照。
// 初始状态为 processing，日志带创建条目（日志永不为空）。
func (s *Store) Create(kind model.RunKind, params any) Record {
	return s.CreateWithID(NewRunID(), kind, params)
}

// CreateWithID 以调用方预生成的 run_id 建档。
// 上传类任务先用 run_id 给落盘文件命名，参数齐全后再建档，
// 记录里的 Params 自此是不可变快照。
func (s *Store) CreateWithID(runID string, kind model.RunKind, params any) Record {
	rec := &Record{
		RunID:     runID,
		Kind:      kind,
		Status:    model.RunStatusProcessing,
		Log:       []string{"INFO: 任务已创建，正在排队等待处理..."},
		Params:    params,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.RunID] = rec
	return snapshot(rec)
}

// Get 返回指定记录的快照。未找到以第二个返回值区分，
// 绝不与 processing 混为一谈。
func (s *Store) Get(runID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.items[runID]
	if !ok {
		return Record{}, false
	}
	return snapshot(rec), true
}

// AppendLog 追加日志行，保持插入顺序。
func (s *Store) AppendLog(runID string, lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[runID]
	if !ok {
		return
	}
	rec.Log = append(rec.Log, lines...)
}

// SetStatus 更新状态。终态之后的状态写入被忽略（单写者下只是兜底）。
func (s *Store) SetStatus(runID string, st model.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[runID]
	if !ok || rec.Status.Terminal() {
		return
	}
	rec.Status = st
}

// Complete 将任务置为 completed 并登记产物路径。
func (s *Store) Complete(runID, outputPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[runID]
	if !ok || rec.Status.Terminal() {
		return
	}
	rec.Status = model.RunStatusCompleted
	rec.OutputPath = outputPath
}

// CompleteResult 将任务置为 completed 并登记结构化结果。
func (s *Store) CompleteResult(runID string, result *model.StyleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[runID]
	if !ok || rec.Status.Terminal() {
		return
	}
	rec.Status = model.RunStatusCompleted
	rec.Result = result
}

// Fail 将任务置为 failed，并在日志中追加 FATAL_ERROR 标记行。
func (s *Store) Fail(runID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[runID]
	if !ok || rec.Status.Terminal() {
		return
	}
	rec.Status = model.RunStatusFailed
	rec.Log = append(rec.Log, "❌ FATAL_ERROR: "+msg)
}

// Len 当前记录数（管理接口用）。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// snapshot 复制记录，日志切片单独拷贝，读方不受后续追加影响。
func snapshot(rec *Record) Record {
	out := *rec
	out.Log = make([]string, len(rec.Log))
	copy(out.Log, rec.Log)
	return out
}
