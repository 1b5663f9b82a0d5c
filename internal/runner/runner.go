package runner

import (
	"context"
	"errors"
	"sync"

	"github.com/azhengyongqin/scholar-hub/internal/logger"
)

// ErrQueueFull 队列已满，提交被拒绝
var ErrQueueFull = errors.New("后台任务队列已满，请稍后重试")

// Job 一个后台执行单元。编排器自己负责把结果写回任务注册表，
// 池不关心 Job 的成败。
type Job func(ctx context.Context)

// Pool 固定大小的后台执行池。
// 提交在队列有空位时立即返回，任务与请求处理解耦；
// Stop 之后池排空队列中剩余的任务再退出。
type Pool struct {
	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewPool 启动 workers 个常驻 goroutine，队列容量为 queueSize。
func NewPool(ctx context.Context, workers, queueSize int) *Pool {
	p := &Pool{
		jobs: make(chan Job, queueSize),
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	logger.Info().Int("workers", workers).Int("queue_size", queueSize).Msg("INFO: 后台执行池已启动")
	return p
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		logger.Debug().Int("worker", id).Msg("worker 领取任务")
		job(ctx)
	}
}

// Submit 把任务放入队列。队列满时立即返回 ErrQueueFull，不阻塞请求。
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return errors.New("执行池已停止")
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop 关闭队列并等待在跑的任务结束。重复调用安全。
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info().Msg("INFO: 后台执行池已停止")
}
