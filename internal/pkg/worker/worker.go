package worker

import (
	"log"
	"time"

	"sofra_market/internal/pkg/push"
)

// NotificationTask 通知任务
// 订单状态流转、资金释放、订阅变更时异步推送，不阻塞请求链路
type NotificationTask struct {
	AccountID string
	Title     string
	Body      string
	Extra     map[string]string
	Retry     int // 重试次数
}

type WorkerPool struct {
	TaskQueue  chan NotificationTask
	RetryQueue chan NotificationTask // 重试队列
	Pusher     push.PushService
	WorkerNum  int
	MaxRetry   int // 最大重试次数
}

func NewWorkerPool(pusher push.PushService, workerNum int, bufferSize int) *WorkerPool {
	return &WorkerPool{
		TaskQueue:  make(chan NotificationTask, bufferSize),
		RetryQueue: make(chan NotificationTask, bufferSize/2),
		Pusher:     pusher,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 单独一个协程处理重试队列，带退避
	go p.retryWorker()
}

// Submit 提交通知任务，队列满时丢弃并记录日志（通知允许丢失，不能阻塞业务）
func (p *WorkerPool) Submit(task NotificationTask) {
	select {
	case p.TaskQueue <- task:
	default:
		log.Printf("[worker] notification queue full, dropping task for account %s", task.AccountID)
	}
}

func (p *WorkerPool) worker(id int) {
	for task := range p.TaskQueue {
		p.process(task)
	}
}

func (p *WorkerPool) retryWorker() {
	for task := range p.RetryQueue {
		// 简单退避：每次重试多等一秒
		time.Sleep(time.Duration(task.Retry) * time.Second)
		p.process(task)
	}
}

func (p *WorkerPool) process(task NotificationTask) {
	if p.Pusher == nil {
		// 推送服务未配置（开发环境），只打日志
		log.Printf("[worker] push disabled, notification for %s: %s", task.AccountID, task.Title)
		return
	}

	err := p.Pusher.PushToAccount(task.AccountID, task.Title, task.Body, task.Extra)
	if err == nil {
		return
	}

	if task.Retry < p.MaxRetry {
		task.Retry++
		select {
		case p.RetryQueue <- task:
		default:
			log.Printf("[worker] retry queue full, dropping task for account %s", task.AccountID)
		}
		return
	}

	log.Printf("[worker] notification failed after %d retries for account %s: %v", p.MaxRetry, task.AccountID, err)
}
