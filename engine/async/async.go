// Package async runs jobs on named worker groups. Jobs of the same group run one at a time in order.
package async

import (
	"sync"

	"github.com/xiaonanln/saganet/engine/consts"
	"github.com/xiaonanln/saganet/engine/gwlog"
	"github.com/xiaonanln/saganet/engine/gwutils"
)

var (
	numAsyncJobWorkersRunning sync.WaitGroup
)

// AsyncCallback receives the result of an AsyncRoutine
type AsyncCallback func(res interface{}, err error)

// Callback calls the callback if it is not nil
func (ac AsyncCallback) Callback(res interface{}, err error) {
	if ac != nil {
		ac(res, err)
	}
}

// AsyncRoutine is the job body
type AsyncRoutine func() (res interface{}, err error)

// AsyncJobWorker runs the jobs of one group
type AsyncJobWorker struct {
	group    string
	jobQueue chan asyncJobItem
}

type asyncJobItem struct {
	routine  AsyncRoutine
	callback AsyncCallback
}

func newAsyncJobWorker(group string) *AsyncJobWorker {
	ajw := &AsyncJobWorker{
		group:    group,
		jobQueue: make(chan asyncJobItem, consts.ASYNC_JOB_QUEUE_MAXLEN),
	}
	numAsyncJobWorkersRunning.Add(1)
	go func() {
		gwutils.RepeatUntilPanicless(ajw.loop)
		numAsyncJobWorkersRunning.Done()
	}()
	return ajw
}

func (ajw *AsyncJobWorker) appendJob(routine AsyncRoutine, callback AsyncCallback) {
	ajw.jobQueue <- asyncJobItem{routine, callback}
}

func (ajw *AsyncJobWorker) tryAppendJob(routine AsyncRoutine, callback AsyncCallback) bool {
	select {
	case ajw.jobQueue <- asyncJobItem{routine, callback}:
		return true
	default:
		return false
	}
}

func (ajw *AsyncJobWorker) loop() {
	for item := range ajw.jobQueue {
		res, err := item.routine()
		item.callback.Callback(res, err)
	}
}

var (
	asyncJobWorkersLock sync.RWMutex
	asyncJobWorkers     = map[string]*AsyncJobWorker{}
)

func getAsyncJobWorker(group string) (ajw *AsyncJobWorker) {
	asyncJobWorkersLock.RLock()
	ajw = asyncJobWorkers[group]
	asyncJobWorkersLock.RUnlock()

	if ajw == nil {
		asyncJobWorkersLock.Lock()
		ajw = asyncJobWorkers[group]
		if ajw == nil {
			ajw = newAsyncJobWorker(group)
			asyncJobWorkers[group] = ajw
		}
		asyncJobWorkersLock.Unlock()
	}
	return
}

// AppendAsyncJob queues a job on the group, blocking while the queue is full
func AppendAsyncJob(group string, routine AsyncRoutine, callback AsyncCallback) {
	ajw := getAsyncJobWorker(group)
	ajw.appendJob(routine, callback)
}

// TryAppendAsyncJob queues a job on the group, dropping it when the queue is full
func TryAppendAsyncJob(group string, routine AsyncRoutine, callback AsyncCallback) bool {
	ajw := getAsyncJobWorker(group)
	if !ajw.tryAppendJob(routine, callback) {
		gwlog.Warnf("async: job queue of group %s is full, job dropped", group)
		return false
	}
	return true
}

// Flush waits until every job queued on the group so far has finished
func Flush(group string) {
	done := make(chan struct{})
	AppendAsyncJob(group, func() (interface{}, error) {
		close(done)
		return nil, nil
	}, nil)
	<-done
}

// Shutdown closes all job queues and waits for queued jobs to finish
func Shutdown() {
	// Close all job queue workers
	asyncJobWorkersLock.Lock()
	for _, alw := range asyncJobWorkers {
		close(alw.jobQueue)
	}
	asyncJobWorkers = map[string]*AsyncJobWorker{}
	asyncJobWorkersLock.Unlock()

	// wait for all job workers to quit
	numAsyncJobWorkersRunning.Wait()
}
