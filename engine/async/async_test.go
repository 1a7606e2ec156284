package async

import (
	"errors"
	"sync"
	"testing"

	"github.com/bmizerany/assert"
)

func TestNewAsyncJob(t *testing.T) {
	var wait sync.WaitGroup
	wait.Add(2)
	AppendAsyncJob("1", func() (res interface{}, err error) {
		wait.Done()
		return 1, nil
	}, func(res interface{}, err error) {
		assert.Equal(t, 1, res.(int))
		assert.Equal(t, nil, err)
		wait.Done()
	})
	wait.Wait()
}

func TestJobsRunInOrder(t *testing.T) {
	var order []int
	for i := 0; i < 100; i++ {
		i := i
		AppendAsyncJob("order", func() (interface{}, error) {
			order = append(order, i)
			return nil, nil
		}, nil)
	}
	Flush("order")
	assert.Equal(t, 100, len(order))
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestPanicDoesNotKillWorker(t *testing.T) {
	AppendAsyncJob("panic", func() (interface{}, error) {
		panic("bad job")
	}, nil)

	var gotErr error
	AppendAsyncJob("panic", func() (interface{}, error) {
		return nil, errors.New("after panic")
	}, func(res interface{}, err error) {
		gotErr = err
	})
	Flush("panic")
	assert.NotEqual(t, nil, gotErr)
}

func TestTryAppendAsyncJob(t *testing.T) {
	done := make(chan struct{})
	ok := TryAppendAsyncJob("try", func() (interface{}, error) {
		close(done)
		return nil, nil
	}, nil)
	assert.T(t, ok)
	<-done
}

func TestShutdown(t *testing.T) {
	ran := false
	AppendAsyncJob("shutdown", func() (interface{}, error) {
		ran = true
		return nil, nil
	}, nil)
	Shutdown()
	assert.T(t, ran)
}
