package sslio

import (
	"context"
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/rxp"
	"sync"
)

var (
	executors     rxp.Executors
	executorsErr  error
	executorsOnce sync.Once
)

// TaskFunc
// 将普通函数适配为 rxp.Task。
type TaskFunc func()

func (fn TaskFunc) Handle(_ context.Context) {
	fn()
}

// Startup
// 以给定选项创建进程级执行器。
//
// 委托任务（握手中的密钥计算）与底层流的读写都运行在该执行器上。
// 只有第一次初始化生效，在 Executors 已被调用之后再 Startup 会返回 ErrExecutors。
func Startup(options ...rxp.Option) (err error) {
	started := false
	executorsOnce.Do(func() {
		started = true
		executors, executorsErr = rxp.New(options...)
	})
	if executorsErr != nil {
		err = newOpErr(opTask, ErrExecutors, executorsErr)
		return
	}
	if !started {
		err = newOpErr(opTask, ErrExecutors, errors.New("already started"))
		return
	}
	return
}

// Shutdown
// 关闭执行器，等待正在运行的任务结束。
func Shutdown() (err error) {
	exec, loadErr := loadExecutors()
	if loadErr != nil {
		err = loadErr
		return
	}
	err = exec.Close()
	return
}

// Executors
// 获取执行器，未 Startup 时使用默认选项创建。创建失败时 panic。
func Executors() rxp.Executors {
	exec, err := loadExecutors()
	if err != nil {
		panic(err)
	}
	return exec
}

func loadExecutors() (exec rxp.Executors, err error) {
	executorsOnce.Do(func() {
		executors, executorsErr = rxp.New()
	})
	if executorsErr != nil {
		err = newOpErr(opTask, ErrExecutors, executorsErr)
		return
	}
	exec = executors
	return
}
