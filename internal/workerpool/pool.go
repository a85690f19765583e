// Package workerpool runs a fixed-size set of workers, each backed by a
// dedicated *http.Client, against a single FIFO queue of instructions.
// It is the execution layer the upload planner dispatches presigned
// multipart requests onto.
package workerpool

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/objectfs/objectfs/pkg/errors"
	"github.com/objectfs/objectfs/pkg/utils"
)

// Instruction is one unit of work a worker executes. Run receives the
// *http.Client the worker owns for its entire lifetime, so repeated
// instructions on the same worker reuse its connection pool.
type Instruction struct {
	// Name identifies the instruction for logging and metrics.
	Name string
	// Run performs the work. It must not retain client beyond the call.
	Run func(ctx context.Context, client *http.Client) error
}

// Stats reports worker pool counters.
type Stats struct {
	Workers    int
	QueueDepth int
	Dispatched int64
	Succeeded  int64
	Failed     int64
	InFlight   int
}

// Pool is a fixed-size FIFO worker pool. It is a singleton within a
// mounted filesystem: Initialize creates it, Destroy tears it down, and
// every caller in between shares the same queue and worker set.
type Pool struct {
	mu      sync.Mutex
	queue   []queuedInstruction
	notify  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	workers int
	logger  *utils.StructuredLogger

	dispatched int64
	succeeded  int64
	failed     int64
	inFlight   int
}

type queuedInstruction struct {
	instr  Instruction
	result chan error
}

var (
	singletonMu sync.Mutex
	singleton   *Pool
)

// Initialize creates the singleton pool with the given number of workers,
// each given its own *http.Client with timeout. Calling Initialize while
// a pool is already running returns an error; call Destroy first.
func Initialize(workers int, clientTimeout time.Duration, logger *utils.StructuredLogger) (*Pool, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		return nil, errors.NewError(errors.ErrCodeAlreadyStarted, "worker pool already initialized").
			WithComponent("workerpool").WithOperation("Initialize")
	}
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		var err error
		logger, err = utils.NewStructuredLogger(utils.DefaultStructuredLoggerConfig())
		if err != nil {
			return nil, errors.NewError(errors.ErrCodeInternalError, "create default worker pool logger").
				WithComponent("workerpool").WithOperation("Initialize").WithDetail("cause", err.Error())
		}
	}

	p := &Pool{
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		workers: workers,
		logger:  logger.WithComponent("workerpool"),
	}

	for i := 0; i < workers; i++ {
		client := &http.Client{Timeout: clientTimeout}
		p.wg.Add(1)
		go p.runWorker(i, client)
	}

	singleton = p
	return p, nil
}

// Current returns the running singleton pool, or nil if none is
// initialized.
func Current() *Pool {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return singleton
}

// Destroy stops all workers once the queue drains and clears the
// singleton. It blocks until every worker has exited.
func Destroy() {
	singletonMu.Lock()
	p := singleton
	singleton = nil
	singletonMu.Unlock()

	if p == nil {
		return
	}
	close(p.done)
	p.wakeAll()
	p.wg.Wait()
}

func (p *Pool) wakeAll() {
	for i := 0; i < p.workers; i++ {
		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// Instruct enqueues instr at the tail of the FIFO queue and returns
// immediately without waiting for it to run.
func (p *Pool) Instruct(instr Instruction) {
	p.mu.Lock()
	p.queue = append(p.queue, queuedInstruction{instr: instr})
	p.dispatched++
	p.mu.Unlock()
	p.wake()
}

// AwaitInstruct enqueues instr and blocks until some worker has run it,
// returning its error. Cancelling ctx stops waiting for the result but
// does not remove instr from the queue; a worker still runs it eventually.
func (p *Pool) AwaitInstruct(ctx context.Context, instr Instruction) error {
	result := make(chan error, 1)
	p.mu.Lock()
	p.queue = append(p.queue, queuedInstruction{instr: instr, result: result})
	p.dispatched++
	p.mu.Unlock()
	p.wake()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

func (p *Pool) dequeue() (queuedInstruction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return queuedInstruction{}, false
	}
	qi := p.queue[0]
	p.queue = p.queue[1:]
	p.inFlight++
	return qi, true
}

func (p *Pool) runWorker(id int, client *http.Client) {
	defer p.wg.Done()
	log := p.logger.WithField("worker_id", id)

	for {
		qi, ok := p.dequeue()
		if !ok {
			select {
			case <-p.done:
				return
			case <-p.notify:
				continue
			}
		}

		err := p.execute(qi.instr, client)

		p.mu.Lock()
		p.inFlight--
		if err != nil {
			p.failed++
		} else {
			p.succeeded++
		}
		p.mu.Unlock()

		if err != nil {
			log.WithField("instruction", qi.instr.Name).Warn("instruction failed", map[string]interface{}{"error": err.Error()})
		}
		if qi.result != nil {
			qi.result <- err
		}
	}
}

func (p *Pool) execute(instr Instruction, client *http.Client) error {
	if instr.Run == nil {
		return fmt.Errorf("workerpool: instruction %q has no Run function", instr.Name)
	}
	return instr.Run(context.Background(), client)
}

// StatsSnapshot returns a point-in-time view of the pool's counters.
func (p *Pool) StatsSnapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Workers:    p.workers,
		QueueDepth: len(p.queue),
		Dispatched: p.dispatched,
		Succeeded:  p.succeeded,
		Failed:     p.failed,
		InFlight:   p.inFlight,
	}
}
