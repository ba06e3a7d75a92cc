// Package workpool ejecuta tareas con un máximo de goroutines simultáneas.
package workpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
	// OnPanic se llama si una tarea entra en pánico; la goroutine no cae.
	OnPanic func(v any)
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit bloquea hasta que haya un lugar libre o ctx se cancele.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil && p.OnPanic != nil {
				p.OnPanic(r)
			}
		}()
		fn()
	}()
	return nil
}

// Wait espera a que terminen las tareas ya enviadas.
func (p *Pool) Wait() { p.wg.Wait() }
