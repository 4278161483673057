/*
	service package hosts the long-running components of the engine and the
	Group runner that executes them side by side. A group terminates as a
	unit: the first service error (or an outside cancellation) stops every
	member, and all reported errors are accumulated into the final result.
*/

package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Service is a long-running component of the engine.
type Service interface {
	// Name identifies the service in logs and error messages.
	Name() string

	// Run executes the service and blocks until the context is cancelled
	// or an error occurs.
	Run(context.Context) error
}

// Group is a set of Service instances that run in parallel and terminate
// together.
type Group []Service

// Run starts every service in the group and blocks until all of them have
// exited. The first service error cancels the shared context; all errors
// reported by then are accumulated into the returned error, prefixed with
// the failing service's name.
func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(g))
	errChan := make(chan error, len(g))

	for _, svc := range g {
		go func(svc Service) {
			defer wg.Done()

			if err := svc.Run(runCtx); err != nil {
				errChan <- fmt.Errorf("%s: %w", svc.Name(), err)
				cancel()
			}
		}(svc)
	}

	<-runCtx.Done()
	wg.Wait()

	var err error
	close(errChan)
	for svcErr := range errChan {
		err = multierror.Append(err, svcErr)
	}

	return err
}
