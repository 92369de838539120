package sigcontext

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
)

// SignalError is the cancellation cause of a context cancelled by a signal.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received signal: %s", e.Signal)
}

// WithSignalCancel is a context that will cancel itself when one of sigs is
// sent to the process. The received signal is recorded as the context's cause
// (see Signal). The cancel function returned frees the signal handlers and
// must be called; after it is called a repeated signal gets the go runtime's
// default handling again.
func WithSignalCancel(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancelCause(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel(context.Canceled)
		once.Do(func() {
			signal.Stop(sigchan)
			close(sigchan)
		})
	}

	go func() {
		for {
			select {
			case <-sigctx.Done():
				return
			case sig, ok := <-sigchan:
				if !ok {
					return
				}
				ctxcancel(&SignalError{Signal: sig})
			}
		}
	}()

	return sigctx, cancel
}

// Signal returns the signal that cancelled ctx, if any.
func Signal(ctx context.Context) (os.Signal, bool) {
	sigErr, ok := context.Cause(ctx).(*SignalError)
	if !ok {
		return nil, false
	}
	return sigErr.Signal, true
}
