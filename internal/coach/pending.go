package coach

import "context"

// Pending is a handle to a send running in the background. Cancellation is
// owned by the context passed to Go.
type Pending struct {
	done chan struct{}
	ex   *Exchange
	err  error
}

// Go starts Send in a goroutine and returns its handle.
func (s *Service) Go(ctx context.Context, conversationID, text string) *Pending {
	p := &Pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.ex, p.err = s.Send(ctx, conversationID, text)
	}()
	return p
}

// Done is closed once the send has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the send finishes and returns its result.
func (p *Pending) Wait() (*Exchange, error) {
	<-p.done
	return p.ex, p.err
}
