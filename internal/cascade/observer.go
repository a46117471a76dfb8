package cascade

import "time"

// AttemptEvent describes one finished strategy attempt.
type AttemptEvent struct {
	Image    string        `json:"image"`
	Strategy string        `json:"strategy"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration_ns"`
}

// Observer receives attempt events as a cascade runs. Implementations are
// called synchronously from the verifying goroutine.
type Observer interface {
	ObserveAttempt(AttemptEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(AttemptEvent)

func (f ObserverFunc) ObserveAttempt(e AttemptEvent) { f(e) }

type nopObserver struct{}

func (nopObserver) ObserveAttempt(AttemptEvent) {}

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	switch len(list) {
	case 0:
		return nopObserver{}
	case 1:
		return list[0]
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) ObserveAttempt(e AttemptEvent) {
	for _, o := range m {
		o.ObserveAttempt(e)
	}
}
