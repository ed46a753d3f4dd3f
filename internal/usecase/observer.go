package usecase

// Observer receives domain events for metrics. A nil Observer is allowed
// everywhere one is accepted.
type Observer interface {
	ObserveIngest(documents, chunks int)
	ObserveQuery(status string)
}

type nopObserver struct{}

func (nopObserver) ObserveIngest(int, int) {}
func (nopObserver) ObserveQuery(string)    {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
